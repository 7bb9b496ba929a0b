package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/hackgods/appointment-calendar/internal/worker"
)

type stubReporter struct {
	stats worker.RunStats
	ok    bool
}

func (s stubReporter) LastRun() (worker.RunStats, bool) { return s.stats, s.ok }

func up(context.Context) error   { return nil }
func down(context.Context) error { return errors.New("connection refused") }

func newTestRouter(pg, rd PingFunc, job RunReporter) http.Handler {
	return NewRouter(RouterConfig{
		Postgres: pg,
		Redis:    rd,
		Job:      job,
		Env:      "test",
		Version:  "1.0.0",
	})
}

func getReadiness(t *testing.T, h http.Handler) (*httptest.ResponseRecorder, ReadinessResponse) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	var body ReadinessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec, body
}

func TestLiveness(t *testing.T) {
	h := newTestRouter(up, up, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	var body LivenessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, LivenessResponse{Status: "ok", Version: "1.0.0", Env: "test"}, body)
}

func TestReadiness_Statuses(t *testing.T) {
	tests := []struct {
		name     string
		pg, rd   PingFunc
		code     int
		status   string
		postgres string
		redis    string
	}{
		{"all up", up, up, http.StatusOK, "ok", "ok", "ok"},
		{"redis down", up, down, http.StatusOK, "degraded", "ok", "down"},
		{"postgres down", down, up, http.StatusServiceUnavailable, "error", "down", "ok"},
		{"both down", down, down, http.StatusServiceUnavailable, "error", "down", "down"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := getReadiness(t, newTestRouter(tt.pg, tt.rd, nil))

			assert.Equal(t, tt.code, rec.Code)
			assert.Equal(t, tt.status, body.Status)
			assert.Equal(t, tt.postgres, body.Dependencies["postgres"])
			assert.Equal(t, tt.redis, body.Dependencies["redis"])
			assert.Nil(t, body.CalendarRun)
		})
	}
}

func TestReadiness_ReportsCalendarRun(t *testing.T) {
	started := time.Date(2026, time.October, 14, 10, 0, 0, 0, time.UTC)
	job := stubReporter{ok: true, stats: worker.RunStats{
		StartedAt: started,
		Duration:  1500 * time.Millisecond,
		Forms:     3,
		Ensured:   2,
		Skipped:   1,
		Err:       nil,
	}}

	_, body := getReadiness(t, newTestRouter(up, up, job))

	require.NotNil(t, body.CalendarRun)
	assert.True(t, started.Equal(body.CalendarRun.StartedAt))
	assert.Equal(t, int64(1500), body.CalendarRun.DurationMs)
	assert.Equal(t, 3, body.CalendarRun.Forms)
	assert.Equal(t, 2, body.CalendarRun.Ensured)
	assert.Equal(t, 1, body.CalendarRun.Skipped)
	assert.Empty(t, body.CalendarRun.Error)
}

func TestReadiness_ReportsCalendarRunError(t *testing.T) {
	job := stubReporter{ok: true, stats: worker.RunStats{Err: errors.New("list active forms: timeout")}}

	_, body := getReadiness(t, newTestRouter(up, up, job))

	require.NotNil(t, body.CalendarRun)
	assert.Equal(t, "list active forms: timeout", body.CalendarRun.Error)
}

func TestRequestIDIsPropagated(t *testing.T) {
	var seen string
	h := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "req-123", seen)
	assert.Equal(t, "req-123", rec.Header().Get("X-Request-ID"))
}

func TestLoggingMiddleware(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	h := LoggingMiddleware(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/fail" {
			w.WriteHeader(http.StatusBadGateway)
		}
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ok", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/fail", nil))

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zap.DebugLevel, entries[0].Level)
	assert.Equal(t, zap.WarnLevel, entries[1].Level)
	assert.Equal(t, int64(http.StatusBadGateway), entries[1].ContextMap()["status"])
	assert.Equal(t, "/fail", entries[1].ContextMap()["path"])
}
