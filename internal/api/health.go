package api

import (
	"context"
	"net/http"
	"time"

	"github.com/hackgods/appointment-calendar/internal/worker"
)

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function, such as a redis ping, to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// RunReporter exposes the latest calendar worker pass.
type RunReporter interface {
	LastRun() (worker.RunStats, bool)
}

type HealthHandler struct {
	postgres Pinger
	redis    Pinger
	job      RunReporter
	env      string
	version  string
}

func NewHealthHandler(postgres, redis Pinger, job RunReporter, env, version string) *HealthHandler {
	return &HealthHandler{
		postgres: postgres,
		redis:    redis,
		job:      job,
		env:      env,
		version:  version,
	}
}

func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	resp := LivenessResponse{
		Status:  "ok",
		Version: h.version,
		Env:     h.env,
	}
	writeJSON(w, http.StatusOK, resp)
}

// Readiness reports "error" when Postgres is down, since nothing can be
// generated, and "degraded" when only Redis is down.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	deps := make(map[string]string)
	status := "ok"

	// Check Postgres
	pgCtx, pgCancel := context.WithTimeout(ctx, 1*time.Second)
	err := h.postgres.Ping(pgCtx)
	pgCancel()
	if err != nil {
		deps["postgres"] = "down"
		status = "error"
	} else {
		deps["postgres"] = "ok"
	}

	// Check Redis
	redisCtx, redisCancel := context.WithTimeout(ctx, 1*time.Second)
	err = h.redis.Ping(redisCtx)
	redisCancel()
	if err != nil {
		deps["redis"] = "down"
		if status == "ok" {
			status = "degraded"
		}
	} else {
		deps["redis"] = "ok"
	}

	resp := ReadinessResponse{
		Status:       status,
		Version:      h.version,
		Env:          h.env,
		Dependencies: deps,
	}

	if h.job != nil {
		if last, ok := h.job.LastRun(); ok {
			info := &CalendarRunInfo{
				StartedAt:  last.StartedAt,
				DurationMs: last.Duration.Milliseconds(),
				Forms:      last.Forms,
				Ensured:    last.Ensured,
				Skipped:    last.Skipped,
				Failed:     last.Failed,
			}
			if last.Err != nil {
				info.Error = last.Err.Error()
			}
			resp.CalendarRun = info
		}
	}

	httpStatus := http.StatusOK
	if status == "error" {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, resp)
}
