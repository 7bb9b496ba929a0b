package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hackgods/appointment-calendar/internal/calendar"
	"github.com/hackgods/appointment-calendar/internal/form"
)

type FormLister interface {
	ListActiveForms(ctx context.Context) ([]form.Form, error)
}

type CalendarEnsurer interface {
	EnsureUpcoming(ctx context.Context, schedule calendar.FormSchedule) error
}

// RunStats summarises one pass over the active forms.
type RunStats struct {
	StartedAt time.Time
	Duration  time.Duration
	Forms     int
	Ensured   int
	Skipped   int // invalid configuration or lock held elsewhere
	Failed    int
	Err       error // set when the form list itself could not be loaded
}

// CalendarJob keeps the upcoming weeks of every active form generated.
type CalendarJob struct {
	forms            FormLister
	calendar         CalendarEnsurer
	weeksToPreCreate int
	timeout          time.Duration
	logger           *zap.Logger

	mu   sync.RWMutex
	last *RunStats
}

func NewCalendarJob(forms FormLister, cal CalendarEnsurer, weeksToPreCreate int, timeout time.Duration, logger *zap.Logger) *CalendarJob {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CalendarJob{
		forms:            forms,
		calendar:         cal,
		weeksToPreCreate: weeksToPreCreate,
		timeout:          timeout,
		logger:           logger,
	}
}

// Run makes one pass. A failing form never stops the others.
func (j *CalendarJob) Run(ctx context.Context) RunStats {
	start := time.Now()
	stats := RunStats{StartedAt: start}

	if j.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.timeout)
		defer cancel()
	}

	forms, err := j.forms.ListActiveForms(ctx)
	if err != nil {
		stats.Err = fmt.Errorf("list active forms: %w", err)
		stats.Duration = time.Since(start)
		j.logger.Error("calendar run failed", zap.Error(stats.Err))
		j.record(stats)
		return stats
	}
	stats.Forms = len(forms)

	for _, f := range forms {
		if ctx.Err() != nil {
			j.logger.Warn("calendar run interrupted", zap.Error(ctx.Err()))
			break
		}

		log := j.logger.With(zap.Int64("form_id", f.ID))

		schedule, err := calendar.ParseSchedule(f.FormConfig, j.weeksToPreCreate)
		if err != nil {
			log.Warn("skipping form with invalid configuration", zap.Error(err))
			stats.Skipped++
			continue
		}

		err = j.calendar.EnsureUpcoming(ctx, schedule)
		switch {
		case err == nil:
			stats.Ensured++
		case errors.Is(err, calendar.ErrGenerationInProgress):
			log.Info("form is being generated elsewhere, skipping")
			stats.Skipped++
		default:
			log.Error("ensure upcoming weeks failed", zap.Error(err))
			stats.Failed++
		}
	}

	stats.Duration = time.Since(start)
	j.logger.Info("calendar run complete",
		zap.Int("forms", stats.Forms),
		zap.Int("ensured", stats.Ensured),
		zap.Int("skipped", stats.Skipped),
		zap.Int("failed", stats.Failed),
		zap.Duration("duration", stats.Duration),
	)
	j.record(stats)
	return stats
}

// LastRun returns the stats of the latest pass, or false before the first.
func (j *CalendarJob) LastRun() (RunStats, bool) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.last == nil {
		return RunStats{}, false
	}
	return *j.last, true
}

func (j *CalendarJob) record(stats RunStats) {
	j.mu.Lock()
	j.last = &stats
	j.mu.Unlock()
}
