package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler runs the calendar job on a cron expression. Overlapping runs,
// including the startup run, are skipped rather than queued.
type Scheduler struct {
	cron    *cron.Cron
	job     *CalendarJob
	wrapped cron.Job
	logger  *zap.Logger
	runCtx  context.Context
	cancel  context.CancelFunc
	startup sync.WaitGroup
}

func NewScheduler(expr string, loc *time.Location, job *CalendarJob, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.Local
	}

	cl := cronLogger{s: logger.Sugar()}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(cl),
	)

	runCtx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{cron: c, job: job, logger: logger, runCtx: runCtx, cancel: cancel}

	// one wrapped job shared by the startup run and the schedule, so
	// SkipIfStillRunning sees both
	s.wrapped = cron.NewChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)).
		Then(cron.FuncJob(func() { s.job.Run(s.runCtx) }))

	if _, err := c.AddJob(expr, s.wrapped); err != nil {
		cancel()
		return nil, fmt.Errorf("invalid calendar cron expression %q: %w", expr, err)
	}

	return s, nil
}

// Start runs the job once right away, then on schedule.
func (s *Scheduler) Start() {
	s.startup.Add(1)
	go func() {
		defer s.startup.Done()
		s.wrapped.Run()
	}()
	s.cron.Start()
	s.logger.Info("calendar scheduler started")
}

// Stop cancels in-flight runs and waits for them, the startup run included,
// to return or ctx to end.
func (s *Scheduler) Stop(ctx context.Context) {
	s.cancel()
	stopped := s.cron.Stop()

	done := make(chan struct{})
	go func() {
		<-stopped.Done()
		s.startup.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		s.logger.Warn("calendar scheduler stop timed out")
	}
}

// cronLogger routes cron's own logging to zap. Schedule chatter goes to
// debug.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw("cron: "+msg, append(keysAndValues, "error", err)...)
}
