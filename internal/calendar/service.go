package calendar

import (
	"context"
	"errors"

	"go.uber.org/zap"

	redisclient "github.com/hackgods/appointment-calendar/internal/redis"
)

var (
	ErrGenerationInProgress = errors.New("calendar generation already in progress for this form, please retry")
	ErrInvalidWeekday       = errors.New("weekday must be between 1 (Monday) and 7 (Sunday)")
)

// Service is the entry point for form back offices and display layers.
// Every write path runs under a per form lock.
type Service struct {
	reconciler *Reconciler
	locker     redisclient.Locker
	logger     *zap.Logger
}

func NewService(reconciler *Reconciler, locker redisclient.Locker, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		reconciler: reconciler,
		locker:     locker,
		logger:     logger,
	}
}

// FormSaved must be called after a form is created (previous == nil) or
// updated. A change of any snapshotted field resets the upcoming weeks;
// anything else only tops the window up.
func (s *Service) FormSaved(ctx context.Context, previous *FormSchedule, next FormSchedule) error {
	if previous != nil && ScheduleChanged(*previous, next) {
		s.logger.Info("weekly schedule changed, resetting upcoming weeks", zap.Int64("form_id", next.FormID))
		return s.Reset(ctx, next)
	}
	return s.EnsureUpcoming(ctx, next)
}

func (s *Service) EnsureUpcoming(ctx context.Context, schedule FormSchedule) error {
	return s.withFormLock(ctx, schedule.FormID, func(lockCtx context.Context) error {
		return s.reconciler.EnsureUpcomingWeeksGenerated(lockCtx, schedule)
	})
}

func (s *Service) Reset(ctx context.Context, schedule FormSchedule) error {
	return s.withFormLock(ctx, schedule.FormID, func(lockCtx context.Context) error {
		return s.reconciler.ResetUpcomingWeeks(lockCtx, schedule)
	})
}

// Week returns the seven days of a week for management screens, generating
// whatever is missing.
func (s *Service) Week(ctx context.Context, schedule FormSchedule, weekOffset int) ([]Day, error) {
	var days []Day
	err := s.withFormLock(ctx, schedule.FormID, func(lockCtx context.Context) error {
		var err error
		days, err = s.reconciler.EnsureWeekGenerated(lockCtx, schedule, weekOffset)
		return err
	})
	if err != nil {
		return nil, err
	}
	return days, nil
}

// Calendar is the read only view shown to users. It takes no lock.
func (s *Service) Calendar(ctx context.Context, schedule FormSchedule, weekOffset int) ([]Day, error) {
	return s.reconciler.CalendarView(ctx, schedule, weekOffset)
}

func (s *Service) WeekdaySlots(ctx context.Context, formID int64, weekday int) ([]Slot, error) {
	if weekday < 1 || weekday > DaysInWeek {
		return nil, ErrInvalidWeekday
	}
	return s.reconciler.WeekdaySlots(ctx, formID, weekday)
}

func (s *Service) withFormLock(ctx context.Context, formID int64, fn func(ctx context.Context) error) error {
	err := s.locker.WithFormLock(ctx, formID, fn)
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return ErrGenerationInProgress
		}
		return err
	}
	return nil
}
