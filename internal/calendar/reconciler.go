package calendar

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Reconciler keeps the persisted days and slots of a form in line with its
// schedule over the window "current week + WindowWeeks()-1 weeks".
//
// Reconciler does not serialize callers. Concurrent ensure or reset calls for
// the same form must be guarded by the caller (see Service); otherwise two
// passes can both see a missing day and create it twice.
type Reconciler struct {
	repo   Repository
	now    func() time.Time
	logger *zap.Logger
}

// NewReconciler builds a reconciler. now defaults to time.Now; its location
// decides where weeks start.
func NewReconciler(repo Repository, now func() time.Time, logger *zap.Logger) *Reconciler {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{
		repo:   repo,
		now:    now,
		logger: logger,
	}
}

// EnsureWeekGenerated makes sure every day of the addressed week exists in
// storage and returns the seven days, ordered by date, with their slots.
// Missing days and their slots are created in a single transaction.
func (r *Reconciler) EnsureWeekGenerated(ctx context.Context, schedule FormSchedule, weekOffset int) ([]Day, error) {
	now := r.now()

	var days []Day
	err := r.repo.WithinTx(ctx, func(repo Repository) error {
		var err error
		days, err = r.generateWeek(ctx, repo, schedule, now, weekOffset, true)
		return err
	})
	if err != nil {
		return nil, err
	}

	return days, nil
}

// EnsureUpcomingWeeksGenerated materializes every week of the form's window.
// Each week commits on its own, so a failure leaves earlier weeks in place.
func (r *Reconciler) EnsureUpcomingWeeksGenerated(ctx context.Context, schedule FormSchedule) error {
	return r.ensureWindow(ctx, schedule, r.now())
}

func (r *Reconciler) ensureWindow(ctx context.Context, schedule FormSchedule, now time.Time) error {
	for offset := 0; offset < schedule.WindowWeeks(); offset++ {
		err := r.repo.WithinTx(ctx, func(repo Repository) error {
			_, err := r.generateWeek(ctx, repo, schedule, now, offset, false)
			return err
		})
		if err != nil {
			return fmt.Errorf("ensure week %d of form %d: %w", offset, schedule.FormID, err)
		}
	}
	return nil
}

// ResetUpcomingWeeks deletes every day of the window, from this week's Monday
// on, and generates it again from schedule. Earlier days are never touched.
// Each week is deleted and regenerated in one transaction, so a failure
// leaves that week and the following ones as they were.
func (r *Reconciler) ResetUpcomingWeeks(ctx context.Context, schedule FormSchedule) error {
	now := r.now()

	var deleted int
	for offset := 0; offset < schedule.WindowWeeks(); offset++ {
		dateMin, dateMax := WeekBounds(now, offset)

		var weekDeleted int
		err := r.repo.WithinTx(ctx, func(repo Repository) error {
			days, err := repo.FindDaysInRange(ctx, schedule.FormID, dateMin, dateMax)
			if err != nil {
				return fmt.Errorf("find days: %w", err)
			}
			for _, day := range days {
				if err := repo.DeleteDay(ctx, day.ID); err != nil {
					return fmt.Errorf("delete day %d: %w", day.ID, err)
				}
			}
			weekDeleted = len(days)

			_, err = r.generateWeek(ctx, repo, schedule, now, offset, false)
			return err
		})
		if err != nil {
			return fmt.Errorf("reset week %d of form %d: %w", offset, schedule.FormID, err)
		}
		deleted += weekDeleted
	}

	r.logger.Info("upcoming weeks reset",
		zap.Int64("form_id", schedule.FormID),
		zap.Int("weeks", schedule.WindowWeeks()),
		zap.Int("days_deleted", deleted),
	)

	return nil
}

// CalendarView returns the persisted days of the addressed week for display.
// Nothing is created: dates without a stored day are absent from the result.
// Days older than 24 hours are returned closed and without slots.
func (r *Reconciler) CalendarView(ctx context.Context, schedule FormSchedule, weekOffset int) ([]Day, error) {
	now := r.now()
	dateMin, dateMax := WeekBounds(now, weekOffset)

	days, err := r.repo.FindDaysInRange(ctx, schedule.FormID, dateMin, dateMax)
	if err != nil {
		return nil, fmt.Errorf("find days of form %d: %w", schedule.FormID, err)
	}

	cutoff := now.Add(-24 * time.Hour)
	for i := range days {
		day := &days[i]
		day.Date = DateIn(day.Date, dateMin.Location())

		// elapsed days stay in storage but are no longer orderable
		if day.Date.Before(cutoff) {
			day.Open = false
			day.Slots = []Slot{}
			continue
		}

		if !day.Open {
			day.Slots = []Slot{}
			continue
		}

		slots, err := r.repo.FindSlotsByDayWithRemainingCapacity(ctx, day.ID)
		if err != nil {
			return nil, fmt.Errorf("find slots of day %d: %w", day.ID, err)
		}
		day.Slots = slots
	}

	return days, nil
}

// WeekdaySlots returns every generated slot of a form falling on weekday.
func (r *Reconciler) WeekdaySlots(ctx context.Context, formID int64, weekday int) ([]Slot, error) {
	slots, err := r.repo.FindSlotsByFormAndWeekday(ctx, formID, weekday)
	if err != nil {
		return nil, fmt.Errorf("find slots of form %d weekday %d: %w", formID, weekday, err)
	}
	return slots, nil
}

// generateWeek creates the missing days of one week through repo. When
// withDays is false the result is nil and slots of existing days are not
// loaded.
func (r *Reconciler) generateWeek(ctx context.Context, repo Repository, schedule FormSchedule, now time.Time, weekOffset int, withDays bool) ([]Day, error) {
	dateMin, dateMax := WeekBounds(now, weekOffset)

	found, err := repo.FindDaysInRange(ctx, schedule.FormID, dateMin, dateMax)
	if err != nil {
		return nil, fmt.Errorf("find days of form %d: %w", schedule.FormID, err)
	}

	if len(found) >= DaysInWeek && !withDays {
		return nil, nil
	}
	if len(found) < DaysInWeek {
		r.logger.Info("week incomplete, generating missing days",
			zap.Int64("form_id", schedule.FormID),
			zap.Time("week_start", dateMin),
			zap.Int("days_found", len(found)),
		)
	}

	days := make([]Day, 0, DaysInWeek)
	for i := 0; i < DaysInWeek; i++ {
		date := dateMin.AddDate(0, 0, i)

		day, ok := matchDay(found, date)
		if !ok {
			day = NewDayFor(schedule, date)
			day.Slots = SlotsFor(day)
			days = append(days, day)
			continue
		}

		day.Date = date
		if withDays {
			day.Slots = []Slot{}
			if day.Open {
				slots, err := repo.FindSlotsByDay(ctx, day.ID)
				if err != nil {
					return nil, fmt.Errorf("find slots of day %d: %w", day.ID, err)
				}
				day.Slots = slots
			}
		}
		days = append(days, day)
	}

	created := 0
	for i := range days {
		if days[i].Persisted() {
			continue
		}
		if err := persistDay(ctx, repo, &days[i]); err != nil {
			return nil, err
		}
		created++
	}

	if created > 0 {
		r.logger.Debug("days generated",
			zap.Int64("form_id", schedule.FormID),
			zap.Time("week_start", dateMin),
			zap.Int("days_created", created),
		)
	}

	if !withDays {
		return nil, nil
	}
	return days, nil
}

func persistDay(ctx context.Context, repo Repository, day *Day) error {
	if err := repo.CreateDay(ctx, day); err != nil {
		return fmt.Errorf("create day %s: %w", day.Date.Format(time.DateOnly), err)
	}

	for i := range day.Slots {
		day.Slots[i].DayID = day.ID
		if err := repo.CreateSlot(ctx, &day.Slots[i]); err != nil {
			return fmt.Errorf("create slot %s of day %d: %w", day.Slots[i].Start, day.ID, err)
		}
	}
	return nil
}

func matchDay(days []Day, date time.Time) (Day, bool) {
	for _, d := range days {
		if SameDate(d.Date, date) {
			return d, true
		}
	}
	return Day{}, false
}
