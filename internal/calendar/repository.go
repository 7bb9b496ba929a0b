package calendar

import (
	"context"
	"errors"
	"time"
)

var (
	ErrDayNotFound = errors.New("day not found")
)

// Repository contains all storage interactions needed by the reconciler.
type Repository interface {
	// FindDaysInRange returns the days of a form with dateMin <= date <= dateMax,
	// ordered by date. Slots are not loaded.
	FindDaysInRange(ctx context.Context, formID int64, dateMin, dateMax time.Time) ([]Day, error)
	CreateDay(ctx context.Context, day *Day) error
	// DeleteDay removes a day and its slots.
	DeleteDay(ctx context.Context, dayID int64) error

	FindSlotsByDay(ctx context.Context, dayID int64) ([]Slot, error)
	FindSlotsByFormAndWeekday(ctx context.Context, formID int64, weekday int) ([]Slot, error)
	// FindSlotsByDayWithRemainingCapacity loads a day's slots with FreePlaces
	// filled in from the booking side.
	FindSlotsByDayWithRemainingCapacity(ctx context.Context, dayID int64) ([]Slot, error)
	CreateSlot(ctx context.Context, slot *Slot) error

	// WithinTx runs fn against a repository bound to a single transaction.
	// fn's error rolls every write back.
	WithinTx(ctx context.Context, fn func(repo Repository) error) error
}
