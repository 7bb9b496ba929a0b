package calendar

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// dbtx is satisfied by both *pgxpool.Pool and pgx.Tx.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PgRepository struct {
	pool *pgxpool.Pool // nil when bound to a transaction
	db   dbtx
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool, db: pool}
}

// Helpers

const daySelect = `
	SELECT id, form_id, day_date, is_open,
	       opening_hour, opening_minute, closing_hour, closing_minute,
	       appointment_duration, people_per_appointment
	FROM calendar_days`

const slotSelect = `
	SELECT id, day_id, form_id, day_of_week,
	       starting_hour, starting_minute, ending_hour, ending_minute,
	       nb_places, is_enabled, nb_free_places
	FROM calendar_slots`

func scanDay(row pgx.Row) (*Day, error) {
	var d Day

	err := row.Scan(
		&d.ID,
		&d.FormID,
		&d.Date,
		&d.Open,
		&d.Opening.Hour,
		&d.Opening.Minute,
		&d.Closing.Hour,
		&d.Closing.Minute,
		&d.DurationMinutes,
		&d.PeoplePerAppointment,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDayNotFound
		}
		return nil, err
	}

	return &d, nil
}

func scanSlot(row pgx.Row) (*Slot, error) {
	var s Slot

	err := row.Scan(
		&s.ID,
		&s.DayID,
		&s.FormID,
		&s.DayOfWeek,
		&s.Start.Hour,
		&s.Start.Minute,
		&s.End.Hour,
		&s.End.Minute,
		&s.Capacity,
		&s.Enabled,
		&s.FreePlaces,
	)
	if err != nil {
		return nil, err
	}

	return &s, nil
}

func (r *PgRepository) querySlots(ctx context.Context, sql string, args ...any) ([]Slot, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []Slot{}
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

// dateParam pins a calendar date to UTC midnight so the DATE column never
// shifts with the session time zone.
func dateParam(t time.Time) time.Time {
	return DateIn(t, time.UTC)
}

// Interface methods

func (r *PgRepository) FindDaysInRange(ctx context.Context, formID int64, dateMin, dateMax time.Time) ([]Day, error) {
	rows, err := r.db.Query(ctx, daySelect+`
		WHERE form_id = $1
		  AND day_date BETWEEN $2 AND $3
		ORDER BY day_date
	`, formID, dateParam(dateMin), dateParam(dateMax))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Day
	for rows.Next() {
		d, err := scanDay(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *d)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) CreateDay(ctx context.Context, day *Day) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO calendar_days (
			form_id, day_date, is_open,
			opening_hour, opening_minute, closing_hour, closing_minute,
			appointment_duration, people_per_appointment, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())
		RETURNING id
	`,
		day.FormID, dateParam(day.Date), day.Open,
		day.Opening.Hour, day.Opening.Minute, day.Closing.Hour, day.Closing.Minute,
		day.DurationMinutes, day.PeoplePerAppointment,
	).Scan(&day.ID)
	if err != nil {
		return fmt.Errorf("insert day: %w", err)
	}
	return nil
}

func (r *PgRepository) DeleteDay(ctx context.Context, dayID int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM calendar_days WHERE id = $1`, dayID)
	if err != nil {
		return fmt.Errorf("delete day: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrDayNotFound
	}
	return nil
}

func (r *PgRepository) FindSlotsByDay(ctx context.Context, dayID int64) ([]Slot, error) {
	return r.querySlots(ctx, slotSelect+`
		WHERE day_id = $1
		ORDER BY starting_hour, starting_minute
	`, dayID)
}

func (r *PgRepository) FindSlotsByFormAndWeekday(ctx context.Context, formID int64, weekday int) ([]Slot, error) {
	return r.querySlots(ctx, slotSelect+`
		WHERE form_id = $1
		  AND day_of_week = $2
		ORDER BY day_id, starting_hour, starting_minute
	`, formID, weekday)
}

func (r *PgRepository) FindSlotsByDayWithRemainingCapacity(ctx context.Context, dayID int64) ([]Slot, error) {
	return r.querySlots(ctx, slotSelect+`
		WHERE day_id = $1
		  AND is_enabled
		ORDER BY starting_hour, starting_minute
	`, dayID)
}

func (r *PgRepository) CreateSlot(ctx context.Context, slot *Slot) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO calendar_slots (
			day_id, form_id, day_of_week,
			starting_hour, starting_minute, ending_hour, ending_minute,
			nb_places, nb_free_places, is_enabled, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now())
		RETURNING id
	`,
		slot.DayID, slot.FormID, slot.DayOfWeek,
		slot.Start.Hour, slot.Start.Minute, slot.End.Hour, slot.End.Minute,
		slot.Capacity, slot.FreePlaces, slot.Enabled,
	).Scan(&slot.ID)
	if err != nil {
		return fmt.Errorf("insert slot: %w", err)
	}
	return nil
}

func (r *PgRepository) WithinTx(ctx context.Context, fn func(repo Repository) error) error {
	if r.pool == nil {
		// already inside a transaction
		return fn(r)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&PgRepository{db: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
