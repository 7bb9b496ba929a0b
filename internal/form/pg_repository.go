package form

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hackgods/appointment-calendar/internal/calendar"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const formColumns = `
	id, title, time_start, time_end,
	duration_appointments, people_per_appointment, nb_weeks_to_display,
	is_open_monday, is_open_tuesday, is_open_wednesday, is_open_thursday,
	is_open_friday, is_open_saturday, is_open_sunday,
	is_active, created_at, updated_at`

func scanForm(row pgx.Row) (*Form, error) {
	var f Form

	err := row.Scan(
		&f.ID,
		&f.Title,
		&f.TimeStart,
		&f.TimeEnd,
		&f.DurationAppointments,
		&f.PeoplePerAppointment,
		&f.WeeksToDisplay,
		&f.OpenMonday,
		&f.OpenTuesday,
		&f.OpenWednesday,
		&f.OpenThursday,
		&f.OpenFriday,
		&f.OpenSaturday,
		&f.OpenSunday,
		&f.Active,
		&f.CreatedAt,
		&f.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrFormNotFound
		}
		return nil, err
	}

	return &f, nil
}

func (r *PgRepository) GetForm(ctx context.Context, id int64) (*Form, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+formColumns+` FROM forms WHERE id = $1`, id)
	return scanForm(row)
}

func (r *PgRepository) ListActiveForms(ctx context.Context) ([]Form, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+formColumns+` FROM forms WHERE is_active ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Form
	for rows.Next() {
		f, err := scanForm(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *f)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) CreateForm(ctx context.Context, cfg calendar.FormConfig, check func(calendar.FormConfig) error) (*Form, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx, `
		INSERT INTO forms (
			title, time_start, time_end,
			duration_appointments, people_per_appointment, nb_weeks_to_display,
			is_open_monday, is_open_tuesday, is_open_wednesday, is_open_thursday,
			is_open_friday, is_open_saturday, is_open_sunday,
			is_active, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, now(), now())
		RETURNING `+formColumns,
		cfg.Title, cfg.TimeStart, cfg.TimeEnd,
		cfg.DurationAppointments, cfg.PeoplePerAppointment, cfg.WeeksToDisplay,
		cfg.OpenMonday, cfg.OpenTuesday, cfg.OpenWednesday, cfg.OpenThursday,
		cfg.OpenFriday, cfg.OpenSaturday, cfg.OpenSunday,
		cfg.Active,
	)

	created, err := scanForm(row)
	if err != nil {
		return nil, fmt.Errorf("insert form: %w", err)
	}

	if check != nil {
		if err := check(created.FormConfig); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return created, nil
}

func (r *PgRepository) UpdateForm(ctx context.Context, cfg calendar.FormConfig) (*Form, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE forms
		SET title = $2, time_start = $3, time_end = $4,
		    duration_appointments = $5, people_per_appointment = $6, nb_weeks_to_display = $7,
		    is_open_monday = $8, is_open_tuesday = $9, is_open_wednesday = $10, is_open_thursday = $11,
		    is_open_friday = $12, is_open_saturday = $13, is_open_sunday = $14,
		    is_active = $15, updated_at = now()
		WHERE id = $1
		RETURNING `+formColumns,
		cfg.ID, cfg.Title, cfg.TimeStart, cfg.TimeEnd,
		cfg.DurationAppointments, cfg.PeoplePerAppointment, cfg.WeeksToDisplay,
		cfg.OpenMonday, cfg.OpenTuesday, cfg.OpenWednesday, cfg.OpenThursday,
		cfg.OpenFriday, cfg.OpenSaturday, cfg.OpenSunday,
		cfg.Active,
	)

	updated, err := scanForm(row)
	if err != nil {
		if errors.Is(err, ErrFormNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("update form: %w", err)
	}

	return updated, nil
}
