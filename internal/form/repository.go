package form

import (
	"context"
	"errors"

	"github.com/hackgods/appointment-calendar/internal/calendar"
)

var ErrFormNotFound = errors.New("form not found")

// Repository contains all DB interactions needed by the form service.
type Repository interface {
	GetForm(ctx context.Context, id int64) (*Form, error)
	ListActiveForms(ctx context.Context) ([]Form, error)

	// CreateForm inserts cfg and calls check with the assigned ID before
	// committing. A check error aborts the insert.
	CreateForm(ctx context.Context, cfg calendar.FormConfig, check func(calendar.FormConfig) error) (*Form, error)
	UpdateForm(ctx context.Context, cfg calendar.FormConfig) (*Form, error)
}
