package form

import (
	"time"

	"github.com/hackgods/appointment-calendar/internal/calendar"
)

// Form is a stored booking form. Its weekly configuration drives calendar
// generation.
type Form struct {
	calendar.FormConfig
	CreatedAt time.Time
	UpdatedAt time.Time
}
