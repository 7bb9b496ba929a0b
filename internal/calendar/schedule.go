package calendar

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

var ErrInvalidTime = errors.New("invalid time of day")

var validate = validator.New()

// FormConfig is a form's raw weekly configuration as stored by the form
// back office. Times use the HHhMM notation, e.g. "09h00".
type FormConfig struct {
	ID                   int64  `validate:"gt=0"`
	Title                string `validate:"required"`
	TimeStart            string `validate:"required"`
	TimeEnd              string `validate:"required"`
	DurationAppointments int    `validate:"gt=0"`
	PeoplePerAppointment int    `validate:"gte=1"`
	WeeksToDisplay       int    `validate:"gte=0"`
	OpenMonday           bool
	OpenTuesday          bool
	OpenWednesday        bool
	OpenThursday         bool
	OpenFriday           bool
	OpenSaturday         bool
	OpenSunday           bool
	Active               bool
}

// ConfigError reports a form configuration that cannot be turned into a
// schedule.
type ConfigError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("form configuration: %s %s", e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// ParseTimeOfDay parses HHhMM ("9h00" and "09h05" are accepted). 24h00 is
// allowed as a closing time.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parts := strings.Split(strings.TrimSpace(s), "h")
	if len(parts) != 2 {
		return TimeOfDay{}, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("%w: %q: hour is not a number", ErrInvalidTime, s)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("%w: %q: minute is not a number", ErrInvalidTime, s)
	}

	if hour < 0 || hour > 24 || minute < 0 || minute >= minutesInHour || (hour == 24 && minute != 0) {
		return TimeOfDay{}, fmt.Errorf("%w: %q: out of range", ErrInvalidTime, s)
	}

	return TimeOfDay{Hour: hour, Minute: minute}, nil
}

// ParseSchedule validates cfg and derives the schedule used by the
// reconciler. cfg is left untouched.
func ParseSchedule(cfg FormConfig, weeksToPreCreate int) (FormSchedule, error) {
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			reason := "failed " + fe.Tag()
			if fe.Param() != "" {
				reason += "=" + fe.Param()
			}
			return FormSchedule{}, &ConfigError{Field: fe.Field(), Reason: reason, Err: err}
		}
		return FormSchedule{}, &ConfigError{Field: "form", Reason: "is invalid", Err: err}
	}

	if weeksToPreCreate < 0 {
		return FormSchedule{}, &ConfigError{Field: "WeeksToPreCreate", Reason: "must not be negative"}
	}

	opening, err := ParseTimeOfDay(cfg.TimeStart)
	if err != nil {
		return FormSchedule{}, &ConfigError{Field: "TimeStart", Reason: "is not a valid HHhMM time", Err: err}
	}
	closing, err := ParseTimeOfDay(cfg.TimeEnd)
	if err != nil {
		return FormSchedule{}, &ConfigError{Field: "TimeEnd", Reason: "is not a valid HHhMM time", Err: err}
	}
	if closing.Minutes() <= opening.Minutes() {
		return FormSchedule{}, &ConfigError{Field: "TimeEnd", Reason: "must be after TimeStart"}
	}

	return FormSchedule{
		FormID: cfg.ID,
		OpenDays: [DaysInWeek]bool{
			cfg.OpenMonday, cfg.OpenTuesday, cfg.OpenWednesday, cfg.OpenThursday,
			cfg.OpenFriday, cfg.OpenSaturday, cfg.OpenSunday,
		},
		Opening:              opening,
		Closing:              closing,
		DurationMinutes:      cfg.DurationAppointments,
		PeoplePerAppointment: cfg.PeoplePerAppointment,
		WeeksToDisplay:       cfg.WeeksToDisplay,
		WeeksToPreCreate:     weeksToPreCreate,
	}, nil
}

// ScheduleChanged reports whether any field snapshotted into generated days
// differs between prev and next. Such a change requires a reset of the
// upcoming weeks; other changes only need the window to be ensured.
func ScheduleChanged(prev, next FormSchedule) bool {
	return prev.OpenDays != next.OpenDays ||
		prev.Opening != next.Opening ||
		prev.Closing != next.Closing ||
		prev.DurationMinutes != next.DurationMinutes ||
		prev.PeoplePerAppointment != next.PeoplePerAppointment
}
