package calendar

import (
	"fmt"
	"time"
)

const minutesInHour = 60

// TimeOfDay is a wall clock hour and minute, without a date.
type TimeOfDay struct {
	Hour   int
	Minute int
}

func (t TimeOfDay) Minutes() int {
	return t.Hour*minutesInHour + t.Minute
}

// String formats the time as HHhMM, e.g. 09h30.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02dh%02d", t.Hour, t.Minute)
}

func timeOfDayFromMinutes(total int) TimeOfDay {
	return TimeOfDay{Hour: total / minutesInHour, Minute: total % minutesInHour}
}

// FormSchedule is the parsed, immutable weekly configuration of a form.
// Build it with ParseSchedule.
type FormSchedule struct {
	FormID               int64
	OpenDays             [DaysInWeek]bool // Monday first
	Opening              TimeOfDay
	Closing              TimeOfDay
	DurationMinutes      int
	PeoplePerAppointment int
	WeeksToDisplay       int
	WeeksToPreCreate     int // deployment wide, not per form
}

// IsOpen reports whether the form is open on the given weekday (1=Monday..7=Sunday).
func (s FormSchedule) IsOpen(weekday int) bool {
	if weekday < 1 || weekday > DaysInWeek {
		return false
	}
	return s.OpenDays[weekday-1]
}

// WindowWeeks is the number of weeks, starting with the current one, kept
// materialized in storage.
func (s FormSchedule) WindowWeeks() int {
	return s.WeeksToDisplay + s.WeeksToPreCreate
}

// Day is one calendar date of a form. Opening, closing, duration and
// capacity are copied from the schedule when the day is created and never
// follow later configuration changes.
type Day struct {
	ID                   int64 // 0 until persisted
	FormID               int64
	Date                 time.Time
	Open                 bool
	Opening              TimeOfDay
	Closing              TimeOfDay
	DurationMinutes      int
	PeoplePerAppointment int
	Slots                []Slot
}

func (d Day) Persisted() bool {
	return d.ID != 0
}

// Slot is one bookable interval of a Day.
type Slot struct {
	ID         int64
	DayID      int64
	FormID     int64
	DayOfWeek  int
	Start      TimeOfDay
	End        TimeOfDay
	Capacity   int
	Enabled    bool
	FreePlaces int // maintained by bookings, read only here
}
