package calendar

import "time"

// DaysInWeek is the length of a calendar week.
const DaysInWeek = 7

// DateOnly truncates t to midnight in its own location.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// DateIn returns midnight of t's calendar date in loc. Storage hands dates
// back at UTC midnight; this keeps the calendar date and swaps the zone.
func DateIn(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// SameDate reports whether a and b fall on the same calendar date, each read
// in its own location.
func SameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// DayOfWeekIndex returns 1 for Monday through 7 for Sunday.
func DayOfWeekIndex(date time.Time) int {
	wd := int(date.Weekday())
	if wd == 0 {
		return DaysInWeek
	}
	return wd
}

// MondayOf returns the Monday, at midnight, of the week weekOffset weeks
// after the week containing reference. Negative offsets go back in time.
func MondayOf(reference time.Time, weekOffset int) time.Time {
	today := DateOnly(reference)
	return today.AddDate(0, 0, 1-DayOfWeekIndex(today)+DaysInWeek*weekOffset)
}

// WeekBounds returns the Monday and the Sunday of the addressed week.
func WeekBounds(reference time.Time, weekOffset int) (time.Time, time.Time) {
	monday := MondayOf(reference, weekOffset)
	return monday, monday.AddDate(0, 0, DaysInWeek-1)
}
