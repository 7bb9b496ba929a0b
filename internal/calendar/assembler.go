package calendar

import "time"

// NewDayFor builds an unpersisted day of schedule for date. Slots are not
// attached.
func NewDayFor(schedule FormSchedule, date time.Time) Day {
	return Day{
		FormID:               schedule.FormID,
		Date:                 DateOnly(date),
		Open:                 schedule.IsOpen(DayOfWeekIndex(date)),
		Opening:              schedule.Opening,
		Closing:              schedule.Closing,
		DurationMinutes:      schedule.DurationMinutes,
		PeoplePerAppointment: schedule.PeoplePerAppointment,
	}
}

// SlotsFor computes the slots of day from its own snapshot. A closed day
// has none.
func SlotsFor(day Day) []Slot {
	if !day.Open {
		return []Slot{}
	}

	weekday := DayOfWeekIndex(day.Date)
	intervals := Partition(day.Opening, day.Closing, day.DurationMinutes)
	slots := make([]Slot, 0, len(intervals))
	for _, iv := range intervals {
		slots = append(slots, Slot{
			DayID:      day.ID,
			FormID:     day.FormID,
			DayOfWeek:  weekday,
			Start:      iv.Start,
			End:        iv.End,
			Capacity:   day.PeoplePerAppointment,
			Enabled:    day.Open,
			FreePlaces: day.PeoplePerAppointment,
		})
	}
	return slots
}
