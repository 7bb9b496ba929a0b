package calendar

// Interval is a half-open [Start, End) range within a day.
type Interval struct {
	Start TimeOfDay
	End   TimeOfDay
}

// Partition splits [opening, closing) into consecutive intervals of
// durationMinutes. A trailing remainder shorter than one duration is dropped,
// and an empty or inverted window yields no intervals.
func Partition(opening, closing TimeOfDay, durationMinutes int) []Interval {
	total := closing.Minutes() - opening.Minutes()
	if total <= 0 || durationMinutes <= 0 {
		return []Interval{}
	}

	count := total / durationMinutes
	intervals := make([]Interval, 0, count)

	start := opening.Minutes()
	for i := 0; i < count; i++ {
		end := start + durationMinutes
		intervals = append(intervals, Interval{
			Start: timeOfDayFromMinutes(start),
			End:   timeOfDayFromMinutes(end),
		})
		start = end
	}

	return intervals
}

// AppointmentTimes lists the start time of every appointment of a day,
// formatted as HHhMM. The closing time itself is never listed.
func AppointmentTimes(durationMinutes int, opening, closing TimeOfDay) []string {
	intervals := Partition(opening, closing, durationMinutes)
	times := make([]string, 0, len(intervals))
	for _, iv := range intervals {
		times = append(times, iv.Start.String())
	}
	return times
}
