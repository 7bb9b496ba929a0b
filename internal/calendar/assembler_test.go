package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDayFor_SnapshotsSchedule(t *testing.T) {
	schedule := testSchedule()
	date := time.Date(2026, time.October, 13, 15, 30, 0, 0, time.UTC) // Tuesday

	day := NewDayFor(schedule, date)

	assert.False(t, day.Persisted())
	assert.Equal(t, schedule.FormID, day.FormID)
	assert.Equal(t, time.Date(2026, time.October, 13, 0, 0, 0, 0, time.UTC), day.Date)
	assert.True(t, day.Open)
	assert.Equal(t, schedule.Opening, day.Opening)
	assert.Equal(t, schedule.Closing, day.Closing)
	assert.Equal(t, schedule.DurationMinutes, day.DurationMinutes)
	assert.Equal(t, schedule.PeoplePerAppointment, day.PeoplePerAppointment)
	assert.Empty(t, day.Slots)
}

func TestNewDayFor_OpenFlagFollowsWeekday(t *testing.T) {
	schedule := testSchedule()
	schedule.OpenDays = [DaysInWeek]bool{true, false, true, false, true, false, true}
	monday := time.Date(2026, time.October, 12, 0, 0, 0, 0, time.UTC)

	for i := 0; i < DaysInWeek; i++ {
		day := NewDayFor(schedule, monday.AddDate(0, 0, i))
		assert.Equal(t, schedule.OpenDays[i], day.Open, day.Date.Weekday().String())
	}
}

func TestSlotsFor_ClosedDayHasNoSlots(t *testing.T) {
	schedule := testSchedule()
	saturday := time.Date(2026, time.October, 17, 0, 0, 0, 0, time.UTC)

	for _, duration := range []int{5, 30, 60} {
		schedule.DurationMinutes = duration
		day := NewDayFor(schedule, saturday)

		require.False(t, day.Open)
		assert.Empty(t, SlotsFor(day))
	}
}

func TestSlotsFor_UsesDaySnapshot(t *testing.T) {
	day := Day{
		ID:                   9,
		FormID:               42,
		Date:                 time.Date(2026, time.October, 16, 0, 0, 0, 0, time.UTC), // Friday
		Open:                 true,
		Opening:              TimeOfDay{Hour: 14},
		Closing:              TimeOfDay{Hour: 16},
		DurationMinutes:      40,
		PeoplePerAppointment: 3,
	}

	slots := SlotsFor(day)

	require.Len(t, slots, 3)
	for _, s := range slots {
		assert.Equal(t, int64(9), s.DayID)
		assert.Equal(t, int64(42), s.FormID)
		assert.Equal(t, 5, s.DayOfWeek)
		assert.Equal(t, 3, s.Capacity)
		assert.Equal(t, 3, s.FreePlaces)
		assert.True(t, s.Enabled)
	}
	assert.Equal(t, TimeOfDay{Hour: 15, Minute: 20}, slots[2].Start)
	assert.Equal(t, TimeOfDay{Hour: 16}, slots[2].End)
}
