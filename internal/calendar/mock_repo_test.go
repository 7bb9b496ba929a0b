package calendar

import (
	"context"
	"errors"
	"sort"
	"time"

	redisclient "github.com/hackgods/appointment-calendar/internal/redis"
)

var errStorageDown = errors.New("storage down")

// ── Mock Repository ──

type mockRepo struct {
	days   map[int64]Day
	slots  map[int64]Slot
	nextID int64

	// failures injected by tests
	failCreateSlotAt int // fail the n-th CreateSlot call (1-based), 0 disables
	failFind         error
	createSlotCalls  int
	txCount          int
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		days:  make(map[int64]Day),
		slots: make(map[int64]Slot),
	}
}

func (m *mockRepo) FindDaysInRange(_ context.Context, formID int64, dateMin, dateMax time.Time) ([]Day, error) {
	if m.failFind != nil {
		return nil, m.failFind
	}
	lo := DateIn(dateMin, time.UTC)
	hi := DateIn(dateMax, time.UTC)

	var result []Day
	for _, d := range m.days {
		date := DateIn(d.Date, time.UTC)
		if d.FormID != formID || date.Before(lo) || date.After(hi) {
			continue
		}
		d.Date = date
		d.Slots = nil
		result = append(result, d)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date.Before(result[j].Date) })
	return result, nil
}

func (m *mockRepo) CreateDay(_ context.Context, day *Day) error {
	m.nextID++
	day.ID = m.nextID
	stored := *day
	stored.Slots = nil
	m.days[day.ID] = stored
	return nil
}

func (m *mockRepo) DeleteDay(_ context.Context, dayID int64) error {
	if _, ok := m.days[dayID]; !ok {
		return ErrDayNotFound
	}
	delete(m.days, dayID)
	for id, s := range m.slots {
		if s.DayID == dayID {
			delete(m.slots, id)
		}
	}
	return nil
}

func (m *mockRepo) FindSlotsByDay(_ context.Context, dayID int64) ([]Slot, error) {
	return m.filterSlots(func(s Slot) bool { return s.DayID == dayID }), nil
}

func (m *mockRepo) FindSlotsByFormAndWeekday(_ context.Context, formID int64, weekday int) ([]Slot, error) {
	return m.filterSlots(func(s Slot) bool { return s.FormID == formID && s.DayOfWeek == weekday }), nil
}

func (m *mockRepo) FindSlotsByDayWithRemainingCapacity(_ context.Context, dayID int64) ([]Slot, error) {
	return m.filterSlots(func(s Slot) bool { return s.DayID == dayID && s.Enabled }), nil
}

func (m *mockRepo) CreateSlot(_ context.Context, slot *Slot) error {
	m.createSlotCalls++
	if m.failCreateSlotAt > 0 && m.createSlotCalls == m.failCreateSlotAt {
		return errStorageDown
	}
	m.nextID++
	slot.ID = m.nextID
	m.slots[slot.ID] = *slot
	return nil
}

// WithinTx snapshots the maps and restores them when fn fails.
func (m *mockRepo) WithinTx(_ context.Context, fn func(repo Repository) error) error {
	m.txCount++

	days := make(map[int64]Day, len(m.days))
	for k, v := range m.days {
		days[k] = v
	}
	slots := make(map[int64]Slot, len(m.slots))
	for k, v := range m.slots {
		slots[k] = v
	}

	if err := fn(m); err != nil {
		m.days = days
		m.slots = slots
		return err
	}
	return nil
}

func (m *mockRepo) filterSlots(keep func(Slot) bool) []Slot {
	result := []Slot{}
	for _, s := range m.slots {
		if keep(s) {
			result = append(result, s)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].DayID != result[j].DayID {
			return result[i].DayID < result[j].DayID
		}
		return result[i].Start.Minutes() < result[j].Start.Minutes()
	})
	return result
}

func (m *mockRepo) daysOfForm(formID int64) []Day {
	var result []Day
	for _, d := range m.days {
		if d.FormID == formID {
			result = append(result, d)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date.Before(result[j].Date) })
	return result
}

func (m *mockRepo) slotsOfDay(dayID int64) []Slot {
	return m.filterSlots(func(s Slot) bool { return s.DayID == dayID })
}

// ── Mock Locker ──

type mockLocker struct {
	held  map[int64]bool
	calls int
	err   error
}

func newMockLocker() *mockLocker {
	return &mockLocker{held: make(map[int64]bool)}
}

func (l *mockLocker) WithFormLock(ctx context.Context, formID int64, fn func(ctx context.Context) error) error {
	l.calls++
	if l.err != nil {
		return l.err
	}
	if l.held[formID] {
		return redisclient.ErrLockNotAcquired
	}
	l.held[formID] = true
	defer delete(l.held, formID)
	return fn(ctx)
}

// ── Fixtures ──

// wednesday is 2026-10-14 10:00 UTC.
var wednesday = time.Date(2026, time.October, 14, 10, 0, 0, 0, time.UTC)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func testSchedule() FormSchedule {
	return FormSchedule{
		FormID:               42,
		OpenDays:             [DaysInWeek]bool{true, true, true, true, true, false, false},
		Opening:              TimeOfDay{Hour: 9},
		Closing:              TimeOfDay{Hour: 12, Minute: 30},
		DurationMinutes:      30,
		PeoplePerAppointment: 2,
		WeeksToDisplay:       2,
		WeeksToPreCreate:     1,
	}
}
