package form

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hackgods/appointment-calendar/internal/calendar"
)

// ── fakes ──

type fakeRepo struct {
	forms  map[int64]*Form
	nextID int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{forms: map[int64]*Form{}, nextID: 1}
}

func (r *fakeRepo) GetForm(_ context.Context, id int64) (*Form, error) {
	f, ok := r.forms[id]
	if !ok {
		return nil, ErrFormNotFound
	}
	cp := *f
	return &cp, nil
}

func (r *fakeRepo) ListActiveForms(_ context.Context) ([]Form, error) {
	var out []Form
	for id := int64(1); id < r.nextID; id++ {
		if f, ok := r.forms[id]; ok && f.Active {
			out = append(out, *f)
		}
	}
	return out, nil
}

func (r *fakeRepo) CreateForm(_ context.Context, cfg calendar.FormConfig, check func(calendar.FormConfig) error) (*Form, error) {
	cfg.ID = r.nextID
	if check != nil {
		if err := check(cfg); err != nil {
			return nil, err
		}
	}
	r.nextID++
	f := &Form{FormConfig: cfg, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	r.forms[cfg.ID] = f
	cp := *f
	return &cp, nil
}

func (r *fakeRepo) UpdateForm(_ context.Context, cfg calendar.FormConfig) (*Form, error) {
	f, ok := r.forms[cfg.ID]
	if !ok {
		return nil, ErrFormNotFound
	}
	f.FormConfig = cfg
	f.UpdatedAt = time.Now()
	cp := *f
	return &cp, nil
}

type savedCall struct {
	previous *calendar.FormSchedule
	next     calendar.FormSchedule
}

type fakeCalendar struct {
	saved   []savedCall
	resets  []calendar.FormSchedule
	err     error
	viewed  []int64
	viewErr error
}

func (c *fakeCalendar) FormSaved(_ context.Context, previous *calendar.FormSchedule, next calendar.FormSchedule) error {
	c.saved = append(c.saved, savedCall{previous: previous, next: next})
	return c.err
}

func (c *fakeCalendar) Reset(_ context.Context, schedule calendar.FormSchedule) error {
	c.resets = append(c.resets, schedule)
	return c.err
}

func (c *fakeCalendar) Calendar(_ context.Context, schedule calendar.FormSchedule, _ int) ([]calendar.Day, error) {
	c.viewed = append(c.viewed, schedule.FormID)
	if c.viewErr != nil {
		return nil, c.viewErr
	}
	return make([]calendar.Day, calendar.DaysInWeek), nil
}

func newFormConfig() calendar.FormConfig {
	return calendar.FormConfig{
		Title:                "Blood donation",
		TimeStart:            "09h00",
		TimeEnd:              "12h00",
		DurationAppointments: 30,
		PeoplePerAppointment: 2,
		WeeksToDisplay:       2,
		OpenMonday:           true,
		OpenWednesday:        true,
		Active:               true,
	}
}

func setupService() (*Service, *fakeRepo, *fakeCalendar) {
	repo := newFakeRepo()
	cal := &fakeCalendar{}
	return NewService(repo, cal, 1, zap.NewNop()), repo, cal
}

// ── tests ──

func TestCreate_GeneratesCalendar(t *testing.T) {
	svc, repo, cal := setupService()

	f, err := svc.Create(context.Background(), newFormConfig())
	require.NoError(t, err)

	assert.Equal(t, int64(1), f.ID)
	assert.Contains(t, repo.forms, f.ID)
	require.Len(t, cal.saved, 1)
	assert.Nil(t, cal.saved[0].previous)
	assert.Equal(t, f.ID, cal.saved[0].next.FormID)
	assert.Equal(t, 1, cal.saved[0].next.WeeksToPreCreate)
}

func TestCreate_InvalidConfigIsNotStored(t *testing.T) {
	svc, repo, cal := setupService()
	cfg := newFormConfig()
	cfg.TimeEnd = "noon"

	_, err := svc.Create(context.Background(), cfg)

	var cfgErr *calendar.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "TimeEnd", cfgErr.Field)
	assert.Empty(t, repo.forms)
	assert.Empty(t, cal.saved)
}

func TestCreate_InactiveFormSkipsGeneration(t *testing.T) {
	svc, _, cal := setupService()
	cfg := newFormConfig()
	cfg.Active = false

	_, err := svc.Create(context.Background(), cfg)
	require.NoError(t, err)
	assert.Empty(t, cal.saved)
}

func TestCreate_CalendarFailureKeepsForm(t *testing.T) {
	svc, repo, cal := setupService()
	cal.err = calendar.ErrGenerationInProgress

	f, err := svc.Create(context.Background(), newFormConfig())

	assert.ErrorIs(t, err, calendar.ErrGenerationInProgress)
	require.NotNil(t, f)
	assert.Contains(t, repo.forms, f.ID)
}

func TestUpdate_PassesPreviousSchedule(t *testing.T) {
	svc, _, cal := setupService()
	f, err := svc.Create(context.Background(), newFormConfig())
	require.NoError(t, err)

	cfg := f.FormConfig
	cfg.TimeEnd = "11h00"
	_, err = svc.Update(context.Background(), cfg)
	require.NoError(t, err)

	require.Len(t, cal.saved, 2)
	call := cal.saved[1]
	require.NotNil(t, call.previous)
	assert.Equal(t, calendar.TimeOfDay{Hour: 12}, call.previous.Closing)
	assert.Equal(t, calendar.TimeOfDay{Hour: 11}, call.next.Closing)
	assert.True(t, calendar.ScheduleChanged(*call.previous, call.next))
}

func TestUpdate_ReactivationResetsEditsMadeWhileInactive(t *testing.T) {
	svc, _, cal := setupService()
	f, err := svc.Create(context.Background(), newFormConfig())
	require.NoError(t, err)

	paused := f.FormConfig
	paused.Active = false
	paused.TimeEnd = "11h00"
	_, err = svc.Update(context.Background(), paused)
	require.NoError(t, err)
	assert.Len(t, cal.saved, 1, "inactive form is not synced")
	assert.Empty(t, cal.resets)

	resumed := paused
	resumed.Active = true
	_, err = svc.Update(context.Background(), resumed)
	require.NoError(t, err)

	require.Len(t, cal.resets, 1)
	assert.Equal(t, f.ID, cal.resets[0].FormID)
	assert.Equal(t, calendar.TimeOfDay{Hour: 11}, cal.resets[0].Closing)
	assert.Len(t, cal.saved, 1)
}

func TestUpdate_ReactivationPropagatesResetError(t *testing.T) {
	svc, _, cal := setupService()
	cfg := newFormConfig()
	cfg.Active = false
	f, err := svc.Create(context.Background(), cfg)
	require.NoError(t, err)

	cal.err = calendar.ErrGenerationInProgress
	resumed := f.FormConfig
	resumed.Active = true
	updated, err := svc.Update(context.Background(), resumed)

	assert.ErrorIs(t, err, calendar.ErrGenerationInProgress)
	require.NotNil(t, updated)
	assert.True(t, updated.Active)
}

func TestUpdate_Errors(t *testing.T) {
	svc, repo, cal := setupService()

	cfg := newFormConfig()
	cfg.ID = 99
	_, err := svc.Update(context.Background(), cfg)
	assert.ErrorIs(t, err, ErrFormNotFound)

	f, err := svc.Create(context.Background(), newFormConfig())
	require.NoError(t, err)

	bad := f.FormConfig
	bad.DurationAppointments = 0
	_, err = svc.Update(context.Background(), bad)
	var cfgErr *calendar.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, 30, repo.forms[f.ID].DurationAppointments, "stored form untouched")
	assert.Len(t, cal.saved, 1)
}

func TestUpdate_InvalidStoredConfigIsTreatedAsNew(t *testing.T) {
	svc, repo, cal := setupService()
	f, err := svc.Create(context.Background(), newFormConfig())
	require.NoError(t, err)
	repo.forms[f.ID].TimeStart = "garbage"

	_, err = svc.Update(context.Background(), f.FormConfig)
	require.NoError(t, err)

	require.Len(t, cal.saved, 2)
	assert.Nil(t, cal.saved[1].previous)
}

func TestCalendar(t *testing.T) {
	svc, repo, cal := setupService()
	f, err := svc.Create(context.Background(), newFormConfig())
	require.NoError(t, err)

	days, err := svc.Calendar(context.Background(), f.ID, 0)
	require.NoError(t, err)
	assert.Len(t, days, calendar.DaysInWeek)
	assert.Equal(t, []int64{f.ID}, cal.viewed)

	_, err = svc.Calendar(context.Background(), 404, 0)
	assert.ErrorIs(t, err, ErrFormNotFound)

	repo.forms[f.ID].Active = false
	_, err = svc.Calendar(context.Background(), f.ID, 0)
	assert.ErrorIs(t, err, ErrFormInactive)

	repo.forms[f.ID].Active = true
	cal.viewErr = errors.New("storage down")
	_, err = svc.Calendar(context.Background(), f.ID, 0)
	assert.EqualError(t, err, "storage down")
}
