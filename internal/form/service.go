package form

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/hackgods/appointment-calendar/internal/calendar"
)

// Calendar is the part of the calendar service the form back office drives.
type Calendar interface {
	FormSaved(ctx context.Context, previous *calendar.FormSchedule, next calendar.FormSchedule) error
	Reset(ctx context.Context, schedule calendar.FormSchedule) error
	Calendar(ctx context.Context, schedule calendar.FormSchedule, weekOffset int) ([]calendar.Day, error)
}

var ErrFormInactive = errors.New("form is not active")

type Service struct {
	repo             Repository
	calendar         Calendar
	weeksToPreCreate int
	logger           *zap.Logger
}

func NewService(repo Repository, cal Calendar, weeksToPreCreate int, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:             repo,
		calendar:         cal,
		weeksToPreCreate: weeksToPreCreate,
		logger:           logger,
	}
}

// Schedule derives the calendar schedule of a stored form.
func (s *Service) Schedule(f Form) (calendar.FormSchedule, error) {
	return calendar.ParseSchedule(f.FormConfig, s.weeksToPreCreate)
}

// Create stores a new form and generates its upcoming weeks. An invalid
// configuration is rejected before anything is committed.
func (s *Service) Create(ctx context.Context, cfg calendar.FormConfig) (*Form, error) {
	var schedule calendar.FormSchedule

	created, err := s.repo.CreateForm(ctx, cfg, func(stored calendar.FormConfig) error {
		var err error
		schedule, err = calendar.ParseSchedule(stored, s.weeksToPreCreate)
		return err
	})
	if err != nil {
		return nil, err
	}

	if created.Active {
		if err := s.calendar.FormSaved(ctx, nil, schedule); err != nil {
			return created, fmt.Errorf("generate calendar for form %d: %w", created.ID, err)
		}
	}

	s.logger.Info("form created", zap.Int64("form_id", created.ID), zap.String("title", created.Title))
	return created, nil
}

// Update stores cfg and brings the calendar in line with it. A change of the
// weekly schedule resets the upcoming weeks. So does reactivating a form:
// edits made while it was inactive never reached the calendar.
func (s *Service) Update(ctx context.Context, cfg calendar.FormConfig) (*Form, error) {
	next, err := calendar.ParseSchedule(cfg, s.weeksToPreCreate)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.GetForm(ctx, cfg.ID)
	if err != nil {
		return nil, err
	}

	var previous *calendar.FormSchedule
	if prev, err := s.Schedule(*existing); err == nil {
		previous = &prev
	} else {
		s.logger.Warn("stored form configuration is invalid, treating update as new",
			zap.Int64("form_id", existing.ID), zap.Error(err))
	}

	updated, err := s.repo.UpdateForm(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if !updated.Active {
		return updated, nil
	}

	if !existing.Active {
		s.logger.Info("form reactivated, resetting upcoming weeks", zap.Int64("form_id", updated.ID))
		err = s.calendar.Reset(ctx, next)
	} else {
		err = s.calendar.FormSaved(ctx, previous, next)
	}
	if err != nil {
		return updated, fmt.Errorf("sync calendar for form %d: %w", updated.ID, err)
	}

	return updated, nil
}

// Calendar returns the user facing view of one week of an active form.
func (s *Service) Calendar(ctx context.Context, formID int64, weekOffset int) ([]calendar.Day, error) {
	f, err := s.repo.GetForm(ctx, formID)
	if err != nil {
		return nil, err
	}
	if !f.Active {
		return nil, ErrFormInactive
	}

	schedule, err := s.Schedule(*f)
	if err != nil {
		return nil, err
	}

	return s.calendar.Calendar(ctx, schedule, weekOffset)
}
