package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/zulandar/capstone/internal/apperr"
	"github.com/zulandar/capstone/internal/models"
	"github.com/zulandar/capstone/internal/store"
)

// Service applies the schedule rules against a ScheduleStore with the same
// single-write discipline as task.Service.
type Service struct {
	Store store.ScheduleStore
	Loc   *time.Location
	Now   func() time.Time
}

// NewService returns a Service using the wall clock.
func NewService(st store.ScheduleStore, loc *time.Location) *Service {
	return &Service{Store: st, Loc: loc, Now: time.Now}
}

// Get retrieves a schedule. stage may be empty.
func (s *Service) Get(ctx context.Context, stage, id string) (*models.Schedule, error) {
	sch, err := s.Store.GetSchedule(ctx, stage, id)
	if err != nil {
		return nil, fmt.Errorf("schedule: get %s: %w", id, err)
	}
	return sch, nil
}

// List returns schedules matching the filter.
func (s *Service) List(ctx context.Context, f store.ScheduleFilter) ([]models.Schedule, error) {
	out, err := s.Store.ListSchedules(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("schedule: list: %w", err)
	}
	return out, nil
}

// SetVerdict records a verdict on a schedule.
func (s *Service) SetVerdict(ctx context.Context, stage, id, verdict string) (*models.Schedule, error) {
	return s.apply(ctx, stage, id, func(sch *models.Schedule) error {
		return SetVerdict(sch, verdict, s.now(), s.Loc)
	})
}

// EditSlot changes a schedule's date, time and panel.
func (s *Service) EditSlot(ctx context.Context, stage, id string, in SlotInput) (*models.Schedule, error) {
	return s.apply(ctx, stage, id, func(sch *models.Schedule) error {
		return EditSlot(sch, in, s.now(), s.Loc)
	})
}

// Delete removes a schedule. Deleting an original needs confirmed.
func (s *Service) Delete(ctx context.Context, id string, confirmed bool) error {
	sch, err := s.Store.GetSchedule(ctx, "", id)
	if err != nil {
		return fmt.Errorf("schedule: delete %s: %w", id, err)
	}
	if err := DeleteCheck(sch, confirmed); err != nil {
		return err
	}
	if err := s.Store.DeleteSchedule(ctx, id); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return fmt.Errorf("schedule: delete %s: %w", id, err)
		}
		return fmt.Errorf("schedule: delete %s: %w", id, &apperr.PersistenceError{Op: "delete schedule " + id, Err: err})
	}
	return nil
}

func (s *Service) apply(ctx context.Context, stage, id string, mutate func(*models.Schedule) error) (*models.Schedule, error) {
	cur, err := s.Store.GetSchedule(ctx, stage, id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, fmt.Errorf("schedule: %w", err)
		}
		return nil, fmt.Errorf("schedule: %w", &apperr.PersistenceError{Op: "get schedule " + id, Err: err})
	}

	next := *cur
	if err := mutate(&next); err != nil {
		return cur, err
	}
	if next == *cur {
		return cur, nil
	}

	if err := s.Store.PutSchedule(ctx, &next); err != nil {
		pe := &apperr.PersistenceError{Op: "put schedule " + id, Err: err}
		snap, gerr := s.Store.GetSchedule(ctx, stage, id)
		if gerr != nil {
			snap = cur
		}
		pe.Snapshot = snap
		return snap, fmt.Errorf("schedule: %w", pe)
	}
	return &next, nil
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}
