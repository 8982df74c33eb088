package task

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/zulandar/capstone/internal/apperr"
	"github.com/zulandar/capstone/internal/clock"
	"github.com/zulandar/capstone/internal/models"
	"github.com/zulandar/capstone/internal/store"
)

// CreateOpts holds parameters for creating a new task.
type CreateOpts struct {
	TeamID         string
	CollectionKind string // title, oral, final, final-redefense
	TaskManager    string // Adviser or ProjectManager
	Title          string
	Assignee       string
	DueDate        string // optional, YYYY-MM-DD
	DueTime        string // optional, HH:MM
}

// Service applies the task rules against a TaskStore. Each mutation is a
// read, a local update, and one whole-record write; if the write fails the
// authoritative record is re-read and returned in the *apperr.PersistenceError.
type Service struct {
	Store store.TaskStore
	Loc   *time.Location
	Now   func() time.Time
}

// NewService returns a Service using the wall clock.
func NewService(st store.TaskStore, loc *time.Location) *Service {
	return &Service{Store: st, Loc: loc, Now: time.Now}
}

// GenerateID creates a task ID in task-xxxxx format (5-char hex).
func GenerateID() (string, error) {
	b := make([]byte, 3)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("task: generate ID: %w", err)
	}
	return "task-" + hex.EncodeToString(b)[:5], nil
}

// Create adds a new ToDo task.
func (s *Service) Create(ctx context.Context, opts CreateOpts) (*models.Task, error) {
	if opts.TeamID == "" {
		return nil, apperr.Validation("team_id", "is required")
	}
	if opts.Title == "" {
		return nil, apperr.Validation("title", "is required")
	}
	if !models.IsKind(opts.CollectionKind) {
		return nil, apperr.Validation("collection_kind", "unknown kind %q", opts.CollectionKind)
	}
	if opts.TaskManager != models.ManagerAdviser && opts.TaskManager != models.ManagerProjectManager {
		return nil, apperr.Validation("task_manager", "must be %s or %s", models.ManagerAdviser, models.ManagerProjectManager)
	}

	t := models.Task{
		TeamID:         opts.TeamID,
		CollectionKind: opts.CollectionKind,
		TaskManager:    opts.TaskManager,
		Title:          opts.Title,
		Assignee:       opts.Assignee,
		Status:         models.TaskToDo,
	}
	if err := s.initialDue(&t, opts.DueDate, opts.DueTime); err != nil {
		return nil, err
	}

	id, err := s.generateUniqueID(ctx)
	if err != nil {
		return nil, err
	}
	t.ID = id

	if err := s.Store.PutTask(ctx, &t); err != nil {
		return nil, fmt.Errorf("task: create: %w", &apperr.PersistenceError{Op: "put task " + id, Err: err})
	}
	return &t, nil
}

// Get retrieves a task. kind may be empty.
func (s *Service) Get(ctx context.Context, kind, id string) (*models.Task, error) {
	t, err := s.Store.GetTask(ctx, kind, id)
	if err != nil {
		return nil, fmt.Errorf("task: get %s: %w", id, err)
	}
	return t, nil
}

// List returns tasks matching the filter.
func (s *Service) List(ctx context.Context, f store.TaskFilter) ([]models.Task, error) {
	tasks, err := s.Store.ListTasks(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("task: list: %w", err)
	}
	return tasks, nil
}

// SetStatus applies a direct status update chosen by the task's manager.
func (s *Service) SetStatus(ctx context.Context, kind, id, status string) (*models.Task, error) {
	return s.apply(ctx, kind, id, func(t *models.Task) error {
		if status != t.Status && !isSelectable(t.TaskManager, status) {
			return apperr.Validation("status", "%s is not selectable for %s tasks", status, t.TaskManager)
		}
		return SetStatus(t, status, s.now())
	})
}

// EditDueDateTime moves a task's deadline. It reports whether a revision was recorded.
func (s *Service) EditDueDateTime(ctx context.Context, kind, id, date, clockTime string) (*models.Task, bool, error) {
	var revised bool
	t, err := s.apply(ctx, kind, id, func(t *models.Task) error {
		var err error
		revised, err = EditDueDateTime(t, date, clockTime, s.now(), s.Loc)
		return err
	})
	return t, revised, err
}

// Delete removes a task. Only explicit user action deletes tasks.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.Store.DeleteTask(ctx, id); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return fmt.Errorf("task: delete %s: %w", id, err)
		}
		return fmt.Errorf("task: delete %s: %w", id, &apperr.PersistenceError{Op: "delete task " + id, Err: err})
	}
	return nil
}

// apply reads a task, mutates a copy and writes it back. On a rule error the
// stored task is returned untouched. On a write error the record is re-read
// so the caller can discard its optimistic copy.
func (s *Service) apply(ctx context.Context, kind, id string, mutate func(*models.Task) error) (*models.Task, error) {
	cur, err := s.Store.GetTask(ctx, kind, id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, fmt.Errorf("task: %w", err)
		}
		return nil, fmt.Errorf("task: %w", &apperr.PersistenceError{Op: "get task " + id, Err: err})
	}

	next := *cur
	if err := mutate(&next); err != nil {
		return cur, fmt.Errorf("task: %s: %w", id, err)
	}
	if next == *cur {
		return cur, nil
	}

	if err := s.Store.PutTask(ctx, &next); err != nil {
		pe := &apperr.PersistenceError{Op: "put task " + id, Err: err}
		snap, gerr := s.Store.GetTask(ctx, kind, id)
		if gerr != nil {
			snap = cur
		}
		pe.Snapshot = snap
		return snap, fmt.Errorf("task: %w", pe)
	}
	return &next, nil
}

// initialDue sets whatever part of the deadline was given at creation.
// DueAtMs stays nil until both parts exist.
func (s *Service) initialDue(t *models.Task, date, clockTime string) error {
	if date != "" && clockTime != "" {
		_, err := EditDueDateTime(t, date, clockTime, s.now(), s.Loc)
		return err
	}
	if date != "" {
		if _, err := clock.ParseDate(date, s.Loc); err != nil {
			return apperr.Validation("due_date", "must be YYYY-MM-DD")
		}
		if today := clock.Today(s.now(), s.Loc); date < today {
			return apperr.Validation("due_date", "must not be before %s", today)
		}
		t.DueDate = date
	}
	if clockTime != "" {
		norm, err := clock.NormalizeClock(clockTime)
		if err != nil {
			return apperr.Validation("due_time", "must be HH:MM")
		}
		t.DueTime = norm
	}
	return nil
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func isSelectable(manager, status string) bool {
	return slices.Contains(SelectableStatuses(manager), status)
}

// generateUniqueID generates an ID and retries once on collision.
func (s *Service) generateUniqueID(ctx context.Context) (string, error) {
	for range 2 {
		id, err := GenerateID()
		if err != nil {
			return "", err
		}
		_, err = s.Store.GetTask(ctx, "", id)
		if errors.Is(err, apperr.ErrNotFound) {
			return id, nil
		}
		if err != nil {
			return "", fmt.Errorf("task: check ID uniqueness: %w", err)
		}
	}
	return "", fmt.Errorf("task: failed to generate unique ID after retries")
}

// dueLabel renders the deadline for display.
func dueLabel(t *models.Task) string {
	switch {
	case t.DueDate == "":
		return "no deadline"
	case t.DueTime == "":
		return t.DueDate
	}
	return t.DueDate + " " + t.DueTime
}

// Describe renders a one-line summary of a task.
func Describe(t *models.Task) string {
	return fmt.Sprintf("%s [%s] %s (due %s, %s)", t.ID, t.Status, t.Title, dueLabel(t), RevisionLabel(t))
}
