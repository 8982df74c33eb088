// Package store is the document-store collaborator behind the lifecycle
// engine. Writes are single-record upserts keyed by id; the last write wins.
package store

import (
	"context"

	"github.com/zulandar/capstone/internal/models"
)

// TaskFilter narrows ListTasks. Zero-valued fields do not filter.
type TaskFilter struct {
	TeamIDs         []string
	CollectionKind  string
	TaskManager     string
	Statuses        []string
	ExcludeStatuses []string
	DueFrom         string // inclusive YYYY-MM-DD
	DueTo           string // inclusive YYYY-MM-DD
	DueBeforeMs     *int64 // due_at_ms strictly before
}

// ScheduleFilter narrows ListSchedules. Zero-valued fields do not filter.
type ScheduleFilter struct {
	TeamIDs   []string
	Stage     string
	Verdict   string
	DateFrom  string
	DateTo    string
	ReAttempt *bool
}

// TeamFilter narrows ListTeams.
type TeamFilter struct {
	IDs            []string
	Adviser        string
	ProjectManager string
	ActiveOnly     bool
}

// TaskStore reads and writes tasks.
type TaskStore interface {
	GetTask(ctx context.Context, kind, id string) (*models.Task, error)
	ListTasks(ctx context.Context, f TaskFilter) ([]models.Task, error)
	PutTask(ctx context.Context, t *models.Task) error
	DeleteTask(ctx context.Context, id string) error
}

// ScheduleStore reads and writes schedules.
type ScheduleStore interface {
	// GetSchedule looks a schedule up by id; a non-empty stage must also match.
	GetSchedule(ctx context.Context, stage, id string) (*models.Schedule, error)
	ListSchedules(ctx context.Context, f ScheduleFilter) ([]models.Schedule, error)
	PutSchedule(ctx context.Context, s *models.Schedule) error
	DeleteSchedule(ctx context.Context, id string) error
}

// TeamStore lists teams, used only to scope queries.
type TeamStore interface {
	ListTeams(ctx context.Context, f TeamFilter) ([]models.Team, error)
}
