package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/zulandar/capstone/internal/apperr"
	"github.com/zulandar/capstone/internal/events"
	"github.com/zulandar/capstone/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore implements TaskStore, ScheduleStore and TeamStore over gorm.
// Every successful write is published on Bus, if one is set.
type GormStore struct {
	DB  *gorm.DB
	Bus *events.Bus
}

// New returns a GormStore.
func New(db *gorm.DB, bus *events.Bus) *GormStore {
	return &GormStore{DB: db, Bus: bus}
}

// GetTask retrieves a task by id, optionally checking its collection kind.
func (s *GormStore) GetTask(ctx context.Context, kind, id string) (*models.Task, error) {
	q := s.DB.WithContext(ctx).Where("id = ?", id)
	if kind != "" {
		q = q.Where("collection_kind = ?", kind)
	}
	var t models.Task
	if err := q.First(&t).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("store: task %s: %w", id, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("store: get task %s: %w", id, err)
	}
	return &t, nil
}

// ListTasks returns tasks matching f, ordered by due date then creation time.
func (s *GormStore) ListTasks(ctx context.Context, f TaskFilter) ([]models.Task, error) {
	q := s.DB.WithContext(ctx).Model(&models.Task{})

	if len(f.TeamIDs) > 0 {
		q = q.Where("team_id IN ?", f.TeamIDs)
	}
	if f.CollectionKind != "" {
		q = q.Where("collection_kind = ?", f.CollectionKind)
	}
	if f.TaskManager != "" {
		q = q.Where("task_manager = ?", f.TaskManager)
	}
	if len(f.Statuses) > 0 {
		q = q.Where("status IN ?", f.Statuses)
	}
	if len(f.ExcludeStatuses) > 0 {
		q = q.Where("status NOT IN ?", f.ExcludeStatuses)
	}
	if f.DueFrom != "" {
		q = q.Where("due_date >= ?", f.DueFrom)
	}
	if f.DueTo != "" {
		q = q.Where("due_date <> '' AND due_date <= ?", f.DueTo)
	}
	if f.DueBeforeMs != nil {
		q = q.Where("due_at_ms IS NOT NULL AND due_at_ms < ?", *f.DueBeforeMs)
	}

	var tasks []models.Task
	if err := q.Order("due_date ASC, due_time ASC, created_at ASC").Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("store: list tasks: %w", err)
	}
	return tasks, nil
}

// PutTask upserts the whole task.
func (s *GormStore) PutTask(ctx context.Context, t *models.Task) error {
	if t.ID == "" {
		return fmt.Errorf("store: put task: id is required")
	}
	if err := s.DB.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(t).Error; err != nil {
		return fmt.Errorf("store: put task %s: %w", t.ID, err)
	}
	s.Bus.Publish(events.Change{Topic: events.TopicTask, Action: events.ActionPut, ID: t.ID, TeamID: t.TeamID})
	return nil
}

// SetTaskStatus writes only the status column of a task, leaving concurrent
// edits to other fields in place. A task already Completed or Missed is not
// overwritten; changed reports whether the row was updated.
func (s *GormStore) SetTaskStatus(ctx context.Context, id, status string) (bool, error) {
	var t models.Task
	if err := s.DB.WithContext(ctx).Select("id", "team_id").Where("id = ?", id).First(&t).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, fmt.Errorf("store: task %s: %w", id, apperr.ErrNotFound)
		}
		return false, fmt.Errorf("store: get task %s: %w", id, err)
	}
	res := s.DB.WithContext(ctx).Model(&models.Task{}).
		Where("id = ? AND status NOT IN ?", id, []string{models.TaskCompleted, models.TaskMissed}).
		Update("status", status)
	if res.Error != nil {
		return false, fmt.Errorf("store: set task %s status: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	s.Bus.Publish(events.Change{Topic: events.TopicTask, Action: events.ActionPut, ID: id, TeamID: t.TeamID})
	return true, nil
}

// DeleteTask removes a task. Deleting a missing task reports ErrNotFound.
func (s *GormStore) DeleteTask(ctx context.Context, id string) error {
	var t models.Task
	if err := s.DB.WithContext(ctx).Where("id = ?", id).First(&t).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("store: task %s: %w", id, apperr.ErrNotFound)
		}
		return fmt.Errorf("store: get task %s for delete: %w", id, err)
	}
	if err := s.DB.WithContext(ctx).Where("id = ?", id).Delete(&models.Task{}).Error; err != nil {
		return fmt.Errorf("store: delete task %s: %w", id, err)
	}
	s.Bus.Publish(events.Change{Topic: events.TopicTask, Action: events.ActionDelete, ID: id, TeamID: t.TeamID})
	return nil
}

// GetSchedule retrieves a schedule by id.
func (s *GormStore) GetSchedule(ctx context.Context, stage, id string) (*models.Schedule, error) {
	q := s.DB.WithContext(ctx).Where("id = ?", id)
	if stage != "" {
		q = q.Where("stage = ?", stage)
	}
	var sch models.Schedule
	if err := q.First(&sch).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("store: schedule %s: %w", id, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("store: get schedule %s: %w", id, err)
	}
	return &sch, nil
}

// ListSchedules returns schedules matching f, ordered by date then creation time.
func (s *GormStore) ListSchedules(ctx context.Context, f ScheduleFilter) ([]models.Schedule, error) {
	q := s.DB.WithContext(ctx).Model(&models.Schedule{})

	if len(f.TeamIDs) > 0 {
		q = q.Where("team_id IN ?", f.TeamIDs)
	}
	if f.Stage != "" {
		q = q.Where("stage = ?", f.Stage)
	}
	if f.Verdict != "" {
		q = q.Where("verdict = ?", f.Verdict)
	}
	if f.DateFrom != "" {
		q = q.Where("date >= ?", f.DateFrom)
	}
	if f.DateTo != "" {
		q = q.Where("date <> '' AND date <= ?", f.DateTo)
	}
	if f.ReAttempt != nil {
		q = q.Where("is_re_attempt = ?", *f.ReAttempt)
	}

	var out []models.Schedule
	if err := q.Order("date ASC, created_at ASC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("store: list schedules: %w", err)
	}
	return out, nil
}

// PutSchedule upserts the whole schedule.
func (s *GormStore) PutSchedule(ctx context.Context, sch *models.Schedule) error {
	if sch.ID == "" {
		return fmt.Errorf("store: put schedule: id is required")
	}
	if sch.Panelists == "" {
		sch.Panelists = "[]"
	}
	if err := s.DB.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(sch).Error; err != nil {
		return fmt.Errorf("store: put schedule %s: %w", sch.ID, err)
	}
	s.Bus.Publish(events.Change{Topic: events.TopicSchedule, Action: events.ActionPut, ID: sch.ID, TeamID: sch.TeamID})
	return nil
}

// DeleteSchedule removes a schedule. Deleting a missing schedule reports ErrNotFound.
func (s *GormStore) DeleteSchedule(ctx context.Context, id string) error {
	sch, err := s.GetSchedule(ctx, "", id)
	if err != nil {
		return err
	}
	if err := s.DB.WithContext(ctx).Where("id = ?", id).Delete(&models.Schedule{}).Error; err != nil {
		return fmt.Errorf("store: delete schedule %s: %w", id, err)
	}
	s.Bus.Publish(events.Change{Topic: events.TopicSchedule, Action: events.ActionDelete, ID: id, TeamID: sch.TeamID})
	return nil
}

// ListTeams returns teams matching f, ordered by name.
func (s *GormStore) ListTeams(ctx context.Context, f TeamFilter) ([]models.Team, error) {
	q := s.DB.WithContext(ctx).Model(&models.Team{})

	if len(f.IDs) > 0 {
		q = q.Where("id IN ?", f.IDs)
	}
	if f.Adviser != "" {
		q = q.Where("adviser = ?", f.Adviser)
	}
	if f.ProjectManager != "" {
		q = q.Where("project_manager = ?", f.ProjectManager)
	}
	if f.ActiveOnly {
		q = q.Where("active = ?", true)
	}

	var teams []models.Team
	if err := q.Order("name ASC").Find(&teams).Error; err != nil {
		return nil, fmt.Errorf("store: list teams: %w", err)
	}
	return teams, nil
}
