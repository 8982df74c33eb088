package api

import (
	"time"

	"github.com/zulandar/capstone/internal/models"
	"github.com/zulandar/capstone/internal/schedule"
	"github.com/zulandar/capstone/internal/task"
)

type taskJSON struct {
	ID                 string     `json:"id"`
	TeamID             string     `json:"team_id"`
	CollectionKind     string     `json:"collection_kind"`
	TaskManager        string     `json:"task_manager"`
	Title              string     `json:"title"`
	Assignee           string     `json:"assignee,omitempty"`
	Status             string     `json:"status"`
	DueDate            string     `json:"due_date,omitempty"`
	DueTime            string     `json:"due_time,omitempty"`
	DueAtMs            *int64     `json:"due_at_ms"`
	RevisionCount      int        `json:"revision_count"`
	RevisionLabel      string     `json:"revision_label"`
	SelectableStatuses []string   `json:"selectable_statuses"`
	CompletedAt        *time.Time `json:"completed_at"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

func toTaskJSON(t *models.Task) taskJSON {
	return taskJSON{
		ID:                 t.ID,
		TeamID:             t.TeamID,
		CollectionKind:     t.CollectionKind,
		TaskManager:        t.TaskManager,
		Title:              t.Title,
		Assignee:           t.Assignee,
		Status:             t.Status,
		DueDate:            t.DueDate,
		DueTime:            t.DueTime,
		DueAtMs:            t.DueAtMs,
		RevisionCount:      t.RevisionCount,
		RevisionLabel:      task.RevisionLabel(t),
		SelectableStatuses: task.SelectableStatuses(t.TaskManager),
		CompletedAt:        t.CompletedAt,
		CreatedAt:          t.CreatedAt,
		UpdatedAt:          t.UpdatedAt,
	}
}

type scheduleJSON struct {
	ID                 string     `json:"id"`
	TeamID             string     `json:"team_id"`
	TeamName           string     `json:"team_name"`
	Stage              string     `json:"stage"`
	Date               string     `json:"date,omitempty"`
	Time               string     `json:"time,omitempty"`
	TimeStart          string     `json:"time_start,omitempty"`
	TimeEnd            string     `json:"time_end,omitempty"`
	Panelists          []string   `json:"panelists"`
	Verdict            string     `json:"verdict"`
	Verdicts           []string   `json:"verdicts"`
	Editable           bool       `json:"editable"`
	IsReAttempt        bool       `json:"is_re_attempt"`
	OriginalScheduleID *string    `json:"original_schedule_id"`
	VerdictAt          *time.Time `json:"verdict_at"`
	CreatedAt          time.Time  `json:"created_at"`
}

func toScheduleJSON(s *models.Schedule) scheduleJSON {
	panel := schedule.Panelists(s)
	if panel == nil {
		panel = []string{}
	}
	return scheduleJSON{
		ID:                 s.ID,
		TeamID:             s.TeamID,
		TeamName:           s.TeamName,
		Stage:              s.Stage,
		Date:               s.Date,
		Time:               s.Time,
		TimeStart:          s.TimeStart,
		TimeEnd:            s.TimeEnd,
		Panelists:          panel,
		Verdict:            s.Verdict,
		Verdicts:           schedule.Verdicts(s.Stage),
		Editable:           schedule.CanEdit(s),
		IsReAttempt:        s.IsReAttempt,
		OriginalScheduleID: s.OriginalScheduleID,
		VerdictAt:          s.VerdictAt,
		CreatedAt:          s.CreatedAt,
	}
}

type teamJSON struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Adviser        string `json:"adviser,omitempty"`
	ProjectManager string `json:"project_manager,omitempty"`
	Active         bool   `json:"active"`
}

// snapshotJSON renders a PersistenceError snapshot in the API's shape.
func snapshotJSON(v any) any {
	switch s := v.(type) {
	case *models.Task:
		if s != nil {
			return toTaskJSON(s)
		}
	case *models.Schedule:
		if s != nil {
			return toScheduleJSON(s)
		}
	}
	return nil
}
