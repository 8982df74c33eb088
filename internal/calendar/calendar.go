// Package calendar projects task deadlines and defense schedules into a
// single date-bounded list of events.
package calendar

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/zulandar/capstone/internal/clock"
	"github.com/zulandar/capstone/internal/events"
	"github.com/zulandar/capstone/internal/models"
	"github.com/zulandar/capstone/internal/store"
)

// View is a calendar granularity.
type View string

const (
	Day   View = "day"
	Week  View = "week"
	Month View = "month"
)

// ParseView validates a view name.
func ParseView(s string) (View, error) {
	switch v := View(strings.ToLower(strings.TrimSpace(s))); v {
	case Day, Week, Month:
		return v, nil
	}
	return "", fmt.Errorf("calendar: unknown view %q (want day, week or month)", s)
}

// Range returns the inclusive date range view covers around cursor. Weeks
// start on Sunday; months are calendar months.
func Range(view View, cursor time.Time) (start, end string) {
	y, m, d := cursor.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	switch view {
	case Week:
		first := day.AddDate(0, 0, -int(day.Weekday()))
		return clock.FormatDate(first), clock.FormatDate(first.AddDate(0, 0, 6))
	case Month:
		first := time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
		return clock.FormatDate(first), clock.FormatDate(first.AddDate(0, 1, -1))
	}
	return clock.FormatDate(day), clock.FormatDate(day)
}

// Scope selects whose events are shown. All shows every schedule and no
// tasks; otherwise schedules and tasks of TeamIDs are shown.
type Scope struct {
	All     bool
	TeamIDs []string
}

func (s Scope) includes(teamID string) bool {
	return s.All || slices.Contains(s.TeamIDs, teamID)
}

// Source kinds.
const (
	SourceTask     = "task"
	SourceSchedule = "schedule"
)

// CalendarEvent is a task deadline or schedule projected onto a date.
type CalendarEvent struct {
	Date       string `json:"date"`
	Title      string `json:"title"`
	ColorClass string `json:"color_class"`
	SourceKind string `json:"source_kind"`
	SourceRef  string `json:"source_ref"`
}

// TaskLister is the task read the aggregator needs.
type TaskLister interface {
	ListTasks(ctx context.Context, f store.TaskFilter) ([]models.Task, error)
}

// ScheduleLister is the schedule read the aggregator needs.
type ScheduleLister interface {
	ListSchedules(ctx context.Context, f store.ScheduleFilter) ([]models.Schedule, error)
}

// Aggregator builds calendar views. Bus is optional and only used by Watch.
type Aggregator struct {
	Tasks     TaskLister
	Schedules ScheduleLister
	Bus       *events.Bus
}

// ListEvents returns the events in scope dated within [start, end], ordered
// by date. Completed tasks and undated records are left out.
func (a *Aggregator) ListEvents(ctx context.Context, scope Scope, start, end string) ([]CalendarEvent, error) {
	if !scope.All && len(scope.TeamIDs) == 0 {
		return []CalendarEvent{}, nil
	}

	sf := store.ScheduleFilter{DateFrom: start, DateTo: end}
	if !scope.All {
		sf.TeamIDs = scope.TeamIDs
	}
	schedules, err := a.Schedules.ListSchedules(ctx, sf)
	if err != nil {
		return nil, fmt.Errorf("calendar: list schedules: %w", err)
	}

	out := make([]CalendarEvent, 0, len(schedules))
	for i := range schedules {
		s := &schedules[i]
		if !clock.InRange(s.Date, start, end) {
			continue
		}
		out = append(out, scheduleEvent(s))
	}

	if !scope.All {
		tasks, err := a.Tasks.ListTasks(ctx, store.TaskFilter{
			TeamIDs:         scope.TeamIDs,
			ExcludeStatuses: []string{models.TaskCompleted},
			DueFrom:         start,
			DueTo:           end,
		})
		if err != nil {
			return nil, fmt.Errorf("calendar: list tasks: %w", err)
		}
		for i := range tasks {
			t := &tasks[i]
			if t.Status == models.TaskCompleted || !clock.InRange(t.DueDate, start, end) {
				continue
			}
			out = append(out, taskEvent(t))
		}
	}

	slices.SortStableFunc(out, func(x, y CalendarEvent) int {
		return strings.Compare(x.Date, y.Date)
	})
	return out, nil
}

func scheduleEvent(s *models.Schedule) CalendarEvent {
	name := s.TeamName
	if name == "" {
		name = s.TeamID
	}
	title := name + ": " + StageLabel(s.Stage)
	if s.IsReAttempt {
		title += " (re-attempt)"
	}
	if t := slotLabel(s); t != "" {
		title += " " + t
	}
	return CalendarEvent{
		Date:       s.Date,
		Title:      title,
		ColorClass: "stage-" + kebab(s.Stage),
		SourceKind: SourceSchedule,
		SourceRef:  s.ID,
	}
}

func taskEvent(t *models.Task) CalendarEvent {
	title := t.Title
	if t.DueTime != "" {
		title += " @ " + t.DueTime
	}
	return CalendarEvent{
		Date:       t.DueDate,
		Title:      title,
		ColorClass: "task-" + strings.ToLower(t.Status),
		SourceKind: SourceTask,
		SourceRef:  t.ID,
	}
}

func slotLabel(s *models.Schedule) string {
	if models.UsesTimeRange(s.Stage) {
		if s.TimeStart == "" {
			return ""
		}
		return s.TimeStart + "-" + s.TimeEnd
	}
	return s.Time
}

// StageLabel renders a stage name for display, e.g. "Oral Defense".
func StageLabel(stage string) string {
	var b strings.Builder
	for i, r := range stage {
		if i > 0 && r >= 'A' && r <= 'Z' {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func kebab(stage string) string {
	return strings.ToLower(strings.ReplaceAll(StageLabel(stage), " ", "-"))
}
