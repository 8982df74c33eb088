// Package task owns a single task's status transitions, due-date gating and
// revision-bump policy.
package task

import (
	"fmt"
	"slices"
	"time"

	"github.com/zulandar/capstone/internal/apperr"
	"github.com/zulandar/capstone/internal/clock"
	"github.com/zulandar/capstone/internal/models"
	"github.com/zulandar/capstone/internal/revision"
)

// ValidTransitions maps each status to the statuses a direct status update may
// move it to. Missed is written only by the overdue reconciler, and Completed
// and Missed are left only through EditDueDateTime.
var ValidTransitions = map[string][]string{
	models.TaskToDo:       {models.TaskInProgress, models.TaskToReview, models.TaskCompleted},
	models.TaskInProgress: {models.TaskToDo, models.TaskToReview, models.TaskCompleted},
	models.TaskToReview:   {models.TaskToDo, models.TaskInProgress, models.TaskCompleted},
	models.TaskCompleted:  {},
	models.TaskMissed:     {},
}

// regressionStatuses are the statuses in which a due-date change counts as a revision.
var regressionStatuses = []string{models.TaskToReview, models.TaskMissed, models.TaskCompleted}

// IsStatus reports whether s is a known task status.
func IsStatus(s string) bool {
	_, ok := ValidTransitions[s]
	return ok
}

// isValidTransition checks whether a direct status update is allowed.
func isValidTransition(from, to string) bool {
	return slices.Contains(ValidTransitions[from], to)
}

// SetStatus applies a direct status update. Without a due timestamp the only
// allowed update is marking the task Completed.
func SetStatus(t *models.Task, newStatus string, now time.Time) error {
	if !IsStatus(newStatus) {
		return apperr.Validation("status", "unknown status %q", newStatus)
	}
	if newStatus == models.TaskMissed {
		return apperr.Validation("status", "Missed is set automatically once the deadline passes")
	}
	if t.DueAtMs == nil && newStatus != models.TaskCompleted {
		return apperr.Validation("status", "set a due date and time before changing status")
	}
	if t.Status == newStatus {
		return nil
	}
	if !isValidTransition(t.Status, newStatus) {
		return fmt.Errorf("task: %s to %s: %w; edit the due date to reopen", t.Status, newStatus, apperr.ErrInvalidTransition)
	}

	t.Status = newStatus
	if newStatus == models.TaskCompleted {
		completedAt := now
		t.CompletedAt = &completedAt
	}
	return nil
}

// EditDueDateTime sets a new deadline. When the deadline actually changes on a
// task that is under review, missed or completed, the task returns to ToDo and
// a revision is recorded. It reports whether a revision was recorded.
func EditDueDateTime(t *models.Task, date, clockTime string, now time.Time, loc *time.Location) (bool, error) {
	if date == "" {
		return false, apperr.Validation("due_date", "is required")
	}
	if clockTime == "" {
		return false, apperr.Validation("due_time", "is required")
	}
	if _, err := clock.ParseDate(date, loc); err != nil {
		return false, apperr.Validation("due_date", "must be YYYY-MM-DD")
	}
	clockTime, err := clock.NormalizeClock(clockTime)
	if err != nil {
		return false, apperr.Validation("due_time", "must be HH:MM")
	}
	if today := clock.Today(now, loc); date < today {
		return false, apperr.Validation("due_date", "must not be before %s", today)
	}
	if revision.AtCeiling(t.RevisionCount) {
		return false, apperr.ErrRevisionCeiling
	}
	if date == t.DueDate && clockTime == t.DueTime {
		return false, nil
	}

	dueAt, err := clock.DueAtMs(date, clockTime, loc)
	if err != nil {
		return false, apperr.Validation("due_date", "%v", err)
	}

	revised := false
	if slices.Contains(regressionStatuses, t.Status) {
		next, err := revision.Next(t.RevisionCount)
		if err != nil {
			return false, err
		}
		t.RevisionCount = next
		t.Status = models.TaskToDo
		t.CompletedAt = nil
		revised = true
	}

	t.DueDate = date
	t.DueTime = clockTime
	t.DueAtMs = dueAt
	return revised, nil
}

// SelectableStatuses is the status vocabulary offered to a task's manager.
// Project-manager tasks cannot be marked Completed from the task list;
// Completed stays reachable as a recorded state.
func SelectableStatuses(manager string) []string {
	if manager == models.ManagerProjectManager {
		return []string{models.TaskToDo, models.TaskInProgress, models.TaskToReview}
	}
	return []string{models.TaskToDo, models.TaskInProgress, models.TaskToReview, models.TaskCompleted}
}

// ActiveView returns tasks still being worked on, in input order.
func ActiveView(tasks []models.Task) []models.Task {
	var out []models.Task
	for _, t := range tasks {
		if t.Status != models.TaskCompleted {
			out = append(out, t)
		}
	}
	return out
}

// RecordView returns completed tasks, in input order.
func RecordView(tasks []models.Task) []models.Task {
	var out []models.Task
	for _, t := range tasks {
		if t.Status == models.TaskCompleted {
			out = append(out, t)
		}
	}
	return out
}

// RevisionLabel is the display label of t's revision count.
func RevisionLabel(t *models.Task) string {
	return revision.Label(t.RevisionCount)
}
