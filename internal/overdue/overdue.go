// Package overdue flips tasks whose deadline has passed into Missed.
package overdue

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/zulandar/capstone/internal/models"
	"github.com/zulandar/capstone/internal/store"
)

// TaskSource is what the reconciler reads from and writes to. It only ever
// writes the status field, and leaves Completed and Missed tasks untouched.
type TaskSource interface {
	ListTasks(ctx context.Context, f store.TaskFilter) ([]models.Task, error)
	SetTaskStatus(ctx context.Context, id, status string) (bool, error)
}

// Reconciler marks overdue tasks Missed.
type Reconciler struct {
	Tasks TaskSource
	Now   func() time.Time
	Out   io.Writer
}

// Result summarizes one reconciliation pass.
type Result struct {
	Checked int
	Missed  int
	Failed  int
}

// IsOverdue reports whether t should be Missed at now.
func IsOverdue(t *models.Task, now time.Time) bool {
	if t.DueAtMs == nil {
		return false
	}
	if t.Status == models.TaskCompleted || t.Status == models.TaskMissed {
		return false
	}
	return *t.DueAtMs < now.UnixMilli()
}

// Reconcile runs one pass. Each overdue task is written independently; a
// failed write is logged and counted and the task is picked up again on the
// next pass. Only a failure to list tasks is returned as an error.
func (r *Reconciler) Reconcile(ctx context.Context) (Result, error) {
	if r.Tasks == nil {
		return Result{}, fmt.Errorf("overdue: task source is required")
	}
	out := r.Out
	if out == nil {
		out = io.Discard
	}
	now := time.Now()
	if r.Now != nil {
		now = r.Now()
	}

	nowMs := now.UnixMilli()
	candidates, err := r.Tasks.ListTasks(ctx, store.TaskFilter{
		ExcludeStatuses: []string{models.TaskCompleted, models.TaskMissed},
		DueBeforeMs:     &nowMs,
	})
	if err != nil {
		return Result{}, fmt.Errorf("overdue: list tasks: %w", err)
	}

	var res Result
	for i := range candidates {
		t := &candidates[i]
		res.Checked++
		if !IsOverdue(t, now) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return res, err
		}
		changed, err := r.Tasks.SetTaskStatus(ctx, t.ID, models.TaskMissed)
		if err != nil {
			res.Failed++
			log.Printf("overdue: mark %s missed: %v", t.ID, err)
			continue
		}
		if !changed {
			// finished or already missed since it was listed
			continue
		}
		res.Missed++
		fmt.Fprintf(out, "Task %s (%s) missed its %s %s deadline\n", t.ID, t.Title, t.DueDate, t.DueTime)
	}
	return res, nil
}
