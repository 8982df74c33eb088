// Package apperr defines the error taxonomy shared by the lifecycle packages.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrRevisionCeiling is returned when an edit would push a task past its
	// last allowed revision.
	ErrRevisionCeiling = errors.New("revision limit reached; create a new task instead")

	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrScheduleLocked is returned for slot edits on an approved schedule.
	ErrScheduleLocked = errors.New("schedule is approved and can no longer be edited")

	// ErrVerdictTooEarly is returned when a verdict is set before the slot has happened.
	ErrVerdictTooEarly = errors.New("schedule has not taken place yet")

	// ErrAnchorDeletion guards deletion of an original schedule, which later
	// stages use as their eligibility anchor.
	ErrAnchorDeletion = errors.New("original schedule anchors next-stage eligibility; confirm to delete")
)

// ValidationError reports bad input on a single field. The write is never attempted.
type ValidationError struct {
	Field string
	Msg   string
}

// Validation builds a *ValidationError.
func Validation(field, format string, args ...any) error {
	return &ValidationError{Field: field, Msg: fmt.Sprintf(format, args...)}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return e.Field + ": " + e.Msg
}

// IsValidation reports whether err wraps a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// StageNotEligibleError means a team was advanced without an approved predecessor.
type StageNotEligibleError struct {
	TeamID string
	Stage  string
}

func (e *StageNotEligibleError) Error() string {
	return fmt.Sprintf("team %s is not eligible for %s", e.TeamID, e.Stage)
}

// PersistenceError wraps a failed store read or write. Snapshot holds the
// authoritative record re-read after the failure, if one could be read.
type PersistenceError struct {
	Op       string
	Err      error
	Snapshot any
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
