// Package schedule owns a single defense schedule's verdict transitions and
// slot edits.
package schedule

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/zulandar/capstone/internal/apperr"
	"github.com/zulandar/capstone/internal/clock"
	"github.com/zulandar/capstone/internal/models"
)

// VerdictPassed is accepted as input and stored as Approved.
const VerdictPassed = "Passed"

// RetryVerdict returns the retry verdict for stage.
func RetryVerdict(stage string) string {
	return models.RetryVerdict(stage)
}

// Verdicts returns the verdicts a schedule at stage may carry.
func Verdicts(stage string) []string {
	return []string{models.VerdictPending, models.VerdictApproved, RetryVerdict(stage), models.VerdictFailed}
}

// ParseVerdict normalises s to a verdict valid at stage. Matching ignores
// case, and Passed is read as Approved.
func ParseVerdict(stage, s string) (string, error) {
	if RetryVerdict(stage) == "" {
		return "", apperr.Validation("stage", "unknown stage %q", stage)
	}
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, VerdictPassed) {
		return models.VerdictApproved, nil
	}
	for _, v := range Verdicts(stage) {
		if strings.EqualFold(s, v) {
			return v, nil
		}
	}
	return "", apperr.Validation("verdict", "%q is not a %s verdict (want one of %s)", s, stage, strings.Join(Verdicts(stage), ", "))
}

// nextVerdicts lists the verdicts reachable from v at stage. Only Pending
// moves; a retry verdict is settled by its re-attempt, not by editing the
// original.
func nextVerdicts(stage, v string) []string {
	if v != models.VerdictPending {
		return nil
	}
	return []string{models.VerdictApproved, RetryVerdict(stage), models.VerdictFailed}
}

// SlotStart is the instant a schedule takes place: its date plus the single
// time or range start, or the date alone when no time is set.
func SlotStart(s *models.Schedule, loc *time.Location) (time.Time, bool, error) {
	if s.Date == "" {
		return time.Time{}, false, nil
	}
	tm := s.Time
	if models.UsesTimeRange(s.Stage) {
		tm = s.TimeStart
	}
	start, err := clock.Combine(s.Date, tm, loc)
	if err != nil {
		return time.Time{}, false, err
	}
	return start, true, nil
}

// SetVerdict records a verdict. A schedule cannot be judged before its slot
// has started.
func SetVerdict(s *models.Schedule, verdict string, now time.Time, loc *time.Location) error {
	v, err := ParseVerdict(s.Stage, verdict)
	if err != nil {
		return err
	}
	if v == s.Verdict {
		return nil
	}
	if !slices.Contains(nextVerdicts(s.Stage, s.Verdict), v) {
		return fmt.Errorf("schedule: %s to %s: %w", s.Verdict, v, apperr.ErrInvalidTransition)
	}

	start, ok, err := SlotStart(s, loc)
	if err != nil {
		return apperr.Validation("date", "%v", err)
	}
	if !ok {
		return fmt.Errorf("schedule: no date set: %w", apperr.ErrVerdictTooEarly)
	}
	if !now.After(start) {
		return fmt.Errorf("schedule: slot starts %s: %w", start.Format(clock.DateLayout+" "+clock.TimeLayout), apperr.ErrVerdictTooEarly)
	}

	s.Verdict = v
	at := now
	s.VerdictAt = &at
	return nil
}

// CanEdit reports whether the slot and panel may still change.
func CanEdit(s *models.Schedule) bool {
	return s.Verdict != models.VerdictApproved
}

// SlotInput is a requested slot. Time is used by single-slot stages,
// TimeStart and TimeEnd by range stages.
type SlotInput struct {
	Date      string
	Time      string
	TimeStart string
	TimeEnd   string
	Panelists []string
}

// EditSlot validates in against s's stage and applies it.
func EditSlot(s *models.Schedule, in SlotInput, now time.Time, loc *time.Location) error {
	if !CanEdit(s) {
		return fmt.Errorf("schedule: %s: %w", s.ID, apperr.ErrScheduleLocked)
	}
	if in.Date == "" {
		return apperr.Validation("date", "is required")
	}
	if _, err := clock.ParseDate(in.Date, loc); err != nil {
		return apperr.Validation("date", "must be YYYY-MM-DD")
	}
	if today := clock.Today(now, loc); in.Date < today {
		return apperr.Validation("date", "must not be before %s", today)
	}

	var tm, start, end string
	if models.UsesTimeRange(s.Stage) {
		if in.TimeStart == "" || in.TimeEnd == "" {
			return apperr.Validation("time", "start and end times are required")
		}
		st, err := clock.ParseClock(in.TimeStart)
		if err != nil {
			return apperr.Validation("time_start", "must be HH:MM")
		}
		et, err := clock.ParseClock(in.TimeEnd)
		if err != nil {
			return apperr.Validation("time_end", "must be HH:MM")
		}
		if !et.After(st) {
			return apperr.Validation("time_end", "must be after %s", in.TimeStart)
		}
		start, end = st.Format(clock.TimeLayout), et.Format(clock.TimeLayout)
	} else {
		if in.Time == "" {
			return apperr.Validation("time", "is required")
		}
		norm, err := clock.NormalizeClock(in.Time)
		if err != nil {
			return apperr.Validation("time", "must be HH:MM")
		}
		tm = norm
	}

	names := normalizePanel(in.Panelists)
	if models.HasPanel(s.Stage) && len(names) == 0 {
		return apperr.Validation("panelists", "select at least one panelist")
	}
	if !models.HasPanel(s.Stage) && len(names) > 0 {
		return apperr.Validation("panelists", "%s has no panel", s.Stage)
	}
	panel, err := json.Marshal(names)
	if err != nil {
		return fmt.Errorf("schedule: encode panelists: %w", err)
	}

	s.Date = in.Date
	s.Time = tm
	s.TimeStart = start
	s.TimeEnd = end
	s.Panelists = string(panel)
	return nil
}

// Panelists decodes the stored panel. A malformed value reads as empty.
func Panelists(s *models.Schedule) []string {
	var names []string
	if s.Panelists == "" {
		return names
	}
	if err := json.Unmarshal([]byte(s.Panelists), &names); err != nil {
		return nil
	}
	return names
}

// DeleteCheck guards deletion. Originals anchor the next stage's eligibility
// and need confirmation; re-attempts can always go.
func DeleteCheck(s *models.Schedule, confirmed bool) error {
	if !s.IsReAttempt && !confirmed {
		return fmt.Errorf("schedule: %s: %w", s.ID, apperr.ErrAnchorDeletion)
	}
	return nil
}

// normalizePanel trims names and drops blanks and duplicates, keeping order.
func normalizePanel(in []string) []string {
	out := make([]string, 0, len(in))
	for _, n := range in {
		n = strings.TrimSpace(n)
		if n == "" || slices.Contains(out, n) {
			continue
		}
		out = append(out, n)
	}
	return out
}
