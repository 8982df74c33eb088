package stage

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/zulandar/capstone/internal/apperr"
	"github.com/zulandar/capstone/internal/models"
	"github.com/zulandar/capstone/internal/store"
)

// Gate checks eligibility against the store and creates the schedules that
// eligibility implies.
type Gate struct {
	Schedules store.ScheduleStore
	Teams     store.TeamStore
	Out       io.Writer
}

// SyncResult summarizes one Sync pass for a stage.
type SyncResult struct {
	Stage    string `json:"stage"`
	Eligible int    `json:"eligible"`
	Created  int    `json:"created"`
	Failed   int    `json:"failed"`
}

// GenerateID creates a schedule ID in sch-xxxxx format (5-char hex).
func GenerateID() (string, error) {
	b := make([]byte, 3)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("stage: generate ID: %w", err)
	}
	return "sch-" + hex.EncodeToString(b)[:5], nil
}

func (g *Gate) out() io.Writer {
	if g.Out == nil {
		return io.Discard
	}
	return g.Out
}

// Check returns a *apperr.StageNotEligibleError if teamID may not hold a
// schedule at stage. Reaching this is a logic error upstream, so it is logged.
func (g *Gate) Check(ctx context.Context, teamID, stage string) error {
	if !IsStage(stage) {
		return apperr.Validation("stage", "unknown stage %q", stage)
	}
	schedules, err := g.Schedules.ListSchedules(ctx, store.ScheduleFilter{TeamIDs: []string{teamID}})
	if err != nil {
		return fmt.Errorf("stage: check %s: %w", teamID, &apperr.PersistenceError{Op: "list schedules", Err: err})
	}
	if !IsEligible(schedules, teamID, stage) {
		nerr := &apperr.StageNotEligibleError{TeamID: teamID, Stage: stage}
		log.Printf("stage: %v", nerr)
		return nerr
	}
	return nil
}

// Sync creates one empty Pending schedule at stage for every active team
// that is eligible and has none yet. Each schedule is written on its own;
// failures are counted and retried on the next pass.
func (g *Gate) Sync(ctx context.Context, stage string) (SyncResult, error) {
	res := SyncResult{Stage: stage}
	if !IsStage(stage) {
		return res, apperr.Validation("stage", "unknown stage %q", stage)
	}

	teams, err := g.Teams.ListTeams(ctx, store.TeamFilter{ActiveOnly: true})
	if err != nil {
		return res, fmt.Errorf("stage: sync %s: list teams: %w", stage, err)
	}
	if len(teams) == 0 {
		return res, nil
	}
	ids := make([]string, len(teams))
	for i, t := range teams {
		ids[i] = t.ID
	}
	schedules, err := g.Schedules.ListSchedules(ctx, store.ScheduleFilter{TeamIDs: ids})
	if err != nil {
		return res, fmt.Errorf("stage: sync %s: list schedules: %w", stage, err)
	}

	byTeam := make(map[string][]models.Schedule)
	for _, s := range schedules {
		byTeam[s.TeamID] = append(byTeam[s.TeamID], s)
	}

	for _, team := range teams {
		own := byTeam[team.ID]
		if !IsEligible(own, team.ID, stage) {
			continue
		}
		res.Eligible++
		if hasStage(own, stage) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return res, err
		}

		id, err := GenerateID()
		if err != nil {
			return res, err
		}
		sch := &models.Schedule{
			ID:       id,
			TeamID:   team.ID,
			TeamName: team.Name,
			Stage:    stage,
			Verdict:  models.VerdictPending,
		}
		if err := g.Schedules.PutSchedule(ctx, sch); err != nil {
			res.Failed++
			log.Printf("stage: create %s schedule for %s: %v", stage, team.ID, err)
			continue
		}
		res.Created++
		fmt.Fprintf(g.out(), "Team %s is eligible for %s: created schedule %s\n", team.ID, stage, id)
	}
	return res, nil
}

// SyncAll runs Sync for every stage in pipeline order. A failing stage is
// logged and the remaining stages still run.
func (g *Gate) SyncAll(ctx context.Context) ([]SyncResult, error) {
	var results []SyncResult
	var errs []error
	for _, stage := range order {
		res, err := g.Sync(ctx, stage)
		if err != nil {
			if ctx.Err() != nil {
				return results, ctx.Err()
			}
			log.Printf("stage: sync %s: %v", stage, err)
			errs = append(errs, err)
			continue
		}
		results = append(results, res)
	}
	return results, errors.Join(errs...)
}

// ScheduleReAttempt creates a fresh Pending schedule retrying originalID. The
// original must carry its stage's retry verdict and is left in place, and the
// team must still be eligible for the stage.
func (g *Gate) ScheduleReAttempt(ctx context.Context, originalID string) (*models.Schedule, error) {
	orig, err := g.Schedules.GetSchedule(ctx, "", originalID)
	if err != nil {
		return nil, fmt.Errorf("stage: re-attempt: %w", err)
	}
	retry := models.RetryVerdict(orig.Stage)
	if orig.Verdict != retry {
		return nil, apperr.Validation("verdict", "a re-attempt needs a %s verdict, schedule %s is %s", retry, orig.ID, orig.Verdict)
	}

	reattempt := true
	existing, err := g.Schedules.ListSchedules(ctx, store.ScheduleFilter{
		TeamIDs:   []string{orig.TeamID},
		Stage:     orig.Stage,
		ReAttempt: &reattempt,
	})
	if err != nil {
		return nil, fmt.Errorf("stage: re-attempt: %w", &apperr.PersistenceError{Op: "list schedules", Err: err})
	}
	for _, s := range existing {
		if s.OriginalScheduleID != nil && *s.OriginalScheduleID == orig.ID {
			return nil, apperr.Validation("original_schedule_id", "schedule %s is already retried by %s", orig.ID, s.ID)
		}
	}
	if err := g.Check(ctx, orig.TeamID, orig.Stage); err != nil {
		return nil, fmt.Errorf("stage: re-attempt %s: %w", orig.ID, err)
	}

	id, err := GenerateID()
	if err != nil {
		return nil, err
	}
	origID := orig.ID
	sch := &models.Schedule{
		ID:                 id,
		TeamID:             orig.TeamID,
		TeamName:           orig.TeamName,
		Stage:              orig.Stage,
		Verdict:            models.VerdictPending,
		IsReAttempt:        true,
		OriginalScheduleID: &origID,
	}
	if err := g.Schedules.PutSchedule(ctx, sch); err != nil {
		return nil, fmt.Errorf("stage: re-attempt: %w", &apperr.PersistenceError{Op: "put schedule " + id, Err: err})
	}
	fmt.Fprintf(g.out(), "Scheduled re-attempt %s of %s (%s, team %s)\n", id, orig.ID, orig.Stage, orig.TeamID)
	return sch, nil
}

func hasStage(schedules []models.Schedule, stage string) bool {
	for _, s := range schedules {
		if s.Stage == stage {
			return true
		}
	}
	return false
}
