// Package stage encodes the fixed defense pipeline and decides when a team
// may advance to the next stage.
package stage

import (
	"fmt"
	"slices"

	"github.com/gammazero/toposort"
	"github.com/zulandar/capstone/internal/models"
)

// prerequisites maps each stage to the stage whose verdict opens it.
var prerequisites = map[string]string{
	models.StageTitleDefense:         "",
	models.StageManuscriptSubmission: models.StageTitleDefense,
	models.StageOralDefense:          models.StageManuscriptSubmission,
	models.StageFinalDefense:         models.StageOralDefense,
	models.StageFinalRedefense:       models.StageFinalDefense,
}

var order = mustSort(prerequisites)

// sortStages orders stages so every stage follows its prerequisite.
func sortStages(prereq map[string]string) ([]string, error) {
	names := make([]string, 0, len(prereq))
	for s := range prereq {
		names = append(names, s)
	}
	// Map iteration is random; sort first so ties break the same way every run.
	slices.Sort(names)

	edges := make([]toposort.Edge, 0, len(names))
	for _, s := range names {
		p := prereq[s]
		if p == "" {
			edges = append(edges, toposort.Edge{nil, s})
			continue
		}
		if _, ok := prereq[p]; !ok {
			return nil, fmt.Errorf("stage: %s requires unknown stage %s", s, p)
		}
		edges = append(edges, toposort.Edge{p, s})
	}

	sorted, err := toposort.Toposort(edges)
	if err != nil {
		return nil, fmt.Errorf("stage: prerequisites contain a cycle: %w", err)
	}
	out := make([]string, 0, len(sorted))
	for _, s := range sorted {
		if s != nil {
			out = append(out, s.(string))
		}
	}
	return out, nil
}

func mustSort(prereq map[string]string) []string {
	out, err := sortStages(prereq)
	if err != nil {
		panic(err)
	}
	return out
}

// Order returns the stages in pipeline order.
func Order() []string {
	return slices.Clone(order)
}

// Index returns the position of stage in the pipeline, or -1.
func Index(stage string) int {
	return slices.Index(order, stage)
}

// IsStage reports whether s is a known stage.
func IsStage(s string) bool {
	return Index(s) >= 0
}

// Previous returns the stage before stage. The first stage has none.
func Previous(stage string) (string, bool) {
	i := Index(stage)
	if i <= 0 {
		return "", false
	}
	return order[i-1], true
}

// Next returns the stage after stage. FinalRedefense has none.
func Next(stage string) (string, bool) {
	i := Index(stage)
	if i < 0 || i == len(order)-1 {
		return "", false
	}
	return order[i+1], true
}

// IsEligible reports whether teamID may hold a schedule at stage, given the
// schedules known for that team.
//
// The first stage is always open. FinalRedefense opens on a Re-Defense
// verdict at FinalDefense. Every other stage needs exactly one Approved
// schedule at the previous stage.
func IsEligible(schedules []models.Schedule, teamID, stage string) bool {
	if Index(stage) < 0 {
		return false
	}
	if stage == models.StageFinalRedefense {
		for _, s := range schedules {
			if s.TeamID == teamID && s.Stage == models.StageFinalDefense && s.Verdict == models.VerdictReDefense {
				return true
			}
		}
		return false
	}
	prev, ok := Previous(stage)
	if !ok {
		return true
	}
	approved := 0
	for _, s := range schedules {
		if s.TeamID == teamID && s.Stage == prev && s.Verdict == models.VerdictApproved {
			approved++
		}
	}
	return approved == 1
}
