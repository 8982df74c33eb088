package models

import "time"

// Defense stages, in pipeline order.
const (
	StageTitleDefense         = "TitleDefense"
	StageManuscriptSubmission = "ManuscriptSubmission"
	StageOralDefense          = "OralDefense"
	StageFinalDefense         = "FinalDefense"
	StageFinalRedefense       = "FinalRedefense"
)

// Verdicts. The retry verdict a schedule may carry depends on its stage.
const (
	VerdictPending   = "Pending"
	VerdictApproved  = "Approved"
	VerdictRePresent = "Re-Present"
	VerdictRecheck   = "Recheck"
	VerdictReDefense = "Re-Defense"
	VerdictFailed    = "Failed"
)

// Schedule is a team's slot for one defense stage. Re-attempts are separate
// rows that point back at the record they retry.
type Schedule struct {
	ID                 string  `gorm:"primaryKey;size:32"`
	TeamID             string  `gorm:"size:64;not null;index:idx_team_stage"`
	TeamName           string  `gorm:"size:128"`
	Stage              string  `gorm:"size:24;not null;index:idx_team_stage"`
	Date               string  `gorm:"size:10;index"`
	Time               string  `gorm:"size:5"`
	TimeStart          string  `gorm:"size:5"`
	TimeEnd            string  `gorm:"size:5"`
	Panelists          string  `gorm:"type:json"`
	Verdict            string  `gorm:"size:16;default:Pending;index"`
	IsReAttempt        bool    `gorm:"default:false"`
	OriginalScheduleID *string `gorm:"size:32"`
	CreatedAt          time.Time
	UpdatedAt          time.Time
	VerdictAt          *time.Time
}

// RetryVerdict returns the retry verdict used at stage, or "" for an unknown stage.
func RetryVerdict(stage string) string {
	switch stage {
	case StageTitleDefense:
		return VerdictRePresent
	case StageManuscriptSubmission:
		return VerdictRecheck
	case StageOralDefense, StageFinalDefense, StageFinalRedefense:
		return VerdictReDefense
	}
	return ""
}

// UsesTimeRange reports whether stage slots are a start/end range rather
// than a single time.
func UsesTimeRange(stage string) bool {
	return stage == StageOralDefense || stage == StageFinalDefense || stage == StageFinalRedefense
}

// HasPanel reports whether stage is judged by panelists.
func HasPanel(stage string) bool {
	return stage != StageManuscriptSubmission
}
