package models

import "time"

// Task statuses.
const (
	TaskToDo       = "ToDo"
	TaskInProgress = "InProgress"
	TaskToReview   = "ToReview"
	TaskCompleted  = "Completed"
	TaskMissed     = "Missed"
)

// Task managers. Fixed at creation.
const (
	ManagerAdviser        = "Adviser"
	ManagerProjectManager = "ProjectManager"
)

// Task collection kinds, one per milestone task category.
const (
	KindTitle          = "title"
	KindOral           = "oral"
	KindFinal          = "final"
	KindFinalRedefense = "final-redefense"
)

// Task is a unit of work assigned to a team by an adviser or project manager.
type Task struct {
	ID             string `gorm:"primaryKey;size:32"`
	TeamID         string `gorm:"size:64;not null;index"`
	CollectionKind string `gorm:"size:24;not null;index"`
	TaskManager    string `gorm:"size:16;not null"`
	Title          string `gorm:"not null"`
	Assignee       string `gorm:"size:64"`
	Status         string `gorm:"size:16;default:ToDo;index"`
	DueDate        string `gorm:"size:10;index"`
	DueTime        string `gorm:"size:5"`
	DueAtMs        *int64 `gorm:"index"`
	RevisionCount  int    `gorm:"default:0"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
	CompletedAt    *time.Time
}

// IsKind reports whether k is a known task collection kind.
func IsKind(k string) bool {
	switch k {
	case KindTitle, KindOral, KindFinal, KindFinalRedefense:
		return true
	}
	return false
}
