package models

// Team is a capstone group. Only its identity and advisory staff matter to
// the lifecycle engine; they scope queries.
type Team struct {
	ID             string `gorm:"primaryKey;size:64"`
	Name           string `gorm:"size:128;not null"`
	Adviser        string `gorm:"size:128;index"`
	ProjectManager string `gorm:"size:128;index"`
	Members        string `gorm:"type:json"`
	Active         bool   `gorm:"not null"`
}
