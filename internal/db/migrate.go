// Package db opens the Capstone database and manages its schema.
package db

import (
	"encoding/json"
	"fmt"

	"github.com/zulandar/capstone/internal/config"
	"github.com/zulandar/capstone/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AllModels returns every GORM model for migration.
func AllModels() []interface{} {
	return []interface{}{
		&models.Task{},
		&models.Schedule{},
		&models.Team{},
	}
}

// AutoMigrate creates or updates all tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	return nil
}

// SeedTeams upserts Team rows from configuration. Teams missing from the
// config are left as they are.
func SeedTeams(db *gorm.DB, teams []config.TeamConfig) error {
	for _, tc := range teams {
		members, err := marshalJSON(tc.Members)
		if err != nil {
			return fmt.Errorf("db: marshal members for team %q: %w", tc.ID, err)
		}
		if members == "" || members == "null" {
			members = "[]"
		}

		team := models.Team{
			ID:             tc.ID,
			Name:           tc.Name,
			Adviser:        tc.Adviser,
			ProjectManager: tc.ProjectManager,
			Members:        members,
			Active:         tc.IsActive(),
		}

		result := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "adviser", "project_manager", "members", "active"}),
		}).Create(&team)
		if result.Error != nil {
			return fmt.Errorf("db: seed team %q: %w", tc.ID, result.Error)
		}
	}
	return nil
}

// marshalJSON marshals a value to a JSON string, returning empty string for nil.
func marshalJSON(v interface{}) (string, error) {
	if v == nil {
		return "", nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
