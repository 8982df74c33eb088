package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const fullYAML = `
timezone: Asia/Manila

database:
  driver: mysql
  host: 10.0.0.5
  port: 3307
  user: capstone
  password: s3cret
  name: capstone_prod

sweep:
  cron: "*/5 * * * *"
  poll_interval: 30s

api:
  port: 9090

teams:
  - id: team-alpha
    name: Team Alpha
    adviser: Dr. Cruz
    project_manager: Ms. Reyes
    members: [Ana, Ben]

  - id: team-beta
    name: Team Beta
    adviser: Dr. Lim
    active: false
`

const minimalYAML = `
teams:
  - id: team-gamma
`

func TestParse_FullConfig(t *testing.T) {
	cfg, err := Parse([]byte(fullYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Timezone != "Asia/Manila" {
		t.Errorf("Timezone = %q, want %q", cfg.Timezone, "Asia/Manila")
	}
	if cfg.Database.Host != "10.0.0.5" {
		t.Errorf("Database.Host = %q, want %q", cfg.Database.Host, "10.0.0.5")
	}
	if cfg.Database.Port != 3307 {
		t.Errorf("Database.Port = %d, want %d", cfg.Database.Port, 3307)
	}
	if cfg.Database.User != "capstone" || cfg.Database.Password != "s3cret" {
		t.Errorf("Database credentials = %q/%q", cfg.Database.User, cfg.Database.Password)
	}
	if cfg.Database.Name != "capstone_prod" {
		t.Errorf("Database.Name = %q, want %q", cfg.Database.Name, "capstone_prod")
	}
	if cfg.Sweep.Cron != "*/5 * * * *" {
		t.Errorf("Sweep.Cron = %q", cfg.Sweep.Cron)
	}
	if cfg.Sweep.PollInterval != 30*time.Second {
		t.Errorf("Sweep.PollInterval = %s, want 30s", cfg.Sweep.PollInterval)
	}
	if cfg.API.Port != 9090 {
		t.Errorf("API.Port = %d, want 9090", cfg.API.Port)
	}
	if len(cfg.Teams) != 2 {
		t.Fatalf("len(Teams) = %d, want 2", len(cfg.Teams))
	}

	alpha := cfg.Teams[0]
	if alpha.ID != "team-alpha" || alpha.Name != "Team Alpha" {
		t.Errorf("Teams[0] = %q/%q", alpha.ID, alpha.Name)
	}
	if alpha.Adviser != "Dr. Cruz" || alpha.ProjectManager != "Ms. Reyes" {
		t.Errorf("Teams[0] staff = %q/%q", alpha.Adviser, alpha.ProjectManager)
	}
	if len(alpha.Members) != 2 {
		t.Errorf("len(Teams[0].Members) = %d, want 2", len(alpha.Members))
	}
	if !alpha.IsActive() {
		t.Error("Teams[0] without active should be active")
	}
	if cfg.Teams[1].IsActive() {
		t.Error("Teams[1] with active: false should be inactive")
	}
	if cfg.Location().String() != "Asia/Manila" {
		t.Errorf("Location() = %s", cfg.Location())
	}
}

func TestParse_MinimalConfig_AppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(minimalYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Database.Driver != DriverMySQL {
		t.Errorf("Database.Driver = %q, want %q (default)", cfg.Database.Driver, DriverMySQL)
	}
	if cfg.Database.Host != "127.0.0.1" {
		t.Errorf("Database.Host = %q, want %q (default)", cfg.Database.Host, "127.0.0.1")
	}
	if cfg.Database.Port != 3306 {
		t.Errorf("Database.Port = %d, want %d (default)", cfg.Database.Port, 3306)
	}
	if cfg.Database.User != "root" {
		t.Errorf("Database.User = %q, want root (default)", cfg.Database.User)
	}
	if cfg.Database.Name != "capstone" {
		t.Errorf("Database.Name = %q, want capstone (default)", cfg.Database.Name)
	}
	if cfg.Database.Path != "capstone.db" {
		t.Errorf("Database.Path = %q, want capstone.db (default)", cfg.Database.Path)
	}
	if cfg.Sweep.PollInterval != time.Minute {
		t.Errorf("Sweep.PollInterval = %s, want 1m (default)", cfg.Sweep.PollInterval)
	}
	if cfg.API.Port != 8080 {
		t.Errorf("API.Port = %d, want 8080 (default)", cfg.API.Port)
	}
	if cfg.Teams[0].Name != "team-gamma" {
		t.Errorf("Teams[0].Name = %q, want id as default", cfg.Teams[0].Name)
	}
	if cfg.Location() != time.UTC {
		t.Errorf("Location() = %s, want UTC", cfg.Location())
	}
}

func TestParse_EmptyIsValid(t *testing.T) {
	if _, err := Parse([]byte("")); err != nil {
		t.Errorf("empty config: %v", err)
	}
}

func TestParse_SQLiteDriver(t *testing.T) {
	cfg, err := Parse([]byte("database:\n  driver: SQLite\n  path: /tmp/cap.db\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Database.Driver != DriverSQLite {
		t.Errorf("Driver = %q, want sqlite", cfg.Database.Driver)
	}
	if cfg.Database.Path != "/tmp/cap.db" {
		t.Errorf("Path = %q", cfg.Database.Path)
	}
}

func TestParse_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"bad driver", "database:\n  driver: postgres\n", "database.driver must be mysql or sqlite"},
		{"bad timezone", "timezone: Mars/Olympus\n", `timezone "Mars/Olympus" is not a known zone`},
		{"bad cron", "sweep:\n  cron: \"every five\"\n", "sweep.cron"},
		{"six-field cron", "sweep:\n  cron: \"0 */5 * * * *\"\n", "sweep.cron"},
		{"bad api port", "api:\n  port: 70000\n", "api.port"},
		{"team without id", "teams:\n  - name: Nameless\n", "teams[0].id is required"},
		{"duplicate team", "teams:\n  - id: a\n  - id: a\n", `teams[1].id "a" is duplicated`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want to contain %q", err.Error(), tt.want)
			}
		})
	}
}

func TestParse_MultipleErrorsJoined(t *testing.T) {
	_, err := Parse([]byte("database:\n  driver: oracle\napi:\n  port: -1\n"))
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "; ") {
		t.Errorf("error = %q, want errors joined with ;", err.Error())
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := Parse([]byte("teams: [unterminated"))
	if err == nil {
		t.Fatal("expected error for invalid YAML")
	}
	if !strings.Contains(err.Error(), "config: parse") {
		t.Errorf("error = %q, want config: parse prefix", err.Error())
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "capstone.yaml")
	if err := os.WriteFile(path, []byte(fullYAML), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Teams) != 2 {
		t.Errorf("len(Teams) = %d, want 2", len(cfg.Teams))
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !strings.Contains(err.Error(), "config: read") {
		t.Errorf("error = %q, want config: read prefix", err.Error())
	}
}
