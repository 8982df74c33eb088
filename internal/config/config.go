// Package config provides YAML-based configuration loading for Capstone.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Supported database drivers.
const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

// Config is the top-level Capstone configuration, loaded from capstone.yaml.
type Config struct {
	Timezone string         `yaml:"timezone"`
	Database DatabaseConfig `yaml:"database"`
	Sweep    SweepConfig    `yaml:"sweep"`
	API      APIConfig      `yaml:"api"`
	Teams    []TeamConfig   `yaml:"teams"`
}

// DatabaseConfig holds connection settings. Host, Port, User, Password and
// Name apply to mysql; Path applies to sqlite.
type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	Path     string `yaml:"path"`
}

// SweepConfig controls the background sweeper. Cron wins over PollInterval.
type SweepConfig struct {
	Cron         string        `yaml:"cron"`
	PollInterval time.Duration `yaml:"poll_interval"`
}

// APIConfig holds HTTP server settings.
type APIConfig struct {
	Port int `yaml:"port"`
}

// TeamConfig seeds one team.
type TeamConfig struct {
	ID             string   `yaml:"id"`
	Name           string   `yaml:"name"`
	Adviser        string   `yaml:"adviser"`
	ProjectManager string   `yaml:"project_manager"`
	Members        []string `yaml:"members"`
	Active         *bool    `yaml:"active"` // nil means active
}

// IsActive reports whether the team takes part in stage sync.
func (tc TeamConfig) IsActive() bool {
	return tc.Active == nil || *tc.Active
}

// cronParser uses standard 5-field cron expressions (minute, hour, dom, month, dow).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Load reads a YAML config file from path and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Location returns the configured time zone. Timezone is validated by
// Parse, so only a hand-built Config can fall back to UTC here.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.Database.Driver == "" {
		c.Database.Driver = DriverMySQL
	}
	c.Database.Driver = strings.ToLower(c.Database.Driver)
	if c.Database.Host == "" {
		c.Database.Host = "127.0.0.1"
	}
	if c.Database.Port == 0 {
		c.Database.Port = 3306
	}
	if c.Database.User == "" {
		c.Database.User = "root"
	}
	if c.Database.Name == "" {
		c.Database.Name = "capstone"
	}
	if c.Database.Path == "" {
		c.Database.Path = "capstone.db"
	}
	if c.Sweep.PollInterval == 0 {
		c.Sweep.PollInterval = time.Minute
	}
	if c.API.Port == 0 {
		c.API.Port = 8080
	}
	for i := range c.Teams {
		if c.Teams[i].Name == "" {
			c.Teams[i].Name = c.Teams[i].ID
		}
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	if c.Timezone != "" {
		if _, err := time.LoadLocation(c.Timezone); err != nil {
			errs = append(errs, fmt.Sprintf("timezone %q is not a known zone", c.Timezone))
		}
	}
	switch c.Database.Driver {
	case DriverMySQL, DriverSQLite:
	default:
		errs = append(errs, fmt.Sprintf("database.driver must be %s or %s", DriverMySQL, DriverSQLite))
	}
	if c.Database.Port < 0 || c.Database.Port > 65535 {
		errs = append(errs, "database.port must be between 1 and 65535")
	}
	if c.Sweep.Cron != "" {
		if _, err := cronParser.Parse(c.Sweep.Cron); err != nil {
			errs = append(errs, fmt.Sprintf("sweep.cron: %v", err))
		}
	}
	if c.Sweep.PollInterval < 0 {
		errs = append(errs, "sweep.poll_interval must be positive")
	}
	if c.API.Port < 0 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}
	seen := make(map[string]bool)
	for i, t := range c.Teams {
		if t.ID == "" {
			errs = append(errs, fmt.Sprintf("teams[%d].id is required", i))
			continue
		}
		if seen[t.ID] {
			errs = append(errs, fmt.Sprintf("teams[%d].id %q is duplicated", i, t.ID))
		}
		seen[t.ID] = true
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
