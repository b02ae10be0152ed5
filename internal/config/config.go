package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// CalendarConfig declares a calendar that is synced into the database on
// start. URL, when set, is the ICS feed the importer pulls from.
type CalendarConfig struct {
	Slug        string `yaml:"slug" json:"slug" validate:"required,max=200"`
	Name        string `yaml:"name" json:"name" validate:"required,max=200"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	URL         string `yaml:"url,omitempty" json:"url,omitempty" validate:"omitempty,url"`
}

// DatabaseConfig selects the ORM dialect and connection string.
type DatabaseConfig struct {
	// Driver is "sqlite" or "postgres".
	Driver string `yaml:"driver" json:"driver" validate:"oneof=sqlite postgres"`
	// DSN is a file path (or ":memory:") for sqlite and a libpq
	// connection string for postgres.
	DSN string `yaml:"dsn" json:"dsn" validate:"required_if=Driver postgres"`
}

// PaginationConfig holds list view page sizes.
type PaginationConfig struct {
	Events     int `yaml:"events" json:"events" validate:"min=1"`
	Categories int `yaml:"categories" json:"categories" validate:"min=1"`
	Locations  int `yaml:"locations" json:"locations" validate:"min=1"`
}

// ImportConfig controls the periodic ICS import.
type ImportConfig struct {
	// Cron is a standard 5-field cron expression. Empty disables the
	// scheduled import; `eventcal import` still works.
	Cron string `yaml:"cron" json:"cron"`

	// CacheDir holds the per-feed conditional GET cache.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`

	// HorizonDays bounds open-ended RRULEs (no UNTIL and no COUNT).
	HorizonDays int `yaml:"horizon_days" json:"horizon_days" validate:"min=1"`

	// TimeoutSeconds bounds a single feed fetch.
	TimeoutSeconds int `yaml:"timeout_seconds" json:"timeout_seconds" validate:"min=1"`
}

// Timeout returns TimeoutSeconds as a duration.
func (c ImportConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

type LogConfig struct {
	Level  string `yaml:"level" json:"level" validate:"oneof=debug info error"`
	Format string `yaml:"format" json:"format" validate:"oneof=json console"`
}

// BasicAuthConfig protects every route except /health. Either field
// empty disables it.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled" json:"enabled"`
	Namespace string `yaml:"namespace" json:"namespace"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address.
	Listen string `yaml:"listen" json:"listen" validate:"required"`

	// Timezone is the IANA zone used to interpret dates in URLs
	// (e.g. the by-date listing) and for the import schedule.
	Timezone string `yaml:"timezone" json:"timezone" validate:"required"`

	Database   DatabaseConfig   `yaml:"database" json:"database"`
	Pagination PaginationConfig `yaml:"pagination" json:"pagination"`
	Import     ImportConfig     `yaml:"import" json:"import"`
	Log        LogConfig        `yaml:"log" json:"log"`
	Metrics    MetricsConfig    `yaml:"metrics" json:"metrics"`

	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`

	Calendars []CalendarConfig `yaml:"calendars" json:"calendars" validate:"dive"`
}

const (
	defaultListen     = "127.0.0.1:8080"
	defaultTimezone   = "UTC"
	defaultImportCron = "0 * * * *"
	defaultCacheDir   = "./var/ics-cache"
)

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:   defaultListen,
		Timezone: defaultTimezone,
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "./var/eventcal.db",
		},
		Pagination: PaginationConfig{
			Events:     6,
			Categories: 30,
			Locations:  30,
		},
		Import: ImportConfig{
			Cron:           defaultImportCron,
			CacheDir:       defaultCacheDir,
			HorizonDays:    365,
			TimeoutSeconds: 15,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: "eventcal",
		},
		Calendars: []CalendarConfig{},
	}
}

// Normalize fills in missing/zero values so that partially-filled configs
// still behave correctly.
func (c *Config) Normalize() {
	def := DefaultConfig()

	if c.Listen == "" {
		c.Listen = def.Listen
	}
	if c.Timezone == "" {
		c.Timezone = def.Timezone
	}
	if c.Database.Driver == "" {
		c.Database.Driver = def.Database.Driver
	}
	if c.Database.Driver == "sqlite" && c.Database.DSN == "" {
		c.Database.DSN = def.Database.DSN
	}
	if c.Pagination.Events <= 0 {
		c.Pagination.Events = def.Pagination.Events
	}
	if c.Pagination.Categories <= 0 {
		c.Pagination.Categories = def.Pagination.Categories
	}
	if c.Pagination.Locations <= 0 {
		c.Pagination.Locations = def.Pagination.Locations
	}
	if c.Import.CacheDir == "" {
		c.Import.CacheDir = def.Import.CacheDir
	}
	if c.Import.HorizonDays <= 0 {
		c.Import.HorizonDays = def.Import.HorizonDays
	}
	if c.Import.TimeoutSeconds <= 0 {
		c.Import.TimeoutSeconds = def.Import.TimeoutSeconds
	}
	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = def.Log.Format
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = def.Metrics.Namespace
	}
	if c.Calendars == nil {
		c.Calendars = []CalendarConfig{}
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints, the timezone, and calendar slug
// uniqueness.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid config: timezone %q: %w", c.Timezone, err)
	}
	if c.Import.Cron != "" {
		if _, err := cron.ParseStandard(c.Import.Cron); err != nil {
			return fmt.Errorf("invalid config: import cron %q: %w", c.Import.Cron, err)
		}
	}
	seen := make(map[string]bool, len(c.Calendars))
	for _, cal := range c.Calendars {
		if seen[cal.Slug] {
			return fmt.Errorf("invalid config: duplicate calendar slug %q", cal.Slug)
		}
		seen[cal.Slug] = true
	}
	return nil
}

// Location resolves Timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written with 0600
//     perms (parent directories created as needed) and returned.
//   - Otherwise the YAML is decoded, normalized and validated.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes cfg to path atomically (temp file + rename in the same
// directory) with 0600 permissions.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".eventcal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}

func (c *Config) Save(path string) error {
	return Save(path, c)
}
