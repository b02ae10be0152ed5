package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCreatesDefaultOnFirstRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestLoadNormalizesPartialConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
listen: ":9000"
calendars:
  - slug: python-events
    name: Python Events
    url: https://example.com/python.ics
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Listen)
	assert.Equal(t, "UTC", cfg.Timezone)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 6, cfg.Pagination.Events)
	assert.Equal(t, 30, cfg.Pagination.Categories)
	assert.Equal(t, 30, cfg.Pagination.Locations)
	assert.Equal(t, 365, cfg.Import.HorizonDays)
	assert.Equal(t, 15*time.Second, cfg.Import.Timeout())
	require.Len(t, cfg.Calendars, 1)
	assert.Equal(t, "python-events", cfg.Calendars[0].Slug)
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"bad timezone":    "timezone: Mars/Olympus\n",
		"bad driver":      "database:\n  driver: oracle\n",
		"postgres no dsn": "database:\n  driver: postgres\n",
		"bad url":         "calendars:\n  - slug: a\n    name: A\n    url: not a url\n",
		"missing name":    "calendars:\n  - slug: a\n",
		"duplicate slug":  "calendars:\n  - slug: a\n    name: A\n  - slug: a\n    name: B\n",
		"bad log level":   "log:\n  level: trace\n",
		"bad cron":        "import:\n  cron: every now and then\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := DefaultConfig()
	cfg.Timezone = "Europe/Amsterdam"
	cfg.Calendars = append(cfg.Calendars, CalendarConfig{Slug: "pycon", Name: "PyCon"})

	require.NoError(t, cfg.Save(path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
	assert.Equal(t, "Europe/Amsterdam", got.Location().String())
}

func TestSaveRejectsEmptyInput(t *testing.T) {
	assert.Error(t, Save("", DefaultConfig()))
	assert.Error(t, Save(filepath.Join(t.TempDir(), "c.yaml"), nil))
}

func TestWatchReloadsOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, Save(path, DefaultConfig()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan *Config, 4)
	require.NoError(t, Watch(ctx, path, func(c *Config) {
		select {
		case reloaded <- c:
		default:
		}
	}))

	next := DefaultConfig()
	next.Listen = ":7777"
	require.NoError(t, Save(path, next))

	select {
	case c := <-reloaded:
		assert.Equal(t, ":7777", c.Listen)
	case <-time.After(5 * time.Second):
		t.Fatal("config change not observed")
	}
}
