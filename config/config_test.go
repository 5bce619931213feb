package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NotNil(t, cfg)
	assert.Equal(t, 60_001*time.Millisecond, cfg.TickTTL)
	assert.Equal(t, 120, cfg.ScheduleAwaitMinutes)
	assert.Equal(t, 10080, cfg.MaxSignalLifetimeMinutes)
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		errMsg  string
	}{
		{"zero tick ttl", func(c *Config) { c.TickTTL = 0 }, "tick_ttl"},
		{"zero schedule minutes", func(c *Config) { c.ScheduleAwaitMinutes = 0 }, "schedule_await_minutes"},
		{"zero lifetime", func(c *Config) { c.MaxSignalLifetimeMinutes = 0 }, "max_signal_lifetime_minutes"},
		{"negative fee", func(c *Config) { c.PercentFee = -1 }, "non-negative"},
		{"stoploss bounds inverted", func(c *Config) { c.MinStopLossDistancePct = 0.2; c.MaxStopLossDistancePct = 0.1 }, "stoploss distance"},
		{"no partial levels", func(c *Config) { c.PartialLevels = nil }, "partial_levels"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestSaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()

	for _, ext := range []string{".json", ".yaml"} {
		t.Run(ext, func(t *testing.T) {
			cfg := Default()
			path := filepath.Join(tmpDir, "test"+ext)

			require.NoError(t, cfg.SaveToFile(path))
			_, err := os.Stat(path)
			require.NoError(t, err)

			loaded, err := LoadFromFile(path)
			require.NoError(t, err)

			assert.Equal(t, cfg.TickTTL, loaded.TickTTL)
			assert.Equal(t, cfg.ScheduleAwaitMinutes, loaded.ScheduleAwaitMinutes)
			assert.Equal(t, cfg.PartialLevels, loaded.PartialLevels)
		})
	}
}

func TestLoadInvalidFile(t *testing.T) {
	_, err := LoadFromFile("/nonexistent/path.yaml")
	assert.Error(t, err)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("TICK_TTL_MS", "5000")
	t.Setenv("SCHEDULE_AWAIT_MINUTES", "30")

	cfg := Default()
	require.NoError(t, LoadEnv(cfg, ""))

	assert.Equal(t, 5*time.Second, cfg.TickTTL)
	assert.Equal(t, 30, cfg.ScheduleAwaitMinutes)
}
