package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "localhost:8080", cfg.ListenAddr)
	assert.Equal(t, "pagegrid.db", cfg.DBPath)
	assert.Equal(t, "slots", cfg.SlotConfigDir)
	assert.True(t, cfg.WatchSlotConfig)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"listen_addr: 0.0.0.0:9000\nlog_level: debug\nwatch_slot_config: false\n",
	), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9000", cfg.ListenAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.False(t, cfg.WatchSlotConfig)
	// Unset keys keep defaults.
	assert.Equal(t, "pagegrid.db", cfg.DBPath)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PAGEGRID_LISTEN_ADDR", "localhost:7070")
	t.Setenv("PAGEGRID_LOG_LEVEL", "warn")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "localhost:7070", cfg.ListenAddr)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestLoadRejectsBadLogLevel(t *testing.T) {
	t.Setenv("PAGEGRID_LOG_LEVEL", "loud")
	_, err := Load("")
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
