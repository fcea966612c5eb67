package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, DefaultCancelCheckInterval, cfg.CancelCheckInterval)
	assert.True(t, cfg.CompressPersistence)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.yaml")

	cfg := Default()
	cfg.IgnoreDirs = []string{"/proc", "/sys"}
	cfg.MaxResults = 50

	require.NoError(t, Save(path, cfg))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.IgnoreDirs, got.IgnoreDirs)
	assert.Equal(t, cfg.MaxResults, got.MaxResults)
}

func TestLoadMissingFileKeepsDefaults(t *testing.T) {
	cfg, err := Load("/nonexistent/path/to/config.yaml")
	assert.Error(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadZeroCancelIntervalFallsBackToDefault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.yaml")
	require.NoError(t, Save(path, Config{}))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultCancelCheckInterval, got.CancelCheckInterval)
}
