package main

import (
	"flag"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bikeshare-platform/internal/config"
)

func newFlagSet() *flag.FlagSet {
	fs := flag.NewFlagSet("bikeshare", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func TestApplyFlags_DefaultsComeFromConfig(t *testing.T) {
	t.Setenv("BIKESHARE_LOGGING_LEVEL", "error")
	t.Setenv("BIKESHARE_DATA_DIR", "/srv/trips")

	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	exportDir, err := applyFlags(newFlagSet(), nil, cfg)
	require.NoError(t, err)
	assert.Empty(t, exportDir)
	assert.Equal(t, "error", cfg.Logging.Level)
	assert.Equal(t, "/srv/trips", cfg.Data.Dir)
}

func TestApplyFlags_Overrides(t *testing.T) {
	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	exportDir, err := applyFlags(newFlagSet(), []string{"-log-level", "debug", "-data-dir", "./fixtures", "-export", "out"}, cfg)
	require.NoError(t, err)
	assert.Equal(t, "out", exportDir)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "./fixtures", cfg.Data.Dir)
}

func TestApplyFlags_RejectsUnknownLevel(t *testing.T) {
	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	_, err = applyFlags(newFlagSet(), []string{"-log-level", "loud"}, cfg)
	assert.Error(t, err)
}
