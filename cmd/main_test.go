package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seligo/sentiment-pulse/internal/config"
)

func TestSettingsOverlayMissingFile(t *testing.T) {
	t.Setenv("SETTINGS_FILE", filepath.Join(t.TempDir(), "absent.json"))

	assert.Empty(t, settingsOverlay())
}

func TestSettingsOverlayAppliesSavedSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	saved := config.RuntimeSettings{
		NewsQueries: []string{"quantum computing"},
		Subreddits:  []string{"science"},
		MaxRecords:  12,
		BatchSize:   3,
		CronExpr:    "0 * * * *",
	}
	require.NoError(t, config.WriteRuntimeSettingsFile(path, saved))
	t.Setenv("SETTINGS_FILE", path)
	t.Setenv("LLM_API_KEY", "test-key")

	opts := settingsOverlay()
	require.Len(t, opts, 1)

	cfg, err := config.NewFromEnv(opts...)
	require.NoError(t, err)
	assert.Equal(t, []string{"quantum computing"}, cfg.Sources.NewsQueries)
	assert.Equal(t, []string{"science"}, cfg.Sources.Subreddits)
	assert.Equal(t, 12, cfg.Sources.MaxRecords)
	assert.Equal(t, 3, cfg.Analysis.BatchSize)
	assert.Equal(t, "0 * * * *", cfg.Schedule.CronExpr)
}
