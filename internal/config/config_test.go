package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func TestNewFromEnv_Defaults(t *testing.T) {
	t.Setenv("LLM_API_KEY", "test-key")

	cfg, err := NewFromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.False(t, cfg.HTTP.UIEnabled)
	assert.Equal(t, "/tmp/ai_sentiment_data", cfg.System.DataDir)
	assert.Equal(t, 30, cfg.Sources.MaxRecords)
	assert.Equal(t, 5, cfg.Analysis.BatchSize)
	assert.Equal(t, language.English, cfg.Analysis.Language)
	assert.Equal(t, 90, cfg.Forecast.WindowDays)
	assert.Equal(t, 14, cfg.Forecast.HorizonDays)
	assert.Empty(t, cfg.Schedule.CronExpr)
}

func TestNewFromEnv_DataPaths(t *testing.T) {
	t.Setenv("LLM_API_KEY", "test-key")
	t.Setenv("DATA_DIR", "/tmp/pulse-data")

	cfg, err := NewFromEnv()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join("/tmp/pulse-data", "raw_data.csv"), cfg.RawDataPath())
	assert.Equal(t, filepath.Join("/tmp/pulse-data", "analyzed_data.csv"), cfg.AnalyzedDataPath())
	assert.Equal(t, filepath.Join("/tmp/pulse-data", "history.db"), cfg.HistoryDBPath())
	assert.Equal(t, filepath.Join("/tmp/pulse-data", "settings.json"), cfg.SettingsFilePath())
}

func TestNewFromEnv_SettingsFileOverride(t *testing.T) {
	t.Setenv("LLM_API_KEY", "test-key")
	t.Setenv("SETTINGS_FILE", "/etc/pulse/settings.json")

	cfg, err := NewFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "/etc/pulse/settings.json", cfg.SettingsFilePath())
}

func TestNewFromEnv_RequiresLLMKey(t *testing.T) {
	t.Setenv("LLM_API_KEY", "")

	_, err := NewFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LLM_API_KEY")
}

func TestNewFromEnv_SliceParsing(t *testing.T) {
	t.Setenv("LLM_API_KEY", "test-key")
	t.Setenv("NEWS_QUERIES", " ai policy , quantum computing ,,")
	t.Setenv("REDDIT_SUBREDDITS", "wallstreetbets")

	cfg, err := NewFromEnv()
	require.NoError(t, err)

	assert.Equal(t, []string{"ai policy", "quantum computing"}, cfg.Sources.NewsQueries)
	assert.Equal(t, []string{"wallstreetbets"}, cfg.Sources.Subreddits)
}

func TestNewFromEnv_InvalidLanguage(t *testing.T) {
	t.Setenv("LLM_API_KEY", "test-key")
	t.Setenv("ANALYSIS_LANGUAGE", "not-a-language-tag!!")

	_, err := NewFromEnv()
	assert.Error(t, err)
}

func TestNewFromEnv_UIEnabledWhenDirSet(t *testing.T) {
	t.Setenv("LLM_API_KEY", "test-key")
	t.Setenv("UI_STATIC_DIR", "/srv/web")

	cfg, err := NewFromEnv()
	require.NoError(t, err)

	assert.True(t, cfg.HTTP.UIEnabled)
	assert.Equal(t, "/srv/web", cfg.HTTP.UIStaticDir)
}
