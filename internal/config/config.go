package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/seligo/sentiment-pulse/pkg/log"
	"golang.org/x/text/language"
)

// Config holds all application configuration.
// Values come from environment variables with sensible defaults.
//
// Environment Variables:
// HTTP Configuration:
// - HTTP_ADDR: listen address (default: :8080)
// - UI_STATIC_DIR: directory of static UI assets; serving is enabled
//   only when set
//
// System Configuration:
// - DATA_DIR: working directory for CSV files, settings and history
//   (default: /tmp/ai_sentiment_data)
// - LOG_LEVEL: debug|info|warn|error (default: info)
//
// LLM Configuration:
// - LLM_API_KEY: API key for the LLM provider (required)
// - LLM_API_URL: API base URL (default: provider default)
// - LLM_MODEL: model name (default: gpt-4o-mini)
// - LLM_MAX_TOKENS: max completion tokens per batch (default: 2000)
// - LLM_TEMPERATURE: sampling temperature (default: 0.0)
// - LLM_TIMEOUT: request timeout in seconds (default: 60)
//
// Source Configuration:
// - NEWS_API_KEY: NewsAPI key (fetch fails at run time when unset)
// - NEWS_API_URL: NewsAPI endpoint (default: https://newsapi.org/v2/everything)
// - NEWS_QUERIES: comma-separated search queries
// - REDDIT_BASE_URL: Reddit base URL (default: https://www.reddit.com)
// - REDDIT_SUBREDDITS: comma-separated subreddit names
// - SOURCE_USER_AGENT: User-Agent for source requests
// - MAX_RECORDS: per-source record budget per run (default: 30)
// - FETCH_TIMEOUT: per-request timeout in seconds (default: 20)
//
// Analysis Configuration:
// - ANALYSIS_BATCH_SIZE: texts per LLM call (default: 5)
// - ANALYSIS_LANGUAGE: BCP-47 tag of analyzable text (default: en)
//
// Forecast Configuration:
// - FORECAST_WINDOW_DAYS: trailing aggregation window (default: 90)
// - FORECAST_HORIZON_DAYS: days forecast past last observation (default: 14)
//
// Notification Configuration:
// - SLACK_WEBHOOK_URL: incoming webhook; notifications are skipped when unset
// - SLACK_TIMEOUT: webhook post timeout in seconds (default: 5)
//
// Schedule Configuration:
// - CRON_EXPR: standard cron expression for automatic pipeline runs;
//   empty disables scheduling
// - SETTINGS_FILE: runtime settings file (default: DATA_DIR/settings.json)

type Config struct {
	HTTP     HTTPConfig     `json:"http"`
	System   SystemConfig   `json:"system"`
	LLM      LLMConfig      `json:"llm"`
	Sources  SourcesConfig  `json:"sources"`
	Analysis AnalysisConfig `json:"analysis"`
	Forecast ForecastConfig `json:"forecast"`
	Notify   NotifyConfig   `json:"notify"`
	Schedule ScheduleConfig `json:"schedule"`
}

type HTTPConfig struct {
	Addr        string `json:"addr"`
	UIStaticDir string `json:"ui_static_dir"`
	UIEnabled   bool   `json:"ui_enabled"`
}

type SystemConfig struct {
	DataDir  string `json:"data_dir"`
	LogLevel string `json:"log_level"`
}

// LLMConfig holds the configuration for the sentiment analyzer's LLM
// backend. Any OpenAI-compatible provider works through the base URL.
type LLMConfig struct {
	APIKey      string  `json:"api_key"`
	APIURL      string  `json:"api_url"`
	Model       string  `json:"model"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
	Timeout     int     `json:"timeout"`
}

// SourcesConfig holds the configuration for the two external record
// sources consumed by the pipeline.
type SourcesConfig struct {
	NewsAPIKey    string   `json:"news_api_key"`
	NewsAPIURL    string   `json:"news_api_url"`
	NewsQueries   []string `json:"news_queries"`
	RedditBaseURL string   `json:"reddit_base_url"`
	Subreddits    []string `json:"subreddits"`
	UserAgent     string   `json:"user_agent"`
	MaxRecords    int      `json:"max_records"`
	Timeout       int      `json:"timeout"`
}

type AnalysisConfig struct {
	BatchSize int          `json:"batch_size"`
	Language  language.Tag `json:"language"`
}

type ForecastConfig struct {
	WindowDays  int `json:"window_days"`
	HorizonDays int `json:"horizon_days"`
}

type NotifyConfig struct {
	SlackWebhookURL string `json:"slack_webhook_url"`
	Timeout         int    `json:"timeout"`
}

type ScheduleConfig struct {
	CronExpr     string `json:"cron_expr"`
	SettingsFile string `json:"settings_file"`
}

// Option is a function type for configuring Config
type Option func(*Config)

// NewFromEnv creates a new Config instance with values from environment
// variables and options.
func NewFromEnv(opts ...Option) (*Config, error) {
	config := &Config{
		HTTP: HTTPConfig{
			Addr:        getEnvString("HTTP_ADDR", ":8080"),
			UIStaticDir: getEnvString("UI_STATIC_DIR", ""),
		},
		System: SystemConfig{
			DataDir:  getEnvString("DATA_DIR", "/tmp/ai_sentiment_data"),
			LogLevel: getEnvString("LOG_LEVEL", "info"),
		},
		LLM: LLMConfig{
			APIKey:      getEnvString("LLM_API_KEY", ""),
			APIURL:      getEnvString("LLM_API_URL", ""),
			Model:       getEnvString("LLM_MODEL", "gpt-4o-mini"),
			MaxTokens:   getEnvInt("LLM_MAX_TOKENS", 2000),
			Temperature: getEnvFloat("LLM_TEMPERATURE", 0.0),
			Timeout:     getEnvInt("LLM_TIMEOUT", 60),
		},
		Sources: SourcesConfig{
			NewsAPIKey:    getEnvString("NEWS_API_KEY", ""),
			NewsAPIURL:    getEnvString("NEWS_API_URL", "https://newsapi.org/v2/everything"),
			NewsQueries:   getEnvStringSlice("NEWS_QUERIES", []string{"artificial intelligence", "machine learning", "AI stocks"}),
			RedditBaseURL: getEnvString("REDDIT_BASE_URL", "https://www.reddit.com"),
			Subreddits:    getEnvStringSlice("REDDIT_SUBREDDITS", []string{"artificial", "MachineLearning", "technology"}),
			UserAgent:     getEnvString("SOURCE_USER_AGENT", "sentiment-pulse/1.0"),
			MaxRecords:    getEnvInt("MAX_RECORDS", 30),
			Timeout:       getEnvInt("FETCH_TIMEOUT", 20),
		},
		Analysis: AnalysisConfig{
			BatchSize: getEnvInt("ANALYSIS_BATCH_SIZE", 5),
			Language:  language.English,
		},
		Forecast: ForecastConfig{
			WindowDays:  getEnvInt("FORECAST_WINDOW_DAYS", 90),
			HorizonDays: getEnvInt("FORECAST_HORIZON_DAYS", 14),
		},
		Notify: NotifyConfig{
			SlackWebhookURL: getEnvString("SLACK_WEBHOOK_URL", ""),
			Timeout:         getEnvInt("SLACK_TIMEOUT", 5),
		},
		Schedule: ScheduleConfig{
			CronExpr:     getEnvString("CRON_EXPR", ""),
			SettingsFile: getEnvString("SETTINGS_FILE", ""),
		},
	}

	config.HTTP.UIEnabled = config.HTTP.UIStaticDir != ""

	if raw := getEnvString("ANALYSIS_LANGUAGE", ""); raw != "" {
		tag, err := language.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid ANALYSIS_LANGUAGE: %w", err)
		}
		config.Analysis.Language = tag
	}

	// Apply custom options
	for _, opt := range opts {
		opt(config)
	}

	// Validate required configuration
	if err := config.validate(); err != nil {
		return nil, err
	}

	log.Debug("Config loaded: addr=%s data_dir=%s", config.HTTP.Addr, config.System.DataDir)

	return config, nil
}

// validate checks if all required configuration is properly set
func (c *Config) validate() error {
	if c.LLM.APIKey == "" {
		return fmt.Errorf("LLM_API_KEY is required")
	}
	if c.System.DataDir == "" {
		return fmt.Errorf("DATA_DIR is required")
	}
	if c.Sources.MaxRecords <= 0 {
		return fmt.Errorf("MAX_RECORDS must be positive")
	}
	if c.Analysis.BatchSize <= 0 {
		return fmt.Errorf("ANALYSIS_BATCH_SIZE must be positive")
	}
	if c.Forecast.WindowDays <= 0 {
		return fmt.Errorf("FORECAST_WINDOW_DAYS must be positive")
	}
	if c.Forecast.HorizonDays <= 0 {
		return fmt.Errorf("FORECAST_HORIZON_DAYS must be positive")
	}
	return nil
}

// RawDataPath is the fixed location of the merged raw table, fully
// overwritten on each pipeline run.
func (c *Config) RawDataPath() string {
	return filepath.Join(c.System.DataDir, "raw_data.csv")
}

// AnalyzedDataPath is the fixed location of the analyzed table.
func (c *Config) AnalyzedDataPath() string {
	return filepath.Join(c.System.DataDir, "analyzed_data.csv")
}

// HistoryDBPath is the sqlite file recording terminal run outcomes.
func (c *Config) HistoryDBPath() string {
	return filepath.Join(c.System.DataDir, "history.db")
}

// SettingsFilePath resolves the runtime settings file, defaulting to a
// file inside the data directory.
func (c *Config) SettingsFilePath() string {
	if c.Schedule.SettingsFile != "" {
		return c.Schedule.SettingsFile
	}
	return filepath.Join(c.System.DataDir, "settings.json")
}

// getEnvString gets a string value from environment variables with default
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer value from environment variables with default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvFloat gets a float value from environment variables with default
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getEnvStringSlice parses a comma-separated environment variable,
// trimming whitespace and dropping empty items.
func getEnvStringSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var items []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	if len(items) == 0 {
		return defaultValue
	}
	return items
}
