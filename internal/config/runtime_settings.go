package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/robfig/cron/v3"
)

// RuntimeSettings are the operational knobs that may change without a
// restart. Jobs read the current values at run start; updates are
// validated and persisted atomically.
type RuntimeSettings struct {
	NewsQueries []string `json:"news_queries"`
	Subreddits  []string `json:"subreddits"`
	MaxRecords  int      `json:"max_records"`
	BatchSize   int      `json:"batch_size"`
	CronExpr    string   `json:"cron_expr"`
}

func (s RuntimeSettings) Validate() error {
	if len(s.NewsQueries) == 0 {
		return fmt.Errorf("news_queries must not be empty")
	}
	if len(s.Subreddits) == 0 {
		return fmt.Errorf("subreddits must not be empty")
	}
	if s.MaxRecords <= 0 {
		return fmt.Errorf("max_records must be positive")
	}
	if s.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be positive")
	}
	if s.CronExpr != "" {
		if _, err := cron.ParseStandard(s.CronExpr); err != nil {
			return fmt.Errorf("invalid cron_expr: %w", err)
		}
	}
	return nil
}

// RuntimeSettings derives the initial runtime settings from the boot
// configuration.
func (c *Config) RuntimeSettings() RuntimeSettings {
	return RuntimeSettings{
		NewsQueries: c.Sources.NewsQueries,
		Subreddits:  c.Sources.Subreddits,
		MaxRecords:  c.Sources.MaxRecords,
		BatchSize:   c.Analysis.BatchSize,
		CronExpr:    c.Schedule.CronExpr,
	}
}

// WithRuntimeSettings overlays persisted settings onto a Config; blank
// fields keep the configured value.
func WithRuntimeSettings(settings RuntimeSettings) Option {
	return func(c *Config) {
		if len(settings.NewsQueries) > 0 {
			c.Sources.NewsQueries = settings.NewsQueries
		}
		if len(settings.Subreddits) > 0 {
			c.Sources.Subreddits = settings.Subreddits
		}
		if settings.MaxRecords > 0 {
			c.Sources.MaxRecords = settings.MaxRecords
		}
		if settings.BatchSize > 0 {
			c.Analysis.BatchSize = settings.BatchSize
		}
		if settings.CronExpr != "" {
			c.Schedule.CronExpr = settings.CronExpr
		}
	}
}

func LoadRuntimeSettingsFile(path string) (RuntimeSettings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RuntimeSettings{}, err
	}
	var settings RuntimeSettings
	if err := json.Unmarshal(data, &settings); err != nil {
		return RuntimeSettings{}, fmt.Errorf("invalid settings file: %w", err)
	}
	return settings, nil
}

func WriteRuntimeSettingsFile(path string, settings RuntimeSettings) error {
	if err := settings.Validate(); err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	content, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return err
	}
	content = append(content, '\n')

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, content, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}

// RuntimeSettingsStore keeps the current settings in memory and mirrors
// every accepted update to the settings file.
type RuntimeSettingsStore struct {
	path string

	mu      sync.RWMutex
	current RuntimeSettings
}

func NewRuntimeSettingsStore(path string, initial RuntimeSettings) (*RuntimeSettingsStore, error) {
	if path == "" {
		return nil, fmt.Errorf("settings file path is required")
	}
	if err := initial.Validate(); err != nil {
		return nil, err
	}
	return &RuntimeSettingsStore{
		path:    path,
		current: initial,
	}, nil
}

func (s *RuntimeSettingsStore) Get() RuntimeSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

func (s *RuntimeSettingsStore) Update(next RuntimeSettings) (RuntimeSettings, error) {
	if err := next.Validate(); err != nil {
		return RuntimeSettings{}, err
	}
	if err := WriteRuntimeSettingsFile(s.path, next); err != nil {
		return RuntimeSettings{}, err
	}

	s.mu.Lock()
	s.current = next
	s.mu.Unlock()
	return next, nil
}
