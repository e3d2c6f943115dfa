// Package config manages application configuration.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"

	"ytcollect/internal/retry"
	"ytcollect/internal/sink"
)

// ErrMissingCredential is returned when no Data API key is configured.
var ErrMissingCredential = errors.New("config: YOUTUBE_API_KEY is not set")

// Duration is a time.Duration that reads "1s"-style strings from JSON.
type Duration time.Duration

// UnmarshalJSON accepts a duration string or a number of nanoseconds.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		v, err := time.ParseDuration(s)
		if err != nil {
			return err
		}
		*d = Duration(v)
		return nil
	}
	var n int64
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("invalid duration %s", b)
	}
	*d = Duration(n)
	return nil
}

// MarshalJSON writes the duration as a string.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// Config holds all application configuration for a collection run.
type Config struct {
	// APIKey is the YouTube Data API v3 key. Only read from the environment.
	APIKey string `json:"-"`
	// RegionCode selects the popular chart (default: "JP")
	RegionCode string `json:"region_code"`
	// CategoriesPath points at the category list file.
	CategoriesPath string `json:"categories_path"`
	// QuotaCeiling bounds discovery pages per category.
	QuotaCeiling int `json:"quota_ceiling"`
	// PacingInterval is the minimum gap between Data API requests.
	PacingInterval Duration `json:"pacing_interval"`
	// RequestTimeout bounds a single API request.
	RequestTimeout Duration `json:"request_timeout"`

	// MaxRetries is the maximum number of retries for failed calls
	MaxRetries int `json:"max_retries"`
	// InitialBackoff is the initial backoff duration for retries
	InitialBackoff Duration `json:"initial_backoff"`
	// MaxBackoff is the maximum backoff duration for retries
	MaxBackoff Duration `json:"max_backoff"`

	// SnapshotBackend is one of sink.Backends.
	SnapshotBackend string `json:"snapshot_backend"`
	SnapshotDir     string `json:"snapshot_dir"`
	SnapshotDSN     string `json:"snapshot_dsn"`
	// SnapshotDatabase names the MongoDB database.
	SnapshotDatabase string `json:"snapshot_database"`

	WebhookURL       string `json:"webhook_url"`
	TelegramToken    string `json:"telegram_token"`
	TelegramChatID   int64  `json:"telegram_chat_id"`
	NotifySampleSize int    `json:"notify_sample_size"`

	MetricsTextfile string `json:"metrics_textfile"`
	LogLevel        string `json:"log_level"`
	LogFormat       string `json:"log_format"`
}

// DefaultConfig returns configuration with safe defaults.
func DefaultConfig() *Config {
	return &Config{
		RegionCode:       "JP",
		CategoriesPath:   filepath.Join("config", "category_ids.json"),
		QuotaCeiling:     4,
		PacingInterval:   Duration(time.Second),
		RequestTimeout:   Duration(30 * time.Second),
		MaxRetries:       2,
		InitialBackoff:   Duration(time.Second),
		MaxBackoff:       Duration(30 * time.Second),
		SnapshotBackend:  sink.BackendFile,
		SnapshotDir:      filepath.Join(xdg.DataHome, "ytcollect", "snapshots"),
		SnapshotDatabase: "ytcollect",
		NotifySampleSize: 10,
		LogLevel:         "info",
		LogFormat:        "json",
	}
}

// Load loads configuration from environment variables, config file, and applies defaults.
// Priority: env vars > config file > defaults. A .env file in the working
// directory is merged into the environment first.
func Load() (*Config, error) {
	cfg, err := Read()
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Read resolves configuration like Load without validating it. Commands that
// never call the Data API use it so they work without a key.
func Read() (*Config, error) {
	_ = godotenv.Load()

	cfg := DefaultConfig()

	if err := cfg.loadFromFile(); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	if err := cfg.loadFromEnv(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// configPaths lists the config file locations in lookup order.
func configPaths() []string {
	return []string{
		"ytcollect.json",
		filepath.Join(xdg.ConfigHome, "ytcollect", "ytcollect.json"),
	}
}

func (c *Config) loadFromFile() error {
	for _, path := range configPaths() {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return err
		}

		if err := json.Unmarshal(data, c); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		return nil
	}

	return os.ErrNotExist
}

// loadFromEnv overrides config with environment variables. Unlike the file,
// a malformed numeric or duration value is an error.
func (c *Config) loadFromEnv() error {
	c.APIKey = strings.TrimSpace(os.Getenv("YOUTUBE_API_KEY"))

	strs := map[string]*string{
		"YTCOLLECT_REGION":           &c.RegionCode,
		"YTCOLLECT_CATEGORIES":       &c.CategoriesPath,
		"YTCOLLECT_SNAPSHOT_BACKEND": &c.SnapshotBackend,
		"YTCOLLECT_SNAPSHOT_DIR":     &c.SnapshotDir,
		"YTCOLLECT_SNAPSHOT_DSN":     &c.SnapshotDSN,
		"YTCOLLECT_SNAPSHOT_DB":      &c.SnapshotDatabase,
		"YTCOLLECT_WEBHOOK_URL":      &c.WebhookURL,
		"YTCOLLECT_TELEGRAM_TOKEN":   &c.TelegramToken,
		"YTCOLLECT_METRICS_TEXTFILE": &c.MetricsTextfile,
		"YTCOLLECT_LOG_LEVEL":        &c.LogLevel,
		"YTCOLLECT_LOG_FORMAT":       &c.LogFormat,
	}
	for key, dst := range strs {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"YTCOLLECT_QUOTA_CEILING": &c.QuotaCeiling,
		"YTCOLLECT_MAX_RETRIES":   &c.MaxRetries,
		"YTCOLLECT_NOTIFY_SAMPLE": &c.NotifySampleSize,
	}
	for key, dst := range ints {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = n
		}
	}

	durations := map[string]*Duration{
		"YTCOLLECT_PACING_INTERVAL": &c.PacingInterval,
		"YTCOLLECT_REQUEST_TIMEOUT": &c.RequestTimeout,
		"YTCOLLECT_INITIAL_BACKOFF": &c.InitialBackoff,
		"YTCOLLECT_MAX_BACKOFF":     &c.MaxBackoff,
	}
	for key, dst := range durations {
		if v := os.Getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = Duration(d)
		}
	}

	if v := os.Getenv("YTCOLLECT_TELEGRAM_CHAT_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("YTCOLLECT_TELEGRAM_CHAT_ID: %w", err)
		}
		c.TelegramChatID = id
	}
	return nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return ErrMissingCredential
	}
	if c.RegionCode == "" {
		return fmt.Errorf("region_code must not be empty")
	}
	if c.CategoriesPath == "" {
		return fmt.Errorf("categories_path must not be empty")
	}
	if c.PacingInterval <= 0 {
		return fmt.Errorf("pacing_interval must be positive")
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("request_timeout must be non-negative")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max_retries must be non-negative")
	}
	if c.InitialBackoff <= 0 {
		return fmt.Errorf("initial_backoff must be positive")
	}
	if c.MaxBackoff < c.InitialBackoff {
		return fmt.Errorf("max_backoff must be >= initial_backoff")
	}
	if c.NotifySampleSize < 0 {
		return fmt.Errorf("notify_sample_size must be non-negative")
	}
	if !slices.Contains(sink.Backends, c.SnapshotBackend) {
		return fmt.Errorf("unknown snapshot_backend %q", c.SnapshotBackend)
	}
	switch c.SnapshotBackend {
	case sink.BackendPostgres, sink.BackendMongo, sink.BackendRedis:
		if c.SnapshotDSN == "" {
			return fmt.Errorf("snapshot_dsn is required for the %s backend", c.SnapshotBackend)
		}
	case sink.BackendFile:
		if c.SnapshotDir == "" {
			return fmt.Errorf("snapshot_dir must not be empty")
		}
	}
	if (c.TelegramToken == "") != (c.TelegramChatID == 0) {
		return fmt.Errorf("telegram_token and telegram_chat_id must be set together")
	}
	return nil
}

// SinkConfig returns the snapshot backend settings.
func (c *Config) SinkConfig() sink.Config {
	return sink.Config{
		Backend:  c.SnapshotBackend,
		Dir:      c.SnapshotDir,
		DSN:      c.SnapshotDSN,
		Database: c.SnapshotDatabase,
	}
}

// RetryConfig returns the retry policy for Data API and webhook calls.
func (c *Config) RetryConfig() retry.Config {
	r := retry.DefaultConfig()
	r.MaxRetries = c.MaxRetries
	r.InitialBackoff = time.Duration(c.InitialBackoff)
	r.MaxBackoff = time.Duration(c.MaxBackoff)
	return r
}
