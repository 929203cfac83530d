// Tastemap - Restaurant Recommendation and Ranking Service
// Copyright 2026 Tastemap Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tastemap/tastemap

// Package config loads service configuration with koanf: struct defaults
// first, then an optional YAML file, then TASTEMAP_* environment
// variables with the highest priority.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/tastemap/tastemap/internal/recommend"
)

// DefaultConfigPaths lists the paths where config files are searched in
// order of priority. The first file found is used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/tastemap/config.yaml",
	"/etc/tastemap/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "TASTEMAP_CONFIG_PATH"

// envPrefix is stripped from environment variables before mapping them
// to config keys: TASTEMAP_SERVER_PORT -> server.port.
const envPrefix = "TASTEMAP_"

// Config is the full service configuration.
type Config struct {
	// Server configures the HTTP listener.
	Server ServerConfig `koanf:"server"`

	// Logging configures the global logger.
	Logging LoggingConfig `koanf:"logging"`

	// Data locates the reference-data and model artifact files.
	Data DataConfig `koanf:"data"`

	// Sync configures the background snapshot rebuild worker.
	Sync SyncConfig `koanf:"sync"`

	// Feedback configures served-result persistence.
	Feedback FeedbackConfig `koanf:"feedback"`

	// Engine holds the recommendation engine tunables. Deep engine keys
	// are file-only; the env transform covers the flat sections.
	Engine recommend.Config `koanf:"engine"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	// Host is the bind address.
	Host string `koanf:"host"`

	// Port is the listen port.
	Port int `koanf:"port"`

	// Timeout bounds request handling.
	Timeout time.Duration `koanf:"timeout"`

	// CORSOrigins lists allowed CORS origins.
	CORSOrigins []string `koanf:"cors_origins"`

	// RateLimitReqs is the per-IP request budget per window.
	RateLimitReqs int `koanf:"rate_limit_reqs"`

	// RateLimitWindow is the rate limit window.
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
}

// LoggingConfig configures the global logger.
type LoggingConfig struct {
	// Level is the minimum log level.
	Level string `koanf:"level"`

	// Format is json or console.
	Format string `koanf:"format"`

	// Caller includes caller info in log lines.
	Caller bool `koanf:"caller"`
}

// DataConfig locates reference data and trained artifacts on disk.
type DataConfig struct {
	// Dir is the base directory for the data files.
	Dir string `koanf:"dir"`

	// RestaurantsFile is the restaurant reference table (JSON).
	RestaurantsFile string `koanf:"restaurants_file"`

	// ProfilesFile is the user profile table (JSON).
	ProfilesFile string `koanf:"profiles_file"`

	// InteractionsFile is the rating history (JSON).
	InteractionsFile string `koanf:"interactions_file"`

	// ModelFile is the trained predictor artifact file (JSON).
	ModelFile string `koanf:"model_file"`
}

// SyncConfig configures the snapshot rebuild worker.
type SyncConfig struct {
	// Interval is the time between snapshot rebuilds.
	Interval time.Duration `koanf:"interval"`

	// RetryAttempts bounds rebuild retries after a provider failure.
	RetryAttempts int `koanf:"retry_attempts"`

	// RetryDelay is the initial backoff delay; it doubles per attempt.
	RetryDelay time.Duration `koanf:"retry_delay"`

	// SyncOnStart triggers an immediate rebuild at startup.
	SyncOnStart bool `koanf:"sync_on_start"`
}

// FeedbackConfig configures persistence of served recommendations.
type FeedbackConfig struct {
	// Enabled toggles the feedback store.
	Enabled bool `koanf:"enabled"`

	// Path is the BadgerDB directory.
	Path string `koanf:"path"`

	// RetentionDays is how long served results are kept.
	RetentionDays int `koanf:"retention_days"`
}

// defaultConfig returns the configuration defaults, applied before file
// and environment overrides.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8093,
			Timeout:         30 * time.Second,
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   100,
			RateLimitWindow: 1 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Data: DataConfig{
			Dir:              "/data/tastemap",
			RestaurantsFile:  "restaurants.json",
			ProfilesFile:     "profiles.json",
			InteractionsFile: "interactions.json",
			ModelFile:        "model.json",
		},
		Sync: SyncConfig{
			Interval:      1 * time.Hour,
			RetryAttempts: 5,
			RetryDelay:    2 * time.Second,
			SyncOnStart:   true,
		},
		Feedback: FeedbackConfig{
			Enabled:       true,
			Path:          "/data/tastemap/feedback",
			RetentionDays: 30,
		},
		Engine: recommend.DefaultConfig(),
	}
}

// Load builds the configuration from defaults, an optional YAML file,
// and TASTEMAP_* environment variables, then validates it.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("loading environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks operational invariants. Engine tunables validate
// themselves.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("server.timeout must be positive")
	}
	if c.Sync.Interval <= 0 {
		return fmt.Errorf("sync.interval must be positive")
	}
	if c.Sync.RetryAttempts < 0 {
		return fmt.Errorf("sync.retry_attempts must be non-negative")
	}
	if c.Feedback.Enabled && c.Feedback.Path == "" {
		return fmt.Errorf("feedback.path required when feedback is enabled")
	}
	if err := c.Engine.Validate(); err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	return nil
}

// findConfigFile returns the first existing config file path, honoring
// the TASTEMAP_CONFIG_PATH override.
func findConfigFile() string {
	if path := os.Getenv(ConfigPathEnvVar); path != "" {
		return path
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envTransform maps an environment variable name to a config key:
// TASTEMAP_SERVER_PORT -> server.port. The first underscore after the
// prefix separates the section; the remainder keeps its underscores, so
// TASTEMAP_SYNC_RETRY_ATTEMPTS -> sync.retry_attempts.
func envTransform(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, envPrefix))
	section, rest, found := strings.Cut(key, "_")
	if !found {
		return section
	}
	return section + "." + rest
}
