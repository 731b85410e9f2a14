// Package config holds the immutable run configuration.
// Config is loaded once at startup from an optional YAML file plus
// environment overrides, validated, and never mutated afterward; the retry
// layer copies the values it needs at construction.
package config

import (
	"fmt"
	"time"
)

// Default values applied when neither the config file nor the environment
// provides a setting.
const (
	DefaultModel                   = "claude-sonnet-4-5"
	DefaultOllamaHost              = "http://localhost:11434"
	DefaultMaxRetries              = 5
	DefaultRequestTimeoutSeconds   = 180
	DefaultInitialBackoffSeconds   = 2
	DefaultMaxBackoffSeconds       = 60
	DefaultJitterFraction          = 0.5
	DefaultPreflightTimeoutSeconds = 10
	DefaultMaxFixCycles            = 3
	DefaultEventLogDir             = "logs"
	DefaultDatabasePath            = "conductor.db"
)

// Config is the complete run configuration.
type Config struct {
	Model      string `yaml:"model"`
	OllamaHost string `yaml:"ollama_host"`

	MaxRetries              int     `yaml:"max_retries"`
	RequestTimeoutSeconds   int     `yaml:"request_timeout_seconds"`
	InitialBackoffSeconds   int     `yaml:"initial_backoff_seconds"`
	MaxBackoffSeconds       int     `yaml:"max_backoff_seconds"`
	JitterFraction          float64 `yaml:"jitter_fraction"`
	PreflightTimeoutSeconds int     `yaml:"preflight_timeout_seconds"`

	SkipPreflight bool `yaml:"skip_preflight"`
	MaxFixCycles  int  `yaml:"max_fix_cycles"`

	EventLogDir  string `yaml:"event_log_dir"`
	DatabasePath string `yaml:"database_path"`
}

// Default returns a Config with every field at its default.
func Default() Config {
	return Config{
		Model:                   DefaultModel,
		OllamaHost:              DefaultOllamaHost,
		MaxRetries:              DefaultMaxRetries,
		RequestTimeoutSeconds:   DefaultRequestTimeoutSeconds,
		InitialBackoffSeconds:   DefaultInitialBackoffSeconds,
		MaxBackoffSeconds:       DefaultMaxBackoffSeconds,
		JitterFraction:          DefaultJitterFraction,
		PreflightTimeoutSeconds: DefaultPreflightTimeoutSeconds,
		MaxFixCycles:            DefaultMaxFixCycles,
		EventLogDir:             DefaultEventLogDir,
		DatabasePath:            DefaultDatabasePath,
	}
}

// Validate rejects configurations that cannot produce a working run.
func (c Config) Validate() error {
	if c.Model == "" {
		return fmt.Errorf("model cannot be empty")
	}
	if c.MaxRetries < 1 {
		return fmt.Errorf("max_retries must be at least 1, got %d", c.MaxRetries)
	}
	if c.RequestTimeoutSeconds <= 0 {
		return fmt.Errorf("request_timeout_seconds must be positive, got %d", c.RequestTimeoutSeconds)
	}
	if c.InitialBackoffSeconds <= 0 {
		return fmt.Errorf("initial_backoff_seconds must be positive, got %d", c.InitialBackoffSeconds)
	}
	if c.MaxBackoffSeconds < c.InitialBackoffSeconds {
		return fmt.Errorf("max_backoff_seconds %d is below initial_backoff_seconds %d",
			c.MaxBackoffSeconds, c.InitialBackoffSeconds)
	}
	if c.JitterFraction < 0 || c.JitterFraction > 1 {
		return fmt.Errorf("jitter_fraction must be in [0, 1], got %v", c.JitterFraction)
	}
	if c.PreflightTimeoutSeconds <= 0 {
		return fmt.Errorf("preflight_timeout_seconds must be positive, got %d", c.PreflightTimeoutSeconds)
	}
	if c.MaxFixCycles < 1 {
		return fmt.Errorf("max_fix_cycles must be at least 1, got %d", c.MaxFixCycles)
	}
	return nil
}

// RequestTimeout returns the per-attempt timeout as a duration.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// InitialBackoff returns the base backoff as a duration.
func (c Config) InitialBackoff() time.Duration {
	return time.Duration(c.InitialBackoffSeconds) * time.Second
}

// MaxBackoff returns the backoff cap as a duration.
func (c Config) MaxBackoff() time.Duration {
	return time.Duration(c.MaxBackoffSeconds) * time.Second
}

// PreflightTimeout returns the probe timeout as a duration.
func (c Config) PreflightTimeout() time.Duration {
	return time.Duration(c.PreflightTimeoutSeconds) * time.Second
}
