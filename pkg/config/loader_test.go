package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 5, cfg.MaxRetries)
	assert.Equal(t, 180*time.Second, cfg.RequestTimeout())
	assert.Equal(t, 2*time.Second, cfg.InitialBackoff())
	assert.Equal(t, 60*time.Second, cfg.MaxBackoff())
	assert.Equal(t, 0.5, cfg.JitterFraction)
	assert.False(t, cfg.SkipPreflight)
	assert.Equal(t, 3, cfg.MaxFixCycles)
	assert.NoError(t, cfg.Validate())
}

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte(`
model: gpt-4o
max_retries: 7
request_timeout_seconds: 90
skip_preflight: true
`)
	require.NoError(t, os.WriteFile(path, content, 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", cfg.Model)
	assert.Equal(t, 7, cfg.MaxRetries)
	assert.Equal(t, 90*time.Second, cfg.RequestTimeout())
	assert.True(t, cfg.SkipPreflight)
	// Untouched fields keep defaults.
	assert.Equal(t, DefaultInitialBackoffSeconds, cfg.InitialBackoffSeconds)
}

func TestEnvOverridesBeatFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_retries: 7\n"), 0644))

	t.Setenv(EnvMaxRetries, "2")
	t.Setenv(EnvRequestTimeoutSeconds, "30")
	t.Setenv(EnvSkipPreflight, "true")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.MaxRetries)
	assert.Equal(t, 30, cfg.RequestTimeoutSeconds)
	assert.True(t, cfg.SkipPreflight)
}

func TestEnvOverrideRejectsGarbage(t *testing.T) {
	t.Setenv(EnvMaxRetries, "lots")
	_, err := Load("")
	assert.Error(t, err)
}

func TestEnvSkipPreflightRejectsNonBoolean(t *testing.T) {
	t.Setenv(EnvSkipPreflight, "maybe")
	_, err := Load("")
	assert.Error(t, err)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_retries: 0\n"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty model", func(c *Config) { c.Model = "" }},
		{"zero timeout", func(c *Config) { c.RequestTimeoutSeconds = 0 }},
		{"cap below base", func(c *Config) { c.MaxBackoffSeconds = 1 }},
		{"jitter out of range", func(c *Config) { c.JitterFraction = 2 }},
		{"zero fix cycles", func(c *Config) { c.MaxFixCycles = 0 }},
		{"zero preflight timeout", func(c *Config) { c.PreflightTimeoutSeconds = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
