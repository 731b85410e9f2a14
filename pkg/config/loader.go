package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Environment variables recognized by Load. Each overrides the matching
// config file field.
const (
	EnvMaxRetries            = "CONDUCTOR_MAX_RETRIES"
	EnvRequestTimeoutSeconds = "CONDUCTOR_REQUEST_TIMEOUT_SECONDS"
	EnvInitialBackoffSeconds = "CONDUCTOR_INITIAL_BACKOFF_SECONDS"
	EnvMaxBackoffSeconds     = "CONDUCTOR_MAX_BACKOFF_SECONDS"
	EnvSkipPreflight         = "CONDUCTOR_SKIP_PREFLIGHT"
	EnvModel                 = "CONDUCTOR_MODEL"
	EnvOllamaHost            = "CONDUCTOR_OLLAMA_HOST"
)

// Load builds the run configuration. Precedence, lowest to highest:
// defaults, the YAML file at path (skipped when path is empty), environment
// overrides. The result is validated before it is returned.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv(EnvModel); v != "" {
		cfg.Model = v
	}
	if v := os.Getenv(EnvOllamaHost); v != "" {
		cfg.OllamaHost = v
	}

	intOverrides := []struct {
		env    string
		target *int
	}{
		{EnvMaxRetries, &cfg.MaxRetries},
		{EnvRequestTimeoutSeconds, &cfg.RequestTimeoutSeconds},
		{EnvInitialBackoffSeconds, &cfg.InitialBackoffSeconds},
		{EnvMaxBackoffSeconds, &cfg.MaxBackoffSeconds},
	}
	for _, o := range intOverrides {
		v := os.Getenv(o.env)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s value %q: %w", o.env, v, err)
		}
		*o.target = n
	}

	if v := os.Getenv(EnvSkipPreflight); v != "" {
		switch strings.ToLower(v) {
		case "1", "true", "yes":
			cfg.SkipPreflight = true
		case "0", "false", "no":
			cfg.SkipPreflight = false
		default:
			return fmt.Errorf("invalid %s value %q: expected boolean", EnvSkipPreflight, v)
		}
	}

	return nil
}
