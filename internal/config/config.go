// Package config loads planer configuration from a YAML file with
// environment variable overrides. Every field has a working default so
// a fresh install runs with no config file at all.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level planer configuration
type Config struct {
	// Model is the Anthropic model used for plan generation
	Model string `yaml:"model"`

	// MaxConcurrentCalls caps simultaneous in-flight model calls
	// Default: 3, Range: 1-32
	MaxConcurrentCalls int `yaml:"max_concurrent_calls"`

	// CallTimeout is the per-attempt timeout for a single model call
	// Default: 60s
	CallTimeout time.Duration `yaml:"call_timeout"`

	// MaxRetries is how many times a failed model call is retried
	// Default: 3, Range: 0-10
	MaxRetries int `yaml:"max_retries"`

	Database DatabaseConfig `yaml:"database"`
}

// DatabaseConfig selects and configures the storage backend
type DatabaseConfig struct {
	// Backend is "sqlite" or "postgres"
	Backend string `yaml:"backend"`

	// Path is the SQLite database file (sqlite backend only)
	Path string `yaml:"path"`

	// DSN is the PostgreSQL connection string (postgres backend only)
	DSN string `yaml:"dsn"`
}

// DefaultConfig returns the configuration used when no file or
// environment overrides are present
func DefaultConfig() *Config {
	return &Config{
		Model:              "",
		MaxConcurrentCalls: 3,
		CallTimeout:        60 * time.Second,
		MaxRetries:         3,
		Database: DatabaseConfig{
			Backend: "sqlite",
			Path:    filepath.Join(".planer", "plans.db"),
		},
	}
}

// DefaultPath returns the default config file location
func DefaultPath() string {
	if dir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(dir, ".planer", "config.yaml")
	}
	return filepath.Join(".planer", "config.yaml")
}

// Load reads configuration from the given YAML file, then applies
// environment variable overrides. A missing file is not an error; the
// defaults are used.
//
// Environment variables:
//   - PLANER_MODEL: model override
//   - PLANER_MAX_CONCURRENT_CALLS: concurrent model call cap
//   - PLANER_CALL_TIMEOUT: per-attempt model call timeout (e.g. "90s")
//   - PLANER_MAX_RETRIES: model call retry count
//   - PLANER_DB_BACKEND: "sqlite" or "postgres"
//   - PLANER_DB_PATH: sqlite database file
//   - PLANER_DB_DSN: postgres connection string
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
			}
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks if the configuration has valid values
func (c *Config) Validate() error {
	if c.MaxConcurrentCalls < 1 || c.MaxConcurrentCalls > 32 {
		return fmt.Errorf("max_concurrent_calls must be between 1 and 32 (got %d)", c.MaxConcurrentCalls)
	}
	if c.CallTimeout < time.Second {
		return fmt.Errorf("call_timeout must be at least 1s (got %s)", c.CallTimeout)
	}
	if c.MaxRetries < 0 || c.MaxRetries > 10 {
		return fmt.Errorf("max_retries must be between 0 and 10 (got %d)", c.MaxRetries)
	}
	switch c.Database.Backend {
	case "sqlite":
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required for the sqlite backend")
		}
	case "postgres":
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for the postgres backend")
		}
	default:
		return fmt.Errorf("database.backend must be 'sqlite' or 'postgres' (got %q)", c.Database.Backend)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) error {
	if err := parseEnvString("PLANER_MODEL", &cfg.Model); err != nil {
		return err
	}
	if err := parseEnvInt("PLANER_MAX_CONCURRENT_CALLS", &cfg.MaxConcurrentCalls); err != nil {
		return err
	}
	if err := parseEnvDuration("PLANER_CALL_TIMEOUT", &cfg.CallTimeout); err != nil {
		return err
	}
	if err := parseEnvInt("PLANER_MAX_RETRIES", &cfg.MaxRetries); err != nil {
		return err
	}
	if err := parseEnvString("PLANER_DB_BACKEND", &cfg.Database.Backend); err != nil {
		return err
	}
	if err := parseEnvString("PLANER_DB_PATH", &cfg.Database.Path); err != nil {
		return err
	}
	if err := parseEnvString("PLANER_DB_DSN", &cfg.Database.DSN); err != nil {
		return err
	}
	return nil
}

// parseEnvInt parses an int from an environment variable
func parseEnvInt(key string, dest *int) error {
	value := os.Getenv(key)
	if value == "" {
		return nil // Use default
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = parsed
	return nil
}

// parseEnvDuration parses a time.Duration from an environment variable
func parseEnvDuration(key string, dest *time.Duration) error {
	value := os.Getenv(key)
	if value == "" {
		return nil // Use default
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = parsed
	return nil
}

// parseEnvString parses a string from an environment variable
func parseEnvString(key string, dest *string) error {
	value := os.Getenv(key)
	if value == "" {
		return nil // Use default
	}
	*dest = value
	return nil
}
