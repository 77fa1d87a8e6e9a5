package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.MaxConcurrentCalls)
	assert.Equal(t, 60*time.Second, cfg.CallTimeout)
	assert.Equal(t, "sqlite", cfg.Database.Backend)
	assert.Equal(t, filepath.Join(".planer", "plans.db"), cfg.Database.Path)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
model: claude-opus-4-20250514
max_retries: 5
database:
  backend: postgres
  dsn: postgres://localhost/planer
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "claude-opus-4-20250514", cfg.Model)
	assert.Equal(t, 5, cfg.MaxRetries)
	assert.Equal(t, "postgres", cfg.Database.Backend)
	assert.Equal(t, "postgres://localhost/planer", cfg.Database.DSN)
	// Untouched fields keep their defaults
	assert.Equal(t, 3, cfg.MaxConcurrentCalls)
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_retries: 5\n"), 0o644))

	t.Setenv("PLANER_MAX_RETRIES", "1")
	t.Setenv("PLANER_DB_PATH", "/tmp/override.db")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.MaxRetries)
	assert.Equal(t, "/tmp/override.db", cfg.Database.Path)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero concurrency", func(c *Config) { c.MaxConcurrentCalls = 0 }},
		{"negative retries", func(c *Config) { c.MaxRetries = -1 }},
		{"unknown backend", func(c *Config) { c.Database.Backend = "mysql" }},
		{"postgres without dsn", func(c *Config) { c.Database.Backend = "postgres"; c.Database.DSN = "" }},
		{"sqlite without path", func(c *Config) { c.Database.Path = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("model: [unclosed"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}
