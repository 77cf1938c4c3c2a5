package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, filepath.Join("config", "credentials.enc"), cfg.Session.CredentialsPath)
	assert.Equal(t, filepath.Join("config", "settings.json"), cfg.Session.SettingsPath)
	assert.Equal(t, 4, cfg.Collect.CommentWorkers)
	assert.Equal(t, 4, cfg.Collect.LikerWorkers)
	assert.Equal(t, 0, cfg.Collect.DefaultWorkers)
	assert.Equal(t, AdaptiveCapConfig{Base: 4, Medium: 2, Large: 1, MediumAt: 100, LargeAt: 200}, cfg.Collect.InfoWorkers)
	assert.Equal(t, "output", cfg.Output.Directory)
	assert.False(t, cfg.Output.JSON)
	assert.False(t, cfg.Output.TXT)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, 1.0, cfg.Geocoder.RequestsPerSecond)

	require.NoError(t, cfg.Validate())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("IGOSINT_SETTINGS_PATH", "/tmp/igosint/settings.json")
	t.Setenv("IGOSINT_REQUESTS_PER_MINUTE", "30")
	t.Setenv("IGOSINT_OUTPUT_DIR", "/tmp/igosint-out")
	t.Setenv("IGOSINT_JSON", "yes")
	t.Setenv("IGOSINT_TABLE_STYLE", "markdown")
	t.Setenv("IGOSINT_LOG_LEVEL", "debug")

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromEnv())

	assert.Equal(t, "/tmp/igosint/settings.json", cfg.Session.SettingsPath)
	assert.Equal(t, 30, cfg.RateLimit.RequestsPerMinute)
	assert.Equal(t, "/tmp/igosint-out", cfg.Output.Directory)
	assert.True(t, cfg.Output.JSON)
	assert.False(t, cfg.Output.TXT)
	assert.Equal(t, "markdown", cfg.Output.TableStyle)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadFromEnvRejectsBadNumbers(t *testing.T) {
	t.Setenv("IGOSINT_REQUESTS_PER_MINUTE", "many")
	t.Setenv("IGOSINT_DEFAULT_WORKERS", "x")

	cfg := DefaultConfig()
	err := cfg.LoadFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "IGOSINT_REQUESTS_PER_MINUTE")
	assert.Contains(t, err.Error(), "IGOSINT_DEFAULT_WORKERS")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"missing credentials path", func(c *Config) { c.Session.CredentialsPath = "" }, "credentials path"},
		{"zero comment workers", func(c *Config) { c.Collect.CommentWorkers = 0 }, "comment workers"},
		{"inverted thresholds", func(c *Config) { c.Collect.InfoWorkers.LargeAt = 50 }, "thresholds"},
		{"bad endpoint rate", func(c *Config) { c.RateLimit.Endpoints["media_likers"] = 0 }, "media_likers"},
		{"unknown table style", func(c *Config) { c.Output.TableStyle = "fancy" }, "invalid table style"},
		{"invalid log level", func(c *Config) { c.Logging.Level = "loud" }, "invalid log level"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "log format"},
		{"geocoder rate", func(c *Config) { c.Geocoder.RequestsPerSecond = 0 }, "geocoder"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateJoinsAllErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Output.Directory = ""
	cfg.RateLimit.BurstSize = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "output directory")
	assert.Contains(t, err.Error(), "burst size")
}

func TestMergeCommandLineFlags(t *testing.T) {
	cfg := DefaultConfig()

	cfg.MergeCommandLineFlags(map[string]interface{}{
		"output":    "/flag/output",
		"json":      true,
		"txt":       false,
		"style":     "rounded",
		"log-level": "error",
	})

	assert.Equal(t, "/flag/output", cfg.Output.Directory)
	assert.True(t, cfg.Output.JSON)
	assert.False(t, cfg.Output.TXT)
	assert.Equal(t, "rounded", cfg.Output.TableStyle)
	assert.Equal(t, "error", cfg.Logging.Level)
}

func TestSaveAndLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Collect.CommentWorkers = 8
	cfg.Session.Timeout = 45 * time.Second
	cfg.Output.TableStyle = "double_border"
	require.NoError(t, cfg.Save(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded := DefaultConfig()
	require.NoError(t, loaded.LoadFromFile(path))
	assert.Equal(t, 8, loaded.Collect.CommentWorkers)
	assert.Equal(t, 45*time.Second, loaded.Session.Timeout)
	assert.Equal(t, "double_border", loaded.Output.TableStyle)
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("output:\n  directory: from-file\n  table_style: markdown\nlogging:\n  level: info\n"), 0600))

	t.Setenv("IGOSINT_LOG_LEVEL", "error")

	cfg, err := Load(path, map[string]interface{}{"output": "from-flag"})
	require.NoError(t, err)

	assert.Equal(t, "from-flag", cfg.Output.Directory)
	assert.Equal(t, "markdown", cfg.Output.TableStyle)
	assert.Equal(t, "error", cfg.Logging.Level)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), nil)
	assert.Error(t, err)
}
