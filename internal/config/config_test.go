package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func clearEnv(t *testing.T) {
	t.Helper()
	t.Setenv(EnvLogLevel, "")
	t.Setenv(EnvNoColor, "")
	t.Setenv(EnvHistory, "")
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 1000000, cfg.Reasoner.FactLimit)
	assert.Equal(t, 4, cfg.Reasoner.SourceConcurrency)
	assert.Equal(t, zapcore.WarnLevel, cfg.Reasoner.VerbosityLevel())
	assert.NoError(t, cfg.Validate())
}

func TestConfig_SaveLoad(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Shell.Prompt = "> "
	cfg.Reasoner.FactLimit = 42
	cfg.Logging.Categories = map[string]bool{"reasoner": false}
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
	assert.Equal(t, map[string]bool{"reasoner": false}, loaded.Logging.Categories)
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("shell: [unclosed"), 0644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("reasoner:\n  fact_limit: 10\n"), 0644))
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.Reasoner.FactLimit)
	assert.Equal(t, 4, cfg.Reasoner.SourceConcurrency)
	assert.Equal(t, "kbshell> ", cfg.Shell.Prompt)
}

func TestEnvOverrides(t *testing.T) {
	t.Run("log level", func(t *testing.T) {
		clearEnv(t)
		t.Setenv(EnvLogLevel, "debug")
		cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		require.NoError(t, err)
		assert.Equal(t, "debug", cfg.Logging.Level)
	})

	t.Run("no color accepts booleans and any other value", func(t *testing.T) {
		clearEnv(t)
		t.Setenv(EnvNoColor, "false")
		cfg := DefaultConfig()
		cfg.applyEnvOverrides()
		assert.False(t, cfg.Shell.NoColor)

		t.Setenv(EnvNoColor, "yes please")
		cfg.applyEnvOverrides()
		assert.True(t, cfg.Shell.NoColor)
	})

	t.Run("history file", func(t *testing.T) {
		clearEnv(t)
		t.Setenv(EnvHistory, "/tmp/hist")
		cfg := DefaultConfig()
		cfg.applyEnvOverrides()
		assert.Equal(t, "/tmp/hist", cfg.Shell.HistoryFile)
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative history", func(c *Config) { c.Shell.HistoryLimit = -1 }},
		{"negative fact limit", func(c *Config) { c.Reasoner.FactLimit = -1 }},
		{"zero concurrency", func(c *Config) { c.Reasoner.SourceConcurrency = 0 }},
		{"bad verbosity", func(c *Config) { c.Reasoner.Verbosity = "loud" }},
		{"bad log level", func(c *Config) { c.Logging.Level = "chatty" }},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestReasonerConfig_MangleConfig(t *testing.T) {
	rc := ReasonerConfig{FactLimit: 7, SourceConcurrency: 2, Verbosity: "info"}
	mc := rc.MangleConfig()
	assert.Equal(t, 7, mc.FactLimit)
	assert.Equal(t, 2, mc.SourceConcurrency)
	assert.Equal(t, zapcore.InfoLevel, rc.VerbosityLevel())
}
