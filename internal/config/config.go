// Package config loads the kbshell configuration from YAML with environment
// overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Environment variables that override the configuration file.
const (
	EnvLogLevel = "KBSHELL_LOG_LEVEL"
	EnvNoColor  = "KBSHELL_NO_COLOR"
	EnvHistory  = "KBSHELL_HISTORY"
)

// Config holds all kbshell configuration.
type Config struct {
	// Interactive shell
	Shell ShellConfig `yaml:"shell"`

	// Mangle reasoner
	Reasoner ReasonerConfig `yaml:"reasoner"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// ShellConfig configures the interactive front-end.
type ShellConfig struct {
	Prompt         string   `yaml:"prompt"`
	HistoryFile    string   `yaml:"history_file"`
	HistoryLimit   int      `yaml:"history_limit"`
	NoColor        bool     `yaml:"no_color"`
	WorkDir        string   `yaml:"work_dir"`
	StartupScripts []string `yaml:"startup_scripts,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Shell: ShellConfig{
			Prompt:       "kbshell> ",
			HistoryFile:  filepath.Join(os.TempDir(), ".kbshell_history"),
			HistoryLimit: 1000,
		},

		Reasoner: ReasonerConfig{
			FactLimit:         1000000,
			SourceConcurrency: 4,
			Verbosity:         "warn",
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// DefaultPath returns ~/.kbshell/config.yaml, or a relative path when the
// home directory is unknown.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".kbshell", "config.yaml")
	}
	return filepath.Join(home, ".kbshell", "config.yaml")
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults. Environment overrides apply in both cases.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes the configuration as YAML, creating the directory if needed.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

func (c *Config) applyEnvOverrides() {
	if level := os.Getenv(EnvLogLevel); level != "" {
		c.Logging.Level = level
	}
	if v := os.Getenv(EnvNoColor); v != "" {
		if noColor, err := strconv.ParseBool(v); err == nil {
			c.Shell.NoColor = noColor
		} else {
			// NO_COLOR convention: any non-empty value disables color.
			c.Shell.NoColor = true
		}
	}
	if path := os.Getenv(EnvHistory); path != "" {
		c.Shell.HistoryFile = path
	}
}

// Validate checks the configuration for values the shell cannot run with.
func (c *Config) Validate() error {
	if c.Shell.HistoryLimit < 0 {
		return fmt.Errorf("shell.history_limit must not be negative, got %d", c.Shell.HistoryLimit)
	}
	if err := c.Reasoner.Validate(); err != nil {
		return err
	}
	return c.Logging.Validate()
}
