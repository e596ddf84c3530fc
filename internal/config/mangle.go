package config

import (
	"fmt"

	"go.uber.org/zap/zapcore"

	"kbshell/internal/mangle"
)

// ReasonerConfig configures the Mangle reasoner.
type ReasonerConfig struct {
	FactLimit         int    `yaml:"fact_limit"`
	SourceConcurrency int    `yaml:"source_concurrency"`
	Verbosity         string `yaml:"verbosity"` // debug, info, warn, error
}

// MangleConfig converts to the reasoner's own configuration.
func (c ReasonerConfig) MangleConfig() mangle.Config {
	return mangle.Config{
		FactLimit:         c.FactLimit,
		SourceConcurrency: c.SourceConcurrency,
	}
}

// VerbosityLevel returns the reasoner log level, warn when unset or invalid.
func (c ReasonerConfig) VerbosityLevel() zapcore.Level {
	level, err := zapcore.ParseLevel(c.Verbosity)
	if err != nil || c.Verbosity == "" {
		return zapcore.WarnLevel
	}
	return level
}

// Validate checks the reasoner settings.
func (c ReasonerConfig) Validate() error {
	if c.FactLimit < 0 {
		return fmt.Errorf("reasoner.fact_limit must not be negative, got %d", c.FactLimit)
	}
	if c.SourceConcurrency < 1 {
		return fmt.Errorf("reasoner.source_concurrency must be at least 1, got %d", c.SourceConcurrency)
	}
	if c.Verbosity != "" {
		if _, err := zapcore.ParseLevel(c.Verbosity); err != nil {
			return fmt.Errorf("invalid reasoner.verbosity: %w", err)
		}
	}
	return nil
}
