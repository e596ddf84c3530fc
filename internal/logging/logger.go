// Package logging builds the categorized zap loggers used by kbshell.
// Each subsystem logs under its own category, which the configuration can
// switch off independently of the global level.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot     Category = "boot"     // Startup and configuration
	CategoryShell    Category = "shell"    // Command interpretation
	CategoryReasoner Category = "reasoner" // Materialization and queries
	CategoryKB       Category = "kb"       // Knowledge base mutations
	CategorySources  Category = "sources"  // External data source loading
)

// Options configures New.
type Options struct {
	Level      string          // debug, info, warn, error
	Format     string          // json, console
	File       string          // empty = stderr
	Categories map[string]bool // false disables a category
}

// Logger is a zap logger with a shared adjustable level and per-category
// switches.
type Logger struct {
	base       *zap.Logger
	level      zap.AtomicLevel
	categories map[string]bool
}

// ParseLevel maps a level name to a zap level. The empty string is info.
func ParseLevel(s string) (zapcore.Level, error) {
	switch strings.ToLower(s) {
	case "":
		return zapcore.InfoLevel, nil
	case "warning":
		return zapcore.WarnLevel, nil
	}
	return zapcore.ParseLevel(strings.ToLower(s))
}

// New builds a logger from opts.
func New(opts Options) (*Logger, error) {
	lvl, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.Sampling = nil
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	switch opts.Format {
	case "", "console":
		cfg.Encoding = "console"
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	case "json":
		cfg.Encoding = "json"
	default:
		return nil, fmt.Errorf("unknown log format %q", opts.Format)
	}

	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		cfg.OutputPaths = []string{opts.File}
		cfg.ErrorOutputPaths = []string{opts.File}
	} else {
		cfg.OutputPaths = []string{"stderr"}
	}

	base, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return &Logger{base: base, level: cfg.Level, categories: opts.Categories}, nil
}

// NewNop returns a logger that discards everything.
func NewNop() *Logger {
	return &Logger{base: zap.NewNop(), level: zap.NewAtomicLevelAt(zapcore.FatalLevel)}
}

// Wrap adopts an existing zap logger, mainly for tests.
func Wrap(base *zap.Logger, categories map[string]bool) *Logger {
	return &Logger{base: base, level: zap.NewAtomicLevelAt(zapcore.DebugLevel), categories: categories}
}

// IsCategoryEnabled returns whether a category logs. Unlisted categories do.
func (l *Logger) IsCategoryEnabled(category Category) bool {
	if l.categories == nil {
		return true
	}
	enabled, exists := l.categories[string(category)]
	return !exists || enabled
}

// For returns the logger for a category, or a no-op logger when the
// category is disabled.
func (l *Logger) For(category Category) *zap.Logger {
	if !l.IsCategoryEnabled(category) {
		return zap.NewNop()
	}
	return l.base.Named(string(category))
}

// Base returns the underlying uncategorized logger.
func (l *Logger) Base() *zap.Logger { return l.base }

// SetLevel changes the level of every logger derived from l.
func (l *Logger) SetLevel(level zapcore.Level) { l.level.SetLevel(level) }

// Level returns the current level.
func (l *Logger) Level() zapcore.Level { return l.level.Level() }

// Sync flushes buffered entries. Errors from syncing a terminal are ignored.
func (l *Logger) Sync() error {
	err := l.base.Sync()
	if err != nil && isTerminalSyncError(err) {
		return nil
	}
	return err
}

func isTerminalSyncError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "inappropriate ioctl") ||
		strings.Contains(msg, "invalid argument") ||
		strings.Contains(msg, "bad file descriptor")
}

// Timer measures an operation and logs its duration on Stop.
type Timer struct {
	log   *zap.Logger
	op    string
	start time.Time
}

// StartTimer begins timing an operation in the given category.
func (l *Logger) StartTimer(category Category, operation string) *Timer {
	return &Timer{log: l.For(category), op: operation, start: time.Now()}
}

// Stop ends the timer and logs the duration at debug level.
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	t.log.Debug("operation completed", zap.String("op", t.op), zap.Duration("elapsed", elapsed))
	return elapsed
}

// StopWithThreshold logs a warning if the duration exceeds threshold.
func (t *Timer) StopWithThreshold(threshold time.Duration) time.Duration {
	elapsed := time.Since(t.start)
	if elapsed > threshold {
		t.log.Warn("operation slow", zap.String("op", t.op),
			zap.Duration("elapsed", elapsed), zap.Duration("threshold", threshold))
	} else {
		t.log.Debug("operation completed", zap.String("op", t.op), zap.Duration("elapsed", elapsed))
	}
	return elapsed
}
