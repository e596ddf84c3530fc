package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"", zapcore.InfoLevel},
		{"debug", zapcore.DebugLevel},
		{"WARN", zapcore.WarnLevel},
		{"warning", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
	_, err := ParseLevel("chatty")
	assert.Error(t, err)
}

func TestNewWritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "kbshell.log")
	l, err := New(Options{Level: "debug", Format: "json", File: path})
	require.NoError(t, err)

	l.For(CategoryReasoner).Info("materialized", zap.Int("facts", 3))
	require.NoError(t, l.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(string(data))), &entry))
	assert.Equal(t, "materialized", entry["msg"])
	assert.Equal(t, "reasoner", entry["logger"])
	assert.EqualValues(t, 3, entry["facts"])
}

func TestNewRejectsBadOptions(t *testing.T) {
	_, err := New(Options{Level: "loud"})
	assert.Error(t, err)
	_, err = New(Options{Format: "xml"})
	assert.Error(t, err)
}

func TestCategorySwitches(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := Wrap(zap.New(core), map[string]bool{"kb": false, "shell": true})

	assert.False(t, l.IsCategoryEnabled(CategoryKB))
	assert.True(t, l.IsCategoryEnabled(CategoryShell))
	assert.True(t, l.IsCategoryEnabled(CategorySources))

	l.For(CategoryKB).Info("hidden")
	l.For(CategoryShell).Info("shown")
	l.For(CategorySources).Info("default on")

	assert.Equal(t, 0, logs.FilterMessage("hidden").Len())
	assert.Equal(t, 1, logs.FilterMessage("shown").Len())
	assert.Equal(t, 1, logs.FilterMessage("default on").Len())
}

func TestSetLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kbshell.log")
	l, err := New(Options{Level: "info", Format: "json", File: path})
	require.NoError(t, err)

	l.For(CategoryBoot).Debug("before")
	l.SetLevel(zapcore.DebugLevel)
	assert.Equal(t, zapcore.DebugLevel, l.Level())
	l.For(CategoryBoot).Debug("after")
	require.NoError(t, l.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), `"before"`)
	assert.Contains(t, string(data), `"after"`)
}

func TestTimer(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := Wrap(zap.New(core), nil)

	l.StartTimer(CategoryShell, "script").Stop()
	assert.Equal(t, 1, logs.FilterMessage("operation completed").Len())

	timer := l.StartTimer(CategoryShell, "slow")
	time.Sleep(2 * time.Millisecond)
	timer.StopWithThreshold(time.Nanosecond)
	assert.Equal(t, 1, logs.FilterMessage("operation slow").Len())
}

func TestNopLogger(t *testing.T) {
	l := NewNop()
	l.For(CategoryBoot).Error("ignored")
	assert.NoError(t, l.Sync())
}
