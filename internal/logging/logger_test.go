package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: LevelWarn, Output: &buf})

	logger.Debug("debug message")
	logger.Info("info message")
	assert.Empty(t, buf.String(), "debug/info should be filtered below warn level")

	logger.Warn("warn message", "k", 1)
	assert.Contains(t, buf.String(), "[WARN]")
	assert.Contains(t, buf.String(), "k=1")
}

func TestLoggerFieldsFormatErrors(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: LevelDebug, Output: &buf})

	logger.Error("op failed", "err", assertError{"boom"})
	assert.Contains(t, buf.String(), "[ERROR]")
	assert.Contains(t, buf.String(), "err=boom")
}

type assertError struct{ msg string }

func (e assertError) Error() string { return e.msg }

func TestFatalDoesNotTerminateItself(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: LevelDebug, Output: &buf})

	logger.Fatal("unrecoverable backend error", "device", 3)
	assert.Contains(t, buf.String(), "[FATAL]")
	assert.Contains(t, buf.String(), "device=3")
}

func TestDefaultLoggerSingleton(t *testing.T) {
	first := Default()
	second := Default()
	assert.Same(t, first, second)
}

func TestSetDefaultRoutesPackageLevelHelpers(t *testing.T) {
	var buf bytes.Buffer
	custom := New(Config{Level: LevelDebug, Output: &buf})
	orig := Default()
	SetDefault(custom)
	defer SetDefault(orig)

	Info("routed through package-level helper")
	assert.Contains(t, buf.String(), "routed through package-level helper")
}
