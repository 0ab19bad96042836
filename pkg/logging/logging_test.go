package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogLevelString(t *testing.T) {
	assert.Equal(t, "DEBUG", LevelDebug.String())
	assert.Equal(t, "INFO", LevelInfo.String())
	assert.Equal(t, "WARN", LevelWarn.String())
	assert.Equal(t, "ERROR", LevelError.String())
	assert.Equal(t, "UNKNOWN", LogLevel(42).String())
}

func TestInitForCLIFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	InitForCLI(LevelInfo, &buf)

	Debug("Test", "this should be filtered")
	Info("Test", "hello %s", "world")

	out := buf.String()
	assert.NotContains(t, out, "this should be filtered")
	assert.Contains(t, out, "hello world")
	assert.Contains(t, out, "subsystem=Test")
}

func TestErrorIncludesErrAttribute(t *testing.T) {
	var buf bytes.Buffer
	InitForCLI(LevelDebug, &buf)

	Error("Applier", assert.AnError, "write failed")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 1)
	assert.Contains(t, lines[0], "write failed")
	assert.Contains(t, lines[0], "error=")
}
