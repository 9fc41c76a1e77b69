package logging

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, LogLevelSilent, ParseLogLevel("silent"))
	assert.Equal(t, LogLevelError, ParseLogLevel("error"))
	assert.Equal(t, LogLevelWarning, ParseLogLevel("warn"))
	assert.Equal(t, LogLevelWarning, ParseLogLevel("warning"))
	assert.Equal(t, LogLevelVerbose, ParseLogLevel("verbose"))
	assert.Equal(t, LogLevelVerbose, ParseLogLevel("nonsense"))
}

func TestLogLevelsFilterOutput(t *testing.T) {
	buf := &bytes.Buffer{}
	SetOutput(buf)
	defer SetOutput(nil)
	defer Initialize("warning")

	Initialize("error")
	LogModuleWarning("foo", "missing entry point")
	LogInfo("Info", "compiled foo.mu")
	assert.Empty(t, buf.String())

	before := ErrorCount()
	LogModuleError("foo", "unreadable")
	assert.Contains(t, buf.String(), "[foo] unreadable")
	assert.Equal(t, before+1, ErrorCount())
	assert.False(t, ShouldProceed())

	buf.Reset()
	Initialize("verbose")
	LogModuleWarning("foo", "missing entry point")
	LogInfo("Info", "compiled foo.mu")
	assert.Contains(t, buf.String(), "missing entry point")
	assert.Contains(t, buf.String(), "compiled foo.mu")

	buf.Reset()
	Initialize("silent")
	LogException("boom", []string{"main", "f"})
	PrintErrorMessage("Tag", errors.New("direct"))
	assert.NotContains(t, buf.String(), "boom")
	assert.Contains(t, buf.String(), "direct")
}

func TestLogExceptionBacktrace(t *testing.T) {
	buf := &bytes.Buffer{}
	SetOutput(buf)
	defer SetOutput(nil)

	LogException("division by zero", []string{"main", "outer", "inner"})
	out := buf.String()
	assert.Contains(t, out, "division by zero")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("inner")), bytes.Index(buf.Bytes(), []byte("outer")))
}
