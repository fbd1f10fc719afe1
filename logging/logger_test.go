package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogLevel_String(t *testing.T) {
	assert.Equal(t, "DEBUG", LogLevelDebug.String())
	assert.Equal(t, "INFO", LogLevelInfo.String())
	assert.Equal(t, "WARN", LogLevelWarn.String())
	assert.Equal(t, "ERROR", LogLevelError.String())
	assert.Equal(t, "UNKNOWN", LogLevel(42).String())
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LogLevelDebug, ParseLevel("debug"))
	assert.Equal(t, LogLevelWarn, ParseLevel("WARN"))
	assert.Equal(t, LogLevelError, ParseLevel("error"))
	assert.Equal(t, LogLevelInfo, ParseLevel("info"))
	assert.Equal(t, LogLevelInfo, ParseLevel("verbose"))
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	line, err := buf.ReadBytes('\n')
	require.NoError(t, err)
	var entry map[string]any
	require.NoError(t, json.Unmarshal(line, &entry))
	return entry
}

func TestRunLogger_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	l := NewRunLogger(&LoggerConfig{Level: LogLevelInfo, Format: "json", Output: &buf, Component: "runner"})

	l.Info("turn started", "user_id", "u-1")

	entry := decodeLine(t, &buf)
	assert.Equal(t, "turn started", entry["msg"])
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "runner", entry["component"])
	assert.Equal(t, "u-1", entry["user_id"])
}

func TestRunLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewRunLogger(&LoggerConfig{Level: LogLevelWarn, Format: "json", Output: &buf})

	l.Debug("too quiet")
	l.Info("still too quiet")
	assert.Zero(t, buf.Len())

	l.Warn("heard")
	entry := decodeLine(t, &buf)
	assert.Equal(t, "heard", entry["msg"])
}

func TestRunLogger_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	l := NewRunLogger(&LoggerConfig{Level: LogLevelInfo, Format: "text", Output: &buf})

	l.Info("plain entry")
	assert.Contains(t, buf.String(), "msg=\"plain entry\"")
}

func TestRunLogger_ContextualClones(t *testing.T) {
	var buf bytes.Buffer
	base := NewRunLogger(&LoggerConfig{Level: LogLevelInfo, Format: "json", Output: &buf})

	scoped := base.
		WithComponent("agent").
		WithSession("s-1", "inv-1").
		WithContext("attempt", 2)

	scoped.Info("retrying")
	entry := decodeLine(t, &buf)
	assert.Equal(t, "agent", entry["component"])
	assert.Equal(t, "s-1", entry["session_id"])
	assert.Equal(t, "inv-1", entry["invocation_id"])
	assert.Equal(t, float64(2), entry["attempt"])

	// The base logger stays unscoped.
	base.Info("plain")
	entry = decodeLine(t, &buf)
	assert.NotContains(t, entry, "component")
	assert.NotContains(t, entry, "session_id")
}

func TestRunLogger_DomainHelpers(t *testing.T) {
	var buf bytes.Buffer
	l := NewRunLogger(&LoggerConfig{Level: LogLevelInfo, Format: "json", Output: &buf})

	l.LogModelCall("claude-sonnet", 120*time.Millisecond, true, nil)
	entry := decodeLine(t, &buf)
	assert.Equal(t, "Model call completed", entry["msg"])
	assert.Equal(t, "claude-sonnet", entry["model"])
	assert.Equal(t, true, entry["success"])

	l.LogToolCall("calculator", time.Millisecond, false, errors.New("divide by zero"))
	entry = decodeLine(t, &buf)
	assert.Equal(t, "Tool execution failed", entry["msg"])
	assert.Equal(t, "ERROR", entry["level"])
	assert.Equal(t, "divide by zero", entry["error"])

	l.LogWorkflow("sequential", 3, time.Second, true, nil)
	entry = decodeLine(t, &buf)
	assert.Equal(t, "Workflow completed", entry["msg"])
	assert.Equal(t, float64(3), entry["step_count"])
}

func TestSlogAdapter(t *testing.T) {
	var buf bytes.Buffer
	l := NewRunLogger(&LoggerConfig{Level: LogLevelInfo, Format: "text", Output: &buf})

	// The adapter and RunLogger both satisfy the Logger interface.
	var _ Logger = l
	var _ Logger = NewDefaultSlogLogger()
	var _ Logger = NoOpLogger{}

	l.Info("interface check")
	assert.True(t, strings.Contains(buf.String(), "interface check"))
}
