package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	cblog "github.com/charmbracelet/log"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		payload := make(map[string]interface{})
		require.NoError(t, json.Unmarshal([]byte(line), &payload), "line %q", line)
		out = append(out, payload)
	}
	return out
}

func TestLoggerIncludesCorrelationIDAndLayer(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{
		Writer:     &buf,
		Level:      "debug",
		Formatter:  cblog.JSONFormatter,
		Layer:      "infrastructure",
		Component:  "registry",
		TimeFormat: "2006-01-02T15:04:05Z07:00",
	})
	require.NoError(t, err)

	ctx := WithCorrelationID(context.Background(), "abc123")
	logger.Info(ctx, "plugin installed", "plugin_id", "weather")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	payload := lines[0]
	require.Equal(t, "infrastructure", payload["layer"])
	require.Equal(t, "registry", payload["component"])
	require.Equal(t, "abc123", payload["correlation_id"])
	require.Equal(t, "weather", payload["plugin_id"])
	require.Equal(t, "plugin installed", payload["msg"])
}

func TestLoggerWithAddsFields(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Writer: &buf, Format: FormatJSON})
	require.NoError(t, err)

	child := logger.With("component", "bus").(*Logger)
	child.Warn(context.Background(), "event handler failed", "event_type", "installed")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	require.Equal(t, "bus", lines[0]["component"])
	require.Equal(t, "installed", lines[0]["event_type"])
	require.Equal(t, "infrastructure", lines[0]["layer"])
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(Options{Level: "loud"})
	require.Error(t, err)
	_, err = NewZerolog(Options{Level: "loud"})
	require.Error(t, err)
}

func TestZerologLoggerWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewZerolog(Options{Writer: &buf, Level: "debug", Component: "tracker", Layer: "application"})
	require.NoError(t, err)

	ctx := WithCorrelationID(context.Background(), "zzz")
	logger.With("plugin_id", "rss").Error(ctx, "hook failed", "error", errors.New("boom"))
	logger.Debug(ctx, "selection cleared")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)
	require.Equal(t, "error", lines[0]["level"])
	require.Equal(t, "hook failed", lines[0]["message"])
	require.Equal(t, "rss", lines[0]["plugin_id"])
	require.Equal(t, "boom", lines[0]["error"])
	require.Equal(t, "tracker", lines[0]["component"])
	require.Equal(t, "application", lines[0]["layer"])
	require.Equal(t, "zzz", lines[0]["correlation_id"])
	require.Equal(t, "debug", lines[1]["level"])
}

func TestZerologLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewZerolog(Options{Writer: &buf, Level: "warn"})
	require.NoError(t, err)

	logger.Info(context.Background(), "ignored")
	require.Zero(t, buf.Len())
	logger.Warn(context.Background(), "kept")
	require.NotZero(t, buf.Len())
}

func TestNewFromOptionsSelectsBackend(t *testing.T) {
	jsonLogger, err := NewFromOptions(Options{Format: "json"})
	require.NoError(t, err)
	require.IsType(t, &ZerologLogger{}, jsonLogger)

	textLogger, err := NewFromOptions(Options{Format: "text"})
	require.NoError(t, err)
	require.IsType(t, &Logger{}, textLogger)

	_, err = NewFromOptions(Options{Format: "xml"})
	require.Error(t, err)
}

func TestNoOpLogger(t *testing.T) {
	noOp := NewNoOpLogger()
	noOp.Info(context.Background(), "hello world")
	require.Same(t, noOp, noOp.With("key", "value"))
	require.NotNil(t, OrNoOp(nil))
}

func TestBufferedLoggerStoresAndFlushes(t *testing.T) {
	buffer := NewEventBuffer(10)
	bufLogger := NewBufferedLogger(buffer)

	ctx := WithCorrelationID(context.Background(), "buffered")
	bufLogger.Info(ctx, "reading manifest", "component", "loader")
	bufLogger.With("component", "registry").Error(ctx, "failed", "attempt", 1)
	require.Equal(t, 2, buffer.Len())

	var output bytes.Buffer
	delegate, err := New(Options{Writer: &output, Formatter: cblog.JSONFormatter})
	require.NoError(t, err)

	buffer.Flush(delegate)
	require.Zero(t, buffer.Len())

	lines := decodeLines(t, &output)
	require.Len(t, lines, 2)
	require.Equal(t, "reading manifest", lines[0]["msg"])
	require.Equal(t, "loader", lines[0]["component"])
	require.Equal(t, "failed", lines[1]["msg"])
	require.Equal(t, "registry", lines[1]["component"])
	require.Equal(t, "buffered", lines[1]["correlation_id"])
}

func TestEventBufferDropsOldest(t *testing.T) {
	buffer := NewEventBuffer(2)
	logger := NewBufferedLogger(buffer)
	for _, msg := range []string{"one", "two", "three"} {
		logger.Info(context.Background(), msg)
	}

	var output bytes.Buffer
	delegate, err := New(Options{Writer: &output, Formatter: cblog.JSONFormatter})
	require.NoError(t, err)
	buffer.Flush(delegate)

	lines := decodeLines(t, &output)
	require.Len(t, lines, 3)
	require.Equal(t, "two", lines[0]["msg"])
	require.Equal(t, "three", lines[1]["msg"])
	require.Equal(t, "early log entries dropped", lines[2]["msg"])
}

func TestEnsureCorrelationID(t *testing.T) {
	ctx, id := EnsureCorrelationID(context.Background())
	require.NotEmpty(t, id)

	same, again := EnsureCorrelationID(ctx)
	require.Equal(t, id, again)
	require.Equal(t, ctx, same)
}
