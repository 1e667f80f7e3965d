package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogFilePath(t *testing.T) {
	sessionStart := time.Date(2026, 2, 12, 21, 38, 36, 0, time.UTC)

	tests := []struct {
		name    string
		logsDir string
		want    string
	}{
		{"basic path", "maplogs", filepath.Join("maplogs", "mapsim.20260212_213836.log")},
		{"relative path with dot", "./maplogs", filepath.Join(".", "maplogs", "mapsim.20260212_213836.log")},
		{"absolute path", filepath.Join("/var", "log", "mapkit"), filepath.Join("/var", "log", "mapkit", "mapsim.20260212_213836.log")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LogFilePath(tt.logsDir, "mapsim", sessionStart))
		})
	}
}

func TestSlogSatisfiesLogger(t *testing.T) {
	var _ Logger = slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	var _ Logger = NewJSONLogger(&bytes.Buffer{}, "info")
}

func TestNop(t *testing.T) {
	l := OrNop(nil)
	l.Debug("a")
	l.Info("b", "k", 1)
	l.Warn("c")
	l.Error("d", "err", errors.New("x"))
}

func TestSetup_WritesToConsoleAndFile(t *testing.T) {
	var console, file bytes.Buffer
	m := NewSlogManager()
	m.Console = &console
	m.Setup(&file, "info", nil)

	m.Logger().Info("hello both")

	assert.Contains(t, console.String(), "hello both")
	assert.Contains(t, file.String(), "hello both")
}

func TestSetup_InfoLevel_FiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	m := NewSlogManager()
	m.Console = nil
	m.Setup(&buf, "info", nil)

	m.Logger().Debug("should be filtered")
	m.Logger().Info("should appear")

	assert.NotContains(t, buf.String(), "should be filtered")
	assert.Contains(t, buf.String(), "should appear")
}

func TestSetup_ContextProviderStampsRecords(t *testing.T) {
	var buf bytes.Buffer
	session := "first"
	m := NewSlogManager()
	m.Console = nil
	m.Setup(&buf, "debug", func() []slog.Attr {
		return []slog.Attr{slog.String("session", session)}
	})

	m.Logger().Info("one")
	session = "second"
	m.Logger().Info("two")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[1], "session=first")
	assert.Contains(t, lines[2], "session=second")
}

func TestSetup_TimestampsAreUTC(t *testing.T) {
	var buf bytes.Buffer
	m := NewSlogManager()
	m.Console = nil
	m.Setup(&buf, "info", nil)

	assert.Regexp(t, `time=\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}Z`, buf.String())
}

func TestLogger_DefaultBeforeSetup(t *testing.T) {
	m := NewSlogManager()
	assert.Equal(t, slog.Default(), m.Logger())
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"ERROR", slog.LevelError},
		{"", slog.LevelInfo},
		{"invalid", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.input))
		})
	}
}

func TestMultiHandler_FansOut(t *testing.T) {
	var buf1, buf2 bytes.Buffer
	multi := NewMultiHandler(
		slog.NewTextHandler(&buf1, nil),
		nil,
		slog.NewTextHandler(&buf2, nil),
	)
	require.Len(t, multi.handlers, 2)

	slog.New(multi).Info("fanned out")

	assert.Contains(t, buf1.String(), "fanned out")
	assert.Contains(t, buf2.String(), "fanned out")
}

func TestMultiHandler_Enabled(t *testing.T) {
	infoHandler := slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelInfo})
	debugHandler := slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelDebug})

	assert.False(t, NewMultiHandler(infoHandler).Enabled(context.Background(), slog.LevelDebug))
	assert.True(t, NewMultiHandler(infoHandler, debugHandler).Enabled(context.Background(), slog.LevelDebug))
	assert.False(t, NewMultiHandler().Enabled(context.Background(), slog.LevelInfo))
}

func TestMultiHandler_WithAttrsAndGroup(t *testing.T) {
	var buf bytes.Buffer
	multi := NewMultiHandler(slog.NewTextHandler(&buf, nil))

	slog.New(multi.WithAttrs([]slog.Attr{slog.String("component", "resize")})).Info("with attrs")
	slog.New(multi.WithGroup("map")).Info("grouped", "level", 5)

	assert.Contains(t, buf.String(), "component=resize")
	assert.Contains(t, buf.String(), "map.level=5")
	assert.Equal(t, multi, multi.WithGroup(""))
}

type failingHandler struct {
	slog.Handler
}

func (failingHandler) Enabled(context.Context, slog.Level) bool { return true }

func (failingHandler) Handle(context.Context, slog.Record) error {
	return errors.New("handler error")
}

func TestMultiHandler_HandleErrorDoesNotStopOthers(t *testing.T) {
	var buf bytes.Buffer
	multi := NewMultiHandler(failingHandler{}, slog.NewTextHandler(&buf, nil))

	err := multi.Handle(context.Background(), slog.NewRecord(time.Now(), slog.LevelInfo, "should reach spy", 0))

	require.Error(t, err)
	assert.Contains(t, buf.String(), "should reach spy")
}

func TestZerologAdapter_Levels(t *testing.T) {
	var buf bytes.Buffer
	l := NewJSONLogger(&buf, "debug")

	l.Debug("debug msg", "key1", "value1", "key2", 42)
	l.Info("info msg")
	l.Warn("warn msg", "state", "Settling")
	l.Error("error msg", "kind", "SdkUnavailable")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)

	var first map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "debug", first["level"])
	assert.Equal(t, "debug msg", first["message"])
	assert.Equal(t, "value1", first["key1"])
	assert.Equal(t, float64(42), first["key2"])

	var last map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[3]), &last))
	assert.Equal(t, "error", last["level"])
	assert.Equal(t, "SdkUnavailable", last["kind"])
}

func TestZerologAdapter_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	l := NewJSONLogger(&buf, "warn")

	l.Info("dropped")
	l.Warn("kept")

	assert.NotContains(t, buf.String(), "dropped")
	assert.Contains(t, buf.String(), "kept")
}

func TestToFields_IgnoresNonStringKeysAndOddTail(t *testing.T) {
	fields := toFields([]any{"a", 1, 2, "b", "dangling"})
	assert.Equal(t, map[string]any{"a": 1}, fields)
}
