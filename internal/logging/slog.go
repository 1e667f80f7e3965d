package logging

import (
	"io"
	"log/slog"
	"os"
	"time"
)

// SlogManager builds the text logger the CLI writes to the console and, optionally, a log file.
type SlogManager struct {
	logger *slog.Logger

	// Console receives the console handler output; defaults to os.Stdout. Nil disables it.
	Console io.Writer
}

func NewSlogManager() *SlogManager {
	return &SlogManager{Console: os.Stdout}
}

// parseLevel accepts slog level names in any case. Anything unparseable is Info.
func parseLevel(level string) slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// utcTime renders record timestamps as RFC3339 in UTC.
func utcTime(_ []string, a slog.Attr) slog.Attr {
	if a.Key != slog.TimeKey {
		return a
	}
	if t, ok := a.Value.Any().(time.Time); ok {
		a.Value = slog.StringValue(t.UTC().Format(time.RFC3339))
	}
	return a
}

// Setup writes to Console and file (either may be nil). provider, when set, is asked for
// attributes on every record, for instance the active map session id.
func (m *SlogManager) Setup(file io.Writer, level string, provider ContextProvider) {
	opts := &slog.HandlerOptions{Level: parseLevel(level), ReplaceAttr: utcTime}

	var outputs []slog.Handler
	for _, w := range []io.Writer{m.Console, file} {
		if w != nil {
			outputs = append(outputs, slog.NewTextHandler(w, opts))
		}
	}

	var h slog.Handler = NewMultiHandler(outputs...)
	if provider != nil {
		h = NewContextHandler(h, provider)
	}
	m.logger = slog.New(h)
	m.logger.Info("Logging initialized", "level", level)
}

// Logger returns the configured logger, or slog.Default before Setup.
func (m *SlogManager) Logger() *slog.Logger {
	if m.logger == nil {
		return slog.Default()
	}
	return m.logger
}
