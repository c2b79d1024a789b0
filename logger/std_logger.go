package logger

import (
	"log/slog"
	"os"
	"strings"
)

// Format selects the rendering used by NewStdLogger.
type Format int

const (
	FormatText Format = iota
	FormatJSON
)

// ParseFormat maps a string ("text"|"json") to a Format, defaulting to text.
func ParseFormat(s string) Format {
	if strings.EqualFold(s, "json") {
		return FormatJSON
	}
	return FormatText
}

// parseLevel maps a string to an slog.Level. Defaults to LevelInfo on
// unknown input.
func parseLevel(levelStr string) slog.Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// StdLogger logs structured messages via log/slog.
type StdLogger struct {
	base *slog.Logger
}

// NewStdLogger returns a Logger backed by log/slog, writing to stderr at
// the given minimum level and in the given format.
func NewStdLogger(minLevelStr string, format Format) Logger {
	level := parseLevel(minLevelStr)
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if format == FormatJSON {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	return &StdLogger{base: slog.New(handler)}
}

func (l *StdLogger) Debugw(msg string, kvs ...any) { l.base.Debug(msg, kvs...) }
func (l *StdLogger) Infow(msg string, kvs ...any)  { l.base.Info(msg, kvs...) }
func (l *StdLogger) Warnw(msg string, kvs ...any)  { l.base.Warn(msg, kvs...) }
func (l *StdLogger) Errorw(msg string, kvs ...any) { l.base.Error(msg, kvs...) }

func (l *StdLogger) Fatalw(msg string, kvs ...any) {
	l.base.Error(msg, kvs...)
	os.Exit(1)
}

func (l *StdLogger) With(kvs ...any) Logger {
	return &StdLogger{base: l.base.With(kvs...)}
}

func (l *StdLogger) WithComponent(name string) Logger {
	return &StdLogger{base: l.base.With("component", name)}
}
