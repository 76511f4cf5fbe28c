// Package logger wraps log/slog with the small amount of configuration the
// service needs: a level, an output format and a service attribute attached
// to every record.
package logger

import (
	"io"
	"log/slog"
	"os"
)

// Config controls how the logger is built. Zero values fall back to JSON
// output at info level on stdout.
type Config struct {
	Level   string // "debug", "info", "warn" or "error"
	Format  string // "json" or "text"
	Output  io.Writer
	Service string
}

// Logger embeds *slog.Logger so callers use the familiar Info/Warn/Error
// methods with key/value attributes.
type Logger struct {
	*slog.Logger
}

// New constructs a Logger from cfg.
func New(cfg Config) *Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(cfg.Output, opts)
	} else {
		handler = slog.NewJSONHandler(cfg.Output, opts)
	}
	if cfg.Service != "" {
		handler = handler.WithAttrs([]slog.Attr{slog.String("service", cfg.Service)})
	}
	return &Logger{Logger: slog.New(handler)}
}

// Fatal logs at error level and exits. Only startup code should call it.
func (l *Logger) Fatal(msg string, args ...any) {
	l.Error(msg, args...)
	os.Exit(1)
}

// Discard returns a logger that drops everything. Used in tests.
func Discard() *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}
