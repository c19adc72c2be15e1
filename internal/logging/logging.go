// Package logging builds the slog loggers used by the loader, the plugin
// manager and the runner. Every logger carries a dotted "logger" attribute
// naming its component, which log capture filters on.
package logging

import (
	"io"
	"log/slog"
	"strings"
)

// Key is the attribute holding the component name.
const Key = "logger"

// Root is the name all component loggers are prefixed with.
const Root = "nosey"

// ParseLevel converts a level name to a slog level. Unknown names map to warn.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

// New creates a logger writing to w in the given format ("text" or "json").
func New(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	var h slog.Handler
	if format == "json" {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(h)
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

// For returns a child of log tagged with the component name.
func For(log *slog.Logger, component string) *slog.Logger {
	if log == nil {
		log = Discard()
	}
	return log.With(Key, Root+"."+component)
}
