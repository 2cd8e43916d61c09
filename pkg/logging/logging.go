// Package logging configures the process-wide slog logger.
//
// Two output formats are supported: colored terminal output via tint for
// local development, and JSON for deployments where logs are shipped to a
// collector.
package logging

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

// Setup installs the default logger. Format is "text" or "json"; level is
// one of debug, info, warn, error. Unrecognized values fall back to text
// and info.
func Setup(format, level string) {
	slog.SetDefault(slog.New(newHandler(format, ParseLevel(level))))
}

// ParseLevel maps a level name to a slog.Level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func newHandler(format string, level slog.Level) slog.Handler {
	if strings.ToLower(format) == "json" {
		return slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}
	return tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
		AddSource:  true,
	})
}
