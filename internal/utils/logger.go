package utils

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// NewLogger returns a slog.Logger configured for the desired verbosity and format.
// Text output goes through the colored PrettyHandler.
func NewLogger(level string, json bool) *slog.Logger {
	return newLogger(os.Stdout, level, json)
}

func newLogger(out io.Writer, level string, json bool) *slog.Logger {
	opts := slog.HandlerOptions{Level: ParseLevel(level)}
	if json {
		return slog.New(slog.NewJSONHandler(out, &opts))
	}
	return slog.New(NewPrettyHandler(out, PrettyHandlerOptions{SlogOpts: opts}))
}

// ParseLevel maps a config string onto a slog level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
