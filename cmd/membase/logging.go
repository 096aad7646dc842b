package main

import (
	"io"
	"log/slog"
)

// setupLogger builds the command logger. Logs go to w, normally stderr, so
// records printed on stdout stay parseable. Levels were validated by the
// root command; an unknown one falls back to info.
func setupLogger(w io.Writer, level, format string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl, AddSource: lvl <= slog.LevelDebug}

	var handler slog.Handler = slog.NewTextHandler(w, opts)
	if format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	}
	return slog.New(handler).With("app", appName, "version", Version)
}
