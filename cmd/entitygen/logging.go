package main

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

func setupLogger(verbose bool, format string) *slog.Logger {
	return newLogger(os.Stderr, verbose, format)
}

func newLogger(w io.Writer, verbose bool, format string) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler

	switch strings.ToLower(format) {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler).With("tool", "entitygen")
}
