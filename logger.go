package main

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// SetupLogger installs the default slog logger writing to stdout, where the
// Lambda runtime forwards it to CloudWatch Logs.
//
// format "text" selects the human readable handler, anything else JSON.
// level is one of debug, info, warn or error and defaults to info.
func SetupLogger(format, level string) {
	slog.SetDefault(newLogger(os.Stdout, format, level))
}

func newLogger(w io.Writer, format, level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}
	if strings.ToLower(format) == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}

	return slog.New(slog.NewJSONHandler(w, opts))
}
