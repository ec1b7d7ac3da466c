package logger

import (
	"log/slog"
	"os"
)

// New returns the process-wide structured logger. JSON output keeps log
// aggregation trivial; the level can be widened via FACEGATE_LOG_DEBUG.
func New() *slog.Logger {
	level := slog.LevelInfo
	if os.Getenv("FACEGATE_LOG_DEBUG") == "true" {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
