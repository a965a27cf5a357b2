package logger

import (
	"log/slog"
	"os"
)

// New returns the process logger. JSON output so log pipelines can index the
// structured fields emitted via pkg/attrs.
func New() *slog.Logger {
	level := slog.LevelInfo
	if os.Getenv("CUSTODIA_LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
