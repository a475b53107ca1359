package logger

import (
	"log/slog"
	"os"
)

// New returns the process logger. JSON output keeps log lines machine
// parseable; debug mode lowers the level for local work.
func New(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
