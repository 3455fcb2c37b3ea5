package config

import (
	"log/slog"
	"os"
)

// NewLogger builds the application logger: JSON structured output, debug
// level in dev.
func NewLogger(environment string) *slog.Logger {
	level := slog.LevelInfo
	if environment == "dev" {
		level = slog.LevelDebug
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
}
