package logger

import (
	"log/slog"
	"os"
)

// New returns the process logger. Handlers and services receive it explicitly
// instead of reaching for a package-level default.
func New() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}
