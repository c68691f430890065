package logger

import (
	"io"
	"log/slog"
	"os"
)

// New returns a text slog logger writing to stdout.
func New() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}

// Discard returns a logger that drops everything; components default to this
// so callers only wire logging when they want it.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
