package runtime

import (
	"io"
	"log/slog"
	"os"
)

// DefaultLogger writes text logs to stderr at info level.
func DefaultLogger() *slog.Logger {
	return NewLogger(os.Stderr, false)
}

// NewLogger writes text logs to w; verbose enables debug level.
func NewLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
