// Package logging configures slog for a TUI process: diagnostics go to a
// file, never to stdout, which belongs to the rendered interface.
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// Init opens the log file and returns a logger writing to it, plus the
// file so the caller can Close() on shutdown. If the file cannot be
// opened the logger discards everything; diagnostics are best-effort
// and must never take the dashboard down.
func Init() (*slog.Logger, *os.File) {
	logDir := os.Getenv("CPD_LOG_DIR")
	if logDir == "" {
		logDir = "./logs"
	}
	_ = os.MkdirAll(logDir, 0o755)

	filePath := filepath.Join(logDir, "cpd-monitor.log")
	f, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil)), nil
	}

	h := slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelInfo})
	return slog.New(h), f
}

// Err wraps an error as a standard slog attribute.
func Err(err error) slog.Attr {
	return slog.Attr{Key: "error", Value: slog.StringValue(err.Error())}
}
