// Package logging builds the slog logger shared by the CLI, the TUI and
// the stream client.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// ParseLevel maps a config string to a slog level. Unknown values map to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Open returns a writer for the sink name: "stderr" (default), "stdout",
// "discard" or "file:<path>". The returned closer is a no-op for std streams.
func Open(sink string) (io.Writer, func() error, error) {
	noop := func() error { return nil }
	switch {
	case sink == "" || sink == "stderr":
		return os.Stderr, noop, nil
	case sink == "stdout":
		return os.Stdout, noop, nil
	case sink == "discard":
		return io.Discard, noop, nil
	case strings.HasPrefix(sink, "file:"):
		path := strings.TrimPrefix(sink, "file:")
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, nil, fmt.Errorf("create log directory: %w", err)
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file %s: %w", path, err)
		}
		return f, f.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown log sink %q", sink)
	}
}

// Init creates a text logger for the given level and sink and installs it
// as the slog default. If the sink cannot be opened it falls back to stderr.
func Init(level, sink string) (*slog.Logger, func() error) {
	w, closeFn, err := Open(sink)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging: %v, falling back to stderr\n", err)
		w, closeFn = os.Stderr, func() error { return nil }
	}
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: ParseLevel(level)}))
	slog.SetDefault(logger)
	return logger, closeFn
}

// Discard returns a logger that drops everything; used by tests and as a
// nil-safe default in constructors.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
