// Package logger holds the process-wide slog logger used by heapctl.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// L is the global logger instance. It discards all output until Init is called.
var L *slog.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))

// Options configures the logger initialization.
type Options struct {
	Enabled bool       // If false, all logging is discarded
	JSON    bool       // JSON records instead of key=value text
	Level   slog.Level // Minimum log level
	Out     io.Writer  // Destination. Default: os.Stderr
}

// Init replaces L according to opts.
func Init(opts Options) {
	if !opts.Enabled {
		L = slog.New(slog.NewTextHandler(io.Discard, nil))
		return
	}
	out := opts.Out
	if out == nil {
		out = os.Stderr
	}
	ho := &slog.HandlerOptions{Level: opts.Level}
	if opts.JSON {
		L = slog.New(slog.NewJSONHandler(out, ho))
		return
	}
	L = slog.New(slog.NewTextHandler(out, ho))
}

// ParseLevel maps a flag value (debug, info, warn, error) to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// Debug logs a debug message with optional key-value pairs.
func Debug(msg string, args ...any) { L.Debug(msg, args...) }

// Info logs an info message with optional key-value pairs.
func Info(msg string, args ...any) { L.Info(msg, args...) }

// Warn logs a warning message with optional key-value pairs.
func Warn(msg string, args ...any) { L.Warn(msg, args...) }

// Error logs an error message with optional key-value pairs.
func Error(msg string, args ...any) { L.Error(msg, args...) }
