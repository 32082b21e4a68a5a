// Package log provides a structured logging interface for autotune.
//
// This package defines a minimal, slog-compatible logging interface backed by
// zerolog. Every component of the engine obtains its logger through
// GetLoggerWithName so that log lines carry the emitting component, and
// callers that embed the engine can redirect output with SetGlobalLogger.
//
// Example usage:
//
//	logger := log.GetLoggerWithName("tuning").With(
//	    log.ModelNameKey, "random_forest",
//	)
//	logger.Info("Search finished",
//	    log.SearchCandidatesKey, 10,
//	    log.ScoreKey, 0.93,
//	)
package log

import (
	"context"
)

// Logger defines a structured logging interface compatible with Go's log/slog.
//
// Fields are passed as alternating key/value pairs. An error passed as the
// only odd field (Error("msg", err, k, v)) is logged under ErrAttrKey.
type Logger interface {
	// Debug logs a debug-level message with optional structured fields.
	Debug(msg string, fields ...any)

	// Info logs an info-level message with optional structured fields.
	Info(msg string, fields ...any)

	// Warn logs a warning-level message with optional structured fields.
	// Degraded computations (a failed scoring method, a failed search)
	// are reported at this level.
	Warn(msg string, fields ...any)

	// Error logs an error-level message with optional structured fields.
	Error(msg string, fields ...any)

	// With returns a new Logger with the given fields pre-populated.
	With(fields ...any) Logger

	// Enabled reports whether the logger emits log records at the given level.
	Enabled(ctx context.Context, level Level) bool
}

// Level represents a logging level, compatible with slog.Level.
type Level int

// Standard logging levels, values are compatible with slog.Level.
const (
	LevelDebug Level = -4
	LevelInfo  Level = 0
	LevelWarn  Level = 4
	LevelError Level = 8
)

// String returns the string representation of the log level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}
