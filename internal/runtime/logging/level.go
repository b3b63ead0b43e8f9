package logging

import (
	"fmt"
	"log/slog"
	"strings"
)

// Level orders log severities from most to least verbose.
type Level int

const (
	LevelTrace Level = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelTrace:
		return "TRACE"
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return fmt.Sprintf("LEVEL(%d)", int(l))
	}
}

// ParseLevel accepts the names used in configuration, case-insensitively.
// An empty string yields LevelInfo.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return LevelTrace, nil
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// slog has no trace level; Watermill logs trace at Debug-4.
const slogLevelTrace = slog.LevelDebug - 4

func (l Level) slogLevel() slog.Level {
	switch l {
	case LevelTrace:
		return slogLevelTrace
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WarnLogger is implemented by loggers with a native warning level.
type WarnLogger interface {
	Warn(msg string, fields LogFields)
}

// Warn logs at warning level when log supports it and falls back to Info with
// a severity field otherwise.
func Warn(log ServiceLogger, msg string, fields LogFields) {
	if log == nil {
		return
	}
	if wl, ok := log.(WarnLogger); ok {
		wl.Warn(msg, fields)
		return
	}
	enriched := make(LogFields, len(fields)+1)
	for k, v := range fields {
		enriched[k] = v
	}
	enriched["severity"] = "warn"
	log.Info(msg, enriched)
}

// Log dispatches to the method of log that matches level.
func Log(log ServiceLogger, level Level, msg string, fields LogFields) {
	if log == nil {
		return
	}
	switch level {
	case LevelTrace:
		log.Trace(msg, fields)
	case LevelDebug:
		log.Debug(msg, fields)
	case LevelWarn:
		Warn(log, msg, fields)
	case LevelError:
		log.Error(msg, nil, fields)
	default:
		log.Info(msg, fields)
	}
}
