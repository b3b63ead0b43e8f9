package runtime

import (
	"fmt"
	"unicode/utf8"

	loggingpkg "github.com/drblury/corert/internal/runtime/logging"
)

type loggerRef struct {
	loggingpkg.ServiceLogger
}

// SetLogger replaces the runtime logger. Nil restores the default stderr
// logger. The runtime borrows log; it is never closed.
func (r *Runtime) SetLogger(log loggingpkg.ServiceLogger) {
	if log == nil {
		log = r.defaultLogger
	}
	r.logger.Store(&loggerRef{log.With(r.logFields())})
}

// Logger returns the logger the runtime currently writes to.
func (r *Runtime) Logger() loggingpkg.ServiceLogger {
	return r.log()
}

func (r *Runtime) log() loggingpkg.ServiceLogger {
	return r.logger.Load().ServiceLogger
}

func (r *Runtime) logFields() loggingpkg.LogFields {
	return loggingpkg.LogFields{"runtime": r.cfg.Name, "runtime_id": r.id}
}

// EnableDebug turns debug and trace output on or off.
func (r *Runtime) EnableDebug(enabled bool) {
	r.debug.Store(enabled)
}

// DebugEnabled reports whether debug output is on.
func (r *Runtime) DebugEnabled() bool {
	return r.debug.Load()
}

// Log formats a message and writes it at level. Debug and trace messages are
// dropped unless debug is enabled; other levels are filtered by the
// configured LogLevel. The formatted text is cut to the log buffer size on a
// UTF-8 boundary.
func (r *Runtime) Log(level loggingpkg.Level, format string, args ...any) {
	if r == nil || !r.enabled(level) {
		return
	}
	msg := r.bounded(fmt.Sprintf(format, args...))
	loggingpkg.Log(r.log(), level, msg, nil)
}

func (r *Runtime) enabled(level loggingpkg.Level) bool {
	if level < loggingpkg.LevelInfo {
		return r.debug.Load()
	}
	return level >= r.minLevel
}

// debugLog writes lifecycle detail that is only wanted with debug on.
func (r *Runtime) debugLog(log loggingpkg.ServiceLogger, msg string, fields loggingpkg.LogFields) {
	if r.debug.Load() {
		log.Debug(msg, fields)
	}
}

// bounded copies msg into the log buffer, truncating it to the buffer size.
// Once the buffer is released the configured size still applies.
func (r *Runtime) bounded(msg string) string {
	r.logMu.Lock()
	defer r.logMu.Unlock()

	if r.logBuf == nil {
		return truncateUTF8(msg, r.cfg.LogBufferSize)
	}
	n := copy(r.logBuf, msg)
	for n < len(msg) && n > 0 && !utf8.RuneStart(msg[n]) {
		n--
	}
	return string(r.logBuf[:n])
}

func truncateUTF8(s string, limit int) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}
	n := limit
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func (r *Runtime) allocLogBuffer() error {
	buf, err := r.Alloc(r.cfg.LogBufferSize)
	if err != nil {
		return err
	}
	r.logMu.Lock()
	r.logBuf = buf
	r.logMu.Unlock()
	return nil
}

func (r *Runtime) releaseLogBuffer() {
	r.logMu.Lock()
	buf := r.logBuf
	r.logBuf = nil
	r.logMu.Unlock()

	if buf != nil {
		if err := r.Free(buf); err != nil {
			r.log().Error("Failed to release log buffer", err, nil)
		}
	}
}
