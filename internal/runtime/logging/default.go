package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// NewDefaultLogger builds the stderr logger used when the caller supplies
// none. format is "text" or "json"; anything else falls back to text.
func NewDefaultLogger(level Level, format string, w io.Writer) ServiceLogger {
	if w == nil {
		w = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: level.slogLevel()}

	var handler slog.Handler
	switch strings.ToLower(format) {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = slog.NewTextHandler(w, opts)
	}
	return NewSlogServiceLogger(slog.New(handler))
}
