package logging

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
)

// Sink receives fully formatted log lines. It is the shape of the logger
// callback embedders plug into the runtime.
type Sink func(level Level, message string)

// NewSinkServiceLogger adapts a Sink into a ServiceLogger. Structured fields
// are appended to the message as sorted key=value pairs.
func NewSinkServiceLogger(sink Sink) ServiceLogger {
	if sink == nil {
		panic("corert: log sink cannot be nil")
	}
	return &sinkServiceLogger{sink: sink}
}

type sinkServiceLogger struct {
	sink   Sink
	fields LogFields
}

func (s *sinkServiceLogger) With(fields LogFields) ServiceLogger {
	if len(fields) == 0 {
		return s
	}
	return &sinkServiceLogger{sink: s.sink, fields: mergeFields(s.fields, fields)}
}

func (s *sinkServiceLogger) Trace(msg string, fields LogFields) {
	s.emit(LevelTrace, msg, nil, fields)
}

func (s *sinkServiceLogger) Debug(msg string, fields LogFields) {
	s.emit(LevelDebug, msg, nil, fields)
}

func (s *sinkServiceLogger) Info(msg string, fields LogFields) {
	s.emit(LevelInfo, msg, nil, fields)
}

func (s *sinkServiceLogger) Warn(msg string, fields LogFields) {
	s.emit(LevelWarn, msg, nil, fields)
}

func (s *sinkServiceLogger) Error(msg string, err error, fields LogFields) {
	s.emit(LevelError, msg, err, fields)
}

func (s *sinkServiceLogger) emit(level Level, msg string, err error, fields LogFields) {
	all := mergeFields(s.fields, fields)
	if err != nil {
		all = mergeFields(all, LogFields{"error": err})
	}
	s.sink(level, formatLine(msg, all))
}

func formatLine(msg string, fields LogFields) string {
	if len(fields) == 0 {
		return msg
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(msg)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, fields[k])
	}
	return b.String()
}

func mergeFields(base, extra LogFields) LogFields {
	if len(base) == 0 {
		return extra
	}
	if len(extra) == 0 {
		return base
	}
	out := make(LogFields, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

// DefaultSink writes "[name LEVEL] message" lines to w, stderr when nil.
func DefaultSink(name string, w io.Writer) Sink {
	if w == nil {
		w = os.Stderr
	}
	var mu sync.Mutex
	return func(level Level, message string) {
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintf(w, "[%s %s] %s\n", name, level, message)
	}
}
