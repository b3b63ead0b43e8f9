package runtime

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/require"

	configpkg "github.com/drblury/corert/internal/runtime/config"
	loggingpkg "github.com/drblury/corert/internal/runtime/logging"
	"github.com/drblury/corert/internal/runtime/metadata"
)

type logEntry struct {
	level  string
	msg    string
	err    error
	fields loggingpkg.LogFields
}

type logRecorder struct {
	mu   sync.Mutex
	logs []logEntry
}

// recordingLogger captures every entry, including fields inherited via With.
type recordingLogger struct {
	rec    *logRecorder
	fields loggingpkg.LogFields
}

func newRecordingLogger() *recordingLogger {
	return &recordingLogger{rec: &logRecorder{}}
}

func (l *recordingLogger) With(fields loggingpkg.LogFields) loggingpkg.ServiceLogger {
	merged := loggingpkg.LogFields{}
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &recordingLogger{rec: l.rec, fields: merged}
}

func (l *recordingLogger) Trace(msg string, fields loggingpkg.LogFields) {
	l.add("trace", msg, nil, fields)
}

func (l *recordingLogger) Debug(msg string, fields loggingpkg.LogFields) {
	l.add("debug", msg, nil, fields)
}

func (l *recordingLogger) Info(msg string, fields loggingpkg.LogFields) {
	l.add("info", msg, nil, fields)
}

func (l *recordingLogger) Error(msg string, err error, fields loggingpkg.LogFields) {
	l.add("error", msg, err, fields)
}

func (l *recordingLogger) add(level, msg string, err error, fields loggingpkg.LogFields) {
	merged := loggingpkg.LogFields{}
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	l.rec.mu.Lock()
	defer l.rec.mu.Unlock()
	l.rec.logs = append(l.rec.logs, logEntry{level: level, msg: msg, err: err, fields: merged})
}

func (l *recordingLogger) entries() []logEntry {
	l.rec.mu.Lock()
	defer l.rec.mu.Unlock()
	out := make([]logEntry, len(l.rec.logs))
	copy(out, l.rec.logs)
	return out
}

func (l *recordingLogger) find(msg string) (logEntry, bool) {
	for _, e := range l.entries() {
		if e.msg == msg {
			return e, true
		}
	}
	return logEntry{}, false
}

// testPublisher records published event kinds in order.
type testPublisher struct {
	mu       sync.Mutex
	topics   []string
	messages []*message.Message
	err      error
	closed   bool
}

func (p *testPublisher) Publish(topic string, msgs ...*message.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	for _, msg := range msgs {
		p.topics = append(p.topics, topic)
		p.messages = append(p.messages, msg)
	}
	return nil
}

func (p *testPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *testPublisher) kinds() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.messages))
	for i, msg := range p.messages {
		out[i] = msg.Metadata.Get(metadata.KeyEvent)
	}
	return out
}

// trackingModule records every callback it receives into a shared journal.
type trackingModule struct {
	name     string
	initErr  error
	shutErr  error
	journal  *moduleJournal
	inits    int
	shutdown int
}

type moduleJournal struct {
	mu    sync.Mutex
	calls []string
}

func (j *moduleJournal) add(call string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.calls = append(j.calls, call)
}

func (j *moduleJournal) list() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.calls...)
}

func (m *trackingModule) Name() string { return m.name }

func (m *trackingModule) Init(context.Context, *Runtime) error {
	m.inits++
	m.journal.add("init:" + m.name)
	return m.initErr
}

func (m *trackingModule) Shutdown(context.Context, *Runtime) error {
	m.shutdown++
	m.journal.add("shutdown:" + m.name)
	return m.shutErr
}

func newTrackingModule(name string, journal *moduleJournal) *trackingModule {
	return &trackingModule{name: name, journal: journal}
}

var errBoom = errors.New("boom")

// newTestRuntime starts a runtime with a recording logger and shuts it down
// when the test ends.
func newTestRuntime(t *testing.T, cfg *configpkg.Config, opts ...Option) (*Runtime, *recordingLogger) {
	t.Helper()
	log := newRecordingLogger()
	rt, err := Init(cfg, append([]Option{WithLogger(log)}, opts...)...)
	require.NoError(t, err)
	require.NotNil(t, rt)
	t.Cleanup(rt.Shutdown)
	return rt, log
}
