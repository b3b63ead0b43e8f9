package runtime

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	configpkg "github.com/drblury/corert/internal/runtime/config"
	loggingpkg "github.com/drblury/corert/internal/runtime/logging"
)

type sinkLine struct {
	level loggingpkg.Level
	msg   string
}

type captureSink struct {
	mu    sync.Mutex
	lines []sinkLine
}

func (c *captureSink) sink(level loggingpkg.Level, msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = append(c.lines, sinkLine{level: level, msg: msg})
}

func (c *captureSink) find(prefix string) (sinkLine, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, l := range c.lines {
		if strings.HasPrefix(l.msg, prefix) {
			return l, true
		}
	}
	return sinkLine{}, false
}

func TestLogThroughSink(t *testing.T) {
	capture := &captureSink{}
	rt, err := Init(&configpkg.Config{Name: "svc"}, WithSink(capture.sink))
	require.NoError(t, err)
	t.Cleanup(rt.Shutdown)

	started, ok := capture.find("Runtime started")
	require.True(t, ok)
	assert.Equal(t, loggingpkg.LevelInfo, started.level)
	assert.Contains(t, started.msg, " runtime=svc")
	assert.Contains(t, started.msg, " runtime_id="+rt.ID())

	rt.Log(loggingpkg.LevelWarn, "disk at %d%%", 91)
	line, ok := capture.find("disk at 91%")
	require.True(t, ok)
	assert.Equal(t, loggingpkg.LevelWarn, line.level)
}

func TestLogDebugGating(t *testing.T) {
	rt, log := newTestRuntime(t, nil)

	rt.Log(loggingpkg.LevelDebug, "hidden %d", 1)
	rt.Log(loggingpkg.LevelTrace, "hidden %d", 2)
	_, ok := log.find("hidden 1")
	assert.False(t, ok)

	rt.EnableDebug(true)
	rt.Log(loggingpkg.LevelDebug, "shown %d", 1)
	rt.Log(loggingpkg.LevelTrace, "shown %d", 2)

	entry, ok := log.find("shown 1")
	require.True(t, ok)
	assert.Equal(t, "debug", entry.level)
	entry, ok = log.find("shown 2")
	require.True(t, ok)
	assert.Equal(t, "trace", entry.level)

	rt.EnableDebug(false)
	rt.Log(loggingpkg.LevelDebug, "hidden again")
	_, ok = log.find("hidden again")
	assert.False(t, ok)
}

func TestLogDebugFromConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  configpkg.Config
		want bool
	}{
		{"default", configpkg.Config{}, false},
		{"debug flag", configpkg.Config{Debug: true}, true},
		{"debug level", configpkg.Config{LogLevel: "debug"}, true},
		{"trace level", configpkg.Config{LogLevel: "trace"}, true},
		{"warn level", configpkg.Config{LogLevel: "warn"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			rt, _ := newTestRuntime(t, &cfg)
			assert.Equal(t, tt.want, rt.DebugEnabled())
		})
	}
}

func TestLogLevelFilter(t *testing.T) {
	rt, log := newTestRuntime(t, &configpkg.Config{LogLevel: "error"})

	rt.Log(loggingpkg.LevelInfo, "info line")
	rt.Log(loggingpkg.LevelWarn, "warn line")
	rt.Log(loggingpkg.LevelError, "error line")

	_, ok := log.find("info line")
	assert.False(t, ok)
	_, ok = log.find("warn line")
	assert.False(t, ok)
	entry, ok := log.find("error line")
	require.True(t, ok)
	assert.Equal(t, "error", entry.level)
}

func TestLogTruncatesToBuffer(t *testing.T) {
	tests := []struct {
		name string
		size int
		msg  string
		want string
	}{
		{"fits", 16, "hello", "hello"},
		{"ascii", 8, "hello world", "hello wo"},
		{"backs off to rune start", 4, "aé€", "aé"},
		{"whole runes", 3, "aé€", "aé"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt, log := newTestRuntime(t, &configpkg.Config{LogBufferSize: tt.size})

			rt.Log(loggingpkg.LevelInfo, "%s", tt.msg)
			_, ok := log.find(tt.want)
			assert.True(t, ok, "expected %q in log", tt.want)
		})
	}
}

func TestTruncateUTF8(t *testing.T) {
	tests := []struct {
		in    string
		limit int
		want  string
	}{
		{"hello", 0, "hello"},
		{"hello", 10, "hello"},
		{"hello", 2, "he"},
		{"日本語", 4, "日"},
		{"日本語", 6, "日本"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, truncateUTF8(tt.in, tt.limit), "truncateUTF8(%q, %d)", tt.in, tt.limit)
	}
}

func TestLogAfterShutdownStillTruncates(t *testing.T) {
	log := newRecordingLogger()
	rt, err := Init(&configpkg.Config{LogBufferSize: 5}, WithLogger(log))
	require.NoError(t, err)
	rt.Shutdown()

	rt.Log(loggingpkg.LevelError, "after shutdown")
	_, ok := log.find("after")
	assert.True(t, ok)
}

func TestSetLogger(t *testing.T) {
	rt, first := newTestRuntime(t, nil)

	second := newRecordingLogger()
	rt.SetLogger(second)
	rt.Log(loggingpkg.LevelInfo, "to second")

	_, ok := first.find("to second")
	assert.False(t, ok)
	entry, ok := second.find("to second")
	require.True(t, ok)
	assert.Equal(t, rt.ID(), entry.fields["runtime_id"])

	rt.SetLogger(nil)
	rt.Log(loggingpkg.LevelInfo, "to default")
	_, ok = second.find("to default")
	assert.False(t, ok)
	assert.NotNil(t, rt.Logger())
}

func TestLogOnNilRuntime(t *testing.T) {
	var rt *Runtime
	assert.NotPanics(t, func() { rt.Log(loggingpkg.LevelError, "nobody listens") })
}
