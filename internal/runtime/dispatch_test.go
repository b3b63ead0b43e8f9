package runtime

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	configpkg "github.com/drblury/corert/internal/runtime/config"
	errspkg "github.com/drblury/corert/internal/runtime/errors"
	loggingpkg "github.com/drblury/corert/internal/runtime/logging"
	"github.com/drblury/corert/internal/runtime/metadata"
)

// nilReceiverError dereferences its receiver, so a typed nil panics in Error.
type nilReceiverError struct{ msg string }

func (e *nilReceiverError) Error() string { return e.msg }

func returnsTypedNil() error {
	var err *nilReceiverError
	return err
}

// panickyLogger panics when asked to log msg and records everything else.
type panickyLogger struct {
	*recordingLogger
	msg string
}

func (l *panickyLogger) With(fields loggingpkg.LogFields) loggingpkg.ServiceLogger {
	return &panickyLogger{recordingLogger: l.recordingLogger.With(fields).(*recordingLogger), msg: l.msg}
}

func (l *panickyLogger) Error(msg string, err error, fields loggingpkg.LogFields) {
	if msg == l.msg {
		panic("logger exploded")
	}
	l.recordingLogger.Error(msg, err, fields)
}

// panickyPublisher panics on every publish of a task.failed event.
type panickyPublisher struct {
	testPublisher
}

func (p *panickyPublisher) Publish(topic string, msgs ...*message.Message) error {
	for _, msg := range msgs {
		if msg.Metadata.Get(metadata.KeyEvent) == string(EventTaskFailed) {
			panic("publisher exploded")
		}
	}
	return p.testPublisher.Publish(topic, msgs...)
}

func waitTasksWithin(t *testing.T, rt *Runtime, d time.Duration) {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- rt.WaitTasks() }()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(d):
		t.Fatalf("WaitTasks did not return within %s; pool %+v", d, rt.State().Pool)
	}
}

func TestTypedNilErrorDoesNotKillWorker(t *testing.T) {
	rt, log := newTestRuntime(t, &configpkg.Config{MaxWorkers: 1})

	var later atomic.Bool
	require.NoError(t, rt.SubmitTask(func(context.Context, any) error { return returnsTypedNil() }, nil))
	require.NoError(t, rt.SubmitTask(func(context.Context, any) error {
		later.Store(true)
		return nil
	}, nil))
	waitTasksWithin(t, rt, 2*time.Second)

	assert.True(t, later.Load())
	stats := rt.State().Pool
	assert.Equal(t, 1, stats.Workers)
	assert.Equal(t, uint64(1), stats.Failed)
	assert.Equal(t, uint64(1), stats.Completed)
	assert.Zero(t, stats.InFlight)

	entry, ok := log.find("Task dispatch panicked")
	require.True(t, ok)
	var panicErr *errspkg.TaskPanicError
	assert.ErrorAs(t, entry.err, &panicErr)
	assert.NotEmpty(t, entry.fields["task_id"])
}

func TestPanickingLoggerDoesNotKillWorker(t *testing.T) {
	log := &panickyLogger{recordingLogger: newRecordingLogger(), msg: "Task failed"}
	rt, err := Init(&configpkg.Config{MaxWorkers: 1}, WithLogger(log))
	require.NoError(t, err)
	t.Cleanup(rt.Shutdown)

	var later atomic.Bool
	require.NoError(t, rt.SubmitTask(func(context.Context, any) error { return errBoom }, nil))
	require.NoError(t, rt.SubmitTask(func(context.Context, any) error {
		later.Store(true)
		return nil
	}, nil))
	waitTasksWithin(t, rt, 2*time.Second)

	assert.True(t, later.Load())
	stats := rt.State().Pool
	assert.Equal(t, 1, stats.Workers)
	assert.Equal(t, uint64(1), stats.Failed)
	assert.Equal(t, uint64(1), stats.Completed)

	_, ok := log.find("Task dispatch panicked")
	assert.True(t, ok)
}

func TestPanickingPublisherDoesNotKillWorker(t *testing.T) {
	pub := &panickyPublisher{}
	rt, _ := newTestRuntime(t, &configpkg.Config{MaxWorkers: 1}, WithEventPublisher(pub))

	var later atomic.Bool
	require.NoError(t, rt.SubmitTask(func(context.Context, any) error { return errBoom }, nil))
	require.NoError(t, rt.SubmitTask(func(context.Context, any) error {
		later.Store(true)
		return nil
	}, nil))
	waitTasksWithin(t, rt, 2*time.Second)

	assert.True(t, later.Load())
	stats := rt.State().Pool
	assert.Equal(t, 1, stats.Workers)
	assert.Equal(t, uint64(1), stats.Failed)
	assert.Equal(t, uint64(1), stats.Completed)

	require.NoError(t, rt.RegisterModule(NewModule("late", nil, nil)))
	assert.Contains(t, pub.kinds(), string(EventModuleStarted))
}

func TestShutdownCompletesAfterDispatchPanic(t *testing.T) {
	log := newRecordingLogger()
	rt, err := Init(&configpkg.Config{MaxWorkers: 2}, WithLogger(log))
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		require.NoError(t, rt.SubmitTask(func(context.Context, any) error { return returnsTypedNil() }, nil))
	}

	done := make(chan struct{})
	go func() {
		rt.Shutdown()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Shutdown hung after a dispatch panic")
	}
	assert.Equal(t, PhaseStopped, rt.Phase())
}
