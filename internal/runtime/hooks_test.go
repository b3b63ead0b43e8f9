package runtime

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskHooks_Merge(t *testing.T) {
	var order []string

	hooks1 := TaskHooks{
		OnTaskStart: func(ctx TaskContext) { order = append(order, "start1") },
		OnTaskDone:  func(ctx TaskContext) { order = append(order, "done1") },
		OnTaskError: func(ctx TaskContext, err error) { order = append(order, "error1") },
	}
	hooks2 := TaskHooks{
		OnTaskStart: func(ctx TaskContext) { order = append(order, "start2") },
		OnTaskDone:  func(ctx TaskContext) { order = append(order, "done2") },
		OnTaskError: func(ctx TaskContext, err error) { order = append(order, "error2") },
	}

	merged := hooks1.Merge(hooks2)
	merged.OnTaskStart(TaskContext{})
	merged.OnTaskDone(TaskContext{})
	merged.OnTaskError(TaskContext{}, errBoom)

	assert.Equal(t, []string{"start1", "start2", "done1", "done2", "error1", "error2"}, order)
}

func TestTaskHooks_MergeWithNil(t *testing.T) {
	var called bool
	hooks := TaskHooks{OnTaskStart: func(ctx TaskContext) { called = true }}

	merged := hooks.Merge(TaskHooks{})
	require.NotNil(t, merged.OnTaskStart)
	merged.OnTaskStart(TaskContext{})
	assert.True(t, called)
	assert.Nil(t, merged.OnTaskDone)
	assert.Nil(t, merged.OnTaskError)

	called = false
	merged = TaskHooks{}.Merge(hooks)
	merged.OnTaskStart(TaskContext{})
	assert.True(t, called)
}

func TestTaskContext_QueueWait(t *testing.T) {
	submitted := time.Now()
	tc := TaskContext{SubmittedAt: submitted, StartedAt: submitted.Add(40 * time.Millisecond)}
	assert.Equal(t, 40*time.Millisecond, tc.QueueWait())
}

func TestLoggingHooks(t *testing.T) {
	log := newRecordingLogger()
	hooks := LoggingHooks(log)

	tc := TaskContext{TaskID: "01J0TASK", Worker: 2, Duration: 15 * time.Millisecond}
	hooks.OnTaskStart(tc)
	hooks.OnTaskDone(tc)
	hooks.OnTaskError(tc, errors.New("task error"))

	entries := log.entries()
	require.Len(t, entries, 3)

	assert.Equal(t, "debug", entries[0].level)
	assert.Equal(t, "Task started", entries[0].msg)
	assert.Equal(t, "01J0TASK", entries[0].fields["task_id"])
	assert.Equal(t, 2, entries[0].fields["worker"])

	assert.Equal(t, "Task completed", entries[1].msg)
	assert.Equal(t, int64(15), entries[1].fields["duration_ms"])

	assert.Equal(t, "error", entries[2].level)
	assert.Equal(t, "Task failed", entries[2].msg)
	assert.EqualError(t, entries[2].err, "task error")
}

func TestAlertingHooks(t *testing.T) {
	var alerted error
	hooks := AlertingHooks(func(ctx TaskContext, err error) { alerted = err })

	assert.Nil(t, hooks.OnTaskStart)
	assert.Nil(t, hooks.OnTaskDone)
	hooks.OnTaskError(TaskContext{}, errBoom)
	assert.ErrorIs(t, alerted, errBoom)
}
