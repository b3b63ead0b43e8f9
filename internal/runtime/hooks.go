package runtime

import (
	"context"
	"time"

	loggingpkg "github.com/drblury/corert/internal/runtime/logging"
)

// TaskContext provides information about a task execution to hooks.
type TaskContext struct {
	// TaskID is the ULID assigned at submission.
	TaskID string
	// Worker is the index of the worker running the task.
	Worker int
	// Data is the opaque argument passed to SubmitTask.
	Data any
	// Context is the context handed to the task function.
	Context context.Context
	// SubmittedAt is when SubmitTask accepted the task.
	SubmittedAt time.Time
	// StartedAt is when a worker picked the task up.
	StartedAt time.Time
	// Duration is how long the task ran (only set in OnTaskDone and OnTaskError).
	Duration time.Duration
}

// QueueWait is the time the task spent queued before a worker took it.
func (c TaskContext) QueueWait() time.Duration {
	return c.StartedAt.Sub(c.SubmittedAt)
}

// TaskHooks defines callbacks for task lifecycle events.
// All hooks are optional - nil hooks are simply not called. Hooks run on the
// worker goroutine; a panicking hook is recovered and logged.
type TaskHooks struct {
	// OnTaskStart is called before the task function is invoked.
	OnTaskStart func(ctx TaskContext)

	// OnTaskDone is called when the task function returns nil.
	OnTaskDone func(ctx TaskContext)

	// OnTaskError is called when the task function returns an error or
	// panics. A panic arrives as *errors.TaskPanicError.
	OnTaskError func(ctx TaskContext, err error)
}

// Merge combines two TaskHooks, creating a new TaskHooks that calls both.
// The hooks from 'other' are called after the hooks from 'h'.
func (h TaskHooks) Merge(other TaskHooks) TaskHooks {
	return TaskHooks{
		OnTaskStart: chainHooks(h.OnTaskStart, other.OnTaskStart),
		OnTaskDone:  chainHooks(h.OnTaskDone, other.OnTaskDone),
		OnTaskError: chainErrorHooks(h.OnTaskError, other.OnTaskError),
	}
}

func chainHooks(a, b func(TaskContext)) func(TaskContext) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx TaskContext) {
		a(ctx)
		b(ctx)
	}
}

func chainErrorHooks(a, b func(TaskContext, error)) func(TaskContext, error) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx TaskContext, err error) {
		a(ctx, err)
		b(ctx, err)
	}
}

// LoggingHooks returns pre-built hooks that log task lifecycle events.
func LoggingHooks(logger loggingpkg.ServiceLogger) TaskHooks {
	return TaskHooks{
		OnTaskStart: func(ctx TaskContext) {
			logger.Debug("Task started", loggingpkg.LogFields{
				"task_id":       ctx.TaskID,
				"worker":        ctx.Worker,
				"queue_wait_ms": ctx.QueueWait().Milliseconds(),
			})
		},
		OnTaskDone: func(ctx TaskContext) {
			logger.Debug("Task completed", loggingpkg.LogFields{
				"task_id":     ctx.TaskID,
				"worker":      ctx.Worker,
				"duration_ms": ctx.Duration.Milliseconds(),
			})
		},
		OnTaskError: func(ctx TaskContext, err error) {
			logger.Error("Task failed", err, loggingpkg.LogFields{
				"task_id":     ctx.TaskID,
				"worker":      ctx.Worker,
				"duration_ms": ctx.Duration.Milliseconds(),
			})
		},
	}
}

// AlertingHooks returns pre-built hooks that trigger alerts on task errors.
func AlertingHooks(alertFunc func(ctx TaskContext, err error)) TaskHooks {
	return TaskHooks{
		OnTaskError: alertFunc,
	}
}
