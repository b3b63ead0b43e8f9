package runtime

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	errspkg "github.com/drblury/corert/internal/runtime/errors"
	"github.com/drblury/corert/internal/runtime/ids"
	loggingpkg "github.com/drblury/corert/internal/runtime/logging"
)

const tracerName = "corert-runtime-tracer"

// TaskFunc is the body of a submitted task. data is the value passed to
// SubmitTask; the runtime never inspects or retains it after the task runs.
type TaskFunc func(ctx context.Context, data any) error

// Task is a queued unit of work.
type Task struct {
	ID          string
	Fn          TaskFunc
	Data        any
	SubmittedAt time.Time
}

// SubmitTask queues fn(data) for a worker. It never blocks. Once teardown has
// begun it fails with an error matching both ErrQueueClosed and
// ErrRuntimeNotReady, and fn is never called.
func (r *Runtime) SubmitTask(fn TaskFunc, data any) error {
	if fn == nil {
		return fmt.Errorf("%w: task function is nil", errspkg.ErrInvalidArgument)
	}
	if r == nil {
		return errspkg.ErrRuntimeNotReady
	}

	switch r.currentPhase() {
	case PhaseStarting:
		return errspkg.ErrRuntimeNotReady
	case PhaseShuttingDown, PhaseStopped:
		return fmt.Errorf("%w: %w", errspkg.ErrQueueClosed, errspkg.ErrRuntimeNotReady)
	}

	t := Task{ID: ids.CreateULID(), Fn: fn, Data: data, SubmittedAt: time.Now()}
	if err := r.pool.submit(t); err != nil {
		if errors.Is(err, errspkg.ErrQueueClosed) {
			return fmt.Errorf("%w: %w", err, errspkg.ErrRuntimeNotReady)
		}
		return err
	}
	r.metrics.taskSubmitted()
	return nil
}

// WaitTasks blocks until every task submitted before the call has finished.
// Calling it from inside a task deadlocks.
func (r *Runtime) WaitTasks() error {
	if r == nil || r.currentPhase() != PhaseReady {
		return errspkg.ErrRuntimeNotReady
	}
	r.pool.waitTasks()
	return nil
}

// execute runs one task on a worker. Errors and panics stay with the task.
func (r *Runtime) execute(worker int, t Task) error {
	ctx, span := otel.Tracer(tracerName).Start(r.ctx, "corert.task",
		trace.WithAttributes(
			attribute.String("corert.task_id", t.ID),
			attribute.Int("corert.worker", worker),
			attribute.String("corert.runtime", r.cfg.Name),
		),
	)
	defer span.End()

	tc := TaskContext{
		TaskID:      t.ID,
		Worker:      worker,
		Data:        t.Data,
		Context:     ctx,
		SubmittedAt: t.SubmittedAt,
		StartedAt:   time.Now(),
	}
	log := r.log().With(loggingpkg.LogFields{"task_id": t.ID, "worker": worker})

	if r.hooks.OnTaskStart != nil {
		r.callHook(log, "OnTaskStart", func() { r.hooks.OnTaskStart(tc) })
	}

	err := runTask(ctx, t)
	tc.Duration = time.Since(tc.StartedAt)
	r.metrics.taskFinished(tc, err)

	if err == nil {
		span.SetStatus(codes.Ok, "")
		if r.hooks.OnTaskDone != nil {
			r.callHook(log, "OnTaskDone", func() { r.hooks.OnTaskDone(tc) })
		}
		return nil
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	fields := loggingpkg.LogFields{"duration_ms": tc.Duration.Milliseconds()}
	var panicErr *errspkg.TaskPanicError
	if errors.As(err, &panicErr) {
		fields["panic"] = true
		fields["stack"] = string(panicErr.Stack)
	}
	log.Error("Task failed", err, fields)

	if r.hooks.OnTaskError != nil {
		r.callHook(log, "OnTaskError", func() { r.hooks.OnTaskError(tc, err) })
	}
	r.events.emit(EventTaskFailed, map[string]any{
		"task_id": t.ID,
		"worker":  worker,
		"error":   err.Error(),
	})
	return err
}

func runTask(ctx context.Context, t Task) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = &errspkg.TaskPanicError{Value: rec, Stack: debug.Stack()}
		}
	}()
	return t.Fn(ctx, t.Data)
}

func (r *Runtime) callHook(log loggingpkg.ServiceLogger, name string, fn func()) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error("Task hook panicked", &errspkg.TaskPanicError{Value: rec, Stack: debug.Stack()},
				loggingpkg.LogFields{"hook": name})
		}
	}()
	fn()
}

// dispatchPanicked is told by the pool when execute itself panicked, for
// example while formatting a task's error. The task is already counted as
// failed.
func (r *Runtime) dispatchPanicked(worker int, t Task, err error) {
	fields := loggingpkg.LogFields{"task_id": t.ID, "worker": worker}
	var panicErr *errspkg.TaskPanicError
	if errors.As(err, &panicErr) {
		fields["stack"] = string(panicErr.Stack)
	}
	r.log().Error("Task dispatch panicked", err, fields)
}
