// Package corert is a small embeddable process runtime. A Runtime owns a
// fixed pool of worker threads fed by an unbounded FIFO task queue, a
// registry of named modules with paired init and shutdown callbacks, and the
// ambient services an embedder expects around them: a pluggable logger,
// allocator hooks, a monotonic clock and a state dump.
//
// Init returns a ready runtime holding one reference. Ref and Unref adjust
// the count; releasing the last reference (or calling Shutdown) runs
// teardown exactly once. Teardown stops accepting tasks, waits for every
// queued and running task to finish, joins the workers, and only then shuts
// modules down in reverse registration order.
//
//	rt, err := corert.Init(&corert.Config{MaxWorkers: 4})
//	if err != nil {
//		return err
//	}
//	defer rt.Unref()
//
//	_ = rt.RegisterModule(corert.NewModule("cache", startCache, stopCache))
//	_ = rt.SubmitTask(func(ctx context.Context, data any) error {
//		return process(ctx, data)
//	}, job)
//	_ = rt.WaitTasks()
//
// # Tasks
//
// SubmitTask is fire-and-forget. A failing or panicking task is logged,
// counted and reported to OnTaskError, and never stops its worker. WaitTasks
// is a drain barrier: it returns once every task submitted before the call
// has finished, and releases all concurrent waiters together.
//
// # Events
//
// Setting Config.EventsSystem publishes lifecycle events (runtime.started,
// module.started, task.failed, ...) through a Watermill publisher. Supported
// backends are channel, kafka, rabbitmq, nats, nats-jetstream, http, io,
// sqlite, postgres and aws. Custom backends can be added with
// RegisterTransport or passed directly with WithEventPublisher.
//
// # Diagnostics
//
// DumpState writes a human-readable snapshot; DumpStateJSON and the
// /debug/state endpoint serve the same snapshot as JSON. With MetricsEnabled
// the pool registers Prometheus collectors, exposed on /metrics when
// DiagnosticsPort is set.
//
// # Synchronization
//
// Mutex, Cond and Thread wrap the Go primitives with an explicit end of life.
// Destroying a held mutex, or joining a detached thread, returns
// ErrSyncPrimitiveMisuse.
package corert
