/*
Package runtime provides the lifecycle core of corert.

# Architecture Overview

A Runtime owns a fixed-size worker pool, an ordered module registry and the
ambient services around them: a logger, allocator hooks, Prometheus
collectors, a lifecycle event publisher and a diagnostics endpoint. It is
created by Init holding one reference and torn down exactly once, when the
last reference is released or Shutdown is called.

# Package Structure

## Runtime (runtime.go, options.go)

Init resolves configuration, allocates the bounded log buffer through the
allocator hooks, starts the workers, builds the events transport and
initializes static modules. Ref, Unref and Shutdown manage the reference
count. Teardown order:
  - stop accepting tasks
  - wait for queued and running tasks
  - join every worker
  - run module shutdowns in reverse registration order
  - stop diagnostics, close the transport, release the log buffer

## Worker Pool (pool.go, task.go)

Tasks wait in an unbounded FIFO queue guarded by a syncx.Mutex. Workers
sleep on a "non-empty" condition; WaitTasks sleeps on a "drained" condition
and never polls. A task that returns an error or panics affects only itself:
the failure is logged, counted, passed to TaskHooks.OnTaskError and published
as a task.failed event. Each task runs inside an OpenTelemetry span.

## Modules (module.go)

RegisterModule runs Init immediately and registers the module only when it
succeeds. RegisterShutdown adds an anonymous module whose Shutdown is the
given function.

## Hooks (hooks.go)

TaskHooks provides OnTaskStart, OnTaskDone and OnTaskError callbacks. Merge
chains hook sets; LoggingHooks and AlertingHooks are ready-made.

## Diagnostics (state.go, resources.go, metrics.go, diagnostics.go, events.go)

State returns a snapshot that DumpState and DumpStateJSON render. When
DiagnosticsPort is set the snapshot is served on /debug/state next to
/metrics. Lifecycle events are protojson-encoded google.protobuf.Struct
payloads published to Config.EventsTopic through the transport named by
Config.EventsSystem.

# Sub-packages

  - config: Config, defaults and validation
  - errors: sentinel errors, ModuleError, TaskPanicError and Code
  - ids: ULID generation
  - jsoncodec: JSON encoding backed by sonic
  - logging: ServiceLogger and its slog, zap, Watermill and sink adapters
  - metadata: event header keys
  - syncx: Mutex, Cond and Thread
  - transport: event publishers for every supported EventsSystem
*/
package runtime
