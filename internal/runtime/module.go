package runtime

import (
	"context"
	"fmt"
	"runtime/debug"
	"strconv"

	errspkg "github.com/drblury/corert/internal/runtime/errors"
	loggingpkg "github.com/drblury/corert/internal/runtime/logging"
)

// Module is a named unit with paired startup and teardown callbacks. Init runs
// when the module is registered. Shutdown runs during teardown, after every
// task has finished, in reverse registration order. Callbacks may read
// runtime state, including Modules and DumpState, but must not register
// modules or shut the runtime down; either deadlocks.
type Module interface {
	Name() string
	Init(ctx context.Context, rt *Runtime) error
	Shutdown(ctx context.Context, rt *Runtime) error
}

// ModuleFunc is the signature of the callbacks accepted by NewModule.
type ModuleFunc func(ctx context.Context, rt *Runtime) error

type funcModule struct {
	name     string
	init     ModuleFunc
	shutdown ModuleFunc
}

// NewModule adapts two plain functions into a Module. Either may be nil.
func NewModule(name string, init, shutdown ModuleFunc) Module {
	return &funcModule{name: name, init: init, shutdown: shutdown}
}

func (m *funcModule) Name() string { return m.name }

func (m *funcModule) Init(ctx context.Context, rt *Runtime) error {
	if m.init == nil {
		return nil
	}
	return m.init(ctx, rt)
}

func (m *funcModule) Shutdown(ctx context.Context, rt *Runtime) error {
	if m.shutdown == nil {
		return nil
	}
	return m.shutdown(ctx, rt)
}

// RegisterModule runs m.Init and, when it succeeds, appends m to the
// registry. A failed module is not registered and never sees Shutdown.
func (r *Runtime) RegisterModule(m Module) error {
	if r == nil {
		return errspkg.ErrRuntimeNotReady
	}
	if m == nil {
		return fmt.Errorf("%w: module is nil", errspkg.ErrInvalidArgument)
	}

	r.lifecycleMu.Lock()
	defer r.lifecycleMu.Unlock()

	if !r.ready() {
		return errspkg.ErrRuntimeNotReady
	}
	return r.register(m)
}

// RegisterShutdown adds fn to the teardown sequence. It runs in reverse order
// together with module shutdowns.
func (r *Runtime) RegisterShutdown(fn func(ctx context.Context) error) error {
	if fn == nil {
		return fmt.Errorf("%w: shutdown function is nil", errspkg.ErrInvalidArgument)
	}
	if r == nil {
		return errspkg.ErrRuntimeNotReady
	}

	r.lifecycleMu.Lock()
	defer r.lifecycleMu.Unlock()

	if !r.ready() {
		return errspkg.ErrRuntimeNotReady
	}
	r.shutdownSeq++
	name := "shutdown#" + strconv.Itoa(r.shutdownSeq)
	return r.register(NewModule(name, nil, func(ctx context.Context, _ *Runtime) error {
		return fn(ctx)
	}))
}

// Modules returns the registered module names in registration order. It is
// safe to call from module callbacks.
func (r *Runtime) Modules() []string {
	r.regMu.Lock()
	defer r.regMu.Unlock()

	names := make([]string, len(r.modules))
	for i, m := range r.modules {
		names[i] = m.Name()
	}
	return names
}

// register runs m.Init without regMu so the callback can inspect the
// runtime. The caller holds lifecycleMu.
func (r *Runtime) register(m Module) error {
	name := m.Name()
	if name == "" {
		return fmt.Errorf("%w: module name is empty", errspkg.ErrInvalidArgument)
	}
	for _, existing := range r.modules {
		if existing.Name() == name {
			return fmt.Errorf("%w: module %q already registered", errspkg.ErrInvalidArgument, name)
		}
	}

	log := r.log().With(loggingpkg.LogFields{"module": name})
	if err := callModule(r.ctx, r, m.Init); err != nil {
		modErr := &errspkg.ModuleError{Module: name, Phase: errspkg.PhaseInit, Err: err}
		log.Error("Module init failed", err, nil)
		r.events.emit(EventModuleFailed, map[string]any{"module": name, "error": err.Error()})
		return modErr
	}

	r.regMu.Lock()
	r.modules = append(r.modules, m)
	count := len(r.modules)
	r.regMu.Unlock()

	r.metrics.setModules(count)
	r.debugLog(log, "Module started", nil)
	r.events.emit(EventModuleStarted, map[string]any{"module": name})
	return nil
}

// shutdownModules runs every Shutdown in reverse registration order and
// empties the registry. Failures are logged and teardown continues. A module
// stays listed until its own Shutdown returns.
func (r *Runtime) shutdownModules() {
	r.lifecycleMu.Lock()
	defer r.lifecycleMu.Unlock()

	for i := len(r.modules) - 1; i >= 0; i-- {
		m := r.modules[i]
		name := m.Name()
		err := callModule(r.ctx, r, m.Shutdown)

		r.regMu.Lock()
		r.modules[i] = nil
		r.modules = r.modules[:i]
		r.regMu.Unlock()

		if err != nil {
			modErr := &errspkg.ModuleError{Module: name, Phase: errspkg.PhaseShutdown, Err: err}
			r.log().Error("Module shutdown failed", modErr, loggingpkg.LogFields{"module": name})
			continue
		}
		r.debugLog(r.log(), "Module stopped", loggingpkg.LogFields{"module": name})
		r.events.emit(EventModuleStopped, map[string]any{"module": name})
	}

	r.regMu.Lock()
	r.modules = nil
	r.regMu.Unlock()
	r.metrics.setModules(0)
}

// callModule invokes a module callback, turning a panic into an error.
func callModule(ctx context.Context, rt *Runtime, fn ModuleFunc) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = &errspkg.TaskPanicError{Value: rec, Stack: debug.Stack()}
		}
	}()
	return fn(ctx, rt)
}
