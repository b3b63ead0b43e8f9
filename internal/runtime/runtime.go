package runtime

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/prometheus/client_golang/prometheus"

	configpkg "github.com/drblury/corert/internal/runtime/config"
	errspkg "github.com/drblury/corert/internal/runtime/errors"
	"github.com/drblury/corert/internal/runtime/ids"
	loggingpkg "github.com/drblury/corert/internal/runtime/logging"
	transportpkg "github.com/drblury/corert/internal/runtime/transport"
)

// Phase is the lifecycle position of a Runtime.
type Phase int32

const (
	PhaseStarting Phase = iota
	PhaseReady
	PhaseShuttingDown
	PhaseStopped
)

func (p Phase) String() string {
	switch p {
	case PhaseStarting:
		return "starting"
	case PhaseReady:
		return "ready"
	case PhaseShuttingDown:
		return "shutting_down"
	case PhaseStopped:
		return "stopped"
	default:
		return fmt.Sprintf("phase(%d)", int32(p))
	}
}

// Runtime owns the worker pool, the module registry and the ambient services
// around them. It is created with one reference; teardown runs exactly once,
// when the last reference is released or Shutdown is called.
type Runtime struct {
	id        string
	cfg       configpkg.Config
	ctx       context.Context
	clock     Clock
	startedMs uint64
	minLevel  loggingpkg.Level

	refs         atomic.Int64
	phase        atomic.Int32
	debug        atomic.Bool
	started      bool
	teardownOnce sync.Once
	done         chan struct{}

	logger        atomic.Pointer[loggerRef]
	defaultLogger loggingpkg.ServiceLogger

	allocMu     sync.Mutex
	alloc       AllocHooks
	allocations map[*byte]FreeFunc

	logMu  sync.Mutex
	logBuf []byte

	// lifecycleMu serializes registration and module teardown, and is held
	// while module callbacks run. regMu guards only modules, so readers never
	// wait on a callback. modules is written with both held.
	lifecycleMu sync.Mutex
	regMu       sync.Mutex
	modules     []Module
	shutdownSeq int

	pool      *workerPool
	hooks     TaskHooks
	metrics   *PoolMetrics
	events    *eventEmitter
	transport transportpkg.Transport
	diag      *diagnostics
	resources *resourceTracker
}

// Init creates a ready runtime holding one reference. A nil cfg uses
// config.Default(). On any failure everything acquired so far is released
// and a nil runtime is returned.
func Init(cfg *configpkg.Config, opts ...Option) (*Runtime, error) {
	conf := configpkg.Default()
	if cfg != nil {
		conf = cfg.WithDefaults()
		conf.KafkaBrokers = append([]string(nil), cfg.KafkaBrokers...)
		conf.DiagnosticsCORSAllowedOrigins = append([]string(nil), cfg.DiagnosticsCORSAllowedOrigins...)
	}
	if err := conf.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", errspkg.ErrInvalidArgument, err)
	}
	minLevel, err := loggingpkg.ParseLevel(conf.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errspkg.ErrInvalidArgument, err)
	}

	var o options
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.clock == nil {
		o.clock = processClock
	}

	r := &Runtime{
		id:          ids.CreateULID(),
		cfg:         conf,
		ctx:         context.Background(),
		clock:       o.clock,
		minLevel:    minLevel,
		done:        make(chan struct{}),
		alloc:       o.alloc.withDefaults(),
		allocations: make(map[*byte]FreeFunc),
		hooks:       o.hooks,
		resources:   newResourceTracker(),
	}
	r.startedMs = r.clock.NowMs()
	r.debug.Store(conf.Debug || minLevel < loggingpkg.LevelInfo)

	r.defaultLogger = loggingpkg.NewDefaultLogger(loggingpkg.LevelTrace, conf.LogFormat, nil)
	switch {
	case o.logger != nil:
		r.SetLogger(o.logger)
	case o.sink != nil:
		r.SetLogger(loggingpkg.NewSinkServiceLogger(o.sink))
	default:
		r.SetLogger(nil)
	}
	log := r.log()

	if err := r.allocLogBuffer(); err != nil {
		log.Error("Failed to allocate log buffer", err, loggingpkg.LogFields{"size": conf.LogBufferSize})
		return nil, err
	}

	pool, err := newWorkerPool(conf.Workers(), r.execute, r.dispatchPanicked)
	if err != nil {
		r.releaseLogBuffer()
		return nil, err
	}
	r.pool = pool

	gatherer := r.setupMetrics(o.registerer)
	r.diag = r.newDiagnostics(gatherer)

	if err := r.setupEvents(o.publisher, o.transports); err != nil {
		log.Error("Failed to set up lifecycle events", err, loggingpkg.LogFields{"events_system": conf.EventsSystem})
		r.abortInit()
		return nil, err
	}

	r.refs.Store(1)
	r.phase.Store(int32(PhaseReady))

	if err := r.registerStatic(o.modules); err != nil {
		r.abortInit()
		return nil, err
	}

	if err := r.startDiagnostics(); err != nil {
		log.Error("Failed to start diagnostics", err, nil)
		r.abortInit()
		return nil, err
	}

	r.started = true
	log.Info("Runtime started", loggingpkg.LogFields{
		"workers":     conf.Workers(),
		"api_version": APIVersion(),
		"config":      conf,
	})
	r.events.emit(EventRuntimeStarted, map[string]any{
		"workers":     conf.Workers(),
		"api_version": APIVersion(),
	})
	return r, nil
}

func (r *Runtime) setupMetrics(registerer prometheus.Registerer) prometheus.Gatherer {
	if !r.cfg.MetricsEnabled && registerer == nil {
		return nil
	}

	var gatherer prometheus.Gatherer
	if registerer == nil {
		reg := prometheus.NewRegistry()
		registerer, gatherer = reg, reg
	} else if g, ok := registerer.(prometheus.Gatherer); ok {
		gatherer = g
	} else {
		gatherer = prometheus.DefaultGatherer
	}

	r.metrics = NewPoolMetrics(registerer, r.cfg.Name, r.pool.stats)
	if err := r.metrics.Register(); err != nil {
		r.log().Error("Failed to register pool metrics", err, nil)
		r.metrics = nil
		return nil
	}
	return gatherer
}

func (r *Runtime) setupEvents(pub message.Publisher, registry *transportpkg.Registry) error {
	topic := r.cfg.EventsTopic
	if topic == "" {
		topic = configpkg.DefaultEventsTopic
	}

	if pub == nil {
		if r.cfg.EventsSystem == "" {
			return nil
		}
		if registry == nil {
			registry = transportpkg.DefaultRegistry
		}
		tr, err := registry.Build(r.ctx, &r.cfg, loggingpkg.NewWatermillAdapter(r.log()))
		if err != nil {
			return fmt.Errorf("corert: events transport %q: %w", r.cfg.EventsSystem, err)
		}
		r.transport = tr
		pub = tr.Publisher
	}

	r.events = &eventEmitter{
		publisher: pub,
		topic:     topic,
		runtime:   r.cfg.Name,
		runtimeID: r.id,
		clock:     r.clock,
		logger:    r.log,
	}
	return nil
}

// registerStatic initializes static modules in order. The first failure
// returns its error; modules registered before it stay in the registry so
// teardown unwinds them.
func (r *Runtime) registerStatic(modules []Module) error {
	r.lifecycleMu.Lock()
	defer r.lifecycleMu.Unlock()

	for _, m := range modules {
		if m == nil {
			return fmt.Errorf("%w: module is nil", errspkg.ErrInvalidArgument)
		}
		if err := r.register(m); err != nil {
			return err
		}
	}
	return nil
}

// ID returns the runtime's ULID.
func (r *Runtime) ID() string { return r.id }

// Config returns a copy of the configuration the runtime was created with.
func (r *Runtime) Config() configpkg.Config {
	c := r.cfg
	c.KafkaBrokers = append([]string(nil), r.cfg.KafkaBrokers...)
	c.DiagnosticsCORSAllowedOrigins = append([]string(nil), r.cfg.DiagnosticsCORSAllowedOrigins...)
	return c
}

// NowMs returns milliseconds on the runtime clock.
func (r *Runtime) NowMs() uint64 { return r.clock.NowMs() }

// Phase reports the lifecycle phase.
func (r *Runtime) Phase() Phase { return r.currentPhase() }

// Done is closed when teardown has completed.
func (r *Runtime) Done() <-chan struct{} { return r.done }

// Events returns the subscriber side of the events transport, or nil when the
// transport is write-only or events are disabled.
func (r *Runtime) Events() message.Subscriber { return r.transport.Subscriber }

func (r *Runtime) currentPhase() Phase { return Phase(r.phase.Load()) }

func (r *Runtime) ready() bool { return r.currentPhase() == PhaseReady }

// Ref adds a reference. It fails once the runtime has been released.
func (r *Runtime) Ref() error {
	if r == nil {
		return errspkg.ErrRuntimeNotReady
	}
	for {
		n := r.refs.Load()
		if n <= 0 || !r.ready() {
			return errspkg.ErrRuntimeNotReady
		}
		if r.refs.CompareAndSwap(n, n+1) {
			return nil
		}
	}
}

// Unref releases a reference. Releasing the last one runs teardown before
// returning. Releasing more references than were taken returns
// ErrRuntimeNotReady and has no effect. Calling it from a task or a module
// callback for the last reference deadlocks.
func (r *Runtime) Unref() error {
	if r == nil {
		return nil
	}
	for {
		n := r.refs.Load()
		if n <= 0 {
			return errspkg.ErrRuntimeNotReady
		}
		if r.refs.CompareAndSwap(n, n-1) {
			if n == 1 {
				r.teardown()
			}
			return nil
		}
	}
}

// Shutdown tears the runtime down regardless of outstanding references. Later
// Unref calls return ErrRuntimeNotReady. Concurrent callers all return after
// teardown completes.
func (r *Runtime) Shutdown() {
	if r == nil {
		return
	}
	r.refs.Store(0)
	r.teardown()
}

// teardown stops submissions, drains and joins the pool, shuts modules down
// in reverse order and releases what Init acquired.
func (r *Runtime) teardown() {
	r.teardownOnce.Do(func() {
		r.phase.Store(int32(PhaseShuttingDown))
		log := r.log()
		log.Info("Runtime shutting down", nil)
		if r.started {
			r.events.emit(EventRuntimeStopping, nil)
		}

		r.pool.close()
		r.pool.waitTasks()
		if dropped := r.pool.shutdown(); dropped > 0 {
			loggingpkg.Warn(log, "Tasks dropped at shutdown", loggingpkg.LogFields{"dropped": dropped})
			r.metrics.tasksDropped(dropped)
			r.events.emit(EventTasksDropped, map[string]any{"count": dropped})
		}

		r.shutdownModules()
		r.stopDiagnostics()

		stats := r.pool.stats()
		if r.started {
			r.events.emit(EventRuntimeStopped, map[string]any{
				"uptime_ms": r.clock.NowMs() - r.startedMs,
				"completed": stats.Completed,
				"failed":    stats.Failed,
			})
		}
		r.closeTransport()
		r.metrics.Unregister()
		r.releaseLogBuffer()

		r.phase.Store(int32(PhaseStopped))
		log.Info("Runtime stopped", loggingpkg.LogFields{
			"completed": stats.Completed,
			"failed":    stats.Failed,
			"dropped":   stats.Dropped,
		})
		close(r.done)
	})
	<-r.done
}

// abortInit unwinds a partially initialized runtime. Modules registered so
// far are shut down in reverse order.
func (r *Runtime) abortInit() {
	r.refs.Store(0)
	r.teardown()
}

func (r *Runtime) closeTransport() {
	if err := r.transport.Close(); err != nil {
		r.log().Error("Failed to close events transport", err, nil)
	}
}
