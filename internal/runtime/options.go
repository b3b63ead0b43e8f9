package runtime

import (
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/prometheus/client_golang/prometheus"

	loggingpkg "github.com/drblury/corert/internal/runtime/logging"
	transportpkg "github.com/drblury/corert/internal/runtime/transport"
)

// Option customises Init.
type Option func(*options)

type options struct {
	logger     loggingpkg.ServiceLogger
	sink       loggingpkg.Sink
	alloc      AllocHooks
	modules    []Module
	hooks      TaskHooks
	publisher  message.Publisher
	registerer prometheus.Registerer
	clock      Clock
	transports *transportpkg.Registry
}

// WithLogger sets the logger the runtime writes to. The runtime borrows it.
func WithLogger(log loggingpkg.ServiceLogger) Option {
	return func(o *options) { o.logger = log }
}

// WithSink routes log output to a plain callback. WithLogger takes
// precedence when both are given.
func WithSink(sink loggingpkg.Sink) Option {
	return func(o *options) { o.sink = sink }
}

// WithAllocHooks installs allocator hooks before the runtime allocates
// anything.
func WithAllocHooks(alloc AllocFunc, free FreeFunc) Option {
	return func(o *options) { o.alloc = AllocHooks{Alloc: alloc, Free: free} }
}

// WithModules registers static modules. They are initialized in order during
// Init and the first failure aborts it.
func WithModules(modules ...Module) Option {
	return func(o *options) { o.modules = append(o.modules, modules...) }
}

// WithTaskHooks adds task lifecycle callbacks. Repeated use merges them.
func WithTaskHooks(hooks TaskHooks) Option {
	return func(o *options) { o.hooks = o.hooks.Merge(hooks) }
}

// WithEventPublisher publishes lifecycle events to pub instead of building a
// transport from config. The caller keeps ownership and closes it.
func WithEventPublisher(pub message.Publisher) Option {
	return func(o *options) { o.publisher = pub }
}

// WithMetricsRegisterer registers pool metrics with reg instead of a private
// registry. It implies MetricsEnabled.
func WithMetricsRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) { o.registerer = reg }
}

// WithClock replaces the monotonic clock, mostly for tests.
func WithClock(clock Clock) Option {
	return func(o *options) { o.clock = clock }
}

// WithTransportRegistry resolves Config.EventsSystem against reg instead of
// the default registry.
func WithTransportRegistry(reg *transportpkg.Registry) Option {
	return func(o *options) { o.transports = reg }
}
