package runtime

import (
	"errors"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	errspkg "github.com/drblury/corert/internal/runtime/errors"
)

// Task outcomes used as the "outcome" label.
const (
	outcomeCompleted = "completed"
	outcomeFailed    = "failed"
	outcomePanicked  = "panicked"
	outcomeDropped   = "dropped"
)

// PoolMetrics exposes worker pool statistics to Prometheus. A nil
// *PoolMetrics records nothing, so call sites need no guards.
type PoolMetrics struct {
	mu sync.Mutex

	submittedTotal prometheus.Counter
	tasksTotal     *prometheus.CounterVec
	durationHist   prometheus.Histogram
	queueWaitHist  prometheus.Histogram
	modules        prometheus.Gauge
	queueDepth     prometheus.GaugeFunc
	inFlight       prometheus.GaugeFunc
	workers        prometheus.GaugeFunc

	registerer prometheus.Registerer
	registered bool
}

// newPoolCounter creates a counter with the standard corert/pool namespace.
func newPoolCounter(runtimeName, name, help string) prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Namespace:   "corert",
		Subsystem:   "pool",
		Name:        name,
		Help:        help,
		ConstLabels: prometheus.Labels{"runtime": runtimeName},
	})
}

func newPoolHistogram(runtimeName, name, help string, buckets []float64) prometheus.Histogram {
	return prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace:   "corert",
		Subsystem:   "pool",
		Name:        name,
		Help:        help,
		Buckets:     buckets,
		ConstLabels: prometheus.Labels{"runtime": runtimeName},
	})
}

func newPoolGaugeFunc(runtimeName, name, help string, fn func() float64) prometheus.GaugeFunc {
	return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace:   "corert",
		Subsystem:   "pool",
		Name:        name,
		Help:        help,
		ConstLabels: prometheus.Labels{"runtime": runtimeName},
	}, fn)
}

// NewPoolMetrics creates collectors for the runtime named runtimeName. stats
// backs the queue depth, in-flight and worker gauges.
func NewPoolMetrics(registerer prometheus.Registerer, runtimeName string, stats func() PoolStats) *PoolMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	if stats == nil {
		stats = func() PoolStats { return PoolStats{} }
	}

	return &PoolMetrics{
		registerer:     registerer,
		submittedTotal: newPoolCounter(runtimeName, "tasks_submitted_total", "Total number of tasks accepted by SubmitTask"),
		tasksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "corert",
			Subsystem:   "pool",
			Name:        "tasks_total",
			Help:        "Total number of tasks that left the pool, by outcome",
			ConstLabels: prometheus.Labels{"runtime": runtimeName},
		}, []string{"outcome"}),
		durationHist:  newPoolHistogram(runtimeName, "task_duration_seconds", "Time spent running a task", prometheus.DefBuckets),
		queueWaitHist: newPoolHistogram(runtimeName, "task_queue_wait_seconds", "Time a task spent queued before a worker took it", prometheus.DefBuckets),
		modules: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "corert",
			Subsystem:   "runtime",
			Name:        "modules",
			Help:        "Number of registered modules",
			ConstLabels: prometheus.Labels{"runtime": runtimeName},
		}),
		queueDepth: newPoolGaugeFunc(runtimeName, "queue_depth", "Tasks waiting for a worker", func() float64 {
			return float64(stats().Queued)
		}),
		inFlight: newPoolGaugeFunc(runtimeName, "in_flight", "Tasks queued or running", func() float64 {
			return float64(stats().InFlight)
		}),
		workers: newPoolGaugeFunc(runtimeName, "workers", "Worker threads in the pool", func() float64 {
			return float64(stats().Workers)
		}),
	}
}

func (m *PoolMetrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.submittedTotal,
		m.tasksTotal,
		m.durationHist,
		m.queueWaitHist,
		m.modules,
		m.queueDepth,
		m.inFlight,
		m.workers,
	}
}

// Register registers the Prometheus collectors. Safe to call multiple times.
func (m *PoolMetrics) Register() error {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.registered {
		return nil
	}

	for _, c := range m.collectors() {
		if err := m.registerer.Register(c); err != nil {
			var already prometheus.AlreadyRegisteredError
			if !errors.As(err, &already) {
				return err
			}
		}
	}

	m.registered = true
	return nil
}

// Unregister removes the collectors, so a runtime with the same name can
// register again on a shared registry.
func (m *PoolMetrics) Unregister() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.registered {
		return
	}
	for _, c := range m.collectors() {
		m.registerer.Unregister(c)
	}
	m.registered = false
}

func (m *PoolMetrics) taskSubmitted() {
	if m == nil {
		return
	}
	m.submittedTotal.Inc()
}

func (m *PoolMetrics) taskFinished(tc TaskContext, err error) {
	if m == nil {
		return
	}
	m.queueWaitHist.Observe(tc.QueueWait().Seconds())
	m.durationHist.Observe(tc.Duration.Seconds())

	var panicErr *errspkg.TaskPanicError
	switch {
	case err == nil:
		m.tasksTotal.WithLabelValues(outcomeCompleted).Inc()
	case errors.As(err, &panicErr):
		m.tasksTotal.WithLabelValues(outcomePanicked).Inc()
	default:
		m.tasksTotal.WithLabelValues(outcomeFailed).Inc()
	}
}

func (m *PoolMetrics) tasksDropped(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.tasksTotal.WithLabelValues(outcomeDropped).Add(float64(n))
}

func (m *PoolMetrics) setModules(n int) {
	if m == nil {
		return
	}
	m.modules.Set(float64(n))
}
