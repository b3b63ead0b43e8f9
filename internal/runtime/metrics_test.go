package runtime

import (
	"context"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	configpkg "github.com/drblury/corert/internal/runtime/config"
)

func TestPoolMetricsCountOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	rt, _ := newTestRuntime(t, &configpkg.Config{Name: "svc", MaxWorkers: 2},
		WithMetricsRegisterer(reg),
		WithModules(NewModule("db", nil, nil)),
	)

	require.NoError(t, rt.SubmitTask(func(context.Context, any) error { return nil }, nil))
	require.NoError(t, rt.SubmitTask(func(context.Context, any) error { return nil }, nil))
	require.NoError(t, rt.SubmitTask(func(context.Context, any) error { return errBoom }, nil))
	require.NoError(t, rt.SubmitTask(func(context.Context, any) error { panic("bad task") }, nil))
	require.NoError(t, rt.WaitTasks())

	m := rt.metrics
	require.NotNil(t, m)
	assert.Equal(t, 4.0, testutil.ToFloat64(m.submittedTotal))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.tasksTotal.WithLabelValues(outcomeCompleted)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.tasksTotal.WithLabelValues(outcomeFailed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.tasksTotal.WithLabelValues(outcomePanicked)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.modules))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.workers))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.inFlight))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.queueDepth))

	err := testutil.GatherAndCompare(reg, strings.NewReader(`
# HELP corert_pool_tasks_submitted_total Total number of tasks accepted by SubmitTask
# TYPE corert_pool_tasks_submitted_total counter
corert_pool_tasks_submitted_total{runtime="svc"} 4
`), "corert_pool_tasks_submitted_total")
	assert.NoError(t, err)
}

func TestPoolMetricsUnregisteredAtShutdown(t *testing.T) {
	reg := prometheus.NewRegistry()
	rt, err := Init(&configpkg.Config{Name: "svc"},
		WithLogger(newRecordingLogger()),
		WithMetricsRegisterer(reg),
	)
	require.NoError(t, err)

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)

	rt.Shutdown()

	families, err = reg.Gather()
	require.NoError(t, err)
	assert.Empty(t, families)

	// the same name can be used again on the shared registry
	again, err := Init(&configpkg.Config{Name: "svc"},
		WithLogger(newRecordingLogger()),
		WithMetricsRegisterer(reg),
	)
	require.NoError(t, err)
	again.Shutdown()
}

func TestPoolMetricsRegisterIsIdempotent(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPoolMetrics(reg, "svc", nil)

	require.NoError(t, m.Register())
	require.NoError(t, m.Register())

	other := NewPoolMetrics(reg, "svc", nil)
	assert.NoError(t, other.Register(), "already registered collectors are tolerated")

	m.Unregister()
	m.Unregister()
}

func TestPoolMetricsSurfaceRegistrationErrors(t *testing.T) {
	reg := prometheus.NewRegistry()
	clash := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "corert",
		Subsystem: "pool",
		Name:      "tasks_submitted_total",
		Help:      "a different help string",
	})
	require.NoError(t, reg.Register(clash))

	m := NewPoolMetrics(reg, "svc", nil)
	assert.Error(t, m.Register())
}

func TestMetricsRegistrationFailureDisablesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "corert",
		Subsystem: "pool",
		Name:      "tasks_submitted_total",
		Help:      "a different help string",
	})))

	rt, log := newTestRuntime(t, nil, WithMetricsRegisterer(reg))

	assert.Nil(t, rt.metrics)
	_, ok := log.find("Failed to register pool metrics")
	assert.True(t, ok)
	require.NoError(t, rt.SubmitTask(func(context.Context, any) error { return nil }, nil))
	require.NoError(t, rt.WaitTasks())
}

func TestNilPoolMetrics(t *testing.T) {
	var m *PoolMetrics
	assert.NotPanics(t, func() {
		assert.NoError(t, m.Register())
		m.taskSubmitted()
		m.taskFinished(TaskContext{}, nil)
		m.tasksDropped(3)
		m.setModules(1)
		m.Unregister()
	})
}

func TestMetricsDisabledByDefault(t *testing.T) {
	rt, _ := newTestRuntime(t, nil)
	assert.Nil(t, rt.metrics)
}
