package runtime

import (
	"fmt"
	"io"
	"strings"

	"github.com/drblury/corert/internal/runtime/jsoncodec"
)

// State is a snapshot of a runtime for diagnostics.
type State struct {
	Name         string        `json:"name"`
	ID           string        `json:"id"`
	APIVersion   string        `json:"api_version"`
	Phase        string        `json:"phase"`
	Refs         int64         `json:"refs"`
	Debug        bool          `json:"debug"`
	StackSize    int           `json:"stack_size"`
	HeapSize     int           `json:"heap_size"`
	UptimeMs     uint64        `json:"uptime_ms"`
	Modules      []string      `json:"modules"`
	Pool         PoolStats     `json:"pool"`
	EventsSystem string        `json:"events_system,omitempty"`
	EventsTopic  string        `json:"events_topic,omitempty"`
	Resources    ResourceUsage `json:"resources"`
}

// State returns the current snapshot. It is safe to call in any phase.
func (r *Runtime) State() State {
	return State{
		Name:         r.cfg.Name,
		ID:           r.id,
		APIVersion:   APIVersion(),
		Phase:        r.currentPhase().String(),
		Refs:         r.refs.Load(),
		Debug:        r.debug.Load(),
		StackSize:    r.cfg.StackSize,
		HeapSize:     r.cfg.HeapSize,
		UptimeMs:     r.clock.NowMs() - r.startedMs,
		Modules:      r.Modules(),
		Pool:         r.pool.stats(),
		EventsSystem: r.cfg.EventsSystem,
		EventsTopic:  r.cfg.EventsTopic,
		Resources:    r.resources.Snapshot(),
	}
}

// DumpState writes a human-readable snapshot to w.
func (r *Runtime) DumpState(w io.Writer) error {
	s := r.State()

	modules := "(none)"
	if len(s.Modules) > 0 {
		modules = strings.Join(s.Modules, ", ")
	}
	events := "disabled"
	if s.EventsSystem != "" {
		events = s.EventsSystem + " -> " + s.EventsTopic
	}

	_, err := fmt.Fprintf(w, `runtime %s (%s)
  api:       %s
  phase:     %s
  refs:      %d
  debug:     %t
  uptime:    %dms
  sizing:    stack=%d heap=%d
  workers:   %d
  tasks:     queued=%d in_flight=%d submitted=%d completed=%d failed=%d dropped=%d
  modules:   %s
  events:    %s
  resources: cpu=%.1f%% heap=%d goroutines=%d
`,
		s.Name, s.ID,
		s.APIVersion,
		s.Phase,
		s.Refs,
		s.Debug,
		s.UptimeMs,
		s.StackSize, s.HeapSize,
		s.Pool.Workers,
		s.Pool.Queued, s.Pool.InFlight, s.Pool.Submitted, s.Pool.Completed, s.Pool.Failed, s.Pool.Dropped,
		modules,
		events,
		s.Resources.CPUPercent, s.Resources.HeapBytes, s.Resources.Goroutines,
	)
	return err
}

// DumpStateJSON writes the snapshot to w as indented JSON.
func (r *Runtime) DumpStateJSON(w io.Writer) error {
	return jsoncodec.EncodeIndent(w, r.State())
}
