package runtime

import (
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/drblury/corert/internal/runtime/ids"
	loggingpkg "github.com/drblury/corert/internal/runtime/logging"
	"github.com/drblury/corert/internal/runtime/metadata"
)

// EventKind names a lifecycle event.
type EventKind string

const (
	EventRuntimeStarted  EventKind = "runtime.started"
	EventRuntimeStopping EventKind = "runtime.stopping"
	EventRuntimeStopped  EventKind = "runtime.stopped"
	EventModuleStarted   EventKind = "module.started"
	EventModuleFailed    EventKind = "module.failed"
	EventModuleStopped   EventKind = "module.stopped"
	EventTaskFailed      EventKind = "task.failed"
	EventTasksDropped    EventKind = "tasks.dropped"
)

// eventEmitter publishes lifecycle events. Publishing is serialized so events
// leave in the order they were emitted. A nil emitter drops everything.
type eventEmitter struct {
	mu        sync.Mutex
	publisher message.Publisher
	topic     string
	runtime   string
	runtimeID string
	clock     Clock
	logger    func() loggingpkg.ServiceLogger
}

func (e *eventEmitter) emit(kind EventKind, attrs map[string]any) {
	if e == nil {
		return
	}

	msg, err := NewEventMessage(kind, e.runtime, e.runtimeID, e.clock.NowMs(), attrs)
	if err != nil {
		e.logger().Error("Failed to build lifecycle event", err, loggingpkg.LogFields{"event": string(kind)})
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.publisher.Publish(e.topic, msg); err != nil {
		e.logger().Error("Failed to publish lifecycle event", err, loggingpkg.LogFields{
			"event": string(kind),
			"topic": e.topic,
		})
	}
}

// NewEventMessage builds the Watermill message for a lifecycle event. The
// payload is a protojson-encoded google.protobuf.Struct; attribute values
// must be representable by structpb.NewValue.
func NewEventMessage(kind EventKind, runtimeName, runtimeID string, atMs uint64, attrs map[string]any) (*message.Message, error) {
	fields := make(map[string]any, len(attrs)+4)
	for k, v := range attrs {
		fields[k] = v
	}
	fields["kind"] = string(kind)
	fields["runtime"] = runtimeName
	fields["runtime_id"] = runtimeID
	fields["at_ms"] = atMs

	st, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s event: %w", kind, err)
	}
	payload, err := protojson.Marshal(st)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s event: %w", kind, err)
	}

	msg := message.NewMessage(ids.CreateULID(), payload)
	md := metadata.New(
		metadata.KeyEvent, string(kind),
		metadata.KeyRuntime, runtimeName,
		metadata.KeyRuntimeID, runtimeID,
	)
	if module, ok := attrs["module"].(string); ok {
		md = md.With(metadata.KeyModule, module)
	}
	if taskID, ok := attrs["task_id"].(string); ok {
		md = md.With(metadata.KeyTaskID, taskID)
	}
	md.Apply(msg)
	return msg, nil
}

// DecodeEvent parses an event payload produced by NewEventMessage.
func DecodeEvent(payload []byte) (map[string]any, error) {
	var st structpb.Struct
	if err := protojson.Unmarshal(payload, &st); err != nil {
		return nil, err
	}
	return st.AsMap(), nil
}
