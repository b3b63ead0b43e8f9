// Package metadata holds the header keys attached to lifecycle events and the
// helpers that move them onto Watermill messages.
package metadata

import "github.com/ThreeDotsLabs/watermill/message"

// Keys stamped on every lifecycle event.
const (
	KeyEvent     = "corert_event"
	KeyRuntime   = "corert_runtime"
	KeyRuntimeID = "corert_runtime_id"
	KeyModule    = "corert_module"
	KeyTaskID    = "corert_task_id"
)

// Metadata represents the headers carried alongside an event.
type Metadata map[string]string

// New constructs Metadata from alternating key/value pairs. A trailing key
// without a value is ignored.
func New(pairs ...string) Metadata {
	md := make(Metadata, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		md[pairs[i]] = pairs[i+1]
	}
	return md
}

// With returns a copy of m that also holds key=value.
func (m Metadata) With(key, value string) Metadata {
	out := make(Metadata, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	out[key] = value
	return out
}

// Apply copies every entry onto msg, skipping empty values.
func (m Metadata) Apply(msg *message.Message) {
	if msg == nil {
		return
	}
	if msg.Metadata == nil {
		msg.Metadata = message.Metadata{}
	}
	for k, v := range m {
		if v == "" {
			continue
		}
		msg.Metadata.Set(k, v)
	}
}

// FromMessage extracts the headers of msg.
func FromMessage(msg *message.Message) Metadata {
	if msg == nil || len(msg.Metadata) == 0 {
		return Metadata{}
	}
	out := make(Metadata, len(msg.Metadata))
	for k, v := range msg.Metadata {
		out[k] = v
	}
	return out
}
