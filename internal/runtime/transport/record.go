package transport

import (
	"encoding/json"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/drblury/corert/internal/runtime/jsoncodec"
	"github.com/drblury/corert/internal/runtime/metadata"
)

// Record is one journaled event as stored by the io, sqlite and postgres
// transports.
type Record struct {
	UUID      string            `json:"uuid"`
	Topic     string            `json:"topic"`
	Event     string            `json:"event"`
	RuntimeID string            `json:"runtime_id,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Payload   json.RawMessage   `json:"payload"`
	CreatedAt time.Time         `json:"created_at"`
}

func newRecord(topic string, msg *message.Message, now time.Time) (Record, error) {
	payload := json.RawMessage(msg.Payload)
	if !json.Valid(payload) {
		quoted, err := jsoncodec.Marshal(string(msg.Payload))
		if err != nil {
			return Record{}, err
		}
		payload = quoted
	}

	return Record{
		UUID:      msg.UUID,
		Topic:     topic,
		Event:     msg.Metadata.Get(metadata.KeyEvent),
		RuntimeID: msg.Metadata.Get(metadata.KeyRuntimeID),
		Metadata:  map[string]string(msg.Metadata),
		Payload:   payload,
		CreatedAt: now.UTC(),
	}, nil
}
