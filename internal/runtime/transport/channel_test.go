package transport

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drblury/corert/internal/runtime/config"
)

func TestChannelTransportDeliversToLateSubscribers(t *testing.T) {
	tr, err := channelTransport(context.Background(), &config.Config{}, watermill.NopLogger{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = tr.Close() })
	require.NotNil(t, tr.Subscriber)

	msg := message.NewMessage(watermill.NewULID(), []byte(`{"kind":"runtime.started"}`))
	require.NoError(t, tr.Publisher.Publish("corert.lifecycle", msg))

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	messages, err := tr.Subscriber.Subscribe(ctx, "corert.lifecycle")
	require.NoError(t, err)

	select {
	case received := <-messages:
		assert.Equal(t, msg.Payload, received.Payload)
		received.Ack()
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for persisted message")
	}
}
