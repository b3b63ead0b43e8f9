package transport

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/nats-io/nats.go"
)

const (
	JetStreamName = "nats-jetstream"

	// DefaultJetStreamMaxAge bounds how long lifecycle events are retained.
	DefaultJetStreamMaxAge = 7 * 24 * time.Hour
)

// JetStreamAPI is the subset of nats.JetStreamContext the publisher uses.
type JetStreamAPI interface {
	AddStream(cfg *nats.StreamConfig, opts ...nats.JSOpt) (*nats.StreamInfo, error)
	UpdateStream(cfg *nats.StreamConfig, opts ...nats.JSOpt) (*nats.StreamInfo, error)
	PublishMsg(m *nats.Msg, opts ...nats.PubOpt) (*nats.PubAck, error)
}

// JetStreamConnect dials NATS and returns a JetStream context together with
// the function that closes the connection.
var JetStreamConnect = func(url string) (JetStreamAPI, func(), error) {
	nc, err := nats.Connect(url, nats.Name("corert"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}
	return js, nc.Close, nil
}

func jetStreamTransport(_ context.Context, conf Config, logger watermill.LoggerAdapter) (Transport, error) {
	js, closeFn, err := JetStreamConnect(conf.GetNATSURL())
	if err != nil {
		return Transport{}, err
	}

	pub, err := newJetStreamPublisher(js, closeFn, conf.GetJetStreamStream(), logger)
	if err != nil {
		closeFn()
		return Transport{}, err
	}
	return Transport{Publisher: pub}, nil
}

// jetStreamPublisher writes every topic as a subject under one stream, so a
// single stream captures all lifecycle events.
type jetStreamPublisher struct {
	js     JetStreamAPI
	stream string
	logger watermill.LoggerAdapter

	closeOnce sync.Once
	closeFn   func()
	closed    bool
	mu        sync.RWMutex
}

func newJetStreamPublisher(js JetStreamAPI, closeFn func(), stream string, logger watermill.LoggerAdapter) (*jetStreamPublisher, error) {
	if stream == "" {
		stream = "CORERT"
	}
	p := &jetStreamPublisher{js: js, stream: stream, logger: logger, closeFn: closeFn}
	if err := p.ensureStream(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *jetStreamPublisher) ensureStream() error {
	streamCfg := &nats.StreamConfig{
		Name:      p.stream,
		Subjects:  []string{p.stream + ".>"},
		MaxAge:    DefaultJetStreamMaxAge,
		Retention: nats.LimitsPolicy,
	}

	if _, err := p.js.AddStream(streamCfg); err != nil {
		if _, updErr := p.js.UpdateStream(streamCfg); updErr != nil {
			return fmt.Errorf("failed to ensure stream %s: %w", p.stream, err)
		}
		p.logger.Debug("JetStream stream updated", watermill.LogFields{"stream": p.stream})
	}
	return nil
}

func (p *jetStreamPublisher) subject(topic string) string {
	return p.stream + "." + strings.ReplaceAll(topic, " ", "_")
}

func (p *jetStreamPublisher) Publish(topic string, messages ...*message.Message) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return fmt.Errorf("jetstream publisher is closed")
	}

	subject := p.subject(topic)
	for _, msg := range messages {
		headers := nats.Header{}
		for k, v := range msg.Metadata {
			headers.Set(k, v)
		}
		headers.Set(nats.MsgIdHdr, msg.UUID)

		if _, err := p.js.PublishMsg(&nats.Msg{Subject: subject, Data: msg.Payload, Header: headers}); err != nil {
			return fmt.Errorf("failed to publish to JetStream: %w", err)
		}
	}
	return nil
}

func (p *jetStreamPublisher) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.closeOnce.Do(func() {
		if p.closeFn != nil {
			p.closeFn()
		}
	})
	return nil
}
