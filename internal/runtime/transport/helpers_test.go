package transport

import (
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
)

type testPublisher struct {
	mu        sync.Mutex
	published map[string][]*message.Message
	closed    int
}

func (p *testPublisher) Publish(topic string, msgs ...*message.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.published == nil {
		p.published = make(map[string][]*message.Message)
	}
	p.published[topic] = append(p.published[topic], msgs...)
	return nil
}

func (p *testPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed++
	return nil
}
