package transport

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/drblury/corert/internal/runtime/jsoncodec"
)

const (
	IOName = "io"

	// DefaultIOFile is used when IOFile is empty.
	DefaultIOFile = "corert-events.log"
)

// IOPublisherFactory allows overriding the journal creation for testing.
var IOPublisherFactory = func(filePath string, logger watermill.LoggerAdapter) (message.Publisher, error) {
	return &ioPublisher{filePath: filePath, logger: logger}, nil
}

func ioTransport(_ context.Context, conf Config, logger watermill.LoggerAdapter) (Transport, error) {
	path := conf.GetIOFile()
	if path == "" {
		path = DefaultIOFile
	}
	pub, err := IOPublisherFactory(path, logger)
	if err != nil {
		return Transport{}, err
	}
	return Transport{Publisher: pub}, nil
}

// ioPublisher appends one JSON Record per line.
type ioPublisher struct {
	filePath string
	logger   watermill.LoggerAdapter

	mu     sync.Mutex
	closed bool
}

func (p *ioPublisher) Publish(topic string, messages ...*message.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return fmt.Errorf("io publisher is closed")
	}

	f, err := os.OpenFile(p.filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()

	now := time.Now()
	for _, msg := range messages {
		rec, err := newRecord(topic, msg, now)
		if err != nil {
			return err
		}
		if err := jsoncodec.Encode(f, rec); err != nil {
			return err
		}
	}
	return nil
}

func (p *ioPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}
