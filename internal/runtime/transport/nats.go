package transport

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
)

const NATSName = "nats"

var NATSPublisherFactory = func(cfg nats.PublisherConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
	return nats.NewPublisher(cfg, logger)
}

func natsTransport(_ context.Context, conf Config, logger watermill.LoggerAdapter) (Transport, error) {
	publisher, err := NATSPublisherFactory(
		nats.PublisherConfig{
			URL:       conf.GetNATSURL(),
			Marshaler: &nats.NATSMarshaler{},
		},
		logger,
	)
	if err != nil {
		return Transport{}, err
	}
	return Transport{Publisher: publisher}, nil
}
