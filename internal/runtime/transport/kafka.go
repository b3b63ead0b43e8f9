package transport

import (
	"context"
	"errors"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v3/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
)

const KafkaName = "kafka"

var KafkaPublisherFactory = func(cfg kafka.PublisherConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
	return kafka.NewPublisher(cfg, logger)
}

func kafkaTransport(_ context.Context, conf Config, logger watermill.LoggerAdapter) (Transport, error) {
	publisher, err := newKafkaPublisher(conf.GetKafkaBrokers(), conf.GetKafkaClientID(), logger)
	if err != nil {
		return Transport{}, err
	}
	return Transport{Publisher: publisher}, nil
}

func newKafkaPublisher(brokers []string, clientID string, logger watermill.LoggerAdapter) (message.Publisher, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka: brokers are required")
	}

	saramaConfig := kafka.DefaultSaramaSyncPublisherConfig()
	if clientID != "" {
		saramaConfig.ClientID = clientID
	}

	return KafkaPublisherFactory(
		kafka.PublisherConfig{
			Brokers:               brokers,
			Marshaler:             kafka.DefaultMarshaler{},
			OverwriteSaramaConfig: saramaConfig,
		},
		logger,
	)
}
