package transport

import (
	"context"
	net_http "net/http"
	"strings"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-http/v2/pkg/http"
	"github.com/ThreeDotsLabs/watermill/message"
)

const HTTPName = "http"

var HTTPPublisherFactory = func(config http.PublisherConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
	return http.NewPublisher(config, logger)
}

// httpTransport POSTs each event to HTTPPublisherURL joined with the topic.
func httpTransport(_ context.Context, conf Config, logger watermill.LoggerAdapter) (Transport, error) {
	base := conf.GetHTTPPublisherURL()

	publisher, err := HTTPPublisherFactory(
		http.PublisherConfig{
			MarshalMessageFunc: func(topic string, msg *message.Message) (*net_http.Request, error) {
				return http.DefaultMarshalMessageFunc(joinURL(base, topic), msg)
			},
		},
		logger,
	)
	if err != nil {
		return Transport{}, err
	}
	return Transport{Publisher: publisher}, nil
}

func joinURL(base, topic string) string {
	if strings.HasSuffix(base, "/") {
		return base + topic
	}
	return base + "/" + topic
}
