/*
Package watermill carries envelope lines over any Watermill Publisher and
Subscriber: in-memory gochannel, Kafka, AMQP and the rest.
*/
package watermill

import (
	"context"
	"errors"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// MetadataContentType tags every published envelope line.
const (
	MetadataContentType = "content_type"
	contentTypeNDJSON   = "application/x-ndjson"
)

var errPublisherNil = errors.New("transport/watermill: publisher is required")

// PublisherSink publishes each outbound line as one Watermill message on topic.
type PublisherSink struct {
	publisher message.Publisher
	topic     string
}

func NewPublisherSink(publisher message.Publisher, topic string) (*PublisherSink, error) {
	if publisher == nil {
		return nil, errPublisherNil
	}

	return &PublisherSink{publisher: publisher, topic: topic}, nil
}

func (s *PublisherSink) WriteLine(ctx context.Context, line string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	msg := message.NewMessage(uuid.NewString(), []byte(line))
	msg.Metadata.Set(MetadataContentType, contentTypeNDJSON)
	msg.SetContext(ctx)

	otel.GetTextMapPropagator().Inject(ctx, propagation.MapCarrier(msg.Metadata))

	return s.publisher.Publish(s.topic, msg)
}

func (s *PublisherSink) Close() error {
	return s.publisher.Close()
}
