package watermill

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/hashicorp/go-multierror"

	"github.com/shortlink-org/kernel-client/logger"
	"github.com/shortlink-org/kernel-client/transport"
)

var errSubscriberNil = errors.New("transport/watermill: subscriber is required")

// SubscriberSource feeds messages from a Watermill topic to the client, one
// line per message. It is pull-based: nothing is consumed before Start.
// Every message is acked after the line handlers return.
type SubscriberSource struct {
	subscriber message.Subscriber
	lines      *transport.PushSource
	log        logger.Logger
	cancel     context.CancelFunc
	done       chan struct{}
	topic      string
	mu         sync.Mutex
	started    bool
	closed     bool
}

func NewSubscriberSource(subscriber message.Subscriber, topic string, log logger.Logger) (*SubscriberSource, error) {
	if subscriber == nil {
		return nil, errSubscriberNil
	}

	if log == nil {
		log = logger.Nop()
	}

	return &SubscriberSource{
		subscriber: subscriber,
		topic:      topic,
		lines:      transport.NewPushSource(),
		log:        log,
		done:       make(chan struct{}),
	}, nil
}

func (s *SubscriberSource) Subscribe(h transport.LineHandler) func() {
	return s.lines.Subscribe(h)
}

// Start subscribes to the topic and pumps it until ctx is done or Close is called.
func (s *SubscriberSource) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.closed:
		return transport.ErrSourceClosed
	case s.started:
		return nil
	}

	if ctx == nil {
		ctx = context.Background()
	}

	ctx, cancel := context.WithCancel(ctx)

	messages, err := s.subscriber.Subscribe(ctx, s.topic)
	if err != nil {
		cancel()

		return err
	}

	s.started = true
	s.cancel = cancel

	go s.pump(messages)

	return nil
}

func (s *SubscriberSource) pump(messages <-chan *message.Message) {
	defer close(s.done)

	for msg := range messages {
		s.lines.Push(strings.TrimRight(string(msg.Payload), "\r\n"))

		if !msg.Ack() {
			s.log.Warn("message ack ignored", "uuid", msg.UUID, "topic", s.topic)
		}
	}
}

// Done is closed once the pump has drained the subscription.
func (s *SubscriberSource) Done() <-chan struct{} {
	return s.done
}

// Close stops the pump and closes the subscriber.
func (s *SubscriberSource) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()

		return nil
	}

	s.closed = true
	started := s.started
	cancel := s.cancel
	s.mu.Unlock()

	var result *multierror.Error

	if cancel != nil {
		cancel()
	}

	if err := s.subscriber.Close(); err != nil {
		result = multierror.Append(result, err)
	}

	if started {
		<-s.done
	} else {
		close(s.done)
	}

	return result.ErrorOrNil()
}
