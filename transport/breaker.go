package transport

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	"github.com/shortlink-org/kernel-client/logger"
)

// BreakerSettings configure BreakerSink.
type BreakerSettings struct {
	Name string
	// Failures is the number of consecutive write failures that opens the circuit.
	Failures uint32
	// Timeout is how long the circuit stays open before a trial write.
	Timeout time.Duration
}

func (s BreakerSettings) withDefaults() BreakerSettings {
	if s.Name == "" {
		s.Name = "kernel_sink"
	}

	if s.Failures == 0 {
		s.Failures = 5
	}

	if s.Timeout <= 0 {
		s.Timeout = 30 * time.Second
	}

	return s
}

// BreakerSink fails fast once the wrapped sink keeps failing.
type BreakerSink struct {
	sink Sink
	cb   *gobreaker.CircuitBreaker
}

func NewBreakerSink(sink Sink, settings BreakerSettings, log logger.Logger) *BreakerSink {
	settings = settings.withDefaults()

	if log == nil {
		log = logger.Nop()
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        settings.Name,
		MaxRequests: 1,
		Timeout:     settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= settings.Failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("sink circuit state changed",
				"name", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})

	return &BreakerSink{sink: sink, cb: cb}
}

func (s *BreakerSink) WriteLine(ctx context.Context, line string) error {
	_, err := s.cb.Execute(func() (any, error) {
		return nil, s.sink.WriteLine(ctx, line)
	})

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %w", ErrSinkOpen, err)
	}

	return err
}

func (s *BreakerSink) State() gobreaker.State {
	return s.cb.State()
}

// Close closes the wrapped sink when it is closable.
func (s *BreakerSink) Close() error {
	if c, ok := s.sink.(interface{ Close() error }); ok {
		return c.Close()
	}

	return nil
}
