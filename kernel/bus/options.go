package bus

import (
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/shortlink-org/kernel-client/logger"
)

// Option configures EventBus and CommandBus.
type Option func(*options)

type options struct {
	log            logger.Logger
	meterProvider  metric.MeterProvider
	tracerProvider trace.TracerProvider
	tokens         *TokenSource
	sendTimeout    time.Duration
}

func WithLogger(log logger.Logger) Option {
	return func(o *options) {
		o.log = log
	}
}

func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) {
		o.meterProvider = mp
	}
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		o.tracerProvider = tp
	}
}

// WithTokenSource replaces the random per-bus token source.
func WithTokenSource(tokens *TokenSource) Option {
	return func(o *options) {
		o.tokens = tokens
	}
}

// WithSendTimeout bounds every Send. Zero, the default, waits until the
// terminal event arrives or the caller's context is done.
func WithSendTimeout(d time.Duration) Option {
	return func(o *options) {
		o.sendTimeout = d
	}
}

func applyOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	if o.log == nil {
		o.log = logger.Nop()
	}

	if o.meterProvider == nil {
		o.meterProvider = otel.GetMeterProvider()
	}

	if o.tracerProvider == nil {
		o.tracerProvider = otel.GetTracerProvider()
	}

	if o.tokens == nil {
		o.tokens = NewTokenSource()
	}

	return o
}
