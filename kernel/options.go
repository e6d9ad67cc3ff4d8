package kernel

import (
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/shortlink-org/kernel-client/kernel/bus"
	"github.com/shortlink-org/kernel-client/kernel/message"
	"github.com/shortlink-org/kernel-client/logger"
)

const defaultClientName = "kernel-client"

// Option configures a Client.
type Option func(*options)

type options struct {
	log            logger.Logger
	codec          message.Codec
	tokens         *bus.TokenSource
	meterProvider  metric.MeterProvider
	tracerProvider trace.TracerProvider
	name           string
	sendTimeout    time.Duration
}

func WithLogger(log logger.Logger) Option {
	return func(o *options) {
		o.log = log
	}
}

// WithCodec replaces the JSON envelope codec.
func WithCodec(codec message.Codec) Option {
	return func(o *options) {
		o.codec = codec
	}
}

func WithTokenSource(tokens *bus.TokenSource) Option {
	return func(o *options) {
		o.tokens = tokens
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

// WithSendTimeout bounds every Send. The default is no timeout.
func WithSendTimeout(d time.Duration) Option {
	return func(o *options) {
		o.sendTimeout = d
	}
}

// WithName names the client in logs and spans.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

func applyOptions(opts []Option) options {
	o := options{name: defaultClientName}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	if o.log == nil {
		o.log = logger.Nop()
	}

	if o.codec == nil {
		o.codec = message.NewJSONCodec()
	}

	return o
}

func (o options) busOptions() []bus.Option {
	opts := []bus.Option{
		bus.WithLogger(o.log),
		bus.WithSendTimeout(o.sendTimeout),
	}

	if o.tokens != nil {
		opts = append(opts, bus.WithTokenSource(o.tokens))
	}

	if o.meterProvider != nil {
		opts = append(opts, bus.WithMeterProvider(o.meterProvider))
	}

	if o.tracerProvider != nil {
		opts = append(opts, bus.WithTracerProvider(o.tracerProvider))
	}

	return opts
}

// SendOption adjusts a single Send.
type SendOption func(*message.Command)

// WithToken stamps token onto the command before it is sent, so a child
// command can share its parent's token.
func WithToken(token string) SendOption {
	return func(cmd *message.Command) {
		if token != "" {
			cmd.Token = token
		}
	}
}
