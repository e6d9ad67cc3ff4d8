package bus

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/shortlink-org/kernel-client/kernel/message"
	"github.com/shortlink-org/kernel-client/logger"
)

// Sink accepts one complete envelope line per call.
type Sink interface {
	WriteLine(ctx context.Context, line string) error
}

// CommandBus sends commands and waits for their terminal event.
type CommandBus struct {
	events      *EventBus
	codec       message.Codec
	sink        Sink
	tokens      *TokenSource
	log         logger.Logger
	tracer      trace.Tracer
	metrics     *metrics
	inflight    map[string]*waiter
	sendTimeout time.Duration
	mu          sync.Mutex
	closed      bool
}

// waiter is resolved exactly once, by the first terminal event, a cancelled
// context or Close, whichever comes first.
type waiter struct {
	err  error
	done chan struct{}
	evt  message.Event
	once sync.Once
}

func newWaiter() *waiter {
	return &waiter{done: make(chan struct{})}
}

func (w *waiter) resolve(evt message.Event, err error) bool {
	resolved := false

	w.once.Do(func() {
		w.evt = evt
		w.err = err
		resolved = true
		close(w.done)
	})

	return resolved
}

// NewCommandBus builds the correlation engine on top of events.
func NewCommandBus(events *EventBus, codec message.Codec, sink Sink, opts ...Option) (*CommandBus, error) {
	switch {
	case events == nil:
		return nil, errEventBusNil
	case codec == nil:
		return nil, errCodecNil
	case sink == nil:
		return nil, errSinkNil
	}

	o := applyOptions(opts)

	m, err := newMetrics(o.meterProvider)
	if err != nil {
		return nil, err
	}

	return &CommandBus{
		events:      events,
		codec:       codec,
		sink:        sink,
		tokens:      o.tokens,
		log:         o.log,
		tracer:      o.tracerProvider.Tracer(instrumentationName),
		metrics:     m,
		inflight:    make(map[string]*waiter),
		sendTimeout: o.sendTimeout,
	}, nil
}

func (b *CommandBus) validate(cmd *message.Command) error {
	if b == nil || b.events == nil {
		return errCommandBusUninitialized
	}

	if cmd == nil {
		return errCommandNil
	}

	return nil
}

// Send writes cmd and blocks until the kernel reports CommandSucceeded or
// CommandFailed for its token. Both resolve with a nil error; inspect the
// returned event to tell them apart.
//
// An empty cmd.Token is filled in from the bus token source before anything
// is written. Send returns early with ctx.Err() when ctx is done; there is
// no timeout unless WithSendTimeout was given.
func (b *CommandBus) Send(ctx context.Context, cmd *message.Command) (message.Event, error) {
	if err := b.validate(cmd); err != nil {
		return message.Event{}, err
	}

	if ctx == nil {
		ctx = context.Background()
	}

	if b.sendTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.sendTimeout)

		defer cancel()
	}

	if cmd.Token == "" {
		cmd.Token = b.tokens.Next()
	}

	token := cmd.Token

	ctx, span := b.tracer.Start(ctx, "kernel.send "+cmd.Kind.String(),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("kernel.command.kind", cmd.Kind.String()),
			attribute.String("kernel.command.token", token),
		),
	)
	defer span.End()

	evt, err := b.send(ctx, cmd)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		return evt, err
	}

	span.SetAttributes(attribute.String("kernel.result.kind", evt.Kind.String()))

	if evt.Failed() {
		span.SetStatus(codes.Error, "command failed")
	}

	return evt, nil
}

func (b *CommandBus) send(ctx context.Context, cmd *message.Command) (message.Event, error) {
	token := cmd.Token

	w, err := b.register(token)
	if err != nil {
		return message.Event{}, err
	}
	defer b.unregister(token, w)

	sub, err := b.events.subscribe(ByToken(token), func(s *Subscription, evt message.Event) {
		if !evt.IsTerminal() {
			return
		}

		// a second terminal event for the same token is observed and ignored
		if w.resolve(evt, nil) {
			s.Dispose()
		}
	}, nil)
	if err != nil {
		return message.Event{}, fmt.Errorf("%w: %w", ErrClosed, err)
	}
	defer sub.Dispose()

	line, err := b.codec.EncodeCommand(ctx, cmd)
	if err != nil {
		return message.Event{}, err
	}

	b.metrics.waiting(ctx, 1)
	defer b.metrics.waiting(ctx, -1)

	if err := b.sink.WriteLine(ctx, line); err != nil {
		b.log.ErrorWithContext(ctx, "write command",
			"token", token,
			"kind", cmd.Kind.String(),
			"reason", err.Error(),
		)

		return message.Event{}, fmt.Errorf("kernel/bus: write %s %s: %w", cmd.Kind, token, err)
	}

	b.metrics.commandSent(ctx, cmd.Kind)
	b.log.DebugWithContext(ctx, "command sent", "token", token, "kind", cmd.Kind.String())

	select {
	case <-w.done:
	case <-ctx.Done():
		w.resolve(message.Event{}, ctx.Err())
	}

	if w.err != nil {
		b.log.DebugWithContext(ctx, "command abandoned", "token", token, "reason", w.err.Error())

		return message.Event{}, w.err
	}

	b.log.DebugWithContext(ctx, "command completed", "token", token, "result", w.evt.Kind.String())

	return w.evt, nil
}

func (b *CommandBus) register(token string) (*waiter, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrClosed
	}

	if _, ok := b.inflight[token]; ok {
		return nil, fmt.Errorf("%w: %s", ErrTokenInFlight, token)
	}

	w := newWaiter()
	b.inflight[token] = w

	return w, nil
}

func (b *CommandBus) unregister(token string, w *waiter) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.inflight[token] == w {
		delete(b.inflight, token)
	}
}

// InFlight returns the number of commands waiting for a terminal event.
func (b *CommandBus) InFlight() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.inflight)
}

// Close releases every pending Send with ErrClosed and rejects new ones.
func (b *CommandBus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()

		return
	}

	b.closed = true
	pending := make([]*waiter, 0, len(b.inflight))
	for _, w := range b.inflight {
		pending = append(pending, w)
	}
	b.mu.Unlock()

	for _, w := range pending {
		w.resolve(message.Event{}, ErrClosed)
	}
}
