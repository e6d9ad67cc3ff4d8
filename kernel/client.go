/*
Package kernel is the client facade for driving an out-of-process kernel over
a line-oriented command/event protocol.

	client, err := kernel.New(source, sink, kernel.WithLogger(log))
	if err != nil {
		return err
	}
	defer client.Dispose()

	if err := client.Start(ctx); err != nil {
		return err
	}

	result, err := client.Send(ctx, message.NewCommand(SubmitCode{Code: "1 + 1"}))
*/
package kernel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/atomic"

	"github.com/shortlink-org/kernel-client/kernel/bus"
	"github.com/shortlink-org/kernel-client/kernel/message"
	"github.com/shortlink-org/kernel-client/logger"
	"github.com/shortlink-org/kernel-client/transport"
)

// maxLoggedLine bounds how much of an unparseable line is logged.
const maxLoggedLine = 256

// Observable is the session-wide event stream.
type Observable interface {
	Subscribe(filter bus.Filter, fn func(message.Event)) (*bus.Subscription, error)
	Channel(ctx context.Context, filter bus.Filter) (<-chan message.Event, *bus.Subscription, error)
}

// Client sends commands to a kernel and observes its events.
type Client struct {
	source      transport.Source
	sink        transport.Sink
	codec       message.Codec
	events      *bus.EventBus
	commands    *bus.CommandBus
	log         logger.Logger
	unsubscribe func()
	state       *atomic.Int32
	name        string
	mu          sync.Mutex
}

// New wires source and sink to a fresh event bus and correlation engine.
// Inbound lines are consumed from construction on; pull-based sources
// deliver nothing until Start.
func New(source transport.Source, sink transport.Sink, opts ...Option) (*Client, error) {
	if source == nil {
		return nil, errSourceNil
	}

	if sink == nil {
		return nil, errSinkNil
	}

	o := applyOptions(opts)

	events, err := bus.NewEventBus(o.busOptions()...)
	if err != nil {
		return nil, err
	}

	commands, err := bus.NewCommandBus(events, o.codec, sink, o.busOptions()...)
	if err != nil {
		events.Close()

		return nil, err
	}

	c := &Client{
		source:   source,
		sink:     sink,
		codec:    o.codec,
		events:   events,
		commands: commands,
		log:      o.log,
		state:    atomic.NewInt32(int32(StateConstructed)),
		name:     o.name,
	}

	c.unsubscribe = source.Subscribe(c.onLine)

	return c, nil
}

// Send writes cmd and waits for its CommandSucceeded or CommandFailed event.
// A failed command is not an error: check the returned event.
func (c *Client) Send(ctx context.Context, cmd *message.Command, opts ...SendOption) (message.Event, error) {
	if c.State() == StateDisposed {
		return message.Event{}, ErrDisposed
	}

	if cmd != nil {
		for _, opt := range opts {
			if opt != nil {
				opt(cmd)
			}
		}
	}

	evt, err := c.commands.Send(ctx, cmd)
	if errors.Is(err, bus.ErrClosed) && c.State() == StateDisposed {
		return evt, fmt.Errorf("%w: %w", ErrDisposed, err)
	}

	return evt, err
}

// Events exposes every decoded event, diagnostics included.
//
//nolint:ireturn // the bus is an implementation detail
func (c *Client) Events() Observable {
	return c.events
}

// Start activates pull-based sources. Push-based ones need no starting; the
// client still moves to Started. A second Start is a no-op.
func (c *Client) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.State() {
	case StateDisposed:
		return ErrDisposed
	case StateStarted:
		return nil
	case StateConstructed:
	}

	if starter, ok := c.source.(transport.Starter); ok {
		if err := starter.Start(ctx); err != nil {
			return fmt.Errorf("kernel: start inbound source: %w", err)
		}
	}

	c.state.Store(int32(StateStarted))
	c.log.InfoWithContext(ctx, "kernel client started", "client", c.name)

	return nil
}

// Dispose stops inbound delivery, releases pending Sends with bus.ErrClosed
// and closes the source and the sink when they are io.Closers. It is idempotent.
func (c *Client) Dispose() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.State() == StateDisposed {
		return nil
	}

	c.state.Store(int32(StateDisposed))

	var result *multierror.Error

	if c.unsubscribe != nil {
		c.unsubscribe()
	}

	c.commands.Close()
	c.events.Close()

	if closer, ok := c.source.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("kernel: close inbound source: %w", err))
		}
	}

	if closer, ok := c.sink.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("kernel: close outbound sink: %w", err))
		}
	}

	c.log.Info("kernel client disposed", "client", c.name)

	return result.ErrorOrNil()
}

func (c *Client) IsStarted() bool {
	return c.State() == StateStarted
}

func (c *Client) State() State {
	return State(c.state.Load())
}

// InFlight returns the number of Sends waiting for a terminal event.
func (c *Client) InFlight() int {
	return c.commands.InFlight()
}

// onLine is the single inbound handler: decode, then publish. A line that does
// not decode is published as a diagnostic event and pumping carries on.
func (c *Client) onLine(line string) {
	if strings.TrimSpace(line) == "" {
		return
	}

	decoded := c.codec.Decode(line)
	if !decoded.OK() {
		c.log.Warn("unparseable inbound line",
			"client", c.name,
			"reason", decoded.Err.Error(),
			"line", truncate(line, maxLoggedLine),
		)
	}

	evt := decoded.Result()

	if err := c.events.Publish(evt); err != nil {
		c.log.Debug("inbound event dropped", "kind", evt.Kind.String(), "reason", err.Error())
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}

	return s[:n] + "..."
}
