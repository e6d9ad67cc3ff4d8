package handlers

import (
	"context"
	"fmt"

	"github.com/shortlink-org/kernel-client/kernel/bus"
	"github.com/shortlink-org/kernel-client/kernel/message"
	"github.com/shortlink-org/kernel-client/logger"
)

// EventHandler processes one kind of kernel event.
type EventHandler[T any] interface {
	Handle(ctx context.Context, evt T) error
}

// HandlerFunc adapts a function to EventHandler.
type HandlerFunc[T any] func(ctx context.Context, evt T) error

func (f HandlerFunc[T]) Handle(ctx context.Context, evt T) error {
	return f(ctx, evt)
}

// NewEventHandler adapts a typed handler to a bus callback.
//
// The event body is decoded into the type registered for its kind and passed
// to logic. Errors are logged and never reach the bus.
func NewEventHandler[T any](logic EventHandler[T], registry *bus.TypeRegistry, log logger.Logger) func(message.Event) {
	if log == nil {
		log = logger.Nop()
	}

	return func(evt message.Event) {
		if err := handle(logic, registry, evt); err != nil {
			log.Warn("event handler failed",
				"kind", evt.Kind.String(),
				"token", evt.CommandToken(),
				"reason", err.Error(),
			)
		}
	}
}

// Subscriber is the part of an event stream Subscribe needs.
type Subscriber interface {
	Subscribe(filter bus.Filter, fn func(message.Event)) (*bus.Subscription, error)
}

// Subscribe registers logic for every event whose kind is registered for T.
func Subscribe[T any](
	events Subscriber,
	logic EventHandler[T],
	registry *bus.TypeRegistry,
	log logger.Logger,
	filters ...bus.Filter,
) (*bus.Subscription, error) {
	switch {
	case events == nil:
		return nil, errNilEventBus
	case logic == nil:
		return nil, errNilEventLogic
	case registry == nil:
		return nil, errNilRegistry
	}

	fn := Recover(NewEventHandler(logic, registry, log), log)

	registered := func(evt message.Event) bool {
		_, ok := registry.ResolveEvent(evt.Kind)

		return ok
	}

	return events.Subscribe(bus.And(append([]bus.Filter{registered}, filters...)...), fn)
}

func handle[T any](logic EventHandler[T], registry *bus.TypeRegistry, evt message.Event) error {
	if logic == nil {
		return errNilEventLogic
	}

	if registry == nil {
		return errNilRegistry
	}

	evtType, ok := registry.ResolveEvent(evt.Kind)
	if !ok {
		return fmt.Errorf("%w: %s", errEventNotRegistered, evt.Kind)
	}

	instance := newValue(evtType)
	if err := evt.DecodeBody(instance); err != nil {
		return fmt.Errorf("unmarshal event %s: %w", evt.Kind, err)
	}

	typedEvt, err := typedPayload[T](instance, handlerTypeOf[T](), evtType)
	if err != nil {
		return fmt.Errorf("event %s: %w", evt.Kind, err)
	}

	ctx := message.ExtractTrace(context.Background(), evt.Envelope())

	if err := logic.Handle(ctx, typedEvt); err != nil {
		return fmt.Errorf("handle event %s: %w", evt.Kind, err)
	}

	return nil
}
