package bus

import (
	"context"
	"sync"

	"github.com/shortlink-org/kernel-client/kernel/message"
	"github.com/shortlink-org/kernel-client/logger"
)

// EventBus is an ordered broadcast of decoded events.
//
// Every subscription owns an unbounded mailbox drained by its own goroutine,
// so Publish never waits on a subscriber and a slow subscriber never delays
// another one. Events reach each subscriber in publish order.
type EventBus struct {
	log     logger.Logger
	metrics *metrics
	subs    map[uint64]*Subscription
	wg      sync.WaitGroup
	mu      sync.Mutex
	nextID  uint64
	closed  bool
}

func NewEventBus(opts ...Option) (*EventBus, error) {
	o := applyOptions(opts)

	m, err := newMetrics(o.meterProvider)
	if err != nil {
		return nil, err
	}

	return &EventBus{
		log:     o.log,
		metrics: m,
		subs:    make(map[uint64]*Subscription),
	}, nil
}

// Publish hands evt to every live subscription whose filter accepts it.
func (b *EventBus) Publish(evt message.Event) error {
	if err := b.publish(evt); err != nil {
		return err
	}

	b.metrics.eventPublished(evt)

	return nil
}

func (b *EventBus) publish(evt message.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrBusClosed
	}

	for _, sub := range b.subs {
		if sub.filter(evt) {
			sub.enqueue(evt)
		}
	}

	return nil
}

// Subscribe registers fn for events matching filter. A nil filter matches everything.
func (b *EventBus) Subscribe(filter Filter, fn func(message.Event)) (*Subscription, error) {
	if fn == nil {
		return nil, ErrNilHandler
	}

	return b.subscribe(filter, func(_ *Subscription, evt message.Event) {
		fn(evt)
	}, nil)
}

// Channel delivers matching events on the returned channel until ctx is done
// or the subscription is disposed; the channel is closed afterwards.
func (b *EventBus) Channel(ctx context.Context, filter Filter) (<-chan message.Event, *Subscription, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	ch := make(chan message.Event)

	sub, err := b.subscribe(filter, func(s *Subscription, evt message.Event) {
		select {
		case ch <- evt:
		case <-s.Done():
		case <-ctx.Done():
		}
	}, func() {
		close(ch)
	})
	if err != nil {
		return nil, nil, err
	}

	go func() {
		select {
		case <-ctx.Done():
			sub.Dispose()
		case <-sub.Done():
		}
	}()

	return ch, sub, nil
}

// Len returns the number of live subscriptions.
func (b *EventBus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.subs)
}

// Close disposes every subscription and rejects further Publish and Subscribe calls.
// It does not wait for in-progress callbacks; use Wait for that.
func (b *EventBus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()

		return
	}

	b.closed = true
	subs := make([]*Subscription, 0, len(b.subs))
	for _, sub := range b.subs {
		subs = append(subs, sub)
	}
	b.mu.Unlock()

	for _, sub := range subs {
		sub.Dispose()
	}
}

// Wait blocks until every delivery goroutine has exited.
// Calling it from a subscription callback deadlocks.
func (b *EventBus) Wait() {
	b.wg.Wait()
}

func (b *EventBus) subscribe(filter Filter, fn deliverFunc, onStop func()) (*Subscription, error) {
	if filter == nil {
		filter = All()
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrBusClosed
	}

	b.nextID++
	sub := newSubscription(b, b.nextID, filter, fn, onStop)
	b.subs[sub.id] = sub

	b.wg.Add(1)
	go sub.run()

	return sub, nil
}

func (b *EventBus) remove(id uint64) {
	b.mu.Lock()
	delete(b.subs, id)
	b.mu.Unlock()
}
