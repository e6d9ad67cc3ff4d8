package bus

import (
	"fmt"
	"sync"

	"go.uber.org/atomic"

	"github.com/shortlink-org/kernel-client/kernel/message"
)

type deliverFunc func(*Subscription, message.Event)

// Subscription is a live registration on an EventBus.
type Subscription struct {
	bus      *EventBus
	filter   Filter
	fn       deliverFunc
	onStop   func()
	signal   chan struct{}
	done     chan struct{}
	disposed *atomic.Bool
	queue    []message.Event
	id       uint64
	once     sync.Once
	mu       sync.Mutex
}

func newSubscription(b *EventBus, id uint64, filter Filter, fn deliverFunc, onStop func()) *Subscription {
	return &Subscription{
		bus:      b,
		id:       id,
		filter:   filter,
		fn:       fn,
		onStop:   onStop,
		signal:   make(chan struct{}, 1),
		done:     make(chan struct{}),
		disposed: atomic.NewBool(false),
	}
}

// Dispose stops further deliveries. It is idempotent and safe to call from
// any goroutine, including the subscription's own callback.
func (s *Subscription) Dispose() {
	s.once.Do(func() {
		s.disposed.Store(true)
		close(s.done)
		s.bus.remove(s.id)

		s.mu.Lock()
		s.queue = nil
		s.mu.Unlock()
	})
}

// Done is closed once the subscription is disposed.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

func (s *Subscription) Disposed() bool {
	return s.disposed.Load()
}

// enqueue runs under the bus lock and never blocks.
func (s *Subscription) enqueue(evt message.Event) {
	s.mu.Lock()
	if s.disposed.Load() {
		s.mu.Unlock()

		return
	}
	s.queue = append(s.queue, evt)
	s.mu.Unlock()

	select {
	case s.signal <- struct{}{}:
	default:
	}
}

func (s *Subscription) run() {
	defer s.bus.wg.Done()

	if s.onStop != nil {
		defer s.onStop()
	}

	for {
		select {
		case <-s.done:
			return
		case <-s.signal:
		}

		for {
			evt, ok := s.next()
			if !ok {
				break
			}

			s.deliver(evt)
		}
	}
}

func (s *Subscription) next() (message.Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.queue) == 0 || s.disposed.Load() {
		return message.Event{}, false
	}

	evt := s.queue[0]
	s.queue[0] = message.Event{}
	s.queue = s.queue[1:]

	return evt, true
}

func (s *Subscription) deliver(evt message.Event) {
	defer func() {
		if r := recover(); r != nil {
			s.bus.log.Error("subscriber panicked",
				"kind", evt.Kind.String(),
				"token", evt.CommandToken(),
				"panic", fmt.Sprint(r),
			)
		}
	}()

	s.fn(s, evt)
}
