/*
Package transport carries envelope lines between the client and a kernel.

A Source produces inbound lines, a Sink accepts outbound ones. Sources that
must be pumped explicitly also implement Starter.
*/
package transport

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrSourceClosed is returned when starting a source that was already closed.
	ErrSourceClosed = errors.New("transport: source is closed")
	// ErrSinkClosed is returned by WriteLine after the sink was closed.
	ErrSinkClosed = errors.New("transport: sink is closed")
	// ErrMultiline rejects a line that would break newline framing.
	ErrMultiline = errors.New("transport: line contains a line break")
	// ErrSinkOpen is returned while the circuit breaker around a sink is open.
	ErrSinkOpen = errors.New("transport: sink circuit is open")
)

// LineHandler receives one inbound line without its terminator.
type LineHandler func(line string)

// Source produces inbound lines.
type Source interface {
	// Subscribe registers h and returns a function that removes it.
	Subscribe(h LineHandler) (unsubscribe func())
}

// Starter is implemented by pull-based sources that only deliver lines after Start.
type Starter interface {
	Start(ctx context.Context) error
}

// Sink accepts one complete envelope line per call.
type Sink interface {
	WriteLine(ctx context.Context, line string) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, line string) error

func (f SinkFunc) WriteLine(ctx context.Context, line string) error {
	return f(ctx, line)
}

// FuncSource adapts a subscribe function to Source.
type FuncSource func(h LineHandler) (unsubscribe func())

func (f FuncSource) Subscribe(h LineHandler) func() {
	return f(h)
}

// handlerSet is the fan-out shared by the concrete sources.
type handlerSet struct {
	handlers map[uint64]LineHandler
	nextID   uint64
	mu       sync.RWMutex
}

func (s *handlerSet) add(h LineHandler) func() {
	if h == nil {
		return func() {}
	}

	s.mu.Lock()
	if s.handlers == nil {
		s.handlers = make(map[uint64]LineHandler)
	}
	s.nextID++
	id := s.nextID
	s.handlers[id] = h
	s.mu.Unlock()

	var once sync.Once

	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.handlers, id)
			s.mu.Unlock()
		})
	}
}

func (s *handlerSet) dispatch(line string) {
	s.mu.RLock()
	snapshot := make([]LineHandler, 0, len(s.handlers))
	for _, h := range s.handlers {
		snapshot = append(snapshot, h)
	}
	s.mu.RUnlock()

	for _, h := range snapshot {
		h(line)
	}
}

func (s *handlerSet) len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.handlers)
}

// PushSource is a push-based Source for hosts that already own a read loop:
// every Push is delivered synchronously to the subscribed handlers.
type PushSource struct {
	handlers handlerSet
}

func NewPushSource() *PushSource {
	return &PushSource{}
}

func (s *PushSource) Subscribe(h LineHandler) func() {
	return s.handlers.add(h)
}

func (s *PushSource) Push(line string) {
	s.handlers.dispatch(line)
}

// Subscribers returns the number of registered handlers.
func (s *PushSource) Subscribers() int {
	return s.handlers.len()
}
