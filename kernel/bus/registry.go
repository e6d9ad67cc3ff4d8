package bus

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/shortlink-org/kernel-client/kernel/message"
)

var (
	// ErrNilCommandType indicates that RegisterCommand received a nil value.
	ErrNilCommandType = errors.New("kernel/bus: command type is nil")
	// ErrNilEventType indicates that RegisterEvent received a nil value.
	ErrNilEventType = errors.New("kernel/bus: event type is nil")
	// ErrKindNotRegistered is returned by DecodeEvent for an unknown event kind.
	ErrKindNotRegistered = errors.New("kernel/bus: kind is not registered")
)

// TypeRegistry maps wire kinds to the Go types of their bodies.
type TypeRegistry struct {
	commands map[message.Kind]reflect.Type
	events   map[message.Kind]reflect.Type
	mu       sync.RWMutex
}

// NewTypeRegistry creates an empty registry.
func NewTypeRegistry() *TypeRegistry {
	return &TypeRegistry{
		commands: make(map[message.Kind]reflect.Type),
		events:   make(map[message.Kind]reflect.Type),
	}
}

// RegisterCommand registers a command body type under message.KindOf(cmd).
func (r *TypeRegistry) RegisterCommand(cmd any) error {
	if cmd == nil {
		return ErrNilCommandType
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.commands[message.KindOf(cmd)] = normalizeType(cmd)

	return nil
}

// RegisterEvent registers an event body type under message.KindOf(evt).
func (r *TypeRegistry) RegisterEvent(evt any) error {
	if evt == nil {
		return ErrNilEventType
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.events[message.KindOf(evt)] = normalizeType(evt)

	return nil
}

// ResolveCommand returns the pointer type registered for kind.
func (r *TypeRegistry) ResolveCommand(kind message.Kind) (reflect.Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.commands[kind]

	return t, ok
}

// ResolveEvent returns the pointer type registered for kind.
func (r *TypeRegistry) ResolveEvent(kind message.Kind) (reflect.Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.events[kind]

	return t, ok
}

// DecodeEvent decodes the body of evt into a fresh value of its registered type.
// The result is always a pointer.
func (r *TypeRegistry) DecodeEvent(evt message.Event) (any, error) {
	t, ok := r.ResolveEvent(evt.Kind)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrKindNotRegistered, evt.Kind)
	}

	v := reflect.New(t.Elem()).Interface()
	if err := evt.DecodeBody(v); err != nil {
		return nil, fmt.Errorf("kernel/bus: decode %s: %w", evt.Kind, err)
	}

	return v, nil
}

func normalizeType(v any) reflect.Type {
	t := reflect.TypeOf(v)
	if t == nil {
		return nil
	}

	if t.Kind() != reflect.Pointer {
		t = reflect.PointerTo(t)
	}

	return t
}
