package bus

import "errors"

var (
	// ErrBusClosed is returned by Publish and Subscribe once the event bus is closed.
	ErrBusClosed = errors.New("kernel/bus: event bus is closed")
	// ErrNilHandler indicates that Subscribe received a nil callback.
	ErrNilHandler = errors.New("kernel/bus: handler is nil")

	// ErrClosed releases waiters still pending when the command bus is closed.
	ErrClosed = errors.New("kernel/bus: command bus is closed")
	// ErrTokenInFlight rejects a second concurrent Send for a token that already has a waiter.
	ErrTokenInFlight = errors.New("kernel/bus: token already has a pending command")

	errCommandBusUninitialized = errors.New("kernel/bus: command bus is not initialized")
	errEventBusNil             = errors.New("kernel/bus: event bus is required")
	errCodecNil                = errors.New("kernel/bus: codec is required")
	errSinkNil                 = errors.New("kernel/bus: sink is required")
	errCommandNil              = errors.New("kernel/bus: command is nil")
)
