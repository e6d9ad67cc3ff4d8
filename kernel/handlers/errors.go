package handlers

import "errors"

var (
	errNilEventLogic       = errors.New("kernel/handlers: event handler logic is nil")
	errNilRegistry         = errors.New("kernel/handlers: type registry is nil")
	errNilEventBus         = errors.New("kernel/handlers: event bus is nil")
	errEventNotRegistered  = errors.New("kernel/handlers: event is not registered")
	errHandlerTypeMismatch = errors.New("kernel/handlers: handler type mismatch")
)
