package kernel

import "errors"

var (
	// ErrDisposed is returned by Start and Send once the client is disposed.
	ErrDisposed = errors.New("kernel: client is disposed")

	errSourceNil = errors.New("kernel: inbound source is required")
	errSinkNil   = errors.New("kernel: outbound sink is required")
)
