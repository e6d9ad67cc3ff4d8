package message

import (
	"errors"
	"fmt"
)

var (
	ErrNilCommand   = errors.New("kernel/message: command is nil")
	ErrMissingKind  = errors.New("kernel/message: kind is required")
	ErrMissingToken = errors.New("kernel/message: token is required")
	ErrEncode       = errors.New("kernel/message: encode envelope")

	ErrEmptyLine = errors.New("kernel/message: empty line")
	ErrNotObject = errors.New("kernel/message: line is not a JSON object")
	ErrMalformed = errors.New("kernel/message: malformed envelope")
)

// ParseError describes an inbound line that could not be decoded into an event.
type ParseError struct {
	Line string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("kernel/message: parse line: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
