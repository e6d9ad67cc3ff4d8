package message

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/segmentio/encoding/json"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// Codec turns commands into wire lines and wire lines into events.
type Codec interface {
	// EncodeCommand returns one line without the trailing newline.
	EncodeCommand(ctx context.Context, cmd *Command) (string, error)
	// Decode never fails across the boundary: a bad line yields a Decoded carrying a ParseError.
	Decode(line string) Decoded
}

// Decoded is the typed result of decoding one inbound line.
type Decoded struct {
	Err   *ParseError
	Event Event
}

func (d Decoded) OK() bool {
	return d.Err == nil
}

// Result returns the decoded event, or a diagnostic event describing the failure.
func (d Decoded) Result() Event {
	if d.Err != nil {
		return NewDiagnosticEvent(d.Err.Line, d.Err.Err)
	}

	return d.Event
}

// JSONCodec encodes envelopes as single-line JSON objects.
type JSONCodec struct {
	propagator propagation.TextMapPropagator
}

// CodecOption configures a JSONCodec.
type CodecOption func(*JSONCodec)

// WithPropagator sets the propagator used to stamp trace context into envelope meta.
// By default the global otel propagator is used.
func WithPropagator(p propagation.TextMapPropagator) CodecOption {
	return func(c *JSONCodec) {
		c.propagator = p
	}
}

func NewJSONCodec(opts ...CodecOption) *JSONCodec {
	c := &JSONCodec{}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

func (c *JSONCodec) EncodeCommand(ctx context.Context, cmd *Command) (string, error) {
	if cmd == nil {
		return "", ErrNilCommand
	}

	if cmd.Kind == "" {
		return "", ErrMissingKind
	}

	if cmd.Token == "" {
		return "", ErrMissingToken
	}

	body, err := encodeBody(cmd.Body)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrEncode, cmd.Kind, err)
	}

	env := Envelope{
		Kind:  cmd.Kind,
		Token: cmd.Token,
		Body:  body,
	}
	injectTrace(ctx, c.getPropagator(), &env)

	line, err := json.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrEncode, cmd.Kind, err)
	}

	return string(line), nil
}

func (c *JSONCodec) Decode(line string) Decoded {
	trimmed := strings.TrimSpace(line)

	switch {
	case trimmed == "":
		return failed(line, ErrEmptyLine)
	case trimmed[0] != '{':
		return failed(line, ErrNotObject)
	}

	var env Envelope
	if err := json.Unmarshal([]byte(trimmed), &env); err != nil {
		return failed(line, fmt.Errorf("%w: %w", ErrMalformed, err))
	}

	if env.Kind == "" {
		return failed(line, ErrMissingKind)
	}

	return Decoded{Event: EventFromEnvelope(env)}
}

func (c *JSONCodec) getPropagator() propagation.TextMapPropagator {
	if c.propagator != nil {
		return c.propagator
	}

	return otel.GetTextMapPropagator()
}

func failed(line string, err error) Decoded {
	return Decoded{Err: &ParseError{Line: line, Err: err}}
}

// encodeBody marshals body, compacting pre-encoded JSON so the envelope stays on one line.
func encodeBody(body any) (json.RawMessage, error) {
	var raw []byte

	switch b := body.(type) {
	case nil:
		return json.RawMessage("{}"), nil
	case json.RawMessage:
		raw = b
	case []byte:
		raw = b
	default:
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}

		return encoded, nil
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
