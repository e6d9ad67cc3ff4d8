package message

import (
	"github.com/segmentio/encoding/json"
)

// Envelope is the wire wrapper around a command or event.
//
//	{"kind":"SubmitCode","token":"5f0c2a1e.1","body":{...},"command":{...},"meta":{...}}
//
//nolint:govet // field order is the wire order
type Envelope struct {
	Kind    Kind              `json:"kind"`
	Token   string            `json:"token"`
	Body    json.RawMessage   `json:"body"`
	Command *Envelope         `json:"command,omitempty"`
	Meta    map[string]string `json:"meta,omitempty"`
}

// Event is a decoded notification from the kernel.
type Event struct {
	// Command is the originating command echoed back by the kernel, if any.
	Command *Envelope
	Meta    map[string]string
	Kind    Kind
	Token   string
	Body    json.RawMessage
}

// CommandToken is the token used for correlation.
// The echoed command's token wins over the event's own.
func (e Event) CommandToken() string {
	if e.Command != nil && e.Command.Token != "" {
		return e.Command.Token
	}

	return e.Token
}

func (e Event) IsTerminal() bool {
	return e.Kind.IsTerminal()
}

func (e Event) Succeeded() bool {
	return e.Kind == KindCommandSucceeded
}

func (e Event) Failed() bool {
	return e.Kind == KindCommandFailed
}

// DecodeBody unmarshals the event body into v.
func (e Event) DecodeBody(v any) error {
	if len(e.Body) == 0 {
		return ErrMalformed
	}

	return json.Unmarshal(e.Body, v)
}

// Envelope converts the event back into its wire form.
func (e Event) Envelope() Envelope {
	return Envelope{
		Kind:    e.Kind,
		Token:   e.Token,
		Body:    e.Body,
		Command: e.Command,
		Meta:    e.Meta,
	}
}

// EventFromEnvelope lifts a wire envelope into an event.
func EventFromEnvelope(env Envelope) Event {
	return Event{
		Kind:    env.Kind,
		Token:   env.Token,
		Body:    env.Body,
		Command: env.Command,
		Meta:    env.Meta,
	}
}
