package message

import (
	"reflect"
	"strings"
)

// Kind is the wire discriminator of a command or event, e.g. "SubmitCode" or "CommandSucceeded".
type Kind string

// Kinds the engine itself understands. Everything else is opaque.
const (
	KindCommandSucceeded Kind = "CommandSucceeded"
	KindCommandFailed    Kind = "CommandFailed"

	// KindDiagnostic marks a locally synthesized event describing a line that failed to parse.
	KindDiagnostic Kind = "DiagnosticLogEntryProduced"
)

// IsTerminal reports whether the kind ends correlation for its token.
func (k Kind) IsTerminal() bool {
	return k == KindCommandSucceeded || k == KindCommandFailed
}

func (k Kind) String() string {
	return string(k)
}

// Kinder lets a body name its own wire kind.
type Kinder interface {
	Kind() Kind
}

// KindOf returns the wire kind for a command or event body.
// A Kinder wins; otherwise the Go type name (pointers stripped) is used.
func KindOf(v any) Kind {
	if v == nil {
		return ""
	}

	if k, ok := v.(Kinder); ok {
		if kind := k.Kind(); kind != "" {
			return kind
		}
	}

	return Kind(typeNameOf(v))
}

func typeNameOf(v any) string {
	t := reflect.TypeOf(v)
	if t == nil {
		return ""
	}

	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	name := t.Name()
	// generic instantiations carry their type arguments in the name
	if idx := strings.IndexByte(name, '['); idx > 0 {
		name = name[:idx]
	}

	return name
}
