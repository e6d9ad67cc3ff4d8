package message

import (
	"github.com/segmentio/encoding/json"
)

// Diagnostic is the body of a DiagnosticLogEntryProduced event.
type Diagnostic struct {
	Message string `json:"message"`
	RawLine string `json:"rawLine,omitempty"`
	Error   string `json:"error,omitempty"`
}

// NewDiagnosticEvent reports line as unparseable.
// The event carries no token and no command, so it never completes a waiter.
func NewDiagnosticEvent(line string, err error) Event {
	diag := Diagnostic{
		Message: "unable to parse inbound line",
		RawLine: line,
	}
	if err != nil {
		diag.Error = err.Error()
	}

	// a struct of three strings always marshals
	body, _ := json.Marshal(diag) //nolint:errchkjson // see above

	return Event{
		Kind: KindDiagnostic,
		Body: body,
	}
}

// Diagnostic returns the diagnostic payload when e is a diagnostic event.
func (e Event) Diagnostic() (Diagnostic, bool) {
	if e.Kind != KindDiagnostic {
		return Diagnostic{}, false
	}

	var diag Diagnostic
	if err := e.DecodeBody(&diag); err != nil {
		return Diagnostic{}, false
	}

	return diag, true
}
