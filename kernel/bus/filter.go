package bus

import (
	"github.com/shortlink-org/kernel-client/kernel/message"
)

// Filter selects the events a subscription observes. It runs on the publishing goroutine.
type Filter func(message.Event) bool

// All matches every event.
func All() Filter {
	return func(message.Event) bool { return true }
}

// ByToken matches events correlated to token.
func ByToken(token string) Filter {
	return func(evt message.Event) bool {
		return evt.CommandToken() == token
	}
}

// ByKind matches any of kinds.
func ByKind(kinds ...message.Kind) Filter {
	set := make(map[message.Kind]struct{}, len(kinds))
	for _, k := range kinds {
		set[k] = struct{}{}
	}

	return func(evt message.Event) bool {
		_, ok := set[evt.Kind]

		return ok
	}
}

// Terminal matches CommandSucceeded and CommandFailed.
func Terminal() Filter {
	return func(evt message.Event) bool {
		return evt.IsTerminal()
	}
}

// And matches when every filter matches. No filters matches everything.
func And(filters ...Filter) Filter {
	return func(evt message.Event) bool {
		for _, f := range filters {
			if f != nil && !f(evt) {
				return false
			}
		}

		return true
	}
}

// Or matches when any filter matches. No filters matches nothing.
func Or(filters ...Filter) Filter {
	return func(evt message.Event) bool {
		for _, f := range filters {
			if f != nil && f(evt) {
				return true
			}
		}

		return false
	}
}

func Not(f Filter) Filter {
	return func(evt message.Event) bool {
		return !f(evt)
	}
}
