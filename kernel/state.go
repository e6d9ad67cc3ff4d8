package kernel

// State is the client lifecycle: Constructed, then Started, then Disposed.
// There is no way back to Started once Disposed.
type State int32

const (
	StateConstructed State = iota
	StateStarted
	StateDisposed
)

func (s State) String() string {
	switch s {
	case StateConstructed:
		return "constructed"
	case StateStarted:
		return "started"
	case StateDisposed:
		return "disposed"
	default:
		return "unknown"
	}
}
