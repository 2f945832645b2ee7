package server

// State is the lifecycle state of a connection. Transitions only move
// forward: connecting, open, closing, closed. A connection whose handshake
// fails jumps straight from connecting to closed.
type State int32

const (
	// StateConnecting means the opening handshake has not completed.
	StateConnecting State = iota
	// StateOpen means the handshake succeeded and the handler may run.
	StateOpen
	// StateClosing means the closing handshake is in progress.
	StateClosing
	// StateClosed means the transport has been released.
	StateClosed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}
