package mailsync

// State is the lifecycle phase of one account's connection.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateReady
	StateWatching
	StateReconnecting
	StateShuttingDown
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateReady:
		return "ready"
	case StateWatching:
		return "watching"
	case StateReconnecting:
		return "reconnecting"
	case StateShuttingDown:
		return "shutting_down"
	default:
		return "unknown"
	}
}
