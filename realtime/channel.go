package realtime

import "context"

// ReadyState mirrors a data channel's readiness.
type ReadyState string

const (
	StateConnecting ReadyState = "connecting"
	StateOpen       ReadyState = "open"
	StateClosing    ReadyState = "closing"
	StateClosed     ReadyState = "closed"
)

// Channel is the outbound half of the realtime control channel.
type Channel interface {
	State() ReadyState
	Send(ctx context.Context, event Event) error
}

// Conn is a full duplex realtime connection.
type Conn interface {
	Channel
	Receive(ctx context.Context) (ServerEvent, error)
	Close() error
}
