package chat

import "time"

type Status string

const (
	StatusDisconnected Status = "disconnected"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusReconnecting Status = "reconnecting"
	StatusError        Status = "error"
)

// ConnectionState is the per-room connection record. ReconnectAttempts
// resets to zero on a successful connect and grows while reconnecting;
// when it reaches MaxReconnectAttempts the room parks in StatusError until
// a fresh Connect call.
type ConnectionState struct {
	Status               Status
	ReconnectAttempts    int
	MaxReconnectAttempts int
	LastConnected        time.Time
}
