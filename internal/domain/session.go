package domain

import "time"

// SessionState is the lifecycle state of one stream session.
type SessionState string

const (
	SessionInit        SessionState = "init"
	SessionEstablished SessionState = "established"
	SessionStreaming   SessionState = "streaming"
	SessionClosed      SessionState = "closed"
	SessionErrored     SessionState = "errored"
)

// Terminal reports whether no further transitions are allowed.
func (s SessionState) Terminal() bool {
	return s == SessionClosed || s == SessionErrored
}

// Stream event names.
const (
	EventConnected = "connected"
	EventTools     = "tools"
	EventHeartbeat = "heartbeat"
	EventError     = "error"
)

// ConnectedEvent opens every session.
type ConnectedEvent struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// HeartbeatEvent keeps an idle stream alive.
type HeartbeatEvent struct {
	Type      string `json:"type"`
	Timestamp string `json:"timestamp"`
	Status    string `json:"status"`
}

// ErrorEvent is the last event of an errored session.
type ErrorEvent struct {
	Type      string `json:"type"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// FormatTimestamp renders event timestamps.
func FormatTimestamp(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}
