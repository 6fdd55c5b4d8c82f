package domain

import "time"

// SessionState is the phase of the simulated broker handshake.
type SessionState string

const (
	SessionDisconnected SessionState = "disconnected"
	SessionPending      SessionState = "pending"
	SessionConnected    SessionState = "connected"
)

// Credentials is the body of a login request.
type Credentials struct {
	Login    string `json:"login"`
	Password string `json:"password"`
	Server   string `json:"server"`
}

// Account is the synthetic account attached to a connected session.
type Account struct {
	Login    string  `json:"login"`
	Server   string  `json:"server"`
	Balance  float64 `json:"balance"`
	Equity   float64 `json:"equity"`
	Currency string  `json:"currency"`
}

// SessionSnapshot is a point-in-time copy of the broker session.
type SessionSnapshot struct {
	Connected bool         `json:"connected"`
	State     SessionState `json:"state"`
	Account   *Account     `json:"account"`
	Logs      []string     `json:"logs"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// SessionLog is the payload of an mt5_log event.
type SessionLog struct {
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}
