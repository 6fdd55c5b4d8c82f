package domain

import "time"

// LogLevel classifies a dashboard log line.
type LogLevel string

const (
	LevelInfo     LogLevel = "INFO"
	LevelSystem   LogLevel = "SYSTEM"
	LevelLearning LogLevel = "LEARNING"
)

// LogEntry is a persisted, broadcast dashboard log line. Operator diagnostics
// go to slog, not here.
type LogEntry struct {
	ID        int64     `json:"id,omitempty"`
	Level     LogLevel  `json:"level"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}
