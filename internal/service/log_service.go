package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/nexustrade/internal/domain"
	"github.com/alanyoungcy/nexustrade/internal/metrics"
)

// logPayload is the wire shape of a log event.
type logPayload struct {
	Level     domain.LogLevel `json:"level"`
	Message   string          `json:"message"`
	Timestamp time.Time       `json:"timestamp"`
}

// LogService is the single choke point for dashboard log lines: every line
// is appended to the log store and then broadcast, so history and the live
// stream carry the same content.
type LogService struct {
	logs    domain.LogStore
	pub     *Publisher
	metrics *metrics.Metrics
	logger  *slog.Logger
	now     func() time.Time
}

// NewLogService creates a LogService.
func NewLogService(logs domain.LogStore, pub *Publisher, m *metrics.Metrics, logger *slog.Logger) *LogService {
	return &LogService{
		logs:    logs,
		pub:     pub,
		metrics: m,
		logger:  logger.With(slog.String("component", "log_service")),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Log persists and publishes one entry. A failed write is reported to the
// operator log and does not stop the broadcast.
func (s *LogService) Log(ctx context.Context, level domain.LogLevel, message string) domain.LogEntry {
	entry := domain.LogEntry{Level: level, Message: message, Timestamp: s.now()}

	id, err := s.logs.Insert(ctx, entry)
	if err != nil {
		s.metrics.PersistFailure("logs")
		s.logger.WarnContext(ctx, "log_service: persist failed",
			slog.String("level", string(level)),
			slog.String("error", err.Error()),
		)
	} else {
		entry.ID = id
	}

	s.pub.Publish(ctx, domain.EventLog, logPayload{
		Level:     entry.Level,
		Message:   entry.Message,
		Timestamp: entry.Timestamp,
	})
	s.metrics.LogEntry(string(level))
	return entry
}

// Recent returns up to limit entries, newest first.
func (s *LogService) Recent(ctx context.Context, limit int) ([]domain.LogEntry, error) {
	entries, err := s.logs.ListRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("log_service: list recent: %w", err)
	}
	return entries, nil
}
