package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/alanyoungcy/nexustrade/internal/domain"
)

// LogStore implements domain.LogStore on SQLite.
type LogStore struct {
	db *sql.DB
}

// NewLogStore creates a LogStore on the given client.
func NewLogStore(c *Client) *LogStore {
	return &LogStore{db: c.DB()}
}

// Insert appends a log entry and returns its id.
func (s *LogStore) Insert(ctx context.Context, e domain.LogEntry) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO logs (level, message, timestamp) VALUES (?, ?, ?)`,
		string(e.Level), e.Message, formatTime(e.Timestamp),
	)
	if err != nil {
		return 0, fmt.Errorf("sqlite: insert log: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("sqlite: log id: %w", err)
	}
	return id, nil
}

// ListRecent returns up to limit log entries, newest first.
func (s *LogStore) ListRecent(ctx context.Context, limit int) ([]domain.LogEntry, error) {
	return s.query(ctx, "list recent logs",
		`SELECT id, level, message, timestamp FROM logs ORDER BY timestamp DESC, id DESC LIMIT ?`, limit)
}

// ListBefore returns all log entries strictly before the given time.
func (s *LogStore) ListBefore(ctx context.Context, before time.Time) ([]domain.LogEntry, error) {
	return s.query(ctx, "list logs before",
		`SELECT id, level, message, timestamp FROM logs WHERE timestamp < ? ORDER BY timestamp ASC`, formatTime(before))
}

func (s *LogStore) query(ctx context.Context, op, q string, args ...any) ([]domain.LogEntry, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: %s: %w", op, err)
	}
	defer rows.Close()

	entries := []domain.LogEntry{}
	for rows.Next() {
		var (
			e     domain.LogEntry
			level string
			ts    string
		)
		if err := rows.Scan(&e.ID, &level, &e.Message, &ts); err != nil {
			return nil, fmt.Errorf("sqlite: %s: %w", op, err)
		}
		if e.Timestamp, err = parseTime(ts); err != nil {
			return nil, err
		}
		e.Level = domain.LogLevel(level)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: %s: %w", op, err)
	}
	return entries, nil
}

var _ domain.LogStore = (*LogStore)(nil)
