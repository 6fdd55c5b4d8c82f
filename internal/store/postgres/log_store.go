package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/nexustrade/internal/domain"
)

// LogStore implements domain.LogStore using PostgreSQL.
type LogStore struct {
	pool *pgxpool.Pool
}

// NewLogStore creates a new LogStore backed by the given connection pool.
func NewLogStore(pool *pgxpool.Pool) *LogStore {
	return &LogStore{pool: pool}
}

func scanLogRows(rows pgx.Rows) ([]domain.LogEntry, error) {
	entries := []domain.LogEntry{}
	for rows.Next() {
		var e domain.LogEntry
		var level string
		if err := rows.Scan(&e.ID, &level, &e.Message, &e.Timestamp); err != nil {
			return nil, err
		}
		e.Level = domain.LogLevel(level)
		e.Timestamp = e.Timestamp.UTC()
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Insert appends a log entry and returns its id.
func (s *LogStore) Insert(ctx context.Context, e domain.LogEntry) (int64, error) {
	var ts any
	if !e.Timestamp.IsZero() {
		ts = e.Timestamp
	}
	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO logs (level, message, timestamp)
		VALUES ($1, $2, COALESCE($3, NOW()))
		RETURNING id`,
		string(e.Level), e.Message, ts,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("postgres: insert log: %w", err)
	}
	return id, nil
}

// ListRecent returns up to limit log entries, newest first.
func (s *LogStore) ListRecent(ctx context.Context, limit int) ([]domain.LogEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, level, message, timestamp FROM logs ORDER BY timestamp DESC, id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list recent logs: %w", err)
	}
	defer rows.Close()

	entries, err := scanLogRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan recent logs: %w", err)
	}
	return entries, nil
}

// ListBefore returns all log entries strictly before the given time (for archiving).
func (s *LogStore) ListBefore(ctx context.Context, before time.Time) ([]domain.LogEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, level, message, timestamp FROM logs WHERE timestamp < $1 ORDER BY timestamp ASC`, before)
	if err != nil {
		return nil, fmt.Errorf("postgres: list logs before: %w", err)
	}
	defer rows.Close()
	return scanLogRows(rows)
}

var _ domain.LogStore = (*LogStore)(nil)
