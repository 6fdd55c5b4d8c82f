package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/alanyoungcy/nexustrade/internal/domain"
)

// TradeStore implements domain.TradeStore on SQLite.
type TradeStore struct {
	db *sql.DB
}

// NewTradeStore creates a TradeStore on the given client.
func NewTradeStore(c *Client) *TradeStore {
	return &TradeStore{db: c.DB()}
}

const tradeSelectCols = `id, symbol, type, price, amount, timestamp, strategy`

func scanTradeRows(rows *sql.Rows) ([]domain.Trade, error) {
	trades := []domain.Trade{}
	for rows.Next() {
		var (
			t    domain.Trade
			side string
			ts   string
		)
		if err := rows.Scan(&t.ID, &t.Symbol, &side, &t.Price, &t.Amount, &ts, &t.Strategy); err != nil {
			return nil, err
		}
		parsed, err := parseTime(ts)
		if err != nil {
			return nil, err
		}
		t.Side = domain.Side(side)
		t.Timestamp = parsed
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// Insert appends a trade and returns its id.
func (s *TradeStore) Insert(ctx context.Context, t domain.Trade) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO trades (symbol, type, price, amount, timestamp, strategy) VALUES (?, ?, ?, ?, ?, ?)`,
		t.Symbol, string(t.Side), t.Price, t.Amount, formatTime(t.Timestamp), t.Strategy,
	)
	if err != nil {
		return 0, fmt.Errorf("sqlite: insert trade: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("sqlite: trade id: %w", err)
	}
	return id, nil
}

// ListRecent returns up to limit trades, newest first.
func (s *TradeStore) ListRecent(ctx context.Context, limit int) ([]domain.Trade, error) {
	return s.query(ctx, "list recent trades",
		`SELECT `+tradeSelectCols+` FROM trades ORDER BY timestamp DESC, id DESC LIMIT ?`, limit)
}

// ListAll returns the full trade history, oldest first.
func (s *TradeStore) ListAll(ctx context.Context) ([]domain.Trade, error) {
	return s.query(ctx, "list all trades", `SELECT `+tradeSelectCols+` FROM trades ORDER BY id ASC`)
}

// ListBefore returns all trades strictly before the given time (for archiving).
func (s *TradeStore) ListBefore(ctx context.Context, before time.Time) ([]domain.Trade, error) {
	return s.query(ctx, "list trades before",
		`SELECT `+tradeSelectCols+` FROM trades WHERE timestamp < ? ORDER BY timestamp ASC`, formatTime(before))
}

// Count returns the number of persisted trades.
func (s *TradeStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM trades`).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite: count trades: %w", err)
	}
	return n, nil
}

func (s *TradeStore) query(ctx context.Context, op, q string, args ...any) ([]domain.Trade, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: %s: %w", op, err)
	}
	defer rows.Close()

	trades, err := scanTradeRows(rows)
	if err != nil {
		return nil, fmt.Errorf("sqlite: %s: %w", op, err)
	}
	return trades, nil
}

var _ domain.TradeStore = (*TradeStore)(nil)
