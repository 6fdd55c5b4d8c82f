package domain

import (
	"context"
	"time"
)

// TradeStore is the append-only trade history.
type TradeStore interface {
	Insert(ctx context.Context, trade Trade) (int64, error)
	ListRecent(ctx context.Context, limit int) ([]Trade, error)
	ListAll(ctx context.Context) ([]Trade, error)
	ListBefore(ctx context.Context, before time.Time) ([]Trade, error)
	Count(ctx context.Context) (int64, error)
}

// LogStore is the append-only dashboard log history.
type LogStore interface {
	Insert(ctx context.Context, entry LogEntry) (int64, error)
	ListRecent(ctx context.Context, limit int) ([]LogEntry, error)
	ListBefore(ctx context.Context, before time.Time) ([]LogEntry, error)
}
