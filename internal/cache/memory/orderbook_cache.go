package memory

import (
	"context"
	"sync"

	"github.com/alanyoungcy/nexustrade/internal/domain"
)

// OrderbookCache keeps the latest snapshot per symbol.
type OrderbookCache struct {
	mu    sync.RWMutex
	books map[string]domain.OrderBookSnapshot
}

// NewOrderbookCache creates an empty OrderbookCache.
func NewOrderbookCache() *OrderbookCache {
	return &OrderbookCache{books: make(map[string]domain.OrderBookSnapshot)}
}

// SetSnapshot replaces the book for snap.Symbol.
func (c *OrderbookCache) SetSnapshot(_ context.Context, snap domain.OrderBookSnapshot) error {
	c.mu.Lock()
	c.books[snap.Symbol] = snap
	c.mu.Unlock()
	return nil
}

// GetSnapshot returns the book for symbol or domain.ErrNotFound.
func (c *OrderbookCache) GetSnapshot(_ context.Context, symbol string) (domain.OrderBookSnapshot, error) {
	c.mu.RLock()
	snap, ok := c.books[symbol]
	c.mu.RUnlock()
	if !ok {
		return domain.OrderBookSnapshot{}, domain.ErrNotFound
	}
	return snap, nil
}

var _ domain.OrderbookCache = (*OrderbookCache)(nil)
