package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/alanyoungcy/nexustrade/internal/domain"
	"github.com/redis/go-redis/v9"
)

// bookTTL lets books of symbols that stopped ticking age out.
const bookTTL = 5 * time.Minute

// OrderbookCache implements domain.OrderbookCache. Key schema:
//
//	nexus:book:{symbol}      - JSON snapshot
//	nexus:book:{symbol}:bbo  - hash with "bid", "ask" and "ts"
type OrderbookCache struct {
	rdb *redis.Client
}

// NewOrderbookCache creates an OrderbookCache backed by the given Client.
func NewOrderbookCache(c *Client) *OrderbookCache {
	return &OrderbookCache{rdb: c.rdb}
}

func bookKey(symbol string) string    { return key("book", symbol) }
func bookBBOKey(symbol string) string { return key("book", symbol, "bbo") }

// SetSnapshot replaces the stored book and its best bid/offer in one
// MULTI/EXEC transaction.
func (oc *OrderbookCache) SetSnapshot(ctx context.Context, snap domain.OrderBookSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("redis: marshal book %s: %w", snap.Symbol, err)
	}

	pipe := oc.rdb.TxPipeline()
	pipe.Set(ctx, bookKey(snap.Symbol), data, bookTTL)
	pipe.HSet(ctx, bookBBOKey(snap.Symbol), map[string]any{
		"bid": strconv.FormatFloat(snap.BestBid(), 'f', -1, 64),
		"ask": strconv.FormatFloat(snap.BestAsk(), 'f', -1, 64),
		"ts":  strconv.FormatInt(snap.Timestamp.UnixNano(), 10),
	})
	pipe.Expire(ctx, bookBBOKey(snap.Symbol), bookTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set book %s: %w", snap.Symbol, err)
	}
	return nil
}

// GetSnapshot returns the stored book for symbol or domain.ErrNotFound.
func (oc *OrderbookCache) GetSnapshot(ctx context.Context, symbol string) (domain.OrderBookSnapshot, error) {
	data, err := oc.rdb.Get(ctx, bookKey(symbol)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.OrderBookSnapshot{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.OrderBookSnapshot{}, fmt.Errorf("redis: get book %s: %w", symbol, err)
	}

	var snap domain.OrderBookSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return domain.OrderBookSnapshot{}, fmt.Errorf("redis: decode book %s: %w", symbol, err)
	}
	return snap, nil
}

var _ domain.OrderbookCache = (*OrderbookCache)(nil)
