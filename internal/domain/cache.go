package domain

import (
	"context"
	"time"
)

// PriceCache mirrors the latest price per symbol.
type PriceCache interface {
	SetPrice(ctx context.Context, symbol string, price float64, ts time.Time) error
	GetPrices(ctx context.Context, symbols []string) (map[string]float64, error)
}

// OrderbookCache stores the latest synthetic book per symbol.
type OrderbookCache interface {
	SetSnapshot(ctx context.Context, snap OrderBookSnapshot) error
	GetSnapshot(ctx context.Context, symbol string) (OrderBookSnapshot, error)
}

// SignalBus is the pub/sub fan-out between producers and the WebSocket hub.
// Subscribe returns a channel that is closed when ctx is cancelled.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}
