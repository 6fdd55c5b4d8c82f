package domain

import (
	"strconv"
	"time"
)

// Side is the direction of a simulated fill.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Trade is a synthesized execution. It is never mutated after creation.
type Trade struct {
	ID        int64     `json:"id,omitempty"`
	Symbol    string    `json:"symbol"`
	Side      Side      `json:"type"`
	Price     float64   `json:"price"`
	Amount    float64   `json:"amount"`
	Strategy  string    `json:"strategy"`
	Timestamp time.Time `json:"timestamp"`
}

// TradeStats is the aggregate served by the stats endpoint.
type TradeStats struct {
	TotalTrades int64   `json:"total_trades"`
	NetPnL      float64 `json:"net_pnl"`
}

// FormatPrice renders a price with FX precision below 100 and cash-index
// precision above it.
func FormatPrice(p float64) string {
	if p < 100 {
		return strconv.FormatFloat(p, 'f', 5, 64)
	}
	return strconv.FormatFloat(p, 'f', 2, 64)
}
