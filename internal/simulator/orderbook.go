package simulator

import (
	"math"
	"time"

	"github.com/alanyoungcy/nexustrade/internal/domain"
)

// buildBook synthesises depth levels on each side of mid, spaced step*mid
// apart, with random sizes in [1, 100).
func buildBook(symbol string, mid float64, depth int, step float64, r Rand, ts time.Time) domain.OrderBookSnapshot {
	snap := domain.OrderBookSnapshot{
		Symbol:    symbol,
		Bids:      make([]domain.PriceLevel, depth),
		Asks:      make([]domain.PriceLevel, depth),
		Timestamp: ts,
	}
	for i := 0; i < depth; i++ {
		offset := mid * step * float64(i+1)
		snap.Bids[i] = domain.PriceLevel{Price: mid - offset, Size: round2(uniform(r, 1, 100))}
		snap.Asks[i] = domain.PriceLevel{Price: mid + offset, Size: round2(uniform(r, 1, 100))}
	}
	return snap
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
