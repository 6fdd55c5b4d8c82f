package domain

import "github.com/shopspring/decimal"

// NetPnL sums the signed cash flow of trades: a BUY pays price*amount, a SELL
// receives it. The sum is exact in decimal and only converted at the end, so
// the result does not depend on the order the trades are visited in.
func NetPnL(trades []Trade) float64 {
	total := decimal.Zero
	for _, t := range trades {
		flow := decimal.NewFromFloat(t.Price).Mul(decimal.NewFromFloat(t.Amount))
		if t.Side == SideBuy {
			flow = flow.Neg()
		}
		total = total.Add(flow)
	}
	f, _ := total.Float64()
	return f
}

// ComputeStats builds TradeStats from a full trade history.
func ComputeStats(trades []Trade) TradeStats {
	return TradeStats{
		TotalTrades: int64(len(trades)),
		NetPnL:      NetPnL(trades),
	}
}
