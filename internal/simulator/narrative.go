package simulator

import (
	"fmt"
	"math"

	"github.com/alanyoungcy/nexustrade/internal/domain"
)

var timeframes = []string{"1m", "3m", "5m"}

// narrative is the staged analysis that precedes an elaborate-strategy fill.
// All random draws happen when it is planned, so a narrative is fixed once
// the tick that triggered it returns.
type narrative struct {
	trade      domain.Trade
	premium    bool
	buySide    bool
	timeframe  string
	quality    float64
	confluence bool
	peer       string
	confidence float64
	risk       float64
	win        bool
}

func planNarrative(cfg *Config, r Rand, t domain.Trade, peer string) narrative {
	n := narrative{
		trade:     t,
		premium:   r.IntN(2) == 0,
		buySide:   r.IntN(2) == 0,
		timeframe: timeframes[r.IntN(len(timeframes))],
		quality:   uniform(r, cfg.MinQuality, 1),
		peer:      peer,
	}
	if r.Float64() < cfg.ConfluenceProbability {
		n.confluence = true
		n.quality = math.Min(1, n.quality+cfg.ConfluenceBonus)
	}
	n.confidence = uniform(r, 0.5, 1)
	n.risk = cfg.riskFor(n.quality)
	n.win = r.Float64() < cfg.WinProbability
	return n
}

// steps are the INFO lines logged before execution, in order. The SMT line
// is left out when there is no peer symbol.
func (n narrative) steps() []string {
	sym := n.trade.Symbol
	bias, pool, mss := "DISCOUNT", "SELL_SIDE_LIQUIDITY", "Upside"
	if n.premium {
		bias = "PREMIUM"
	}
	if n.buySide {
		pool, mss = "BUY_SIDE_LIQUIDITY", "Downside"
	}
	ets := fmt.Sprintf("[ETS] %s best execution timeframe %s | quality %.2f", sym, n.timeframe, n.quality)
	if n.confluence {
		ets += " | nested FVG confluence"
	}
	lines := []string{
		fmt.Sprintf("[ICT] %s HTF bias %s. Scanning for liquidity...", sym, bias),
		fmt.Sprintf("[ICT] %s %s swept at %s", sym, pool, domain.FormatPrice(n.trade.Price)),
		fmt.Sprintf("[ICT] %s MSS %s confirmed. Looking for FVG...", sym, mss),
		ets,
	}
	if n.peer != "" {
		lines = append(lines, fmt.Sprintf("[SMT] %s divergence vs %s | confidence %.2f", sym, n.peer, n.confidence))
	}
	return append(lines, fmt.Sprintf("[RISK] %s adaptive risk %.1f%% (quality %.2f)", sym, n.risk, n.quality))
}

// stopLoss and takeProfit bracket the entry against the trade direction.
func (n narrative) stopLoss() float64 {
	if n.trade.Side == domain.SideSell {
		return n.trade.Price * 1.005
	}
	return n.trade.Price * 0.995
}

func (n narrative) takeProfit() float64 {
	if n.trade.Side == domain.SideSell {
		return n.trade.Price * 0.985
	}
	return n.trade.Price * 1.015
}

func (n narrative) detail() string {
	return fmt.Sprintf("quality %.2f, risk %.1f%%, SL %s, TP %s",
		n.quality, n.risk, domain.FormatPrice(n.stopLoss()), domain.FormatPrice(n.takeProfit()))
}

func (n narrative) outcome() string {
	result := "LOSS"
	if n.win {
		result = "WIN"
	}
	return fmt.Sprintf("[LEARNING] %s %s closed %s (quality %.2f, risk %.1f%%). Weights updated.",
		n.trade.Symbol, n.trade.Side, result, n.quality, n.risk)
}
