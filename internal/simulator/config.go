package simulator

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// Instrument is one simulated symbol.
type Instrument struct {
	Symbol     string
	Price      float64 // seed price
	Volatility float64 // max relative move per tick is Volatility/2
	Amount     float64 // fixed trade size
}

// RiskTier maps a minimum narrative quality to a risk percentage.
type RiskTier struct {
	MinQuality float64
	RiskPct    float64
}

// Config holds every tunable of the simulation.
type Config struct {
	TickInterval          time.Duration
	TradeThreshold        float64
	StepDelay             time.Duration
	OutcomeDelay          time.Duration
	WinProbability        float64
	ConfluenceProbability float64
	MinQuality            float64
	ConfluenceBonus       float64
	Strategies            []string
	ElaborateStrategy     string
	BookDepth             int
	BookStep              float64
	Instruments           []Instrument
	RiskTiers             []RiskTier
	Autostart             bool
}

// DefaultConfig mirrors the shipped configuration defaults.
func DefaultConfig() Config {
	return Config{
		TickInterval:          2 * time.Second,
		TradeThreshold:        0.98,
		StepDelay:             900 * time.Millisecond,
		OutcomeDelay:          3 * time.Second,
		WinProbability:        0.55,
		ConfluenceProbability: 0.3,
		MinQuality:            0.60,
		ConfluenceBonus:       0.15,
		Strategies:            []string{"ICT 2022 Model", "Mean Reversion", "Momentum Breakout"},
		ElaborateStrategy:     "ICT 2022 Model",
		BookDepth:             5,
		BookStep:              0.0001,
		Instruments: []Instrument{
			{Symbol: "GBP/USD", Price: 1.2650, Volatility: 0.0004, Amount: 10000},
			{Symbol: "EUR/USD", Price: 1.0820, Volatility: 0.0004, Amount: 10000},
			{Symbol: "XAU/USD", Price: 2045.50, Volatility: 0.0012, Amount: 10},
			{Symbol: "US100", Price: 17850.0, Volatility: 0.0015, Amount: 1},
		},
		RiskTiers: []RiskTier{
			{MinQuality: 0.90, RiskPct: 2.0},
			{MinQuality: 0.80, RiskPct: 1.5},
			{MinQuality: 0.70, RiskPct: 1.0},
			{MinQuality: 0, RiskPct: 0.5},
		},
	}
}

func (c *Config) check() error {
	if c.TickInterval <= 0 {
		return errors.New("simulator: tick interval must be > 0")
	}
	if len(c.Instruments) == 0 {
		return errors.New("simulator: no instruments")
	}
	for _, inst := range c.Instruments {
		if inst.Price <= 0 {
			return fmt.Errorf("simulator: %s: seed price must be > 0", inst.Symbol)
		}
		if inst.Volatility < 0 || inst.Volatility >= 2 {
			return fmt.Errorf("simulator: %s: volatility must be in [0, 2)", inst.Symbol)
		}
	}
	if len(c.Strategies) == 0 {
		return errors.New("simulator: no strategies")
	}
	if len(c.RiskTiers) == 0 {
		return errors.New("simulator: no risk tiers")
	}
	if c.BookDepth < 1 {
		c.BookDepth = 1
	}
	// Highest threshold first so riskFor can take the first match.
	c.RiskTiers = append([]RiskTier(nil), c.RiskTiers...)
	sort.Slice(c.RiskTiers, func(i, j int) bool { return c.RiskTiers[i].MinQuality > c.RiskTiers[j].MinQuality })
	return nil
}

// riskFor returns the risk percentage of the highest tier q reaches, or the
// lowest tier when q is below all of them.
func (c *Config) riskFor(q float64) float64 {
	for _, t := range c.RiskTiers {
		if q >= t.MinQuality {
			return t.RiskPct
		}
	}
	return c.RiskTiers[len(c.RiskTiers)-1].RiskPct
}
