package simulator

import (
	"sync"

	"github.com/alanyoungcy/nexustrade/internal/domain"
)

// PriceState holds the current price of every tracked symbol, in
// configuration order. Prices start positive and every move is a factor in
// (0, 2), so they stay positive.
type PriceState struct {
	mu      sync.RWMutex
	symbols []string
	vol     map[string]float64
	prices  map[string]float64
}

// NewPriceState seeds the state from instruments.
func NewPriceState(instruments []Instrument) *PriceState {
	ps := &PriceState{
		symbols: make([]string, 0, len(instruments)),
		vol:     make(map[string]float64, len(instruments)),
		prices:  make(map[string]float64, len(instruments)),
	}
	for _, inst := range instruments {
		ps.symbols = append(ps.symbols, inst.Symbol)
		ps.vol[inst.Symbol] = inst.Volatility
		ps.prices[inst.Symbol] = inst.Price
	}
	return ps
}

// Perturb applies price *= 1 + uniform(-0.5, 0.5)*volatility to one symbol
// and returns the new price.
func (ps *PriceState) Perturb(symbol string, r Rand) (float64, error) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	p, ok := ps.prices[symbol]
	if !ok {
		return 0, domain.ErrUnknownSymbol
	}
	p *= 1 + uniform(r, -0.5, 0.5)*ps.vol[symbol]
	ps.prices[symbol] = p
	return p, nil
}

// PerturbAll perturbs every symbol in order.
func (ps *PriceState) PerturbAll(r Rand) []domain.PriceUpdate {
	updates := make([]domain.PriceUpdate, 0, len(ps.symbols))
	for _, s := range ps.symbols {
		p, _ := ps.Perturb(s, r)
		updates = append(updates, domain.PriceUpdate{Symbol: s, Price: p})
	}
	return updates
}

// Price returns the current price of symbol.
func (ps *PriceState) Price(symbol string) (float64, bool) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	p, ok := ps.prices[symbol]
	return p, ok
}

// Snapshot copies all prices in symbol order.
func (ps *PriceState) Snapshot() []domain.PriceUpdate {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	out := make([]domain.PriceUpdate, 0, len(ps.symbols))
	for _, s := range ps.symbols {
		out = append(out, domain.PriceUpdate{Symbol: s, Price: ps.prices[s]})
	}
	return out
}

// Symbols returns the tracked symbols in order.
func (ps *PriceState) Symbols() []string {
	return append([]string(nil), ps.symbols...)
}
