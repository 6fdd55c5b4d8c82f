// Package simulator drives the synthetic market: a price random walk, the
// per-tick trade trigger, staged strategy narratives and the bot run toggle.
package simulator

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/alanyoungcy/nexustrade/internal/domain"
	"github.com/alanyoungcy/nexustrade/internal/metrics"
)

// Journal records dashboard log lines.
type Journal interface {
	Log(ctx context.Context, level domain.LogLevel, message string) domain.LogEntry
}

// Executor persists and broadcasts a fill.
type Executor interface {
	Execute(ctx context.Context, t domain.Trade, detail string) domain.Trade
}

// Market receives the per-tick price and book output.
type Market interface {
	PublishPrice(ctx context.Context, symbol string, price float64, ts time.Time)
	PublishBooks(ctx context.Context, snaps []domain.OrderBookSnapshot)
}

// Engine owns the price state and the bot run flag. The tick loop only runs
// while the flag is set; narratives outlive a stop and end on Close.
type Engine struct {
	cfg     Config
	rng     Rand
	prices  *PriceState
	amounts map[string]float64
	journal Journal
	exec    Executor
	market  Market
	metrics *metrics.Metrics
	logger  *slog.Logger
	now     func() time.Time

	life       context.Context
	lifeCancel context.CancelFunc
	narratives sync.WaitGroup

	mu         sync.Mutex
	running    bool
	tickCancel context.CancelFunc
	tickDone   chan struct{}
}

// New creates a stopped engine.
func New(cfg Config, rng Rand, journal Journal, exec Executor, market Market, m *metrics.Metrics, logger *slog.Logger) (*Engine, error) {
	if err := cfg.check(); err != nil {
		return nil, err
	}
	if rng == nil {
		rng = NewRand(0)
	}
	if logger == nil {
		logger = slog.Default()
	}
	amounts := make(map[string]float64, len(cfg.Instruments))
	for _, inst := range cfg.Instruments {
		amounts[inst.Symbol] = inst.Amount
	}
	life, cancel := context.WithCancel(context.Background())
	return &Engine{
		cfg:        cfg,
		rng:        rng,
		prices:     NewPriceState(cfg.Instruments),
		amounts:    amounts,
		journal:    journal,
		exec:       exec,
		market:     market,
		metrics:    m,
		logger:     logger.With(slog.String("component", "simulator")),
		now:        func() time.Time { return time.Now().UTC() },
		life:       life,
		lifeCancel: cancel,
	}, nil
}

// Running reports whether the tick loop is active.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// Start begins ticking. It is a no-op when already running and reports
// whether the state changed.
func (e *Engine) Start(ctx context.Context) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.startLocked(ctx)
}

// Stop halts ticking and waits for an in-progress tick to finish. Narratives
// already scheduled keep running.
func (e *Engine) Stop(ctx context.Context) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stopLocked(ctx)
}

// Toggle flips the run flag and returns the new state. Exactly one SYSTEM
// line is logged per call.
func (e *Engine) Toggle(ctx context.Context) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		e.stopLocked(ctx)
	} else {
		e.startLocked(ctx)
	}
	return e.running
}

func (e *Engine) startLocked(ctx context.Context) bool {
	if e.running || e.life.Err() != nil {
		return false
	}
	tickCtx, cancel := context.WithCancel(e.life)
	done := make(chan struct{})
	e.running, e.tickCancel, e.tickDone = true, cancel, done
	go e.loop(tickCtx, done)

	e.journal.Log(ctx, domain.LevelSystem, "Bot started")
	e.logger.Info("bot started", slog.Duration("tick", e.cfg.TickInterval))
	return true
}

func (e *Engine) stopLocked(ctx context.Context) bool {
	if !e.running {
		return false
	}
	e.tickCancel()
	<-e.tickDone
	e.running, e.tickCancel, e.tickDone = false, nil, nil

	e.journal.Log(ctx, domain.LevelSystem, "Bot stopped")
	e.logger.Info("bot stopped")
	return true
}

func (e *Engine) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(e.cfg.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Side effects run on the lifetime context so a stop never
			// truncates a tick halfway through its writes.
			e.Tick(e.life)
		}
	}
}

// Tick advances the simulation by one step: perturb and publish every price,
// roll the trade trigger per symbol, then publish fresh order books.
func (e *Engine) Tick(ctx context.Context) {
	now := e.now()
	updates := e.prices.PerturbAll(e.rng)
	for _, u := range updates {
		e.market.PublishPrice(ctx, u.Symbol, u.Price, now)
	}

	for i, u := range updates {
		if e.rng.Float64() > e.cfg.TradeThreshold {
			e.trigger(ctx, i, u)
		}
	}

	books := make([]domain.OrderBookSnapshot, 0, len(updates))
	for _, u := range updates {
		books = append(books, buildBook(u.Symbol, u.Price, e.cfg.BookDepth, e.cfg.BookStep, e.rng, now))
	}
	e.market.PublishBooks(ctx, books)
	e.metrics.Tick()
}

func (e *Engine) trigger(ctx context.Context, idx int, u domain.PriceUpdate) {
	side := domain.SideBuy
	if e.rng.IntN(2) == 1 {
		side = domain.SideSell
	}
	t := domain.Trade{
		Symbol:   u.Symbol,
		Side:     side,
		Price:    u.Price,
		Amount:   e.amounts[u.Symbol],
		Strategy: e.cfg.Strategies[e.rng.IntN(len(e.cfg.Strategies))],
	}
	if t.Strategy != e.cfg.ElaborateStrategy {
		e.exec.Execute(ctx, t, "")
		return
	}
	// SMT compares against the next instrument; a lone instrument has none.
	var peer string
	if len(e.cfg.Instruments) > 1 {
		peer = e.cfg.Instruments[(idx+1)%len(e.cfg.Instruments)].Symbol
	}
	e.runNarrative(planNarrative(&e.cfg, e.rng, t, peer))
}

func (e *Engine) runNarrative(n narrative) {
	if e.life.Err() != nil {
		return
	}
	e.narratives.Add(1)
	e.metrics.NarrativeStarted()
	go func() {
		defer e.narratives.Done()
		defer e.metrics.NarrativeDone()
		ctx := e.life

		for i, line := range n.steps() {
			if i > 0 && !sleep(ctx, e.cfg.StepDelay) {
				return
			}
			e.journal.Log(ctx, domain.LevelInfo, line)
		}
		if !sleep(ctx, e.cfg.StepDelay) {
			return
		}
		e.exec.Execute(ctx, n.trade, n.detail())
		if !sleep(ctx, e.cfg.OutcomeDelay) {
			return
		}
		e.journal.Log(ctx, domain.LevelLearning, n.outcome())
	}()
}

// Run starts the engine when configured to autostart and blocks until ctx is
// done, then shuts everything down.
func (e *Engine) Run(ctx context.Context) error {
	if e.cfg.Autostart {
		e.Start(ctx)
	}
	<-ctx.Done()
	e.Close()
	return nil
}

// Close stops ticking, cancels pending narratives and waits for them.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.running {
		e.tickCancel()
		<-e.tickDone
		e.running, e.tickCancel, e.tickDone = false, nil, nil
	}
	e.mu.Unlock()
	e.lifeCancel()
	e.narratives.Wait()
}

// Symbols returns the simulated symbols in configuration order.
func (e *Engine) Symbols() []string {
	return e.prices.Symbols()
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
