// Package app wires the NexusTrade process together and runs it in the
// configured mode.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/alanyoungcy/nexustrade/internal/broker"
	"github.com/alanyoungcy/nexustrade/internal/config"
	"github.com/alanyoungcy/nexustrade/internal/service"
	"github.com/alanyoungcy/nexustrade/internal/simulator"
)

// App is the root application object. It owns the configuration, logger, and a
// list of cleanup functions that are called in reverse order on shutdown.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func()
}

// New creates a new App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// core holds the services shared by every mode.
type core struct {
	deps    *Dependencies
	pub     *service.Publisher
	journal *service.LogService
	trades  *service.TradeService
	market  *service.MarketService
	engine  *simulator.Engine
	session *broker.Session
}

// Run wires dependencies, selects the operating mode and blocks until ctx is
// cancelled or the mode finishes.
func (a *App) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting application",
		slog.String("mode", a.cfg.Mode),
		slog.Any("config", config.RedactedConfig(a.cfg)),
	)

	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	if strings.EqualFold(a.cfg.Mode, "archive") {
		return a.ArchiveMode(ctx, deps)
	}

	c, err := a.buildCore(deps)
	if err != nil {
		return err
	}
	switch strings.ToLower(a.cfg.Mode) {
	case "headless":
		return a.HeadlessMode(ctx, c)
	case "dashboard", "":
		return a.DashboardMode(ctx, c)
	default:
		return fmt.Errorf("app: unsupported mode %q", a.cfg.Mode)
	}
}

func (a *App) buildCore(deps *Dependencies) (*core, error) {
	var notifier service.Notifier
	var loginNotifier broker.Notifier
	if deps.Notifier != nil {
		notifier, loginNotifier = deps.Notifier, deps.Notifier
	}

	pub := service.NewPublisher(deps.Bus, deps.Metrics, a.logger)
	journal := service.NewLogService(deps.Logs, pub, deps.Metrics, a.logger)
	trades := service.NewTradeService(deps.Trades, pub, journal, notifier, deps.Metrics, a.logger)
	market := service.NewMarketService(deps.Prices, deps.Books, pub, a.logger)

	engine, err := simulator.New(simulatorConfig(a.cfg.Simulation), simulator.NewRand(a.cfg.Simulation.Seed),
		journal, trades, market, deps.Metrics, a.logger)
	if err != nil {
		return nil, fmt.Errorf("app: simulator: %w", err)
	}

	b := a.cfg.Broker
	session := broker.NewSession(broker.Config{
		LoginDelay:   b.LoginDelay.Duration,
		FailSecret:   b.FailSecret,
		ErrorCode:    b.ErrorCode,
		ErrorMessage: b.ErrorMessage,
		Balance:      b.Balance,
		Equity:       b.Equity,
		Currency:     b.Currency,
		LogCapacity:  b.LogCapacity,
		PollInterval: b.PollInterval.Duration,
	}, pub, loginNotifier, deps.Metrics, a.logger)

	return &core{
		deps:    deps,
		pub:     pub,
		journal: journal,
		trades:  trades,
		market:  market,
		engine:  engine,
		session: session,
	}, nil
}

func simulatorConfig(s config.SimulationConfig) simulator.Config {
	out := simulator.Config{
		TickInterval:          s.TickInterval.Duration,
		TradeThreshold:        s.TradeThreshold,
		StepDelay:             s.StepDelay.Duration,
		OutcomeDelay:          s.OutcomeDelay.Duration,
		WinProbability:        s.WinProbability,
		ConfluenceProbability: s.ConfluenceProbability,
		MinQuality:            s.MinQuality,
		ConfluenceBonus:       s.ConfluenceBonus,
		Strategies:            append([]string(nil), s.Strategies...),
		ElaborateStrategy:     s.ElaborateStrategy,
		BookDepth:             s.BookDepth,
		BookStep:              s.BookStep,
		Autostart:             s.Autostart,
	}
	for _, inst := range s.Instruments {
		out.Instruments = append(out.Instruments, simulator.Instrument{
			Symbol:     inst.Symbol,
			Price:      inst.Price,
			Volatility: inst.Volatility,
			Amount:     inst.Amount,
		})
	}
	for _, t := range s.RiskTiers {
		out.RiskTiers = append(out.RiskTiers, simulator.RiskTier{MinQuality: t.MinQuality, RiskPct: t.RiskPct})
	}
	return out
}

// Close tears down all resources in reverse registration order. It is safe to
// call multiple times; subsequent calls are no-ops.
func (a *App) Close() {
	a.logger.Info("shutting down application")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
