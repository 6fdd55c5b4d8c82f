package app

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/alanyoungcy/nexustrade/internal/config"
	"github.com/alanyoungcy/nexustrade/internal/domain"
)

func TestSimulatorConfigCopiesEveryField(t *testing.T) {
	cfg := config.Defaults()
	sc := simulatorConfig(cfg.Simulation)

	if sc.TickInterval != 2*time.Second || sc.StepDelay != 900*time.Millisecond || sc.TradeThreshold != 0.98 {
		t.Fatalf("timing = %+v", sc)
	}
	if len(sc.Instruments) != 4 || sc.Instruments[2].Symbol != "XAU/USD" || sc.Instruments[2].Amount != 10 {
		t.Fatalf("instruments = %+v", sc.Instruments)
	}
	if len(sc.RiskTiers) != 4 || sc.ElaborateStrategy != "ICT 2022 Model" {
		t.Fatalf("tiers = %+v", sc.RiskTiers)
	}
}

func TestWireDefaultsAndHeadlessRun(t *testing.T) {
	cfg := config.Defaults()
	cfg.Storage.SQLitePath = filepath.Join(t.TempDir(), "app.db")
	cfg.Simulation.TickInterval.Duration = 5 * time.Millisecond
	cfg.Simulation.TradeThreshold = 0 // trigger on every tick
	cfg.Simulation.Strategies = []string{"Momentum Breakout"}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	a := New(&cfg, logger)
	defer a.Close()

	deps, cleanup, err := Wire(context.Background(), &cfg, logger)
	if err != nil {
		t.Fatalf("Wire: %v", err)
	}
	a.closers = append(a.closers, cleanup)
	if deps.Archiver != nil {
		t.Fatal("archiver wired without archive config")
	}

	c, err := a.buildCore(deps)
	if err != nil {
		t.Fatalf("buildCore: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if err := a.HeadlessMode(ctx, c); err != nil {
		t.Fatalf("HeadlessMode: %v", err)
	}

	n, err := deps.Trades.Count(context.Background())
	if err != nil || n == 0 {
		t.Fatalf("trades = %d, %v", n, err)
	}
	logs, err := deps.Logs.ListRecent(context.Background(), 1000)
	if err != nil {
		t.Fatal(err)
	}
	var started bool
	for _, e := range logs {
		if e.Level == domain.LevelSystem && e.Message == "Bot started" {
			started = true
		}
	}
	if !started {
		t.Fatal("missing Bot started line")
	}
}

func TestArchiveModeWithoutS3(t *testing.T) {
	cfg := config.Defaults()
	a := New(&cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err := a.ArchiveMode(context.Background(), &Dependencies{}); err == nil {
		t.Fatal("expected error without an archiver")
	}
}
