package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/nexustrade/internal/pipeline"
	"github.com/alanyoungcy/nexustrade/internal/server"
	"github.com/alanyoungcy/nexustrade/internal/server/handler"
	"github.com/alanyoungcy/nexustrade/internal/server/ws"
)

const shutdownTimeout = 10 * time.Second

// hello is the greeting payload sent to each new WebSocket viewer.
type hello struct {
	Running   bool     `json:"running"`
	Connected bool     `json:"connected"`
	Symbols   []string `json:"symbols"`
}

// DashboardMode serves the HTTP API and WebSocket stream alongside the
// simulator, the broker poll and, when enabled, the archive schedule.
func (a *App) DashboardMode(ctx context.Context, c *core) error {
	a.logger.InfoContext(ctx, "starting dashboard mode", slog.Int("port", a.cfg.Server.Port))

	hub := ws.NewHub(c.deps.Bus, a.logger, ws.Config{
		Greeting: func() any {
			return hello{Running: c.engine.Running(), Connected: c.session.Connected(), Symbols: c.engine.Symbols()}
		},
		Metrics: c.deps.Metrics,
	})

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		StaticDir:   a.cfg.Server.StaticDir,
		APIKey:      a.cfg.Server.APIKey,
	}, server.Handlers{
		Health:  handler.NewHealthHandler(),
		History: handler.NewHistoryHandler(c.trades, c.journal, a.cfg.Server.TradesLimit, a.cfg.Server.LogsLimit, a.logger),
		Broker:  handler.NewBrokerHandler(c.session, a.logger),
		Bot:     handler.NewBotHandler(c.engine),
		Market:  handler.NewMarketHandler(c.engine, c.market, a.logger),
	}, hub, c.deps.Metrics, a.logger)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return hub.Run(ctx) })
	g.Go(func() error { return c.engine.Run(ctx) })
	g.Go(func() error { return c.session.RunPoll(ctx) })
	g.Go(srv.Start)
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if job := a.archiveJob(c.deps); job != nil && a.cfg.Archive.Enabled {
		g.Go(func() error { return job.RunEvery(ctx, a.cfg.Archive.Interval.Duration) })
	}

	return g.Wait()
}

// HeadlessMode runs the simulator immediately with no HTTP surface. Events
// still reach the bus, so Redis subscribers in other processes see them.
func (a *App) HeadlessMode(ctx context.Context, c *core) error {
	a.logger.InfoContext(ctx, "starting headless mode")

	g, ctx := errgroup.WithContext(ctx)
	c.engine.Start(ctx)
	g.Go(func() error { return c.engine.Run(ctx) })
	if job := a.archiveJob(c.deps); job != nil && a.cfg.Archive.Enabled {
		g.Go(func() error { return job.RunEvery(ctx, a.cfg.Archive.Interval.Duration) })
	}
	return g.Wait()
}

// ArchiveMode runs a single archive pass and returns.
func (a *App) ArchiveMode(ctx context.Context, deps *Dependencies) error {
	job := a.archiveJob(deps)
	if job == nil {
		return errors.New("app: archive mode requires s3 configuration")
	}
	if err := job.Run(ctx); err != nil {
		return fmt.Errorf("app: archive: %w", err)
	}
	return nil
}

func (a *App) archiveJob(deps *Dependencies) *pipeline.ArchiveJob {
	if deps.Archiver == nil {
		return nil
	}
	return pipeline.NewArchiveJob(deps.Archiver, a.cfg.Archive.RetentionDays, a.logger)
}
