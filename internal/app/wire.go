package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	s3blob "github.com/alanyoungcy/nexustrade/internal/blob/s3"
	"github.com/alanyoungcy/nexustrade/internal/cache/memory"
	"github.com/alanyoungcy/nexustrade/internal/cache/redis"
	"github.com/alanyoungcy/nexustrade/internal/config"
	"github.com/alanyoungcy/nexustrade/internal/domain"
	"github.com/alanyoungcy/nexustrade/internal/metrics"
	"github.com/alanyoungcy/nexustrade/internal/notify"
	"github.com/alanyoungcy/nexustrade/internal/store/postgres"
	"github.com/alanyoungcy/nexustrade/internal/store/sqlite"
)

// busBuffer is the per-subscriber queue of the in-process bus.
const busBuffer = 1024

// Dependencies bundles the infrastructure the run modes build services on.
// It is constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	Trades   domain.TradeStore
	Logs     domain.LogStore
	Bus      domain.SignalBus
	Prices   domain.PriceCache
	Books    domain.OrderbookCache
	Archiver domain.Archiver // nil unless archiving is configured
	Notifier *notify.Notifier
	Metrics  *metrics.Metrics
}

// needsArchive reports whether object storage must be wired.
func needsArchive(cfg *config.Config) bool {
	return strings.EqualFold(cfg.Mode, "archive") || cfg.Archive.Enabled
}

// Wire constructs the concrete stores, caches, bus and integrations selected
// by cfg.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (*Dependencies, func(), error) {
		cleanup()
		return nil, nil, err
	}

	deps := &Dependencies{Metrics: metrics.New()}

	// --- Persistence ---
	switch strings.ToLower(cfg.Storage.Driver) {
	case "postgres":
		pg, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			return fail(fmt.Errorf("wire: postgres: %w", err))
		}
		closers = append(closers, pg.Close)
		if cfg.Postgres.RunMigrations {
			if err := pg.RunMigrations(ctx); err != nil {
				return fail(fmt.Errorf("wire: postgres migrations: %w", err))
			}
		}
		deps.Trades = postgres.NewTradeStore(pg.Pool())
		deps.Logs = postgres.NewLogStore(pg.Pool())
	default:
		db, err := sqlite.Open(ctx, cfg.Storage.SQLitePath)
		if err != nil {
			return fail(fmt.Errorf("wire: sqlite: %w", err))
		}
		closers = append(closers, func() { _ = db.Close() })
		if err := db.RunMigrations(ctx); err != nil {
			return fail(fmt.Errorf("wire: sqlite migrations: %w", err))
		}
		deps.Trades = sqlite.NewTradeStore(db)
		deps.Logs = sqlite.NewLogStore(db)
	}

	// --- Bus and caches ---
	if cfg.Redis.Enabled {
		rc, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			return fail(fmt.Errorf("wire: redis: %w", err))
		}
		closers = append(closers, func() { _ = rc.Close() })
		deps.Bus = redis.NewSignalBus(rc)
		deps.Prices = redis.NewPriceCache(rc)
		deps.Books = redis.NewOrderbookCache(rc)
	} else {
		deps.Bus = memory.NewSignalBus(busBuffer)
		deps.Prices = memory.NewPriceCache()
		deps.Books = memory.NewOrderbookCache()
	}

	// --- Cold storage ---
	if needsArchive(cfg) {
		client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			return fail(fmt.Errorf("wire: s3: %w", err))
		}
		if err := client.Health(ctx); err != nil {
			logger.Warn("wire: s3 bucket not reachable yet", slog.String("error", err.Error()))
		}
		writer := s3blob.NewWriter(client)
		deps.Archiver = s3blob.NewArchiver(writer, writer, deps.Trades, deps.Logs, logger)
	}

	// --- Notifications ---
	deps.Notifier = notify.New(notify.Config{
		TelegramToken:     cfg.Notify.TelegramToken,
		TelegramChatID:    cfg.Notify.TelegramChatID,
		DiscordWebhookURL: cfg.Notify.DiscordWebhookURL,
		Events:            cfg.Notify.Events,
	}, logger)

	return deps, cleanup, nil
}
