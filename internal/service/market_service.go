package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/nexustrade/internal/domain"
)

// MarketService mirrors prices and books into the caches and publishes the
// price_update and order_book events.
type MarketService struct {
	prices domain.PriceCache
	books  domain.OrderbookCache
	pub    *Publisher
	logger *slog.Logger
}

// NewMarketService creates a MarketService.
func NewMarketService(prices domain.PriceCache, books domain.OrderbookCache, pub *Publisher, logger *slog.Logger) *MarketService {
	return &MarketService{
		prices: prices,
		books:  books,
		pub:    pub,
		logger: logger.With(slog.String("component", "market_service")),
	}
}

// PublishPrice caches and broadcasts one price update.
func (s *MarketService) PublishPrice(ctx context.Context, symbol string, price float64, ts time.Time) {
	if err := s.prices.SetPrice(ctx, symbol, price, ts); err != nil {
		s.logger.WarnContext(ctx, "market_service: cache price failed",
			slog.String("symbol", symbol),
			slog.String("error", err.Error()),
		)
	}
	s.pub.Publish(ctx, domain.EventPriceUpdate, domain.PriceUpdate{Symbol: symbol, Price: price})
}

// PublishBooks caches each snapshot and broadcasts them as one order_book
// event.
func (s *MarketService) PublishBooks(ctx context.Context, snaps []domain.OrderBookSnapshot) {
	for _, snap := range snaps {
		if err := s.books.SetSnapshot(ctx, snap); err != nil {
			s.logger.WarnContext(ctx, "market_service: cache book failed",
				slog.String("symbol", snap.Symbol),
				slog.String("error", err.Error()),
			)
		}
	}
	s.pub.Publish(ctx, domain.EventOrderBook, snaps)
}

// Prices returns the cached price of each symbol in the given order. Symbols
// not priced yet are left out.
func (s *MarketService) Prices(ctx context.Context, symbols []string) ([]domain.PriceUpdate, error) {
	cached, err := s.prices.GetPrices(ctx, symbols)
	if err != nil {
		return nil, fmt.Errorf("market_service: prices: %w", err)
	}
	out := make([]domain.PriceUpdate, 0, len(cached))
	for _, sym := range symbols {
		if p, ok := cached[sym]; ok {
			out = append(out, domain.PriceUpdate{Symbol: sym, Price: p})
		}
	}
	return out, nil
}

// Book returns the latest cached book for symbol.
func (s *MarketService) Book(ctx context.Context, symbol string) (domain.OrderBookSnapshot, error) {
	snap, err := s.books.GetSnapshot(ctx, symbol)
	if err != nil {
		return domain.OrderBookSnapshot{}, fmt.Errorf("market_service: book %s: %w", symbol, err)
	}
	return snap, nil
}
