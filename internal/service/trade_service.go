package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/alanyoungcy/nexustrade/internal/domain"
	"github.com/alanyoungcy/nexustrade/internal/metrics"
)

// notifyTimeout bounds a single out-of-band notification.
const notifyTimeout = 15 * time.Second

// Notifier delivers operator notifications. *notify.Notifier satisfies it.
type Notifier interface {
	Notify(ctx context.Context, event, title, message string) error
}

// tradePayload is the wire shape of a trade event.
type tradePayload struct {
	Symbol    string      `json:"symbol"`
	Type      domain.Side `json:"type"`
	Price     float64     `json:"price"`
	Amount    float64     `json:"amount"`
	Strategy  string      `json:"strategy"`
	Timestamp time.Time   `json:"timestamp"`
}

// TradeService executes synthetic trades and answers history queries.
type TradeService struct {
	trades   domain.TradeStore
	pub      *Publisher
	journal  *LogService
	notifier Notifier
	metrics  *metrics.Metrics
	logger   *slog.Logger
	now      func() time.Time
}

// NewTradeService creates a TradeService. notifier may be nil.
func NewTradeService(
	trades domain.TradeStore,
	pub *Publisher,
	journal *LogService,
	notifier Notifier,
	m *metrics.Metrics,
	logger *slog.Logger,
) *TradeService {
	return &TradeService{
		trades:   trades,
		pub:      pub,
		journal:  journal,
		notifier: notifier,
		metrics:  m,
		logger:   logger.With(slog.String("component", "trade_service")),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Execute records a trade: persist, publish the trade event, then log an INFO
// summary (with detail appended when non-empty). There is no rollback; a
// failed write is logged and the broadcast still happens.
func (s *TradeService) Execute(ctx context.Context, t domain.Trade, detail string) domain.Trade {
	if t.Timestamp.IsZero() {
		t.Timestamp = s.now()
	}

	id, err := s.trades.Insert(ctx, t)
	if err != nil {
		s.metrics.PersistFailure("trades")
		s.logger.WarnContext(ctx, "trade_service: persist failed",
			slog.String("symbol", t.Symbol),
			slog.String("error", err.Error()),
		)
	} else {
		t.ID = id
	}

	s.pub.Publish(ctx, domain.EventTrade, tradePayload{
		Symbol:    t.Symbol,
		Type:      t.Side,
		Price:     t.Price,
		Amount:    t.Amount,
		Strategy:  t.Strategy,
		Timestamp: t.Timestamp,
	})
	s.metrics.Trade(t.Symbol, string(t.Side))

	summary := Summary(t)
	if detail != "" {
		summary += " | " + detail
	}
	s.journal.Log(ctx, domain.LevelInfo, summary)

	s.notify(t, summary)
	return t
}

// Summary is the one-line description logged for an executed trade.
func Summary(t domain.Trade) string {
	return fmt.Sprintf("Executed %s %s %s @ %s (%s)",
		t.Side, strconv.FormatFloat(t.Amount, 'f', -1, 64), t.Symbol, domain.FormatPrice(t.Price), t.Strategy)
}

func (s *TradeService) notify(t domain.Trade, summary string) {
	if s.notifier == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := s.notifier.Notify(ctx, "trade", t.Symbol+" "+string(t.Side), summary); err != nil {
			s.logger.Warn("trade_service: notify failed", slog.String("error", err.Error()))
		}
	}()
}

// Recent returns up to limit trades, newest first.
func (s *TradeService) Recent(ctx context.Context, limit int) ([]domain.Trade, error) {
	trades, err := s.trades.ListRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("trade_service: list recent: %w", err)
	}
	return trades, nil
}

// Stats aggregates the full persisted history.
func (s *TradeService) Stats(ctx context.Context) (domain.TradeStats, error) {
	trades, err := s.trades.ListAll(ctx)
	if err != nil {
		return domain.TradeStats{}, fmt.Errorf("trade_service: stats: %w", err)
	}
	return domain.ComputeStats(trades), nil
}
