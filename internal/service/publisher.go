// Package service holds the write paths shared by the simulator, the broker
// handshake and the HTTP handlers: every dashboard event is persisted (when it
// has a table) and then published on the bus, each step failing on its own.
package service

import (
	"context"
	"log/slog"

	"github.com/alanyoungcy/nexustrade/internal/domain"
	"github.com/alanyoungcy/nexustrade/internal/metrics"
)

// Publisher wraps payloads in the event envelope and writes them to the
// single events channel. Failures are logged and counted, never returned.
type Publisher struct {
	bus     domain.SignalBus
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewPublisher creates a Publisher.
func NewPublisher(bus domain.SignalBus, m *metrics.Metrics, logger *slog.Logger) *Publisher {
	return &Publisher{
		bus:     bus,
		metrics: m,
		logger:  logger.With(slog.String("component", "publisher")),
	}
}

// Publish sends one event of the given type.
func (p *Publisher) Publish(ctx context.Context, eventType string, payload any) {
	data, err := domain.EncodeEvent(eventType, payload)
	if err != nil {
		p.metrics.PublishFailure()
		p.logger.ErrorContext(ctx, "publisher: encode event failed",
			slog.String("type", eventType),
			slog.String("error", err.Error()),
		)
		return
	}
	if err := p.bus.Publish(ctx, domain.EventsChannel, data); err != nil {
		p.metrics.PublishFailure()
		p.logger.WarnContext(ctx, "publisher: publish event failed",
			slog.String("type", eventType),
			slog.String("error", err.Error()),
		)
	}
}
