package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/nexustrade/internal/domain"
)

// TradeReader is the read side of the trade service.
type TradeReader interface {
	Recent(ctx context.Context, limit int) ([]domain.Trade, error)
	Stats(ctx context.Context) (domain.TradeStats, error)
}

// LogReader is the read side of the log service.
type LogReader interface {
	Recent(ctx context.Context, limit int) ([]domain.LogEntry, error)
}

// HistoryHandler serves persisted trades, log lines and the PnL aggregate.
type HistoryHandler struct {
	trades      TradeReader
	logs        LogReader
	tradesLimit int
	logsLimit   int
	logger      *slog.Logger
}

// NewHistoryHandler creates a HistoryHandler. Non-positive limits fall back
// to 50 trades and 100 log lines.
func NewHistoryHandler(trades TradeReader, logs LogReader, tradesLimit, logsLimit int, logger *slog.Logger) *HistoryHandler {
	if tradesLimit <= 0 {
		tradesLimit = 50
	}
	if logsLimit <= 0 {
		logsLimit = 100
	}
	return &HistoryHandler{
		trades:      trades,
		logs:        logs,
		tradesLimit: tradesLimit,
		logsLimit:   logsLimit,
		logger:      logHandler(logger, "history"),
	}
}

// ListTrades returns the most recent trades, newest first.
// GET /api/trades
func (h *HistoryHandler) ListTrades(w http.ResponseWriter, r *http.Request) {
	trades, err := h.trades.Recent(r.Context(), parseLimit(r, h.tradesLimit, h.tradesLimit))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list trades failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list trades")
		return
	}
	if trades == nil {
		trades = []domain.Trade{}
	}
	writeJSON(w, http.StatusOK, trades)
}

// ListLogs returns the most recent dashboard log lines, newest first.
// GET /api/logs
func (h *HistoryHandler) ListLogs(w http.ResponseWriter, r *http.Request) {
	logs, err := h.logs.Recent(r.Context(), parseLimit(r, h.logsLimit, h.logsLimit))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list logs failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list logs")
		return
	}
	if logs == nil {
		logs = []domain.LogEntry{}
	}
	writeJSON(w, http.StatusOK, logs)
}

// Stats returns the trade count and net PnL over all trades.
// GET /api/stats
func (h *HistoryHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.trades.Stats(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: stats failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to compute stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
