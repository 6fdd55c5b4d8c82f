package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/alanyoungcy/nexustrade/internal/domain"
)

// SymbolSource lists the simulated symbols.
type SymbolSource interface {
	Symbols() []string
}

// MarketReader reads the price and book caches.
type MarketReader interface {
	Prices(ctx context.Context, symbols []string) ([]domain.PriceUpdate, error)
	Book(ctx context.Context, symbol string) (domain.OrderBookSnapshot, error)
}

// MarketHandler serves price and order book snapshots.
type MarketHandler struct {
	symbols SymbolSource
	market  MarketReader
	logger  *slog.Logger
}

// NewMarketHandler creates a MarketHandler.
func NewMarketHandler(symbols SymbolSource, market MarketReader, logger *slog.Logger) *MarketHandler {
	return &MarketHandler{symbols: symbols, market: market, logger: logHandler(logger, "market")}
}

// ListPrices returns the last cached price of every symbol. With Redis
// enabled this is the price shared by every process.
// GET /api/prices
func (h *MarketHandler) ListPrices(w http.ResponseWriter, r *http.Request) {
	prices, err := h.market.Prices(r.Context(), h.symbols.Symbols())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list prices failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list prices")
		return
	}
	writeJSON(w, http.StatusOK, prices)
}

// GetOrderBook returns the latest book for a symbol. Symbols containing a
// slash may be passed with a dash instead, e.g. GBP-USD.
// GET /api/orderbook/{symbol}
func (h *MarketHandler) GetOrderBook(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ReplaceAll(r.PathValue("symbol"), "-", "/")
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "missing symbol")
		return
	}

	snap, err := h.market.Book(r.Context(), symbol)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "order book not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: get order book failed",
			slog.String("symbol", symbol),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get order book")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}
