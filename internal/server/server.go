// Package server exposes the dashboard HTTP API, the WebSocket event stream
// and the Prometheus endpoint.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/nexustrade/internal/metrics"
	"github.com/alanyoungcy/nexustrade/internal/server/handler"
	"github.com/alanyoungcy/nexustrade/internal/server/middleware"
	"github.com/alanyoungcy/nexustrade/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	StaticDir   string // served at / when set
	APIKey      string // if empty, control endpoints are open
}

// Handlers aggregates all HTTP handlers that the server registers.
type Handlers struct {
	Health  *handler.HealthHandler
	History *handler.HistoryHandler
	Broker  *handler.BrokerHandler
	Bot     *handler.BotHandler
	Market  *handler.MarketHandler
}

// Server is the dashboard HTTP + WebSocket server.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer registers every route and wraps the mux in the middleware chain.
func NewServer(cfg Config, handlers Handlers, hub *ws.Hub, m *metrics.Metrics, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      Routes(cfg, handlers, hub, m, logger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return &Server{httpServer: srv, logger: logger}
}

// Routes builds the complete handler tree. It is exported for tests.
func Routes(cfg Config, handlers Handlers, hub *ws.Hub, m *metrics.Metrics, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	mux.HandleFunc("GET /api/trades", handlers.History.ListTrades)
	mux.HandleFunc("GET /api/logs", handlers.History.ListLogs)
	mux.HandleFunc("GET /api/stats", handlers.History.Stats)

	mux.HandleFunc("POST /api/mt5/login", handlers.Broker.Login)
	mux.HandleFunc("GET /api/mt5/status", handlers.Broker.Status)
	mux.HandleFunc("POST /api/mt5/logout", handlers.Broker.Logout)

	mux.HandleFunc("POST /api/bot/toggle", handlers.Bot.Toggle)
	mux.HandleFunc("GET /api/bot/status", handlers.Bot.Status)

	mux.HandleFunc("GET /api/prices", handlers.Market.ListPrices)
	mux.HandleFunc("GET /api/orderbook/{symbol...}", handlers.Market.GetOrderBook)

	if hub != nil {
		mux.HandleFunc("GET /ws", hub.HandleWS)
	}
	if m != nil {
		mux.Handle("GET /metrics", m.Handler())
	}
	if cfg.StaticDir != "" {
		mux.Handle("GET /", http.FileServer(http.Dir(cfg.StaticDir)))
	}

	var h http.Handler = mux
	h = middleware.ControlAuth(cfg.APIKey)(h)
	h = middleware.Metrics(m)(h)
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)
	return h
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting", slog.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
