package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alanyoungcy/nexustrade/internal/broker"
	"github.com/alanyoungcy/nexustrade/internal/cache/memory"
	"github.com/alanyoungcy/nexustrade/internal/domain"
	"github.com/alanyoungcy/nexustrade/internal/metrics"
	"github.com/alanyoungcy/nexustrade/internal/server/handler"
	"github.com/alanyoungcy/nexustrade/internal/server/ws"
	"github.com/alanyoungcy/nexustrade/internal/service"
	"github.com/alanyoungcy/nexustrade/internal/simulator"
	"github.com/alanyoungcy/nexustrade/internal/store/sqlite"
	"github.com/gorilla/websocket"
)

type testEnv struct {
	srv     *httptest.Server
	trades  *service.TradeService
	engine  *simulator.Engine
	session *broker.Session
}

func newEnv(t *testing.T, apiKey string) *testEnv {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	client, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	if err := client.RunMigrations(ctx); err != nil {
		t.Fatalf("RunMigrations: %v", err)
	}

	m := metrics.New()
	bus := memory.NewSignalBus(256)
	pub := service.NewPublisher(bus, m, logger)
	journal := service.NewLogService(sqlite.NewLogStore(client), pub, m, logger)
	trades := service.NewTradeService(sqlite.NewTradeStore(client), pub, journal, nil, m, logger)
	market := service.NewMarketService(memory.NewPriceCache(), memory.NewOrderbookCache(), pub, logger)

	simCfg := simulator.DefaultConfig()
	simCfg.TickInterval = time.Hour
	engine, err := simulator.New(simCfg, simulator.NewRand(7), journal, trades, market, m, logger)
	if err != nil {
		t.Fatalf("simulator.New: %v", err)
	}
	t.Cleanup(engine.Close)

	session := broker.NewSession(broker.Config{
		LoginDelay:   5 * time.Millisecond,
		FailSecret:   "wrong_password",
		ErrorCode:    -6,
		ErrorMessage: "Terminal: Authorization failed",
		Balance:      10000,
		Equity:       10000,
		Currency:     "USD",
		LogCapacity:  100,
	}, pub, nil, m, logger)

	hub := ws.NewHub(bus, logger, ws.Config{
		Greeting: func() any { return map[string]any{"running": engine.Running(), "symbols": engine.Symbols()} },
		Metrics:  m,
	})
	go hub.Run(ctx)

	h := Routes(Config{APIKey: apiKey}, Handlers{
		Health:  handler.NewHealthHandler(),
		History: handler.NewHistoryHandler(trades, journal, 50, 100, logger),
		Broker:  handler.NewBrokerHandler(session, logger),
		Bot:     handler.NewBotHandler(engine),
		Market:  handler.NewMarketHandler(engine, market, logger),
	}, hub, m, logger)

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return &testEnv{srv: srv, trades: trades, engine: engine, session: session}
}

func (e *testEnv) do(t *testing.T, method, path, body string) (int, string) {
	t.Helper()
	req, err := http.NewRequest(method, e.srv.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(data)
}

func TestEmptyHistory(t *testing.T) {
	env := newEnv(t, "")

	code, body := env.do(t, http.MethodGet, "/api/trades", "")
	if code != http.StatusOK || strings.TrimSpace(body) != "[]" {
		t.Fatalf("trades = %d %s", code, body)
	}
	code, body = env.do(t, http.MethodGet, "/api/stats", "")
	if code != http.StatusOK || !strings.Contains(body, `"total_trades":0`) || !strings.Contains(body, `"net_pnl":0`) {
		t.Fatalf("stats = %d %s", code, body)
	}
}

func TestTradesAndStats(t *testing.T) {
	env := newEnv(t, "")
	ctx := context.Background()
	env.trades.Execute(ctx, domain.Trade{Symbol: "XAU/USD", Side: domain.SideBuy, Price: 2000, Amount: 10, Strategy: "Mean Reversion"}, "")
	env.trades.Execute(ctx, domain.Trade{Symbol: "XAU/USD", Side: domain.SideSell, Price: 2010, Amount: 10, Strategy: "Mean Reversion"}, "")

	code, body := env.do(t, http.MethodGet, "/api/trades", "")
	if code != http.StatusOK {
		t.Fatalf("trades status = %d", code)
	}
	var trades []domain.Trade
	if err := json.Unmarshal([]byte(body), &trades); err != nil {
		t.Fatal(err)
	}
	if len(trades) != 2 || trades[0].Side != domain.SideSell {
		t.Fatalf("trades = %+v, want newest (SELL) first", trades)
	}

	var stats domain.TradeStats
	_, body = env.do(t, http.MethodGet, "/api/stats", "")
	if err := json.Unmarshal([]byte(body), &stats); err != nil {
		t.Fatal(err)
	}
	if stats.TotalTrades != 2 || stats.NetPnL != 100 {
		t.Fatalf("stats = %+v", stats)
	}

	_, body = env.do(t, http.MethodGet, "/api/logs", "")
	if !strings.Contains(body, "Executed SELL 10 XAU/USD @ 2010.00") {
		t.Fatalf("logs = %s", body)
	}
}

func TestLoginFlow(t *testing.T) {
	env := newEnv(t, "")

	cases := []struct {
		name string
		body string
		code int
		want string
	}{
		{"malformed", `{`, http.StatusBadRequest, `"status":"error"`},
		{"missing fields", `{"login":"1"}`, http.StatusBadRequest, `"status":"error"`},
		{"sentinel", `{"login":"1","password":"wrong_password","server":"Demo"}`, http.StatusUnauthorized, `"message":"Error -6: Terminal: Authorization failed"`},
		{"success", `{"login":"1","password":"pw","server":"Demo"}`, http.StatusOK, `"message":"Logged in successfully"`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code, body := env.do(t, http.MethodPost, "/api/mt5/login", tc.body)
			if code != tc.code || !strings.Contains(body, tc.want) {
				t.Fatalf("got %d %s, want %d containing %s", code, body, tc.code, tc.want)
			}
		})
	}

	_, body := env.do(t, http.MethodGet, "/api/mt5/status", "")
	var snap domain.SessionSnapshot
	if err := json.Unmarshal([]byte(body), &snap); err != nil {
		t.Fatal(err)
	}
	if !snap.Connected || snap.Account == nil || snap.Account.Balance != 10000 {
		t.Fatalf("status = %+v", snap)
	}

	env.do(t, http.MethodPost, "/api/mt5/logout", "")
	_, body = env.do(t, http.MethodGet, "/api/mt5/status", "")
	if !strings.Contains(body, `"connected":false`) {
		t.Fatalf("status after logout = %s", body)
	}
}

func TestLoginCompletesAfterClientDisconnects(t *testing.T) {
	env := newEnv(t, "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/api/mt5/login",
		strings.NewReader(`{"login":"5001","password":"pw","server":"Demo-1"}`)).WithContext(ctx)
	rec := httptest.NewRecorder()
	env.srv.Config.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("login with a gone client = %d %s", rec.Code, rec.Body)
	}
	st := env.session.Status()
	if st.State != domain.SessionConnected || st.Account == nil {
		t.Fatalf("status = %+v", st)
	}
	var found bool
	for _, l := range st.Logs {
		found = found || strings.HasSuffix(l, "] Successfully connected to MetaTrader 5")
	}
	if !found {
		t.Fatalf("logs = %q", st.Logs)
	}
}

func TestBotToggle(t *testing.T) {
	env := newEnv(t, "")

	if _, body := env.do(t, http.MethodPost, "/api/bot/toggle", ""); !strings.Contains(body, `"running":true`) {
		t.Fatalf("first toggle = %s", body)
	}
	if _, body := env.do(t, http.MethodGet, "/api/bot/status", ""); !strings.Contains(body, `"running":true`) {
		t.Fatalf("status = %s", body)
	}
	if _, body := env.do(t, http.MethodPost, "/api/bot/toggle", ""); !strings.Contains(body, `"running":false`) {
		t.Fatalf("second toggle = %s", body)
	}
	_, body := env.do(t, http.MethodGet, "/api/logs", "")
	if strings.Count(body, `"level":"SYSTEM"`) != 2 {
		t.Fatalf("logs = %s", body)
	}
}

func TestMarketEndpoints(t *testing.T) {
	env := newEnv(t, "")

	if code, _ := env.do(t, http.MethodGet, "/api/orderbook/GBP/USD", ""); code != http.StatusNotFound {
		t.Fatalf("book before first tick = %d, want 404", code)
	}
	if _, body := env.do(t, http.MethodGet, "/api/prices", ""); strings.TrimSpace(body) != "[]" {
		t.Fatalf("prices before first tick = %s, want []", body)
	}
	env.engine.Tick(context.Background())

	code, body := env.do(t, http.MethodGet, "/api/orderbook/GBP/USD", "")
	if code != http.StatusOK {
		t.Fatalf("book = %d %s", code, body)
	}
	var snap domain.OrderBookSnapshot
	if err := json.Unmarshal([]byte(body), &snap); err != nil {
		t.Fatal(err)
	}
	if snap.Symbol != "GBP/USD" || len(snap.Bids) != 5 || len(snap.Asks) != 5 {
		t.Fatalf("book = %+v", snap)
	}
	if code, _ := env.do(t, http.MethodGet, "/api/orderbook/GBP-USD", ""); code != http.StatusOK {
		t.Fatalf("dashed symbol = %d", code)
	}

	_, body = env.do(t, http.MethodGet, "/api/prices", "")
	var prices []domain.PriceUpdate
	if err := json.Unmarshal([]byte(body), &prices); err != nil {
		t.Fatal(err)
	}
	if len(prices) != 4 || prices[0].Symbol != "GBP/USD" || prices[3].Symbol != "US100" || prices[3].Price <= 0 {
		t.Fatalf("prices = %s", body)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	env := newEnv(t, "")
	if code, body := env.do(t, http.MethodGet, "/api/health", ""); code != http.StatusOK || !strings.Contains(body, `"status":"ok"`) {
		t.Fatalf("health = %d %s", code, body)
	}
	if code, body := env.do(t, http.MethodGet, "/metrics", ""); code != http.StatusOK || !strings.Contains(body, "nexustrade_") {
		t.Fatalf("metrics = %d", code)
	}
}

func TestControlAuth(t *testing.T) {
	env := newEnv(t, "s3cret")

	if code, _ := env.do(t, http.MethodPost, "/api/bot/toggle", ""); code != http.StatusUnauthorized {
		t.Fatalf("toggle without key = %d", code)
	}
	if code, _ := env.do(t, http.MethodGet, "/api/bot/status", ""); code != http.StatusOK {
		t.Fatalf("read without key = %d", code)
	}

	req, _ := http.NewRequest(http.MethodPost, env.srv.URL+"/api/bot/toggle", nil)
	req.Header.Set("X-API-Key", "s3cret")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("toggle with key = %d", resp.StatusCode)
	}
}

func TestWebSocketReceivesTradeThenLog(t *testing.T) {
	env := newEnv(t, "")

	url := "ws" + strings.TrimPrefix(env.srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	read := func() domain.Event {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var ev domain.Event
		if err := conn.ReadJSON(&ev); err != nil {
			t.Fatalf("read: %v", err)
		}
		return ev
	}
	if ev := read(); ev.Type != domain.EventHello || !strings.Contains(string(ev.Payload), "GBP/USD") {
		t.Fatalf("hello = %+v", ev)
	}

	// The hello frame is only written after the hub registered the client.
	env.trades.Execute(context.Background(), domain.Trade{Symbol: "EUR/USD", Side: domain.SideBuy, Price: 1.08, Amount: 10000, Strategy: "Momentum Breakout"}, "")
	if ev := read(); ev.Type != domain.EventTrade {
		t.Fatalf("first event = %s, want trade", ev.Type)
	}
	if ev := read(); ev.Type != domain.EventLog {
		t.Fatalf("second event = %s, want log", ev.Type)
	}
}
