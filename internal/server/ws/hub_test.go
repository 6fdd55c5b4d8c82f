package ws

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alanyoungcy/nexustrade/internal/cache/memory"
	"github.com/alanyoungcy/nexustrade/internal/domain"
	"github.com/gorilla/websocket"
)

func startHub(t *testing.T) (*Hub, *memory.SignalBus, string) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	bus := memory.NewSignalBus(64)
	hub := NewHub(bus, slog.New(slog.NewTextHandler(io.Discard, nil)), Config{
		Greeting: func() any { return map[string]any{"running": true, "symbols": []string{"X"}} },
	})
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	t.Cleanup(srv.Close)
	return hub, bus, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	var conn *websocket.Conn
	var err error
	deadline := time.Now().Add(2 * time.Second)
	for {
		conn, _, err = websocket.DefaultDialer.Dial(url, nil)
		if err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("dial: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) domain.Event {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	kind, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if kind != websocket.TextMessage {
		t.Fatalf("frame kind = %d, want text", kind)
	}
	var ev domain.Event
	if err := json.Unmarshal(data, &ev); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return ev
}

func waitClients(t *testing.T, h *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for h.ClientCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("clients = %d, want %d", h.ClientCount(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func publish(t *testing.T, bus *memory.SignalBus, eventType string, payload any) {
	t.Helper()
	data, err := domain.EncodeEvent(eventType, payload)
	if err != nil {
		t.Fatal(err)
	}
	if err := bus.Publish(context.Background(), domain.EventsChannel, data); err != nil {
		t.Fatal(err)
	}
}

func TestHelloThenEventsInOrder(t *testing.T) {
	hub, bus, url := startHub(t)
	conn := dial(t, url)

	hello := readEvent(t, conn)
	if hello.Type != domain.EventHello || !strings.Contains(string(hello.Payload), `"running":true`) {
		t.Fatalf("hello = %+v", hello)
	}
	waitClients(t, hub, 1)

	publish(t, bus, domain.EventTrade, map[string]any{"symbol": "X", "amount": 7})
	publish(t, bus, domain.EventLog, map[string]any{"level": "INFO", "message": "Executed BUY 7 X"})

	if ev := readEvent(t, conn); ev.Type != domain.EventTrade {
		t.Fatalf("first event = %s, want trade", ev.Type)
	}
	if ev := readEvent(t, conn); ev.Type != domain.EventLog {
		t.Fatalf("second event = %s, want log", ev.Type)
	}
}

func TestUnsubscribeFiltersType(t *testing.T) {
	hub, bus, url := startHub(t)
	conn := dial(t, url)
	readEvent(t, conn)
	waitClients(t, hub, 1)

	if err := conn.WriteJSON(map[string]any{"action": "unsubscribe", "channels": []string{domain.EventOrderBook}}); err != nil {
		t.Fatal(err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for {
		hub.mu.RLock()
		var subscribed bool
		for c := range hub.clients {
			subscribed = c.isSubscribed(domain.EventOrderBook)
		}
		hub.mu.RUnlock()
		if !subscribed {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("unsubscribe not applied")
		}
		time.Sleep(5 * time.Millisecond)
	}

	publish(t, bus, domain.EventOrderBook, []any{})
	publish(t, bus, domain.EventPriceUpdate, map[string]any{"symbol": "X", "price": 1.0})
	if ev := readEvent(t, conn); ev.Type != domain.EventPriceUpdate {
		t.Fatalf("event = %s, want price_update", ev.Type)
	}
}

func TestDisconnectUnregisters(t *testing.T) {
	hub, _, url := startHub(t)
	conn := dial(t, url)
	readEvent(t, conn)
	waitClients(t, hub, 1)

	conn.Close()
	waitClients(t, hub, 0)
}
