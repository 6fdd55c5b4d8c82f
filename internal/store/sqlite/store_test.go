package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alanyoungcy/nexustrade/internal/domain"
)

func openTestClient(t *testing.T) *Client {
	t.Helper()
	ctx := context.Background()
	c, err := Open(ctx, filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	if err := c.RunMigrations(ctx); err != nil {
		t.Fatalf("RunMigrations: %v", err)
	}
	return c
}

func TestMigrationsAreIdempotent(t *testing.T) {
	c := openTestClient(t)
	if err := c.RunMigrations(context.Background()); err != nil {
		t.Fatalf("second RunMigrations: %v", err)
	}
}

func TestTradeStoreEmpty(t *testing.T) {
	store := NewTradeStore(openTestClient(t))
	trades, err := store.ListRecent(context.Background(), 50)
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	if trades == nil || len(trades) != 0 {
		t.Errorf("want empty non-nil slice, got %#v", trades)
	}
}

func TestTradeStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewTradeStore(openTestClient(t))

	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	for i := 0; i < 60; i++ {
		side := domain.SideBuy
		if i%2 == 1 {
			side = domain.SideSell
		}
		_, err := store.Insert(ctx, domain.Trade{
			Symbol:    "XAU/USD",
			Side:      side,
			Price:     2000 + float64(i),
			Amount:    10,
			Strategy:  "Momentum Breakout",
			Timestamp: base.Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			t.Fatalf("Insert %d: %v", i, err)
		}
	}

	recent, err := store.ListRecent(ctx, 50)
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	if len(recent) != 50 {
		t.Fatalf("len = %d, want 50", len(recent))
	}
	if recent[0].Price != 2059 {
		t.Errorf("newest price = %v, want 2059", recent[0].Price)
	}
	for i := 1; i < len(recent); i++ {
		if recent[i].Timestamp.After(recent[i-1].Timestamp) {
			t.Fatalf("not descending at %d", i)
		}
	}
	if !recent[0].Timestamp.Equal(base.Add(59 * time.Second)) {
		t.Errorf("timestamp = %v", recent[0].Timestamp)
	}

	n, err := store.Count(ctx)
	if err != nil || n != 60 {
		t.Errorf("Count = %d, %v; want 60", n, err)
	}

	all, err := store.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if len(all) != 60 || all[0].Side != domain.SideBuy {
		t.Errorf("ListAll = %d trades, first side %q", len(all), all[0].Side)
	}

	old, err := store.ListBefore(ctx, base.Add(10*time.Second))
	if err != nil {
		t.Fatalf("ListBefore: %v", err)
	}
	if len(old) != 10 {
		t.Errorf("ListBefore = %d, want 10", len(old))
	}
}

func TestLogStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewLogStore(openTestClient(t))

	levels := []domain.LogLevel{domain.LevelSystem, domain.LevelInfo, domain.LevelLearning}
	for i, lvl := range levels {
		_, err := store.Insert(ctx, domain.LogEntry{
			Level:     lvl,
			Message:   string(lvl) + " line",
			Timestamp: time.Date(2026, 1, 1, 0, 0, i, 0, time.UTC),
		})
		if err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}

	entries, err := store.ListRecent(ctx, 100)
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("len = %d, want 3", len(entries))
	}
	if entries[0].Level != domain.LevelLearning || entries[2].Level != domain.LevelSystem {
		t.Errorf("order = %v, %v", entries[0].Level, entries[2].Level)
	}
	if entries[0].ID == 0 {
		t.Error("id not populated")
	}
}

func TestColumnDefaultSharesStoreTimeLayout(t *testing.T) {
	ctx := context.Background()
	c := openTestClient(t)
	if _, err := c.DB().ExecContext(ctx, `INSERT INTO logs (level, message) VALUES ('INFO', 'defaulted')`); err != nil {
		t.Fatalf("insert with default timestamp: %v", err)
	}
	var raw string
	if err := c.DB().QueryRowContext(ctx, `SELECT timestamp FROM logs WHERE message = 'defaulted'`).Scan(&raw); err != nil {
		t.Fatal(err)
	}
	if len(raw) != len(timeLayout) {
		t.Fatalf("default timestamp %q has width %d, store writes %d", raw, len(raw), len(timeLayout))
	}
	ts, err := time.Parse(timeLayout, raw)
	if err != nil {
		t.Fatalf("parse %q: %v", raw, err)
	}

	store := NewLogStore(c)
	if _, err := store.Insert(ctx, domain.LogEntry{Level: domain.LevelInfo, Message: "stamped", Timestamp: ts.Add(time.Millisecond)}); err != nil {
		t.Fatal(err)
	}
	if got, err := store.ListBefore(ctx, ts); err != nil || len(got) != 0 {
		t.Fatalf("ListBefore(default ts) = %+v, %v; want none", got, err)
	}
	got, err := store.ListBefore(ctx, ts.Add(time.Millisecond))
	if err != nil || len(got) != 1 || got[0].Message != "defaulted" {
		t.Fatalf("ListBefore(+1ms) = %+v, %v", got, err)
	}
	recent, err := store.ListRecent(ctx, 10)
	if err != nil || len(recent) != 2 || recent[0].Message != "stamped" {
		t.Fatalf("ListRecent = %+v, %v", recent, err)
	}
}
