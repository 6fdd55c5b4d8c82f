package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/alanyoungcy/nexustrade/internal/domain"
)

func TestDSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  ClientConfig
		want string
	}{
		{
			name: "explicit dsn wins",
			cfg:  ClientConfig{DSN: "postgres://x", Host: "ignored"},
			want: "postgres://x",
		},
		{
			name: "defaults port and sslmode",
			cfg:  ClientConfig{Host: "db", Database: "nexus", User: "u", Password: "p"},
			want: "postgres://u:p@db:5432/nexus?sslmode=disable",
		},
		{
			name: "explicit fields",
			cfg:  ClientConfig{Host: "db", Port: 6543, Database: "nexus", User: "u", Password: "p", SSLMode: "require"},
			want: "postgres://u:p@db:6543/nexus?sslmode=require",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DSN(tt.cfg); got != tt.want {
				t.Fatalf("DSN = %q, want %q", got, tt.want)
			}
		})
	}
}

// TestStoresAgainstDatabase runs only when NEXUS_TEST_POSTGRES_DSN points at
// a disposable database.
func TestStoresAgainstDatabase(t *testing.T) {
	dsn := os.Getenv("NEXUS_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("NEXUS_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	c, err := New(ctx, ClientConfig{DSN: dsn})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()
	if err := c.RunMigrations(ctx); err != nil {
		t.Fatalf("RunMigrations: %v", err)
	}
	if err := c.RunMigrations(ctx); err != nil {
		t.Fatalf("second RunMigrations: %v", err)
	}
	if _, err := c.Pool().Exec(ctx, `TRUNCATE trades, logs RESTART IDENTITY`); err != nil {
		t.Fatalf("truncate: %v", err)
	}

	trades := NewTradeStore(c.Pool())
	old := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	if _, err := trades.Insert(ctx, domain.Trade{Symbol: "EUR/USD", Side: domain.SideBuy, Price: 1.08, Amount: 10000, Timestamp: old, Strategy: "Mean Reversion"}); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if _, err := trades.Insert(ctx, domain.Trade{Symbol: "US100", Side: domain.SideSell, Price: 17850, Amount: 1, Strategy: "Momentum Breakout"}); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	n, err := trades.Count(ctx)
	if err != nil || n != 2 {
		t.Fatalf("Count = %d, %v", n, err)
	}
	before, err := trades.ListBefore(ctx, old.Add(time.Hour))
	if err != nil || len(before) != 1 || before[0].Symbol != "EUR/USD" {
		t.Fatalf("ListBefore = %+v, %v", before, err)
	}

	logs := NewLogStore(c.Pool())
	if _, err := logs.Insert(ctx, domain.LogEntry{Level: domain.LevelSystem, Message: "Bot started"}); err != nil {
		t.Fatalf("log Insert: %v", err)
	}
	recent, err := logs.ListRecent(ctx, 10)
	if err != nil || len(recent) != 1 || recent[0].Message != "Bot started" {
		t.Fatalf("ListRecent = %+v, %v", recent, err)
	}
}
