package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	if got := cfg.Simulation.TickInterval.Duration; got != 2*time.Second {
		t.Errorf("tick interval = %v, want 2s", got)
	}
	if got := cfg.Broker.LogCapacity; got != 100 {
		t.Errorf("log capacity = %d, want 100", got)
	}
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, "nexus.toml", `
mode = "headless"

[simulation]
tick_interval = "250ms"
trade_threshold = 0.5

[[simulation.instruments]]
symbol = "X"
price = 10.0
volatility = 0.01
amount = 3

[broker]
fail_secret = "nope"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Mode != "headless" {
		t.Errorf("mode = %q, want headless", cfg.Mode)
	}
	if cfg.Simulation.TickInterval.Duration != 250*time.Millisecond {
		t.Errorf("tick interval = %v", cfg.Simulation.TickInterval.Duration)
	}
	if len(cfg.Simulation.Instruments) != 1 || cfg.Simulation.Instruments[0].Symbol != "X" {
		t.Errorf("instruments = %+v, want single X", cfg.Simulation.Instruments)
	}
	if cfg.Broker.FailSecret != "nope" {
		t.Errorf("fail secret = %q", cfg.Broker.FailSecret)
	}
	// Untouched sections keep their defaults.
	if cfg.Broker.LoginDelay.Duration != 1500*time.Millisecond {
		t.Errorf("login delay = %v, want default 1.5s", cfg.Broker.LoginDelay.Duration)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "nexus.yaml", `
log_level: debug
simulation:
  step_delay: 10ms
  strategies: ["Momentum Breakout"]
storage:
  driver: sqlite
  sqlite_path: /tmp/nexus-test.db
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("log level = %q", cfg.LogLevel)
	}
	if cfg.Simulation.StepDelay.Duration != 10*time.Millisecond {
		t.Errorf("step delay = %v", cfg.Simulation.StepDelay.Duration)
	}
	if len(cfg.Simulation.Strategies) != 1 {
		t.Errorf("strategies = %v", cfg.Simulation.Strategies)
	}
	if cfg.Storage.SQLitePath != "/tmp/nexus-test.db" {
		t.Errorf("sqlite path = %q", cfg.Storage.SQLitePath)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeFile(t, "nexus.toml", `
[server]
port = 4000
`)
	t.Setenv("NEXUS_SERVER_PORT", "5050")
	t.Setenv("NEXUS_SIMULATION_SEED", "42")
	t.Setenv("NEXUS_SERVER_CORS_ORIGINS", "http://a, http://b")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 5050 {
		t.Errorf("port = %d, want env value 5050", cfg.Server.Port)
	}
	if cfg.Simulation.Seed != 42 {
		t.Errorf("seed = %d, want 42", cfg.Simulation.Seed)
	}
	if len(cfg.Server.CORSOrigins) != 2 || cfg.Server.CORSOrigins[1] != "http://b" {
		t.Errorf("cors origins = %v", cfg.Server.CORSOrigins)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"mode", func(c *Config) { c.Mode = "turbo" }, "unknown mode"},
		{"threshold", func(c *Config) { c.Simulation.TradeThreshold = 1.5 }, "trade_threshold"},
		{"no instruments", func(c *Config) { c.Simulation.Instruments = nil }, "at least one instrument"},
		{"negative price", func(c *Config) { c.Simulation.Instruments[0].Price = -1 }, "price must be > 0"},
		{"duplicate symbol", func(c *Config) {
			c.Simulation.Instruments = append(c.Simulation.Instruments, c.Simulation.Instruments[0])
		}, "duplicate symbol"},
		{"driver", func(c *Config) { c.Storage.Driver = "mongo" }, "unknown driver"},
		{"log capacity", func(c *Config) { c.Broker.LogCapacity = 0 }, "log_capacity"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestRedactedConfig(t *testing.T) {
	cfg := Defaults()
	cfg.Postgres.Password = "hunter2"
	cfg.Notify.TelegramToken = "token"

	out := RedactedConfig(&cfg)
	if out.Postgres.Password != "***" || out.Notify.TelegramToken != "***" {
		t.Errorf("secrets not redacted: %+v %+v", out.Postgres, out.Notify)
	}
	if out.Redis.Password != "" {
		t.Errorf("empty secret should stay empty, got %q", out.Redis.Password)
	}
	out.Simulation.Instruments[0].Symbol = "CHANGED"
	if cfg.Simulation.Instruments[0].Symbol == "CHANGED" {
		t.Error("redacted copy shares instrument slice with original")
	}
	if cfg.Postgres.Password != "hunter2" {
		t.Error("original config was mutated")
	}
}

func TestExampleFileMatchesDefaults(t *testing.T) {
	cfg := Defaults()
	if err := decodeFile(filepath.Join("..", "..", "config.example.toml"), &cfg); err != nil {
		t.Fatalf("decode example: %v", err)
	}
	if want := Defaults(); !reflect.DeepEqual(cfg, want) {
		t.Fatalf("config.example.toml drifted from Defaults:\n got %+v\nwant %+v", cfg, want)
	}
}
