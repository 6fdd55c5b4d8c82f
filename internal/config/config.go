// Package config defines the top-level configuration for the simulated
// trading dashboard and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure. Fields are populated from a TOML
// or YAML file and then optionally overridden by NEXUS_* environment variables.
type Config struct {
	Simulation SimulationConfig `toml:"simulation" yaml:"simulation"`
	Broker     BrokerConfig     `toml:"broker" yaml:"broker"`
	Storage    StorageConfig    `toml:"storage" yaml:"storage"`
	Postgres   PostgresConfig   `toml:"postgres" yaml:"postgres"`
	Redis      RedisConfig      `toml:"redis" yaml:"redis"`
	S3         S3Config         `toml:"s3" yaml:"s3"`
	Archive    ArchiveConfig    `toml:"archive" yaml:"archive"`
	Server     ServerConfig     `toml:"server" yaml:"server"`
	Notify     NotifyConfig     `toml:"notify" yaml:"notify"`
	Mode       string           `toml:"mode" yaml:"mode"`
	LogLevel   string           `toml:"log_level" yaml:"log_level"`
}

// InstrumentConfig describes one simulated symbol.
type InstrumentConfig struct {
	Symbol     string  `toml:"symbol" yaml:"symbol"`
	Price      float64 `toml:"price" yaml:"price"`
	Volatility float64 `toml:"volatility" yaml:"volatility"`
	Amount     float64 `toml:"amount" yaml:"amount"`
}

// RiskTierConfig maps a minimum narrative quality score to a risk percentage.
type RiskTierConfig struct {
	MinQuality float64 `toml:"min_quality" yaml:"min_quality"`
	RiskPct    float64 `toml:"risk_pct" yaml:"risk_pct"`
}

// SimulationConfig holds the tick loop and narrative parameters.
type SimulationConfig struct {
	TickInterval          duration           `toml:"tick_interval" yaml:"tick_interval"`
	TradeThreshold        float64            `toml:"trade_threshold" yaml:"trade_threshold"`
	StepDelay             duration           `toml:"step_delay" yaml:"step_delay"`
	OutcomeDelay          duration           `toml:"outcome_delay" yaml:"outcome_delay"`
	WinProbability        float64            `toml:"win_probability" yaml:"win_probability"`
	ConfluenceProbability float64            `toml:"confluence_probability" yaml:"confluence_probability"`
	MinQuality            float64            `toml:"min_quality" yaml:"min_quality"`
	ConfluenceBonus       float64            `toml:"confluence_bonus" yaml:"confluence_bonus"`
	Seed                  uint64             `toml:"seed" yaml:"seed"`
	Autostart             bool               `toml:"autostart" yaml:"autostart"`
	Strategies            []string           `toml:"strategies" yaml:"strategies"`
	ElaborateStrategy     string             `toml:"elaborate_strategy" yaml:"elaborate_strategy"`
	BookDepth             int                `toml:"book_depth" yaml:"book_depth"`
	BookStep              float64            `toml:"book_step" yaml:"book_step"`
	Instruments           []InstrumentConfig `toml:"instruments" yaml:"instruments"`
	RiskTiers             []RiskTierConfig   `toml:"risk_tiers" yaml:"risk_tiers"`
}

// BrokerConfig holds the simulated broker handshake parameters.
type BrokerConfig struct {
	LoginDelay   duration `toml:"login_delay" yaml:"login_delay"`
	FailSecret   string   `toml:"fail_secret" yaml:"fail_secret"`
	ErrorCode    int      `toml:"error_code" yaml:"error_code"`
	ErrorMessage string   `toml:"error_message" yaml:"error_message"`
	Balance      float64  `toml:"balance" yaml:"balance"`
	Equity       float64  `toml:"equity" yaml:"equity"`
	Currency     string   `toml:"currency" yaml:"currency"`
	LogCapacity  int      `toml:"log_capacity" yaml:"log_capacity"`
	PollInterval duration `toml:"poll_interval" yaml:"poll_interval"`
}

// StorageConfig selects the persistence backend.
type StorageConfig struct {
	Driver     string `toml:"driver" yaml:"driver"`
	SQLitePath string `toml:"sqlite_path" yaml:"sqlite_path"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	DSN           string `toml:"dsn" yaml:"dsn"`
	Host          string `toml:"host" yaml:"host"`
	Port          int    `toml:"port" yaml:"port"`
	Database      string `toml:"database" yaml:"database"`
	User          string `toml:"user" yaml:"user"`
	Password      string `toml:"password" yaml:"password"`
	SSLMode       string `toml:"ssl_mode" yaml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns" yaml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns" yaml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations" yaml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters. When Enabled is false the
// in-process bus and caches are used instead.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled" yaml:"enabled"`
	Addr       string `toml:"addr" yaml:"addr"`
	Password   string `toml:"password" yaml:"password"`
	DB         int    `toml:"db" yaml:"db"`
	PoolSize   int    `toml:"pool_size" yaml:"pool_size"`
	MaxRetries int    `toml:"max_retries" yaml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled" yaml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters.
type S3Config struct {
	Endpoint       string `toml:"endpoint" yaml:"endpoint"`
	Region         string `toml:"region" yaml:"region"`
	Bucket         string `toml:"bucket" yaml:"bucket"`
	AccessKey      string `toml:"access_key" yaml:"access_key"`
	SecretKey      string `toml:"secret_key" yaml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl" yaml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style" yaml:"force_path_style"`
}

// ArchiveConfig controls copying old history to S3.
type ArchiveConfig struct {
	Enabled       bool     `toml:"enabled" yaml:"enabled"`
	Interval      duration `toml:"interval" yaml:"interval"`
	RetentionDays int      `toml:"retention_days" yaml:"retention_days"`
}

// duration is a wrapper around time.Duration that supports string decoding
// (e.g. "2s", "900ms") from both TOML and YAML.
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	return d.UnmarshalText([]byte(s))
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Port        int      `toml:"port" yaml:"port"`
	CORSOrigins []string `toml:"cors_origins" yaml:"cors_origins"`
	StaticDir   string   `toml:"static_dir" yaml:"static_dir"`
	APIKey      string   `toml:"api_key" yaml:"api_key"` // guards POST endpoints when set
	TradesLimit int      `toml:"trades_limit" yaml:"trades_limit"`
	LogsLimit   int      `toml:"logs_limit" yaml:"logs_limit"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token" yaml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id" yaml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url" yaml:"discord_webhook_url"`
	Events            []string `toml:"events" yaml:"events"`
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Simulation: SimulationConfig{
			TickInterval:          duration{2 * time.Second},
			TradeThreshold:        0.98,
			StepDelay:             duration{900 * time.Millisecond},
			OutcomeDelay:          duration{3 * time.Second},
			WinProbability:        0.55,
			ConfluenceProbability: 0.3,
			MinQuality:            0.60,
			ConfluenceBonus:       0.15,
			Strategies:            []string{"ICT 2022 Model", "Mean Reversion", "Momentum Breakout"},
			ElaborateStrategy:     "ICT 2022 Model",
			BookDepth:             5,
			BookStep:              0.0001,
			Instruments: []InstrumentConfig{
				{Symbol: "GBP/USD", Price: 1.2650, Volatility: 0.0004, Amount: 10000},
				{Symbol: "EUR/USD", Price: 1.0820, Volatility: 0.0004, Amount: 10000},
				{Symbol: "XAU/USD", Price: 2045.50, Volatility: 0.0012, Amount: 10},
				{Symbol: "US100", Price: 17850.0, Volatility: 0.0015, Amount: 1},
			},
			RiskTiers: []RiskTierConfig{
				{MinQuality: 0.90, RiskPct: 2.0},
				{MinQuality: 0.80, RiskPct: 1.5},
				{MinQuality: 0.70, RiskPct: 1.0},
				{MinQuality: 0, RiskPct: 0.5},
			},
		},
		Broker: BrokerConfig{
			LoginDelay:   duration{1500 * time.Millisecond},
			FailSecret:   "wrong_password",
			ErrorCode:    -6,
			ErrorMessage: "Terminal: Authorization failed",
			Balance:      10000.0,
			Equity:       10000.0,
			Currency:     "USD",
			LogCapacity:  100,
			PollInterval: duration{5 * time.Second},
		},
		Storage: StorageConfig{
			Driver:     "sqlite",
			SQLitePath: "nexustrade.db",
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "nexustrade",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Enabled:    false,
			Addr:       "localhost:6379",
			PoolSize:   20,
			MaxRetries: 3,
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "nexustrade-archive",
			ForcePathStyle: true,
		},
		Archive: ArchiveConfig{
			Enabled:       false,
			Interval:      duration{24 * time.Hour},
			RetentionDays: 30,
		},
		Server: ServerConfig{
			Port:        3000,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
			TradesLimit: 50,
			LogsLimit:   100,
		},
		Notify: NotifyConfig{
			Events: []string{"trade", "login"},
		},
		Mode:     "dashboard",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"dashboard": true,
	"headless":  true,
	"archive":   true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: dashboard, headless, archive)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Simulation
	sim := c.Simulation
	if sim.TickInterval.Duration <= 0 {
		errs = append(errs, "simulation: tick_interval must be > 0")
	}
	if sim.TradeThreshold <= 0 || sim.TradeThreshold >= 1 {
		errs = append(errs, fmt.Sprintf("simulation: trade_threshold must be in (0, 1), got %g", sim.TradeThreshold))
	}
	if sim.StepDelay.Duration < 0 || sim.OutcomeDelay.Duration < 0 {
		errs = append(errs, "simulation: step_delay and outcome_delay must be >= 0")
	}
	if sim.WinProbability < 0 || sim.WinProbability > 1 {
		errs = append(errs, "simulation: win_probability must be in [0, 1]")
	}
	if sim.ConfluenceProbability < 0 || sim.ConfluenceProbability > 1 {
		errs = append(errs, "simulation: confluence_probability must be in [0, 1]")
	}
	if sim.MinQuality < 0 || sim.MinQuality >= 1 {
		errs = append(errs, "simulation: min_quality must be in [0, 1)")
	}
	if len(sim.Strategies) == 0 {
		errs = append(errs, "simulation: at least one strategy is required")
	}
	if sim.BookDepth < 1 {
		errs = append(errs, "simulation: book_depth must be >= 1")
	}
	if sim.BookStep <= 0 {
		errs = append(errs, "simulation: book_step must be > 0")
	}
	if len(sim.Instruments) == 0 {
		errs = append(errs, "simulation: at least one instrument is required")
	}
	seen := make(map[string]bool, len(sim.Instruments))
	for i, inst := range sim.Instruments {
		switch {
		case strings.TrimSpace(inst.Symbol) == "":
			errs = append(errs, fmt.Sprintf("simulation: instruments[%d]: symbol must not be empty", i))
		case seen[inst.Symbol]:
			errs = append(errs, fmt.Sprintf("simulation: instruments[%d]: duplicate symbol %q", i, inst.Symbol))
		}
		seen[inst.Symbol] = true
		if inst.Price <= 0 {
			errs = append(errs, fmt.Sprintf("simulation: %s: price must be > 0", inst.Symbol))
		}
		// Volatility >= 2 would let a single tick cross zero.
		if inst.Volatility < 0 || inst.Volatility >= 2 {
			errs = append(errs, fmt.Sprintf("simulation: %s: volatility must be in [0, 2)", inst.Symbol))
		}
		if inst.Amount <= 0 {
			errs = append(errs, fmt.Sprintf("simulation: %s: amount must be > 0", inst.Symbol))
		}
	}
	if len(sim.RiskTiers) == 0 {
		errs = append(errs, "simulation: at least one risk tier is required")
	}

	// Broker
	if c.Broker.LoginDelay.Duration < 0 {
		errs = append(errs, "broker: login_delay must be >= 0")
	}
	if c.Broker.FailSecret == "" {
		errs = append(errs, "broker: fail_secret must not be empty")
	}
	if c.Broker.LogCapacity < 1 {
		errs = append(errs, "broker: log_capacity must be >= 1")
	}

	// Storage
	switch c.Storage.Driver {
	case "sqlite":
		if c.Storage.SQLitePath == "" {
			errs = append(errs, "storage: sqlite_path must not be empty")
		}
	case "postgres":
		if strings.TrimSpace(c.Postgres.DSN) == "" && c.Postgres.Host == "" {
			errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
		}
		if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
		}
	default:
		errs = append(errs, fmt.Sprintf("storage: unknown driver %q (valid: sqlite, postgres)", c.Storage.Driver))
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	// Archive
	if c.Archive.Enabled || c.Mode == "archive" {
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty")
		}
		if c.Archive.RetentionDays < 0 {
			errs = append(errs, "archive: retention_days must be >= 0")
		}
		if c.Archive.Enabled && c.Archive.Interval.Duration <= 0 {
			errs = append(errs, "archive: interval must be > 0")
		}
	}

	// Server
	if c.Mode == "dashboard" {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
