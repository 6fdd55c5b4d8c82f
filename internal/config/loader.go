package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Load reads a configuration file at path, merges it on top of the built-in
// defaults, applies NEXUS_* environment variable overrides, and returns the
// final Config. Files ending in .yaml or .yml are decoded as YAML, everything
// else as TOML. An empty path skips the file and uses defaults plus env.
// The returned Config has NOT been validated; the caller should invoke
// Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if err := decodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

func decodeFile(path string, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("config: decode yaml %s: %w", path, err)
		}
	default:
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return fmt.Errorf("config: decode toml %s: %w", path, err)
		}
	}
	return nil
}

// applyEnvOverrides reads well-known NEXUS_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the config file.
func applyEnvOverrides(cfg *Config) {
	setStr(&cfg.Mode, "NEXUS_MODE")
	setStr(&cfg.LogLevel, "NEXUS_LOG_LEVEL")

	// ── Simulation ──
	setDuration(&cfg.Simulation.TickInterval, "NEXUS_SIMULATION_TICK_INTERVAL")
	setFloat64(&cfg.Simulation.TradeThreshold, "NEXUS_SIMULATION_TRADE_THRESHOLD")
	setDuration(&cfg.Simulation.StepDelay, "NEXUS_SIMULATION_STEP_DELAY")
	setDuration(&cfg.Simulation.OutcomeDelay, "NEXUS_SIMULATION_OUTCOME_DELAY")
	setFloat64(&cfg.Simulation.WinProbability, "NEXUS_SIMULATION_WIN_PROBABILITY")
	setUint64(&cfg.Simulation.Seed, "NEXUS_SIMULATION_SEED")
	setBool(&cfg.Simulation.Autostart, "NEXUS_SIMULATION_AUTOSTART")
	setStringSlice(&cfg.Simulation.Strategies, "NEXUS_SIMULATION_STRATEGIES")

	// ── Broker ──
	setDuration(&cfg.Broker.LoginDelay, "NEXUS_BROKER_LOGIN_DELAY")
	setStr(&cfg.Broker.FailSecret, "NEXUS_BROKER_FAIL_SECRET")
	setInt(&cfg.Broker.LogCapacity, "NEXUS_BROKER_LOG_CAPACITY")
	setDuration(&cfg.Broker.PollInterval, "NEXUS_BROKER_POLL_INTERVAL")

	// ── Storage ──
	setStr(&cfg.Storage.Driver, "NEXUS_STORAGE_DRIVER")
	setStr(&cfg.Storage.SQLitePath, "NEXUS_STORAGE_SQLITE_PATH")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "NEXUS_POSTGRES_DSN")
	setStr(&cfg.Postgres.DSN, "DATABASE_URL") // compatibility alias
	setStr(&cfg.Postgres.Host, "NEXUS_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "NEXUS_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "NEXUS_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "NEXUS_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "NEXUS_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "NEXUS_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "NEXUS_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "NEXUS_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "NEXUS_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "NEXUS_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "NEXUS_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "NEXUS_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "NEXUS_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "NEXUS_REDIS_POOL_SIZE")
	setBool(&cfg.Redis.TLSEnabled, "NEXUS_REDIS_TLS_ENABLED")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "NEXUS_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "NEXUS_S3_REGION")
	setStr(&cfg.S3.Bucket, "NEXUS_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "NEXUS_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "NEXUS_S3_SECRET_KEY")
	setBool(&cfg.S3.ForcePathStyle, "NEXUS_S3_FORCE_PATH_STYLE")

	// ── Archive ──
	setBool(&cfg.Archive.Enabled, "NEXUS_ARCHIVE_ENABLED")
	setDuration(&cfg.Archive.Interval, "NEXUS_ARCHIVE_INTERVAL")
	setInt(&cfg.Archive.RetentionDays, "NEXUS_ARCHIVE_RETENTION_DAYS")

	// ── Server ──
	setInt(&cfg.Server.Port, "NEXUS_SERVER_PORT")
	setInt(&cfg.Server.Port, "PORT") // compatibility alias
	setStringSlice(&cfg.Server.CORSOrigins, "NEXUS_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.StaticDir, "NEXUS_SERVER_STATIC_DIR")
	setStr(&cfg.Server.APIKey, "NEXUS_SERVER_API_KEY")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "NEXUS_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "NEXUS_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "NEXUS_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "NEXUS_NOTIFY_EVENTS")
}

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setUint64(dst *uint64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
