package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies AUCTIONEER_* environment variable overrides,
// and returns the final Config. A missing file is not an error; the defaults
// plus environment are used instead. The returned Config has NOT been
// validated; the caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known AUCTIONEER_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	// ── Server ──
	setInt(&cfg.Server.Port, "AUCTIONEER_SERVER_PORT")
	setStr(&cfg.Server.APIKey, "AUCTIONEER_SERVER_API_KEY")
	setInt(&cfg.Server.BidRateLimit, "AUCTIONEER_SERVER_BID_RATE_LIMIT")
	setStringSlice(&cfg.Server.CORSOrigins, "AUCTIONEER_SERVER_CORS_ORIGINS")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "AUCTIONEER_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "AUCTIONEER_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "AUCTIONEER_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "AUCTIONEER_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "AUCTIONEER_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "AUCTIONEER_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "AUCTIONEER_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "AUCTIONEER_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "AUCTIONEER_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "AUCTIONEER_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "AUCTIONEER_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "AUCTIONEER_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "AUCTIONEER_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "AUCTIONEER_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "AUCTIONEER_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "AUCTIONEER_REDIS_TLS_ENABLED")
	setInt(&cfg.Redis.StreamMaxLen, "AUCTIONEER_REDIS_STREAM_MAX_LEN")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "AUCTIONEER_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "AUCTIONEER_S3_REGION")
	setStr(&cfg.S3.Bucket, "AUCTIONEER_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "AUCTIONEER_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "AUCTIONEER_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "AUCTIONEER_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "AUCTIONEER_S3_FORCE_PATH_STYLE")

	// ── Auction ──
	setFloat64(&cfg.Auction.DefaultBudget, "AUCTIONEER_AUCTION_DEFAULT_BUDGET")
	setFloat64(&cfg.Auction.DefaultBasePrice, "AUCTIONEER_AUCTION_DEFAULT_BASE_PRICE")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "AUCTIONEER_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "AUCTIONEER_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "AUCTIONEER_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "AUCTIONEER_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.LogLevel, "AUCTIONEER_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

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
