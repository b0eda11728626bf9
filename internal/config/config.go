// Package config defines the top-level configuration for the auction backend
// and provides validation helpers.
package config

import (
	"fmt"
	"strings"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by AUCTIONEER_* environment
// variables.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Postgres PostgresConfig `toml:"postgres"`
	Redis    RedisConfig    `toml:"redis"`
	S3       S3Config       `toml:"s3"`
	Auction  AuctionConfig  `toml:"auction"`
	Notify   NotifyConfig   `toml:"notify"`
	LogLevel string         `toml:"log_level"`
}

// ServerConfig holds the HTTP/WebSocket server parameters.
type ServerConfig struct {
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	APIKey      string   `toml:"api_key"`
	// BidRateLimit caps bid-related requests per client per second. Zero
	// disables the limiter.
	BidRateLimit int `toml:"bid_rate_limit"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr         string `toml:"addr"`
	Password     string `toml:"password"`
	DB           int    `toml:"db"`
	PoolSize     int    `toml:"pool_size"`
	MaxRetries   int    `toml:"max_retries"`
	TLSEnabled   bool   `toml:"tls_enabled"`
	StreamMaxLen int    `toml:"stream_max_len"`
}

// S3Config holds S3-compatible object storage parameters for item photos.
// Leave Bucket empty to disable photo storage entirely.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// IncrementTier is one rung of the increment policy: bids strictly below
// Below step by Step. A tier with Below == 0 is open-ended and must come
// last.
type IncrementTier struct {
	Below float64 `toml:"below"`
	Step  float64 `toml:"step"`
}

// AuctionConfig holds the auction-floor parameters.
type AuctionConfig struct {
	// DefaultBudget is the starting budget for newly created teams.
	DefaultBudget float64 `toml:"default_budget"`
	// DefaultBasePrice is the opening price for items whose pool upload did
	// not specify one.
	DefaultBasePrice float64 `toml:"default_base_price"`
	// IncrementTiers maps the current bid to the minimum legal raise.
	IncrementTiers []IncrementTier `toml:"increment_tiers"`
}

// NotifyConfig holds notification channel settings for sale announcements.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// Defaults returns the built-in configuration, matching a local single-node
// deployment. The increment tiers reproduce the floor's historical schedule:
// below 5 step 0.20, below 10 step 0.25, then 0.50.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:         5000,
			CORSOrigins:  []string{"*"},
			BidRateLimit: 20,
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "auctioneer",
			User:          "auctioneer",
			SSLMode:       "disable",
			PoolMaxConns:  8,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:         "localhost:6379",
			PoolSize:     8,
			MaxRetries:   3,
			StreamMaxLen: 10000,
		},
		Auction: AuctionConfig{
			DefaultBudget:    100,
			DefaultBasePrice: 2,
			IncrementTiers: []IncrementTier{
				{Below: 5, Step: 0.2},
				{Below: 10, Step: 0.25},
				{Below: 0, Step: 0.5},
			},
		},
		LogLevel: "info",
	}
}

// Validate checks the configuration for internal consistency. It should be
// called after Load.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: invalid server port %d", c.Server.Port)
	}
	if strings.TrimSpace(c.Postgres.DSN) == "" && strings.TrimSpace(c.Postgres.Host) == "" {
		return fmt.Errorf("config: postgres requires a dsn or host")
	}
	if strings.TrimSpace(c.Redis.Addr) == "" {
		return fmt.Errorf("config: redis addr is required")
	}
	if c.Auction.DefaultBudget <= 0 {
		return fmt.Errorf("config: default budget must be positive")
	}
	if c.Auction.DefaultBasePrice < 0 {
		return fmt.Errorf("config: default base price must not be negative")
	}
	if err := validateTiers(c.Auction.IncrementTiers); err != nil {
		return err
	}
	switch c.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unknown log level %q", c.LogLevel)
	}
	return nil
}

// validateTiers checks that the increment schedule has ascending bounds,
// positive steps, and exactly one open-ended tier in final position.
func validateTiers(tiers []IncrementTier) error {
	if len(tiers) == 0 {
		return fmt.Errorf("config: at least one increment tier is required")
	}
	prev := 0.0
	for i, t := range tiers {
		if t.Step <= 0 {
			return fmt.Errorf("config: increment tier %d has non-positive step", i)
		}
		last := i == len(tiers)-1
		if t.Below == 0 {
			if !last {
				return fmt.Errorf("config: open-ended increment tier must be last")
			}
			continue
		}
		if !last || tiers[len(tiers)-1].Below == 0 {
			if t.Below <= prev {
				return fmt.Errorf("config: increment tier bounds must ascend, got %v after %v", t.Below, prev)
			}
		}
		prev = t.Below
	}
	if tiers[len(tiers)-1].Below != 0 {
		return fmt.Errorf("config: final increment tier must be open-ended (below = 0)")
	}
	return nil
}
