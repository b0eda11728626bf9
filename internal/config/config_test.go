package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 5000, cfg.Server.Port)
	assert.Equal(t, 100.0, cfg.Auction.DefaultBudget)
	assert.Equal(t, 2.0, cfg.Auction.DefaultBasePrice)
	require.Len(t, cfg.Auction.IncrementTiers, 3)
	assert.Equal(t, 0.0, cfg.Auction.IncrementTiers[2].Below)
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero port", func(c *Config) { c.Server.Port = 0 }},
		{"port out of range", func(c *Config) { c.Server.Port = 70000 }},
		{"no postgres target", func(c *Config) { c.Postgres.Host = ""; c.Postgres.DSN = "" }},
		{"no redis addr", func(c *Config) { c.Redis.Addr = "" }},
		{"zero budget", func(c *Config) { c.Auction.DefaultBudget = 0 }},
		{"negative base price", func(c *Config) { c.Auction.DefaultBasePrice = -1 }},
		{"unknown log level", func(c *Config) { c.LogLevel = "verbose" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidateTiers(t *testing.T) {
	tests := []struct {
		name  string
		tiers []IncrementTier
		ok    bool
	}{
		{"default schedule", []IncrementTier{{5, 0.2}, {10, 0.25}, {0, 0.5}}, true},
		{"single open-ended", []IncrementTier{{0, 1}}, true},
		{"empty", nil, false},
		{"zero step", []IncrementTier{{5, 0}, {0, 0.5}}, false},
		{"negative step", []IncrementTier{{5, -0.2}, {0, 0.5}}, false},
		{"descending bounds", []IncrementTier{{10, 0.2}, {5, 0.25}, {0, 0.5}}, false},
		{"duplicate bounds", []IncrementTier{{5, 0.2}, {5, 0.25}, {0, 0.5}}, false},
		{"open-ended not last", []IncrementTier{{0, 0.5}, {5, 0.2}}, false},
		{"no open-ended tier", []IncrementTier{{5, 0.2}, {10, 0.25}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			cfg.Auction.IncrementTiers = tt.tiers
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	data := `
log_level = "debug"

[server]
port = 8080
api_key = "secret"

[auction]
default_budget = 250.0

[[auction.increment_tiers]]
below = 20.0
step = 1.0

[[auction.increment_tiers]]
below = 0.0
step = 2.0
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "secret", cfg.Server.APIKey)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 250.0, cfg.Auction.DefaultBudget)
	require.Len(t, cfg.Auction.IncrementTiers, 2)
	assert.Equal(t, 1.0, cfg.Auction.IncrementTiers[0].Step)

	// Untouched sections keep their defaults.
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "auctioneer", cfg.Postgres.Database)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, 5000, cfg.Server.Port)
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[server\nport="), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("AUCTIONEER_SERVER_PORT", "9090")
	t.Setenv("AUCTIONEER_POSTGRES_PASSWORD", "hunter2")
	t.Setenv("AUCTIONEER_REDIS_ADDR", "redis:6380")
	t.Setenv("AUCTIONEER_AUCTION_DEFAULT_BUDGET", "500")
	t.Setenv("AUCTIONEER_POSTGRES_RUN_MIGRATIONS", "false")
	t.Setenv("AUCTIONEER_SERVER_CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "hunter2", cfg.Postgres.Password)
	assert.Equal(t, "redis:6380", cfg.Redis.Addr)
	assert.Equal(t, 500.0, cfg.Auction.DefaultBudget)
	assert.False(t, cfg.Postgres.RunMigrations)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
}

func TestEnvOverrideIgnoresGarbage(t *testing.T) {
	t.Setenv("AUCTIONEER_SERVER_PORT", "not-a-number")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, 5000, cfg.Server.Port)
}
