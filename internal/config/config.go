// Package config loads service configuration from YAML, .env and VAULT_* env vars.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"vault-indexer/internal/domain"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Log        LogConfig        `mapstructure:"log"`
	Storage    StorageConfig    `mapstructure:"storage"`
	ClickHouse ClickHouseConfig `mapstructure:"clickhouse"`
	Vaults     []VaultConfig    `mapstructure:"vaults"`
	Chain      ChainConfig      `mapstructure:"chain"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	Admin      AdminConfig      `mapstructure:"admin"`
	Stream     StreamConfig     `mapstructure:"stream"`
	Referral   ReferralConfig   `mapstructure:"referral"`
	Reconcile  ReconcileConfig  `mapstructure:"reconcile"`
	Feed       FeedConfig       `mapstructure:"feed"`
}

type ServerConfig struct {
	HTTPAddr        string        `mapstructure:"http_addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	Mode            string        `mapstructure:"mode"` // gin mode: debug, release, test
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`

	// File enables rotated file output in addition to stdout.
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

type StorageConfig struct {
	Backend     string `mapstructure:"backend"` // memory | postgres
	PostgresDSN string `mapstructure:"postgres_dsn"`
}

type ClickHouseConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	DSN     string `mapstructure:"dsn"`
}

type VaultConfig struct {
	Address string `mapstructure:"address"`
	Family  string `mapstructure:"family"`
	Name    string `mapstructure:"name"`
}

type ChainConfig struct {
	RPCURL string  `mapstructure:"rpc_url"`
	RPS    float64 `mapstructure:"rps"`
	Burst  int     `mapstructure:"burst"`
}

type RateLimitConfig struct {
	Backend       string        `mapstructure:"backend"` // memory | redis
	Limit         int           `mapstructure:"limit"`
	Window        time.Duration `mapstructure:"window"`
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	Prefix        string        `mapstructure:"prefix"`
}

type AdminConfig struct {
	Secret string `mapstructure:"secret"`
}

type StreamConfig struct {
	// Token, when set, must match the webhook's stream token header.
	Token string `mapstructure:"token"`
}

type ReferralConfig struct {
	Pool       int64  `mapstructure:"pool"`
	CookieName string `mapstructure:"cookie_name"`
}

type ReconcileConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule"`
}

type FeedConfig struct {
	Buffer       int           `mapstructure:"buffer"`
	PingInterval time.Duration `mapstructure:"ping_interval"`
}

// Load reads .env (if present), then the YAML file at path (optional when
// empty), then VAULT_* environment overrides.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("VAULT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.mode", "release")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "json")
	v.SetDefault("log.development", false)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 14)
	v.SetDefault("log.compress", true)
	v.SetDefault("storage.backend", "memory")
	v.SetDefault("storage.postgres_dsn", "")
	v.SetDefault("clickhouse.enabled", false)
	v.SetDefault("clickhouse.dsn", "")
	v.SetDefault("chain.rpc_url", "")
	v.SetDefault("chain.rps", 5)
	v.SetDefault("chain.burst", 5)
	v.SetDefault("rate_limit.backend", "memory")
	v.SetDefault("rate_limit.limit", 60)
	v.SetDefault("rate_limit.window", "1m")
	v.SetDefault("rate_limit.redis_addr", "")
	v.SetDefault("rate_limit.redis_password", "")
	v.SetDefault("rate_limit.redis_db", 0)
	v.SetDefault("rate_limit.prefix", "vault-indexer:ratelimit")
	v.SetDefault("admin.secret", "")
	v.SetDefault("stream.token", "")
	v.SetDefault("referral.pool", domain.ReferralPointsPool)
	v.SetDefault("referral.cookie_name", "referral_code")
	v.SetDefault("reconcile.enabled", false)
	v.SetDefault("reconcile.schedule", "0 */15 * * * *")
	v.SetDefault("feed.buffer", 64)
	v.SetDefault("feed.ping_interval", "30s")

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	return cfg, nil
}

// Validate checks the settings the service cannot start without.
func (c Config) Validate() error {
	if _, err := c.VaultList(); err != nil {
		return err
	}

	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("%w: unknown server mode %q", domain.ErrValidation, c.Server.Mode)
	}

	switch c.Storage.Backend {
	case "memory":
	case "postgres":
		if c.Storage.PostgresDSN == "" {
			return fmt.Errorf("%w: storage.postgres_dsn is required for the postgres backend", domain.ErrValidation)
		}
	default:
		return fmt.Errorf("%w: unknown storage backend %q", domain.ErrValidation, c.Storage.Backend)
	}

	if c.ClickHouse.Enabled && c.ClickHouse.DSN == "" {
		return fmt.Errorf("%w: clickhouse.dsn is required when clickhouse is enabled", domain.ErrValidation)
	}

	switch c.RateLimit.Backend {
	case "memory":
	case "redis":
		if c.RateLimit.RedisAddr == "" {
			return fmt.Errorf("%w: rate_limit.redis_addr is required for the redis backend", domain.ErrValidation)
		}
	default:
		return fmt.Errorf("%w: unknown rate limit backend %q", domain.ErrValidation, c.RateLimit.Backend)
	}
	if c.RateLimit.Limit <= 0 {
		return fmt.Errorf("%w: rate_limit.limit must be positive", domain.ErrValidation)
	}
	if c.RateLimit.Window < time.Millisecond {
		return fmt.Errorf("%w: rate_limit.window must be at least 1ms", domain.ErrValidation)
	}

	return nil
}

// VaultList converts and checks the configured vaults.
func (c Config) VaultList() ([]domain.Vault, error) {
	seen := make(map[string]struct{}, len(c.Vaults))
	vaults := make([]domain.Vault, 0, len(c.Vaults))
	for i, vc := range c.Vaults {
		if !common.IsHexAddress(vc.Address) {
			return nil, fmt.Errorf("%w: vaults[%d]: invalid address %q", domain.ErrValidation, i, vc.Address)
		}
		family, err := domain.ParseVaultFamily(vc.Family)
		if err != nil {
			return nil, fmt.Errorf("vaults[%d]: %w", i, err)
		}
		addr := domain.NormalizeAddress(vc.Address)
		if _, dup := seen[addr]; dup {
			return nil, fmt.Errorf("%w: vaults[%d]: duplicate address %s", domain.ErrValidation, i, addr)
		}
		seen[addr] = struct{}{}
		vaults = append(vaults, domain.Vault{Address: addr, Family: family, Name: vc.Name})
	}
	return vaults, nil
}

// CampaignVaults returns the addresses of genesis and promotion vaults.
func (c Config) CampaignVaults() []string {
	vaults, err := c.VaultList()
	if err != nil {
		return nil
	}
	var out []string
	for _, v := range vaults {
		if v.Family.IsCampaign() {
			out = append(out, v.Address)
		}
	}
	return out
}
