package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vault-indexer/internal/domain"
)

const sampleYAML = `
server:
  http_addr: ":9090"
storage:
  backend: postgres
  postgres_dsn: postgres://localhost/vaults
vaults:
  - address: "0x00000000000000000000000000000000000000AA"
    family: generic
    name: Main
  - address: "0x00000000000000000000000000000000000000bb"
    family: Genesis
rate_limit:
  limit: 5
  window: 30s
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_FileAndDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, ":9090", cfg.Server.HTTPAddr)
	assert.Equal(t, 30*time.Second, cfg.RateLimit.Window)
	assert.Equal(t, 5, cfg.RateLimit.Limit)
	assert.Equal(t, "memory", cfg.RateLimit.Backend)
	assert.Equal(t, "referral_code", cfg.Referral.CookieName)
	assert.Equal(t, int64(domain.ReferralPointsPool), cfg.Referral.Pool)

	vaults, err := cfg.VaultList()
	require.NoError(t, err)
	require.Len(t, vaults, 2)
	assert.Equal(t, "0x00000000000000000000000000000000000000aa", vaults[0].Address)
	assert.Equal(t, domain.FamilyGenesis, vaults[1].Family)
	assert.Equal(t, []string{"0x00000000000000000000000000000000000000bb"}, cfg.CampaignVaults())
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("VAULT_ADMIN_SECRET", "s3cret")
	t.Setenv("VAULT_SERVER_HTTP_ADDR", ":7070")

	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)
	assert.Equal(t, "s3cret", cfg.Admin.Secret)
	assert.Equal(t, ":7070", cfg.Server.HTTPAddr)
}

func TestValidate(t *testing.T) {
	base, err := Load("")
	require.NoError(t, err)
	require.NoError(t, base.Validate(), "defaults are valid")

	cases := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"bad family", func(c *Config) {
			c.Vaults = []VaultConfig{{Address: "0x00000000000000000000000000000000000000aa", Family: "other"}}
		}},
		{"bad address", func(c *Config) {
			c.Vaults = []VaultConfig{{Address: "0x12", Family: "generic"}}
		}},
		{"duplicate vault", func(c *Config) {
			c.Vaults = []VaultConfig{
				{Address: "0x00000000000000000000000000000000000000aa", Family: "generic"},
				{Address: "0x00000000000000000000000000000000000000AA", Family: "genesis"},
			}
		}},
		{"postgres no dsn", func(c *Config) { c.Storage.Backend = "postgres" }},
		{"unknown backend", func(c *Config) { c.Storage.Backend = "sqlite" }},
		{"redis no addr", func(c *Config) { c.RateLimit.Backend = "redis" }},
		{"clickhouse no dsn", func(c *Config) { c.ClickHouse.Enabled = true }},
		{"zero window", func(c *Config) { c.RateLimit.Window = 0 }},
		{"sub-millisecond window", func(c *Config) { c.RateLimit.Window = 500 * time.Microsecond }},
		{"zero limit", func(c *Config) { c.RateLimit.Limit = 0 }},
		{"unknown gin mode", func(c *Config) { c.Server.Mode = "production" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := base
			tc.mutate(&c)
			assert.ErrorIs(t, c.Validate(), domain.ErrValidation)
		})
	}
}
