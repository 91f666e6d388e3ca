package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsAreValid(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, Validate(cfg))

	assert.Equal(t, 0.0024, cfg.TokenAccountRentExemption)
	assert.Equal(t, 8, cfg.ItemsPerPage)
	assert.Equal(t, 0.007, cfg.FeeFraction)
	assert.Equal(t, uint8(9), cfg.Native.Decimals)
	assert.Equal(t, uint8(6), cfg.Target.Decimals)
	assert.Equal(t, 50, cfg.Price.ChunkSize)
	assert.Equal(t, 60*time.Second, cfg.Price.PollInterval)
}

func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	body := `{
		"rpc_url": "https://rpc.example.org",
		"items_per_page": 4,
		"fee_fraction": 0.01,
		"price": {"chunk_size": 20}
	}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "https://rpc.example.org", cfg.RPCURL)
	assert.Equal(t, 4, cfg.ItemsPerPage)
	assert.Equal(t, 0.01, cfg.FeeFraction)
	assert.Equal(t, 20, cfg.Price.ChunkSize)
	// untouched keys keep their defaults
	assert.Equal(t, TargetMint, cfg.Target.Mint)
	assert.Equal(t, 300*time.Millisecond, cfg.Price.ChunkDelay)
	assert.Equal(t, cfg.RPCURL, cfg.Endpoints.AssetRPC)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("LITTERBOX_RPC_URL", "https://env.example.org")
	t.Setenv("LITTERBOX_SWAP_SLIPPAGE_BPS", "150")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "https://env.example.org", cfg.RPCURL)
	assert.Equal(t, uint16(150), cfg.Swap.SlippageBps)
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad rpc scheme", func(c *Config) { c.RPCURL = "ftp://nope" }},
		{"fee fraction too large", func(c *Config) { c.FeeFraction = 1 }},
		{"negative fee", func(c *Config) { c.FeeFraction = -0.1 }},
		{"zero page size", func(c *Config) { c.ItemsPerPage = 0 }},
		{"bad collector", func(c *Config) { c.FeeCollector = "not-a-key" }},
		{"zero rent", func(c *Config) { c.TokenAccountRentExemption = 0 }},
		{"zero chunk", func(c *Config) { c.Price.ChunkSize = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(cfg)
			assert.Error(t, Validate(cfg))
		})
	}
}
