// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// MintConfig describes a token mint and the number of base units per display unit.
type MintConfig struct {
	Mint     string `mapstructure:"mint"`
	Decimals uint8  `mapstructure:"decimals"`
	Symbol   string `mapstructure:"symbol"`
}

// PubKey returns the parsed mint address.
func (m MintConfig) PubKey() solana.PublicKey {
	return solana.MustPublicKeyFromBase58(m.Mint)
}

// FeeCollectorKey returns the parsed fee collector address.
func (c *Config) FeeCollectorKey() solana.PublicKey {
	return solana.MustPublicKeyFromBase58(c.FeeCollector)
}

// Endpoints lists the external HTTP services the pipeline talks to.
type Endpoints struct {
	JupiterPriceV3    string `mapstructure:"jupiter_price_v3"`
	CoinGecko         string `mapstructure:"coingecko"`
	JupiterPriceV2    string `mapstructure:"jupiter_price_v2"`
	JupiterPriceQuote string `mapstructure:"jupiter_price_quote"`
	SwapQuote         string `mapstructure:"swap_quote"`
	SwapInstructions  string `mapstructure:"swap_instructions"`
	AssetRPC          string `mapstructure:"asset_rpc"`
}

// PriceConfig controls the oracle aggregator.
type PriceConfig struct {
	PollInterval        time.Duration `mapstructure:"poll_interval"`
	ChunkSize           int           `mapstructure:"chunk_size"`
	ChunkDelay          time.Duration `mapstructure:"chunk_delay"`
	SourceTimeout       time.Duration `mapstructure:"source_timeout"`
	AcceptAnyDelay      time.Duration `mapstructure:"accept_any_delay"`
	FallbackNativePrice float64       `mapstructure:"fallback_native_price_usd"`
	QuoteSanityMax      float64       `mapstructure:"quote_sanity_max_usd"`
}

// SwapConfig holds the fixed aggregator hints.
type SwapConfig struct {
	SlippageBps            uint16 `mapstructure:"slippage_bps"`
	MaxPriorityFeeLamports uint64 `mapstructure:"max_priority_fee_lamports"`
	PriorityLevel          string `mapstructure:"priority_level"`
}

// WalletConfig selects the local key source. Exactly one of the fields is expected.
type WalletConfig struct {
	PrivateKey  string `mapstructure:"private_key"`
	KeypairPath string `mapstructure:"keypair_path"`
	Mnemonic    string `mapstructure:"mnemonic"`
	Passphrase  string `mapstructure:"passphrase"`
}

// LogConfig mirrors logger.Config so it can live in the same file.
type LogConfig struct {
	File        string `mapstructure:"file"`
	MaxSize     int    `mapstructure:"max_size"`
	MaxAge      int    `mapstructure:"max_age"`
	MaxBackups  int    `mapstructure:"max_backups"`
	Compress    bool   `mapstructure:"compress"`
	Development bool   `mapstructure:"development"`
}

type Config struct {
	RPCURL                    string        `mapstructure:"rpc_url"`
	ClusterID                 string        `mapstructure:"cluster_id"`
	TokenAccountRentExemption float64       `mapstructure:"token_account_rent_exemption"`
	Native                    MintConfig    `mapstructure:"native"`
	Target                    MintConfig    `mapstructure:"target"`
	ItemsPerPage              int           `mapstructure:"items_per_page"`
	FeeFraction               float64       `mapstructure:"fee_fraction"`
	FeeCollector              string        `mapstructure:"fee_collector"`
	LowValueThresholdUSD      float64       `mapstructure:"low_value_threshold_usd"`
	StatusClearAfter          time.Duration `mapstructure:"status_clear_after"`
	RescanDelay               time.Duration `mapstructure:"rescan_delay"`
	RPCRetries                int           `mapstructure:"rpc_retries"`
	HTTPTimeout               time.Duration `mapstructure:"http_timeout"`
	Price                     PriceConfig   `mapstructure:"price"`
	Swap                      SwapConfig    `mapstructure:"swap"`
	Endpoints                 Endpoints     `mapstructure:"endpoints"`
	Wallet                    WalletConfig  `mapstructure:"wallet"`
	Log                       LogConfig     `mapstructure:"log"`
}

const (
	NativeMint = "So11111111111111111111111111111111111111112"
	TargetMint = "9wK8yN6iz1ie5kEJkvZCTxyN1x5sTdNfx8yeMY8Ebonk"

	DefaultRPCURL        = "https://mainnet.helius-rpc.com"
	DefaultClusterID     = "mainnet"
	DefaultRentExemption = 0.0024
	DefaultItemsPerPage  = 8
	DefaultFeeFraction   = 0.007
	DefaultFeeCollector  = "D5TiA9gpwdXgAc1KcMr6uWLUKBwfAR5xbhAMofda4NcB"
	DefaultLowValueUSD   = 1.0
	DefaultRPCRetries    = 3

	DefaultPriceChunkSize      = 50
	DefaultFallbackNativePrice = 200.0
	DefaultQuoteSanityMax      = 1000.0

	DefaultSlippageBps            = 300
	DefaultMaxPriorityFeeLamports = 1_000_000
	DefaultPriorityLevel          = "veryHigh"
)

// Defaults returns a fully populated configuration with the production constants.
func Defaults() *Config {
	return &Config{
		RPCURL:                    DefaultRPCURL,
		ClusterID:                 DefaultClusterID,
		TokenAccountRentExemption: DefaultRentExemption,
		Native:                    MintConfig{Mint: NativeMint, Decimals: 9, Symbol: "SOL"},
		Target:                    MintConfig{Mint: TargetMint, Decimals: 6, Symbol: "HOSICO"},
		ItemsPerPage:              DefaultItemsPerPage,
		FeeFraction:               DefaultFeeFraction,
		FeeCollector:              DefaultFeeCollector,
		LowValueThresholdUSD:      DefaultLowValueUSD,
		StatusClearAfter:          15 * time.Second,
		RescanDelay:               2 * time.Second,
		RPCRetries:                DefaultRPCRetries,
		HTTPTimeout:               10 * time.Second,
		Price: PriceConfig{
			PollInterval:        60 * time.Second,
			ChunkSize:           DefaultPriceChunkSize,
			ChunkDelay:          300 * time.Millisecond,
			SourceTimeout:       8 * time.Second,
			AcceptAnyDelay:      200 * time.Millisecond,
			FallbackNativePrice: DefaultFallbackNativePrice,
			QuoteSanityMax:      DefaultQuoteSanityMax,
		},
		Swap: SwapConfig{
			SlippageBps:            DefaultSlippageBps,
			MaxPriorityFeeLamports: DefaultMaxPriorityFeeLamports,
			PriorityLevel:          DefaultPriorityLevel,
		},
		Endpoints: Endpoints{
			JupiterPriceV3:    "https://lite-api.jup.ag/price/v3",
			CoinGecko:         "https://api.coingecko.com/api/v3/simple/token_price/solana",
			JupiterPriceV2:    "https://api.jup.ag/price/v2",
			JupiterPriceQuote: "https://quote-api.jup.ag/v6/quote",
			SwapQuote:         "https://lite-api.jup.ag/swap/v1/quote",
			SwapInstructions:  "https://lite-api.jup.ag/swap/v1/swap-instructions",
		},
		Log: LogConfig{
			File:       "litterbox.log",
			MaxSize:    100,
			MaxAge:     7,
			MaxBackups: 3,
			Compress:   true,
		},
	}
}

// LoadConfig reads an optional .env file, then the config file at path (may be empty),
// then LITTERBOX_* environment overrides.
func LoadConfig(path string) (*Config, error) {
	// .env is optional; only a malformed file is an error.
	if err := godotenv.Load(); err != nil && !isNotExist(err) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v, Defaults())

	v.SetEnvPrefix("LITTERBOX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if cfg.Endpoints.AssetRPC == "" {
		cfg.Endpoints.AssetRPC = cfg.RPCURL
	}

	return &cfg, Validate(&cfg)
}

func setDefaults(v *viper.Viper, d *Config) {
	defaults := map[string]interface{}{
		"rpc_url":                         d.RPCURL,
		"cluster_id":                      d.ClusterID,
		"token_account_rent_exemption":    d.TokenAccountRentExemption,
		"native.mint":                     d.Native.Mint,
		"native.decimals":                 d.Native.Decimals,
		"native.symbol":                   d.Native.Symbol,
		"target.mint":                     d.Target.Mint,
		"target.decimals":                 d.Target.Decimals,
		"target.symbol":                   d.Target.Symbol,
		"items_per_page":                  d.ItemsPerPage,
		"fee_fraction":                    d.FeeFraction,
		"fee_collector":                   d.FeeCollector,
		"low_value_threshold_usd":         d.LowValueThresholdUSD,
		"status_clear_after":              d.StatusClearAfter,
		"rescan_delay":                    d.RescanDelay,
		"rpc_retries":                     d.RPCRetries,
		"http_timeout":                    d.HTTPTimeout,
		"price.poll_interval":             d.Price.PollInterval,
		"price.chunk_size":                d.Price.ChunkSize,
		"price.chunk_delay":               d.Price.ChunkDelay,
		"price.source_timeout":            d.Price.SourceTimeout,
		"price.accept_any_delay":          d.Price.AcceptAnyDelay,
		"price.fallback_native_price_usd": d.Price.FallbackNativePrice,
		"price.quote_sanity_max_usd":      d.Price.QuoteSanityMax,
		"swap.slippage_bps":               d.Swap.SlippageBps,
		"swap.max_priority_fee_lamports":  d.Swap.MaxPriorityFeeLamports,
		"swap.priority_level":             d.Swap.PriorityLevel,
		"endpoints.jupiter_price_v3":      d.Endpoints.JupiterPriceV3,
		"endpoints.coingecko":             d.Endpoints.CoinGecko,
		"endpoints.jupiter_price_v2":      d.Endpoints.JupiterPriceV2,
		"endpoints.jupiter_price_quote":   d.Endpoints.JupiterPriceQuote,
		"endpoints.swap_quote":            d.Endpoints.SwapQuote,
		"endpoints.swap_instructions":     d.Endpoints.SwapInstructions,
		"endpoints.asset_rpc":             "",
		"wallet.private_key":              "",
		"wallet.keypair_path":             "",
		"wallet.mnemonic":                 "",
		"wallet.passphrase":               "",
		"log.file":                        d.Log.File,
		"log.max_size":                    d.Log.MaxSize,
		"log.max_age":                     d.Log.MaxAge,
		"log.max_backups":                 d.Log.MaxBackups,
		"log.compress":                    d.Log.Compress,
		"log.development":                 d.Log.Development,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
}

// Validate checks a configuration for values the pipeline cannot work with.
func Validate(cfg *Config) error {
	if err := validateURLWithCache(cfg.RPCURL, "http"); err != nil {
		return fmt.Errorf("invalid rpc_url: %w", err)
	}
	endpoints := map[string]string{
		"jupiter_price_v3":    cfg.Endpoints.JupiterPriceV3,
		"coingecko":           cfg.Endpoints.CoinGecko,
		"jupiter_price_v2":    cfg.Endpoints.JupiterPriceV2,
		"jupiter_price_quote": cfg.Endpoints.JupiterPriceQuote,
		"swap_quote":          cfg.Endpoints.SwapQuote,
		"swap_instructions":   cfg.Endpoints.SwapInstructions,
		"asset_rpc":           cfg.Endpoints.AssetRPC,
	}
	for name, raw := range endpoints {
		if raw == "" {
			continue
		}
		if err := validateURLWithCache(raw, "http"); err != nil {
			return fmt.Errorf("invalid endpoints.%s: %w", name, err)
		}
	}
	for name, key := range map[string]string{
		"native.mint":   cfg.Native.Mint,
		"target.mint":   cfg.Target.Mint,
		"fee_collector": cfg.FeeCollector,
	} {
		if _, err := solana.PublicKeyFromBase58(key); err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
	}
	return validateNumericParams(cfg)
}

func validateNumericParams(cfg *Config) error {
	if cfg.TokenAccountRentExemption <= 0 {
		return errors.New("invalid token_account_rent_exemption")
	}
	if cfg.ItemsPerPage <= 0 {
		return errors.New("invalid items_per_page")
	}
	if cfg.FeeFraction < 0 || cfg.FeeFraction >= 1 {
		return errors.New("fee_fraction must be in [0, 1)")
	}
	if cfg.Price.ChunkSize <= 0 {
		return errors.New("invalid price.chunk_size")
	}
	if cfg.Price.PollInterval <= 0 {
		return errors.New("invalid price.poll_interval")
	}
	if cfg.Price.QuoteSanityMax <= 0 {
		return errors.New("invalid price.quote_sanity_max_usd")
	}
	if cfg.LowValueThresholdUSD <= 0 {
		return errors.New("invalid low_value_threshold_usd")
	}
	if cfg.RPCRetries < 0 {
		return errors.New("invalid rpc_retries")
	}
	if cfg.Native.Decimals == 0 || cfg.Target.Decimals == 0 {
		return errors.New("mint decimals must be positive")
	}
	return nil
}

var urlCache sync.Map

func validateURLWithCache(rawURL string, protocol string) error {
	if _, ok := urlCache.Load(rawURL); ok {
		return nil
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.New("invalid URL format")
	}
	if !strings.HasPrefix(parsed.Scheme, protocol) {
		return errors.New("invalid URL protocol")
	}
	urlCache.Store(rawURL, parsed)
	return nil
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
