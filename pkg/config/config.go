// Package config defines the gateway's runtime configuration: bundler node
// endpoint, storage chain, retrieval gateway, user directory and CDN
// endpoints, the authentication challenge, funding policy multipliers, and
// operation timeouts. Values load from the environment (prefix GATEWAY_) with
// an optional YAML file underneath, and Validate fills implicit defaults.
package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all settings required to run the upload gateway.
// Use Validate to fill implicit defaults and check required fields.
type Config struct {
	// ListenAddr is the HTTP bind address. Default: ":8000".
	ListenAddr string `mapstructure:"listen_addr"`
	// NodeURL is the bundler node funding and content transactions go to.
	// Default: https://node1.bundlr.network
	NodeURL string `mapstructure:"node_url"`
	// Chain is the currency the node account is denominated in.
	// Default: solana.
	Chain string `mapstructure:"chain"`
	// GatewayURL is the retrieval base the transaction id is appended to.
	// Default: https://arweave.net/
	GatewayURL string `mapstructure:"gateway_url"`
	// DirectoryURL is the user directory API base URL.
	// Default: https://wordcelclub.com/api
	DirectoryURL string `mapstructure:"directory_url"`
	// CacheEndpoint is the CDN cache-warm endpoint. Empty disables warming.
	CacheEndpoint string `mapstructure:"cache_endpoint"`
	// Challenge is the fixed message callers sign to prove key ownership.
	// Default: WORDCEL. It is not a nonce; rotating it invalidates clients.
	Challenge string `mapstructure:"challenge"`
	// SecretKeyEnv names the environment variable carrying the gateway
	// keypair (JSON byte array). Default: BUNDLR_PRIVATE_KEY. The secret
	// itself never passes through this package.
	SecretKeyEnv string `mapstructure:"secret_key_env"`
	// AllowedOrigins restricts CORS. Empty means allow all.
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	// Debug enables verbose logging.
	Debug bool `mapstructure:"debug"`
	// Funding holds the per-variant multipliers of the funding decision.
	Funding Funding `mapstructure:"funding"`
	// Timeouts configures per-operation deadlines.
	Timeouts Timeouts `mapstructure:"timeouts"`
}

// Funding carries the policy knobs of the funding-gated upload protocol.
// Safety multipliers decide when the balance is "enough" (balance >= price *
// safety); fund multipliers size the top-up (price * fund). They trade
// funding-transaction frequency against idle capital and are deliberately
// generous for JSON, whose documents are tiny.
type Funding struct {
	ImageSafety int64 `mapstructure:"image_safety"`
	ImageFund   int64 `mapstructure:"image_fund"`
	JSONSafety  int64 `mapstructure:"json_safety"`
	JSONFund    int64 `mapstructure:"json_fund"`
}

// Timeouts controls gateway operation deadlines.
// Zero values are replaced by sane defaults in WithDefaults.
type Timeouts struct {
	Node      time.Duration `mapstructure:"node"`      // bundler node requests
	Directory time.Duration `mapstructure:"directory"` // user directory lookups
	Fetch     time.Duration `mapstructure:"fetch"`     // remote blob downloads
	CacheWarm time.Duration `mapstructure:"cache_warm"`
	Shutdown  time.Duration `mapstructure:"shutdown"` // graceful HTTP shutdown
}

// Validate normalizes the configuration: it applies implicit defaults for
// every endpoint, the chain, the challenge and the funding multipliers, and
// rejects non-positive multipliers that were set explicitly.
func (c *Config) Validate() error {

	if c.ListenAddr == "" {
		c.ListenAddr = ":8000"
	}

	if c.NodeURL == "" {
		c.NodeURL = "https://node1.bundlr.network"
	}

	if c.Chain == "" {
		c.Chain = "solana"
	}

	if c.GatewayURL == "" {
		c.GatewayURL = "https://arweave.net/"
	}
	if !strings.HasSuffix(c.GatewayURL, "/") {
		c.GatewayURL += "/"
	}

	if c.DirectoryURL == "" {
		c.DirectoryURL = "https://wordcelclub.com/api"
	}

	if c.Challenge == "" {
		c.Challenge = "WORDCEL"
	}

	if c.SecretKeyEnv == "" {
		c.SecretKeyEnv = "BUNDLR_PRIVATE_KEY"
	}

	c.Funding = c.Funding.withDefaults()
	if c.Funding.ImageSafety <= 0 || c.Funding.ImageFund <= 0 ||
		c.Funding.JSONSafety <= 0 || c.Funding.JSONFund <= 0 {
		return errors.New("funding multipliers must be positive")
	}

	return nil
}

// withDefaults fills zero multipliers with the observed production policy:
// images fund at 50x with a 3x safety margin, JSON documents at 100x with a
// 50x margin.
func (f Funding) withDefaults() Funding {
	ff := f
	if ff.ImageSafety == 0 {
		ff.ImageSafety = 3
	}
	if ff.ImageFund == 0 {
		ff.ImageFund = 50
	}
	if ff.JSONSafety == 0 {
		ff.JSONSafety = 50
	}
	if ff.JSONFund == 0 {
		ff.JSONFund = 100
	}
	return ff
}

// WithDefaults returns a copy of t with zero values replaced by defaults:
//
//	Node:      60s
//	Directory: 10s
//	Fetch:     30s
//	CacheWarm: 10s
//	Shutdown:  15s
func (t Timeouts) WithDefaults() Timeouts {
	tt := t
	if tt.Node == 0 {
		tt.Node = 60 * time.Second
	}
	if tt.Directory == 0 {
		tt.Directory = 10 * time.Second
	}
	if tt.Fetch == 0 {
		tt.Fetch = 30 * time.Second
	}
	if tt.CacheWarm == 0 {
		tt.CacheWarm = 10 * time.Second
	}
	if tt.Shutdown == 0 {
		tt.Shutdown = 15 * time.Second
	}
	return tt
}

// Load reads configuration from the environment (GATEWAY_ prefix, e.g.
// GATEWAY_NODE_URL) layered over an optional YAML file. path may be empty;
// a missing file is not an error, only an unreadable or malformed one is.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("GATEWAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Keys must be known to viper for AutomaticEnv to pick them up.
	for _, key := range []string{
		"listen_addr", "node_url", "chain", "gateway_url", "directory_url",
		"cache_endpoint", "challenge", "secret_key_env", "allowed_origins", "debug",
		"funding.image_safety", "funding.image_fund", "funding.json_safety", "funding.json_fund",
		"timeouts.node", "timeouts.directory", "timeouts.fetch", "timeouts.cache_warm", "timeouts.shutdown",
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, err
		}
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, err
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.Timeouts = cfg.Timeouts.WithDefaults()
	return cfg, nil
}
