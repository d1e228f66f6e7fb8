// Package config loads and validates the gateway's YAML configuration
// surface.
package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type Env string

const (
	EnvMainnet Env = "mainnet"
	EnvTestnet Env = "testnet"
)

const (
	mainnetRestBaseURL   = "https://mainnet.zklighter.elliot.ai"
	mainnetStreamBaseURL = "wss://mainnet.zklighter.elliot.ai/stream"
	testnetRestBaseURL   = "https://testnet.zklighter.elliot.ai"
	testnetStreamBaseURL = "wss://testnet.zklighter.elliot.ai/stream"
)

type Config struct {
	Env        Env            `yaml:"env"`
	Symbol     string         `yaml:"symbol"`
	Exchange   ExchangeConfig `yaml:"exchange"`
	Pacing     PacingConfig   `yaml:"pacing"`
	Polling    PollingConfig  `yaml:"polling"`
	Telegram   TelegramConfig `yaml:"telegram"`
	InstanceID string         `yaml:"instance_id"`
}

type ExchangeConfig struct {
	// MarketSymbol is the exchange-native symbol; defaults to Symbol.
	MarketSymbol string `yaml:"market_symbol"`
	AccountIndex int64  `yaml:"account_index"`
	// SigningKeys lists the registered API signing keys. At least one is
	// required for order mutation; submissions rotate across them.
	SigningKeys []SigningKeyConfig `yaml:"signing_keys"`
	RestBaseURL string             `yaml:"rest_base_url"`
	WSBaseURL   string             `yaml:"ws_base_url"`
	// MarketID and the decimal counts may be pinned to skip the metadata
	// fetch at startup. All three must be set together.
	MarketID      *int64 `yaml:"market_id"`
	PriceDecimals *int32 `yaml:"price_decimals"`
	SizeDecimals  *int32 `yaml:"size_decimals"`
	// MinBaseQty optionally overrides the exchange's minimum order size.
	MinBaseQty     Decimal `yaml:"min_base_qty"`
	HTTPTimeoutSec int64   `yaml:"http_timeout_sec"`
	// RestRatePerSec caps outbound REST calls (token bucket).
	RestRatePerSec float64 `yaml:"rest_rate_per_sec"`
	RestBurst      int     `yaml:"rest_burst"`
}

type SigningKeyConfig struct {
	Index      uint8  `yaml:"index"`
	PrivateKey string `yaml:"private_key"`
	// PrivateKeyPath is read when PrivateKey is empty.
	PrivateKeyPath string `yaml:"private_key_path"`
}

type PacingConfig struct {
	MinIntervalMs     int64 `yaml:"min_interval_ms"`
	PauseSec          int64 `yaml:"pause_sec"`
	RecoveryWindowSec int64 `yaml:"recovery_window_sec"`
}

type PollingConfig struct {
	TickerIntervalSec      int64    `yaml:"ticker_interval_sec"`
	KlineIntervalSec       int64    `yaml:"kline_interval_sec"`
	KlineIntervals         []string `yaml:"kline_intervals"`
	AccountSyncIntervalSec int64    `yaml:"account_sync_interval_sec"`
	HeartbeatSec           int64    `yaml:"heartbeat_sec"`
	StaleTimeoutSec        int64    `yaml:"stale_timeout_sec"`
	ReconnectDelaySec      int64    `yaml:"reconnect_delay_sec"`
	BookDepth              int      `yaml:"book_depth"`
}

type TelegramConfig struct {
	Enabled    bool   `yaml:"enabled"`
	BotToken   string `yaml:"bot_token"`
	ChatID     string `yaml:"chat_id"`
	APIBaseURL string `yaml:"api_base_url"`
	TimeoutSec int64  `yaml:"timeout_sec"`
}

func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	return Parse(data)
}

func Parse(data []byte) (Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return Config{}, fmt.Errorf("config must contain a single YAML document")
		}
		return Config{}, err
	}
	cfg.normalize()
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.Env = Env(strings.ToLower(strings.TrimSpace(string(c.Env))))
	c.Symbol = strings.ToUpper(strings.TrimSpace(c.Symbol))
	c.InstanceID = strings.ToLower(strings.TrimSpace(c.InstanceID))
	c.Exchange.MarketSymbol = strings.ToUpper(strings.TrimSpace(c.Exchange.MarketSymbol))
	c.Exchange.RestBaseURL = strings.TrimRight(strings.TrimSpace(c.Exchange.RestBaseURL), "/")
	c.Exchange.WSBaseURL = strings.TrimRight(strings.TrimSpace(c.Exchange.WSBaseURL), "/")
	for i := range c.Exchange.SigningKeys {
		c.Exchange.SigningKeys[i].PrivateKey = strings.TrimSpace(c.Exchange.SigningKeys[i].PrivateKey)
		c.Exchange.SigningKeys[i].PrivateKeyPath = strings.TrimSpace(c.Exchange.SigningKeys[i].PrivateKeyPath)
	}
	c.Telegram.BotToken = strings.TrimSpace(c.Telegram.BotToken)
	c.Telegram.ChatID = strings.TrimSpace(c.Telegram.ChatID)
	c.Telegram.APIBaseURL = strings.TrimSpace(c.Telegram.APIBaseURL)
}

func (c *Config) applyDefaults() {
	if c.Env == "" {
		c.Env = EnvTestnet
	}
	if c.InstanceID == "" {
		c.InstanceID = "default"
	}
	if c.Exchange.MarketSymbol == "" {
		c.Exchange.MarketSymbol = c.Symbol
	}
	if c.Exchange.RestBaseURL == "" {
		switch c.Env {
		case EnvMainnet:
			c.Exchange.RestBaseURL = mainnetRestBaseURL
		case EnvTestnet:
			c.Exchange.RestBaseURL = testnetRestBaseURL
		}
	}
	if c.Exchange.WSBaseURL == "" {
		switch c.Env {
		case EnvMainnet:
			c.Exchange.WSBaseURL = mainnetStreamBaseURL
		case EnvTestnet:
			c.Exchange.WSBaseURL = testnetStreamBaseURL
		}
	}
	if c.Exchange.HTTPTimeoutSec == 0 {
		c.Exchange.HTTPTimeoutSec = 15
	}
	if c.Exchange.RestRatePerSec == 0 {
		c.Exchange.RestRatePerSec = 8
	}
	if c.Exchange.RestBurst == 0 {
		c.Exchange.RestBurst = 4
	}
	if c.Pacing.MinIntervalMs == 0 {
		c.Pacing.MinIntervalMs = 250
	}
	if c.Pacing.PauseSec == 0 {
		c.Pacing.PauseSec = 30
	}
	if c.Pacing.RecoveryWindowSec == 0 {
		c.Pacing.RecoveryWindowSec = 60
	}
	if c.Polling.TickerIntervalSec == 0 {
		c.Polling.TickerIntervalSec = 5
	}
	if c.Polling.KlineIntervalSec == 0 {
		c.Polling.KlineIntervalSec = 60
	}
	if len(c.Polling.KlineIntervals) == 0 {
		c.Polling.KlineIntervals = []string{"1m"}
	}
	if c.Polling.AccountSyncIntervalSec == 0 {
		c.Polling.AccountSyncIntervalSec = 60
	}
	if c.Polling.HeartbeatSec == 0 {
		c.Polling.HeartbeatSec = 15
	}
	if c.Polling.StaleTimeoutSec == 0 {
		c.Polling.StaleTimeoutSec = 45
	}
	if c.Polling.ReconnectDelaySec == 0 {
		c.Polling.ReconnectDelaySec = 3
	}
	if c.Polling.BookDepth == 0 {
		c.Polling.BookDepth = 50
	}
	if c.Telegram.APIBaseURL == "" {
		c.Telegram.APIBaseURL = "https://api.telegram.org"
	}
	if c.Telegram.TimeoutSec == 0 {
		c.Telegram.TimeoutSec = 10
	}
}

func (c Config) Validate() error {
	switch c.Env {
	case EnvMainnet, EnvTestnet:
	default:
		return fmt.Errorf("env must be mainnet or testnet")
	}
	if c.Symbol == "" {
		return fmt.Errorf("symbol is required")
	}
	if c.Exchange.AccountIndex < 0 {
		return fmt.Errorf("account_index must be >= 0")
	}
	seen := make(map[uint8]bool, len(c.Exchange.SigningKeys))
	for _, key := range c.Exchange.SigningKeys {
		if seen[key.Index] {
			return fmt.Errorf("duplicate signing key index %d", key.Index)
		}
		seen[key.Index] = true
		if key.PrivateKey == "" && key.PrivateKeyPath == "" {
			return fmt.Errorf("signing key %d: private_key or private_key_path required", key.Index)
		}
	}
	pinned := 0
	for _, p := range []bool{c.Exchange.MarketID != nil, c.Exchange.PriceDecimals != nil, c.Exchange.SizeDecimals != nil} {
		if p {
			pinned++
		}
	}
	if pinned != 0 && pinned != 3 {
		return fmt.Errorf("market_id, price_decimals, and size_decimals must be set together")
	}
	if c.Exchange.PriceDecimals != nil && *c.Exchange.PriceDecimals < 0 {
		return fmt.Errorf("price_decimals must not be negative, got %d", *c.Exchange.PriceDecimals)
	}
	if c.Exchange.SizeDecimals != nil && *c.Exchange.SizeDecimals < 0 {
		return fmt.Errorf("size_decimals must not be negative, got %d", *c.Exchange.SizeDecimals)
	}
	if c.Telegram.Enabled && (c.Telegram.BotToken == "" || c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram requires bot_token and chat_id when enabled")
	}
	return nil
}
