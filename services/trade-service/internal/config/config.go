package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/quangdang46/gu-marketplace/shared/env"
	"github.com/quangdang46/gu-marketplace/shared/redis"
)

const (
	WalletModeRPC = "rpc"
	WalletModeKey = "key"
)

// Config contains configuration for the trade service
type Config struct {
	BackendURL   string
	PriceFeedURL string
	Wallet       WalletConfig
	Redis        redis.RedisConfig
	UseRedis     bool
	SentryDSN    string
	MetricsAddr  string
	Polling      PollingConfig
	HTTP         HTTPConfig
	PriceFeed    PriceFeedConfig
}

// WalletConfig selects how the wallet provider is reached.
type WalletConfig struct {
	Mode        string
	RPCURL      string
	NodeURL     string
	PrivateKeys []string
	AutoApprove bool
}

// PollingConfig controls receipt confirmation polling.
type PollingConfig struct {
	Interval    time.Duration
	MaxAttempts int
}

type HTTPConfig struct {
	Timeout  time.Duration
	RetryMax int
}

type PriceFeedConfig struct {
	CacheTTL        time.Duration
	RatePerSecond   float64
	Burst           int
	BreakerFailures int
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	log.Println("Loading Trade Service configuration...")

	c := &Config{
		BackendURL:   strings.TrimRight(env.GetString("BACKEND_URL", "http://localhost:3000"), "/"),
		PriceFeedURL: strings.TrimRight(env.GetString("PRICE_FEED_URL", "https://api.coingecko.com/api/v3"), "/"),
		Wallet:       loadWalletConfig(),
		Redis:        loadRedisConfig(),
		UseRedis:     env.GetBool("USE_REDIS", false),
		SentryDSN:    env.GetString("SENTRY_DSN", ""),
		MetricsAddr:  env.GetString("METRICS_ADDR", ":9102"),
		Polling: PollingConfig{
			Interval:    env.GetDuration("RECEIPT_POLL_INTERVAL", time.Second),
			MaxAttempts: env.GetInt("RECEIPT_POLL_MAX_ATTEMPTS", 60),
		},
		HTTP: HTTPConfig{
			Timeout:  env.GetDuration("HTTP_TIMEOUT", 30*time.Second),
			RetryMax: env.GetInt("HTTP_RETRY_MAX", 3),
		},
		PriceFeed: PriceFeedConfig{
			CacheTTL:        env.GetDuration("PRICE_CACHE_TTL", time.Minute),
			RatePerSecond:   env.GetFloat("PRICE_FEED_RATE", 0.5),
			Burst:           env.GetInt("PRICE_FEED_BURST", 2),
			BreakerFailures: env.GetInt("PRICE_FEED_BREAKER_FAILURES", 3),
		},
	}

	log.Printf("Trade config loaded - backend=%s wallet=%s redis=%t", c.BackendURL, c.Wallet.Mode, c.UseRedis)
	return c
}

func loadWalletConfig() WalletConfig {
	return WalletConfig{
		Mode:        strings.ToLower(env.GetString("WALLET_MODE", WalletModeRPC)),
		RPCURL:      env.GetString("WALLET_RPC_URL", "http://localhost:8545"),
		NodeURL:     env.GetString("CHAIN_RPC_URL", ""),
		PrivateKeys: env.GetStringSlice("WALLET_PRIVATE_KEYS", nil),
		AutoApprove: env.GetBool("WALLET_AUTO_APPROVE", false),
	}
}

func loadRedisConfig() redis.RedisConfig {
	return redis.RedisConfig{
		RedisHost:     env.GetString("REDIS_HOST", "localhost"),
		RedisPort:     env.GetInt("REDIS_PORT", 6379),
		RedisPassword: env.GetString("REDIS_PASSWORD", ""),
		RedisDB:       env.GetInt("REDIS_DB", 0),
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.BackendURL == "" {
		return fmt.Errorf("BACKEND_URL is required")
	}
	switch c.Wallet.Mode {
	case WalletModeRPC:
		if c.Wallet.RPCURL == "" {
			return fmt.Errorf("WALLET_RPC_URL is required in rpc mode")
		}
	case WalletModeKey:
		if len(c.Wallet.PrivateKeys) == 0 {
			return fmt.Errorf("WALLET_PRIVATE_KEYS is required in key mode")
		}
	default:
		return fmt.Errorf("unsupported WALLET_MODE %q", c.Wallet.Mode)
	}
	if c.Polling.Interval <= 0 || c.Polling.MaxAttempts <= 0 {
		return fmt.Errorf("receipt polling interval and max attempts must be positive")
	}
	if c.UseRedis && c.Redis.RedisHost == "" {
		return fmt.Errorf("REDIS_HOST is required when USE_REDIS is set")
	}
	log.Println("Trade Service configuration validation passed")
	return nil
}
