package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// RPC settings
	RPCUrl       string
	RPCRateLimit float64
	RPCRateBurst int
	PollInterval time.Duration

	// Stream provider: "poll" or "ws"
	StreamProvider string
	WSUrl          string

	// Pool registry
	PoolConfigPath string

	// Redis settings
	RedisAddr string

	// ClickHouse settings
	ClickHouseAddr     string
	ClickHouseDatabase string
	ClickHouseUsername string
	ClickHousePassword string

	// HTTP client settings
	HTTPTimeout  time.Duration
	MaxRetries   int
	RetryBackoff time.Duration

	// API server
	APIAddr        string
	APIKey         string
	DevMode        bool
	QuoteRateLimit float64
}

func Load() *Config {
	return &Config{
		// RPC
		RPCUrl:       getEnv("SOLANA_RPC_URL", "https://api.mainnet-beta.solana.com"),
		RPCRateLimit: getFloatEnv("RPC_RATE_LIMIT", 5),
		RPCRateBurst: getIntEnv("RPC_RATE_BURST", 2),
		PollInterval: getDurationEnv("POLL_INTERVAL", 10*time.Second),

		// Stream
		StreamProvider: getEnv("STREAM_PROVIDER", "poll"),
		WSUrl:          getEnv("SOLANA_WS_URL", ""),

		PoolConfigPath: getEnv("POOL_CONFIG_PATH", "config/pools.json"),

		// Redis
		RedisAddr: getEnv("REDIS_ADDR", "localhost:6379"),

		// ClickHouse
		ClickHouseAddr:     getEnv("CLICKHOUSE_ADDR", "localhost:9000"),
		ClickHouseDatabase: getEnv("CLICKHOUSE_DATABASE", "solana"),
		ClickHouseUsername: getEnv("CLICKHOUSE_USERNAME", "default"),
		ClickHousePassword: getEnv("CLICKHOUSE_PASSWORD", ""),

		// HTTP
		HTTPTimeout:  getDurationEnv("HTTP_TIMEOUT", 30*time.Second),
		MaxRetries:   getIntEnv("MAX_RETRIES", 5),
		RetryBackoff: getDurationEnv("RETRY_BACKOFF", 2*time.Second),

		// API
		APIAddr:        getEnv("API_ADDR", ":8080"),
		APIKey:         getEnv("API_KEY", ""),
		DevMode:        getBoolEnv("DEV_MODE", false),
		QuoteRateLimit: getFloatEnv("QUOTE_RATE_LIMIT", 20),
	}
}

// Validate reports the first invalid setting
func (c *Config) Validate() error {
	u, err := url.Parse(c.RPCUrl)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("SOLANA_RPC_URL must be an http(s) URL, got %q", c.RPCUrl)
	}
	if c.RPCRateLimit < 0 {
		return fmt.Errorf("RPC_RATE_LIMIT must be >= 0")
	}
	if c.StreamProvider != "poll" && c.StreamProvider != "ws" {
		return fmt.Errorf("STREAM_PROVIDER must be poll or ws, got %q", c.StreamProvider)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("POLL_INTERVAL must be positive")
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("MAX_RETRIES must be >= 0")
	}
	if strings.TrimSpace(c.PoolConfigPath) == "" {
		return fmt.Errorf("POOL_CONFIG_PATH is required")
	}
	if c.RedisAddr == "" {
		return fmt.Errorf("REDIS_ADDR is required")
	}
	if c.QuoteRateLimit <= 0 {
		return fmt.Errorf("QUOTE_RATE_LIMIT must be positive")
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getIntEnv(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getFloatEnv(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getBoolEnv(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getDurationEnv(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
