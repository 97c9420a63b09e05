package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds environment-driven settings for the dashboard server.
type Config struct {
	Port string `yaml:"port"`

	// Logging
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"` // json or console

	// Localization
	Language string `yaml:"language"` // "en" or "zh"

	// Upstreams
	TradingBackendURL string        `yaml:"trading_backend_url"`
	TradingWSURL      string        `yaml:"trading_ws_url"`
	ExchangeAPIURL    string        `yaml:"exchange_api_url"`
	BinanceTestnet    bool          `yaml:"binance_testnet"`
	ProxyTimeout      time.Duration `yaml:"proxy_timeout"`

	// Stream
	DefaultMarket   string        `yaml:"default_market"` // spot or futures
	StreamSymbols   []string      `yaml:"stream_symbols"`
	WSPingInterval  time.Duration `yaml:"ws_ping_interval"`
	WSReconnectMax  time.Duration `yaml:"ws_reconnect_max"`
	FundingCacheTTL time.Duration `yaml:"funding_cache_ttl"`

	// Database
	DBPath              string `yaml:"db_path"`
	PersistOrderUpdates bool   `yaml:"persist_order_updates"`

	// Auth
	JWTSecret    string `yaml:"jwt_secret"`
	AuthRequired bool   `yaml:"auth_required"`
}

// Default returns the baseline configuration before file and env overrides.
func Default() *Config {
	return &Config{
		Port:                "8080",
		LogLevel:            "info",
		LogFormat:           "json",
		Language:            "en",
		TradingBackendURL:   "http://localhost:9000",
		TradingWSURL:        "ws://localhost:9000/ws",
		ExchangeAPIURL:      "https://fapi.binance.com",
		ProxyTimeout:        15 * time.Second,
		DefaultMarket:       "futures",
		StreamSymbols:       []string{"BTCUSDT", "ETHUSDT"},
		WSPingInterval:      20 * time.Second,
		WSReconnectMax:      30 * time.Second,
		FundingCacheTTL:     time.Minute,
		DBPath:              "./data/dashboard.db",
		PersistOrderUpdates: true,
		JWTSecret:           "dev-secret",
		AuthRequired:        true,
	}
}

// Load reads an optional YAML file (CONFIG_FILE) and then environment
// variables (optionally via .env) into Config. Env wins over the file.
func Load() (*Config, error) {
	// Ignore error so the app still starts when .env is missing.
	_ = godotenv.Load()

	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("decode config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Port = getEnv("PORT", c.Port)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFormat = strings.ToLower(getEnv("LOG_FORMAT", c.LogFormat))
	c.Language = getEnv("LANGUAGE", c.Language)
	c.TradingBackendURL = strings.TrimRight(getEnv("TRADING_BACKEND_URL", c.TradingBackendURL), "/")
	c.TradingWSURL = getEnv("TRADING_WS_URL", c.TradingWSURL)
	c.ExchangeAPIURL = strings.TrimRight(getEnv("EXCHANGE_API_URL", c.ExchangeAPIURL), "/")
	c.BinanceTestnet = getEnvBool("BINANCE_TESTNET", c.BinanceTestnet)
	c.ProxyTimeout = getEnvDuration("PROXY_TIMEOUT", c.ProxyTimeout)
	c.DefaultMarket = strings.ToLower(getEnv("DEFAULT_MARKET", c.DefaultMarket))
	if v := os.Getenv("STREAM_SYMBOLS"); v != "" {
		c.StreamSymbols = splitAndTrim(v)
	}
	c.WSPingInterval = getEnvDuration("WS_PING_INTERVAL", c.WSPingInterval)
	c.WSReconnectMax = getEnvDuration("WS_RECONNECT_MAX", c.WSReconnectMax)
	c.FundingCacheTTL = getEnvDuration("FUNDING_CACHE_TTL", c.FundingCacheTTL)

	// Database path: prefer DB_PATH, then DATABASE_PATH for backward compatibility.
	dbPath := getEnv("DB_PATH", "")
	if dbPath == "" {
		dbPath = getEnv("DATABASE_PATH", c.DBPath)
	}
	c.DBPath = dbPath
	c.PersistOrderUpdates = getEnvBool("PERSIST_ORDER_UPDATES", c.PersistOrderUpdates)

	c.JWTSecret = getEnv("JWT_SECRET", c.JWTSecret)
	c.AuthRequired = getEnvBool("AUTH_REQUIRED", c.AuthRequired)
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if c.Port == "" {
		errs = append(errs, errors.New("PORT is empty"))
	}
	if c.DefaultMarket != "spot" && c.DefaultMarket != "futures" {
		errs = append(errs, fmt.Errorf("DEFAULT_MARKET must be spot or futures, got %q", c.DefaultMarket))
	}
	if c.FundingCacheTTL <= 0 {
		errs = append(errs, errors.New("FUNDING_CACHE_TTL must be > 0"))
	}
	if c.AuthRequired && c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required when AUTH_REQUIRED=true"))
	}
	return errors.Join(errs...)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitAndTrim(val string) []string {
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, strings.ToUpper(t))
		}
	}
	return out
}

func getEnvBool(key string, def bool) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "1", "true", "yes":
		return true
	case "0", "false", "no":
		return false
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		if secs, err := strconv.Atoi(v); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return def
}
