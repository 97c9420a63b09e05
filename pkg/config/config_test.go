package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("PORT", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "futures", cfg.DefaultMarket)
	assert.Equal(t, time.Minute, cfg.FundingCacheTTL)
	assert.Equal(t, []string{"BTCUSDT", "ETHUSDT"}, cfg.StreamSymbols)
}

func TestLoadFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dashboard.yaml")
	body := []byte("port: \"9090\"\nlanguage: zh\nfunding_cache_ttl: 90s\nstream_symbols: [SOLUSDT]\n")
	require.NoError(t, os.WriteFile(path, body, 0o600))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "7070")
	t.Setenv("WS_PING_INTERVAL", "5")
	t.Setenv("TRADING_BACKEND_URL", "http://backend:9000/")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "7070", cfg.Port, "env overrides file")
	assert.Equal(t, "zh", cfg.Language)
	assert.Equal(t, 90*time.Second, cfg.FundingCacheTTL)
	assert.Equal(t, []string{"SOLUSDT"}, cfg.StreamSymbols)
	assert.Equal(t, 5*time.Second, cfg.WSPingInterval)
	assert.Equal(t, "http://backend:9000", cfg.TradingBackendURL)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "bad market", mutate: func(c *Config) { c.DefaultMarket = "margin" }, wantErr: true},
		{name: "zero ttl", mutate: func(c *Config) { c.FundingCacheTTL = 0 }, wantErr: true},
		{name: "auth without secret", mutate: func(c *Config) { c.JWTSecret = "" }, wantErr: true},
		{name: "no auth no secret", mutate: func(c *Config) { c.JWTSecret = ""; c.AuthRequired = false }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}
