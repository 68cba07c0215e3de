package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"SERVER_PORT", "SERVER_HOST", "SERVER_ENABLE_TLS", "DATABASE_PATH",
		"RATE_LIMIT_ENABLED", "RATE_LIMIT_RATE", "REDIS_ADDR", "CACHE_TTL_SECONDS",
		"LOG_LEVEL", "LOG_FILE", "TRACING_ENABLED",
	} {
		t.Setenv(key, "")
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "./vendor_rewards.db", cfg.Database.Path)
	assert.Equal(t, 5000, cfg.Database.BusyTimeoutMS)
	assert.Equal(t, int64(1<<20), cfg.Security.MaxRequestBodySize)
	assert.True(t, cfg.RateLimit.Enabled)
	assert.Equal(t, 60, cfg.Cache.TTLSeconds)
	assert.Empty(t, cfg.Cache.RedisAddr)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_JSONFile(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "config.json", `{
		"server": {"port": "9000"},
		"database": {"path": "/tmp/rewards.db"},
		"cache": {"redis_addr": "localhost:6379", "ttl_seconds": 30},
		"features": {"strict_redemption_mode": true}
	}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "/tmp/rewards.db", cfg.Database.Path)
	assert.Equal(t, "localhost:6379", cfg.Cache.RedisAddr)
	assert.Equal(t, 30, cfg.Cache.TTLSeconds)
	assert.True(t, cfg.Features["strict_redemption_mode"])
}

func TestLoadConfig_YAMLFile(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "config.yaml", `
server:
  port: "7000"
rate_limit:
  enabled: false
logging:
  level: debug
features:
  cache_enabled: false
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "7000", cfg.Server.Port)
	assert.False(t, cfg.RateLimit.Enabled)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.False(t, cfg.Features["cache_enabled"])
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "config.json", `{"server": {"port": "9000"}, "logging": {"level": "warn"}}`)
	t.Setenv("SERVER_PORT", "9100")
	t.Setenv("FEATURE_STRICT_REDEMPTION_MODE", "1")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "9100", cfg.Server.Port)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.True(t, cfg.Features["strict_redemption_mode"])
}

func TestLoadConfig_MissingFile(t *testing.T) {
	clearEnv(t)

	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestLoadConfig_InvalidJSON(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "config.json", `{"server":`)

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	clearEnv(t)

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "empty port", mutate: func(c *Config) { c.Server.Port = "" }},
		{name: "empty database path", mutate: func(c *Config) { c.Database.Path = "" }},
		{name: "tls without cert", mutate: func(c *Config) { c.Server.EnableTLS = true }},
		{name: "zero body size", mutate: func(c *Config) { c.Security.MaxRequestBodySize = 0 }},
		{name: "zero rate", mutate: func(c *Config) { c.RateLimit.Rate = 0 }},
		{name: "zero window", mutate: func(c *Config) { c.RateLimit.Window = 0 }},
		{name: "negative ttl", mutate: func(c *Config) { c.Cache.TTLSeconds = -1 }},
		{name: "sample ratio", mutate: func(c *Config) { c.Tracing.SampleRatio = 2 }},
		{name: "log level", mutate: func(c *Config) { c.Logging.Level = "verbose" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadConfig("")
			require.NoError(t, err)
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestAllowedOrigins(t *testing.T) {
	cfg := &Config{Security: SecurityConfig{AllowedOrigins: " https://a.example , ,https://b.example"}}
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins())

	cfg.Security.AllowedOrigins = ""
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins())
}
