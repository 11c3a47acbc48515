package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("GEMINI_API_KEY", "gemini-key")
	t.Setenv("OPENSUBTITLES_API_KEY", "os-key")
	t.Setenv("PORT", "7000")
	t.Setenv("BASE_URL", "")
	t.Setenv("TRANSLATION_FALLBACK", "")
	t.Setenv("CACHE_BACKEND", "")
	t.Setenv("DB_DRIVER", "")
	t.Setenv("SELECTOR_PRIORITY_LANGUAGES", "")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:7000", cfg.Server.BaseURL)
	assert.Equal(t, FallbackOpenAI, cfg.Translation.Fallback)
	assert.Equal(t, CacheBackendRedis, cfg.Cache.Backend)
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, []string{"en", "es", "fr", "de", "it"}, cfg.Selector.Priority)
}

func TestLoadOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("BASE_URL", "https://subs.example.com/")
	t.Setenv("TRANSLATION_FALLBACK", "Anthropic")
	t.Setenv("TRANSLATION_BATCH_DELAY", "250ms")
	t.Setenv("TRANSLATION_RATE_LIMIT_COOLDOWN", "30")
	t.Setenv("CACHE_BACKEND", "sql")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", "/tmp/subs.db")
	t.Setenv("SELECTOR_PRIORITY_LANGUAGES", "FR, de ,,en")
	t.Setenv("ENTITLEMENT_COUNT_CACHE_HITS", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://subs.example.com", cfg.Server.BaseURL)
	assert.Equal(t, FallbackAnthropic, cfg.Translation.Fallback)
	assert.Equal(t, 250*time.Millisecond, cfg.Translation.InterBatchDelay)
	assert.Equal(t, 30*time.Second, cfg.Translation.RateLimitCooldown)
	assert.Equal(t, CacheBackendSQL, cfg.Cache.Backend)
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, []string{"fr", "de", "en"}, cfg.Selector.Priority)
	assert.False(t, cfg.Entitlement.CountCacheHits)
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"missing gemini key", func(c *Config) { c.Gemini.APIKey = "" }, "GEMINI_API_KEY"},
		{"missing opensubtitles key", func(c *Config) { c.OpenSubtitles.APIKey = "" }, "OPENSUBTITLES_API_KEY"},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, "PORT"},
		{"bad fallback", func(c *Config) { c.Translation.Fallback = "llama" }, "TRANSLATION_FALLBACK"},
		{"zero batch", func(c *Config) { c.Translation.BatchSize = 0 }, "TRANSLATION_BATCH_SIZE"},
		{"bad priority", func(c *Config) { c.Selector.Priority = []string{"not a language"} }, "SELECTOR_PRIORITY_LANGUAGES"},
		{"bad cache backend", func(c *Config) { c.Cache.Backend = "memcached" }, "CACHE_BACKEND"},
		{"bad driver", func(c *Config) { c.Database.Driver = "mysql" }, "DB_DRIVER"},
		{"sqlite without path", func(c *Config) {
			c.Database.Driver = DriverSQLite
			c.Database.SQLitePath = ""
		}, "SQLITE_PATH"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			cfg := LoadEnv()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
