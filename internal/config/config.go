package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/text/language"

	"github.com/kapu/subtitle-translator-go/internal/constants"
)

type Config struct {
	Server        ServerConfig
	OpenSubtitles OpenSubtitlesConfig
	Gemini        GeminiConfig
	OpenAI        OpenAIConfig
	Anthropic     AnthropicConfig
	Translation   TranslationConfig
	Selector      SelectorConfig
	Cache         CacheConfig
	Redis         RedisConfig
	Database      DatabaseConfig
	Entitlement   EntitlementConfig
	Logging       LoggingConfig
}

type ServerConfig struct {
	Port    int
	BaseURL string
}

type OpenSubtitlesConfig struct {
	APIKey    string
	UserAgent string
	Username  string
	Password  string
	BaseURL   string
}

type GeminiConfig struct {
	APIKey string
	Model  string
}

type OpenAIConfig struct {
	APIKey string
	Model  string
}

type AnthropicConfig struct {
	APIKey string
	Model  string
}

type TranslationConfig struct {
	Fallback          string
	BatchSize         int
	InterBatchDelay   time.Duration
	RateLimitCooldown time.Duration
	MaxRetries        int
	CallTimeout       time.Duration
	CachePartial      bool
}

type SelectorConfig struct {
	Priority  []string
	MaxOffers int
}

type CacheConfig struct {
	Backend       string
	Retention     time.Duration
	SweepSchedule string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type DatabaseConfig struct {
	Driver     string
	Host       string
	Port       int
	User       string
	Password   string
	Name       string
	SSLMode    string
	SQLitePath string
}

type EntitlementConfig struct {
	CountCacheHits   bool
	FreeTranslations int
}

type LoggingConfig struct {
	Level string
	File  string
}

const (
	CacheBackendRedis = "redis"
	CacheBackendSQL   = "sql"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	FallbackOpenAI    = "openai"
	FallbackAnthropic = "anthropic"
	FallbackNone      = "none"
)

// Load reads the environment (and .env if present) and validates the full service configuration.
func Load() (*Config, error) {
	cfg := LoadEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// LoadEnv reads the configuration without validating it.
func LoadEnv() *Config {
	_ = godotenv.Load()

	port := getEnvInt("PORT", 7000)

	return &Config{
		Server: ServerConfig{
			Port:    port,
			BaseURL: strings.TrimRight(getEnv("BASE_URL", fmt.Sprintf("http://localhost:%d", port)), "/"),
		},
		OpenSubtitles: OpenSubtitlesConfig{
			APIKey:    getEnv("OPENSUBTITLES_API_KEY", ""),
			UserAgent: getEnv("OPENSUBTITLES_USER_AGENT", constants.APIConfig.OpenSubtitlesUserAgent),
			Username:  getEnv("OPENSUBTITLES_USERNAME", ""),
			Password:  getEnv("OPENSUBTITLES_PASSWORD", ""),
			BaseURL:   getEnv("OPENSUBTITLES_BASE_URL", constants.APIConfig.OpenSubtitlesBaseURL),
		},
		Gemini: GeminiConfig{
			APIKey: getEnv("GEMINI_API_KEY", ""),
			Model:  getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		},
		OpenAI: OpenAIConfig{
			APIKey: getEnv("OPENAI_API_KEY", ""),
			Model:  getEnv("OPENAI_MODEL", "gpt-5-mini"),
		},
		Anthropic: AnthropicConfig{
			APIKey: getEnv("ANTHROPIC_API_KEY", ""),
			Model:  getEnv("ANTHROPIC_MODEL", "claude-haiku-4-5"),
		},
		Translation: TranslationConfig{
			Fallback:          strings.ToLower(getEnv("TRANSLATION_FALLBACK", FallbackOpenAI)),
			BatchSize:         getEnvInt("TRANSLATION_BATCH_SIZE", constants.TranslationDefaults.BatchSize),
			InterBatchDelay:   getEnvDuration("TRANSLATION_BATCH_DELAY", constants.TranslationDefaults.InterBatchDelay),
			RateLimitCooldown: getEnvDuration("TRANSLATION_RATE_LIMIT_COOLDOWN", constants.TranslationDefaults.RateLimitCooldown),
			MaxRetries:        getEnvInt("TRANSLATION_MAX_RETRIES", constants.TranslationDefaults.MaxRetries),
			CallTimeout:       getEnvDuration("TRANSLATION_CALL_TIMEOUT", constants.TranslationDefaults.CallTimeout),
			CachePartial:      getEnvBool("CACHE_PARTIAL_TRANSLATIONS", false),
		},
		Selector: SelectorConfig{
			Priority:  parseCommaSeparated(getEnv("SELECTOR_PRIORITY_LANGUAGES", strings.Join(constants.SelectorDefaults.Priority, ","))),
			MaxOffers: getEnvInt("SELECTOR_MAX_OFFERS", constants.SelectorDefaults.MaxOffers),
		},
		Cache: CacheConfig{
			Backend:       strings.ToLower(getEnv("CACHE_BACKEND", CacheBackendRedis)),
			Retention:     getEnvDuration("CACHE_RETENTION", constants.CacheTTL.TranslationRetention),
			SweepSchedule: getEnv("CACHE_SWEEP_SCHEDULE", constants.CacheTTL.SweepSchedule),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Database: DatabaseConfig{
			Driver:     strings.ToLower(getEnv("DB_DRIVER", DriverPostgres)),
			Host:       getEnv("POSTGRES_HOST", "localhost"),
			Port:       getEnvInt("POSTGRES_PORT", 5432),
			User:       getEnv("POSTGRES_USER", "subtrans"),
			Password:   getEnv("POSTGRES_PASSWORD", ""),
			Name:       getEnv("POSTGRES_DB", "subtrans"),
			SSLMode:    getEnv("POSTGRES_SSLMODE", "disable"),
			SQLitePath: getEnv("SQLITE_PATH", "data/subtrans.db"),
		},
		Entitlement: EntitlementConfig{
			CountCacheHits:   getEnvBool("ENTITLEMENT_COUNT_CACHE_HITS", true),
			FreeTranslations: getEnvInt("FREE_TRANSLATIONS_LIMIT", constants.EntitlementDefaults.FreeTranslations),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
			File:  getEnv("LOG_FILE", ""),
		},
	}
}

func (c *Config) Validate() error {
	if c.Gemini.APIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required")
	}
	if c.OpenSubtitles.APIKey == "" {
		return fmt.Errorf("OPENSUBTITLES_API_KEY is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535")
	}
	switch c.Translation.Fallback {
	case FallbackOpenAI, FallbackAnthropic, FallbackNone:
	default:
		return fmt.Errorf("TRANSLATION_FALLBACK must be one of openai, anthropic, none")
	}
	if c.Translation.BatchSize <= 0 {
		return fmt.Errorf("TRANSLATION_BATCH_SIZE must be positive")
	}
	if c.Translation.MaxRetries < 0 {
		return fmt.Errorf("TRANSLATION_MAX_RETRIES must not be negative")
	}
	if c.Selector.MaxOffers <= 0 {
		return fmt.Errorf("SELECTOR_MAX_OFFERS must be positive")
	}
	for _, code := range c.Selector.Priority {
		if _, err := language.Parse(code); err != nil {
			return fmt.Errorf("SELECTOR_PRIORITY_LANGUAGES contains invalid language %q: %w", code, err)
		}
	}
	return c.ValidateStorage()
}

// ValidateStorage checks only the settings needed to open the stores.
func (c *Config) ValidateStorage() error {
	switch c.Cache.Backend {
	case CacheBackendRedis, CacheBackendSQL:
	default:
		return fmt.Errorf("CACHE_BACKEND must be redis or sql")
	}
	if c.Cache.Retention <= 0 {
		return fmt.Errorf("CACHE_RETENTION must be positive")
	}
	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.Host == "" || c.Database.Name == "" {
			return fmt.Errorf("POSTGRES_HOST and POSTGRES_DB are required")
		}
	case DriverSQLite:
		if c.Database.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required")
		}
	default:
		return fmt.Errorf("DB_DRIVER must be postgres or sqlite")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("90s", "2160h") or plain seconds.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

func parseCommaSeparated(value string) []string {
	if value == "" {
		return []string{}
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.ToLower(strings.TrimSpace(part)); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
