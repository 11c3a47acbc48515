package constants

import "time"

var CacheTTL = struct {
	TranslationRetention time.Duration
	ProviderToken        time.Duration
	SearchResults        time.Duration
	SweepSchedule        string
}{
	TranslationRetention: 90 * 24 * time.Hour, // 90 days from creation
	ProviderToken:        23 * time.Hour,      // OpenSubtitles login token
	SearchResults:        1 * time.Hour,
	SweepSchedule:        "@every 6h",
}

var RedisConfig = struct {
	ReadyTimeout time.Duration
	KeyPrefix    string
	ScanBatch    int64
	SearchPrefix string
}{
	ReadyTimeout: 5 * time.Second,
	KeyPrefix:    "subtrans:cache:",
	ScanBatch:    500,
	SearchPrefix: "subtrans:search:",
}

var TranslationDefaults = struct {
	BatchSize         int
	Separator         string
	InterBatchDelay   time.Duration
	RateLimitCooldown time.Duration
	MaxRetries        int
	CallTimeout       time.Duration
	Temperature       float32
	MaxOutputTokens   int
}{
	BatchSize:         15,
	Separator:         "\n---\n",
	InterBatchDelay:   1 * time.Second,
	RateLimitCooldown: 60 * time.Second,
	MaxRetries:        1,
	CallTimeout:       90 * time.Second,
	Temperature:       0.3,
	MaxOutputTokens:   8192,
}

var SelectorDefaults = struct {
	Priority  []string
	MaxOffers int
}{
	Priority:  []string{"en", "es", "fr", "de", "it"},
	MaxOffers: 5,
}

var EntitlementDefaults = struct {
	FreeTranslations int
	TrialPeriod      time.Duration
	APIKeyPrefix     string
	APIKeyBytes      int
	DefaultLanguage  string
}{
	FreeTranslations: 5,
	TrialPeriod:      7 * 24 * time.Hour,
	APIKeyPrefix:     "sk_",
	APIKeyBytes:      32,
	DefaultLanguage:  "ro",
}

var CircuitBreakerConfig = struct {
	FailureThreshold    int
	ResetTimeout        time.Duration
	RateLimitTimeout    time.Duration
	HealthCheckInterval time.Duration
	HealthCheckTimeout  time.Duration
}{
	FailureThreshold:    3,                // open after 3 consecutive failures
	ResetTimeout:        30 * time.Second, // default wait before HALF_OPEN
	RateLimitTimeout:    60 * time.Second, // 429 keeps the circuit open for one cooldown
	HealthCheckInterval: 5 * time.Minute,
	HealthCheckTimeout:  10 * time.Second,
}

var APIConfig = struct {
	OpenSubtitlesBaseURL     string
	OpenSubtitlesDownloadURL string
	OpenSubtitlesUserAgent   string
	SearchTimeout            time.Duration
	DownloadTimeout          time.Duration
	FetchTimeout             time.Duration
	MaxErrorBody             int64
	MaxDocumentBytes         int64
}{
	OpenSubtitlesBaseURL:     "https://api.opensubtitles.com/api/v1",
	OpenSubtitlesDownloadURL: "https://rest.opensubtitles.org/download",
	OpenSubtitlesUserAgent:   "SubtitleTranslator v2.0",
	SearchTimeout:            10 * time.Second,
	DownloadTimeout:          10 * time.Second,
	FetchTimeout:             30 * time.Second,
	MaxErrorBody:             4096,
	MaxDocumentBytes:         10 << 20,
}

var ServerConfig = struct {
	ReadHeaderTimeout time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
	ProgressBuffer    int
	PingInterval      time.Duration
}{
	ReadHeaderTimeout: 10 * time.Second,
	WriteTimeout:      30 * time.Minute, // a cold translation of a long film can take minutes
	IdleTimeout:       120 * time.Second,
	ShutdownTimeout:   10 * time.Second,
	ProgressBuffer:    32,
	PingInterval:      30 * time.Second,
}
