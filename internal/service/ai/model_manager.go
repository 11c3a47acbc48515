package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/kapu/subtitle-translator-go/internal/constants"
	"github.com/kapu/subtitle-translator-go/internal/prompt"
	"github.com/kapu/subtitle-translator-go/internal/util"
	"github.com/kapu/subtitle-translator-go/pkg/errors"
)

const backendName = "translation backend"

// ModelManager is the translation backend: Gemini first, an optional fallback
// provider second, both behind one circuit breaker.
type ModelManager struct {
	primary          TextProvider
	fallback         TextProvider
	logger           *zap.Logger
	circuitBreaker   *util.CircuitBreaker
	separator        string
	rateLimitTimeout time.Duration
}

type ModelManagerConfig struct {
	GeminiAPIKey      string
	GeminiModel       string
	OpenAIAPIKey      string
	OpenAIModel       string
	AnthropicAPIKey   string
	AnthropicModel    string
	Fallback          string // openai | anthropic | none
	Separator         string
	RateLimitCooldown time.Duration
}

func NewModelManager(ctx context.Context, cfg ModelManagerConfig, logger *zap.Logger) (*ModelManager, error) {
	geminiClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	geminiModel := cfg.GeminiModel
	if geminiModel == "" {
		geminiModel = "gemini-2.5-flash"
	}
	primary := NewGeminiProvider(geminiClient, geminiModel, logger)

	var fallback TextProvider
	switch cfg.Fallback {
	case "openai":
		model := cfg.OpenAIModel
		if model == "" {
			model = "gpt-5-mini"
		}
		if p := NewOpenAIProvider(cfg.OpenAIAPIKey, model, logger); p != nil {
			fallback = p
			logger.Info("OpenAI fallback enabled", zap.String("model", model))
		}
	case "anthropic":
		model := cfg.AnthropicModel
		if model == "" {
			model = string(anthropic.ModelClaudeHaiku4_5)
		}
		if p := NewAnthropicProvider(cfg.AnthropicAPIKey, model, logger); p != nil {
			fallback = p
			logger.Info("Anthropic fallback enabled", zap.String("model", model))
		}
	}
	if fallback == nil {
		logger.Info("Translation fallback disabled", zap.String("configured", cfg.Fallback))
	}

	mm := NewModelManagerWithProviders(primary, fallback, cfg.RateLimitCooldown, logger)
	if cfg.Separator != "" {
		mm.separator = cfg.Separator
	}
	return mm, nil
}

// NewModelManagerWithProviders wires already-built providers; fallback may be nil.
func NewModelManagerWithProviders(primary, fallback TextProvider, rateLimitCooldown time.Duration, logger *zap.Logger) *ModelManager {
	if rateLimitCooldown <= 0 {
		rateLimitCooldown = constants.CircuitBreakerConfig.RateLimitTimeout
	}

	mm := &ModelManager{
		primary:          primary,
		fallback:         fallback,
		logger:           logger,
		separator:        constants.TranslationDefaults.Separator,
		rateLimitTimeout: rateLimitCooldown,
	}
	mm.circuitBreaker = util.NewCircuitBreaker("translation-backend", util.BreakerConfig{
		FailureThreshold:    constants.CircuitBreakerConfig.FailureThreshold,
		ResetTimeout:        constants.CircuitBreakerConfig.ResetTimeout,
		HealthCheckInterval: constants.CircuitBreakerConfig.HealthCheckInterval,
	}, mm.healthCheckPing, logger)

	return mm
}

// TranslateBlock translates a separator-joined block of cue texts. Failures are
// classified as RateLimited, BackendUnavailable or a plain service error.
func (mm *ModelManager) TranslateBlock(ctx context.Context, text, sourceLangName, targetLangName string) (string, error) {
	if !mm.circuitBreaker.CanExecute() {
		status := mm.circuitBreaker.GetStatus()
		nextRetry := "unknown"
		if status.NextRetryTime != nil {
			nextRetry = status.NextRetryTime.Format(time.RFC3339)
		}

		mm.logger.Warn("Translation backend unavailable (Circuit OPEN)",
			zap.Int("failure_count", status.FailureCount),
			zap.String("next_retry", nextRetry),
		)
		return "", errors.NewBackendUnavailableError(backendName, fmt.Errorf("circuit open until %s", nextRetry))
	}

	p, err := prompt.BuildSubtitleTranslation(prompt.TranslateVars{
		SourceLanguage: sourceLangName,
		TargetLanguage: targetLangName,
		Separator:      mm.separator,
		BlockCount:     strings.Count(text, mm.separator) + 1,
		Text:           text,
	})
	if err != nil {
		return "", errors.NewServiceError("failed to build prompt", backendName, "prompt", err)
	}

	result, primaryErr := mm.invokeProvider(ctx, mm.primary, p)
	if primaryErr == nil {
		mm.circuitBreaker.RecordSuccess()
		return result.Text, nil
	}

	if mm.fallback != nil {
		mm.logger.Warn("Primary translation provider failed, trying fallback",
			zap.String("primary", mm.primary.Name()),
			zap.String("fallback", mm.fallback.Name()),
			zap.Error(primaryErr),
		)

		fallbackResult, fallbackErr := mm.invokeProvider(ctx, mm.fallback, p)
		if fallbackErr == nil {
			mm.circuitBreaker.RecordSuccess()
			return fallbackResult.Text, nil
		}

		mm.recordFailure(primaryErr)
		mm.recordFailure(fallbackErr)

		// A rate-limited primary is the more useful signal: the caller cools down and retries.
		if errors.IsRateLimited(primaryErr) {
			return "", primaryErr
		}
		return "", fallbackErr
	}

	mm.recordFailure(primaryErr)
	return "", primaryErr
}

func (mm *ModelManager) invokeProvider(ctx context.Context, provider TextProvider, p string) (ProviderResult, error) {
	if provider == nil {
		return ProviderResult{}, errors.NewBackendUnavailableError(backendName, fmt.Errorf("model provider is not configured"))
	}

	result, err := provider.Generate(ctx, p)
	if err != nil {
		classified := classifyError(provider.Name(), err)
		mm.logger.Error("Translation provider call failed",
			zap.String("provider", provider.Name()),
			zap.String("class", errors.Code(classified)),
			zap.Error(err),
		)
		return ProviderResult{}, classified
	}

	result.Text = cleanResponse(result.Text)
	if result.Text == "" {
		return ProviderResult{}, errors.NewServiceError("empty translation", provider.Name(), "generate", nil)
	}
	return result, nil
}

// cleanResponse strips a surrounding code fence some models add.
func cleanResponse(text string) string {
	cleaned := strings.TrimSpace(text)
	if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```")
		if nl := strings.IndexByte(cleaned, '\n'); nl >= 0 && !strings.Contains(cleaned[:nl], " ") {
			cleaned = cleaned[nl+1:]
		}
		cleaned = strings.TrimSuffix(strings.TrimSpace(cleaned), "```")
		cleaned = strings.TrimSpace(cleaned)
	}
	return cleaned
}

func (mm *ModelManager) recordFailure(err error) {
	if err == nil {
		return
	}

	switch {
	case errors.IsRateLimited(err):
		mm.circuitBreaker.RecordFailure(mm.rateLimitTimeout)
	case errors.IsBackendUnavailable(err):
		mm.circuitBreaker.RecordFailure(constants.CircuitBreakerConfig.ResetTimeout)
	}
}

func (mm *ModelManager) healthCheckPing() bool {
	mm.logger.Info("Health Check: Testing translation providers...")

	ctx, cancel := context.WithTimeout(context.Background(), constants.CircuitBreakerConfig.HealthCheckTimeout)
	defer cancel()

	primaryOK := mm.primary != nil && mm.primary.Ping(ctx)
	fallbackOK := mm.fallback != nil && mm.fallback.Ping(ctx)
	isHealthy := primaryOK || fallbackOK

	mm.logger.Info("Health Check: Result",
		zap.Bool("primary", primaryOK),
		zap.Bool("fallback", fallbackOK),
		zap.Bool("healthy", isHealthy),
	)

	return isHealthy
}

// Ping reports whether any configured provider answers.
func (mm *ModelManager) Ping(ctx context.Context) bool {
	if mm.primary != nil && mm.primary.Ping(ctx) {
		return true
	}
	return mm.fallback != nil && mm.fallback.Ping(ctx)
}

func (mm *ModelManager) GetCircuitStatus() util.CircuitBreakerStatus {
	return mm.circuitBreaker.GetStatus()
}

func (mm *ModelManager) ResetCircuit() {
	mm.circuitBreaker.Reset()
}
