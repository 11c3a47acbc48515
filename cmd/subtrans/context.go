package main

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/kapu/subtitle-translator-go/internal/app"
	"github.com/kapu/subtitle-translator-go/internal/config"
	"github.com/kapu/subtitle-translator-go/internal/domain"
	"github.com/kapu/subtitle-translator-go/internal/service/ai"
	"github.com/kapu/subtitle-translator-go/internal/service/opensubtitles"
	"github.com/kapu/subtitle-translator-go/internal/service/translation"
	"github.com/kapu/subtitle-translator-go/internal/util"
)

// candidateSource is the search half of the OpenSubtitles client.
type candidateSource interface {
	Search(ctx context.Context, req opensubtitles.SearchRequest) []domain.SubtitleCandidate
}

type commandContext struct {
	logLevel string

	loadConfig  func() *config.Config
	newBackend  func(ctx context.Context, cfg *config.Config, logger *zap.Logger) (translation.Backend, error)
	newSource   func(cfg *config.Config, logger *zap.Logger) (candidateSource, error)
	openStorage func(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app.Storage, error)

	once   sync.Once
	config *config.Config
	logger *zap.Logger
	err    error
}

func newCommandContext() *commandContext {
	return &commandContext{
		loadConfig:  config.LoadEnv,
		newBackend:  defaultBackend,
		newSource:   defaultSource,
		openStorage: app.BuildStorage,
	}
}

// ensure loads the environment once; validation is left to each command.
func (c *commandContext) ensure() (*config.Config, *zap.Logger, error) {
	c.once.Do(func() {
		cfg := c.loadConfig()
		level := cfg.Logging.Level
		if strings.TrimSpace(c.logLevel) != "" {
			level = c.logLevel
		}
		logger, err := util.NewLogger(level, cfg.Logging.File)
		if err != nil {
			c.err = fmt.Errorf("initialize logger: %w", err)
			return
		}
		c.config = cfg
		c.logger = logger
	})
	return c.config, c.logger, c.err
}

// withStorage opens the stores, runs fn and closes them again.
func (c *commandContext) withStorage(ctx context.Context, fn func(*config.Config, *app.Storage) error) error {
	cfg, logger, err := c.ensure()
	if err != nil {
		return err
	}
	if err := cfg.ValidateStorage(); err != nil {
		return err
	}
	storage, err := c.openStorage(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer storage.Close()
	return fn(cfg, storage)
}

func defaultBackend(ctx context.Context, cfg *config.Config, logger *zap.Logger) (translation.Backend, error) {
	if cfg.Gemini.APIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required to translate")
	}
	return ai.NewModelManager(ctx, ai.ModelManagerConfig{
		GeminiAPIKey:      cfg.Gemini.APIKey,
		GeminiModel:       cfg.Gemini.Model,
		OpenAIAPIKey:      cfg.OpenAI.APIKey,
		OpenAIModel:       cfg.OpenAI.Model,
		AnthropicAPIKey:   cfg.Anthropic.APIKey,
		AnthropicModel:    cfg.Anthropic.Model,
		Fallback:          cfg.Translation.Fallback,
		RateLimitCooldown: cfg.Translation.RateLimitCooldown,
	}, logger)
}

func defaultSource(cfg *config.Config, logger *zap.Logger) (candidateSource, error) {
	if cfg.OpenSubtitles.APIKey == "" {
		return nil, fmt.Errorf("OPENSUBTITLES_API_KEY is required to search")
	}
	return opensubtitles.NewClient(opensubtitles.Config{
		APIKey:    cfg.OpenSubtitles.APIKey,
		UserAgent: cfg.OpenSubtitles.UserAgent,
		Username:  cfg.OpenSubtitles.Username,
		Password:  cfg.OpenSubtitles.Password,
		BaseURL:   cfg.OpenSubtitles.BaseURL,
	}, nil, logger), nil
}
