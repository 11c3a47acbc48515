package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kapu/subtitle-translator-go/internal/config"
	"github.com/kapu/subtitle-translator-go/internal/constants"
	"github.com/kapu/subtitle-translator-go/internal/server"
	"github.com/kapu/subtitle-translator-go/internal/service/ai"
	"github.com/kapu/subtitle-translator-go/internal/service/cache"
	"github.com/kapu/subtitle-translator-go/internal/service/database"
	"github.com/kapu/subtitle-translator-go/internal/service/entitlement"
	"github.com/kapu/subtitle-translator-go/internal/service/opensubtitles"
	"github.com/kapu/subtitle-translator-go/internal/service/pipeline"
	"github.com/kapu/subtitle-translator-go/internal/service/selector"
	"github.com/kapu/subtitle-translator-go/internal/service/translation"
)

// Storage holds the persistent stores; the CLI maintenance commands need only these.
type Storage struct {
	Database *database.Service
	Accounts *database.AccountRepository
	Redis    *cache.CacheService // nil unless the redis cache backend is configured
	Store    cache.TranslationStore
	Sweeper  *cache.Sweeper

	closers []func()
}

// Close releases the stores in reverse order of creation.
func (s *Storage) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}

// Container wires every service needed by the HTTP server.
type Container struct {
	Config   *config.Config
	Logger   *zap.Logger
	Storage  *Storage
	Provider *opensubtitles.Client
	Models   *ai.ModelManager
	Engine   *translation.Engine
	Pipeline *pipeline.Pipeline
	Hub      *server.ProgressHub
	Server   *server.Server
}

// BuildStorage opens the database, applies the schema and selects the translation store.
func BuildStorage(ctx context.Context, cfg *config.Config, logger *zap.Logger) (storage *Storage, err error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}

	storage = &Storage{}
	defer func() {
		if err != nil {
			storage.Close()
			storage = nil
		}
	}()

	dbSvc, err := database.NewService(database.Config{
		Driver:     cfg.Database.Driver,
		Host:       cfg.Database.Host,
		Port:       cfg.Database.Port,
		User:       cfg.Database.User,
		Password:   cfg.Database.Password,
		Database:   cfg.Database.Name,
		SSLMode:    cfg.Database.SSLMode,
		SQLitePath: cfg.Database.SQLitePath,
	}, logger)
	if err != nil {
		return storage, fmt.Errorf("failed to create database service: %w", err)
	}
	storage.Database = dbSvc
	storage.closers = append(storage.closers, func() {
		if closeErr := dbSvc.Close(); closeErr != nil {
			logger.Warn("Failed to close database", zap.Error(closeErr))
		}
	})

	if err = dbSvc.InitSchema(ctx); err != nil {
		return storage, fmt.Errorf("failed to initialize schema: %w", err)
	}

	storage.Accounts = database.NewAccountRepository(dbSvc, cfg.Entitlement.FreeTranslations, logger)

	switch cfg.Cache.Backend {
	case config.CacheBackendRedis:
		redisSvc, redisErr := cache.NewCacheService(cache.CacheConfig{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, logger)
		if redisErr != nil {
			return storage, fmt.Errorf("failed to create cache service: %w", redisErr)
		}
		storage.Redis = redisSvc
		storage.closers = append(storage.closers, func() {
			if closeErr := redisSvc.Close(); closeErr != nil {
				logger.Warn("Failed to close cache service", zap.Error(closeErr))
			}
		})
		storage.Store = cache.NewRedisTranslationStore(redisSvc, cfg.Cache.Retention, logger)
	default:
		storage.Store = cache.NewSQLTranslationStore(dbSvc, cfg.Cache.Retention, logger)
	}

	storage.Sweeper = cache.NewSweeper(storage.Store, cfg.Cache.Retention, cfg.Cache.SweepSchedule, logger)

	logger.Info("Storage ready",
		zap.String("database", dbSvc.Driver()),
		zap.String("cache_backend", cfg.Cache.Backend),
		zap.Duration("retention", cfg.Cache.Retention),
	)
	return storage, nil
}

// Build assembles the full service graph. On failure everything opened so far is closed.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (container *Container, err error) {
	storage, err := BuildStorage(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			storage.Close()
		}
	}()

	// A nil *CacheService must not end up inside the interface.
	var resultCache opensubtitles.ResultCache
	if storage.Redis != nil {
		resultCache = storage.Redis
	}
	provider := opensubtitles.NewClient(opensubtitles.Config{
		APIKey:    cfg.OpenSubtitles.APIKey,
		UserAgent: cfg.OpenSubtitles.UserAgent,
		Username:  cfg.OpenSubtitles.Username,
		Password:  cfg.OpenSubtitles.Password,
		BaseURL:   cfg.OpenSubtitles.BaseURL,
	}, resultCache, logger)

	models, err := ai.NewModelManager(ctx, ai.ModelManagerConfig{
		GeminiAPIKey:      cfg.Gemini.APIKey,
		GeminiModel:       cfg.Gemini.Model,
		OpenAIAPIKey:      cfg.OpenAI.APIKey,
		OpenAIModel:       cfg.OpenAI.Model,
		AnthropicAPIKey:   cfg.Anthropic.APIKey,
		AnthropicModel:    cfg.Anthropic.Model,
		Fallback:          cfg.Translation.Fallback,
		RateLimitCooldown: cfg.Translation.RateLimitCooldown,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create model manager: %w", err)
	}

	engine := NewEngine(cfg, models, logger)
	hub := server.NewProgressHub(constants.ServerConfig.ProgressBuffer, logger)

	pipe := pipeline.New(pipeline.Deps{
		Accounts: storage.Accounts,
		Provider: provider,
		Selector: selector.New(cfg.Selector.Priority, cfg.Selector.MaxOffers),
		Gate:     entitlement.NewGate(storage.Accounts, cfg.Entitlement.CountCacheHits, logger),
		Store:    storage.Store,
		Engine:   engine,
		Progress: hub,
	}, pipeline.Config{CachePartial: cfg.Translation.CachePartial}, logger)

	srv := server.New(server.Config{
		Addr:            fmt.Sprintf(":%d", cfg.Server.Port),
		BaseURL:         cfg.Server.BaseURL,
		DefaultLanguage: constants.EntitlementDefaults.DefaultLanguage,
	}, server.Deps{
		Subtitles: pipe,
		Accounts:  storage.Accounts,
		Cache:     storage.Store,
		Hub:       hub,
		Checks:    healthChecks(storage),
	}, logger)

	return &Container{
		Config:   cfg,
		Logger:   logger,
		Storage:  storage,
		Provider: provider,
		Models:   models,
		Engine:   engine,
		Pipeline: pipe,
		Hub:      hub,
		Server:   srv,
	}, nil
}

// NewEngine builds the batch engine from the translation settings.
func NewEngine(cfg *config.Config, backend translation.Backend, logger *zap.Logger) *translation.Engine {
	engineCfg := translation.DefaultConfig()
	engineCfg.BatchSize = cfg.Translation.BatchSize
	engineCfg.InterBatchDelay = cfg.Translation.InterBatchDelay
	engineCfg.RateLimitCooldown = cfg.Translation.RateLimitCooldown
	engineCfg.MaxRetries = cfg.Translation.MaxRetries
	engineCfg.CallTimeout = cfg.Translation.CallTimeout
	return translation.NewEngine(backend, engineCfg, logger)
}

func healthChecks(storage *Storage) []server.HealthCheck {
	checks := []server.HealthCheck{{
		Name:  "database",
		Check: storage.Database.Ping,
	}}
	if storage.Redis != nil {
		redisSvc := storage.Redis
		checks = append(checks, server.HealthCheck{
			Name: "cache",
			Check: func(ctx context.Context) error {
				if !redisSvc.IsConnected(ctx) {
					return fmt.Errorf("redis ping failed")
				}
				return nil
			},
		})
	} else {
		checks = append(checks, server.HealthCheck{
			Name: "cache",
			Check: func(ctx context.Context) error {
				_, err := storage.Store.Count(ctx)
				return err
			},
		})
	}
	return checks
}

// Run starts the sweeper and serves HTTP until ctx is cancelled.
func (c *Container) Run(ctx context.Context) error {
	if err := c.Storage.Sweeper.Start(); err != nil {
		return fmt.Errorf("failed to start cache sweeper: %w", err)
	}
	defer c.Storage.Sweeper.Stop()

	c.Logger.Info("Subtitle translator listening",
		zap.Int("port", c.Config.Server.Port),
		zap.String("base_url", c.Config.Server.BaseURL),
	)
	return c.Server.ListenAndServe(ctx)
}

// Shutdown stops the HTTP server and closes the stores.
func (c *Container) Shutdown(ctx context.Context) error {
	err := c.Server.Shutdown(ctx)
	c.Storage.Close()
	return err
}

// BuildTimeout bounds the startup wiring.
const BuildTimeout = 30 * time.Second
