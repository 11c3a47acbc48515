package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/kapu/subtitle-translator-go/internal/app"
	"github.com/kapu/subtitle-translator-go/internal/config"
	"github.com/kapu/subtitle-translator-go/internal/util"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := util.NewLogger(cfg.Logging.Level, cfg.Logging.File)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Subtitle translator starting...",
		zap.String("version", "2.0.0"),
		zap.String("log_level", cfg.Logging.Level),
		zap.String("cache_backend", cfg.Cache.Backend),
		zap.String("fallback", cfg.Translation.Fallback),
	)

	buildCtx, buildCancel := context.WithTimeout(context.Background(), app.BuildTimeout)
	container, err := app.Build(buildCtx, cfg, logger)
	buildCancel()
	if err != nil {
		logger.Error("Failed to assemble application services", zap.Error(err))
		os.Exit(1)
	}
	defer container.Storage.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Run returns after ctx is cancelled and the HTTP server has drained.
	if err := container.Run(ctx); err != nil {
		logger.Error("Server error", zap.Error(err))
		os.Exit(1)
	}

	logger.Info("Shutdown complete")
}
