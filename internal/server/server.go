package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/kapu/subtitle-translator-go/internal/adapter"
	"github.com/kapu/subtitle-translator-go/internal/constants"
	"github.com/kapu/subtitle-translator-go/internal/domain"
	"github.com/kapu/subtitle-translator-go/internal/service/pipeline"
)

// SubtitleService is what the Stremio routes drive.
type SubtitleService interface {
	Offers(ctx context.Context, apiKey string, media domain.MediaRequest) (*pipeline.OfferResult, error)
	Translate(ctx context.Context, apiKey string, req domain.TranslationRequest) (*pipeline.TranslationResult, error)
}

// AccountService is the account repository surface used by the account routes.
type AccountService interface {
	FindByAPIKey(ctx context.Context, apiKey string) (*domain.Account, error)
	FindByEmail(ctx context.Context, email string) (*domain.Account, error)
	Create(ctx context.Context, email, preferredLanguage string) (*domain.Account, error)
	UpdatePreferredLanguage(ctx context.Context, apiKey, language string) (bool, error)
	Stats(ctx context.Context) (domain.AccountStats, error)
}

// CacheCounter reports how many translations are stored.
type CacheCounter interface {
	Count(ctx context.Context) (int64, error)
}

// HealthCheck probes one dependency; a nil error means healthy.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type Config struct {
	Addr            string
	BaseURL         string
	DefaultLanguage string
}

type Deps struct {
	Subtitles SubtitleService
	Accounts  AccountService
	Cache     CacheCounter
	Hub       *ProgressHub
	Checks    []HealthCheck
}

type Server struct {
	cfg       Config
	subtitles SubtitleService
	accounts  AccountService
	cache     CacheCounter
	hub       *ProgressHub
	checks    []HealthCheck
	formatter *adapter.StremioFormatter
	logger    *zap.Logger

	mux    *http.ServeMux
	server *http.Server
}

func New(cfg Config, deps Deps, logger *zap.Logger) *Server {
	if cfg.DefaultLanguage == "" {
		cfg.DefaultLanguage = "ro"
	}
	if deps.Hub == nil {
		deps.Hub = NewProgressHub(constants.ServerConfig.ProgressBuffer, logger)
	}

	s := &Server{
		cfg:       cfg,
		subtitles: deps.Subtitles,
		accounts:  deps.Accounts,
		cache:     deps.Cache,
		hub:       deps.Hub,
		checks:    deps.Checks,
		formatter: adapter.NewStremioFormatter(cfg.BaseURL),
		logger:    logger,
		mux:       http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/stats", s.handleStats)
	s.mux.HandleFunc("POST /api/register", s.handleRegister)
	s.mux.HandleFunc("GET /api/user/config", s.handleGetUserConfig)
	s.mux.HandleFunc("POST /api/user/config", s.handleUpdateUserConfig)
	s.mux.HandleFunc("GET /manifest/{apiKey}", s.handleManifest)
	s.mux.HandleFunc("GET /manifest/{apiKey}/manifest.json", s.handleManifest)
	s.mux.HandleFunc("GET /manifest/{apiKey}/subtitles/{type}/{id}", s.handleSubtitles)
	s.mux.HandleFunc("GET /translate/{apiKey}/{fileId}/{sourceLang}/{targetLang}", s.handleTranslate)
	s.mux.HandleFunc("GET /ws/progress/{apiKey}", s.handleProgress)
}

// Handler returns the routes wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	return chain(s.mux,
		withRecover(s.logger),
		withRequestID,
		withAccessLog(s.logger),
		withCORS,
	)
}

// Hub exposes the progress hub so the pipeline can publish into it.
func (s *Server) Hub() *ProgressHub {
	return s.hub
}

// ListenAndServe blocks until ctx is cancelled or the listener fails.
func (s *Server) ListenAndServe(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, listener)
}

func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: constants.ServerConfig.ReadHeaderTimeout,
		WriteTimeout:      constants.ServerConfig.WriteTimeout,
		IdleTimeout:       constants.ServerConfig.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", zap.String("address", listener.Addr().String()))
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ServerConfig.ShutdownTimeout)
	defer cancel()
	return s.Shutdown(shutdownCtx)
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.CloseAll()
	if s.server == nil {
		return nil
	}
	s.logger.Info("Shutting down HTTP server")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}
	return nil
}

func probeTimeout() time.Duration {
	return constants.CircuitBreakerConfig.HealthCheckTimeout
}
