package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"

	"github.com/kapu/subtitle-translator-go/internal/domain"
)

// runHealthChecks probes every dependency concurrently.
func (s *Server) runHealthChecks(ctx context.Context) map[string]string {
	results := make(map[string]string, len(s.checks))
	var mu sync.Mutex

	p := pool.New().WithMaxGoroutines(len(s.checks) + 1)
	for _, check := range s.checks {
		check := check
		p.Go(func() {
			checkCtx, cancel := context.WithTimeout(ctx, probeTimeout())
			defer cancel()

			state := "connected"
			if err := check.Check(checkCtx); err != nil {
				s.logger.Warn("Health check failed", zap.String("dependency", check.Name), zap.Error(err))
				state = "disconnected"
			}

			mu.Lock()
			results[check.Name] = state
			mu.Unlock()
		})
	}
	p.Wait()

	return results
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	checks := s.runHealthChecks(r.Context())

	overall, status := "ok", http.StatusOK
	for _, state := range checks {
		if state != "connected" {
			overall, status = "degraded", http.StatusServiceUnavailable
		}
	}

	writeJSON(w, status, map[string]any{
		"status":    overall,
		"timestamp": time.Now().UTC(),
		"database":  checks["database"],
		"cache":     checks["cache"],
		"checks":    checks,
	})
}

type statsResponse struct {
	domain.AccountStats
	CacheSize int64 `json:"cacheSize"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	var resp statsResponse

	p := pool.New().WithContext(r.Context()).WithCancelOnError()
	p.Go(func(ctx context.Context) error {
		stats, err := s.accounts.Stats(ctx)
		if err != nil {
			return err
		}
		resp.AccountStats = stats
		return nil
	})
	p.Go(func(ctx context.Context) error {
		count, err := s.cache.Count(ctx)
		if err != nil {
			return err
		}
		resp.CacheSize = count
		return nil
	})

	if err := p.Wait(); err != nil {
		s.logger.Error("Failed to gather stats", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}
