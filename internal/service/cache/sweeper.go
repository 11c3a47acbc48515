package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Sweeper purges translations older than the retention window on a cron schedule.
type Sweeper struct {
	store     TranslationStore
	retention time.Duration
	schedule  string
	cron      *cron.Cron
	logger    *zap.Logger
	now       func() time.Time
	mu        sync.Mutex
	running   bool
}

func NewSweeper(store TranslationStore, retention time.Duration, schedule string, logger *zap.Logger) *Sweeper {
	return &Sweeper{
		store:     store,
		retention: retention,
		schedule:  schedule,
		cron:      cron.New(),
		logger:    logger,
		now:       time.Now,
	}
}

// Start registers the sweep job and starts the scheduler.
func (s *Sweeper) Start() error {
	if s.retention <= 0 {
		s.logger.Info("Cache sweeper disabled (no retention)")
		return nil
	}

	if _, err := s.cron.AddFunc(s.schedule, func() {
		if _, err := s.SweepOnce(context.Background()); err != nil {
			s.logger.Error("Cache sweep failed", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", s.schedule, err)
	}

	s.cron.Start()
	s.logger.Info("Cache sweeper started",
		zap.String("schedule", s.schedule),
		zap.Duration("retention", s.retention),
	)
	return nil
}

// Stop waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}

// SweepOnce removes entries created before now-retention. Overlapping runs are skipped.
func (s *Sweeper) SweepOnce(ctx context.Context) (int64, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return 0, nil
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	cutoff := s.now().Add(-s.retention)
	removed, err := s.store.Sweep(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	s.logger.Info("Cache sweep finished",
		zap.Int64("removed", removed),
		zap.Time("cutoff", cutoff),
	)
	return removed, nil
}
