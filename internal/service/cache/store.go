package cache

import (
	"context"
	"time"

	"github.com/kapu/subtitle-translator-go/internal/domain"
)

// TranslationStore persists finished translations keyed by domain.CacheKey.
type TranslationStore interface {
	// Get returns nil, nil on a miss, including for entries past retention.
	Get(ctx context.Context, key string) (*domain.TranslationCacheEntry, error)
	// Put stores entry unless its key already exists; created is false for the loser of a race.
	Put(ctx context.Context, entry domain.TranslationCacheEntry) (created bool, err error)
	// Touch counts one more use and refreshes lastUsedAt. Missing keys are ignored.
	Touch(ctx context.Context, key string) error
	// Sweep removes entries created before cutoff.
	Sweep(ctx context.Context, cutoff time.Time) (int64, error)
	Count(ctx context.Context) (int64, error)
}
