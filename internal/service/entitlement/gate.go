package entitlement

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kapu/subtitle-translator-go/internal/domain"
	"github.com/kapu/subtitle-translator-go/pkg/errors"
)

const (
	ReasonExpired       = "expired"
	ReasonQuotaExceeded = "quota_exceeded"
	ReasonNoAccount     = "no_account"
)

// Decision is the outcome of Authorize. Reason is empty when Allowed.
type Decision struct {
	Allowed bool
	Reason  string
	Used    int
	Limit   int
}

func allowed() Decision {
	return Decision{Allowed: true}
}

// Err converts a denial into the user-facing error class; nil when allowed.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	switch d.Reason {
	case ReasonExpired:
		return errors.NewSubscriptionExpiredError()
	case ReasonQuotaExceeded:
		return errors.NewQuotaExceededError(d.Used, d.Limit)
	default:
		return errors.NewInvalidKeyError()
	}
}

func (d Decision) String() string {
	if d.Allowed {
		return "Allowed"
	}
	return fmt.Sprintf("Denied(%q)", d.Reason)
}

// UsageRecorder persists the usage counter; AccountRepository satisfies it.
type UsageRecorder interface {
	IncrementUsage(ctx context.Context, accountID int64) error
}

// Gate decides whether an account may run another translation and records usage.
type Gate struct {
	recorder       UsageRecorder
	countCacheHits bool
	logger         *zap.Logger
}

func NewGate(recorder UsageRecorder, countCacheHits bool, logger *zap.Logger) *Gate {
	return &Gate{
		recorder:       recorder,
		countCacheHits: countCacheHits,
		logger:         logger,
	}
}

// Authorize is evaluated once per end-to-end request, before the cache is consulted.
func (g *Gate) Authorize(account *domain.Account) Decision {
	if account == nil {
		return Decision{Reason: ReasonNoAccount}
	}

	switch account.SubscriptionState {
	case domain.SubscriptionExpired:
		return Decision{Reason: ReasonExpired}
	case domain.SubscriptionTrial:
		if account.TranslationsUsed >= account.TranslationsLimit {
			return Decision{
				Reason: ReasonQuotaExceeded,
				Used:   account.TranslationsUsed,
				Limit:  account.TranslationsLimit,
			}
		}
	}

	return allowed()
}

// Record counts one finished request. Cache hits are free when the gate was built with countCacheHits=false.
func (g *Gate) Record(ctx context.Context, account *domain.Account, cacheHit bool) error {
	if account == nil {
		return nil
	}
	if cacheHit && !g.countCacheHits {
		return nil
	}

	if err := g.recorder.IncrementUsage(ctx, account.ID); err != nil {
		g.logger.Error("Failed to record translation usage",
			zap.Int64("account_id", account.ID),
			zap.Bool("cache_hit", cacheHit),
			zap.Error(err),
		)
		return fmt.Errorf("failed to record usage: %w", err)
	}

	account.TranslationsUsed++
	g.logger.Debug("Translation usage recorded",
		zap.Int64("account_id", account.ID),
		zap.Bool("cache_hit", cacheHit),
		zap.Int("used", account.TranslationsUsed),
	)
	return nil
}

func (g *Gate) CountsCacheHits() bool {
	return g.countCacheHits
}
