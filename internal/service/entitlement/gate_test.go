package entitlement

import (
	"context"
	"fmt"
	"testing"

	"go.uber.org/zap"

	"github.com/kapu/subtitle-translator-go/internal/domain"
	"github.com/kapu/subtitle-translator-go/pkg/errors"
)

type countingRecorder struct {
	calls map[int64]int
	err   error
}

func (r *countingRecorder) IncrementUsage(_ context.Context, id int64) error {
	if r.err != nil {
		return r.err
	}
	if r.calls == nil {
		r.calls = make(map[int64]int)
	}
	r.calls[id]++
	return nil
}

func TestAuthorize(t *testing.T) {
	gate := NewGate(&countingRecorder{}, true, zap.NewNop())

	tests := []struct {
		name    string
		account *domain.Account
		allowed bool
		reason  string
	}{
		{"trial under quota", &domain.Account{SubscriptionState: domain.SubscriptionTrial, TranslationsUsed: 4, TranslationsLimit: 5}, true, ""},
		{"trial at quota", &domain.Account{SubscriptionState: domain.SubscriptionTrial, TranslationsUsed: 5, TranslationsLimit: 5}, false, ReasonQuotaExceeded},
		{"trial over quota", &domain.Account{SubscriptionState: domain.SubscriptionTrial, TranslationsUsed: 9, TranslationsLimit: 5}, false, ReasonQuotaExceeded},
		{"active ignores quota", &domain.Account{SubscriptionState: domain.SubscriptionActive, TranslationsUsed: 500, TranslationsLimit: 5}, true, ""},
		{"expired", &domain.Account{SubscriptionState: domain.SubscriptionExpired}, false, ReasonExpired},
		{"no account", nil, false, ReasonNoAccount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := gate.Authorize(tt.account)
			if d.Allowed != tt.allowed || d.Reason != tt.reason {
				t.Fatalf("Authorize() = %s, want allowed=%v reason=%q", d, tt.allowed, tt.reason)
			}
		})
	}
}

func TestDecisionErr(t *testing.T) {
	if err := allowed().Err(); err != nil {
		t.Fatalf("allowed decision returned %v", err)
	}

	quota := Decision{Reason: ReasonQuotaExceeded, Used: 5, Limit: 5}.Err()
	if errors.StatusCode(quota) != 403 || errors.Code(quota) != errors.CodeQuotaExceeded {
		t.Fatalf("quota error = %v (%d)", quota, errors.StatusCode(quota))
	}

	expired := Decision{Reason: ReasonExpired}.Err()
	if errors.Code(expired) != errors.CodeSubscriptionExpired {
		t.Fatalf("expired error code = %s", errors.Code(expired))
	}

	if errors.StatusCode(Decision{Reason: ReasonNoAccount}.Err()) != 401 {
		t.Fatal("missing account should map to 401")
	}
}

func TestRecordCountsOncePerRequest(t *testing.T) {
	rec := &countingRecorder{}
	gate := NewGate(rec, true, zap.NewNop())
	account := &domain.Account{ID: 7, SubscriptionState: domain.SubscriptionTrial, TranslationsUsed: 4, TranslationsLimit: 5}

	if d := gate.Authorize(account); !d.Allowed {
		t.Fatalf("expected allowed, got %s", d)
	}
	if err := gate.Record(context.Background(), account, true); err != nil {
		t.Fatal(err)
	}

	if rec.calls[7] != 1 {
		t.Fatalf("IncrementUsage called %d times, want 1", rec.calls[7])
	}
	if account.TranslationsUsed != 5 {
		t.Fatalf("TranslationsUsed = %d, want 5", account.TranslationsUsed)
	}

	// the quota is now exhausted for any further request
	if d := gate.Authorize(account); d.Reason != ReasonQuotaExceeded {
		t.Fatalf("expected quota_exceeded, got %s", d)
	}
}

func TestRecordSkipsCacheHitsWhenConfigured(t *testing.T) {
	rec := &countingRecorder{}
	gate := NewGate(rec, false, zap.NewNop())
	account := &domain.Account{ID: 1, SubscriptionState: domain.SubscriptionTrial, TranslationsLimit: 5}

	_ = gate.Record(context.Background(), account, true)
	_ = gate.Record(context.Background(), account, false)

	if rec.calls[1] != 1 {
		t.Fatalf("IncrementUsage called %d times, want 1", rec.calls[1])
	}
}

func TestRecordPropagatesStoreErrors(t *testing.T) {
	gate := NewGate(&countingRecorder{err: fmt.Errorf("db down")}, true, zap.NewNop())
	account := &domain.Account{ID: 3, TranslationsUsed: 1}

	if err := gate.Record(context.Background(), account, false); err == nil {
		t.Fatal("expected error")
	}
	if account.TranslationsUsed != 1 {
		t.Fatalf("counter changed on failure: %d", account.TranslationsUsed)
	}
}
