package domain

import "time"

type SubscriptionState string

const (
	SubscriptionTrial   SubscriptionState = "trial"
	SubscriptionActive  SubscriptionState = "active"
	SubscriptionExpired SubscriptionState = "expired"
)

func (s SubscriptionState) Valid() bool {
	switch s {
	case SubscriptionTrial, SubscriptionActive, SubscriptionExpired:
		return true
	default:
		return false
	}
}

// Account is the viewer record the pipeline reads its gate and preferences from.
type Account struct {
	ID                  int64             `json:"id"`
	Email               string            `json:"email"`
	APIKey              string            `json:"apiKey"`
	PreferredLanguage   string            `json:"preferredLanguage"`
	SubscriptionState   SubscriptionState `json:"subscriptionStatus"`
	SubscriptionEndDate *time.Time        `json:"subscriptionEndDate,omitempty"`
	TranslationsUsed    int               `json:"translationsUsed"`
	TranslationsLimit   int               `json:"freeTranslationsLimit"`
	CreatedAt           time.Time         `json:"createdAt"`
	LastActive          time.Time         `json:"lastActive"`
}

// RemainingTranslations returns -1 for unlimited subscriptions.
func (a *Account) RemainingTranslations() int {
	if a.SubscriptionState != SubscriptionTrial {
		return -1
	}
	if remaining := a.TranslationsLimit - a.TranslationsUsed; remaining > 0 {
		return remaining
	}
	return 0
}

// AccountStats aggregates the counters exposed on /api/stats.
type AccountStats struct {
	TotalUsers          int64 `json:"totalUsers"`
	ActiveSubscriptions int64 `json:"activeSubscriptions"`
	TotalTranslations   int64 `json:"totalTranslations"`
}
