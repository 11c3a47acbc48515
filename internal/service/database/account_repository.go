package database

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kapu/subtitle-translator-go/internal/constants"
	"github.com/kapu/subtitle-translator-go/internal/domain"
)

const accountColumns = `id, email, api_key, preferred_language, subscription_status,
	subscription_end_date, translations_used, translations_limit, created_at, last_active`

type AccountRepository struct {
	db               *Service
	logger           *zap.Logger
	freeTranslations int
	now              func() time.Time
}

func NewAccountRepository(db *Service, freeTranslations int, logger *zap.Logger) *AccountRepository {
	if freeTranslations <= 0 {
		freeTranslations = constants.EntitlementDefaults.FreeTranslations
	}
	return &AccountRepository{
		db:               db,
		logger:           logger,
		freeTranslations: freeTranslations,
		now:              time.Now,
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*domain.Account, error) {
	var (
		account   domain.Account
		state     string
		endDate   sql.NullInt64
		createdAt int64
		lastSeen  int64
	)

	err := row.Scan(
		&account.ID, &account.Email, &account.APIKey, &account.PreferredLanguage, &state,
		&endDate, &account.TranslationsUsed, &account.TranslationsLimit, &createdAt, &lastSeen,
	)
	if err != nil {
		return nil, err
	}

	account.SubscriptionState = domain.SubscriptionState(state)
	if endDate.Valid {
		t := time.UnixMilli(endDate.Int64)
		account.SubscriptionEndDate = &t
	}
	account.CreatedAt = time.UnixMilli(createdAt)
	account.LastActive = time.UnixMilli(lastSeen)

	return &account, nil
}

// FindByAPIKey returns nil, nil when no account owns apiKey.
func (r *AccountRepository) FindByAPIKey(ctx context.Context, apiKey string) (*domain.Account, error) {
	query := r.db.Rebind(`SELECT ` + accountColumns + ` FROM accounts WHERE api_key = ? LIMIT 1`)

	account, err := scanAccount(r.db.GetDB().QueryRowContext(ctx, query, apiKey))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query account by api key: %w", err)
	}
	return account, nil
}

// FindByEmail returns nil, nil when no account uses email.
func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	query := r.db.Rebind(`SELECT ` + accountColumns + ` FROM accounts WHERE email = ? LIMIT 1`)

	account, err := scanAccount(r.db.GetDB().QueryRowContext(ctx, query, normalizeEmail(email)))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query account by email: %w", err)
	}
	return account, nil
}

// Create registers a trial account with a fresh API key.
func (r *AccountRepository) Create(ctx context.Context, email, preferredLanguage string) (*domain.Account, error) {
	apiKey, err := GenerateAPIKey()
	if err != nil {
		return nil, err
	}

	now := r.now()
	endDate := now.Add(constants.EntitlementDefaults.TrialPeriod)
	account := &domain.Account{
		Email:               normalizeEmail(email),
		APIKey:              apiKey,
		PreferredLanguage:   domain.NormalizeLanguage(preferredLanguage),
		SubscriptionState:   domain.SubscriptionTrial,
		SubscriptionEndDate: &endDate,
		TranslationsLimit:   r.freeTranslations,
		CreatedAt:           now,
		LastActive:          now,
	}

	query := r.db.Rebind(`INSERT INTO accounts (
		email, api_key, preferred_language, subscription_status, subscription_end_date,
		translations_used, translations_limit, created_at, last_active
	) VALUES (?, ?, ?, ?, ?, 0, ?, ?, ?) RETURNING id`)

	err = r.db.GetDB().QueryRowContext(ctx, query,
		account.Email, account.APIKey, account.PreferredLanguage, string(account.SubscriptionState),
		endDate.UnixMilli(), account.TranslationsLimit, now.UnixMilli(), now.UnixMilli(),
	).Scan(&account.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to insert account: %w", err)
	}

	r.logger.Info("Account registered",
		zap.Int64("account_id", account.ID),
		zap.String("preferred_language", account.PreferredLanguage),
	)
	return account, nil
}

// UpdatePreferredLanguage reports false when apiKey matches no account.
func (r *AccountRepository) UpdatePreferredLanguage(ctx context.Context, apiKey, language string) (bool, error) {
	query := r.db.Rebind(`UPDATE accounts SET preferred_language = ?, last_active = ? WHERE api_key = ?`)

	res, err := r.db.GetDB().ExecContext(ctx, query, domain.NormalizeLanguage(language), r.now().UnixMilli(), apiKey)
	if err != nil {
		return false, fmt.Errorf("failed to update preferred language: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return affected > 0, nil
}

// IncrementUsage adds one translation to the account counter atomically.
func (r *AccountRepository) IncrementUsage(ctx context.Context, accountID int64) error {
	query := r.db.Rebind(`UPDATE accounts SET translations_used = translations_used + 1, last_active = ? WHERE id = ?`)

	if _, err := r.db.GetDB().ExecContext(ctx, query, r.now().UnixMilli(), accountID); err != nil {
		return fmt.Errorf("failed to increment usage: %w", err)
	}
	return nil
}

func (r *AccountRepository) TouchLastActive(ctx context.Context, accountID int64) error {
	query := r.db.Rebind(`UPDATE accounts SET last_active = ? WHERE id = ?`)

	if _, err := r.db.GetDB().ExecContext(ctx, query, r.now().UnixMilli(), accountID); err != nil {
		return fmt.Errorf("failed to touch account: %w", err)
	}
	return nil
}

func (r *AccountRepository) Stats(ctx context.Context) (domain.AccountStats, error) {
	query := r.db.Rebind(`SELECT
		COUNT(*),
		COALESCE(SUM(CASE WHEN subscription_status = ? THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(translations_used), 0)
	FROM accounts`)

	var stats domain.AccountStats
	err := r.db.GetDB().QueryRowContext(ctx, query, string(domain.SubscriptionActive)).Scan(
		&stats.TotalUsers, &stats.ActiveSubscriptions, &stats.TotalTranslations,
	)
	if err != nil {
		return domain.AccountStats{}, fmt.Errorf("failed to query account stats: %w", err)
	}
	return stats, nil
}

// GenerateAPIKey returns "sk_" followed by 32 random bytes in hex.
func GenerateAPIKey() (string, error) {
	buf := make([]byte, constants.EntitlementDefaults.APIKeyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate api key: %w", err)
	}
	return constants.EntitlementDefaults.APIKeyPrefix + hex.EncodeToString(buf), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
