package cache

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"

	"github.com/kapu/subtitle-translator-go/internal/domain"
	"github.com/kapu/subtitle-translator-go/internal/service/database"
	"github.com/kapu/subtitle-translator-go/pkg/errors"
)

// SQLTranslationStore keeps translations in the translation_cache table (Postgres or SQLite).
type SQLTranslationStore struct {
	db        *database.Service
	retention time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

func NewSQLTranslationStore(db *database.Service, retention time.Duration, logger *zap.Logger) *SQLTranslationStore {
	return &SQLTranslationStore{
		db:        db,
		retention: retention,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *SQLTranslationStore) Get(ctx context.Context, key string) (*domain.TranslationCacheEntry, error) {
	query := s.db.Rebind(`SELECT file_id, source_lang, target_lang, translated_content,
		usage_count, created_at, last_used
	FROM translation_cache WHERE cache_key = ?`)

	var (
		entry     = domain.TranslationCacheEntry{Key: key}
		createdAt int64
		lastUsed  int64
	)
	err := s.db.GetDB().QueryRowContext(ctx, query, key).Scan(
		&entry.SourceID, &entry.SourceLang, &entry.TargetLang, &entry.Document,
		&entry.UsageCount, &createdAt, &lastUsed,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		s.logger.Error("Translation cache get failed", zap.String("cache_key", key), zap.Error(err))
		return nil, errors.NewCacheError("get failed", "select", key, err)
	}

	entry.CreatedAt = time.UnixMilli(createdAt)
	entry.LastUsedAt = time.UnixMilli(lastUsed)
	if entry.Expired(s.retention, s.now()) {
		s.evict(ctx, key, createdAt)
		return nil, nil
	}
	return &entry, nil
}

// evict removes an expired row so the next Put can store a fresh translation.
// The created_at guard keeps a row written meanwhile by a concurrent Put.
func (s *SQLTranslationStore) evict(ctx context.Context, key string, createdAt int64) {
	query := s.db.Rebind(`DELETE FROM translation_cache WHERE cache_key = ? AND created_at = ?`)
	if _, err := s.db.GetDB().ExecContext(ctx, query, key, createdAt); err != nil {
		s.logger.Warn("Expired translation not evicted", zap.String("cache_key", key), zap.Error(err))
	}
}

func (s *SQLTranslationStore) Put(ctx context.Context, entry domain.TranslationCacheEntry) (bool, error) {
	query := s.db.Rebind(`INSERT INTO translation_cache (
		cache_key, file_id, source_lang, target_lang, translated_content,
		usage_count, created_at, last_used
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (cache_key) DO NOTHING`)

	res, err := s.db.GetDB().ExecContext(ctx, query,
		entry.Key, entry.SourceID, entry.SourceLang, entry.TargetLang, entry.Document,
		entry.UsageCount, entry.CreatedAt.UnixMilli(), entry.LastUsedAt.UnixMilli(),
	)
	if err != nil {
		s.logger.Error("Translation cache put failed", zap.String("cache_key", entry.Key), zap.Error(err))
		return false, errors.NewCacheError("put failed", "insert", entry.Key, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, errors.NewCacheError("put failed", "insert", entry.Key, err)
	}
	return affected > 0, nil
}

func (s *SQLTranslationStore) Touch(ctx context.Context, key string) error {
	query := s.db.Rebind(`UPDATE translation_cache
	SET usage_count = usage_count + 1, last_used = ?
	WHERE cache_key = ?`)

	if _, err := s.db.GetDB().ExecContext(ctx, query, s.now().UnixMilli(), key); err != nil {
		s.logger.Error("Translation cache touch failed", zap.String("cache_key", key), zap.Error(err))
		return errors.NewCacheError("touch failed", "update", key, err)
	}
	return nil
}

func (s *SQLTranslationStore) Sweep(ctx context.Context, cutoff time.Time) (int64, error) {
	query := s.db.Rebind(`DELETE FROM translation_cache WHERE created_at < ?`)

	res, err := s.db.GetDB().ExecContext(ctx, query, cutoff.UnixMilli())
	if err != nil {
		return 0, errors.NewCacheError("sweep failed", "delete", "", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, errors.NewCacheError("sweep failed", "delete", "", err)
	}
	return removed, nil
}

func (s *SQLTranslationStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.GetDB().QueryRowContext(ctx, `SELECT COUNT(*) FROM translation_cache`).Scan(&count); err != nil {
		return 0, errors.NewCacheError("count failed", "count", "", err)
	}
	return count, nil
}
