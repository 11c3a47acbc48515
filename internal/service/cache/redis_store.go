package cache

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/kapu/subtitle-translator-go/internal/constants"
	"github.com/kapu/subtitle-translator-go/internal/domain"
	"github.com/kapu/subtitle-translator-go/pkg/errors"
)

// putScript creates the hash only when the key is absent (first writer wins).
var putScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
	return 0
end
redis.call('HSET', KEYS[1],
	'file_id', ARGV[1],
	'source_lang', ARGV[2],
	'target_lang', ARGV[3],
	'content', ARGV[4],
	'usage_count', ARGV[5],
	'created_at', ARGV[6],
	'last_used', ARGV[7])
if tonumber(ARGV[8]) > 0 then
	redis.call('PEXPIRE', KEYS[1], ARGV[8])
end
return 1
`)

var touchScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return 0
end
redis.call('HINCRBY', KEYS[1], 'usage_count', 1)
redis.call('HSET', KEYS[1], 'last_used', ARGV[1])
return 1
`)

// RedisTranslationStore keeps one hash per cache key; Redis TTL enforces retention.
type RedisTranslationStore struct {
	cache     *CacheService
	client    *redis.Client
	prefix    string
	retention time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

func NewRedisTranslationStore(cache *CacheService, retention time.Duration, logger *zap.Logger) *RedisTranslationStore {
	return &RedisTranslationStore{
		cache:     cache,
		client:    cache.GetRedisClient(),
		prefix:    constants.RedisConfig.KeyPrefix,
		retention: retention,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *RedisTranslationStore) redisKey(key string) string {
	return s.prefix + key
}

func (s *RedisTranslationStore) Get(ctx context.Context, key string) (*domain.TranslationCacheEntry, error) {
	fields, err := s.client.HGetAll(ctx, s.redisKey(key)).Result()
	if err != nil {
		s.logger.Error("Translation cache get failed", zap.String("cache_key", key), zap.Error(err))
		return nil, errors.NewCacheError("get failed", "hgetall", key, err)
	}
	if len(fields) == 0 {
		return nil, nil
	}

	entry := &domain.TranslationCacheEntry{
		Key:        key,
		SourceID:   fields["file_id"],
		SourceLang: fields["source_lang"],
		TargetLang: fields["target_lang"],
		Document:   fields["content"],
		UsageCount: parseInt(fields["usage_count"]),
		CreatedAt:  time.UnixMilli(parseInt(fields["created_at"])),
		LastUsedAt: time.UnixMilli(parseInt(fields["last_used"])),
	}
	if entry.Expired(s.retention, s.now()) {
		// the TTL may trail created_at slightly; drop the hash so a fresh Put can land
		if err := s.cache.Del(ctx, s.redisKey(key)); err != nil {
			s.logger.Warn("Expired translation not evicted", zap.String("cache_key", key), zap.Error(err))
		}
		return nil, nil
	}
	return entry, nil
}

func (s *RedisTranslationStore) Put(ctx context.Context, entry domain.TranslationCacheEntry) (bool, error) {
	ttl := int64(0)
	if s.retention > 0 {
		ttl = s.retention.Milliseconds()
	}

	created, err := putScript.Run(ctx, s.client, []string{s.redisKey(entry.Key)},
		entry.SourceID,
		entry.SourceLang,
		entry.TargetLang,
		entry.Document,
		entry.UsageCount,
		entry.CreatedAt.UnixMilli(),
		entry.LastUsedAt.UnixMilli(),
		ttl,
	).Int()
	if err != nil {
		s.logger.Error("Translation cache put failed", zap.String("cache_key", entry.Key), zap.Error(err))
		return false, errors.NewCacheError("put failed", "put", entry.Key, err)
	}

	return created == 1, nil
}

func (s *RedisTranslationStore) Touch(ctx context.Context, key string) error {
	if err := touchScript.Run(ctx, s.client, []string{s.redisKey(key)}, s.now().UnixMilli()).Err(); err != nil {
		s.logger.Error("Translation cache touch failed", zap.String("cache_key", key), zap.Error(err))
		return errors.NewCacheError("touch failed", "touch", key, err)
	}
	return nil
}

// Sweep is a no-op: every key carries a TTL equal to the retention window.
func (s *RedisTranslationStore) Sweep(context.Context, time.Time) (int64, error) {
	return 0, nil
}

func (s *RedisTranslationStore) Count(ctx context.Context) (int64, error) {
	var (
		cursor uint64
		total  int64
	)
	for {
		keys, next, err := s.client.Scan(ctx, cursor, s.prefix+"*", constants.RedisConfig.ScanBatch).Result()
		if err != nil {
			return 0, errors.NewCacheError("scan failed", "scan", s.prefix+"*", err)
		}
		total += int64(len(keys))
		cursor = next
		if cursor == 0 {
			return total, nil
		}
	}
}

func parseInt(value string) int64 {
	n, _ := strconv.ParseInt(value, 10, 64)
	return n
}
