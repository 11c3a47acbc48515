package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// Runs only against a real Redis: TEST_REDIS_ADDR=localhost:6379.
func newRedisStore(t *testing.T) *RedisTranslationStore {
	t.Helper()

	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}

	client := redis.NewClient(&redis.Options{Addr: addr, DB: 15})
	require.NoError(t, client.Ping(context.Background()).Err())
	require.NoError(t, client.FlushDB(context.Background()).Err())
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisTranslationStore(NewCacheServiceWithClient(client, zap.NewNop()), 90*24*time.Hour, zap.NewNop())
}

func TestRedisStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := newRedisStore(t)
	entry := testEntry(time.Now())

	created, err := store.Put(ctx, entry)
	require.NoError(t, err)
	assert.True(t, created)

	other := entry
	other.Document = "other"
	created, err = store.Put(ctx, other)
	require.NoError(t, err)
	assert.False(t, created)

	require.NoError(t, store.Touch(ctx, entry.Key))
	require.NoError(t, store.Touch(ctx, "absent"))

	got, err := store.Get(ctx, entry.Key)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, entry.Document, got.Document)
	assert.Equal(t, int64(2), got.UsageCount)

	ttl, err := store.client.PTTL(ctx, store.redisKey(entry.Key)).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 89*24*time.Hour)

	exists, err := store.client.Exists(ctx, store.redisKey("absent")).Result()
	require.NoError(t, err)
	assert.Zero(t, exists)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestRedisStoreEvictsExpiredEntry(t *testing.T) {
	ctx := context.Background()
	store := newRedisStore(t)
	created := time.Now().Add(-91 * 24 * time.Hour)
	stale := testEntry(created)

	_, err := store.Put(ctx, stale)
	require.NoError(t, err)

	got, err := store.Get(ctx, stale.Key)
	require.NoError(t, err)
	assert.Nil(t, got)

	exists, err := store.client.Exists(ctx, store.redisKey(stale.Key)).Result()
	require.NoError(t, err)
	assert.Zero(t, exists)

	fresh := testEntry(time.Now())
	replaced, err := store.Put(ctx, fresh)
	require.NoError(t, err)
	assert.True(t, replaced)
}

func TestCacheServiceJSON(t *testing.T) {
	ctx := context.Background()
	store := newRedisStore(t)
	svc := NewCacheServiceWithClient(store.client, zap.NewNop())

	var out []string
	found, err := svc.Get(ctx, "subtrans:test:json", &out)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, svc.Set(ctx, "subtrans:test:json", []string{"a", "b"}, time.Minute))
	found, err = svc.Get(ctx, "subtrans:test:json", &out)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []string{"a", "b"}, out)

	require.NoError(t, svc.Del(ctx, "subtrans:test:json"))
	found, err = svc.Get(ctx, "subtrans:test:json", &out)
	require.NoError(t, err)
	assert.False(t, found)
}
