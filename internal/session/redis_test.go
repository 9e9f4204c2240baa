package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)

	config := DefaultRedisConfig()
	config.Addr = mr.Addr()

	store := NewRedisStore(config)
	t.Cleanup(func() { store.Close() })
	return store, mr
}

func TestDefaultRedisConfig(t *testing.T) {
	config := DefaultRedisConfig()

	assert.Equal(t, "localhost:6379", config.Addr)
	assert.Equal(t, 10, config.PoolSize)
	assert.Equal(t, 3, config.MaxRetries)
	assert.Equal(t, 5*time.Second, config.DialTimeout)
}

func TestNewRedisStore_WithNilConfig(t *testing.T) {
	store := NewRedisStore(nil)
	defer store.Close()

	assert.NotNil(t, store.client)
}

func TestRedisStore_SaveLoadDelete(t *testing.T) {
	store, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "abc", 42, time.Hour))
	assert.True(t, mr.Exists("session:abc"))

	value, err := mr.Get("session:abc")
	require.NoError(t, err)
	assert.Equal(t, "42", value)

	userID, err := store.Load(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, uint(42), userID)

	require.NoError(t, store.Delete(ctx, "abc"))
	_, err = store.Load(ctx, "abc")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRedisStore_TTL(t *testing.T) {
	store, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "ttl", 1, time.Minute))
	assert.Equal(t, time.Minute, mr.TTL("session:ttl"))

	mr.FastForward(2 * time.Minute)

	_, err := store.Load(ctx, "ttl")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRedisStore_CorruptRecord(t *testing.T) {
	store, mr := setupTestRedis(t)

	require.NoError(t, mr.Set("session:bad", "not-a-number"))

	_, err := store.Load(context.Background(), "bad")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrSessionNotFound)
}

func TestRedisStore_Unavailable(t *testing.T) {
	store, mr := setupTestRedis(t)
	ctx := context.Background()

	mr.SetError("ERR simulated outage")

	assert.Error(t, store.Health(ctx))

	_, err := store.Load(ctx, "abc")
	assert.ErrorIs(t, err, ErrStoreDown)

	assert.ErrorIs(t, store.Save(ctx, "abc", 1, time.Minute), ErrStoreDown)
}

func TestRedisStore_Health(t *testing.T) {
	store, _ := setupTestRedis(t)

	assert.NoError(t, store.Health(context.Background()))
	assert.Contains(t, store.Stats(), "pool_total")
}

func TestManager_WithRedisStore(t *testing.T) {
	store, _ := setupTestRedis(t)
	manager := NewManager(store, "secret", time.Hour)
	ctx := context.Background()

	token, _, err := manager.Create(ctx, 5)
	require.NoError(t, err)

	userID, err := manager.Resolve(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, uint(5), userID)

	require.NoError(t, manager.Destroy(ctx, token))

	_, err = manager.Resolve(ctx, token)
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestBreakerStore_RedisOutage(t *testing.T) {
	redisStore, mr := setupTestRedis(t)
	store := NewBreakerStore(redisStore, &BreakerConfig{MaxFailures: 2, Timeout: time.Hour, HalfOpenMaxCalls: 1})
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "abc", 3, time.Minute))

	mr.SetError("ERR simulated outage")
	for i := 0; i < 2; i++ {
		_, err := store.Load(ctx, "abc")
		assert.ErrorIs(t, err, ErrStoreDown)
	}
	assert.Equal(t, BreakerOpen, store.Breaker().State())

	// Redis is back but the circuit stays open until the timeout passes.
	mr.SetError("")
	_, err := store.Load(ctx, "abc")
	assert.ErrorIs(t, err, ErrStoreDown)
	assert.NoError(t, store.Health(ctx))

	stats := store.Stats()
	assert.Equal(t, "redis", stats["backend"])
	assert.Contains(t, stats, "pool_total")
	assert.Equal(t, "open", stats["breaker"].(map[string]interface{})["state"])
}
