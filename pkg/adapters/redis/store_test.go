package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/arbor/internal/testutils"
	"github.com/aretw0/arbor/pkg/adapters/redis"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisStore_Contract(t *testing.T) {
	_, client := setup(t)
	ports.RunTreeStoreContract(t, redis.NewFromClient(client))
}

func TestRedisLocker_Contract(t *testing.T) {
	_, client := setup(t)
	ports.RunLockerContract(t, redis.NewLocker(client, "test:"))
}

func TestRedisStore_TTL_Expiration(t *testing.T) {
	mr, client := setup(t)
	store := redis.NewFromClient(client, redis.WithTTL(time.Second))
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "ephemeral", testutils.SampleDocument(t)))

	names, err := store.List(ctx)
	require.NoError(t, err)
	assert.Contains(t, names, "ephemeral")

	mr.FastForward(2 * time.Second)

	_, err = store.Load(ctx, "ephemeral")
	assert.ErrorIs(t, err, domain.ErrTreeNotFound)
}

func TestRedisStore_Prefix(t *testing.T) {
	mr, client := setup(t)
	store := redis.NewFromClient(client, redis.WithPrefix("custom:app:"))
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "intro", testutils.SampleDocument(t)))

	assert.True(t, mr.Exists("custom:app:intro"), "Expected key with custom prefix to exist")
	assert.True(t, mr.Exists("custom:app:index"), "Expected index with custom prefix to exist")

	names, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"intro"}, names)
}

func TestRedisLocker_KeyLifecycle(t *testing.T) {
	mr, client := setup(t)
	locker := redis.NewLocker(client, "test:")
	ctx := context.Background()

	lease, err := locker.Lock(ctx, "tavern", 5*time.Second)
	require.NoError(t, err)
	assert.True(t, mr.Exists("test:lock:tavern"), "Lock key should be set in Redis")

	require.NoError(t, lease.Unlock(ctx))
	assert.False(t, mr.Exists("test:lock:tavern"), "Lock key should be removed after unlock")
}

func TestRedisLocker_ExpiredLockIsNotStolenBack(t *testing.T) {
	mr, client := setup(t)
	locker := redis.NewLocker(client, "test:")
	ctx := context.Background()

	first, err := locker.Lock(ctx, "tavern", time.Second)
	require.NoError(t, err)

	mr.FastForward(2 * time.Second)

	second, err := locker.Lock(ctx, "tavern", time.Minute)
	require.NoError(t, err, "expired lock can be taken over")

	// The stale holder must neither extend nor release the new holder's lock.
	assert.ErrorIs(t, first.Renew(ctx, time.Hour), domain.ErrLockLost)
	assert.Equal(t, time.Minute, mr.TTL("test:lock:tavern"))
	require.NoError(t, first.Unlock(ctx))
	assert.True(t, mr.Exists("test:lock:tavern"))

	require.NoError(t, second.Unlock(ctx))
	assert.False(t, mr.Exists("test:lock:tavern"))
}

func TestRedisLocker_RenewResetsTTL(t *testing.T) {
	mr, client := setup(t)
	locker := redis.NewLocker(client, "test:")
	ctx := context.Background()

	lease, err := locker.Lock(ctx, "tavern", 3*time.Second)
	require.NoError(t, err)

	mr.FastForward(2 * time.Second)
	assert.Equal(t, time.Second, mr.TTL("test:lock:tavern"))

	require.NoError(t, lease.Renew(ctx, 3*time.Second))
	assert.Equal(t, 3*time.Second, mr.TTL("test:lock:tavern"))

	mr.FastForward(2 * time.Second)
	assert.True(t, mr.Exists("test:lock:tavern"), "renewed lock outlives the original TTL")
	require.NoError(t, lease.Unlock(ctx))
}
