package lock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client
}

func TestDistributedLock_Mutex(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	lockA := NewDistributedLock(client, "test:lock", "holder-a", 10*time.Second)
	lockB := NewDistributedLock(client, "test:lock", "holder-b", 10*time.Second)

	ok, err := lockA.TryLock(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	// 同一把锁被持有期间，第二个持有者拿不到
	ok, err = lockB.TryLock(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, lockA.Unlock(ctx))

	ok, err = lockB.TryLock(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDistributedLock_UnlockOnlyOwn(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	lockA := NewDistributedLock(client, "test:lock", "holder-a", 10*time.Second)
	lockB := NewDistributedLock(client, "test:lock", "holder-b", 10*time.Second)

	ok, err := lockA.TryLock(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	// B 释放不掉 A 的锁
	require.NoError(t, lockB.Unlock(ctx))

	ok, err = lockB.TryLock(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDistributedLock_LockRetryExhausted(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	lockA := NewDistributedLock(client, "test:lock", "holder-a", 10*time.Second)
	lockB := NewDistributedLock(client, "test:lock", "holder-b", 10*time.Second)

	ok, err := lockA.TryLock(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	err = lockB.Lock(ctx, time.Millisecond, 3)
	assert.ErrorIs(t, err, ErrLockFailed)
}

func TestNewPurchaseLock_KeyPerLottery(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	// 不同活动的锁互不影响
	lock1 := NewPurchaseLock(client, 1, "h1")
	lock2 := NewPurchaseLock(client, 2, "h2")

	ok, err := lock1.TryLock(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = lock2.TryLock(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}
