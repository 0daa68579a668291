package call_repo

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGuard(t *testing.T) (*miniredis.Miniredis, ActiveCallGuardContract) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, NewActiveCallGuard(rdb)
}

func TestActiveCallGuard_AcquireRelease(t *testing.T) {
	mr, guard := newGuard(t)
	ctx := context.Background()

	ok, appErr := guard.Acquire(ctx, "call_1", time.Hour, "alice", "bob")
	require.Nil(t, appErr)
	assert.True(t, ok)

	current, appErr := guard.Current(ctx, "bob")
	require.Nil(t, appErr)
	assert.Equal(t, "call_1", current)
	assert.Greater(t, mr.TTL(ActiveCallKey("alice")), time.Duration(0))

	require.Nil(t, guard.Release(ctx, "call_1", "alice", "bob"))
	assert.False(t, mr.Exists(ActiveCallKey("alice")))
	assert.False(t, mr.Exists(ActiveCallKey("bob")))
}

func TestActiveCallGuard_ConflictWritesNothing(t *testing.T) {
	mr, guard := newGuard(t)
	ctx := context.Background()

	ok, appErr := guard.Acquire(ctx, "call_1", time.Hour, "alice", "bob")
	require.Nil(t, appErr)
	require.True(t, ok)

	// carol is free but bob is busy, so carol must stay unlocked
	ok, appErr = guard.Acquire(ctx, "call_2", time.Hour, "carol", "bob")
	require.Nil(t, appErr)
	assert.False(t, ok)
	assert.False(t, mr.Exists(ActiveCallKey("carol")))
}

func TestActiveCallGuard_ReleaseOnlyOwnKeys(t *testing.T) {
	_, guard := newGuard(t)
	ctx := context.Background()

	ok, _ := guard.Acquire(ctx, "call_1", time.Hour, "alice", "bob")
	require.True(t, ok)

	require.Nil(t, guard.Release(ctx, "call_other", "alice", "bob"))

	current, _ := guard.Current(ctx, "alice")
	assert.Equal(t, "call_1", current)
}

func TestActiveCallGuard_ExpiresAfterTTL(t *testing.T) {
	mr, guard := newGuard(t)
	ctx := context.Background()

	ok, _ := guard.Acquire(ctx, "call_1", time.Minute, "alice", "bob")
	require.True(t, ok)

	mr.FastForward(2 * time.Minute)

	ok, appErr := guard.Acquire(ctx, "call_2", time.Minute, "alice", "bob")
	require.Nil(t, appErr)
	assert.True(t, ok)
}

func TestActiveCallGuard_ConcurrentAcquireSingleWinner(t *testing.T) {
	_, guard := newGuard(t)
	ctx := context.Background()

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, appErr := guard.Acquire(ctx, "call_race", time.Hour, "alice", "bob")
			if appErr == nil && ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
}

func TestActiveCallGuard_CurrentEmpty(t *testing.T) {
	_, guard := newGuard(t)

	current, appErr := guard.Current(context.Background(), "nobody")
	require.Nil(t, appErr)
	assert.Empty(t, current)
}
