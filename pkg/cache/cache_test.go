package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	User  string  `json:"user"`
	Value float64 `json:"value"`
}

func TestMemoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	require.NoError(t, mc.Set(ctx, "k", payload{User: "u1", Value: 42}, time.Minute))
	got, err := GetTyped[payload](ctx, mc, "k")
	require.NoError(t, err)
	assert.Equal(t, payload{User: "u1", Value: 42}, got)

	require.NoError(t, mc.Set(ctx, "s", "plain", time.Minute))
	var s string
	require.NoError(t, mc.Get(ctx, "s", &s))
	assert.Equal(t, "plain", s)

	require.NoError(t, mc.Delete(ctx, "k"))
	_, err = GetTyped[payload](ctx, mc, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryExpiry(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	require.NoError(t, mc.Set(ctx, "k", "v", 10*time.Millisecond))
	time.Sleep(30 * time.Millisecond)
	_, err := mc.GetBytes(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryEvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache(WithMemoryMaxSize(2))
	defer mc.Close()

	require.NoError(t, mc.Set(ctx, "a", "1", time.Minute))
	time.Sleep(2 * time.Millisecond)
	require.NoError(t, mc.Set(ctx, "b", "2", time.Minute))
	time.Sleep(2 * time.Millisecond)
	_, err := mc.GetBytes(ctx, "a")
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	require.NoError(t, mc.Set(ctx, "c", "3", time.Minute))

	assert.Equal(t, 2, mc.Len())
	_, err = mc.GetBytes(ctx, "b")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryLock(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	ok, err := mc.TryLock(ctx, "lock", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, _ = mc.TryLock(ctx, "lock", time.Minute)
	assert.False(t, ok)
	require.NoError(t, mc.Unlock(ctx, "lock"))
	ok, _ = mc.TryLock(ctx, "lock", time.Minute)
	assert.True(t, ok)
}

func TestLayeredReadsThroughAndBackfills(t *testing.T) {
	ctx := context.Background()
	l2 := NewMemoryCache()
	lc := NewLayeredCache(l2, WithLayeredL1TTL(time.Minute))
	defer lc.Close()

	require.NoError(t, l2.Set(ctx, "snap", payload{User: "u1", Value: 1}, time.Minute))
	got, err := GetTyped[payload](ctx, lc, "snap")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.User)

	// served from L1 after L2 loses it
	require.NoError(t, l2.Delete(ctx, "snap"))
	got, err = GetTyped[payload](ctx, lc, "snap")
	require.NoError(t, err)
	assert.Equal(t, 1.0, got.Value)

	require.NoError(t, lc.Delete(ctx, "snap"))
	_, err = GetTyped[payload](ctx, lc, "snap")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestLayeredWritesThrough(t *testing.T) {
	ctx := context.Background()
	l2 := NewMemoryCache()
	lc := NewLayeredCache(l2)
	defer lc.Close()

	require.NoError(t, lc.Set(ctx, "k", payload{User: "u2"}, time.Minute))
	got, err := GetTyped[payload](ctx, l2, "k")
	require.NoError(t, err)
	assert.Equal(t, "u2", got.User)
}
