package ratelimit

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAllowPerKey(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l := New(1, 2, time.Minute)
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("u1"))
	assert.True(t, l.Allow("u1"))
	assert.False(t, l.Allow("u1"))
	assert.True(t, l.Allow("u2"), "keys have separate buckets")

	now = now.Add(time.Second)
	assert.True(t, l.Allow("u1"))
	assert.False(t, l.Allow("u1"))
}

func TestSweepDropsIdleKeys(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l := New(5, 5, time.Minute)
	l.now = func() time.Time { return now }

	for i := 0; i < 1100; i++ {
		l.Allow("user-" + strconv.Itoa(i))
	}
	assert.Equal(t, 1100, l.Len())

	now = now.Add(2 * time.Minute)
	l.Allow("fresh")
	assert.Equal(t, 1, l.Len())
}
