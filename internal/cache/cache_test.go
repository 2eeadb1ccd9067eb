package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	c := NewLRU(2, time.Minute)
	c.Set(ctx, "a", []byte("1"))
	c.Set(ctx, "b", []byte("2"))
	_, ok := c.Get(ctx, "a")
	require.True(t, ok)
	c.Set(ctx, "c", []byte("3"))

	_, ok = c.Get(ctx, "b")
	assert.False(t, ok)
	v, ok := c.Get(ctx, "a")
	assert.True(t, ok)
	assert.Equal(t, []byte("1"), v)
	assert.Equal(t, 2, c.Len())
}

func TestLRUExpires(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)
	c := NewLRU(4, time.Second)
	c.now = func() time.Time { return now }
	c.Set(ctx, "k", []byte("v"))
	_, ok := c.Get(ctx, "k")
	assert.True(t, ok)

	now = now.Add(2 * time.Second)
	_, ok = c.Get(ctx, "k")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestRedisReadThrough(t *testing.T) {
	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rc.Close()
	ctx := context.Background()

	c := New(rc, 8, time.Minute)
	_, ok := c.Get(ctx, "org:id:1")
	assert.False(t, ok)

	c.Set(ctx, "org:id:1", []byte(`{"id":1}`))
	v, ok := c.Get(ctx, "org:id:1")
	require.True(t, ok)
	assert.JSONEq(t, `{"id":1}`, string(v))
	assert.Equal(t, time.Minute, mr.TTL("org:id:1"))

	mr.FastForward(2 * time.Minute)
	_, ok = c.Get(ctx, "org:id:1")
	assert.False(t, ok)
}

func TestRedisFailureIsMiss(t *testing.T) {
	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer rc.Close()
	c := NewRedis(rc, time.Minute)
	mr.Close()

	ctx := context.Background()
	c.Set(ctx, "k", []byte("v"))
	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)
}

func TestNewFallsBackToLRU(t *testing.T) {
	_, isLRU := New(nil, 8, time.Minute).(*LRU)
	assert.True(t, isLRU)
}
