package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abo-bahr-alqershi/BOOKn2-sub004/internal/config"
	"github.com/abo-bahr-alqershi/BOOKn2-sub004/internal/logger"
	"github.com/abo-bahr-alqershi/BOOKn2-sub004/internal/store"
)

type payload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func newTestCache(t *testing.T) (*MultiLevel, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	scfg := config.StoreConfig{
		Addr:          mr.Addr(),
		DialTimeout:   time.Second,
		InitTimeout:   2 * time.Second,
		RetryAttempts: 1,
		RetryBase:     time.Millisecond,
		BreakAfter:    100,
		BreakCooldown: time.Minute,
	}
	exec := store.NewExecutor(scfg.RetryAttempts, scfg.RetryBase, scfg.BreakAfter, scfg.BreakCooldown, logger.Discard())
	mgr := store.NewManager(scfg, exec, logger.Discard())
	t.Cleanup(func() { _ = mgr.Close() })

	client, err := mgr.Keyspace(context.Background())
	require.NoError(t, err)

	c := New(config.CacheConfig{
		L1TTL:    30 * time.Second,
		L2TTL:    2 * time.Minute,
		L3TTL:    10 * time.Minute,
		PriceTTL: time.Hour,
		Prefix:   "cache",
	}, mgr, logger.Discard())
	t.Cleanup(c.Close)
	return c, client
}

func TestSetThenGetIsTransparent(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	want := payload{Name: "villa", Count: 3}
	require.NoError(t, c.Set(ctx, "k1", want))

	var got payload
	ok, err := c.Get(ctx, "k1", &got)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want, got)
}

func TestGetMiss(t *testing.T) {
	c, _ := newTestCache(t)

	var got payload
	ok, err := c.Get(context.Background(), "absent", &got)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSetSelectedTiersOnly(t *testing.T) {
	c, client := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k1", payload{Name: "doc"}, L1, L3))

	assert.Equal(t, int64(0), client.Exists(ctx, "cache:l2:k1").Val())
	assert.Equal(t, int64(1), client.Exists(ctx, "cache:l3:k1").Val())
}

func TestRemoteHitPromotesToLocal(t *testing.T) {
	c, client := newTestCache(t)
	ctx := context.Background()

	// Value lives only in L2, as if another instance wrote it.
	require.NoError(t, client.Set(ctx, "cache:l2:k1", `{"name":"remote","count":1}`, time.Minute).Err())

	var got payload
	ok, err := c.Get(ctx, "k1", &got)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "remote", got.Name)

	// The read copied the value into L1: a second read hits locally even
	// after the remote entry disappears.
	require.NoError(t, client.Del(ctx, "cache:l2:k1").Err())
	got = payload{}
	ok, err = c.Get(ctx, "k1", &got)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "remote", got.Name)
}

func TestL3HitPromotesToL2(t *testing.T) {
	c, client := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, client.Set(ctx, "cache:l3:k1", `{"name":"deep","count":2}`, time.Minute).Err())

	var got payload
	ok, err := c.Get(ctx, "k1", &got)
	require.NoError(t, err)
	require.True(t, ok)

	// Promotion runs detached from the read.
	assert.Eventually(t, func() bool {
		return client.Exists(ctx, "cache:l2:k1").Val() == 1
	}, time.Second, 10*time.Millisecond)
}

func TestRemoveClearsAllTiers(t *testing.T) {
	c, client := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k1", payload{Name: "gone"}))
	require.NoError(t, c.Remove(ctx, "k1"))

	var got payload
	ok, err := c.Get(ctx, "k1", &got)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, int64(0), client.Exists(ctx, "cache:l2:k1", "cache:l3:k1").Val())
}

func TestFlushRemovesEntriesAndCounters(t *testing.T) {
	c, client := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k1", payload{Name: "a"}))
	require.NoError(t, c.Set(ctx, "k2", payload{Name: "b"}))
	var got payload
	_, _ = c.Get(ctx, "k1", &got)

	require.NoError(t, c.Flush(ctx))

	keys, err := client.Keys(ctx, "cache:*").Result()
	require.NoError(t, err)
	assert.Empty(t, keys)

	ok, err := c.Get(ctx, "k1", &got)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStatisticsCountHitsAndMisses(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	var got payload
	_, _ = c.Get(ctx, "absent", &got) // misses on every tier

	require.NoError(t, c.Set(ctx, "k1", payload{Name: "x"}))
	ok, err := c.Get(ctx, "k1", &got) // L1 hit
	require.NoError(t, err)
	require.True(t, ok)

	stats, err := c.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats["l1"].Hits)
	assert.Equal(t, int64(1), stats["l1"].Misses)
	assert.Equal(t, int64(1), stats["l2"].Misses)
	assert.Equal(t, int64(1), stats["l3"].Misses)
}
