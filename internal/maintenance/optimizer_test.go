package maintenance

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abo-bahr-alqershi/BOOKn2-sub004/internal/config"
	"github.com/abo-bahr-alqershi/BOOKn2-sub004/internal/logger"
	"github.com/abo-bahr-alqershi/BOOKn2-sub004/internal/store"
)

func TestOptimizeDeletesPastDayKeys(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := config.StoreConfig{
		Addr:          mr.Addr(),
		DialTimeout:   time.Second,
		InitTimeout:   2 * time.Second,
		RetryAttempts: 1,
		RetryBase:     time.Millisecond,
		BreakAfter:    100,
		BreakCooldown: time.Minute,
	}
	exec := store.NewExecutor(cfg.RetryAttempts, cfg.RetryBase, cfg.BreakAfter, cfg.BreakCooldown, logger.Discard())
	mgr := store.NewManager(cfg, exec, logger.Discard())
	t.Cleanup(func() { _ = mgr.Close() })

	ctx := context.Background()
	client, err := mgr.Keyspace(ctx)
	require.NoError(t, err)

	yesterday := time.Now().UTC().AddDate(0, 0, -1)
	lastWeek := time.Now().UTC().AddDate(0, 0, -7)
	tomorrow := time.Now().UTC().AddDate(0, 0, 1)
	require.NoError(t, client.SAdd(ctx, store.DayIndexKey(yesterday), "u1").Err())
	require.NoError(t, client.SAdd(ctx, store.DayIndexKey(lastWeek), "u1").Err())
	require.NoError(t, client.SAdd(ctx, store.DayIndexKey(tomorrow), "u1").Err())
	require.NoError(t, client.Set(ctx, "bookn:property:p1", "keep", 0).Err())

	rep, err := NewOptimizer(mgr, logger.Discard()).OptimizeDatabase(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, rep.StaleDayKeys)

	assert.Equal(t, int64(0), client.Exists(ctx, store.DayIndexKey(yesterday)).Val())
	assert.Equal(t, int64(0), client.Exists(ctx, store.DayIndexKey(lastWeek)).Val())
	assert.Equal(t, int64(1), client.Exists(ctx, store.DayIndexKey(tomorrow)).Val())
	assert.Equal(t, int64(1), client.Exists(ctx, "bookn:property:p1").Val())
}
