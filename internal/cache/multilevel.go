// Package cache implements the three-tier read-through cache in front of
// search results and raw documents: a process-local L1 with a very short
// TTL, a Redis L2 for serialized search results, and a longer-lived Redis
// L3 for raw documents. The cache is deliberately not invalidated on index
// writes; staleness is bounded only by each tier's TTL, so nothing
// authoritative (availability, booking decisions) may ever be read from it.
package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/abo-bahr-alqershi/BOOKn2-sub004/internal/config"
	"github.com/abo-bahr-alqershi/BOOKn2-sub004/internal/logger"
	"github.com/abo-bahr-alqershi/BOOKn2-sub004/internal/store"
)

// Level identifies a cache tier.
type Level int

const (
	L1 Level = iota + 1
	L2
	L3
)

func (l Level) String() string {
	switch l {
	case L1:
		return "l1"
	case L2:
		return "l2"
	case L3:
		return "l3"
	}
	return "unknown"
}

type localEntry struct {
	data    []byte
	expires time.Time
}

// MultiLevel is the tiered cache. Safe for concurrent use.
type MultiLevel struct {
	cfg   config.CacheConfig
	store *store.Manager
	log   *logger.Logger

	mu    sync.RWMutex
	local map[string]localEntry

	stop chan struct{}
	once sync.Once
}

// New builds the cache and starts the L1 expiry sweeper.
func New(cfg config.CacheConfig, mgr *store.Manager, log *logger.Logger) *MultiLevel {
	c := &MultiLevel{
		cfg:   cfg,
		store: mgr,
		log:   log,
		local: make(map[string]localEntry),
		stop:  make(chan struct{}),
	}
	go c.sweep()
	return c
}

// Close stops the background sweeper.
func (c *MultiLevel) Close() {
	c.once.Do(func() { close(c.stop) })
}

// Get probes L1, then L2, then L3. On an L2 or L3 hit the value is promoted
// into every faster tier before returning; remote promotion is best-effort
// and does not delay the caller. dest is filled via JSON decoding.
func (c *MultiLevel) Get(ctx context.Context, key string, dest any) (bool, error) {
	if data, ok := c.localGet(key); ok {
		c.bump(ctx, L1, "hit")
		return true, json.Unmarshal(data, dest)
	}
	c.bump(ctx, L1, "miss")

	client, err := c.store.Keyspace(ctx)
	if err != nil {
		// Remote tiers unreachable: behave as a miss.
		c.log.Debug("cache remote tiers unavailable", "error", err)
		return false, nil
	}

	if data, err := client.Get(ctx, c.remoteKey(L2, key)).Bytes(); err == nil {
		c.bump(ctx, L2, "hit")
		c.localSet(key, data)
		return true, json.Unmarshal(data, dest)
	} else if err != redis.Nil {
		c.log.Debug("cache l2 read failed", "key", key, "error", err)
	}
	c.bump(ctx, L2, "miss")

	if data, err := client.Get(ctx, c.remoteKey(L3, key)).Bytes(); err == nil {
		c.bump(ctx, L3, "hit")
		c.localSet(key, data)
		c.promote(key, data, c.cfg.L2TTL, L2)
		return true, json.Unmarshal(data, dest)
	} else if err != redis.Nil {
		c.log.Debug("cache l3 read failed", "key", key, "error", err)
	}
	c.bump(ctx, L3, "miss")
	return false, nil
}

// Set writes v to the given tiers (all three when none are named). Remote
// writes happen concurrently; the first error is returned but partial writes
// stand.
func (c *MultiLevel) Set(ctx context.Context, key string, v any, levels ...Level) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if len(levels) == 0 {
		levels = []Level{L1, L2, L3}
	}

	var remote []Level
	for _, l := range levels {
		if l == L1 {
			c.localSet(key, data)
		} else {
			remote = append(remote, l)
		}
	}
	if len(remote) == 0 {
		return nil
	}
	client, err := c.store.Keyspace(ctx)
	if err != nil {
		return err
	}

	var wg sync.WaitGroup
	errs := make([]error, len(remote))
	for i, l := range remote {
		wg.Add(1)
		go func(i int, l Level) {
			defer wg.Done()
			errs[i] = client.Set(ctx, c.remoteKey(l, key), data, c.ttl(l)).Err()
		}(i, l)
	}
	wg.Wait()
	for _, e := range errs {
		if e != nil {
			return e
		}
	}
	return nil
}

// Remove deletes the key from every tier.
func (c *MultiLevel) Remove(ctx context.Context, key string) error {
	c.mu.Lock()
	delete(c.local, key)
	c.mu.Unlock()

	client, err := c.store.Keyspace(ctx)
	if err != nil {
		return err
	}
	return client.Del(ctx, c.remoteKey(L2, key), c.remoteKey(L3, key)).Err()
}

// Flush empties all tiers, counters included.
func (c *MultiLevel) Flush(ctx context.Context) error {
	c.mu.Lock()
	c.local = make(map[string]localEntry)
	c.mu.Unlock()

	client, err := c.store.Keyspace(ctx)
	if err != nil {
		return err
	}
	var cursor uint64
	for {
		keys, next, err := client.Scan(ctx, cursor, c.cfg.Prefix+":*", 200).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := client.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// TierStats is one tier's persisted counters.
type TierStats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
}

// Statistics reads the persisted hit/miss counters for every tier.
func (c *MultiLevel) Statistics(ctx context.Context) (map[string]TierStats, error) {
	client, err := c.store.Keyspace(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]TierStats, 3)
	for _, l := range []Level{L1, L2, L3} {
		tier := l.String()
		hits, _ := client.Get(ctx, store.CacheStatsKey(c.cfg.Prefix, tier, "hit")).Int64()
		misses, _ := client.Get(ctx, store.CacheStatsKey(c.cfg.Prefix, tier, "miss")).Int64()
		out[tier] = TierStats{Hits: hits, Misses: misses}
	}
	return out, nil
}

func (c *MultiLevel) remoteKey(l Level, key string) string {
	return store.CacheKey(c.cfg.Prefix, l.String(), key)
}

func (c *MultiLevel) ttl(l Level) time.Duration {
	switch l {
	case L2:
		return c.cfg.L2TTL
	case L3:
		return c.cfg.L3TTL
	}
	return c.cfg.L1TTL
}

func (c *MultiLevel) localGet(key string) ([]byte, bool) {
	c.mu.RLock()
	e, ok := c.local[key]
	c.mu.RUnlock()
	if !ok || time.Now().After(e.expires) {
		return nil, false
	}
	return e.data, true
}

func (c *MultiLevel) localSet(key string, data []byte) {
	c.mu.Lock()
	c.local[key] = localEntry{data: data, expires: time.Now().Add(c.cfg.L1TTL)}
	c.mu.Unlock()
}

// promote copies a value into a faster remote tier, detached from the read
// that triggered it.
func (c *MultiLevel) promote(key string, data []byte, ttl time.Duration, l Level) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		client, err := c.store.Keyspace(ctx)
		if err != nil {
			return
		}
		if err := client.Set(ctx, c.remoteKey(l, key), data, ttl).Err(); err != nil {
			c.log.Debug("cache promotion failed", "key", key, "tier", l.String(), "error", err)
		}
	}()
}

// bump increments a persisted counter, best-effort.
func (c *MultiLevel) bump(ctx context.Context, l Level, kind string) {
	client, err := c.store.Keyspace(ctx)
	if err != nil {
		return
	}
	_ = client.Incr(ctx, store.CacheStatsKey(c.cfg.Prefix, l.String(), kind)).Err()
}

func (c *MultiLevel) sweep() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			now := time.Now()
			c.mu.Lock()
			for k, e := range c.local {
				if now.After(e.expires) {
					delete(c.local, k)
				}
			}
			c.mu.Unlock()
		}
	}
}
