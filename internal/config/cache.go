package config

import "time"

// CacheConfig tunes the three cache tiers and the dedicated price cache.
// L1 is process-local and very short lived; L2 holds serialized search
// results in Redis; L3 holds raw documents in Redis with a longer TTL.
type CacheConfig struct {
	L1TTL    time.Duration
	L2TTL    time.Duration
	L3TTL    time.Duration
	PriceTTL time.Duration // computed stay prices
	Prefix   string
}

// LoadCacheConfig reads cache tuning from the environment with the default
// tier TTLs the platform runs in production.
func LoadCacheConfig() CacheConfig {
	return CacheConfig{
		L1TTL:    envDur("CACHE_L1_TTL", 30*time.Second),
		L2TTL:    envDur("CACHE_L2_TTL", 2*time.Minute),
		L3TTL:    envDur("CACHE_L3_TTL", 10*time.Minute),
		PriceTTL: envDur("CACHE_PRICE_TTL", time.Hour),
		Prefix:   envStr("CACHE_PREFIX", "cache"),
	}
}
