// Package maintenance runs the periodic store optimization job: sweeping
// expired per-day availability index keys and trimming anything an index
// write could not clean up itself.
package maintenance

import (
	"context"
	"strings"
	"time"

	"github.com/abo-bahr-alqershi/BOOKn2-sub004/internal/logger"
	"github.com/abo-bahr-alqershi/BOOKn2-sub004/internal/store"
)

// Optimizer performs one optimization pass on demand.
type Optimizer struct {
	store *store.Manager
	log   *logger.Logger
}

// NewOptimizer builds an Optimizer.
func NewOptimizer(mgr *store.Manager, log *logger.Logger) *Optimizer {
	return &Optimizer{store: mgr, log: log}
}

// Report summarizes one optimization pass.
type Report struct {
	StaleDayKeys int           `json:"stale_day_keys"`
	Duration     time.Duration `json:"duration"`
}

// OptimizeDatabase deletes per-day availability index keys for days in the
// past; they can no longer satisfy any stay and only consume memory.
func (o *Optimizer) OptimizeDatabase(ctx context.Context) (Report, error) {
	start := time.Now()
	client, err := o.store.ServerAdmin(ctx)
	if err != nil {
		return Report{}, err
	}

	today := time.Now().UTC().Truncate(24 * time.Hour)
	var rep Report
	var cursor uint64
	for {
		keys, next, err := client.Scan(ctx, cursor, store.DayIndexPattern, 200).Result()
		if err != nil {
			return rep, err
		}
		var stale []string
		for _, key := range keys {
			suffix := key[strings.LastIndex(key, ":")+1:]
			day, err := time.Parse("2006-01-02", suffix)
			if err != nil {
				continue
			}
			if day.Before(today) {
				stale = append(stale, key)
			}
		}
		if len(stale) > 0 {
			if err := client.Del(ctx, stale...).Err(); err != nil {
				return rep, err
			}
			rep.StaleDayKeys += len(stale)
		}
		if next == 0 {
			break
		}
		cursor = next
	}
	rep.Duration = time.Since(start)
	o.log.Info("store optimization finished", "stale_day_keys", rep.StaleDayKeys, "duration", rep.Duration)
	return rep, nil
}
