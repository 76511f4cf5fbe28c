// Package availability maintains per-unit bookable-interval sets in Redis,
// answers availability queries, computes date-ranged dynamic prices, and
// commits bookings by splitting intervals. Booking commits are optimistic:
// the availability is re-verified, then a Lua script performs the final
// atomic check-and-split so two racing bookings can never both succeed.
package availability

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/abo-bahr-alqershi/BOOKn2-sub004/internal/config"
	"github.com/abo-bahr-alqershi/BOOKn2-sub004/internal/health"
	"github.com/abo-bahr-alqershi/BOOKn2-sub004/internal/logger"
	"github.com/abo-bahr-alqershi/BOOKn2-sub004/internal/model"
	"github.com/abo-bahr-alqershi/BOOKn2-sub004/internal/repository"
	"github.com/abo-bahr-alqershi/BOOKn2-sub004/internal/store"
)

// ErrOverlappingRanges rejects an availability update whose ranges overlap.
var ErrOverlappingRanges = errors.New("availability: ranges overlap")

// batchSlots caps how many property checks a batch runs at once.
const batchSlots = 10

// bookScript atomically re-checks that the exact covering range still
// exists, removes it, re-inserts the remainder sub-ranges, clears the unit
// from the touched per-day indices and writes the booking record. Returns 1
// on success, 0 when the range was consumed by a concurrent commit.
//
// KEYS[1] availability zset, KEYS[2] booking hash, KEYS[3..] day index keys.
// ARGV[1] original member, ARGV[2]/ARGV[3] before/after member ("" = none),
// ARGV[4]/ARGV[5] their scores, ARGV[6] unit id, ARGV[7..] booking fields.
var bookScript = redis.NewScript(`
if not redis.call('ZSCORE', KEYS[1], ARGV[1]) then
  return 0
end
redis.call('ZREM', KEYS[1], ARGV[1])
if ARGV[2] ~= '' then
  redis.call('ZADD', KEYS[1], ARGV[4], ARGV[2])
end
if ARGV[3] ~= '' then
  redis.call('ZADD', KEYS[1], ARGV[5], ARGV[3])
end
for i = 3, #KEYS do
  redis.call('SREM', KEYS[i], ARGV[6])
end
for i = 7, #ARGV, 2 do
  redis.call('HSET', KEYS[2], ARGV[i], ARGV[i + 1])
end
return 1
`)

// Processor is the availability and pricing engine. Safe for concurrent use.
type Processor struct {
	store    *store.Manager
	cacheCfg config.CacheConfig
	fallback repository.PricingReader // generic pricing source, may be nil
	log      *logger.Logger
	stats    *health.Stats
}

// NewProcessor builds a Processor. fallback may be nil when no generic
// pricing service is available.
func NewProcessor(mgr *store.Manager, cacheCfg config.CacheConfig, fallback repository.PricingReader, stats *health.Stats, log *logger.Logger) *Processor {
	return &Processor{store: mgr, cacheCfg: cacheCfg, fallback: fallback, stats: stats, log: log}
}

// UpdateUnitAvailability replaces the unit's stored ranges and rebuilds its
// per-day index memberships in one pipeline. Ranges must be non-overlapping;
// together they are the unit's full known calendar horizon.
func (p *Processor) UpdateUnitAvailability(ctx context.Context, unitID string, ranges []model.AvailabilityRange) error {
	sorted := make([]model.AvailabilityRange, len(ranges))
	copy(sorted, ranges)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start.Before(sorted[j].Start) })
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Start.Before(sorted[i-1].End) {
			return fmt.Errorf("%w: %s", ErrOverlappingRanges, unitID)
		}
	}

	client, err := p.store.Keyspace(ctx)
	if err != nil {
		return err
	}

	old, err := p.RangesForUnit(ctx, unitID)
	if err != nil {
		return err
	}

	key := store.AvailabilityKey(unitID)
	return p.store.Executor().Do(ctx, "availability.update", func(ctx context.Context) error {
		pipe := client.TxPipeline()
		pipe.Del(ctx, key)
		// Clear prior day-index memberships before re-adding.
		for _, day := range bookableDays(old) {
			pipe.SRem(ctx, store.DayIndexKey(day), unitID)
		}
		for _, r := range sorted {
			member, err := json.Marshal(r)
			if err != nil {
				return err
			}
			pipe.ZAdd(ctx, key, redis.Z{Score: float64(r.Start.UTC().Unix()), Member: string(member)})
		}
		for _, day := range bookableDays(sorted) {
			pipe.SAdd(ctx, store.DayIndexKey(day), unitID)
		}
		_, err := pipe.Exec(ctx)
		return err
	})
}

// RangesForUnit reads the unit's stored ranges ordered by start time.
// Members that fail to decode are skipped.
func (p *Processor) RangesForUnit(ctx context.Context, unitID string) ([]model.AvailabilityRange, error) {
	client, err := p.store.Keyspace(ctx)
	if err != nil {
		return nil, err
	}
	members, err := client.ZRange(ctx, store.AvailabilityKey(unitID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]model.AvailabilityRange, 0, len(members))
	for _, m := range members {
		var r model.AvailabilityRange
		if err := json.Unmarshal([]byte(m), &r); err != nil {
			p.log.Warn("skipping malformed availability range", "unit_id", unitID, "error", err)
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// IsDayBookable reports whether day falls inside a stored bookable range.
func (p *Processor) IsDayBookable(ctx context.Context, unitID string, day time.Time) (bool, error) {
	ranges, err := p.RangesForUnit(ctx, unitID)
	if err != nil {
		return false, err
	}
	for _, r := range ranges {
		if r.Bookable && r.ContainsDay(day) {
			return true, nil
		}
	}
	return false, nil
}

// CheckRequest is one property availability question.
type CheckRequest struct {
	PropertyID string    `json:"property_id" validate:"required"`
	CheckIn    time.Time `json:"check_in" validate:"required"`
	CheckOut   time.Time `json:"check_out" validate:"required"`
	Guests     int       `json:"guests"`
	UnitTypeID string    `json:"unit_type_id"`
}

// CheckProperty answers whether any unit of the property can host the stay.
// Units are examined in parallel; each must pass the type/capacity/flag
// filters and have a single stored bookable range covering the whole stay.
// A property with zero units short-circuits without further store reads.
func (p *Processor) CheckProperty(ctx context.Context, req CheckRequest) (*model.PropertyAvailabilityResult, error) {
	nights := model.Nights(req.CheckIn, req.CheckOut)
	result := &model.PropertyAvailabilityResult{PropertyID: req.PropertyID, Nights: nights}
	if nights <= 0 {
		result.Message = "check-out must be after check-in"
		return result, nil
	}

	client, err := p.store.Keyspace(ctx)
	if err != nil {
		return nil, err
	}
	unitIDs, err := client.SMembers(ctx, store.PropertyUnitsKey(req.PropertyID)).Result()
	if err != nil {
		return nil, err
	}
	if len(unitIDs) == 0 {
		result.Message = "property has no units"
		return result, nil
	}

	var (
		mu    sync.Mutex
		units []model.UnitAvailability
		wg    sync.WaitGroup
	)
	for _, unitID := range unitIDs {
		wg.Add(1)
		go func(unitID string) {
			defer wg.Done()
			ua, ok := p.checkUnit(ctx, client, unitID, req, nights)
			if !ok {
				return
			}
			mu.Lock()
			units = append(units, ua)
			mu.Unlock()
		}(unitID)
	}
	wg.Wait()

	sort.Slice(units, func(i, j int) bool { return units[i].NightlyPrice < units[j].NightlyPrice })
	result.Units = units
	result.IsAvailable = len(units) > 0
	if result.IsAvailable {
		result.LowestNightly = units[0].NightlyPrice
	} else {
		result.Message = "no unit satisfies the requested stay"
	}
	return result, nil
}

func (p *Processor) checkUnit(ctx context.Context, client *redis.Client, unitID string, req CheckRequest, nights int) (model.UnitAvailability, bool) {
	fields, err := client.HGetAll(ctx, store.UnitKey(unitID)).Result()
	if err != nil {
		p.log.Warn("unit read failed during availability check", "unit_id", unitID, "error", err)
		return model.UnitAvailability{}, false
	}
	unit := model.UnitFromHash(fields)
	if unit == nil || !unit.IsActive || !unit.IsAvailable {
		return model.UnitAvailability{}, false
	}
	if req.UnitTypeID != "" && unit.TypeID != req.UnitTypeID {
		return model.UnitAvailability{}, false
	}
	if req.Guests > 0 && unit.MaxCapacity < req.Guests {
		return model.UnitAvailability{}, false
	}

	ranges, err := p.RangesForUnit(ctx, unitID)
	if err != nil {
		p.log.Warn("availability read failed", "unit_id", unitID, "error", err)
		return model.UnitAvailability{}, false
	}
	if coveringRange(ranges, req.CheckIn, req.CheckOut) == nil {
		return model.UnitAvailability{}, false
	}

	total, currency, err := p.CalculateUnitPrice(ctx, unitID, req.CheckIn, req.CheckOut)
	if err != nil {
		p.log.Warn("price computation failed", "unit_id", unitID, "error", err)
		return model.UnitAvailability{}, false
	}
	return model.UnitAvailability{
		UnitID:       unitID,
		Name:         unit.Name,
		TypeID:       unit.TypeID,
		MaxCapacity:  unit.MaxCapacity,
		TotalPrice:   total,
		NightlyPrice: round2(total / float64(nights)),
		Currency:     currency,
	}, true
}

// BatchResult aggregates a batch availability check.
type BatchResult struct {
	Total       int                                 `json:"total"`
	Available   int                                 `json:"available"`
	Unavailable int                                 `json:"unavailable"`
	Results     []*model.PropertyAvailabilityResult `json:"results"`
}

// CheckBatch runs CheckProperty over every request with a fixed-size
// admission semaphore bounding concurrent store load.
func (p *Processor) CheckBatch(ctx context.Context, reqs []CheckRequest) (*BatchResult, error) {
	results := make([]*model.PropertyAvailabilityResult, len(reqs))
	slots := make(chan struct{}, batchSlots)
	var wg sync.WaitGroup
	for i, req := range reqs {
		wg.Add(1)
		go func(i int, req CheckRequest) {
			defer wg.Done()
			slots <- struct{}{}
			defer func() { <-slots }()
			res, err := p.CheckProperty(ctx, req)
			if err != nil {
				p.log.Warn("batch availability check failed", "property_id", req.PropertyID, "error", err)
				res = &model.PropertyAvailabilityResult{PropertyID: req.PropertyID, Message: "check failed"}
			}
			results[i] = res
		}(i, req)
	}
	wg.Wait()

	out := &BatchResult{Total: len(reqs), Results: results}
	for _, r := range results {
		if r.IsAvailable {
			out.Available++
		} else {
			out.Unavailable++
		}
	}
	return out, nil
}

// BookUnit commits a booking. It re-reads the unit's ranges, re-verifies
// that a single bookable range covers the stay, then runs the atomic commit
// script. A false return (with nil error) means the stay is no longer
// available; the caller owns any retry policy.
func (p *Processor) BookUnit(ctx context.Context, unitID string, checkIn, checkOut time.Time, bookingID string) (bool, error) {
	nights := model.Nights(checkIn, checkOut)
	if nights <= 0 {
		return false, nil
	}
	ranges, err := p.RangesForUnit(ctx, unitID)
	if err != nil {
		return false, err
	}
	covering := coveringRange(ranges, checkIn, checkOut)
	if covering == nil {
		p.stats.RecordBookingConflict()
		return false, nil
	}

	member, err := json.Marshal(*covering)
	if err != nil {
		return false, err
	}
	in, out := model.DateOnly(checkIn), model.DateOnly(checkOut)

	var beforeJSON, afterJSON string
	var beforeScore, afterScore float64
	if model.DateOnly(covering.Start).Before(in) {
		before := model.AvailabilityRange{Start: covering.Start, End: in, Bookable: true}
		b, _ := json.Marshal(before)
		beforeJSON, beforeScore = string(b), float64(before.Start.UTC().Unix())
	}
	if out.Before(model.DateOnly(covering.End)) {
		after := model.AvailabilityRange{Start: out, End: covering.End, Bookable: true}
		b, _ := json.Marshal(after)
		afterJSON, afterScore = string(b), float64(after.Start.UTC().Unix())
	}

	booking := model.BookedRange{
		BookingID: bookingID,
		UnitID:    unitID,
		CheckIn:   in,
		CheckOut:  out,
		Status:    "confirmed",
	}

	keys := []string{store.AvailabilityKey(unitID), store.BookingKey(bookingID)}
	for day := in; day.Before(out); day = day.AddDate(0, 0, 1) {
		keys = append(keys, store.DayIndexKey(day))
	}
	args := []any{
		string(member), beforeJSON, afterJSON,
		strconv.FormatFloat(beforeScore, 'f', -1, 64),
		strconv.FormatFloat(afterScore, 'f', -1, 64),
		unitID,
		"booking_id", booking.BookingID,
		"unit_id", booking.UnitID,
		"check_in", in.Format("2006-01-02"),
		"check_out", out.Format("2006-01-02"),
		"status", booking.Status,
	}

	client, err := p.store.Keyspace(ctx)
	if err != nil {
		return false, err
	}
	var committed bool
	err = p.store.Executor().Do(ctx, "availability.book", func(ctx context.Context) error {
		n, err := bookScript.Run(ctx, client, keys, args...).Int()
		if err != nil {
			return err
		}
		committed = n == 1
		return nil
	})
	if err != nil {
		return false, err
	}
	if !committed {
		p.stats.RecordBookingConflict()
		return false, nil
	}
	p.stats.RecordBooking()
	p.publishBooking(ctx, booking)
	return true, nil
}

// publishBooking announces a committed booking over store pub/sub,
// best-effort.
func (p *Processor) publishBooking(ctx context.Context, booking model.BookedRange) {
	client, err := p.store.PubSub(ctx)
	if err != nil {
		return
	}
	payload, err := json.Marshal(booking)
	if err != nil {
		return
	}
	if err := client.Publish(ctx, store.BookingChannel, payload).Err(); err != nil {
		p.log.Debug("booking publish failed", "booking_id", booking.BookingID, "error", err)
	}
}

// coveringRange finds the single stored bookable range containing the whole
// stay, or nil.
func coveringRange(ranges []model.AvailabilityRange, checkIn, checkOut time.Time) *model.AvailabilityRange {
	for i := range ranges {
		if ranges[i].Bookable && ranges[i].Covers(checkIn, checkOut) {
			return &ranges[i]
		}
	}
	return nil
}

// bookableDays enumerates every calendar day covered by a bookable range.
func bookableDays(ranges []model.AvailabilityRange) []time.Time {
	var days []time.Time
	for _, r := range ranges {
		if !r.Bookable {
			continue
		}
		for day := model.DateOnly(r.Start); day.Before(model.DateOnly(r.End)); day = day.AddDate(0, 0, 1) {
			days = append(days, day)
		}
	}
	return days
}
