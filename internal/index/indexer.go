// Package index is the only writer of index state. It loads entities from
// the source-of-truth repository, builds their denormalized documents and
// writes one property's full fan-out (primary hash plus every secondary
// index) in a single atomic pipeline.
package index

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/abo-bahr-alqershi/BOOKn2-sub004/internal/availability"
	"github.com/abo-bahr-alqershi/BOOKn2-sub004/internal/health"
	"github.com/abo-bahr-alqershi/BOOKn2-sub004/internal/logger"
	"github.com/abo-bahr-alqershi/BOOKn2-sub004/internal/model"
	"github.com/abo-bahr-alqershi/BOOKn2-sub004/internal/repository"
	"github.com/abo-bahr-alqershi/BOOKn2-sub004/internal/store"
)

// Indexer reacts to domain events and keeps every index structure in
// lockstep with the primary documents.
type Indexer struct {
	store  *store.Manager
	source repository.Source
	avail  *availability.Processor
	stats  *health.Stats
	log    *logger.Logger
}

// NewIndexer builds an Indexer.
func NewIndexer(mgr *store.Manager, source repository.Source, avail *availability.Processor, stats *health.Stats, log *logger.Logger) *Indexer {
	return &Indexer{store: mgr, source: source, avail: avail, stats: stats, log: log}
}

// OnPropertyCreated indexes a newly created property.
func (ix *Indexer) OnPropertyCreated(ctx context.Context, id string) error {
	return ix.indexProperty(ctx, id, false)
}

// OnPropertyUpdated re-indexes a changed property. Last writer wins on the
// primary record.
func (ix *Indexer) OnPropertyUpdated(ctx context.Context, id string) error {
	return ix.indexProperty(ctx, id, false)
}

// OnPropertyDeleted removes the primary record and the id from every
// secondary index it could belong to. Removing a non-member is a no-op, so
// the operation is idempotent.
func (ix *Indexer) OnPropertyDeleted(ctx context.Context, id string) error {
	client, err := ix.store.Keyspace(ctx)
	if err != nil {
		return err
	}
	fields, err := client.HGetAll(ctx, store.PropertyKey(id)).Result()
	if err != nil {
		return err
	}
	doc := model.PropertyFromHash(fields)
	unitIDs, err := client.SMembers(ctx, store.PropertyUnitsKey(id)).Result()
	if err != nil {
		return err
	}

	// Collect per-day memberships of the property's units before the
	// availability sets vanish.
	unitDays := map[string][]time.Time{}
	for _, unitID := range unitIDs {
		ranges, err := ix.avail.RangesForUnit(ctx, unitID)
		if err != nil {
			ix.log.Warn("availability read failed during delete", "unit_id", unitID, "error", err)
			continue
		}
		for _, r := range ranges {
			for day := model.DateOnly(r.Start); day.Before(model.DateOnly(r.End)); day = day.AddDate(0, 0, 1) {
				unitDays[unitID] = append(unitDays[unitID], day)
			}
		}
	}

	return ix.store.Executor().Do(ctx, "index.delete", func(ctx context.Context) error {
		pipe := client.TxPipeline()
		pipe.Del(ctx, store.PropertyKey(id), store.PropertyUnitsKey(id))
		pipe.SRem(ctx, store.ActiveSetKey, id)
		pipe.SRem(ctx, store.FeaturedSetKey, id)
		pipe.ZRem(ctx, store.SortPriceKey, id)
		pipe.ZRem(ctx, store.SortRatingKey, id)
		pipe.ZRem(ctx, store.SortCreatedKey, id)
		pipe.ZRem(ctx, store.SortBookingsKey, id)
		pipe.ZRem(ctx, store.GeoKey, id)
		if doc != nil {
			pipe.SRem(ctx, store.CityTagKey(doc.City), id)
			pipe.SRem(ctx, store.TypeIDTagKey(doc.TypeID), id)
			pipe.SRem(ctx, store.TypeNameTagKey(model.NormalizeName(doc.TypeName)), id)
			for _, a := range doc.AmenityIDs {
				pipe.SRem(ctx, store.AmenityTagKey(a), id)
			}
			for _, s := range doc.ServiceIDs {
				pipe.SRem(ctx, store.ServiceTagKey(s), id)
			}
		}
		for _, unitID := range unitIDs {
			pipe.Del(ctx, store.UnitKey(unitID), store.PricingKey(unitID), store.AvailabilityKey(unitID))
			for _, day := range unitDays[unitID] {
				pipe.SRem(ctx, store.DayIndexKey(day), unitID)
			}
		}
		_, err := pipe.Exec(ctx)
		return err
	})
}

// OnUnitCreated indexes a new unit by re-deriving its parent property.
func (ix *Indexer) OnUnitCreated(ctx context.Context, unitID, propertyID string) error {
	return ix.indexProperty(ctx, propertyID, false)
}

// OnUnitUpdated re-indexes the unit's parent property.
func (ix *Indexer) OnUnitUpdated(ctx context.Context, unitID, propertyID string) error {
	return ix.indexProperty(ctx, propertyID, false)
}

// OnUnitDeleted drops the unit's records and re-derives the parent.
func (ix *Indexer) OnUnitDeleted(ctx context.Context, unitID, propertyID string) error {
	client, err := ix.store.Keyspace(ctx)
	if err != nil {
		return err
	}
	ranges, _ := ix.avail.RangesForUnit(ctx, unitID)
	pipe := client.TxPipeline()
	pipe.SRem(ctx, store.PropertyUnitsKey(propertyID), unitID)
	pipe.Del(ctx, store.UnitKey(unitID), store.PricingKey(unitID), store.AvailabilityKey(unitID))
	for _, r := range ranges {
		for day := model.DateOnly(r.Start); day.Before(model.DateOnly(r.End)); day = day.AddDate(0, 0, 1) {
			pipe.SRem(ctx, store.DayIndexKey(day), unitID)
		}
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return err
	}
	return ix.indexProperty(ctx, propertyID, false)
}

// OnAvailabilityChanged replaces a unit's calendar and refreshes the parent
// property's summary fields.
func (ix *Indexer) OnAvailabilityChanged(ctx context.Context, unitID, propertyID string, ranges []model.AvailabilityRange) error {
	if err := ix.avail.UpdateUnitAvailability(ctx, unitID, ranges); err != nil {
		return err
	}
	return ix.indexProperty(ctx, propertyID, false)
}

// OnPricingRuleChanged writes the unit's pricing document and refreshes the
// parent property's price summary. When doc is nil the rules are reloaded
// from the repository.
func (ix *Indexer) OnPricingRuleChanged(ctx context.Context, unitID, propertyID string, doc *model.PricingIndexDocument) error {
	if doc == nil {
		var err error
		doc, err = ix.source.PricingByUnit(ctx, unitID)
		if err != nil {
			return err
		}
	}
	client, err := ix.store.Keyspace(ctx)
	if err != nil {
		return err
	}
	if err := client.HSet(ctx, store.PricingKey(unitID), doc.ToHash()).Err(); err != nil {
		return err
	}
	return ix.indexProperty(ctx, propertyID, false)
}

// OnDynamicFieldChanged re-indexes the property so its dynamic fields are
// refreshed from the repository.
func (ix *Indexer) OnDynamicFieldChanged(ctx context.Context, propertyID string) error {
	return ix.indexProperty(ctx, propertyID, false)
}

// indexProperty loads the property, builds its document and writes the full
// fan-out atomically. With guardTick set (rebuilds), a stored record carrying
// a newer modified tick than the freshly built document is left untouched.
func (ix *Indexer) indexProperty(ctx context.Context, id string, guardTick bool) error {
	rec, err := ix.source.PropertyByID(ctx, id)
	if err != nil {
		return err
	}
	doc := BuildPropertyDocument(rec)

	client, err := ix.store.Keyspace(ctx)
	if err != nil {
		return err
	}
	oldFields, err := client.HGetAll(ctx, store.PropertyKey(id)).Result()
	if err != nil {
		return err
	}
	old := model.PropertyFromHash(oldFields)
	if guardTick && old != nil && old.ModifiedTick > doc.ModifiedTick {
		ix.log.Debug("skipping stale rebuild write", "property_id", id)
		return nil
	}

	err = ix.store.Executor().Do(ctx, "index.write", func(ctx context.Context) error {
		pipe := client.TxPipeline()
		ix.writeFanOut(ctx, pipe, doc, old, rec)
		_, err := pipe.Exec(ctx)
		return err
	})
	if err != nil {
		return err
	}
	ix.stats.RecordIndexed()
	return nil
}

// writeFanOut queues the full set of writes for one property: the primary
// hash, every tag set, the geo entry, the sorted sets, the unit-id set and
// the unit hashes. Stale memberships from the previous document version are
// removed in the same transaction.
func (ix *Indexer) writeFanOut(ctx context.Context, pipe redis.Pipeliner, doc *model.PropertyIndexDocument, old *model.PropertyIndexDocument, rec *repository.PropertyRecord) {
	id := doc.ID
	typeName := model.NormalizeName(doc.TypeName)

	if old != nil {
		if old.City != doc.City {
			pipe.SRem(ctx, store.CityTagKey(old.City), id)
		}
		if old.TypeID != doc.TypeID {
			pipe.SRem(ctx, store.TypeIDTagKey(old.TypeID), id)
		}
		if oldName := model.NormalizeName(old.TypeName); oldName != typeName {
			pipe.SRem(ctx, store.TypeNameTagKey(oldName), id)
		}
		for _, a := range missing(old.AmenityIDs, doc.AmenityIDs) {
			pipe.SRem(ctx, store.AmenityTagKey(a), id)
		}
		for _, s := range missing(old.ServiceIDs, doc.ServiceIDs) {
			pipe.SRem(ctx, store.ServiceTagKey(s), id)
		}
	}

	pipe.HSet(ctx, store.PropertyKey(id), doc.ToHash())

	pipe.SAdd(ctx, store.CityTagKey(doc.City), id)
	pipe.SAdd(ctx, store.TypeIDTagKey(doc.TypeID), id)
	pipe.SAdd(ctx, store.TypeNameTagKey(typeName), id)
	for _, a := range doc.AmenityIDs {
		pipe.SAdd(ctx, store.AmenityTagKey(a), id)
	}
	for _, s := range doc.ServiceIDs {
		pipe.SAdd(ctx, store.ServiceTagKey(s), id)
	}
	if doc.IsFeatured {
		pipe.SAdd(ctx, store.FeaturedSetKey, id)
	} else {
		pipe.SRem(ctx, store.FeaturedSetKey, id)
	}
	if doc.Searchable() {
		pipe.SAdd(ctx, store.ActiveSetKey, id)
	} else {
		pipe.SRem(ctx, store.ActiveSetKey, id)
	}

	if doc.Located() {
		pipe.GeoAdd(ctx, store.GeoKey, &redis.GeoLocation{
			Name:      id,
			Longitude: doc.Longitude,
			Latitude:  doc.Latitude,
		})
	} else {
		pipe.ZRem(ctx, store.GeoKey, id)
	}

	pipe.ZAdd(ctx, store.SortPriceKey, redis.Z{Score: doc.MinPrice, Member: id})
	pipe.ZAdd(ctx, store.SortRatingKey, redis.Z{Score: doc.AvgRating, Member: id})
	pipe.ZAdd(ctx, store.SortCreatedKey, redis.Z{Score: float64(doc.CreatedAt.UTC().Unix()), Member: id})
	pipe.ZAdd(ctx, store.SortBookingsKey, redis.Z{Score: float64(doc.BookingCount), Member: id})

	pipe.Del(ctx, store.PropertyUnitsKey(id))
	for _, u := range rec.Units {
		unitDoc := BuildUnitDocument(&u)
		pipe.SAdd(ctx, store.PropertyUnitsKey(id), u.ID)
		pipe.HSet(ctx, store.UnitKey(u.ID), unitDoc.ToHash())
	}
}

// missing returns the elements of a that are absent from b.
func missing(a, b []string) []string {
	set := make(map[string]bool, len(b))
	for _, v := range b {
		set[v] = true
	}
	var out []string
	for _, v := range a {
		if !set[v] {
			out = append(out, v)
		}
	}
	return out
}
