// Package search is the top-level query orchestrator. It picks a candidate
// strategy (geo, tag intersection, or a scan of the active set), hydrates
// documents through the cache, applies the residual filters in-process,
// consults the availability processor for date-bounded requests, sorts and
// paginates.
package search

import (
	"context"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/abo-bahr-alqershi/BOOKn2-sub004/internal/availability"
	"github.com/abo-bahr-alqershi/BOOKn2-sub004/internal/cache"
	"github.com/abo-bahr-alqershi/BOOKn2-sub004/internal/health"
	"github.com/abo-bahr-alqershi/BOOKn2-sub004/internal/logger"
	"github.com/abo-bahr-alqershi/BOOKn2-sub004/internal/model"
	"github.com/abo-bahr-alqershi/BOOKn2-sub004/internal/store"
)

// Engine answers property search requests.
type Engine struct {
	store *store.Manager
	cache *cache.MultiLevel
	avail *availability.Processor
	stats *health.Stats
	log   *logger.Logger
}

// NewEngine builds an Engine.
func NewEngine(mgr *store.Manager, ml *cache.MultiLevel, avail *availability.Processor, stats *health.Stats, log *logger.Logger) *Engine {
	return &Engine{store: mgr, cache: ml, avail: avail, stats: stats, log: log}
}

// Search executes the request and returns one page of hits plus the total
// match count. Malformed filter values have already been normalized away by
// the request's Normalize; nothing in here raises an error for bad input.
func (e *Engine) Search(ctx context.Context, req model.PropertySearchRequest) (*model.SearchResult, error) {
	q := req.Normalize()

	cacheKey := q.CacheKey()
	var cached model.SearchResult
	if hit, err := e.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
		e.stats.RecordSearch()
		return &cached, nil
	}

	candidates, distances, err := e.candidates(ctx, q)
	if err != nil {
		e.stats.RecordError()
		return nil, err
	}

	var hits []model.SearchHit
	for _, id := range candidates {
		doc := e.hydrate(ctx, id)
		if doc == nil || !matches(doc, q) {
			continue
		}
		hit := model.SearchHit{Document: doc}
		if d, ok := distances[id]; ok {
			dist := d
			hit.DistanceKm = &dist
		}
		hits = append(hits, hit)
	}

	if q.HasDates {
		hits = e.filterByAvailability(ctx, hits, q)
	}

	sortHits(hits, q)

	total := len(hits)
	startIdx := (q.Page - 1) * q.PageSize
	if startIdx > total {
		startIdx = total
	}
	endIdx := startIdx + q.PageSize
	if endIdx > total {
		endIdx = total
	}

	result := &model.SearchResult{
		Hits:     hits[startIdx:endIdx],
		Total:    total,
		Page:     q.Page,
		PageSize: q.PageSize,
	}
	if result.Hits == nil {
		result.Hits = []model.SearchHit{}
	}

	if err := e.cache.Set(ctx, cacheKey, result, cache.L1, cache.L2); err != nil {
		e.log.Debug("search result cache write failed", "error", err)
	}
	e.stats.RecordSearch()
	return result, nil
}

// candidates picks the strategy: geo radius first, then tag-set
// intersection when categorical filters are present, else the full active
// set.
func (e *Engine) candidates(ctx context.Context, q model.SearchQuery) ([]string, map[string]float64, error) {
	client, err := e.store.Keyspace(ctx)
	if err != nil {
		return nil, nil, err
	}

	if q.IsGeo() {
		locs, err := client.GeoSearchLocation(ctx, store.GeoKey, &redis.GeoSearchLocationQuery{
			GeoSearchQuery: redis.GeoSearchQuery{
				Longitude:  q.Longitude,
				Latitude:   q.Latitude,
				Radius:     q.RadiusKm,
				RadiusUnit: "km",
			},
			WithDist: true,
		}).Result()
		if err != nil {
			return nil, nil, err
		}
		ids := make([]string, 0, len(locs))
		dist := make(map[string]float64, len(locs))
		for _, l := range locs {
			ids = append(ids, l.Name)
			dist[l.Name] = l.Dist
		}
		return ids, dist, nil
	}

	var keys []string
	if q.City != "" {
		keys = append(keys, store.CityTagKey(q.City))
	}
	switch {
	case q.PropertyType.ID != "":
		keys = append(keys, store.TypeIDTagKey(q.PropertyType.ID))
	case q.PropertyType.Name != "":
		keys = append(keys, store.TypeNameTagKey(q.PropertyType.Name))
	}
	for _, a := range q.AmenityIDs {
		keys = append(keys, store.AmenityTagKey(a))
	}

	var ids []string
	switch len(keys) {
	case 0:
		ids, err = client.SMembers(ctx, store.ActiveSetKey).Result()
	case 1:
		ids, err = client.SMembers(ctx, keys[0]).Result()
	default:
		ids, err = client.SInter(ctx, keys...).Result()
	}
	if err != nil {
		return nil, nil, err
	}
	return ids, nil, nil
}

// hydrate loads a document through the cache (documents live in L3), falling
// back to the primary hash. Partial or missing records are skipped.
func (e *Engine) hydrate(ctx context.Context, id string) *model.PropertyIndexDocument {
	key := "doc:" + id
	var doc model.PropertyIndexDocument
	if hit, err := e.cache.Get(ctx, key, &doc); err == nil && hit {
		return &doc
	}

	client, err := e.store.Keyspace(ctx)
	if err != nil {
		return nil
	}
	fields, err := client.HGetAll(ctx, store.PropertyKey(id)).Result()
	if err != nil {
		e.log.Warn("document read failed", "property_id", id, "error", err)
		return nil
	}
	loaded := model.PropertyFromHash(fields)
	if loaded == nil {
		return nil
	}
	if err := e.cache.Set(ctx, key, loaded, cache.L1, cache.L3); err != nil {
		e.log.Debug("document cache write failed", "property_id", id, "error", err)
	}
	return loaded
}

// filterByAvailability keeps only hits whose property can host the stay.
// The availability processor reads the store directly; the cache is never
// trusted for this decision.
func (e *Engine) filterByAvailability(ctx context.Context, hits []model.SearchHit, q model.SearchQuery) []model.SearchHit {
	kept := hits[:0]
	for _, hit := range hits {
		res, err := e.avail.CheckProperty(ctx, availability.CheckRequest{
			PropertyID: hit.Document.ID,
			CheckIn:    q.CheckIn,
			CheckOut:   q.CheckOut,
			Guests:     q.Guests,
			UnitTypeID: q.UnitType.ID,
		})
		if err != nil {
			e.log.Warn("availability join failed", "property_id", hit.Document.ID, "error", err)
			continue
		}
		if res.IsAvailable {
			kept = append(kept, hit)
		}
	}
	return kept
}

// matches applies every residual filter in-process.
func matches(doc *model.PropertyIndexDocument, q model.SearchQuery) bool {
	if !doc.Searchable() {
		return false
	}
	if q.City != "" && doc.City != q.City {
		return false
	}
	if q.MinPrice != nil && doc.MinPrice < *q.MinPrice {
		return false
	}
	if q.MaxPrice != nil && doc.MinPrice > *q.MaxPrice {
		return false
	}
	if q.MinRating != nil && doc.AvgRating < *q.MinRating {
		return false
	}
	if q.Guests > 0 && doc.MaxCapacity < q.Guests {
		return false
	}
	if !matchType(q.PropertyType, doc.TypeID, doc.TypeName) {
		return false
	}
	if !q.UnitType.IsZero() && !matchUnitType(q.UnitType, doc) {
		return false
	}
	for _, a := range q.AmenityIDs {
		if !contains(doc.AmenityIDs, a) {
			return false
		}
	}
	for k, v := range q.Dynamic {
		field, ok := doc.DynamicFields[k]
		if !ok || !strings.Contains(strings.ToLower(field), strings.ToLower(v)) {
			return false
		}
	}
	if q.FreeText != "" && !matchText(doc, q.FreeText) {
		return false
	}
	return true
}

func matchType(f model.TypeFilter, typeID, typeName string) bool {
	switch {
	case f.ID != "":
		return typeID == f.ID
	case f.Name != "":
		return model.NormalizeName(typeName) == f.Name
	}
	return true
}

func matchUnitType(f model.TypeFilter, doc *model.PropertyIndexDocument) bool {
	if f.ID != "" {
		return contains(doc.UnitTypeIDs, f.ID)
	}
	for _, n := range doc.UnitTypeNames {
		if model.NormalizeName(n) == f.Name {
			return true
		}
	}
	return false
}

func matchText(doc *model.PropertyIndexDocument, text string) bool {
	if strings.Contains(doc.NormalizedName, text) {
		return true
	}
	if strings.Contains(strings.ToLower(doc.City), text) {
		return true
	}
	for _, tag := range doc.SearchTags {
		if strings.Contains(tag, text) {
			return true
		}
	}
	return false
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

// sortHits orders the hits: distance for geo queries, else the requested
// key, defaulting to newest.
func sortHits(hits []model.SearchHit, q model.SearchQuery) {
	if q.IsGeo() {
		sort.SliceStable(hits, func(i, j int) bool {
			di, dj := hits[i].DistanceKm, hits[j].DistanceKm
			if di == nil || dj == nil {
				return dj == nil && di != nil
			}
			return *di < *dj
		})
		return
	}
	less := func(i, j int) bool {
		a, b := hits[i].Document, hits[j].Document
		switch q.Sort {
		case model.SortPriceAsc:
			return a.MinPrice < b.MinPrice
		case model.SortPriceDesc:
			return a.MinPrice > b.MinPrice
		case model.SortRating:
			return a.AvgRating > b.AvgRating
		case model.SortPopularity:
			return a.PopularityScore > b.PopularityScore
		default: // newest
			return a.CreatedAt.After(b.CreatedAt)
		}
	}
	sort.SliceStable(hits, less)
}
