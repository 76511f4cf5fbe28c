package search

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abo-bahr-alqershi/BOOKn2-sub004/internal/availability"
	"github.com/abo-bahr-alqershi/BOOKn2-sub004/internal/cache"
	"github.com/abo-bahr-alqershi/BOOKn2-sub004/internal/config"
	"github.com/abo-bahr-alqershi/BOOKn2-sub004/internal/health"
	"github.com/abo-bahr-alqershi/BOOKn2-sub004/internal/logger"
	"github.com/abo-bahr-alqershi/BOOKn2-sub004/internal/model"
	"github.com/abo-bahr-alqershi/BOOKn2-sub004/internal/store"
)

func newTestEngine(t *testing.T) (*Engine, *redis.Client) {
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

	ccfg := config.CacheConfig{
		L1TTL: 30 * time.Second, L2TTL: 2 * time.Minute, L3TTL: 10 * time.Minute,
		PriceTTL: time.Hour, Prefix: "cache",
	}
	ml := cache.New(ccfg, mgr, logger.Discard())
	t.Cleanup(ml.Close)

	stats := health.NewStats()
	proc := availability.NewProcessor(mgr, ccfg, nil, stats, logger.Discard())
	return NewEngine(mgr, ml, proc, stats, logger.Discard()), client
}

// seedProperty writes a searchable property document plus the secondary
// index memberships a real indexing pass would create.
func seedProperty(t *testing.T, client *redis.Client, doc model.PropertyIndexDocument) {
	t.Helper()
	ctx := context.Background()
	if doc.NormalizedName == "" {
		doc.NormalizedName = model.NormalizeName(doc.Name)
	}
	if doc.SearchTags == nil {
		doc.SearchTags = model.BuildSearchTags(doc.Name, doc.City)
	}
	require.NoError(t, client.HSet(ctx, store.PropertyKey(doc.ID), doc.ToHash()).Err())
	require.NoError(t, client.SAdd(ctx, store.CityTagKey(doc.City), doc.ID).Err())
	require.NoError(t, client.SAdd(ctx, store.TypeIDTagKey(doc.TypeID), doc.ID).Err())
	for _, a := range doc.AmenityIDs {
		require.NoError(t, client.SAdd(ctx, store.AmenityTagKey(a), doc.ID).Err())
	}
	if doc.Searchable() {
		require.NoError(t, client.SAdd(ctx, store.ActiveSetKey, doc.ID).Err())
	}
}

func cityProperty(id, city string, minPrice float64) model.PropertyIndexDocument {
	return model.PropertyIndexDocument{
		ID:          id,
		Name:        "Property " + id,
		City:        city,
		TypeID:      "type-hotel",
		TypeName:    "Hotel",
		MinPrice:    minPrice,
		MaxPrice:    minPrice * 2,
		AvgRating:   4.0,
		MaxCapacity: 4,
		IsActive:    true,
		IsApproved:  true,
		CreatedAt:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestSearchCityWithPriceWindow(t *testing.T) {
	engine, client := newTestEngine(t)

	prices := []float64{50, 150, 250, 350, 600}
	for i, p := range prices {
		seedProperty(t, client, cityProperty(fmt.Sprintf("p%d", i+1), "صنعاء", p))
	}
	seedProperty(t, client, cityProperty("other", "عدن", 200))

	res, err := engine.Search(context.Background(), model.PropertySearchRequest{
		City:     "صنعاء",
		MinPrice: "100",
		MaxPrice: "300",
	})
	require.NoError(t, err)
	require.Equal(t, 2, res.Total)

	var got []float64
	for _, h := range res.Hits {
		got = append(got, h.Document.MinPrice)
	}
	assert.ElementsMatch(t, []float64{150, 250}, got)
}

func TestSearchMalformedFiltersWidenInsteadOfFailing(t *testing.T) {
	engine, client := newTestEngine(t)

	seedProperty(t, client, cityProperty("p1", "صنعاء", 150))

	res, err := engine.Search(context.Background(), model.PropertySearchRequest{
		City:     "صنعاء",
		MinPrice: "not-a-number",
		MaxPrice: "-5",
		CheckIn:  "garbage",
		CheckOut: "2026-09-12",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Total)
}

func TestSearchExcludesUnsearchable(t *testing.T) {
	engine, client := newTestEngine(t)

	visible := cityProperty("p1", "صنعاء", 100)
	hidden := cityProperty("p2", "صنعاء", 100)
	hidden.IsApproved = false
	seedProperty(t, client, visible)
	seedProperty(t, client, hidden)

	res, err := engine.Search(context.Background(), model.PropertySearchRequest{City: "صنعاء"})
	require.NoError(t, err)
	require.Equal(t, 1, res.Total)
	assert.Equal(t, "p1", res.Hits[0].Document.ID)
}

func TestSearchAmenityIntersection(t *testing.T) {
	engine, client := newTestEngine(t)

	both := cityProperty("p1", "صنعاء", 100)
	both.AmenityIDs = []string{"wifi", "pool"}
	wifiOnly := cityProperty("p2", "صنعاء", 100)
	wifiOnly.AmenityIDs = []string{"wifi"}
	seedProperty(t, client, both)
	seedProperty(t, client, wifiOnly)

	res, err := engine.Search(context.Background(), model.PropertySearchRequest{
		City:       "صنعاء",
		AmenityIDs: []string{"wifi", "pool"},
	})
	require.NoError(t, err)
	require.Equal(t, 1, res.Total)
	assert.Equal(t, "p1", res.Hits[0].Document.ID)
}

func TestSearchSortPriceAscending(t *testing.T) {
	engine, client := newTestEngine(t)

	seedProperty(t, client, cityProperty("p1", "صنعاء", 300))
	seedProperty(t, client, cityProperty("p2", "صنعاء", 100))
	seedProperty(t, client, cityProperty("p3", "صنعاء", 200))

	res, err := engine.Search(context.Background(), model.PropertySearchRequest{
		City: "صنعاء",
		Sort: model.SortPriceAsc,
	})
	require.NoError(t, err)
	require.Len(t, res.Hits, 3)
	assert.Equal(t, "p2", res.Hits[0].Document.ID)
	assert.Equal(t, "p3", res.Hits[1].Document.ID)
	assert.Equal(t, "p1", res.Hits[2].Document.ID)
}

func TestSearchPagination(t *testing.T) {
	engine, client := newTestEngine(t)

	for i := 0; i < 5; i++ {
		seedProperty(t, client, cityProperty(fmt.Sprintf("p%d", i+1), "صنعاء", float64(100+i)))
	}

	res, err := engine.Search(context.Background(), model.PropertySearchRequest{
		City:     "صنعاء",
		Sort:     model.SortPriceAsc,
		Page:     2,
		PageSize: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, 5, res.Total)
	require.Len(t, res.Hits, 2)
	assert.Equal(t, "p3", res.Hits[0].Document.ID)

	// A page past the end is empty, never an error.
	res, err = engine.Search(context.Background(), model.PropertySearchRequest{
		City:     "صنعاء",
		Page:     9,
		PageSize: 2,
	})
	require.NoError(t, err)
	assert.NotNil(t, res.Hits)
	assert.Empty(t, res.Hits)
	assert.Equal(t, 5, res.Total)
}

func TestSearchFreeText(t *testing.T) {
	engine, client := newTestEngine(t)

	doc := cityProperty("p1", "صنعاء", 100)
	doc.Name = "Golden Palace Hotel"
	seedProperty(t, client, doc)
	seedProperty(t, client, cityProperty("p2", "صنعاء", 100))

	res, err := engine.Search(context.Background(), model.PropertySearchRequest{
		City:     "صنعاء",
		FreeText: "palace",
	})
	require.NoError(t, err)
	require.Equal(t, 1, res.Total)
	assert.Equal(t, "p1", res.Hits[0].Document.ID)
}

func TestSearchTypeFilterByName(t *testing.T) {
	engine, client := newTestEngine(t)

	hotel := cityProperty("p1", "صنعاء", 100)
	villa := cityProperty("p2", "صنعاء", 100)
	villa.TypeID = "type-villa"
	villa.TypeName = "Villa"
	seedProperty(t, client, hotel)
	seedProperty(t, client, villa)

	// A non-numeric, non-uuid value filters by normalized type name even
	// though no name tag set exists for it.
	res, err := engine.Search(context.Background(), model.PropertySearchRequest{
		PropertyType: "Villa",
	})
	require.NoError(t, err)
	require.Equal(t, 0, res.Total)

	require.NoError(t, client.SAdd(context.Background(),
		store.TypeNameTagKey("villa"), "p2").Err())
	res, err = engine.Search(context.Background(), model.PropertySearchRequest{
		PropertyType: "Villa",
	})
	require.NoError(t, err)
	require.Equal(t, 1, res.Total)
	assert.Equal(t, "p2", res.Hits[0].Document.ID)
}

func TestSearchWithDatesJoinsAvailability(t *testing.T) {
	engine, client := newTestEngine(t)
	ctx := context.Background()

	free := cityProperty("p1", "صنعاء", 100)
	booked := cityProperty("p2", "صنعاء", 100)
	seedProperty(t, client, free)
	seedProperty(t, client, booked)

	// p1 has a unit with a covering bookable range; p2's unit has none.
	unit := model.UnitIndexDocument{
		ID: "u1", PropertyID: "p1", Name: "room", TypeID: "room",
		MaxCapacity: 2, BasePrice: 100, Currency: "USD", IsActive: true, IsAvailable: true,
	}
	require.NoError(t, client.HSet(ctx, store.UnitKey("u1"), unit.ToHash()).Err())
	require.NoError(t, client.SAdd(ctx, store.PropertyUnitsKey("p1"), "u1").Err())

	start := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, engine.avail.UpdateUnitAvailability(ctx, "u1", []model.AvailabilityRange{
		{Start: start, End: start.AddDate(0, 1, 0), Bookable: true},
	}))

	res, err := engine.Search(ctx, model.PropertySearchRequest{
		City:     "صنعاء",
		CheckIn:  "2026-09-10",
		CheckOut: "2026-09-13",
	})
	require.NoError(t, err)
	require.Equal(t, 1, res.Total)
	assert.Equal(t, "p1", res.Hits[0].Document.ID)
}

func TestSearchResultIsCached(t *testing.T) {
	engine, client := newTestEngine(t)
	ctx := context.Background()

	seedProperty(t, client, cityProperty("p1", "صنعاء", 100))

	first, err := engine.Search(ctx, model.PropertySearchRequest{City: "صنعاء"})
	require.NoError(t, err)
	require.Equal(t, 1, first.Total)

	// Removing the backing data does not change the answer while the result
	// cache entry lives.
	require.NoError(t, client.Del(ctx, store.PropertyKey("p1")).Err())
	require.NoError(t, client.SRem(ctx, store.CityTagKey("صنعاء"), "p1").Err())

	second, err := engine.Search(ctx, model.PropertySearchRequest{City: "صنعاء"})
	require.NoError(t, err)
	assert.Equal(t, 1, second.Total)
}
