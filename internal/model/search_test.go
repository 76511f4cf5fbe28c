package model

import (
	"fmt"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
)

// toRedisString mirrors how go-redis stringifies HSET values.
func toRedisString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

func TestResolveTypeFilter(t *testing.T) {
	cases := []struct {
		raw  string
		want TypeFilter
	}{
		{"", TypeFilter{}},
		{"  ", TypeFilter{}},
		{"42", TypeFilter{ID: "42"}},
		{"550e8400-e29b-41d4-a716-446655440000", TypeFilter{ID: "550e8400-e29b-41d4-a716-446655440000"}},
		{"Villa", TypeFilter{Name: "villa"}},
		{"  Beach House  ", TypeFilter{Name: "beach house"}},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, ResolveTypeFilter(c.raw), c.raw)
	}
}

func TestNormalizeClampsPaging(t *testing.T) {
	q := (&PropertySearchRequest{Page: -3, PageSize: 0}).Normalize()
	assert.Equal(t, 1, q.Page)
	assert.Equal(t, 20, q.PageSize)

	q = (&PropertySearchRequest{Page: 2, PageSize: 500}).Normalize()
	assert.Equal(t, 2, q.Page)
	assert.Equal(t, 100, q.PageSize)
}

func TestNormalizeDropsMalformedFilters(t *testing.T) {
	q := (&PropertySearchRequest{
		MinPrice:  "abc",
		MaxPrice:  "-10",
		MinRating: "4..5",
		CheckIn:   "2026-09-10",
		CheckOut:  "not-a-date",
		Sort:      "bogus",
	}).Normalize()

	assert.Nil(t, q.MinPrice)
	assert.Nil(t, q.MaxPrice)
	assert.Nil(t, q.MinRating)
	assert.False(t, q.HasDates)
	assert.Equal(t, SortNewest, q.Sort)
}

func TestNormalizeDropsInvertedDates(t *testing.T) {
	q := (&PropertySearchRequest{CheckIn: "2026-09-13", CheckOut: "2026-09-10"}).Normalize()
	assert.False(t, q.HasDates)

	q = (&PropertySearchRequest{CheckIn: "2026-09-10", CheckOut: "2026-09-13"}).Normalize()
	assert.True(t, q.HasDates)
}

func TestNormalizeGeoAnchorPresence(t *testing.T) {
	// No coordinates: a radius alone is not a geo query.
	q := (&PropertySearchRequest{RadiusKm: 10}).Normalize()
	assert.False(t, q.HasPoint)
	assert.False(t, q.IsGeo())

	// An anchor exactly at 0,0 is still a real point.
	zero := 0.0
	q = (&PropertySearchRequest{Latitude: &zero, Longitude: &zero, RadiusKm: 10}).Normalize()
	assert.True(t, q.HasPoint)
	assert.True(t, q.IsGeo())

	// A point without a radius stays a plain search.
	lat, lon := 15.35, 44.20
	q = (&PropertySearchRequest{Latitude: &lat, Longitude: &lon}).Normalize()
	assert.True(t, q.HasPoint)
	assert.False(t, q.IsGeo())
}

func TestCacheKeyIsStableAndFilterSensitive(t *testing.T) {
	a := (&PropertySearchRequest{City: "صنعاء", MinPrice: "100"}).Normalize()
	b := (&PropertySearchRequest{City: "صنعاء", MinPrice: "100"}).Normalize()
	c := (&PropertySearchRequest{City: "صنعاء", MinPrice: "200"}).Normalize()

	assert.Equal(t, a.CacheKey(), b.CacheKey())
	assert.NotEqual(t, a.CacheKey(), c.CacheKey())
}

func TestBuildSearchTags(t *testing.T) {
	tags := BuildSearchTags("Golden Palace Hotel", "Sanaa")
	assert.Equal(t, []string{"golden", "palace", "hotel", "sanaa"}, tags)

	// Duplicate tokens collapse.
	tags = BuildSearchTags("Hotel Hotel", "hotel")
	assert.Equal(t, []string{"hotel"}, tags)
}

func TestPropertyHashRoundTrip(t *testing.T) {
	// ToHash keys must decode back into an equivalent document; only the
	// fields the engine filters on are asserted here.
	doc := PropertyIndexDocument{
		ID: "p1", Name: "Al Noor", NormalizedName: "al noor",
		City: "صنعاء", TypeID: "t1", TypeName: "Hotel",
		MinPrice: 120.5, MaxPrice: 300, AvgRating: 4.3,
		MaxCapacity: 6, UnitTypeIDs: []string{"room", "suite"},
		AmenityIDs: []string{"wifi"}, DynamicFields: map[string]string{"view": "sea"},
		IsActive: true, IsApproved: true, ModifiedTick: 42,
	}

	encoded := map[string]string{}
	for k, v := range doc.ToHash() {
		encoded[k] = toRedisString(v)
	}
	got := PropertyFromHash(encoded)
	assert.Equal(t, doc.ID, got.ID)
	assert.Equal(t, doc.City, got.City)
	assert.InDelta(t, doc.MinPrice, got.MinPrice, 0.001)
	assert.Equal(t, doc.UnitTypeIDs, got.UnitTypeIDs)
	assert.Equal(t, doc.DynamicFields, got.DynamicFields)
	assert.True(t, got.Searchable())
	assert.Equal(t, int64(42), got.ModifiedTick)
}

func TestPropertyFromHashAbsent(t *testing.T) {
	assert.Nil(t, PropertyFromHash(nil))
	assert.Nil(t, PropertyFromHash(map[string]string{"name": "ghost"}))
}
