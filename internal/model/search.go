package model

import (
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Sort keys accepted by the search engine.
const (
	SortPriceAsc   = "price_asc"
	SortPriceDesc  = "price_desc"
	SortRating     = "rating"
	SortNewest     = "newest"
	SortPopularity = "popularity"
)

// TypeFilter is the resolved form of a loosely-typed "type" filter value:
// either an id or a name, decided once at request-parse time. The zero value
// matches everything.
type TypeFilter struct {
	ID   string
	Name string
}

// IsZero reports whether no type filter was given.
func (f TypeFilter) IsZero() bool { return f.ID == "" && f.Name == "" }

// ResolveTypeFilter classifies a raw filter value. UUID-shaped or purely
// numeric values are treated as ids, anything else as a (normalized) name.
func ResolveTypeFilter(raw string) TypeFilter {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return TypeFilter{}
	}
	if looksLikeID(raw) {
		return TypeFilter{ID: raw}
	}
	return TypeFilter{Name: NormalizeName(raw)}
}

func looksLikeID(s string) bool {
	if len(s) == 36 && strings.Count(s, "-") == 4 {
		return true
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

// PropertySearchRequest is the inbound query DTO. Numeric filters arrive as
// strings so malformed values can be normalized to "no narrowing" instead of
// failing the request. Dates use the 2006-01-02 layout.
type PropertySearchRequest struct {
	FreeText     string            `json:"text"`
	City         string            `json:"city"`
	PropertyType string            `json:"property_type"`
	UnitType     string            `json:"unit_type"`
	MinPrice     string            `json:"min_price"`
	MaxPrice     string            `json:"max_price"`
	MinRating    string            `json:"min_rating"`
	Guests       int               `json:"guests" validate:"gte=0"`
	CheckIn      string            `json:"check_in"`
	CheckOut     string            `json:"check_out"`
	Latitude     *float64          `json:"latitude" validate:"omitempty,gte=-90,lte=90"`
	Longitude    *float64          `json:"longitude" validate:"omitempty,gte=-180,lte=180"`
	RadiusKm     float64           `json:"radius_km" validate:"gte=0"`
	AmenityIDs   []string          `json:"amenity_ids"`
	Dynamic      map[string]string `json:"dynamic_fields"`
	Sort         string            `json:"sort"`
	Page         int               `json:"page" validate:"gte=0"`
	PageSize     int               `json:"page_size" validate:"gte=0,lte=100"`
}

// SearchQuery is the normalized form of a request: filters parsed, paging
// clamped, the type filters resolved once.
type SearchQuery struct {
	FreeText     string
	City         string
	PropertyType TypeFilter
	UnitType     TypeFilter
	MinPrice     *float64
	MaxPrice     *float64
	MinRating    *float64
	Guests       int
	CheckIn      time.Time
	CheckOut     time.Time
	HasDates     bool
	Latitude     float64
	Longitude    float64
	HasPoint     bool
	RadiusKm     float64
	AmenityIDs   []string
	Dynamic      map[string]string
	Sort         string
	Page         int
	PageSize     int
}

// Normalize converts the raw request into a SearchQuery. Invalid numeric or
// date values drop the corresponding filter; an inverted date pair drops both
// dates. Paging is clamped the same way the public handlers clamp it.
func (r *PropertySearchRequest) Normalize() SearchQuery {
	q := SearchQuery{
		FreeText:     NormalizeName(r.FreeText),
		City:         strings.TrimSpace(r.City),
		PropertyType: ResolveTypeFilter(r.PropertyType),
		UnitType:     ResolveTypeFilter(r.UnitType),
		MinPrice:     parseOptFloat(r.MinPrice),
		MaxPrice:     parseOptFloat(r.MaxPrice),
		MinRating:    parseOptFloat(r.MinRating),
		Guests:       r.Guests,
		RadiusKm:     r.RadiusKm,
		AmenityIDs:   r.AmenityIDs,
		Dynamic:      r.Dynamic,
		Sort:         r.Sort,
		Page:         r.Page,
		PageSize:     r.PageSize,
	}
	if q.Guests < 0 {
		q.Guests = 0
	}
	if r.Latitude != nil && r.Longitude != nil {
		q.Latitude, q.Longitude, q.HasPoint = *r.Latitude, *r.Longitude, true
	}
	in, errIn := time.Parse("2006-01-02", r.CheckIn)
	out, errOut := time.Parse("2006-01-02", r.CheckOut)
	if errIn == nil && errOut == nil && in.Before(out) {
		q.CheckIn, q.CheckOut, q.HasDates = in, out, true
	}
	switch q.Sort {
	case SortPriceAsc, SortPriceDesc, SortRating, SortNewest, SortPopularity:
	default:
		q.Sort = SortNewest
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = 20
	}
	if q.PageSize > 100 {
		q.PageSize = 100
	}
	return q
}

// IsGeo reports whether the query asks for a radius search. Presence of an
// anchor point is explicit, so a query anchored exactly at 0,0 still runs as
// a geo search.
func (q SearchQuery) IsGeo() bool {
	return q.RadiusKm > 0 && q.HasPoint
}

// CacheKey derives a stable key for the result cache from every filter that
// affects the outcome.
func (q SearchQuery) CacheKey() string {
	payload, _ := json.Marshal(struct {
		SearchQuery
		In  string
		Out string
	}{q, q.CheckIn.Format("2006-01-02"), q.CheckOut.Format("2006-01-02")})
	sum := sha1.Sum(payload)
	return fmt.Sprintf("search:%x", sum[:])
}

func parseOptFloat(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 {
		return nil
	}
	return &f
}

// SearchHit pairs a matched document with its distance from the query point
// when the geo strategy ran.
type SearchHit struct {
	Document   *PropertyIndexDocument `json:"document"`
	DistanceKm *float64               `json:"distance_km,omitempty"`
}

// SearchResult is one page of matches plus the total candidate count.
type SearchResult struct {
	Hits     []SearchHit `json:"hits"`
	Total    int         `json:"total"`
	Page     int         `json:"page"`
	PageSize int         `json:"page_size"`
}

// UnitAvailability describes one unit that satisfied an availability check.
type UnitAvailability struct {
	UnitID       string  `json:"unit_id"`
	Name         string  `json:"name"`
	TypeID       string  `json:"type_id"`
	MaxCapacity  int     `json:"max_capacity"`
	TotalPrice   float64 `json:"total_price"`
	NightlyPrice float64 `json:"nightly_price"`
	Currency     string  `json:"currency"`
}

// PropertyAvailabilityResult is the answer to a property availability check.
type PropertyAvailabilityResult struct {
	PropertyID    string             `json:"property_id"`
	IsAvailable   bool               `json:"is_available"`
	Message       string             `json:"message,omitempty"`
	Units         []UnitAvailability `json:"units,omitempty"`
	LowestNightly float64            `json:"lowest_nightly_price,omitempty"`
	Nights        int                `json:"nights"`
}
