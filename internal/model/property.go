// Package model defines the denormalized index documents the engine keeps in
// Redis, together with their hash encode/decode contracts, and the search
// request/result shapes exchanged with callers. Documents are written only by
// the indexing layer; every other component treats them as read-only.
package model

import (
	"strings"
	"time"
)

// PropertyIndexDocument is the authoritative denormalized record for one
// property. Exactly one encoded copy exists per property id; every secondary
// index entry that references the id must agree with this record's current
// field values.
type PropertyIndexDocument struct {
	ID             string
	Name           string
	NormalizedName string
	SearchTags     []string

	City      string
	Address   string
	Latitude  float64
	Longitude float64

	TypeID     string
	TypeName   string
	StarRating int

	MinPrice    float64
	MaxPrice    float64
	AvgPrice    float64
	Currency    string
	HasDiscount bool

	AvgRating       float64
	ReviewCount     int
	BookingCount    int
	ViewCount       int
	PopularityScore float64

	MaxCapacity    int
	UnitCount      int
	AvailableUnits int
	UnitTypeIDs    []string
	UnitTypeNames  []string
	MaxAdults      int
	MaxChildren    int

	AmenityIDs   []string
	AmenityNames []string
	ServiceIDs   []string
	ServiceNames []string

	Images    []string
	MainImage string

	DynamicFields map[string]string

	IsActive   bool
	IsApproved bool
	IsFeatured bool
	IsIndexed  bool

	OwnerID     string
	OwnerName   string
	OwnerRating float64

	CreatedAt time.Time
	UpdatedAt time.Time
	IndexedAt time.Time
	// ModifiedTick is a monotonic stamp taken when the document was built,
	// compared during rebuilds so an older derivation never clobbers a newer
	// record.
	ModifiedTick int64
}

// Searchable reports whether the property should be visible to queries.
func (d *PropertyIndexDocument) Searchable() bool {
	return d.IsActive && d.IsApproved
}

// Located reports whether the property carries real coordinates. The source
// database stores missing coordinates as zero, which would otherwise place
// the property at 0,0 in the geo index.
func (d *PropertyIndexDocument) Located() bool {
	return d.Latitude != 0 || d.Longitude != 0
}

// ComputePopularity derives the popularity score from reputation counters.
// The weights favor completed bookings over passive views.
func (d *PropertyIndexDocument) ComputePopularity() float64 {
	return d.AvgRating*10 +
		float64(d.ReviewCount)*0.5 +
		float64(d.BookingCount)*2 +
		float64(d.ViewCount)*0.1
}

// NormalizeName lowercases and trims a display name for matching.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// BuildSearchTags tokenizes the normalized name and city into the tag list
// used for free-text matching. Tags are deduplicated, order preserved.
func BuildSearchTags(name, city string) []string {
	seen := map[string]bool{}
	var tags []string
	add := func(tok string) {
		tok = NormalizeName(tok)
		if tok != "" && !seen[tok] {
			seen[tok] = true
			tags = append(tags, tok)
		}
	}
	for _, tok := range strings.Fields(NormalizeName(name)) {
		add(tok)
	}
	add(city)
	return tags
}

// ToHash encodes the document into Redis hash fields.
func (d *PropertyIndexDocument) ToHash() map[string]any {
	return map[string]any{
		"id":              d.ID,
		"name":            d.Name,
		"normalized_name": d.NormalizedName,
		"search_tags":     hashJSON(d.SearchTags),
		"city":            d.City,
		"address":         d.Address,
		"latitude":        d.Latitude,
		"longitude":       d.Longitude,
		"type_id":         d.TypeID,
		"type_name":       d.TypeName,
		"star_rating":     d.StarRating,
		"min_price":       d.MinPrice,
		"max_price":       d.MaxPrice,
		"avg_price":       d.AvgPrice,
		"currency":        d.Currency,
		"has_discount":    hashBool(d.HasDiscount),
		"avg_rating":      d.AvgRating,
		"review_count":    d.ReviewCount,
		"booking_count":   d.BookingCount,
		"view_count":      d.ViewCount,
		"popularity":      d.PopularityScore,
		"max_capacity":    d.MaxCapacity,
		"unit_count":      d.UnitCount,
		"available_units": d.AvailableUnits,
		"unit_type_ids":   hashJSON(d.UnitTypeIDs),
		"unit_type_names": hashJSON(d.UnitTypeNames),
		"max_adults":      d.MaxAdults,
		"max_children":    d.MaxChildren,
		"amenity_ids":     hashJSON(d.AmenityIDs),
		"amenity_names":   hashJSON(d.AmenityNames),
		"service_ids":     hashJSON(d.ServiceIDs),
		"service_names":   hashJSON(d.ServiceNames),
		"images":          hashJSON(d.Images),
		"main_image":      d.MainImage,
		"dynamic_fields":  hashJSON(d.DynamicFields),
		"is_active":       hashBool(d.IsActive),
		"is_approved":     hashBool(d.IsApproved),
		"is_featured":     hashBool(d.IsFeatured),
		"is_indexed":      hashBool(d.IsIndexed),
		"owner_id":        d.OwnerID,
		"owner_name":      d.OwnerName,
		"owner_rating":    d.OwnerRating,
		"created_at":      hashTime(d.CreatedAt),
		"updated_at":      hashTime(d.UpdatedAt),
		"indexed_at":      hashTime(d.IndexedAt),
		"modified_tick":   d.ModifiedTick,
	}
}

// PropertyFromHash decodes a hash read back from Redis. An empty map means
// the record does not exist and nil is returned.
func PropertyFromHash(m map[string]string) *PropertyIndexDocument {
	if len(m) == 0 || m["id"] == "" {
		return nil
	}
	return &PropertyIndexDocument{
		ID:              m["id"],
		Name:            m["name"],
		NormalizedName:  m["normalized_name"],
		SearchTags:      parseStrings(m["search_tags"]),
		City:            m["city"],
		Address:         m["address"],
		Latitude:        parseFloat(m["latitude"]),
		Longitude:       parseFloat(m["longitude"]),
		TypeID:          m["type_id"],
		TypeName:        m["type_name"],
		StarRating:      parseInt(m["star_rating"]),
		MinPrice:        parseFloat(m["min_price"]),
		MaxPrice:        parseFloat(m["max_price"]),
		AvgPrice:        parseFloat(m["avg_price"]),
		Currency:        m["currency"],
		HasDiscount:     parseBool(m["has_discount"]),
		AvgRating:       parseFloat(m["avg_rating"]),
		ReviewCount:     parseInt(m["review_count"]),
		BookingCount:    parseInt(m["booking_count"]),
		ViewCount:       parseInt(m["view_count"]),
		PopularityScore: parseFloat(m["popularity"]),
		MaxCapacity:     parseInt(m["max_capacity"]),
		UnitCount:       parseInt(m["unit_count"]),
		AvailableUnits:  parseInt(m["available_units"]),
		UnitTypeIDs:     parseStrings(m["unit_type_ids"]),
		UnitTypeNames:   parseStrings(m["unit_type_names"]),
		MaxAdults:       parseInt(m["max_adults"]),
		MaxChildren:     parseInt(m["max_children"]),
		AmenityIDs:      parseStrings(m["amenity_ids"]),
		AmenityNames:    parseStrings(m["amenity_names"]),
		ServiceIDs:      parseStrings(m["service_ids"]),
		ServiceNames:    parseStrings(m["service_names"]),
		Images:          parseStrings(m["images"]),
		MainImage:       m["main_image"],
		DynamicFields:   parseStringMap(m["dynamic_fields"]),
		IsActive:        parseBool(m["is_active"]),
		IsApproved:      parseBool(m["is_approved"]),
		IsFeatured:      parseBool(m["is_featured"]),
		IsIndexed:       parseBool(m["is_indexed"]),
		OwnerID:         m["owner_id"],
		OwnerName:       m["owner_name"],
		OwnerRating:     parseFloat(m["owner_rating"]),
		CreatedAt:       parseTime(m["created_at"]),
		UpdatedAt:       parseTime(m["updated_at"]),
		IndexedAt:       parseTime(m["indexed_at"]),
		ModifiedTick:    parseInt64(m["modified_tick"]),
	}
}
