package store

import "time"

// Key naming for the whole engine lives here so the layout of the keyspace
// can be read in one place. Everything is namespaced under "bookn:".

const (
	// GeoKey is the single geo set holding every property's coordinates.
	GeoKey = "bookn:geo:properties"
	// ActiveSetKey holds ids of active, approved properties (the full-scan
	// candidate set).
	ActiveSetKey = "bookn:tag:active"
	// FeaturedSetKey holds ids of featured properties.
	FeaturedSetKey = "bookn:tag:featured"

	// Sorted-set secondary indices.
	SortPriceKey    = "bookn:sort:price"
	SortRatingKey   = "bookn:sort:rating"
	SortCreatedKey  = "bookn:sort:created"
	SortBookingsKey = "bookn:sort:bookings"

	// BookingChannel carries booking-committed notifications over pub/sub.
	BookingChannel = "bookn:events:booking"
)

func PropertyKey(id string) string      { return "bookn:property:" + id }
func PropertyUnitsKey(id string) string { return "bookn:property:" + id + ":units" }
func UnitKey(id string) string          { return "bookn:unit:" + id }
func PricingKey(unitID string) string   { return "bookn:pricing:" + unitID }
func BookingKey(id string) string       { return "bookn:booking:" + id }

func CityTagKey(city string) string     { return "bookn:tag:city:" + city }
func TypeIDTagKey(id string) string     { return "bookn:tag:type:id:" + id }
func TypeNameTagKey(name string) string { return "bookn:tag:type:name:" + name }
func AmenityTagKey(id string) string    { return "bookn:tag:amenity:" + id }
func ServiceTagKey(id string) string    { return "bookn:tag:service:" + id }

// AvailabilityKey is the per-unit sorted set of availability ranges, scored
// by range start time.
func AvailabilityKey(unitID string) string { return "bookn:avail:unit:" + unitID }

// DayIndexKey is the per-day set of unit ids bookable on that day.
func DayIndexKey(day time.Time) string {
	return "bookn:avail:day:" + day.UTC().Format("2006-01-02")
}

// DayIndexPattern matches every per-day index key; used by maintenance.
const DayIndexPattern = "bookn:avail:day:*"

func PriceCacheKey(unitID string, in, out time.Time) string {
	return "bookn:price:" + unitID + ":" + in.UTC().Format("2006-01-02") + ":" + out.UTC().Format("2006-01-02")
}

// Cache tier keys. Tier is "l2" or "l3"; stats kind is "hit" or "miss".
func CacheKey(prefix, tier, key string) string { return prefix + ":" + tier + ":" + key }
func CacheStatsKey(prefix, tier, kind string) string {
	return prefix + ":stats:" + tier + ":" + kind
}
