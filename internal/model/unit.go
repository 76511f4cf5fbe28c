package model

import "time"

// UnitIndexDocument is the denormalized record for one bookable unit.
type UnitIndexDocument struct {
	ID         string
	PropertyID string
	Name       string
	TypeID     string
	TypeName   string

	MaxCapacity int
	MaxAdults   int
	MaxChildren int

	BasePrice float64
	Currency  string

	RoomCount int
	AreaSqm   float64

	AmenityIDs    []string
	DynamicFields map[string]string

	IsActive    bool
	IsAvailable bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ToHash encodes the unit document into Redis hash fields.
func (u *UnitIndexDocument) ToHash() map[string]any {
	return map[string]any{
		"id":             u.ID,
		"property_id":    u.PropertyID,
		"name":           u.Name,
		"type_id":        u.TypeID,
		"type_name":      u.TypeName,
		"max_capacity":   u.MaxCapacity,
		"max_adults":     u.MaxAdults,
		"max_children":   u.MaxChildren,
		"base_price":     u.BasePrice,
		"currency":       u.Currency,
		"room_count":     u.RoomCount,
		"area_sqm":       u.AreaSqm,
		"amenity_ids":    hashJSON(u.AmenityIDs),
		"dynamic_fields": hashJSON(u.DynamicFields),
		"is_active":      hashBool(u.IsActive),
		"is_available":   hashBool(u.IsAvailable),
		"created_at":     hashTime(u.CreatedAt),
		"updated_at":     hashTime(u.UpdatedAt),
	}
}

// UnitFromHash decodes a unit hash; nil when the record is absent.
func UnitFromHash(m map[string]string) *UnitIndexDocument {
	if len(m) == 0 || m["id"] == "" {
		return nil
	}
	return &UnitIndexDocument{
		ID:            m["id"],
		PropertyID:    m["property_id"],
		Name:          m["name"],
		TypeID:        m["type_id"],
		TypeName:      m["type_name"],
		MaxCapacity:   parseInt(m["max_capacity"]),
		MaxAdults:     parseInt(m["max_adults"]),
		MaxChildren:   parseInt(m["max_children"]),
		BasePrice:     parseFloat(m["base_price"]),
		Currency:      m["currency"],
		RoomCount:     parseInt(m["room_count"]),
		AreaSqm:       parseFloat(m["area_sqm"]),
		AmenityIDs:    parseStrings(m["amenity_ids"]),
		DynamicFields: parseStringMap(m["dynamic_fields"]),
		IsActive:      parseBool(m["is_active"]),
		IsAvailable:   parseBool(m["is_available"]),
		CreatedAt:     parseTime(m["created_at"]),
		UpdatedAt:     parseTime(m["updated_at"]),
	}
}
