// Package repository provides read-only access to the relational source of
// truth. It exists solely so the indexing layer can (re)build documents;
// nothing here serves queries.
package repository

import (
	"context"
	"time"

	"github.com/abo-bahr-alqershi/BOOKn2-sub004/internal/model"
)

// PropertyRecord is a property as loaded from the database, with its related
// units, amenities, services, images and dynamic fields.
type PropertyRecord struct {
	ID         string
	Name       string
	City       string
	Address    string
	Latitude   float64
	Longitude  float64
	TypeID     string
	TypeName   string
	StarRating int

	OwnerID     string
	OwnerName   string
	OwnerRating float64

	AvgRating    float64
	ReviewCount  int
	BookingCount int
	ViewCount    int

	IsActive   bool
	IsApproved bool
	IsFeatured bool

	AmenityIDs   []string
	AmenityNames []string
	ServiceIDs   []string
	ServiceNames []string

	Images    []string
	MainImage string

	DynamicFields map[string]string

	Units []UnitRecord

	CreatedAt time.Time
	UpdatedAt time.Time
}

// UnitRecord is a unit as loaded from the database.
type UnitRecord struct {
	ID          string
	PropertyID  string
	Name        string
	TypeID      string
	TypeName    string
	MaxCapacity int
	MaxAdults   int
	MaxChildren int
	BasePrice   float64
	Currency    string
	RoomCount   int
	AreaSqm     float64
	IsActive    bool
	IsAvailable bool

	AmenityIDs    []string
	DynamicFields map[string]string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// PropertyReader loads properties for indexing.
type PropertyReader interface {
	// PropertyByID returns the property with its full related graph, or
	// ErrNotFound.
	PropertyByID(ctx context.Context, id string) (*PropertyRecord, error)
	// PropertyIDs lists every property id, used by full rebuilds.
	PropertyIDs(ctx context.Context) ([]string, error)
}

// UnitReader loads single units.
type UnitReader interface {
	UnitByID(ctx context.Context, id string) (*UnitRecord, error)
}

// PricingReader loads a unit's pricing rules. It doubles as the generic
// pricing fallback when no pricing document is indexed for a unit.
type PricingReader interface {
	PricingByUnit(ctx context.Context, unitID string) (*model.PricingIndexDocument, error)
}

// Source is the full read surface the indexing layer depends on.
type Source interface {
	PropertyReader
	UnitReader
	PricingReader
}
