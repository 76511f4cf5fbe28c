package index

import (
	"time"

	"github.com/abo-bahr-alqershi/BOOKn2-sub004/internal/model"
	"github.com/abo-bahr-alqershi/BOOKn2-sub004/internal/repository"
)

// BuildPropertyDocument derives the denormalized index document from a
// source record, including the unit summary, search tags, popularity score
// and the monotonic modified tick.
func BuildPropertyDocument(rec *repository.PropertyRecord) *model.PropertyIndexDocument {
	doc := &model.PropertyIndexDocument{
		ID:             rec.ID,
		Name:           rec.Name,
		NormalizedName: model.NormalizeName(rec.Name),
		SearchTags:     model.BuildSearchTags(rec.Name, rec.City),

		City:      rec.City,
		Address:   rec.Address,
		Latitude:  rec.Latitude,
		Longitude: rec.Longitude,

		TypeID:     rec.TypeID,
		TypeName:   rec.TypeName,
		StarRating: rec.StarRating,

		AvgRating:    rec.AvgRating,
		ReviewCount:  rec.ReviewCount,
		BookingCount: rec.BookingCount,
		ViewCount:    rec.ViewCount,

		AmenityIDs:   rec.AmenityIDs,
		AmenityNames: rec.AmenityNames,
		ServiceIDs:   rec.ServiceIDs,
		ServiceNames: rec.ServiceNames,

		Images:    rec.Images,
		MainImage: rec.MainImage,

		DynamicFields: rec.DynamicFields,

		IsActive:   rec.IsActive,
		IsApproved: rec.IsApproved,
		IsFeatured: rec.IsFeatured,
		IsIndexed:  true,

		OwnerID:     rec.OwnerID,
		OwnerName:   rec.OwnerName,
		OwnerRating: rec.OwnerRating,

		CreatedAt:    rec.CreatedAt,
		UpdatedAt:    rec.UpdatedAt,
		IndexedAt:    time.Now().UTC(),
		ModifiedTick: time.Now().UnixNano(),
	}
	summarizeUnits(doc, rec.Units)
	doc.PopularityScore = doc.ComputePopularity()
	return doc
}

// summarizeUnits folds the unit list into the property's capacity and price
// summary. Inactive units are excluded from the price figures.
func summarizeUnits(doc *model.PropertyIndexDocument, units []repository.UnitRecord) {
	doc.UnitCount = len(units)
	seenType := map[string]bool{}
	var priced int
	var sum float64
	for _, u := range units {
		if !seenType[u.TypeID] {
			seenType[u.TypeID] = true
			doc.UnitTypeIDs = append(doc.UnitTypeIDs, u.TypeID)
			doc.UnitTypeNames = append(doc.UnitTypeNames, u.TypeName)
		}
		if u.MaxCapacity > doc.MaxCapacity {
			doc.MaxCapacity = u.MaxCapacity
		}
		if u.MaxAdults > doc.MaxAdults {
			doc.MaxAdults = u.MaxAdults
		}
		if u.MaxChildren > doc.MaxChildren {
			doc.MaxChildren = u.MaxChildren
		}
		if u.IsAvailable && u.IsActive {
			doc.AvailableUnits++
		}
		if !u.IsActive {
			continue
		}
		if doc.Currency == "" {
			doc.Currency = u.Currency
		}
		if priced == 0 || u.BasePrice < doc.MinPrice {
			doc.MinPrice = u.BasePrice
		}
		if u.BasePrice > doc.MaxPrice {
			doc.MaxPrice = u.BasePrice
		}
		sum += u.BasePrice
		priced++
	}
	if priced > 0 {
		doc.AvgPrice = sum / float64(priced)
	}
}

// BuildUnitDocument derives a unit index document from a source record.
func BuildUnitDocument(u *repository.UnitRecord) *model.UnitIndexDocument {
	return &model.UnitIndexDocument{
		ID:            u.ID,
		PropertyID:    u.PropertyID,
		Name:          u.Name,
		TypeID:        u.TypeID,
		TypeName:      u.TypeName,
		MaxCapacity:   u.MaxCapacity,
		MaxAdults:     u.MaxAdults,
		MaxChildren:   u.MaxChildren,
		BasePrice:     u.BasePrice,
		Currency:      u.Currency,
		RoomCount:     u.RoomCount,
		AreaSqm:       u.AreaSqm,
		AmenityIDs:    u.AmenityIDs,
		DynamicFields: u.DynamicFields,
		IsActive:      u.IsActive,
		IsAvailable:   u.IsAvailable,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
}
