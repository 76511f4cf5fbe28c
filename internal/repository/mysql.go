package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/abo-bahr-alqershi/BOOKn2-sub004/internal/model"
)

// MySQLSource implements Source against the platform's MySQL schema using
// plain database/sql. All methods are read-only.
type MySQLSource struct {
	db *sql.DB
}

// NewMySQLSource returns a MySQLSource bound to the provided database.
func NewMySQLSource(db *sql.DB) *MySQLSource { return &MySQLSource{db: db} }

// PropertyByID loads one property together with its units, amenities,
// services, images and dynamic fields. A row with a blank name or missing
// owner is reported as ErrInvalidRecord so rebuilds can skip it.
func (s *MySQLSource) PropertyByID(ctx context.Context, id string) (*PropertyRecord, error) {
	const q = `SELECT p.id, p.name, p.city, p.address, p.latitude, p.longitude,
			p.type_id, COALESCE(t.name, ''), p.star_rating,
			COALESCE(p.owner_id, ''), COALESCE(o.name, ''), COALESCE(o.rating, 0),
			p.avg_rating, p.review_count, p.booking_count, p.view_count,
			p.is_active, p.is_approved, p.is_featured,
			COALESCE(p.main_image, ''), p.created_at, p.updated_at
		FROM properties p
		LEFT JOIN property_types t ON t.id = p.type_id
		LEFT JOIN owners o ON o.id = p.owner_id
		WHERE p.id = ?`

	var rec PropertyRecord
	err := s.db.QueryRowContext(ctx, q, id).Scan(
		&rec.ID, &rec.Name, &rec.City, &rec.Address, &rec.Latitude, &rec.Longitude,
		&rec.TypeID, &rec.TypeName, &rec.StarRating,
		&rec.OwnerID, &rec.OwnerName, &rec.OwnerRating,
		&rec.AvgRating, &rec.ReviewCount, &rec.BookingCount, &rec.ViewCount,
		&rec.IsActive, &rec.IsApproved, &rec.IsFeatured,
		&rec.MainImage, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(rec.Name) == "" || rec.OwnerID == "" {
		return nil, fmt.Errorf("%w: property %s missing name or owner", ErrInvalidRecord, id)
	}

	if rec.AmenityIDs, rec.AmenityNames, err = s.pairs(ctx,
		`SELECT a.id, a.name FROM property_amenities pa JOIN amenities a ON a.id = pa.amenity_id WHERE pa.property_id = ?`, id); err != nil {
		return nil, err
	}
	if rec.ServiceIDs, rec.ServiceNames, err = s.pairs(ctx,
		`SELECT sv.id, sv.name FROM property_services ps JOIN services sv ON sv.id = ps.service_id WHERE ps.property_id = ?`, id); err != nil {
		return nil, err
	}
	if rec.Images, err = s.strings(ctx,
		`SELECT url FROM property_images WHERE property_id = ? ORDER BY sort_order`, id); err != nil {
		return nil, err
	}
	if rec.DynamicFields, err = s.fields(ctx,
		`SELECT field_key, field_value FROM property_dynamic_fields WHERE property_id = ?`, id); err != nil {
		return nil, err
	}
	if rec.Units, err = s.unitsByProperty(ctx, id); err != nil {
		return nil, err
	}
	return &rec, nil
}

// PropertyIDs returns every property id in the database.
func (s *MySQLSource) PropertyIDs(ctx context.Context) ([]string, error) {
	return s.strings(ctx, `SELECT id FROM properties ORDER BY id`)
}

// UnitByID loads a single unit.
func (s *MySQLSource) UnitByID(ctx context.Context, id string) (*UnitRecord, error) {
	units, err := s.units(ctx, `WHERE u.id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(units) == 0 {
		return nil, ErrNotFound
	}
	u := units[0]
	return &u, nil
}

// PricingByUnit loads the unit's pricing document. Rule lists are stored as
// JSON columns on unit_pricing; a missing row yields ErrNotFound.
func (s *MySQLSource) PricingByUnit(ctx context.Context, unitID string) (*model.PricingIndexDocument, error) {
	const q = `SELECT unit_id, base_price, currency,
			COALESCE(seasonal_rules, '[]'), COALESCE(weekend_rules, '[]'),
			COALESCE(special_rules, '[]'), COALESCE(long_stay_discounts, '[]'),
			COALESCE(additional_fees, '[]')
		FROM unit_pricing WHERE unit_id = ?`

	var doc model.PricingIndexDocument
	var seasonal, weekend, special, longStay, fees []byte
	err := s.db.QueryRowContext(ctx, q, unitID).Scan(
		&doc.UnitID, &doc.BasePrice, &doc.Currency,
		&seasonal, &weekend, &special, &longStay, &fees,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	// Malformed rule JSON degrades to an empty list for that kind only.
	_ = json.Unmarshal(seasonal, &doc.SeasonalRules)
	_ = json.Unmarshal(weekend, &doc.WeekendRules)
	_ = json.Unmarshal(special, &doc.SpecialRules)
	_ = json.Unmarshal(longStay, &doc.LongStayDiscounts)
	_ = json.Unmarshal(fees, &doc.AdditionalFees)
	return &doc, nil
}

func (s *MySQLSource) unitsByProperty(ctx context.Context, propertyID string) ([]UnitRecord, error) {
	return s.units(ctx, `WHERE u.property_id = ?`, propertyID)
}

func (s *MySQLSource) units(ctx context.Context, cond string, args ...any) ([]UnitRecord, error) {
	q := `SELECT u.id, u.property_id, u.name, u.type_id, COALESCE(t.name, ''),
			u.max_capacity, u.max_adults, u.max_children,
			u.base_price, u.currency, u.room_count, u.area_sqm,
			u.is_active, u.is_available, u.created_at, u.updated_at
		FROM units u
		LEFT JOIN unit_types t ON t.id = u.type_id ` + cond

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []UnitRecord
	for rows.Next() {
		var u UnitRecord
		if err := rows.Scan(
			&u.ID, &u.PropertyID, &u.Name, &u.TypeID, &u.TypeName,
			&u.MaxCapacity, &u.MaxAdults, &u.MaxChildren,
			&u.BasePrice, &u.Currency, &u.RoomCount, &u.AreaSqm,
			&u.IsActive, &u.IsAvailable, &u.CreatedAt, &u.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		u := &out[i]
		if u.AmenityIDs, err = s.strings(ctx,
			`SELECT amenity_id FROM unit_amenities WHERE unit_id = ?`, u.ID); err != nil {
			return nil, err
		}
		if u.DynamicFields, err = s.fields(ctx,
			`SELECT field_key, field_value FROM unit_dynamic_fields WHERE unit_id = ?`, u.ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *MySQLSource) strings(ctx context.Context, q string, args ...any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *MySQLSource) pairs(ctx context.Context, q string, args ...any) ([]string, []string, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()
	var ids, names []string
	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, nil, err
		}
		ids = append(ids, id)
		names = append(names, name)
	}
	return ids, names, rows.Err()
}

func (s *MySQLSource) fields(ctx context.Context, q string, args ...any) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]string{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, rows.Err()
}
