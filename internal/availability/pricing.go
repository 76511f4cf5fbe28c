package availability

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/abo-bahr-alqershi/BOOKn2-sub004/internal/model"
	"github.com/abo-bahr-alqershi/BOOKn2-sub004/internal/repository"
	"github.com/abo-bahr-alqershi/BOOKn2-sub004/internal/store"
)

// ErrNoPricing is returned when neither an indexed pricing document, the
// fallback pricing source, nor the unit record can price a stay.
var ErrNoPricing = errors.New("availability: no pricing information")

type cachedPrice struct {
	Total    float64 `json:"total"`
	Currency string  `json:"currency"`
}

// CalculateUnitPrice computes the total price of the stay [checkIn,
// checkOut) for the unit. Results are cached in the store for the configured
// window keyed by (unit, checkIn, checkOut); the walk itself is deterministic
// for a fixed pricing document.
func (p *Processor) CalculateUnitPrice(ctx context.Context, unitID string, checkIn, checkOut time.Time) (float64, string, error) {
	nights := model.Nights(checkIn, checkOut)
	if nights <= 0 {
		return 0, "", fmt.Errorf("invalid stay: %s to %s", checkIn.Format("2006-01-02"), checkOut.Format("2006-01-02"))
	}

	client, err := p.store.Keyspace(ctx)
	if err != nil {
		return 0, "", err
	}
	cacheKey := store.PriceCacheKey(unitID, checkIn, checkOut)
	if raw, err := client.Get(ctx, cacheKey).Bytes(); err == nil {
		var cached cachedPrice
		if json.Unmarshal(raw, &cached) == nil {
			return cached.Total, cached.Currency, nil
		}
	} else if err != redis.Nil {
		p.log.Debug("price cache read failed", "unit_id", unitID, "error", err)
	}

	doc, err := p.pricingDocument(ctx, client, unitID)
	if err != nil {
		return 0, "", err
	}

	total := ComputeStayPrice(doc, checkIn, checkOut)

	payload, _ := json.Marshal(cachedPrice{Total: total, Currency: doc.Currency})
	if err := client.Set(ctx, cacheKey, payload, p.cacheCfg.PriceTTL).Err(); err != nil {
		p.log.Debug("price cache write failed", "unit_id", unitID, "error", err)
	}
	return total, doc.Currency, nil
}

// pricingDocument resolves the pricing source for a unit: the indexed
// document first, then the generic pricing fallback, then a bare base-price
// document derived from the unit record.
func (p *Processor) pricingDocument(ctx context.Context, client *redis.Client, unitID string) (*model.PricingIndexDocument, error) {
	fields, err := client.HGetAll(ctx, store.PricingKey(unitID)).Result()
	if err != nil {
		return nil, err
	}
	if doc := model.PricingFromHash(fields); doc != nil {
		return doc, nil
	}

	if p.fallback != nil {
		doc, err := p.fallback.PricingByUnit(ctx, unitID)
		if err == nil {
			return doc, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			p.log.Warn("pricing fallback failed", "unit_id", unitID, "error", err)
		}
	}

	unitFields, err := client.HGetAll(ctx, store.UnitKey(unitID)).Result()
	if err != nil {
		return nil, err
	}
	if unit := model.UnitFromHash(unitFields); unit != nil {
		return &model.PricingIndexDocument{
			UnitID:    unit.ID,
			BasePrice: unit.BasePrice,
			Currency:  unit.Currency,
		}, nil
	}
	return nil, fmt.Errorf("%w: unit %s", ErrNoPricing, unitID)
}

// ComputeStayPrice walks every calendar day of the stay. Each day starts at
// the base price; the first seasonal rule whose window contains the day
// applies, then the first weekend rule for the day's weekday, then the first
// special rule, each on the running value. Day prices are summed; the
// highest-threshold long-stay discount whose minimum is met applies once to
// the sum; non-optional fees are added last, scaled by nights when charged
// per night. The result is rounded to two decimal places.
func ComputeStayPrice(doc *model.PricingIndexDocument, checkIn, checkOut time.Time) float64 {
	nights := model.Nights(checkIn, checkOut)
	in, out := model.DateOnly(checkIn), model.DateOnly(checkOut)

	var sum float64
	for day := in; day.Before(out); day = day.AddDate(0, 0, 1) {
		price := doc.BasePrice
		for _, r := range doc.SeasonalRules {
			if r.InEffect(day) {
				// Percent seasonal rules scale the base price.
				price = adjust(doc.BasePrice, r.Kind, r.Value)
				break
			}
		}
		for _, r := range doc.WeekendRules {
			if r.AppliesTo(day) {
				// Weekend and special rules scale the running value.
				price = adjust(price, r.Kind, r.Value)
				break
			}
		}
		for _, r := range doc.SpecialRules {
			if r.InEffect(day) {
				price = adjust(price, r.Kind, r.Value)
				break
			}
		}
		sum += price
	}

	if d := bestLongStay(doc.LongStayDiscounts, nights); d != nil {
		sum *= 1 - d.Percent/100
	}

	for _, fee := range doc.AdditionalFees {
		if fee.Optional {
			continue
		}
		switch fee.Basis {
		case model.FeePerNight:
			sum += fee.Amount * float64(nights)
		default: // per_stay
			sum += fee.Amount
		}
	}
	return round2(sum)
}

// adjust applies a fixed-or-percentage rule. Fixed rules replace the value;
// percent rules scale basis by (1 + value/100).
func adjust(basis float64, kind string, value float64) float64 {
	if kind == model.AdjustFixed {
		return value
	}
	return basis * (1 + value/100)
}

// bestLongStay picks the discount with the highest MinNights that the stay
// length satisfies.
func bestLongStay(discounts []model.LongStayDiscount, nights int) *model.LongStayDiscount {
	var best *model.LongStayDiscount
	for i := range discounts {
		d := &discounts[i]
		if d.MinNights <= nights && (best == nil || d.MinNights > best.MinNights) {
			best = d
		}
	}
	return best
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
