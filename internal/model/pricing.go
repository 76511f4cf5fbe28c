package model

import "time"

// Price adjustment kinds. A fixed rule replaces the running nightly value;
// a percent rule multiplies it by (1 + value/100).
const (
	AdjustFixed   = "fixed"
	AdjustPercent = "percent"
)

// Fee bases.
const (
	FeePerNight = "per_night"
	FeePerStay  = "per_stay"
)

// SeasonalRule adjusts the nightly price inside a date window.
type SeasonalRule struct {
	Name  string    `json:"name"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Kind  string    `json:"kind"`
	Value float64   `json:"value"`
}

// InEffect reports whether the rule's window contains the given day
// (inclusive of both window endpoints).
func (r SeasonalRule) InEffect(day time.Time) bool {
	d := DateOnly(day)
	return !d.Before(DateOnly(r.Start)) && !d.After(DateOnly(r.End))
}

// WeekendRule adjusts the nightly price on particular weekdays.
type WeekendRule struct {
	Days  []time.Weekday `json:"days"`
	Kind  string         `json:"kind"`
	Value float64        `json:"value"`
}

// AppliesTo reports whether day's weekday is in the rule's day set.
func (r WeekendRule) AppliesTo(day time.Time) bool {
	wd := day.UTC().Weekday()
	for _, d := range r.Days {
		if d == wd {
			return true
		}
	}
	return false
}

// SpecialRule covers event windows; semantics identical to SeasonalRule.
type SpecialRule struct {
	Name  string    `json:"name"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Kind  string    `json:"kind"`
	Value float64   `json:"value"`
}

// InEffect reports whether the rule's window contains the given day.
func (r SpecialRule) InEffect(day time.Time) bool {
	d := DateOnly(day)
	return !d.Before(DateOnly(r.Start)) && !d.After(DateOnly(r.End))
}

// LongStayDiscount applies a single multiplicative discount to the summed
// stay total once the stay reaches MinNights.
type LongStayDiscount struct {
	MinNights int     `json:"min_nights"`
	Percent   float64 `json:"percent"`
}

// AdditionalFee is charged on top of the computed stay price. Optional fees
// are quoted but not added automatically.
type AdditionalFee struct {
	Name     string  `json:"name"`
	Amount   float64 `json:"amount"`
	Basis    string  `json:"basis"` // per_night or per_stay
	Optional bool    `json:"optional"`
}

// PricingIndexDocument holds one unit's pricing rules. Rule lists are
// evaluated in list order and the first matching rule of each kind wins;
// there is no merging across same-kind rules.
type PricingIndexDocument struct {
	UnitID            string             `json:"unit_id"`
	BasePrice         float64            `json:"base_price"`
	Currency          string             `json:"currency"`
	SeasonalRules     []SeasonalRule     `json:"seasonal_rules,omitempty"`
	WeekendRules      []WeekendRule      `json:"weekend_rules,omitempty"`
	SpecialRules      []SpecialRule      `json:"special_rules,omitempty"`
	LongStayDiscounts []LongStayDiscount `json:"long_stay_discounts,omitempty"`
	AdditionalFees    []AdditionalFee    `json:"additional_fees,omitempty"`
}

// ToHash encodes the pricing document into Redis hash fields.
func (p *PricingIndexDocument) ToHash() map[string]any {
	return map[string]any{
		"unit_id":             p.UnitID,
		"base_price":          p.BasePrice,
		"currency":            p.Currency,
		"seasonal_rules":      hashJSON(p.SeasonalRules),
		"weekend_rules":       hashJSON(p.WeekendRules),
		"special_rules":       hashJSON(p.SpecialRules),
		"long_stay_discounts": hashJSON(p.LongStayDiscounts),
		"additional_fees":     hashJSON(p.AdditionalFees),
	}
}

// PricingFromHash decodes a pricing hash; nil when absent. Malformed rule
// lists decode to empty lists rather than failing the whole document.
func PricingFromHash(m map[string]string) *PricingIndexDocument {
	if len(m) == 0 || m["unit_id"] == "" {
		return nil
	}
	p := &PricingIndexDocument{
		UnitID:    m["unit_id"],
		BasePrice: parseFloat(m["base_price"]),
		Currency:  m["currency"],
	}
	parseList(m["seasonal_rules"], &p.SeasonalRules)
	parseList(m["weekend_rules"], &p.WeekendRules)
	parseList(m["special_rules"], &p.SpecialRules)
	parseList(m["long_stay_discounts"], &p.LongStayDiscounts)
	parseList(m["additional_fees"], &p.AdditionalFees)
	return p
}
