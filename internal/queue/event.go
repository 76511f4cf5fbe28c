// Package queue carries domain events between the command side of the
// platform and the index. Inbound messages drive the indexing layer;
// outbound messages report indexing outcomes.
package queue

import "github.com/abo-bahr-alqershi/BOOKn2-sub004/internal/model"

// Inbound event types.
const (
	EventPropertyCreated = "property.created"
	EventPropertyUpdated = "property.updated"
	EventPropertyDeleted = "property.deleted"
	EventUnitCreated     = "unit.created"
	EventUnitUpdated     = "unit.updated"
	EventUnitDeleted     = "unit.deleted"
	EventAvailability    = "availability.changed"
	EventPricing         = "pricing.changed"
	EventDynamicFields   = "dynamic_fields.changed"
)

// IndexEvent is the envelope for every inbound domain event. Fields beyond
// the type and ids are populated per event type.
type IndexEvent struct {
	EventID    string                      `json:"event_id"`
	Type       string                      `json:"type"`
	PropertyID string                      `json:"property_id"`
	UnitID     string                      `json:"unit_id,omitempty"`
	Ranges     []model.AvailabilityRange   `json:"ranges,omitempty"`
	Pricing    *model.PricingIndexDocument `json:"pricing,omitempty"`
	OccurredAt string                      `json:"occurred_at"`
}

// RebuildOutcomeEvent reports a finished index rebuild to downstream
// consumers.
type RebuildOutcomeEvent struct {
	Indexed    int    `json:"indexed"`
	Failed     int    `json:"failed"`
	Duration   string `json:"duration"`
	FinishedAt string `json:"finished_at"`
}
