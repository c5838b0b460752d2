package domain

// Lead is an opaque reference to a CRM-owned lead: an identifier plus the
// raw signal attributes used for quality ranking. The engine never holds
// lead content (names, emails, message bodies), only derived signals.
type Lead struct {
	ID         string         `json:"id"`
	Attributes map[string]any `json:"attributes"`
}

// QualityTier is the derived quality bucket for a lead. Tiers are recomputed
// on every ranking run and never persisted.
type QualityTier string

const (
	TierHot  QualityTier = "hot"
	TierWarm QualityTier = "warm"
	TierCold QualityTier = "cold"
)

// SegmentName identifies an outreach segment.
type SegmentName string

const (
	SegmentEnterprise SegmentName = "enterprise"
	SegmentPro        SegmentName = "pro"
	SegmentStarter    SegmentName = "starter"
	SegmentTrial      SegmentName = "trial"
)

// AllSegments lists segments in descending priority order.
var AllSegments = []SegmentName{SegmentEnterprise, SegmentPro, SegmentStarter, SegmentTrial}

// Priority returns the revenue-ordering weight for a segment. Higher sorts
// first in the value-ordered plan view. Unknown segments rank last.
func (s SegmentName) Priority() int {
	switch s {
	case SegmentEnterprise:
		return 4
	case SegmentPro:
		return 3
	case SegmentStarter:
		return 2
	case SegmentTrial:
		return 1
	}
	return 0
}

// Segment is a transient grouping of leads sharing a pricing/conversion
// profile. Segments are recomputed per scheduling run, never stored.
type Segment struct {
	Name           SegmentName `json:"name"`
	LeadIDs        []string    `json:"lead_ids"`
	ConversionRate float64     `json:"conversion_rate"` // expected, 0-1
	UnitPrice      float64     `json:"unit_price"`      // currency-agnostic, >= 0
}
