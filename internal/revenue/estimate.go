package revenue

import (
	"math"

	"github.com/ignite/outreach-engine/internal/domain"
)

// SegmentEstimate is one segment's expected-value projection.
type SegmentEstimate struct {
	Segment          domain.SegmentName `json:"segment"`
	LeadCount        int                `json:"lead_count"`
	ConversionRate   float64            `json:"conversion_rate"`
	UnitPrice        float64            `json:"unit_price"`
	ExpectedRevenue  float64            `json:"expected_revenue"`
	ExpectedUpgrades float64            `json:"expected_upgrades"`
}

// Estimate projects expected revenue per segment and in total:
// leads x conversion rate x unit price. Pure; a non-finite product (absurd
// inputs) clamps to zero rather than poisoning the total.
func Estimate(segments []domain.Segment) ([]SegmentEstimate, float64) {
	out := make([]SegmentEstimate, 0, len(segments))
	total := 0.0

	for _, seg := range segments {
		upgrades := float64(len(seg.LeadIDs)) * seg.ConversionRate
		rev := upgrades * seg.UnitPrice
		if math.IsNaN(rev) || math.IsInf(rev, 0) || rev < 0 {
			rev = 0
			upgrades = 0
		}
		out = append(out, SegmentEstimate{
			Segment:          seg.Name,
			LeadCount:        len(seg.LeadIDs),
			ConversionRate:   seg.ConversionRate,
			UnitPrice:        seg.UnitPrice,
			ExpectedRevenue:  rev,
			ExpectedUpgrades: upgrades,
		})
		total += rev
	}

	if math.IsNaN(total) || math.IsInf(total, 0) {
		total = 0
	}
	return out, total
}
