// Package ranking derives a quality tier for a lead from its raw signal
// attributes. Ranking is a pure function: no I/O, no randomness, and no
// errors — a lead that cannot be scored confidently lands in the cold tier
// rather than blocking the scheduling run.
package ranking

import (
	"math"

	"github.com/ignite/outreach-engine/internal/domain"
)

// Signal attribute keys recognized by the ranker. Leads come from the CRM
// with arbitrary maps; anything outside this set is ignored.
const (
	AttrEngagementCount = "engagement_count" // opens + clicks + visits
	AttrReplyCount      = "reply_count"
	AttrCompanySize     = "company_size" // employee count
	AttrRecencyDays     = "recency_days" // days since last touch
	AttrWebsiteVisits   = "website_visits"
)

// Score weights and tier cut lines. Tuned against the same engagement bands
// the mailing platform uses for subscriber scoring.
const (
	hotThreshold  = 60.0
	warmThreshold = 25.0
)

// Ranker assigns quality tiers. Zero value is ready to use; thresholds are
// exported fields so operators can re-tune without a rebuild.
type Ranker struct {
	HotThreshold  float64
	WarmThreshold float64
}

// New returns a Ranker with the default tier thresholds.
func New() *Ranker {
	return &Ranker{HotThreshold: hotThreshold, WarmThreshold: warmThreshold}
}

// Rank maps a raw attribute map to a quality tier. Deterministic for
// identical input. Missing signals are treated as absent — an incomplete
// record is not penalized the way a zero value would be. A malformed value
// for a recognized signal degrades the whole lead to cold: bad data is the
// lowest-confidence signal there is.
func (r *Ranker) Rank(attributes map[string]any) domain.QualityTier {
	if len(attributes) == 0 {
		return domain.TierCold
	}

	var score float64
	seen := 0

	if v, ok := attributes[AttrEngagementCount]; ok {
		n, valid := asFloat(v)
		if !valid || n < 0 {
			return domain.TierCold
		}
		score += math.Min(n, 20) * 2.5 // cap at 20 engagements
		seen++
	}

	if v, ok := attributes[AttrReplyCount]; ok {
		n, valid := asFloat(v)
		if !valid || n < 0 {
			return domain.TierCold
		}
		score += math.Min(n, 5) * 10 // replies are the strongest signal
		seen++
	}

	if v, ok := attributes[AttrWebsiteVisits]; ok {
		n, valid := asFloat(v)
		if !valid || n < 0 {
			return domain.TierCold
		}
		score += math.Min(n, 10) * 2
		seen++
	}

	if v, ok := attributes[AttrCompanySize]; ok {
		n, valid := asFloat(v)
		if !valid || n < 0 {
			return domain.TierCold
		}
		switch {
		case n >= 1000:
			score += 20
		case n >= 100:
			score += 12
		case n >= 10:
			score += 5
		}
		seen++
	}

	if v, ok := attributes[AttrRecencyDays]; ok {
		n, valid := asFloat(v)
		if !valid || n < 0 {
			return domain.TierCold
		}
		// Fresh touches boost, stale ones decay toward zero contribution.
		switch {
		case n <= 7:
			score += 15
		case n <= 30:
			score += 8
		case n <= 90:
			score += 3
		}
		seen++
	}

	if seen == 0 {
		return domain.TierCold
	}

	hot := r.HotThreshold
	if hot <= 0 {
		hot = hotThreshold
	}
	warm := r.WarmThreshold
	if warm <= 0 {
		warm = warmThreshold
	}

	switch {
	case score >= hot:
		return domain.TierHot
	case score >= warm:
		return domain.TierWarm
	default:
		return domain.TierCold
	}
}

// asFloat normalizes the numeric types that survive JSON decoding and CRM
// exports. Strings, bools, and aggregates are malformed for scoring purposes.
func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}
