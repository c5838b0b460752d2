// Package segmentation buckets ranked leads into named outreach segments.
//
// Assignment policy:
//   - hot leads go to Enterprise, unconditionally
//   - warm leads go to Pro, unconditionally
//   - cold leads split 70/30 between Starter and Trial, decided per lead
//     with an independent uniform draw
//
// The cold split is a deliberate A/B-style allocation: a minority of cold
// leads trial the low-friction funnel while the bulk goes through standard
// nurture. It is the only source of non-determinism in the whole pipeline,
// so the random source is injected rather than global — tests seed it.
package segmentation

import (
	"math/rand"

	"github.com/ignite/outreach-engine/internal/domain"
	"github.com/ignite/outreach-engine/internal/ranking"
)

// ColdStarterProbability is the share of cold leads routed to Starter;
// the remainder go to Trial.
const ColdStarterProbability = 0.7

// RandSource yields uniform draws in [0, 1). *rand.Rand satisfies it.
type RandSource interface {
	Float64() float64
}

// Partitioner assigns leads to segments using a Ranker and a random source.
type Partitioner struct {
	ranker *ranking.Ranker
	rng    RandSource
}

// New creates a Partitioner. A nil rng falls back to a time-seeded source;
// production callers can pass nil, tests should inject a seeded one.
func New(ranker *ranking.Ranker, rng RandSource) *Partitioner {
	if ranker == nil {
		ranker = ranking.New()
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	return &Partitioner{ranker: ranker, rng: rng}
}

// Partition ranks each lead once and assigns it to exactly one segment.
// The union of the returned lists is exactly the input set: no lead is
// dropped, duplicated, or left unassigned.
func (p *Partitioner) Partition(leads []domain.Lead) map[domain.SegmentName][]string {
	out := map[domain.SegmentName][]string{
		domain.SegmentEnterprise: {},
		domain.SegmentPro:        {},
		domain.SegmentStarter:    {},
		domain.SegmentTrial:      {},
	}

	for _, lead := range leads {
		switch p.ranker.Rank(lead.Attributes) {
		case domain.TierHot:
			out[domain.SegmentEnterprise] = append(out[domain.SegmentEnterprise], lead.ID)
		case domain.TierWarm:
			out[domain.SegmentPro] = append(out[domain.SegmentPro], lead.ID)
		default:
			if p.rng.Float64() < ColdStarterProbability {
				out[domain.SegmentStarter] = append(out[domain.SegmentStarter], lead.ID)
			} else {
				out[domain.SegmentTrial] = append(out[domain.SegmentTrial], lead.ID)
			}
		}
	}

	return out
}

// BuildSegments attaches the pricing/conversion profile to each non-empty
// partition, producing the transient Segment values the scheduler and the
// revenue projections consume.
func (p *Partitioner) BuildSegments(leads []domain.Lead, profiles map[domain.SegmentName]Profile) []domain.Segment {
	return SegmentsFromPartition(p.Partition(leads), profiles)
}

// SegmentsFromPartition is BuildSegments over an existing partition, for
// callers that need the raw partition and the profiled segments from the
// same random draws.
func SegmentsFromPartition(partitions map[domain.SegmentName][]string, profiles map[domain.SegmentName]Profile) []domain.Segment {
	segments := make([]domain.Segment, 0, len(partitions))
	for _, name := range domain.AllSegments {
		ids := partitions[name]
		if len(ids) == 0 {
			continue
		}
		profile, ok := profiles[name]
		if !ok {
			profile = DefaultProfiles[name]
		}
		segments = append(segments, domain.Segment{
			Name:           name,
			LeadIDs:        ids,
			ConversionRate: profile.ConversionRate,
			UnitPrice:      profile.UnitPrice,
		})
	}
	return segments
}

// Profile is the revenue profile attached to a segment.
type Profile struct {
	ConversionRate float64 `yaml:"conversion_rate" json:"conversion_rate"`
	UnitPrice      float64 `yaml:"unit_price" json:"unit_price"`
}

// DefaultProfiles carries the standard plan pricing. Overridable via config.
var DefaultProfiles = map[domain.SegmentName]Profile{
	domain.SegmentEnterprise: {ConversionRate: 0.12, UnitPrice: 999},
	domain.SegmentPro:        {ConversionRate: 0.08, UnitPrice: 299},
	domain.SegmentStarter:    {ConversionRate: 0.05, UnitPrice: 99},
	domain.SegmentTrial:      {ConversionRate: 0.03, UnitPrice: 29},
}
