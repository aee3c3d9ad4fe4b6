package pricing

import (
	"sort"

	"rateplans/internal/domain/properties"
	"rateplans/internal/domain/rateplans"
)

// Snapshot is a consistent read of one property's rate plans. Every plan is
// available for base lookup; only active ones are search candidates.
type Snapshot struct {
	PropertyID properties.PropertyID
	Currency   string
	plans      map[rateplans.RatePlanID]*rateplans.RatePlan
}

func NewSnapshot(propertyID properties.PropertyID, currency string, plans []*rateplans.RatePlan) *Snapshot {
	index := make(map[rateplans.RatePlanID]*rateplans.RatePlan, len(plans))
	for _, p := range plans {
		if p == nil || p.PropertyID != propertyID {
			continue
		}
		index[p.ID] = p
	}
	return &Snapshot{PropertyID: propertyID, Currency: currency, plans: index}
}

func (s *Snapshot) Plan(id rateplans.RatePlanID) (*rateplans.RatePlan, bool) {
	p, ok := s.plans[id]
	return p, ok
}

func (s *Snapshot) Len() int {
	return len(s.plans)
}

// Candidates returns active plans ordered by id.
func (s *Snapshot) Candidates() []*rateplans.RatePlan {
	out := make([]*rateplans.RatePlan, 0, len(s.plans))
	for _, p := range s.plans {
		if p.IsActive {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Snapshot) currencyOf(plan *rateplans.RatePlan) string {
	if plan.Currency != "" {
		return plan.Currency
	}
	return s.Currency
}
