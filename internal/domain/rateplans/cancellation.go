package rateplans

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Tier refunds RefundPercentage of the total when the guest cancels at least
// DaysBeforeCheckIn days ahead.
type Tier struct {
	DaysBeforeCheckIn int
	RefundPercentage  decimal.Decimal
	Description       string
}

// CancellationPolicy is owned 1:1 by a rate plan.
type CancellationPolicy struct {
	Name        string
	Description string
	Tiers       []Tier
}

// HasTiers reports whether the policy can produce a refund decision.
func (p *CancellationPolicy) HasTiers() bool {
	return p != nil && len(p.Tiers) > 0
}

func (p *CancellationPolicy) validate() problems {
	var out problems
	seen := make(map[int]struct{}, len(p.Tiers))
	for _, tier := range p.Tiers {
		if tier.DaysBeforeCheckIn < 0 {
			out.add("cancellation_policy.tiers", ErrTierDays)
		}
		if tier.RefundPercentage.IsNegative() || tier.RefundPercentage.GreaterThan(percentageLimit) {
			out.add("cancellation_policy.tiers", ErrTierPercentage)
		}
		if _, dup := seen[tier.DaysBeforeCheckIn]; dup {
			out.add("cancellation_policy.tiers", ErrTierDuplicate)
		}
		seen[tier.DaysBeforeCheckIn] = struct{}{}
	}
	return out
}

// clone returns a copy with tiers sorted by DaysBeforeCheckIn descending.
func (p *CancellationPolicy) clone() *CancellationPolicy {
	if p == nil {
		return nil
	}
	tiers := append([]Tier(nil), p.Tiers...)
	for i := range tiers {
		tiers[i].Description = strings.TrimSpace(tiers[i].Description)
	}
	sort.SliceStable(tiers, func(i, j int) bool {
		return tiers[i].DaysBeforeCheckIn > tiers[j].DaysBeforeCheckIn
	})
	return &CancellationPolicy{
		Name:        strings.TrimSpace(p.Name),
		Description: strings.TrimSpace(p.Description),
		Tiers:       tiers,
	}
}
