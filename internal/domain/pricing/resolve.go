package pricing

import (
	"sort"

	"rateplans/internal/domain/rateplans"
)

// Resolve picks the plans a guest sees. The best-priority exclusive plan, if any,
// suppresses every plan with a worse (higher) priority value.
func Resolve(plans []*rateplans.RatePlan) []*rateplans.RatePlan {
	sorted := append([]*rateplans.RatePlan(nil), plans...)
	sort.SliceStable(sorted, func(i, j int) bool { return byPriority(sorted[i], sorted[j]) })

	var winner *rateplans.RatePlan
	for _, p := range sorted {
		if !p.AllowConcurrentRates {
			winner = p
			break
		}
	}
	if winner == nil {
		return sorted
	}

	out := make([]*rateplans.RatePlan, 0, len(sorted))
	for _, p := range sorted {
		if p.Priority <= winner.Priority {
			out = append(out, p)
		}
	}
	return out
}

func byPriority(a, b *rateplans.RatePlan) bool {
	if a.Priority != b.Priority {
		return a.Priority < b.Priority
	}
	return a.ID < b.ID
}
