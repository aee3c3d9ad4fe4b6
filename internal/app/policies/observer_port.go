package policies

import "time"

// PricingObserver is told about business outcomes worth counting.
type PricingObserver interface {
	SearchCompleted(outcome string, quotes, skipped int, elapsed time.Duration)
	DeletionDecided(kind string)
	RefundCalculated(tierMatched bool)
}

type NopObserver struct{}

func (NopObserver) SearchCompleted(string, int, int, time.Duration) {}
func (NopObserver) DeletionDecided(string)                           {}
func (NopObserver) RefundCalculated(bool)                            {}

// ObserverOrNop returns obs, or a no-op observer when obs is nil.
func ObserverOrNop(obs PricingObserver) PricingObserver {
	if obs == nil {
		return NopObserver{}
	}
	return obs
}
