package pricing

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"rateplans/internal/domain/rateplans"
	"rateplans/internal/domain/shared/daterange"
	"rateplans/internal/domain/shared/money"
)

const NoRefundPolicyDescription = "No refund policy defined."

type RefundResult struct {
	Amount           money.Money
	Percentage       decimal.Decimal
	Description      string
	DaysUntilCheckIn int
	Tier             *rateplans.Tier
}

// SelectTier picks the tier with the largest DaysBeforeCheckIn not exceeding
// daysUntilCheckIn, falling back to the most restrictive tier.
func SelectTier(tiers []rateplans.Tier, daysUntilCheckIn int) (rateplans.Tier, bool) {
	if len(tiers) == 0 {
		return rateplans.Tier{}, false
	}
	var (
		best     rateplans.Tier
		found    bool
		smallest = tiers[0]
	)
	for _, t := range tiers {
		if t.DaysBeforeCheckIn < smallest.DaysBeforeCheckIn {
			smallest = t
		}
		if t.DaysBeforeCheckIn <= daysUntilCheckIn && (!found || t.DaysBeforeCheckIn > best.DaysBeforeCheckIn) {
			best = t
			found = true
		}
	}
	if !found {
		return smallest, true
	}
	return best, true
}

// Refund computes what a guest gets back when cancelling at cancelledAt a stay
// starting at checkIn that cost total.
func Refund(policy *rateplans.CancellationPolicy, total money.Money, checkIn, cancelledAt time.Time) RefundResult {
	days := daterange.DaysBetween(cancelledAt, checkIn)
	if !policy.HasTiers() {
		return RefundResult{
			Amount:           money.Zero(total.Currency),
			Percentage:       decimal.Zero,
			Description:      NoRefundPolicyDescription,
			DaysUntilCheckIn: days,
		}
	}
	tier, _ := SelectTier(policy.Tiers, days)
	return RefundResult{
		Amount:           total.Percent(tier.RefundPercentage),
		Percentage:       tier.RefundPercentage,
		Description:      describeTier(tier),
		DaysUntilCheckIn: days,
		Tier:             &tier,
	}
}

func describeTier(t rateplans.Tier) string {
	if t.Description != "" {
		return t.Description
	}
	if t.DaysBeforeCheckIn == 0 {
		return fmt.Sprintf("%s%% refund", t.RefundPercentage.String())
	}
	return fmt.Sprintf("%s%% refund when cancelled at least %d days before check-in", t.RefundPercentage.String(), t.DaysBeforeCheckIn)
}
