package pricing

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"rateplans/internal/domain/rateplans"
	"rateplans/internal/domain/shared/daterange"
	"rateplans/internal/domain/shared/money"
)

// MaxResolutionDepth caps base-plan recursion so a corrupted chain fails fast.
const MaxResolutionDepth = rateplans.MaxBaseChainDepth

var (
	ErrResolutionDepth    = errors.New("pricing: base rate plan chain exceeds resolution depth")
	ErrBasePlanCycle      = errors.New("pricing: base rate plan chain contains a cycle")
	ErrBasePlanMissing    = errors.New("pricing: base rate plan missing")
	ErrUnknownAdjustment  = errors.New("pricing: unknown adjustment type")
	ErrEmptyStay          = errors.New("pricing: stay has no nights")
	errCurrencyUnresolved = errors.New("pricing: currency unresolved")
)

var hundred = decimal.NewFromInt(100)

// NightlyRate is the price of one night of a stay.
type NightlyRate struct {
	Date       time.Time
	Amount     decimal.Decimal
	Overridden bool
}

// StayPrice aggregates nightly rates over [checkIn, checkOut).
type StayPrice struct {
	Nights  []NightlyRate
	Total   money.Money
	Average money.Money
}

// Calculator prices rate plans against a snapshot, following base plans recursively.
type Calculator struct {
	snapshot *Snapshot
}

func NewCalculator(snapshot *Snapshot) *Calculator {
	return &Calculator{snapshot: snapshot}
}

// PriceForNight resolves the price of plan for the night of date.
func (c *Calculator) PriceForNight(plan *rateplans.RatePlan, date time.Time) (decimal.Decimal, error) {
	amount, _, err := c.resolve(plan, daterange.Day(date), nil)
	return amount, err
}

// PriceForStay sums the nightly prices of plan over the range.
func (c *Calculator) PriceForStay(plan *rateplans.RatePlan, r daterange.DateRange) (StayPrice, error) {
	dates := r.Dates()
	if len(dates) == 0 {
		return StayPrice{}, ErrEmptyStay
	}
	currency := c.snapshot.currencyOf(plan)
	if currency == "" {
		return StayPrice{}, errCurrencyUnresolved
	}
	nights := make([]NightlyRate, 0, len(dates))
	total := decimal.Zero
	for _, d := range dates {
		amount, overridden, err := c.resolve(plan, d, nil)
		if err != nil {
			return StayPrice{}, fmt.Errorf("price %s on %s: %w", plan.ID, daterange.Key(d), err)
		}
		nights = append(nights, NightlyRate{Date: d, Amount: amount, Overridden: overridden})
		total = total.Add(amount)
	}
	sum := money.Money{Amount: total, Currency: currency}
	return StayPrice{
		Nights:  nights,
		Total:   sum,
		Average: sum.DivInt(len(nights)),
	}, nil
}

// resolve walks the base chain; path holds the plans already visited for this night.
func (c *Calculator) resolve(plan *rateplans.RatePlan, date time.Time, path []rateplans.RatePlanID) (decimal.Decimal, bool, error) {
	if len(path) > MaxResolutionDepth {
		return decimal.Zero, false, ErrResolutionDepth
	}
	for _, seen := range path {
		if seen == plan.ID {
			return decimal.Zero, false, ErrBasePlanCycle
		}
	}
	if amount, ok := plan.OverrideFor(date); ok {
		return amount, true, nil
	}

	switch plan.AdjustmentType {
	case rateplans.FixedPrice:
		return plan.AdjustmentValue, false, nil
	case rateplans.FixedDiscount, rateplans.Percentage:
		base, err := c.base(plan)
		if err != nil {
			return decimal.Zero, false, err
		}
		baseAmount, _, err := c.resolve(base, date, append(path, plan.ID))
		if err != nil {
			return decimal.Zero, false, err
		}
		var price decimal.Decimal
		if plan.AdjustmentType == rateplans.FixedDiscount {
			price = baseAmount.Sub(plan.AdjustmentValue)
		} else {
			price = baseAmount.Sub(baseAmount.Mul(plan.AdjustmentValue).Div(hundred))
		}
		if price.IsNegative() {
			price = decimal.Zero
		}
		return price, false, nil
	}
	return decimal.Zero, false, fmt.Errorf("%w: %q", ErrUnknownAdjustment, plan.AdjustmentType)
}

func (c *Calculator) base(plan *rateplans.RatePlan) (*rateplans.RatePlan, error) {
	if !plan.HasBase() {
		return nil, fmt.Errorf("%w: %s has no base", ErrBasePlanMissing, plan.ID)
	}
	base, ok := c.snapshot.Plan(plan.BaseRatePlanID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBasePlanMissing, plan.BaseRatePlanID)
	}
	return base, nil
}
