package rateplans

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type AdjustmentType string

const (
	FixedPrice    AdjustmentType = "FixedPrice"
	FixedDiscount AdjustmentType = "FixedDiscount"
	Percentage    AdjustmentType = "Percentage"
)

const (
	MinPriority = 1
	MaxPriority = 999

	// MaxBaseChainDepth bounds how many base hops a derived plan may take to reach a FixedPrice leaf.
	MaxBaseChainDepth = 10
)

var (
	percentageLimit = decimal.NewFromInt(100)
	allWeekdays     = []time.Weekday{time.Sunday, time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday}
)

// ParseAdjustmentType accepts the canonical names case-insensitively.
func ParseAdjustmentType(raw string) (AdjustmentType, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "fixedprice", "fixed_price":
		return FixedPrice, true
	case "fixeddiscount", "fixed_discount":
		return FixedDiscount, true
	case "percentage":
		return Percentage, true
	}
	return "", false
}

func (t AdjustmentType) Valid() bool {
	switch t {
	case FixedPrice, FixedDiscount, Percentage:
		return true
	}
	return false
}

// Derived reports whether the type prices relative to a base rate plan.
func (t AdjustmentType) Derived() bool {
	return t == FixedDiscount || t == Percentage
}

// AllWeekdays returns a fresh slice of every weekday, Sunday first.
func AllWeekdays() []time.Weekday {
	return append([]time.Weekday(nil), allWeekdays...)
}

func validateAdjustmentValue(t AdjustmentType, v decimal.Decimal) error {
	switch t {
	case FixedPrice, FixedDiscount:
		if v.IsNegative() {
			return ErrNegativeAdjustment
		}
	case Percentage:
		if v.LessThan(percentageLimit.Neg()) || v.GreaterThan(percentageLimit) {
			return ErrPercentageRange
		}
	}
	return nil
}
