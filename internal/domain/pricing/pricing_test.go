package pricing

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rateplans/internal/domain/rateplans"
	"rateplans/internal/domain/shared/daterange"
)

const property = "prop-1"

var bookedAt = time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC)

type planOpt func(*rateplans.RatePlan)

func plan(id string, typ rateplans.AdjustmentType, value string, opts ...planOpt) *rateplans.RatePlan {
	p := &rateplans.RatePlan{
		ID:                   rateplans.RatePlanID(id),
		PropertyID:           property,
		Name:                 id,
		Currency:             "AED",
		AdjustmentType:       typ,
		AdjustmentValue:      decimal.RequireFromString(value),
		Priority:             100,
		AllowConcurrentRates: true,
		ActiveDays:           rateplans.AllWeekdays(),
		IsActive:             true,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func withBase(id string) planOpt {
	return func(p *rateplans.RatePlan) { p.BaseRatePlanID = rateplans.RatePlanID(id) }
}

func withPriority(n int) planOpt {
	return func(p *rateplans.RatePlan) { p.Priority = n }
}

func exclusive() planOpt {
	return func(p *rateplans.RatePlan) { p.AllowConcurrentRates = false }
}

func inactive() planOpt {
	return func(p *rateplans.RatePlan) { p.IsActive = false }
}

func withRestriction(r rateplans.Restriction) planOpt {
	return func(p *rateplans.RatePlan) { p.Restrictions = append(p.Restrictions, r) }
}

func withOverride(date string, amount string) planOpt {
	return func(p *rateplans.RatePlan) {
		if p.Overrides == nil {
			p.Overrides = map[string]decimal.Decimal{}
		}
		p.Overrides[date] = decimal.RequireFromString(amount)
	}
}

func intPtr(v int) *int { return &v }

func day(s string) time.Time {
	t, err := daterange.ParseKey(s)
	if err != nil {
		panic(err)
	}
	return t
}

func dayPtr(s string) *time.Time {
	t := day(s)
	return &t
}

func stay(t *testing.T, checkIn, checkOut string, guests int) StayRequest {
	t.Helper()
	r, err := daterange.New(day(checkIn), day(checkOut))
	require.NoError(t, err)
	return StayRequest{Range: r, Guests: guests, BookingDate: bookedAt}
}

func ids(plans []*rateplans.RatePlan) []string {
	out := make([]string, 0, len(plans))
	for _, p := range plans {
		out = append(out, string(p.ID))
	}
	return out
}

func snapshotOf(plans ...*rateplans.RatePlan) *Snapshot {
	return NewSnapshot(property, "AED", plans)
}

func TestFixedPriceReturnsValueForAnyDate(t *testing.T) {
	p := plan("std", rateplans.FixedPrice, "1000")
	calc := NewCalculator(snapshotOf(p))

	for _, d := range []string{"2026-01-01", "2026-06-15", "2027-02-28"} {
		got, err := calc.PriceForNight(p, day(d))
		require.NoError(t, err)
		assert.True(t, got.Equal(decimal.NewFromInt(1000)), d)
	}
}

func TestPercentageNeverNegative(t *testing.T) {
	base := plan("base", rateplans.FixedPrice, "800")
	cases := []struct {
		pct  string
		want string
	}{
		{"10", "720"},
		{"100", "0"},
		{"0", "800"},
		{"-25", "1000"},
		{"12.5", "700"},
	}
	for _, tc := range cases {
		t.Run(tc.pct, func(t *testing.T) {
			p := plan("pct", rateplans.Percentage, tc.pct, withBase("base"))
			got, err := NewCalculator(snapshotOf(base, p)).PriceForNight(p, day("2026-06-01"))
			require.NoError(t, err)
			assert.Equal(t, tc.want, got.String())
			assert.False(t, got.IsNegative())
		})
	}
}

func TestFixedDiscountFloorsAtZero(t *testing.T) {
	base := plan("base", rateplans.FixedPrice, "100")
	p := plan("disc", rateplans.FixedDiscount, "150", withBase("base"))

	got, err := NewCalculator(snapshotOf(base, p)).PriceForNight(p, day("2026-06-01"))
	require.NoError(t, err)
	assert.True(t, got.IsZero())
}

func TestOverrideAlwaysWins(t *testing.T) {
	base := plan("base", rateplans.FixedPrice, "1000", withOverride("2026-06-02", "1300"))
	plans := []*rateplans.RatePlan{
		plan("fixed", rateplans.FixedPrice, "500", withOverride("2026-06-01", "42")),
		plan("disc", rateplans.FixedDiscount, "100", withBase("base"), withOverride("2026-06-01", "42")),
		plan("pct", rateplans.Percentage, "50", withBase("base"), withOverride("2026-06-01", "42")),
	}
	calc := NewCalculator(snapshotOf(append(plans, base)...))

	for _, p := range plans {
		got, err := calc.PriceForNight(p, day("2026-06-01"))
		require.NoError(t, err)
		assert.Equal(t, "42", got.String(), string(p.ID))
	}

	// a base override feeds derived plans
	got, err := calc.PriceForNight(plans[2], day("2026-06-02"))
	require.NoError(t, err)
	assert.Equal(t, "650", got.String())
}

func TestRecursiveChainResolution(t *testing.T) {
	base := plan("base", rateplans.FixedPrice, "1000")
	member := plan("member", rateplans.Percentage, "10", withBase("base"))
	flash := plan("flash", rateplans.FixedDiscount, "50", withBase("member"))
	calc := NewCalculator(snapshotOf(base, member, flash))

	got, err := calc.PriceForNight(flash, day("2026-06-01"))
	require.NoError(t, err)
	assert.Equal(t, "850", got.String())
}

func TestResolutionErrors(t *testing.T) {
	t.Run("missing base", func(t *testing.T) {
		p := plan("orphan", rateplans.Percentage, "10", withBase("gone"))
		_, err := NewCalculator(snapshotOf(p)).PriceForNight(p, day("2026-06-01"))
		assert.ErrorIs(t, err, ErrBasePlanMissing)
	})

	t.Run("cycle", func(t *testing.T) {
		a := plan("a", rateplans.FixedDiscount, "1", withBase("b"))
		b := plan("b", rateplans.FixedDiscount, "1", withBase("a"))
		_, err := NewCalculator(snapshotOf(a, b)).PriceForNight(a, day("2026-06-01"))
		assert.ErrorIs(t, err, ErrBasePlanCycle)
	})

	t.Run("depth", func(t *testing.T) {
		plans := []*rateplans.RatePlan{plan("p0", rateplans.FixedPrice, "1000")}
		for i := 1; i <= MaxResolutionDepth+1; i++ {
			prev := string(plans[len(plans)-1].ID)
			plans = append(plans, plan(prev+"x", rateplans.FixedDiscount, "1", withBase(prev)))
		}
		calc := NewCalculator(snapshotOf(plans...))

		_, err := calc.PriceForNight(plans[len(plans)-1], day("2026-06-01"))
		assert.ErrorIs(t, err, ErrResolutionDepth)

		got, err := calc.PriceForNight(plans[len(plans)-2], day("2026-06-01"))
		require.NoError(t, err)
		assert.Equal(t, "990", got.String())
	})
}

func TestInactiveBaseStillPricesDerived(t *testing.T) {
	base := plan("base", rateplans.FixedPrice, "400", inactive())
	p := plan("pct", rateplans.Percentage, "25", withBase("base"))
	snap := snapshotOf(base, p)

	assert.Equal(t, []string{"pct"}, ids(snap.Candidates()))
	got, err := NewCalculator(snap).PriceForNight(p, day("2026-06-01"))
	require.NoError(t, err)
	assert.Equal(t, "300", got.String())
}

func TestFilterRestrictions(t *testing.T) {
	// 2026-06-01 is a Monday
	cases := []struct {
		name        string
		restriction rateplans.Restriction
		req         StayRequest
		want        bool
	}{
		{"min stay excluded", rateplans.Restriction{Type: rateplans.MinLengthOfStay, Value: intPtr(3)}, stay(t, "2026-06-01", "2026-06-03", 2), false},
		{"min stay included", rateplans.Restriction{Type: rateplans.MinLengthOfStay, Value: intPtr(3)}, stay(t, "2026-06-01", "2026-06-04", 2), true},
		{"max stay", rateplans.Restriction{Type: rateplans.MaxLengthOfStay, Value: intPtr(2)}, stay(t, "2026-06-01", "2026-06-04", 2), false},
		{"min guests", rateplans.Restriction{Type: rateplans.MinGuests, Value: intPtr(3)}, stay(t, "2026-06-01", "2026-06-04", 2), false},
		{"max guests inclusive", rateplans.Restriction{Type: rateplans.MaxGuests, Value: intPtr(2)}, stay(t, "2026-06-01", "2026-06-04", 2), true},
		// booked 2026-05-01 09:30, 30.6 days ahead rounds up to 31
		{"min advance", rateplans.Restriction{Type: rateplans.MinAdvancedReservation, Value: intPtr(31)}, stay(t, "2026-06-01", "2026-06-04", 2), true},
		{"max advance", rateplans.Restriction{Type: rateplans.MaxAdvancedReservation, Value: intPtr(14)}, stay(t, "2026-06-01", "2026-06-04", 2), false},
		{"no arrivals hit", rateplans.Restriction{Type: rateplans.NoArrivals, StartDate: dayPtr("2026-05-30"), EndDate: dayPtr("2026-06-01")}, stay(t, "2026-06-01", "2026-06-04", 2), false},
		{"no arrivals miss", rateplans.Restriction{Type: rateplans.NoArrivals, StartDate: dayPtr("2026-06-02"), EndDate: dayPtr("2026-06-10")}, stay(t, "2026-06-01", "2026-06-04", 2), true},
		{"no departures hit", rateplans.Restriction{Type: rateplans.NoDepartures, StartDate: dayPtr("2026-06-04"), EndDate: dayPtr("2026-06-04")}, stay(t, "2026-06-01", "2026-06-04", 2), false},
		{"open window ignored", rateplans.Restriction{Type: rateplans.NoArrivals, StartDate: dayPtr("2026-05-01")}, stay(t, "2026-06-01", "2026-06-04", 2), true},
		{"seasonal inside", rateplans.Restriction{Type: rateplans.SeasonalDateRange, StartDate: dayPtr("2026-06-01"), EndDate: dayPtr("2026-08-31")}, stay(t, "2026-06-01", "2026-06-04", 2), true},
		{"seasonal outside", rateplans.Restriction{Type: rateplans.SeasonalDateRange, StartDate: dayPtr("2026-07-01"), EndDate: dayPtr("2026-08-31")}, stay(t, "2026-06-01", "2026-06-04", 2), false},
		{"seasonal open window", rateplans.Restriction{Type: rateplans.SeasonalDateRange, EndDate: dayPtr("2026-01-01")}, stay(t, "2026-06-01", "2026-06-04", 2), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := plan("rp", rateplans.FixedPrice, "100", withRestriction(tc.restriction))
			assert.Equal(t, tc.want, Applicable(p, tc.req))
		})
	}
}

func TestFilterRestrictionsCombineWithAnd(t *testing.T) {
	p := plan("rp", rateplans.FixedPrice, "100",
		withRestriction(rateplans.Restriction{Type: rateplans.MinLengthOfStay, Value: intPtr(2)}),
		withRestriction(rateplans.Restriction{Type: rateplans.MaxGuests, Value: intPtr(2)}),
	)
	assert.True(t, Applicable(p, stay(t, "2026-06-01", "2026-06-03", 2)))
	assert.False(t, Applicable(p, stay(t, "2026-06-01", "2026-06-03", 3)))
	assert.False(t, Applicable(p, stay(t, "2026-06-01", "2026-06-02", 2)))
}

func TestFilterActiveDaysUsesCheckIn(t *testing.T) {
	weekend := plan("weekend", rateplans.FixedPrice, "100", func(p *rateplans.RatePlan) {
		p.ActiveDays = []time.Weekday{time.Friday, time.Saturday}
	})
	plans := []*rateplans.RatePlan{weekend, plan("any", rateplans.FixedPrice, "90")}

	assert.Equal(t, []string{"any"}, ids(Filter(plans, stay(t, "2026-06-01", "2026-06-03", 2))))
	assert.Equal(t, []string{"weekend", "any"}, ids(Filter(plans, stay(t, "2026-06-05", "2026-06-07", 2))))
}

func TestResolveExclusivity(t *testing.T) {
	plans := []*rateplans.RatePlan{
		plan("c60", rateplans.FixedPrice, "100", withPriority(60)),
		plan("ex50", rateplans.FixedPrice, "100", withPriority(50), exclusive()),
		plan("c40", rateplans.FixedPrice, "100", withPriority(40)),
	}
	assert.Equal(t, []string{"c40", "ex50"}, ids(Resolve(plans)))
}

func TestResolveWithoutExclusivePlans(t *testing.T) {
	plans := []*rateplans.RatePlan{
		plan("b", rateplans.FixedPrice, "100", withPriority(20)),
		plan("c", rateplans.FixedPrice, "100", withPriority(5)),
		plan("a", rateplans.FixedPrice, "100", withPriority(20)),
	}
	assert.Equal(t, []string{"c", "a", "b"}, ids(Resolve(plans)))
}

func TestResolveLowestExclusiveWins(t *testing.T) {
	plans := []*rateplans.RatePlan{
		plan("ex30", rateplans.FixedPrice, "100", withPriority(30), exclusive()),
		plan("ex10", rateplans.FixedPrice, "100", withPriority(10), exclusive()),
		plan("c20", rateplans.FixedPrice, "100", withPriority(20)),
	}
	assert.Equal(t, []string{"ex10"}, ids(Resolve(plans)))
}

func TestSelectTier(t *testing.T) {
	tiers := []rateplans.Tier{
		{DaysBeforeCheckIn: 7, RefundPercentage: decimal.NewFromInt(100)},
		{DaysBeforeCheckIn: 0, RefundPercentage: decimal.Zero},
	}
	cases := []struct {
		days int
		want int64
	}{
		{10, 100},
		{7, 100},
		{3, 0},
		{0, 0},
		{-2, 0},
	}
	for _, tc := range cases {
		tier, ok := SelectTier(tiers, tc.days)
		require.True(t, ok)
		assert.True(t, tier.RefundPercentage.Equal(decimal.NewFromInt(tc.want)), "days=%d", tc.days)
	}
}

func TestSelectTierFallsBackToMostRestrictive(t *testing.T) {
	tiers := []rateplans.Tier{
		{DaysBeforeCheckIn: 14, RefundPercentage: decimal.NewFromInt(100)},
		{DaysBeforeCheckIn: 5, RefundPercentage: decimal.NewFromInt(50)},
	}
	tier, ok := SelectTier(tiers, 2)
	require.True(t, ok)
	assert.Equal(t, 5, tier.DaysBeforeCheckIn)
}
