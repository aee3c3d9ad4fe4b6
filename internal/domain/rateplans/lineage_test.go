package rateplans

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func derivedAttrs(name string, typ AdjustmentType, value int64, base RatePlanID) Attributes {
	return Attributes{
		Name:            name,
		AdjustmentType:  typ,
		AdjustmentValue: decimal.NewFromInt(value),
		BaseRatePlanID:  base,
		Priority:        50,
	}
}

func TestValidateLineage(t *testing.T) {
	base := mustPlan(t, "base", "prop-1", fixedAttrs("Base", 1000))
	discount := mustPlan(t, "disc", "prop-1", derivedAttrs("Discount", FixedDiscount, 100, "base"))
	foreign := mustPlan(t, "foreign", "prop-2", fixedAttrs("Other", 500))
	all := []*RatePlan{base, discount, foreign}

	t.Run("percentage on fixed base", func(t *testing.T) {
		p := mustPlan(t, "pct", "prop-1", derivedAttrs("Pct", Percentage, 10, "base"))
		assert.NoError(t, ValidateLineage(p, IndexPlans(all)))
	})

	t.Run("discount of a discount", func(t *testing.T) {
		p := mustPlan(t, "disc2", "prop-1", derivedAttrs("Deeper", FixedDiscount, 50, "disc"))
		assert.NoError(t, ValidateLineage(p, IndexPlans(all)))
	})

	t.Run("percentage on derived base", func(t *testing.T) {
		p := mustPlan(t, "pct", "prop-1", derivedAttrs("Pct", Percentage, 10, "disc"))
		assert.ErrorIs(t, ValidateLineage(p, IndexPlans(all)), ErrPercentageBaseType)
	})

	t.Run("missing base", func(t *testing.T) {
		p := mustPlan(t, "pct", "prop-1", derivedAttrs("Pct", Percentage, 10, "nope"))
		assert.ErrorIs(t, ValidateLineage(p, IndexPlans(all)), ErrBaseNotFound)
	})

	t.Run("base of another property", func(t *testing.T) {
		p := mustPlan(t, "pct", "prop-1", derivedAttrs("Pct", Percentage, 10, "foreign"))
		assert.ErrorIs(t, ValidateLineage(p, IndexPlans(all)), ErrBaseOtherProperty)
	})

	t.Run("fixed price has no lineage", func(t *testing.T) {
		assert.NoError(t, ValidateLineage(base, IndexPlans(all)))
	})
}

func TestValidateLineageDetectsCycle(t *testing.T) {
	a := mustPlan(t, "a", "prop-1", derivedAttrs("A", FixedDiscount, 1, "b"))
	b := mustPlan(t, "b", "prop-1", derivedAttrs("B", FixedDiscount, 1, "c"))
	c := mustPlan(t, "c", "prop-1", derivedAttrs("C", FixedDiscount, 1, "b"))

	err := ValidateLineage(a, IndexPlans([]*RatePlan{a, b, c}))
	assert.ErrorIs(t, err, ErrBaseCycle)
}

func TestValidateLineageDepth(t *testing.T) {
	chain := func(hops int) []*RatePlan {
		plans := []*RatePlan{mustPlan(t, "p0", "prop-1", fixedAttrs("Leaf", 1000))}
		for i := 1; i <= hops; i++ {
			id := RatePlanID("p" + string(rune('a'+i)))
			prev := plans[len(plans)-1].ID
			plans = append(plans, mustPlan(t, string(id), "prop-1", derivedAttrs(string(id), FixedDiscount, 1, prev)))
		}
		return plans
	}

	ok := chain(MaxBaseChainDepth)
	assert.NoError(t, ValidateLineage(ok[len(ok)-1], IndexPlans(ok)))

	deep := chain(MaxBaseChainDepth + 1)
	assert.ErrorIs(t, ValidateLineage(deep[len(deep)-1], IndexPlans(deep)), ErrBaseChainTooDeep)
}

func TestDependents(t *testing.T) {
	base := mustPlan(t, "base", "prop-1", fixedAttrs("Base", 1000))
	child := mustPlan(t, "child", "prop-1", derivedAttrs("Child", FixedDiscount, 100, "base"))
	grandchild := mustPlan(t, "grandchild", "prop-1", derivedAttrs("Grandchild", FixedDiscount, 10, "child"))
	other := mustPlan(t, "other", "prop-1", fixedAttrs("Other", 10))

	deps := Dependents("base", []*RatePlan{base, child, grandchild, other})
	require.Len(t, deps, 2)
	assert.Equal(t, RatePlanID("child"), deps[0].ID)
	assert.Equal(t, RatePlanID("grandchild"), deps[1].ID)
}

func TestValidateDependentsGuardsPercentageChildren(t *testing.T) {
	base := mustPlan(t, "base", "prop-1", fixedAttrs("Base", 1000))
	other := mustPlan(t, "other", "prop-1", fixedAttrs("Other", 800))
	pct := mustPlan(t, "pct", "prop-1", derivedAttrs("Pct", Percentage, 10, "base"))
	all := []*RatePlan{base, other, pct}

	updated := base.Clone()
	require.NoError(t, updated.Update(derivedAttrs("Base", FixedDiscount, 50, "other"), now))

	assert.ErrorIs(t, ValidateDependents(updated, all), ErrDependentsRequireFixed)

	priceOnly := base.Clone()
	require.NoError(t, priceOnly.Update(fixedAttrs("Base", 1200), now))
	assert.NoError(t, ValidateDependents(priceOnly, all))
}

func TestDecideDeletion(t *testing.T) {
	child := mustPlan(t, "child", "prop-1", derivedAttrs("Member rate", FixedDiscount, 100, "base"))

	t.Run("hard", func(t *testing.T) {
		out := DecideDeletion(0, nil)
		assert.Equal(t, DeletionHard, out.Kind())
	})

	t.Run("soft", func(t *testing.T) {
		out := DecideDeletion(3, nil)
		require.IsType(t, SoftDeletion{}, out)
		assert.Equal(t, 3, out.(SoftDeletion).ReservationCount)
	})

	t.Run("blocked regardless of reservations", func(t *testing.T) {
		for _, count := range []int{0, 5} {
			out := DecideDeletion(count, []*RatePlan{child})
			blocked, ok := out.(BlockedDeletion)
			require.True(t, ok)
			assert.Equal(t, []string{"Member rate"}, blocked.DerivedNames())
			assert.Equal(t, count, blocked.ReservationCount)
		}
	})
}
