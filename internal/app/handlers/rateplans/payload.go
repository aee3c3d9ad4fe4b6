package rateplans

import (
	"context"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	domainproperties "rateplans/internal/domain/properties"
	domainrateplans "rateplans/internal/domain/rateplans"
)

type RestrictionInput struct {
	Type      string `validate:"required"`
	Value     *int   `validate:"omitempty,min=0"`
	StartDate *time.Time
	EndDate   *time.Time
}

type TierInput struct {
	DaysBeforeCheckIn int `validate:"min=0"`
	RefundPercentage  decimal.Decimal
	Description       string `validate:"max=500"`
}

type CancellationPolicyInput struct {
	Name        string      `validate:"max=120"`
	Description string      `validate:"max=2000"`
	Tiers       []TierInput `validate:"max=20,dive"`
}

// RatePlanInput is the host-editable payload shared by create and update.
type RatePlanInput struct {
	Name                 string `validate:"required,max=120"`
	Description          string `validate:"max=2000"`
	AdjustmentType       string `validate:"required"`
	AdjustmentValue      decimal.Decimal
	BaseRatePlanID       string
	Priority             int   `validate:"min=1,max=999"`
	AllowConcurrentRates bool
	ActiveDays           []int `validate:"max=7,dive,min=0,max=6"`
	IncludesBreakfast    bool
	IsActive             *bool
	Restrictions         []RestrictionInput `validate:"max=50,dive"`
	CancellationPolicy   *CancellationPolicyInput
}

func (in RatePlanInput) attributes() domainrateplans.Attributes {
	adjustment, ok := domainrateplans.ParseAdjustmentType(in.AdjustmentType)
	if !ok {
		adjustment = domainrateplans.AdjustmentType(in.AdjustmentType)
	}
	attrs := domainrateplans.Attributes{
		Name:                 in.Name,
		Description:          in.Description,
		AdjustmentType:       adjustment,
		AdjustmentValue:      in.AdjustmentValue,
		BaseRatePlanID:       domainrateplans.RatePlanID(strings.TrimSpace(in.BaseRatePlanID)),
		Priority:             in.Priority,
		AllowConcurrentRates: in.AllowConcurrentRates,
		ActiveDays:           in.ActiveDays,
		IncludesBreakfast:    in.IncludesBreakfast,
		IsActive:             in.IsActive,
		Restrictions:         lo.Map(in.Restrictions, func(r RestrictionInput, _ int) domainrateplans.Restriction { return r.restriction() }),
	}
	if in.CancellationPolicy != nil {
		attrs.CancellationPolicy = &domainrateplans.CancellationPolicy{
			Name:        in.CancellationPolicy.Name,
			Description: in.CancellationPolicy.Description,
			Tiers: lo.Map(in.CancellationPolicy.Tiers, func(t TierInput, _ int) domainrateplans.Tier {
				return domainrateplans.Tier{
					DaysBeforeCheckIn: t.DaysBeforeCheckIn,
					RefundPercentage:  t.RefundPercentage,
					Description:       t.Description,
				}
			}),
		}
	}
	return attrs
}

func (in RestrictionInput) restriction() domainrateplans.Restriction {
	t, ok := domainrateplans.ParseRestrictionType(in.Type)
	if !ok {
		t = domainrateplans.RestrictionType(in.Type)
	}
	return domainrateplans.Restriction{Type: t, Value: in.Value, StartDate: in.StartDate, EndDate: in.EndDate}
}

// Scope carries the host and property every host message is bound to.
type Scope struct {
	HostID     string `validate:"required"`
	PropertyID string `validate:"required"`
}

func (s Scope) ActorID() string         { return s.HostID }
func (s Scope) ScopePropertyID() string { return s.PropertyID }
func (s Scope) LockKey() string         { return "property:" + s.PropertyID }

func (s Scope) property() domainproperties.PropertyID {
	return domainproperties.PropertyID(s.PropertyID)
}

// loadOwned returns the plan when it belongs to the scoped property.
func loadOwned(ctx context.Context, repo domainrateplans.Repository, s Scope, id string) (*domainrateplans.RatePlan, error) {
	plan, err := repo.ByID(ctx, domainrateplans.RatePlanID(id))
	if err != nil {
		return nil, err
	}
	if plan.PropertyID != s.property() {
		return nil, domainrateplans.ErrRatePlanNotFound
	}
	return plan, nil
}

// lineageLookup resolves bases among the property's plans first and falls back to
// the repository, so a base from another property is reported as such.
func lineageLookup(ctx context.Context, repo domainrateplans.Repository, siblings []*domainrateplans.RatePlan, pending ...*domainrateplans.RatePlan) domainrateplans.Lookup {
	local := domainrateplans.IndexPlans(siblings, pending...)
	return func(id domainrateplans.RatePlanID) (*domainrateplans.RatePlan, bool) {
		if p, ok := local(id); ok {
			return p, true
		}
		p, err := repo.ByID(ctx, id)
		if err != nil {
			return nil, false
		}
		return p, true
	}
}

// directChildren lists plans that name id as their base.
func directChildren(id domainrateplans.RatePlanID, plans []*domainrateplans.RatePlan) []*domainrateplans.RatePlan {
	return lo.Filter(plans, func(p *domainrateplans.RatePlan, _ int) bool { return p.BaseRatePlanID == id })
}
