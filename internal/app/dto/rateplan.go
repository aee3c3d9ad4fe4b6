package dto

import (
	"sort"
	"time"

	"github.com/samber/lo"

	domainrateplans "rateplans/internal/domain/rateplans"
	"rateplans/internal/domain/shared/daterange"
	"rateplans/internal/domain/shared/money"
)

type Restriction struct {
	Type      string  `json:"type"`
	Value     *int    `json:"value,omitempty"`
	StartDate *string `json:"start_date,omitempty"`
	EndDate   *string `json:"end_date,omitempty"`
}

type CancellationTier struct {
	DaysBeforeCheckIn int    `json:"days_before_check_in"`
	RefundPercentage  string `json:"refund_percentage"`
	Description       string `json:"description,omitempty"`
}

type CancellationPolicy struct {
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	Tiers       []CancellationTier `json:"tiers"`
}

type PriceOverride struct {
	Date   string `json:"date"`
	Amount string `json:"amount"`
}

type DerivedRatePlan struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// RatePlan is the host-facing view of a rate plan.
type RatePlan struct {
	ID                   string              `json:"id"`
	PropertyID           string              `json:"property_id"`
	Name                 string              `json:"name"`
	Description          string              `json:"description,omitempty"`
	Currency             string              `json:"currency"`
	AdjustmentType       string              `json:"adjustment_type"`
	AdjustmentValue      string              `json:"adjustment_value"`
	BaseRatePlanID       string              `json:"base_rate_plan_id,omitempty"`
	Priority             int                 `json:"priority"`
	AllowConcurrentRates bool                `json:"allow_concurrent_rates"`
	ActiveDays           []int               `json:"active_days"`
	IncludesBreakfast    bool                `json:"includes_breakfast"`
	IsActive             bool                `json:"is_active"`
	Restrictions         []Restriction       `json:"restrictions"`
	CancellationPolicy   *CancellationPolicy `json:"cancellation_policy,omitempty"`
	Overrides            []PriceOverride     `json:"overrides"`
	DerivedRatePlans     []DerivedRatePlan   `json:"derived_rate_plans,omitempty"`
	CreatedAt            time.Time           `json:"created_at"`
	UpdatedAt            time.Time           `json:"updated_at"`
	Version              int64               `json:"version"`
}

type RatePlanList struct {
	PropertyID string     `json:"property_id"`
	Items      []RatePlan `json:"items"`
	Total      int        `json:"total"`
}

// RatePlanSummary is the guest-facing subset of a rate plan shown in search results.
type RatePlanSummary struct {
	ID                   string `json:"id"`
	Name                 string `json:"name"`
	Description          string `json:"description,omitempty"`
	AdjustmentType       string `json:"adjustment_type"`
	Priority             int    `json:"priority"`
	AllowConcurrentRates bool   `json:"allow_concurrent_rates"`
}

type DeletionDetails struct {
	ReservationCount      int      `json:"reservationCount"`
	DerivedRatePlansCount int      `json:"derivedRatePlansCount"`
	DerivedRatePlanNames  []string `json:"derivedRatePlanNames"`
}

// RatePlanDeletion reports which of hard, soft or blocked happened.
type RatePlanDeletion struct {
	RatePlanID string          `json:"rate_plan_id"`
	Outcome    string          `json:"outcome"`
	Message    string          `json:"message"`
	Details    DeletionDetails `json:"details"`
}

func MapRatePlan(plan *domainrateplans.RatePlan, derived []*domainrateplans.RatePlan) RatePlan {
	if plan == nil {
		return RatePlan{}
	}
	out := RatePlan{
		ID:                   string(plan.ID),
		PropertyID:           string(plan.PropertyID),
		Name:                 plan.Name,
		Description:          plan.Description,
		Currency:             plan.Currency,
		AdjustmentType:       string(plan.AdjustmentType),
		AdjustmentValue:      plan.AdjustmentValue.String(),
		BaseRatePlanID:       string(plan.BaseRatePlanID),
		Priority:             plan.Priority,
		AllowConcurrentRates: plan.AllowConcurrentRates,
		ActiveDays:           lo.Map(plan.ActiveDays, func(d time.Weekday, _ int) int { return int(d) }),
		IncludesBreakfast:    plan.IncludesBreakfast,
		IsActive:             plan.IsActive,
		Restrictions:         lo.Map(plan.Restrictions, func(r domainrateplans.Restriction, _ int) Restriction { return MapRestriction(r) }),
		CancellationPolicy:   MapCancellationPolicy(plan.CancellationPolicy),
		Overrides:            mapOverrides(plan),
		CreatedAt:            plan.CreatedAt,
		UpdatedAt:            plan.UpdatedAt,
		Version:              plan.Version,
	}
	for _, d := range derived {
		out.DerivedRatePlans = append(out.DerivedRatePlans, DerivedRatePlan{ID: string(d.ID), Name: d.Name})
	}
	return out
}

func MapRatePlanSummary(plan *domainrateplans.RatePlan) RatePlanSummary {
	return RatePlanSummary{
		ID:                   string(plan.ID),
		Name:                 plan.Name,
		Description:          plan.Description,
		AdjustmentType:       string(plan.AdjustmentType),
		Priority:             plan.Priority,
		AllowConcurrentRates: plan.AllowConcurrentRates,
	}
}

func MapRestriction(r domainrateplans.Restriction) Restriction {
	out := Restriction{Type: string(r.Type), Value: r.Value}
	if r.StartDate != nil {
		out.StartDate = lo.ToPtr(daterange.Key(*r.StartDate))
	}
	if r.EndDate != nil {
		out.EndDate = lo.ToPtr(daterange.Key(*r.EndDate))
	}
	return out
}

func MapCancellationPolicy(p *domainrateplans.CancellationPolicy) *CancellationPolicy {
	if p == nil {
		return nil
	}
	return &CancellationPolicy{
		Name:        p.Name,
		Description: p.Description,
		Tiers: lo.Map(p.Tiers, func(t domainrateplans.Tier, _ int) CancellationTier {
			return CancellationTier{
				DaysBeforeCheckIn: t.DaysBeforeCheckIn,
				RefundPercentage:  t.RefundPercentage.StringFixed(money.DisplayPlaces),
				Description:       t.Description,
			}
		}),
	}
}

// MapDeletion renders a deletion outcome with the counters the host UI explains it with.
func MapDeletion(id domainrateplans.RatePlanID, outcome domainrateplans.DeletionOutcome) RatePlanDeletion {
	out := RatePlanDeletion{
		RatePlanID: string(id),
		Outcome:    string(outcome.Kind()),
		Details:    DeletionDetails{DerivedRatePlanNames: []string{}},
	}
	switch o := outcome.(type) {
	case domainrateplans.HardDeletion:
		out.Message = "Rate plan deleted."
	case domainrateplans.SoftDeletion:
		out.Details.ReservationCount = o.ReservationCount
		out.Message = "Rate plan has reservations and was deactivated instead of deleted."
	case domainrateplans.BlockedDeletion:
		out.Details.ReservationCount = o.ReservationCount
		out.Details.DerivedRatePlansCount = len(o.DerivedPlans)
		out.Details.DerivedRatePlanNames = o.DerivedNames()
		out.Message = "Rate plan is the base of other rate plans and cannot be deleted."
	}
	return out
}

func mapOverrides(plan *domainrateplans.RatePlan) []PriceOverride {
	out := make([]PriceOverride, 0, len(plan.Overrides))
	for date, amount := range plan.Overrides {
		out = append(out, PriceOverride{Date: date, Amount: amount.StringFixed(money.DisplayPlaces)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}
