package rateplans

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"rateplans/internal/domain/properties"
	"rateplans/internal/domain/shared/daterange"
	"rateplans/internal/domain/shared/events"
)

type RatePlanID string

const maxNameLength = 120

// RatePlan is a named pricing offer attached to a property. Derived plans price
// relative to BaseRatePlanID; FixedPrice plans are self-contained.
type RatePlan struct {
	ID                   RatePlanID
	PropertyID           properties.PropertyID
	Name                 string
	Description          string
	Currency             string
	AdjustmentType       AdjustmentType
	AdjustmentValue      decimal.Decimal
	BaseRatePlanID       RatePlanID
	Priority             int
	AllowConcurrentRates bool
	ActiveDays           []time.Weekday
	IncludesBreakfast    bool
	IsActive             bool
	Restrictions         []Restriction
	CancellationPolicy   *CancellationPolicy
	// Overrides maps a night (daterange.Key) to a replacement nightly price.
	Overrides map[string]decimal.Decimal
	CreatedAt time.Time
	UpdatedAt time.Time
	Version   int64

	events.EventRecorder
}

// ListFilter narrows a property listing. OverridesWithin trims each plan's
// overrides map to the nights of the range.
type ListFilter struct {
	OnlyActive      bool
	OverridesWithin *daterange.DateRange
}

type Repository interface {
	ByID(ctx context.Context, id RatePlanID) (*RatePlan, error)
	ListByProperty(ctx context.Context, propertyID properties.PropertyID, filter ListFilter) ([]*RatePlan, error)
	ListDerived(ctx context.Context, baseID RatePlanID) ([]*RatePlan, error)
	Save(ctx context.Context, plan *RatePlan) error
	Delete(ctx context.Context, id RatePlanID) error
}

// Attributes is the host-editable part of a rate plan.
type Attributes struct {
	Name                 string
	Description          string
	AdjustmentType       AdjustmentType
	AdjustmentValue      decimal.Decimal
	BaseRatePlanID       RatePlanID
	Priority             int
	AllowConcurrentRates bool
	ActiveDays           []int
	IncludesBreakfast    bool
	IsActive             *bool
	Restrictions         []Restriction
	CancellationPolicy   *CancellationPolicy
}

type CreateParams struct {
	ID         RatePlanID
	PropertyID properties.PropertyID
	Currency   string
	Attributes Attributes
	Now        time.Time
}

func NewRatePlan(params CreateParams) (*RatePlan, error) {
	if strings.TrimSpace(string(params.ID)) == "" {
		return nil, errors.New("rateplans: id is required")
	}
	if strings.TrimSpace(string(params.PropertyID)) == "" {
		return nil, invalid("property_id", properties.ErrPropertyNotFound)
	}
	plan := &RatePlan{
		ID:         params.ID,
		PropertyID: params.PropertyID,
		Currency:   strings.ToUpper(strings.TrimSpace(params.Currency)),
		IsActive:   true,
		CreatedAt:  params.Now.UTC(),
		UpdatedAt:  params.Now.UTC(),
	}
	if err := plan.apply(params.Attributes); err != nil {
		return nil, err
	}
	plan.Record(RatePlanCreated{
		RatePlanID:     string(plan.ID),
		PropertyID:     string(plan.PropertyID),
		Name:           plan.Name,
		AdjustmentType: plan.AdjustmentType,
		BaseRatePlanID: string(plan.BaseRatePlanID),
		At:             plan.CreatedAt,
	})
	return plan, nil
}

// Update replaces the editable attributes. Overrides and identity are untouched.
func (p *RatePlan) Update(attrs Attributes, now time.Time) error {
	wasActive := p.IsActive
	if err := p.apply(attrs); err != nil {
		return err
	}
	p.UpdatedAt = now.UTC()
	p.Record(RatePlanUpdated{
		RatePlanID:     string(p.ID),
		PropertyID:     string(p.PropertyID),
		Name:           p.Name,
		AdjustmentType: p.AdjustmentType,
		IsActive:       p.IsActive,
		At:             p.UpdatedAt,
	})
	if wasActive && !p.IsActive {
		p.Record(RatePlanDeactivated{RatePlanID: string(p.ID), PropertyID: string(p.PropertyID), At: p.UpdatedAt})
	}
	return nil
}

// Deactivate hides the plan from search while keeping it for reservation history.
func (p *RatePlan) Deactivate(reservationCount int, now time.Time) {
	if !p.IsActive {
		return
	}
	p.IsActive = false
	p.UpdatedAt = now.UTC()
	p.Record(RatePlanDeactivated{
		RatePlanID:       string(p.ID),
		PropertyID:       string(p.PropertyID),
		ReservationCount: reservationCount,
		At:               p.UpdatedAt,
	})
}

// MarkDeleted records the removal event ahead of the repository delete.
func (p *RatePlan) MarkDeleted(now time.Time) {
	p.Record(RatePlanDeleted{RatePlanID: string(p.ID), PropertyID: string(p.PropertyID), At: now.UTC()})
}

// SetOverrides stores replacement nightly prices for the given nights.
func (p *RatePlan) SetOverrides(prices map[time.Time]decimal.Decimal, now time.Time) error {
	if len(prices) == 0 {
		return nil
	}
	var probs problems
	keys := make([]string, 0, len(prices))
	staged := make(map[string]decimal.Decimal, len(prices))
	for date, amount := range prices {
		if date.IsZero() {
			probs.add("overrides.date", ErrOverrideDate)
			continue
		}
		if amount.IsNegative() {
			probs.add("overrides."+daterange.Key(date), ErrOverrideAmount)
			continue
		}
		key := daterange.Key(date)
		staged[key] = amount
		keys = append(keys, key)
	}
	if err := probs.err(); err != nil {
		return err
	}
	if p.Overrides == nil {
		p.Overrides = make(map[string]decimal.Decimal, len(staged))
	}
	for k, v := range staged {
		p.Overrides[k] = v
	}
	sort.Strings(keys)
	p.UpdatedAt = now.UTC()
	p.Record(RatePlanOverridesChanged{RatePlanID: string(p.ID), PropertyID: string(p.PropertyID), Dates: keys, At: p.UpdatedAt})
	return nil
}

// ClearOverride removes the override for one night. It reports whether one existed.
func (p *RatePlan) ClearOverride(date time.Time, now time.Time) bool {
	key := daterange.Key(date)
	if _, ok := p.Overrides[key]; !ok {
		return false
	}
	delete(p.Overrides, key)
	p.UpdatedAt = now.UTC()
	p.Record(RatePlanOverridesChanged{RatePlanID: string(p.ID), PropertyID: string(p.PropertyID), Dates: []string{key}, Cleared: true, At: p.UpdatedAt})
	return true
}

// OverrideFor returns the override for the night of date, if any.
func (p *RatePlan) OverrideFor(date time.Time) (decimal.Decimal, bool) {
	if len(p.Overrides) == 0 {
		return decimal.Decimal{}, false
	}
	v, ok := p.Overrides[daterange.Key(date)]
	return v, ok
}

// ActiveOn reports whether the plan prices nights falling on the weekday.
func (p *RatePlan) ActiveOn(day time.Weekday) bool {
	for _, d := range p.ActiveDays {
		if d == day {
			return true
		}
	}
	return false
}

func (p *RatePlan) HasBase() bool {
	return p.BaseRatePlanID != ""
}

// Clone returns a deep copy without pending events.
func (p *RatePlan) Clone() *RatePlan {
	if p == nil {
		return nil
	}
	out := &RatePlan{
		ID:                   p.ID,
		PropertyID:           p.PropertyID,
		Name:                 p.Name,
		Description:          p.Description,
		Currency:             p.Currency,
		AdjustmentType:       p.AdjustmentType,
		AdjustmentValue:      p.AdjustmentValue,
		BaseRatePlanID:       p.BaseRatePlanID,
		Priority:             p.Priority,
		AllowConcurrentRates: p.AllowConcurrentRates,
		ActiveDays:           append([]time.Weekday(nil), p.ActiveDays...),
		IncludesBreakfast:    p.IncludesBreakfast,
		IsActive:             p.IsActive,
		Restrictions:         cloneRestrictions(p.Restrictions),
		CancellationPolicy:   p.CancellationPolicy.clone(),
		CreatedAt:            p.CreatedAt,
		UpdatedAt:            p.UpdatedAt,
		Version:              p.Version,
	}
	if len(p.Overrides) > 0 {
		out.Overrides = make(map[string]decimal.Decimal, len(p.Overrides))
		for k, v := range p.Overrides {
			out.Overrides[k] = v
		}
	}
	return out
}

// TrimOverrides keeps only overrides for nights of r.
func (p *RatePlan) TrimOverrides(r daterange.DateRange) {
	for key := range p.Overrides {
		day, err := daterange.ParseKey(key)
		if err != nil || !r.ContainsDate(day) {
			delete(p.Overrides, key)
		}
	}
}

func (p *RatePlan) apply(attrs Attributes) error {
	var probs problems

	name := strings.TrimSpace(attrs.Name)
	switch {
	case name == "":
		probs.add("name", ErrNameRequired)
	case utf8.RuneCountInString(name) > maxNameLength:
		probs.add("name", ErrNameTooLong)
	}

	if !attrs.AdjustmentType.Valid() {
		probs.add("adjustment_type", ErrAdjustmentTypeInvalid)
	} else {
		probs.add("adjustment_value", validateAdjustmentValue(attrs.AdjustmentType, attrs.AdjustmentValue))
	}

	base := RatePlanID(strings.TrimSpace(string(attrs.BaseRatePlanID)))
	switch attrs.AdjustmentType {
	case Percentage, FixedDiscount:
		if base == "" {
			probs.add("base_rate_plan_id", ErrBaseRequired)
		}
	case FixedPrice:
		if base != "" {
			probs.add("base_rate_plan_id", ErrBaseNotAllowed)
		}
	}
	if base != "" && base == p.ID {
		probs.add("base_rate_plan_id", ErrBaseSelfReference)
	}

	if attrs.Priority < MinPriority || attrs.Priority > MaxPriority {
		probs.add("priority", ErrPriorityRange)
	}

	days, err := normalizeActiveDays(attrs.ActiveDays)
	probs.add("active_days", err)

	for _, r := range attrs.Restrictions {
		probs.add("restrictions", r.validate())
	}
	if attrs.CancellationPolicy != nil {
		probs = append(probs, attrs.CancellationPolicy.validate()...)
	}

	if err := probs.err(); err != nil {
		return err
	}

	p.Name = name
	p.Description = strings.TrimSpace(attrs.Description)
	p.AdjustmentType = attrs.AdjustmentType
	p.AdjustmentValue = attrs.AdjustmentValue
	p.BaseRatePlanID = base
	p.Priority = attrs.Priority
	p.AllowConcurrentRates = attrs.AllowConcurrentRates
	p.ActiveDays = days
	p.IncludesBreakfast = attrs.IncludesBreakfast
	if attrs.IsActive != nil {
		p.IsActive = *attrs.IsActive
	}
	p.Restrictions = cloneRestrictions(attrs.Restrictions)
	p.CancellationPolicy = attrs.CancellationPolicy.clone()
	return nil
}

// normalizeActiveDays dedupes and sorts weekday numbers. An empty list means every day.
func normalizeActiveDays(raw []int) ([]time.Weekday, error) {
	if len(raw) == 0 {
		return AllWeekdays(), nil
	}
	seen := make(map[int]struct{}, len(raw))
	out := make([]time.Weekday, 0, len(raw))
	for _, d := range raw {
		if d < 0 || d > 6 {
			return nil, ErrActiveDayRange
		}
		if _, dup := seen[d]; dup {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, time.Weekday(d))
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}
