package mongo

import (
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	domainavailability "rateplans/internal/domain/availability"
	domainproperties "rateplans/internal/domain/properties"
	domainrateplans "rateplans/internal/domain/rateplans"
	domainreservations "rateplans/internal/domain/reservations"
	"rateplans/internal/domain/shared/daterange"
	"rateplans/internal/domain/shared/money"
)

// Decimals are stored as strings so amounts round-trip exactly. Times are unix
// milliseconds.

type ratePlanDocument struct {
	ID                   string            `bson:"_id"`
	PropertyID           string            `bson:"property_id"`
	Name                 string            `bson:"name"`
	Description          string            `bson:"description,omitempty"`
	Currency             string            `bson:"currency"`
	AdjustmentType       string            `bson:"adjustment_type"`
	AdjustmentValue      string            `bson:"adjustment_value"`
	BaseRatePlanID       string            `bson:"base_rate_plan_id,omitempty"`
	Priority             int               `bson:"priority"`
	AllowConcurrentRates bool              `bson:"allow_concurrent_rates"`
	ActiveDays           []int             `bson:"active_days"`
	IncludesBreakfast    bool              `bson:"includes_breakfast"`
	IsActive             bool              `bson:"is_active"`
	Restrictions         []restrictionDoc  `bson:"restrictions,omitempty"`
	CancellationPolicy   *policyDocument   `bson:"cancellation_policy,omitempty"`
	Overrides            map[string]string `bson:"overrides,omitempty"`
	CreatedAt            int64             `bson:"created_at"`
	UpdatedAt            int64             `bson:"updated_at"`
	Version              int64             `bson:"version"`
}

type restrictionDoc struct {
	Type      string `bson:"type"`
	Value     *int   `bson:"value,omitempty"`
	StartDate *int64 `bson:"start_date,omitempty"`
	EndDate   *int64 `bson:"end_date,omitempty"`
}

type policyDocument struct {
	Name        string         `bson:"name"`
	Description string         `bson:"description,omitempty"`
	Tiers       []tierDocument `bson:"tiers"`
}

type tierDocument struct {
	DaysBeforeCheckIn int    `bson:"days_before_check_in"`
	RefundPercentage  string `bson:"refund_percentage"`
	Description       string `bson:"description,omitempty"`
}

func newRatePlanDocument(p *domainrateplans.RatePlan) ratePlanDocument {
	doc := ratePlanDocument{
		ID:                   string(p.ID),
		PropertyID:           string(p.PropertyID),
		Name:                 p.Name,
		Description:          p.Description,
		Currency:             p.Currency,
		AdjustmentType:       string(p.AdjustmentType),
		AdjustmentValue:      p.AdjustmentValue.String(),
		BaseRatePlanID:       string(p.BaseRatePlanID),
		Priority:             p.Priority,
		AllowConcurrentRates: p.AllowConcurrentRates,
		ActiveDays:           lo.Map(p.ActiveDays, func(d time.Weekday, _ int) int { return int(d) }),
		IncludesBreakfast:    p.IncludesBreakfast,
		IsActive:             p.IsActive,
		Restrictions: lo.Map(p.Restrictions, func(r domainrateplans.Restriction, _ int) restrictionDoc {
			return restrictionDoc{Type: string(r.Type), Value: r.Value, StartDate: millisPtr(r.StartDate), EndDate: millisPtr(r.EndDate)}
		}),
		CreatedAt: p.CreatedAt.UnixMilli(),
		UpdatedAt: p.UpdatedAt.UnixMilli(),
		Version:   p.Version,
	}
	if p.CancellationPolicy != nil {
		doc.CancellationPolicy = &policyDocument{
			Name:        p.CancellationPolicy.Name,
			Description: p.CancellationPolicy.Description,
			Tiers: lo.Map(p.CancellationPolicy.Tiers, func(t domainrateplans.Tier, _ int) tierDocument {
				return tierDocument{DaysBeforeCheckIn: t.DaysBeforeCheckIn, RefundPercentage: t.RefundPercentage.String(), Description: t.Description}
			}),
		}
	}
	if len(p.Overrides) > 0 {
		doc.Overrides = make(map[string]string, len(p.Overrides))
		for day, amount := range p.Overrides {
			doc.Overrides[day] = amount.String()
		}
	}
	return doc
}

func (d ratePlanDocument) toAggregate() (*domainrateplans.RatePlan, error) {
	value, err := decimal.NewFromString(d.AdjustmentValue)
	if err != nil {
		return nil, err
	}
	plan := &domainrateplans.RatePlan{
		ID:                   domainrateplans.RatePlanID(d.ID),
		PropertyID:           domainproperties.PropertyID(d.PropertyID),
		Name:                 d.Name,
		Description:          d.Description,
		Currency:             d.Currency,
		AdjustmentType:       domainrateplans.AdjustmentType(d.AdjustmentType),
		AdjustmentValue:      value,
		BaseRatePlanID:       domainrateplans.RatePlanID(d.BaseRatePlanID),
		Priority:             d.Priority,
		AllowConcurrentRates: d.AllowConcurrentRates,
		ActiveDays:           lo.Map(d.ActiveDays, func(n int, _ int) time.Weekday { return time.Weekday(n) }),
		IncludesBreakfast:    d.IncludesBreakfast,
		IsActive:             d.IsActive,
		Restrictions: lo.Map(d.Restrictions, func(r restrictionDoc, _ int) domainrateplans.Restriction {
			return domainrateplans.Restriction{
				Type:      domainrateplans.RestrictionType(r.Type),
				Value:     r.Value,
				StartDate: timePtr(r.StartDate),
				EndDate:   timePtr(r.EndDate),
			}
		}),
		CreatedAt: timestampToTime(d.CreatedAt),
		UpdatedAt: timestampToTime(d.UpdatedAt),
		Version:   d.Version,
	}
	if d.CancellationPolicy != nil {
		policy := &domainrateplans.CancellationPolicy{Name: d.CancellationPolicy.Name, Description: d.CancellationPolicy.Description}
		for _, t := range d.CancellationPolicy.Tiers {
			pct, err := decimal.NewFromString(t.RefundPercentage)
			if err != nil {
				return nil, err
			}
			policy.Tiers = append(policy.Tiers, domainrateplans.Tier{DaysBeforeCheckIn: t.DaysBeforeCheckIn, RefundPercentage: pct, Description: t.Description})
		}
		plan.CancellationPolicy = policy
	}
	if len(d.Overrides) > 0 {
		plan.Overrides = make(map[string]decimal.Decimal, len(d.Overrides))
		for day, raw := range d.Overrides {
			amount, err := decimal.NewFromString(raw)
			if err != nil {
				return nil, err
			}
			plan.Overrides[day] = amount
		}
	}
	return plan, nil
}

type reservationDocument struct {
	ID         string        `bson:"_id"`
	PropertyID string        `bson:"property_id"`
	RatePlanID string        `bson:"rate_plan_id"`
	GuestID    string        `bson:"guest_id"`
	Range      rangeDocument `bson:"range"`
	Guests     int           `bson:"guests"`
	Total      string        `bson:"total_price"`
	Currency   string        `bson:"currency"`
	Status     string        `bson:"status"`
	CreatedAt  int64         `bson:"created_at"`
	UpdatedAt  int64         `bson:"updated_at"`
	Version    int64         `bson:"version"`
}

type rangeDocument struct {
	CheckIn  int64 `bson:"check_in"`
	CheckOut int64 `bson:"check_out"`
}

func newReservationDocument(r *domainreservations.Reservation) reservationDocument {
	return reservationDocument{
		ID:         string(r.ID),
		PropertyID: string(r.PropertyID),
		RatePlanID: r.RatePlanID,
		GuestID:    r.GuestID,
		Range:      newRangeDocument(r.Range),
		Guests:     r.Guests,
		Total:      r.TotalPrice.Amount.String(),
		Currency:   r.TotalPrice.Currency,
		Status:     string(r.Status),
		CreatedAt:  r.CreatedAt.UnixMilli(),
		UpdatedAt:  r.UpdatedAt.UnixMilli(),
		Version:    r.Version,
	}
}

func (d reservationDocument) toAggregate() (*domainreservations.Reservation, error) {
	amount, err := decimal.NewFromString(d.Total)
	if err != nil {
		return nil, err
	}
	total, err := money.New(amount, d.Currency)
	if err != nil {
		return nil, err
	}
	return &domainreservations.Reservation{
		ID:         domainreservations.ReservationID(d.ID),
		PropertyID: domainproperties.PropertyID(d.PropertyID),
		RatePlanID: d.RatePlanID,
		GuestID:    d.GuestID,
		Range:      d.Range.toRange(),
		Guests:     d.Guests,
		TotalPrice: total,
		Status:     domainreservations.Status(d.Status),
		CreatedAt:  timestampToTime(d.CreatedAt),
		UpdatedAt:  timestampToTime(d.UpdatedAt),
		Version:    d.Version,
	}, nil
}

type propertyDocument struct {
	ID        string `bson:"_id"`
	HostID    string `bson:"host_id"`
	Name      string `bson:"name"`
	Currency  string `bson:"currency"`
	Active    bool   `bson:"active"`
	CreatedAt int64  `bson:"created_at"`
	UpdatedAt int64  `bson:"updated_at"`
}

func newPropertyDocument(p *domainproperties.Property) propertyDocument {
	return propertyDocument{
		ID:        string(p.ID),
		HostID:    string(p.Host),
		Name:      p.Name,
		Currency:  p.Currency,
		Active:    p.Active,
		CreatedAt: p.CreatedAt.UnixMilli(),
		UpdatedAt: p.UpdatedAt.UnixMilli(),
	}
}

func (d propertyDocument) toAggregate() *domainproperties.Property {
	return &domainproperties.Property{
		ID:        domainproperties.PropertyID(d.ID),
		Host:      domainproperties.HostID(d.HostID),
		Name:      d.Name,
		Currency:  d.Currency,
		Active:    d.Active,
		CreatedAt: timestampToTime(d.CreatedAt),
		UpdatedAt: timestampToTime(d.UpdatedAt),
	}
}

type calendarDocument struct {
	ID      string          `bson:"_id"`
	Blocks  []blockDocument `bson:"blocks"`
	Version int64           `bson:"version"`
}

type blockDocument struct {
	Range     rangeDocument `bson:"range"`
	Reason    string        `bson:"reason"`
	Reference string        `bson:"reference,omitempty"`
	CreatedAt int64         `bson:"created_at"`
}

func newCalendarDocument(c *domainavailability.Calendar) calendarDocument {
	return calendarDocument{
		ID: string(c.PropertyID),
		Blocks: lo.Map(c.Blocks, func(b domainavailability.Block, _ int) blockDocument {
			return blockDocument{Range: newRangeDocument(b.Range), Reason: string(b.Reason), Reference: b.Reference, CreatedAt: b.CreatedAt.UnixMilli()}
		}),
		Version: c.Version,
	}
}

func (d calendarDocument) toAggregate() *domainavailability.Calendar {
	return &domainavailability.Calendar{
		PropertyID: domainproperties.PropertyID(d.ID),
		Blocks: lo.Map(d.Blocks, func(b blockDocument, _ int) domainavailability.Block {
			return domainavailability.Block{
				Range:     b.Range.toRange(),
				Reason:    domainavailability.BlockReason(b.Reason),
				Reference: b.Reference,
				CreatedAt: timestampToTime(b.CreatedAt),
			}
		}),
		Version: d.Version,
	}
}

func newRangeDocument(r daterange.DateRange) rangeDocument {
	return rangeDocument{CheckIn: r.CheckIn.UnixMilli(), CheckOut: r.CheckOut.UnixMilli()}
}

func (d rangeDocument) toRange() daterange.DateRange {
	return daterange.DateRange{CheckIn: timestampToTime(d.CheckIn), CheckOut: timestampToTime(d.CheckOut)}
}

func timestampToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func millisPtr(t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	return lo.ToPtr(t.UnixMilli())
}

func timePtr(ms *int64) *time.Time {
	if ms == nil {
		return nil
	}
	return lo.ToPtr(timestampToTime(*ms))
}
