package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"rateplans/internal/app/uow"
	domainavailability "rateplans/internal/domain/availability"
	domainproperties "rateplans/internal/domain/properties"
	domainrateplans "rateplans/internal/domain/rateplans"
	domainreservations "rateplans/internal/domain/reservations"
	"rateplans/internal/domain/shared/daterange"
	"rateplans/internal/domain/shared/money"
)

type fixtureFile struct {
	Properties   []propertyFixture    `json:"properties"`
	RatePlans    []ratePlanFixture    `json:"rate_plans"`
	Reservations []reservationFixture `json:"reservations"`
	Blocks       []blockFixture       `json:"blocks"`
}

type propertyFixture struct {
	ID       string `json:"id"`
	HostID   string `json:"host_id"`
	Name     string `json:"name"`
	Currency string `json:"currency"`
	Active   *bool  `json:"active"`
}

type restrictionFixture struct {
	Type      string `json:"type"`
	Value     *int   `json:"value"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

type tierFixture struct {
	DaysBeforeCheckIn int             `json:"days_before_check_in"`
	RefundPercentage  decimal.Decimal `json:"refund_percentage"`
	Description       string          `json:"description"`
}

type policyFixture struct {
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Tiers       []tierFixture `json:"tiers"`
}

type ratePlanFixture struct {
	ID                   string                     `json:"id"`
	PropertyID           string                     `json:"property_id"`
	Name                 string                     `json:"name"`
	Description          string                     `json:"description"`
	AdjustmentType       string                     `json:"adjustment_type"`
	AdjustmentValue      decimal.Decimal            `json:"adjustment_value"`
	BaseRatePlanID       string                     `json:"base_rate_plan_id"`
	Priority             int                        `json:"priority"`
	AllowConcurrentRates bool                       `json:"allow_concurrent_rates"`
	ActiveDays           []int                      `json:"active_days"`
	IncludesBreakfast    bool                       `json:"includes_breakfast"`
	IsActive             *bool                      `json:"is_active"`
	Restrictions         []restrictionFixture       `json:"restrictions"`
	CancellationPolicy   *policyFixture             `json:"cancellation_policy"`
	Overrides            map[string]decimal.Decimal `json:"overrides"`
}

type reservationFixture struct {
	ID         string          `json:"id"`
	PropertyID string          `json:"property_id"`
	RatePlanID string          `json:"rate_plan_id"`
	GuestID    string          `json:"guest_id"`
	CheckIn    string          `json:"check_in"`
	CheckOut   string          `json:"check_out"`
	Guests     int             `json:"guests"`
	TotalPrice decimal.Decimal `json:"total_price"`
	Currency   string          `json:"currency"`
	Status     string          `json:"status"`
}

type blockFixture struct {
	PropertyID string `json:"property_id"`
	CheckIn    string `json:"check_in"`
	CheckOut   string `json:"check_out"`
	Reason     string `json:"reason"`
	Reference  string `json:"reference"`
}

// loadFixtures seeds storage through a regular write unit so both drivers are
// covered. Records that already exist are left untouched.
func loadFixtures(ctx context.Context, factory uow.UoWFactory, path, defaultCurrency string, logger *slog.Logger) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Info("fixtures file not found, skipping", "path", path)
			return nil
		}
		return fmt.Errorf("read fixtures: %w", err)
	}
	if len(data) == 0 {
		logger.Warn("fixtures file empty", "path", path)
		return nil
	}
	var fx fixtureFile
	if err := json.Unmarshal(data, &fx); err != nil {
		return fmt.Errorf("decode fixtures: %w", err)
	}

	unit, err := factory.Begin(ctx, uow.TxOptions{})
	if err != nil {
		return err
	}
	execCtx := uow.Bind(ctx, unit)
	committed := false
	defer func() {
		if !committed {
			_ = unit.Rollback(execCtx)
		}
	}()

	now := time.Now().UTC()
	currencies := map[string]string{}
	for _, p := range fx.Properties {
		property, err := domainproperties.NewProperty(domainproperties.CreateParams{
			ID:       domainproperties.PropertyID(p.ID),
			Host:     domainproperties.HostID(p.HostID),
			Name:     p.Name,
			Currency: lo.Ternary(p.Currency == "", defaultCurrency, p.Currency),
			Active:   p.Active == nil || *p.Active,
			Now:      now,
		})
		if err != nil {
			return fmt.Errorf("property %s: %w", p.ID, err)
		}
		currencies[p.ID] = property.Currency
		if _, err := unit.Properties().ByID(execCtx, property.ID); err == nil {
			continue
		}
		if err := unit.Properties().Save(execCtx, property); err != nil {
			return fmt.Errorf("property %s: %w", p.ID, err)
		}
	}

	plans := make([]*domainrateplans.RatePlan, 0, len(fx.RatePlans))
	for _, rp := range fx.RatePlans {
		plan, err := rp.toAggregate(lo.ValueOr(currencies, rp.PropertyID, defaultCurrency), now)
		if err != nil {
			return fmt.Errorf("rate plan %s: %w", rp.ID, err)
		}
		plans = append(plans, plan)
	}
	lookup := domainrateplans.IndexPlans(plans)
	for _, plan := range plans {
		if err := domainrateplans.ValidateLineage(plan, lookup); err != nil {
			return fmt.Errorf("rate plan %s: %w", plan.ID, err)
		}
		if _, err := unit.RatePlans().ByID(execCtx, plan.ID); err == nil {
			continue
		}
		plan.ClearEvents()
		if err := unit.RatePlans().Save(execCtx, plan); err != nil {
			return fmt.Errorf("rate plan %s: %w", plan.ID, err)
		}
	}

	for _, r := range fx.Reservations {
		reservation, err := r.toAggregate(lo.ValueOr(currencies, r.PropertyID, defaultCurrency), now)
		if err != nil {
			return fmt.Errorf("reservation %s: %w", r.ID, err)
		}
		if _, err := unit.Reservations().ByID(execCtx, reservation.ID); err == nil {
			continue
		}
		if err := unit.Reservations().Save(execCtx, reservation); err != nil {
			return fmt.Errorf("reservation %s: %w", r.ID, err)
		}
	}

	calendars := map[string]*domainavailability.Calendar{}
	for _, b := range fx.Blocks {
		calendar, ok := calendars[b.PropertyID]
		if !ok {
			calendar, err = unit.Availability().Calendar(execCtx, domainproperties.PropertyID(b.PropertyID))
			if err != nil {
				return err
			}
			calendars[b.PropertyID] = calendar
		}
		stay, err := parseFixtureRange(b.CheckIn, b.CheckOut)
		if err != nil {
			return fmt.Errorf("block %s: %w", b.Reference, err)
		}
		if err := calendar.Block(stay, domainavailability.BlockReason(strings.ToUpper(b.Reason)), b.Reference, now); err != nil {
			return fmt.Errorf("block %s: %w", b.Reference, err)
		}
	}
	for _, calendar := range calendars {
		calendar.ClearEvents()
		if err := unit.Availability().Save(execCtx, calendar); err != nil {
			return err
		}
	}

	if err := unit.Commit(execCtx); err != nil {
		return err
	}
	committed = true
	logger.Info("fixtures loaded", "path", path, "properties", len(fx.Properties), "rate_plans", len(plans), "reservations", len(fx.Reservations), "blocks", len(fx.Blocks))
	return nil
}

func (f ratePlanFixture) toAggregate(currency string, now time.Time) (*domainrateplans.RatePlan, error) {
	adjustment, ok := domainrateplans.ParseAdjustmentType(f.AdjustmentType)
	if !ok {
		adjustment = domainrateplans.AdjustmentType(f.AdjustmentType)
	}
	restrictions := make([]domainrateplans.Restriction, 0, len(f.Restrictions))
	for _, r := range f.Restrictions {
		kind, ok := domainrateplans.ParseRestrictionType(r.Type)
		if !ok {
			kind = domainrateplans.RestrictionType(r.Type)
		}
		start, err := fixtureDay(r.StartDate)
		if err != nil {
			return nil, err
		}
		end, err := fixtureDay(r.EndDate)
		if err != nil {
			return nil, err
		}
		restrictions = append(restrictions, domainrateplans.Restriction{Type: kind, Value: r.Value, StartDate: start, EndDate: end})
	}
	attrs := domainrateplans.Attributes{
		Name:                 f.Name,
		Description:          f.Description,
		AdjustmentType:       adjustment,
		AdjustmentValue:      f.AdjustmentValue,
		BaseRatePlanID:       domainrateplans.RatePlanID(f.BaseRatePlanID),
		Priority:             f.Priority,
		AllowConcurrentRates: f.AllowConcurrentRates,
		ActiveDays:           f.ActiveDays,
		IncludesBreakfast:    f.IncludesBreakfast,
		IsActive:             f.IsActive,
		Restrictions:         restrictions,
	}
	if f.CancellationPolicy != nil {
		attrs.CancellationPolicy = &domainrateplans.CancellationPolicy{
			Name:        f.CancellationPolicy.Name,
			Description: f.CancellationPolicy.Description,
			Tiers: lo.Map(f.CancellationPolicy.Tiers, func(t tierFixture, _ int) domainrateplans.Tier {
				return domainrateplans.Tier{DaysBeforeCheckIn: t.DaysBeforeCheckIn, RefundPercentage: t.RefundPercentage, Description: t.Description}
			}),
		}
	}
	plan, err := domainrateplans.NewRatePlan(domainrateplans.CreateParams{
		ID:         domainrateplans.RatePlanID(f.ID),
		PropertyID: domainproperties.PropertyID(f.PropertyID),
		Currency:   currency,
		Attributes: attrs,
		Now:        now,
	})
	if err != nil {
		return nil, err
	}
	if len(f.Overrides) > 0 {
		prices := make(map[time.Time]decimal.Decimal, len(f.Overrides))
		for key, amount := range f.Overrides {
			day, err := daterange.ParseKey(key)
			if err != nil {
				return nil, fmt.Errorf("override %q: %w", key, err)
			}
			prices[day] = amount
		}
		if err := plan.SetOverrides(prices, now); err != nil {
			return nil, err
		}
	}
	return plan, nil
}

func (f reservationFixture) toAggregate(currency string, now time.Time) (*domainreservations.Reservation, error) {
	stay, err := parseFixtureRange(f.CheckIn, f.CheckOut)
	if err != nil {
		return nil, err
	}
	total, err := money.New(f.TotalPrice, lo.Ternary(f.Currency == "", currency, f.Currency))
	if err != nil {
		return nil, err
	}
	return domainreservations.NewReservation(domainreservations.CreateParams{
		ID:         domainreservations.ReservationID(f.ID),
		PropertyID: domainproperties.PropertyID(f.PropertyID),
		RatePlanID: f.RatePlanID,
		GuestID:    f.GuestID,
		Range:      stay,
		Guests:     f.Guests,
		TotalPrice: total,
		Status:     domainreservations.Status(strings.ToUpper(f.Status)),
		CreatedAt:  now,
	})
}

func parseFixtureRange(checkIn, checkOut string) (daterange.DateRange, error) {
	in, err := daterange.ParseKey(checkIn)
	if err != nil {
		return daterange.DateRange{}, err
	}
	out, err := daterange.ParseKey(checkOut)
	if err != nil {
		return daterange.DateRange{}, err
	}
	return daterange.New(in, out)
}

func fixtureDay(raw string) (*time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	day, err := daterange.ParseKey(raw)
	if err != nil {
		return nil, err
	}
	return &day, nil
}

func defaultFixturesPath() string {
	candidates := []string{
		filepath.Join("data", "fixtures.json"),
		filepath.Join("..", "..", "data", "fixtures.json"),
	}
	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return candidates[0]
}
