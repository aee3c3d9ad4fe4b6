package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"rateplans/internal/app/dto"
	handlersupport "rateplans/internal/app/handlers/support"
	"rateplans/internal/app/middleware"
	"rateplans/internal/app/policies"
	"rateplans/internal/app/queries"
	"rateplans/internal/app/uow"
	domainpricing "rateplans/internal/domain/pricing"
	domainproperties "rateplans/internal/domain/properties"
	domainrateplans "rateplans/internal/domain/rateplans"
	"rateplans/internal/domain/shared/daterange"
)

const searchRatesKey = "rates.search"

// DefaultMaxGuests is used when the handler is not configured with a limit.
const DefaultMaxGuests = 20

const (
	OutcomeFound       = "found"
	OutcomeEmpty       = "empty"
	OutcomeUnavailable = "unavailable"
)

type SearchRatesQuery struct {
	PropertyID  string    `validate:"required"`
	CheckIn     time.Time `validate:"required"`
	CheckOut    time.Time `validate:"required"`
	Guests      int       `validate:"min=1"`
	BookingDate *time.Time
}

func (q SearchRatesQuery) Key() string { return searchRatesKey }

// SearchRatesHandler answers which rate plans a guest can book for a stay and
// what each costs. Plans that cannot be priced are logged and left out.
type SearchRatesHandler struct {
	Logger       *slog.Logger
	UoWFactory   uow.UoWFactory
	Availability policies.AvailabilityPort
	Observer     policies.PricingObserver
	Engine       domainpricing.Engine
	MaxGuests    int
	Clock        func() time.Time
}

func (h *SearchRatesHandler) Handle(ctx context.Context, q SearchRatesQuery) (dto.RateSearch, error) {
	started := time.Now()
	now := handlersupport.Now(h.Clock)
	stay, err := h.validate(q, now)
	if err != nil {
		return dto.RateSearch{}, err
	}
	observer := policies.ObserverOrNop(h.Observer)

	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.RateSearch{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}

	propertyID := domainproperties.PropertyID(strings.TrimSpace(q.PropertyID))
	property, err := unit.Properties().ByID(execCtx, propertyID)
	if err != nil {
		return dto.RateSearch{}, err
	}
	if !property.Active {
		return dto.RateSearch{}, domainproperties.ErrPropertyNotFound
	}

	if h.Availability != nil {
		blocked, err := h.Availability.UnavailableDates(execCtx, propertyID, stay.Range)
		if err != nil {
			return dto.RateSearch{}, err
		}
		if len(blocked) > 0 {
			observer.SearchCompleted(OutcomeUnavailable, 0, 0, time.Since(started))
			if h.Logger != nil {
				h.Logger.Debug("stay overlaps unavailable dates", "property_id", propertyID, "first", daterange.Key(blocked[0]), "count", len(blocked))
			}
			return dto.EmptyRateSearch(q.PropertyID, stay.Range, q.Guests), nil
		}
	}

	plans, err := unit.RatePlans().ListByProperty(execCtx, propertyID, domainrateplans.ListFilter{OverridesWithin: &stay.Range})
	if err != nil {
		return dto.RateSearch{}, err
	}
	snapshot := domainpricing.NewSnapshot(propertyID, property.Currency, plans)
	result := h.Engine.Search(snapshot, stay)

	for _, failure := range result.Skipped {
		if h.Logger != nil {
			h.Logger.Warn("rate plan skipped", "property_id", propertyID, "rate_plan_id", failure.RatePlanID, "error", failure.Err)
		}
	}
	outcome := OutcomeFound
	if len(result.Quotes) == 0 {
		outcome = OutcomeEmpty
	}
	observer.SearchCompleted(outcome, len(result.Quotes), len(result.Skipped), time.Since(started))
	if h.Logger != nil {
		h.Logger.Debug("rates searched", "property_id", propertyID, "candidates", result.Considered, "quotes", len(result.Quotes), "skipped", len(result.Skipped))
	}
	return dto.MapRateSearch(q.PropertyID, stay.Range, q.Guests, result.Quotes), nil
}

func (h *SearchRatesHandler) validate(q SearchRatesQuery, now time.Time) (domainpricing.StayRequest, error) {
	fields := map[string]string{}
	if strings.TrimSpace(q.PropertyID) == "" {
		fields["property_id"] = "is required"
	}
	stayRange, err := daterange.New(q.CheckIn, q.CheckOut)
	if err != nil {
		fields["check_out"] = "must be after check_in"
	} else if stayRange.CheckIn.Before(daterange.Day(now)) {
		fields["check_in"] = "must not be in the past"
	}
	maxGuests := h.MaxGuests
	if maxGuests <= 0 {
		maxGuests = DefaultMaxGuests
	}
	if q.Guests < 1 || q.Guests > maxGuests {
		fields["guests"] = fmt.Sprintf("must be between 1 and %d", maxGuests)
	}
	if len(fields) > 0 {
		return domainpricing.StayRequest{}, &middleware.InputError{Fields: fields}
	}

	booking := now
	if q.BookingDate != nil && !q.BookingDate.IsZero() {
		booking = q.BookingDate.UTC()
	}
	return domainpricing.StayRequest{Range: stayRange, Guests: q.Guests, BookingDate: booking}, nil
}

var _ queries.Handler[SearchRatesQuery, dto.RateSearch] = (*SearchRatesHandler)(nil)
