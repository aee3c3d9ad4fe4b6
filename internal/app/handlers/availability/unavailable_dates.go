package availability

import (
	"context"
	"fmt"
	"time"

	"rateplans/internal/app/dto"
	handlersupport "rateplans/internal/app/handlers/support"
	"rateplans/internal/app/middleware"
	"rateplans/internal/app/policies"
	"rateplans/internal/app/queries"
	"rateplans/internal/app/uow"
	domainproperties "rateplans/internal/domain/properties"
	"rateplans/internal/domain/shared/daterange"
)

const unavailableDatesKey = "availability.unavailable_dates"

// MaxWindowNights bounds a single unavailable-dates lookup.
const MaxWindowNights = 366

type UnavailableDatesQuery struct {
	PropertyID string    `validate:"required"`
	From       time.Time `validate:"required"`
	To         time.Time `validate:"required"`
}

func (q UnavailableDatesQuery) Key() string { return unavailableDatesKey }

type UnavailableDatesHandler struct {
	Availability policies.AvailabilityPort
}

func (h *UnavailableDatesHandler) Handle(ctx context.Context, q UnavailableDatesQuery) (dto.UnavailableDates, error) {
	window, err := daterange.New(q.From, q.To)
	if err != nil {
		return dto.UnavailableDates{}, middleware.NewInputError("to", "must be after from")
	}
	if window.Nights() > MaxWindowNights {
		return dto.UnavailableDates{}, middleware.NewInputError("to", fmt.Sprintf("window must not exceed %d nights", MaxWindowNights))
	}
	dates, err := h.Availability.UnavailableDates(ctx, domainproperties.PropertyID(q.PropertyID), window)
	if err != nil {
		return dto.UnavailableDates{}, err
	}
	return dto.MapUnavailableDates(q.PropertyID, window, dates), nil
}

// CalendarAvailability serves policies.AvailabilityPort from the availability
// calendar inside the caller's unit of work, or a fresh read-only one.
type CalendarAvailability struct {
	UoWFactory uow.UoWFactory
}

func (a CalendarAvailability) UnavailableDates(ctx context.Context, propertyID domainproperties.PropertyID, r daterange.DateRange) ([]time.Time, error) {
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, a.UoWFactory)
	if err != nil {
		return nil, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	calendar, err := unit.Availability().Calendar(execCtx, propertyID)
	if err != nil {
		return nil, err
	}
	return calendar.UnavailableDates(r), nil
}

var (
	_ queries.Handler[UnavailableDatesQuery, dto.UnavailableDates] = (*UnavailableDatesHandler)(nil)
	_ policies.AvailabilityPort                                    = CalendarAvailability{}
)
