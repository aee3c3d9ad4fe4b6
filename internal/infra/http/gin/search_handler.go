package ginserver

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	gin "github.com/gin-gonic/gin"

	"rateplans/internal/app/dto"
	availabilityapp "rateplans/internal/app/handlers/availability"
	refundsapp "rateplans/internal/app/handlers/refunds"
	searchapp "rateplans/internal/app/handlers/search"
	"rateplans/internal/app/middleware"
	"rateplans/internal/app/queries"
	"rateplans/internal/domain/shared/daterange"
)

type SearchHandler struct {
	Queries queries.Bus
	Logger  *slog.Logger
}

// Rates serves GET /properties/:propertyId/rates?checkIn&checkOut&guests[&bookingDate].
func (h SearchHandler) Rates(c *gin.Context) {
	fields := map[string]string{}
	checkIn := requiredDate(c.Query("checkIn"), "check_in", fields)
	checkOut := requiredDate(c.Query("checkOut"), "check_out", fields)
	guests := requiredCount(c.Query("guests"), "guests", fields)
	booking, err := optionalDate(c.Query("bookingDate"))
	if err != nil {
		fields["booking_date"] = "must be a YYYY-MM-DD date or RFC 3339 timestamp"
	}
	if len(fields) > 0 {
		handleError(c, h.Logger, &middleware.InputError{Fields: fields})
		return
	}

	query := searchapp.SearchRatesQuery{
		PropertyID:  c.Param("propertyId"),
		CheckIn:     checkIn,
		CheckOut:    checkOut,
		Guests:      guests,
		BookingDate: booking,
	}
	result, err := queries.Ask[searchapp.SearchRatesQuery, dto.RateSearch](c.Request.Context(), h.Queries, query)
	if err != nil {
		handleError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type RefundHandler struct {
	Queries queries.Bus
	Logger  *slog.Logger
}

func (h RefundHandler) Calculate(c *gin.Context) {
	cancelledAt, err := optionalDate(c.Query("cancellationDate"))
	if err != nil {
		respondBadRequest(c, "cancellation_date", "must be a YYYY-MM-DD date or RFC 3339 timestamp")
		return
	}
	query := refundsapp.CalculateRefundQuery{ReservationID: c.Param("reservationId"), CancellationDate: cancelledAt}
	result, err := queries.Ask[refundsapp.CalculateRefundQuery, dto.Refund](c.Request.Context(), h.Queries, query)
	if err != nil {
		handleError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type AvailabilityHandler struct {
	Queries queries.Bus
	Logger  *slog.Logger
}

func (h AvailabilityHandler) UnavailableDates(c *gin.Context) {
	fields := map[string]string{}
	from := requiredDate(c.Query("from"), "from", fields)
	to := requiredDate(c.Query("to"), "to", fields)
	if len(fields) > 0 {
		handleError(c, h.Logger, &middleware.InputError{Fields: fields})
		return
	}
	query := availabilityapp.UnavailableDatesQuery{PropertyID: c.Param("propertyId"), From: from, To: to}
	result, err := queries.Ask[availabilityapp.UnavailableDatesQuery, dto.UnavailableDates](c.Request.Context(), h.Queries, query)
	if err != nil {
		handleError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// parseDate accepts a calendar date or an RFC 3339 timestamp.
func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := daterange.ParseKey(raw); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// requiredDate records a field problem in fields when raw is missing or malformed.
func requiredDate(raw, field string, fields map[string]string) time.Time {
	if strings.TrimSpace(raw) == "" {
		fields[field] = "is required"
		return time.Time{}
	}
	t, err := parseDate(raw)
	if err != nil {
		fields[field] = "must be a YYYY-MM-DD date"
		return time.Time{}
	}
	return t
}

func requiredCount(raw, field string, fields map[string]string) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		fields[field] = "is required"
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		fields[field] = "must be a whole number"
		return 0
	}
	return n
}

func optionalDate(raw string) (*time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	t, err := parseDate(raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

var (
	_ SearchHTTP       = SearchHandler{}
	_ RefundHTTP       = RefundHandler{}
	_ AvailabilityHTTP = AvailabilityHandler{}
)
