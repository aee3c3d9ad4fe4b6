package search_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rateplans/internal/app/handlers/availability"
	"rateplans/internal/app/handlers/search"
	"rateplans/internal/app/middleware"
	domainproperties "rateplans/internal/domain/properties"
	domainrateplans "rateplans/internal/domain/rateplans"
	"rateplans/internal/infra/storage/memory"
)

var today = time.Date(2031, 3, 10, 12, 0, 0, 0, time.UTC)

func onDay(d int) time.Time {
	return time.Date(2031, 3, d, 0, 0, 0, 0, time.UTC)
}

func newSearchHandler() *search.SearchRatesHandler {
	store := memory.NewStore()
	store.SeedProperty(&domainproperties.Property{ID: "villa-1", Host: "host-1", Name: "Villa", Currency: "AED", Active: true})
	store.SeedRatePlan(&domainrateplans.RatePlan{
		ID:              "standard",
		PropertyID:      "villa-1",
		Name:            "Standard",
		Currency:        "AED",
		AdjustmentType:  domainrateplans.FixedPrice,
		AdjustmentValue: decimal.NewFromInt(1000),
		Priority:        10,
		ActiveDays:      domainrateplans.AllWeekdays(),
		IsActive:        true,
	})
	factory := memory.Factory{Store: store}
	return &search.SearchRatesHandler{
		UoWFactory:   factory,
		Availability: availability.CalendarAvailability{UoWFactory: factory},
		MaxGuests:    20,
		Clock:        func() time.Time { return today },
	}
}

func TestSearchRatesRejectsInvalidStays(t *testing.T) {
	cases := []struct {
		name  string
		query search.SearchRatesQuery
		field string
	}{
		{
			name:  "check-in before today",
			query: search.SearchRatesQuery{PropertyID: "villa-1", CheckIn: onDay(9), CheckOut: onDay(12), Guests: 2},
			field: "check_in",
		},
		{
			name:  "check-in equals check-out",
			query: search.SearchRatesQuery{PropertyID: "villa-1", CheckIn: onDay(12), CheckOut: onDay(12), Guests: 2},
			field: "check_out",
		},
		{
			name:  "check-out before check-in",
			query: search.SearchRatesQuery{PropertyID: "villa-1", CheckIn: onDay(14), CheckOut: onDay(12), Guests: 2},
			field: "check_out",
		},
		{
			name:  "no guests",
			query: search.SearchRatesQuery{PropertyID: "villa-1", CheckIn: onDay(11), CheckOut: onDay(12), Guests: 0},
			field: "guests",
		},
		{
			name:  "more guests than allowed",
			query: search.SearchRatesQuery{PropertyID: "villa-1", CheckIn: onDay(11), CheckOut: onDay(12), Guests: 21},
			field: "guests",
		},
		{
			name:  "missing property",
			query: search.SearchRatesQuery{PropertyID: " ", CheckIn: onDay(11), CheckOut: onDay(12), Guests: 2},
			field: "property_id",
		},
	}

	h := newSearchHandler()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := h.Handle(context.Background(), tc.query)

			var inputErr *middleware.InputError
			require.ErrorAs(t, err, &inputErr)
			assert.Contains(t, inputErr.Fields, tc.field)
			assert.Len(t, inputErr.Fields, 1)
		})
	}
}

func TestSearchRatesAcceptsBoundaryStays(t *testing.T) {
	cases := []struct {
		name  string
		query search.SearchRatesQuery
	}{
		{
			name:  "check-in today",
			query: search.SearchRatesQuery{PropertyID: "villa-1", CheckIn: onDay(10), CheckOut: onDay(12), Guests: 1},
		},
		{
			name:  "guest limit",
			query: search.SearchRatesQuery{PropertyID: "villa-1", CheckIn: onDay(11), CheckOut: onDay(13), Guests: 20},
		},
	}

	h := newSearchHandler()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := h.Handle(context.Background(), tc.query)
			require.NoError(t, err)
			assert.Equal(t, 2, result.Nights)
			assert.Len(t, result.Results, 1)
		})
	}
}

func TestSearchRatesUnknownProperty(t *testing.T) {
	h := newSearchHandler()
	_, err := h.Handle(context.Background(), search.SearchRatesQuery{PropertyID: "villa-9", CheckIn: onDay(11), CheckOut: onDay(12), Guests: 2})
	assert.ErrorIs(t, err, domainproperties.ErrPropertyNotFound)
}
