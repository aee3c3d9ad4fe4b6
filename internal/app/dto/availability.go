package dto

import (
	"time"

	"github.com/samber/lo"

	"rateplans/internal/domain/shared/daterange"
)

type UnavailableDates struct {
	PropertyID string   `json:"property_id"`
	From       string   `json:"from"`
	To         string   `json:"to"`
	Dates      []string `json:"dates"`
}

func MapUnavailableDates(propertyID string, r daterange.DateRange, dates []time.Time) UnavailableDates {
	return UnavailableDates{
		PropertyID: propertyID,
		From:       daterange.Key(r.CheckIn),
		To:         daterange.Key(r.CheckOut),
		Dates:      lo.Map(dates, func(d time.Time, _ int) string { return daterange.Key(d) }),
	}
}

// CalendarExport points at an uploaded CSV of nightly prices.
type CalendarExport struct {
	PropertyID string `json:"property_id"`
	From       string `json:"from"`
	To         string `json:"to"`
	Key        string `json:"key"`
	URL        string `json:"url"`
	Rows       int    `json:"rows"`
	Skipped    int    `json:"skipped"`
}
