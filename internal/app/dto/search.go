package dto

import (
	"github.com/samber/lo"

	domainpricing "rateplans/internal/domain/pricing"
	"rateplans/internal/domain/shared/daterange"
	"rateplans/internal/domain/shared/money"
)

// NoRatesMessage accompanies an empty search result.
const NoRatesMessage = "No rates available"

type NightlyRate struct {
	Date       string `json:"date"`
	Amount     string `json:"amount"`
	Overridden bool   `json:"overridden,omitempty"`
}

type Savings struct {
	Amount     string `json:"amount"`
	Percentage string `json:"percentage"`
	ComparedTo string `json:"comparedTo"`
}

type RateSearchResult struct {
	RatePlan           RatePlanSummary     `json:"rate_plan"`
	Currency           string              `json:"currency"`
	TotalPrice         string              `json:"total_price"`
	NightlyRates       []NightlyRate       `json:"nightly_rates"`
	AverageNightlyRate string              `json:"average_nightly_rate"`
	CancellationPolicy *CancellationPolicy `json:"cancellation_policy,omitempty"`
	IncludesBreakfast  bool                `json:"includes_breakfast"`
	Savings            *Savings            `json:"savings,omitempty"`
}

type RateSearch struct {
	PropertyID string             `json:"property_id"`
	CheckIn    string             `json:"check_in"`
	CheckOut   string             `json:"check_out"`
	Nights     int                `json:"nights"`
	Guests     int                `json:"guests"`
	Results    []RateSearchResult `json:"results"`
	Message    string             `json:"message,omitempty"`
}

// EmptyRateSearch is the successful answer when nothing can be offered.
func EmptyRateSearch(propertyID string, r daterange.DateRange, guests int) RateSearch {
	return RateSearch{
		PropertyID: propertyID,
		CheckIn:    daterange.Key(r.CheckIn),
		CheckOut:   daterange.Key(r.CheckOut),
		Nights:     r.Nights(),
		Guests:     guests,
		Results:    []RateSearchResult{},
		Message:    NoRatesMessage,
	}
}

func MapRateSearch(propertyID string, r daterange.DateRange, guests int, quotes []domainpricing.Quote) RateSearch {
	if len(quotes) == 0 {
		return EmptyRateSearch(propertyID, r, guests)
	}
	out := EmptyRateSearch(propertyID, r, guests)
	out.Message = ""
	out.Results = lo.Map(quotes, func(q domainpricing.Quote, _ int) RateSearchResult { return MapQuote(q) })
	return out
}

func MapQuote(q domainpricing.Quote) RateSearchResult {
	out := RateSearchResult{
		RatePlan:           MapRatePlanSummary(q.Plan),
		Currency:           q.Stay.Total.Currency,
		TotalPrice:         q.Stay.Total.Display(),
		AverageNightlyRate: q.Stay.Average.Display(),
		CancellationPolicy: MapCancellationPolicy(q.Plan.CancellationPolicy),
		IncludesBreakfast:  q.Plan.IncludesBreakfast,
		NightlyRates: lo.Map(q.Stay.Nights, func(n domainpricing.NightlyRate, _ int) NightlyRate {
			return NightlyRate{
				Date:       daterange.Key(n.Date),
				Amount:     n.Amount.StringFixed(money.DisplayPlaces),
				Overridden: n.Overridden,
			}
		}),
	}
	if q.Savings != nil {
		out.Savings = &Savings{
			Amount:     q.Savings.Amount.Display(),
			Percentage: q.Savings.Percentage.StringFixed(money.DisplayPlaces),
			ComparedTo: q.Savings.ComparedTo,
		}
	}
	return out
}
