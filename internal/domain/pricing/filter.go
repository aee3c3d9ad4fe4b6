package pricing

import (
	"time"

	"rateplans/internal/domain/rateplans"
	"rateplans/internal/domain/shared/daterange"
)

// StayRequest is what a guest searches for.
type StayRequest struct {
	Range       daterange.DateRange
	Guests      int
	BookingDate time.Time
}

// LengthOfStay is the number of nights, partial days rounded up.
func (r StayRequest) LengthOfStay() int {
	return daterange.DaysBetween(r.Range.CheckIn, r.Range.CheckOut)
}

// DaysInAdvance is how far ahead of check-in the booking happens, partial days rounded up.
func (r StayRequest) DaysInAdvance() int {
	return daterange.DaysBetween(r.BookingDate, r.Range.CheckIn)
}

// Filter keeps the plans whose active days and restrictions accept the request.
func Filter(plans []*rateplans.RatePlan, req StayRequest) []*rateplans.RatePlan {
	stay := req.LengthOfStay()
	advance := req.DaysInAdvance()
	out := make([]*rateplans.RatePlan, 0, len(plans))
	for _, plan := range plans {
		if applicable(plan, req, stay, advance) {
			out = append(out, plan)
		}
	}
	return out
}

// Applicable reports whether a single plan accepts the request.
func Applicable(plan *rateplans.RatePlan, req StayRequest) bool {
	return applicable(plan, req, req.LengthOfStay(), req.DaysInAdvance())
}

func applicable(plan *rateplans.RatePlan, req StayRequest, stay, advance int) bool {
	if !plan.ActiveOn(req.Range.CheckIn.Weekday()) {
		return false
	}
	for _, r := range plan.Restrictions {
		if !passes(r, req, stay, advance) {
			return false
		}
	}
	return true
}

func passes(r rateplans.Restriction, req StayRequest, stay, advance int) bool {
	switch r.Type {
	case rateplans.MinLengthOfStay:
		return r.Value == nil || stay >= *r.Value
	case rateplans.MaxLengthOfStay:
		return r.Value == nil || stay <= *r.Value
	case rateplans.MinGuests:
		return r.Value == nil || req.Guests >= *r.Value
	case rateplans.MaxGuests:
		return r.Value == nil || req.Guests <= *r.Value
	case rateplans.MinAdvancedReservation:
		return r.Value == nil || advance >= *r.Value
	case rateplans.MaxAdvancedReservation:
		return r.Value == nil || advance <= *r.Value
	case rateplans.NoArrivals:
		return !r.Covers(req.Range.CheckIn)
	case rateplans.NoDepartures:
		return !r.Covers(req.Range.CheckOut)
	case rateplans.SeasonalDateRange:
		// an incomplete window neither excludes nor requires anything
		return !r.HasWindow() || r.Covers(req.Range.CheckIn)
	}
	return true
}
