package rateplans

import (
	"fmt"
	"strings"
	"time"

	"rateplans/internal/domain/shared/daterange"
)

type RestrictionType string

const (
	MinLengthOfStay        RestrictionType = "MinLengthOfStay"
	MaxLengthOfStay        RestrictionType = "MaxLengthOfStay"
	MinGuests              RestrictionType = "MinGuests"
	MaxGuests              RestrictionType = "MaxGuests"
	MinAdvancedReservation RestrictionType = "MinAdvancedReservation"
	MaxAdvancedReservation RestrictionType = "MaxAdvancedReservation"
	NoArrivals             RestrictionType = "NoArrivals"
	NoDepartures           RestrictionType = "NoDepartures"
	SeasonalDateRange      RestrictionType = "SeasonalDateRange"
)

func (t RestrictionType) Valid() bool {
	return t.Numeric() || t.DateRange()
}

func (t RestrictionType) Numeric() bool {
	switch t {
	case MinLengthOfStay, MaxLengthOfStay, MinGuests, MaxGuests, MinAdvancedReservation, MaxAdvancedReservation:
		return true
	}
	return false
}

func (t RestrictionType) DateRange() bool {
	switch t {
	case NoArrivals, NoDepartures, SeasonalDateRange:
		return true
	}
	return false
}

// ParseRestrictionType accepts the canonical names case-insensitively.
func ParseRestrictionType(raw string) (RestrictionType, bool) {
	candidate := strings.TrimSpace(raw)
	for _, t := range []RestrictionType{
		MinLengthOfStay, MaxLengthOfStay, MinGuests, MaxGuests,
		MinAdvancedReservation, MaxAdvancedReservation,
		NoArrivals, NoDepartures, SeasonalDateRange,
	} {
		if strings.EqualFold(candidate, string(t)) {
			return t, true
		}
	}
	return "", false
}

// Restriction is one AND-combined condition on a rate plan. Numeric types use Value,
// date-range types use the inclusive [StartDate, EndDate] window.
type Restriction struct {
	Type      RestrictionType
	Value     *int
	StartDate *time.Time
	EndDate   *time.Time
}

// HasWindow reports whether both bounds of the date window are set.
func (r Restriction) HasWindow() bool {
	return r.StartDate != nil && r.EndDate != nil
}

// Covers reports whether the calendar date of t lies in the window. A window with a
// missing bound covers nothing.
func (r Restriction) Covers(t time.Time) bool {
	if !r.HasWindow() {
		return false
	}
	return daterange.WithinInclusive(t, *r.StartDate, *r.EndDate)
}

func (r Restriction) validate() error {
	if !r.Type.Valid() {
		return ErrRestrictionType
	}
	if r.Type.Numeric() && r.Value != nil && *r.Value < 0 {
		return ErrRestrictionValue
	}
	if r.HasWindow() && daterange.Day(*r.StartDate).After(daterange.Day(*r.EndDate)) {
		return ErrRestrictionWindow
	}
	return nil
}

func (r Restriction) normalized() Restriction {
	out := Restriction{Type: r.Type}
	if r.Value != nil {
		v := *r.Value
		out.Value = &v
	}
	if r.StartDate != nil {
		d := daterange.Day(*r.StartDate)
		out.StartDate = &d
	}
	if r.EndDate != nil {
		d := daterange.Day(*r.EndDate)
		out.EndDate = &d
	}
	return out
}

func (r Restriction) String() string {
	switch {
	case r.Type.Numeric() && r.Value != nil:
		return fmt.Sprintf("%s=%d", r.Type, *r.Value)
	case r.HasWindow():
		return fmt.Sprintf("%s[%s..%s]", r.Type, daterange.Key(*r.StartDate), daterange.Key(*r.EndDate))
	default:
		return string(r.Type)
	}
}

func cloneRestrictions(in []Restriction) []Restriction {
	if len(in) == 0 {
		return nil
	}
	out := make([]Restriction, 0, len(in))
	for _, r := range in {
		out = append(out, r.normalized())
	}
	return out
}
