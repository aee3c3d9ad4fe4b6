package policies

import (
	"context"
	"time"

	domainproperties "rateplans/internal/domain/properties"
	"rateplans/internal/domain/shared/daterange"
)

// AvailabilityPort answers which nights of a range a property cannot be booked.
type AvailabilityPort interface {
	UnavailableDates(ctx context.Context, propertyID domainproperties.PropertyID, r daterange.DateRange) ([]time.Time, error)
}
