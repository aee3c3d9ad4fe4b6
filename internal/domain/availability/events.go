package availability

import (
	"time"

	"rateplans/internal/domain/shared/daterange"
)

type CalendarBlocked struct {
	PropertyID string
	Range      daterange.DateRange
	Reason     BlockReason
	At         time.Time
}

func (e CalendarBlocked) EventName() string     { return "calendar.blocked" }
func (e CalendarBlocked) AggregateID() string   { return e.PropertyID }
func (e CalendarBlocked) OccurredAt() time.Time { return e.At }

type CalendarReleased struct {
	PropertyID string
	Range      daterange.DateRange
	Reason     BlockReason
	At         time.Time
}

func (e CalendarReleased) EventName() string     { return "calendar.released" }
func (e CalendarReleased) AggregateID() string   { return e.PropertyID }
func (e CalendarReleased) OccurredAt() time.Time { return e.At }
