package rateplans

import "time"

type RatePlanCreated struct {
	RatePlanID     string
	PropertyID     string
	Name           string
	AdjustmentType AdjustmentType
	BaseRatePlanID string
	At             time.Time
}

func (e RatePlanCreated) EventName() string     { return "rateplan.created" }
func (e RatePlanCreated) AggregateID() string   { return e.RatePlanID }
func (e RatePlanCreated) OccurredAt() time.Time { return e.At }

type RatePlanUpdated struct {
	RatePlanID     string
	PropertyID     string
	Name           string
	AdjustmentType AdjustmentType
	IsActive       bool
	At             time.Time
}

func (e RatePlanUpdated) EventName() string     { return "rateplan.updated" }
func (e RatePlanUpdated) AggregateID() string   { return e.RatePlanID }
func (e RatePlanUpdated) OccurredAt() time.Time { return e.At }

type RatePlanDeactivated struct {
	RatePlanID       string
	PropertyID       string
	ReservationCount int
	At               time.Time
}

func (e RatePlanDeactivated) EventName() string     { return "rateplan.deactivated" }
func (e RatePlanDeactivated) AggregateID() string   { return e.RatePlanID }
func (e RatePlanDeactivated) OccurredAt() time.Time { return e.At }

type RatePlanDeleted struct {
	RatePlanID string
	PropertyID string
	At         time.Time
}

func (e RatePlanDeleted) EventName() string     { return "rateplan.deleted" }
func (e RatePlanDeleted) AggregateID() string   { return e.RatePlanID }
func (e RatePlanDeleted) OccurredAt() time.Time { return e.At }

type RatePlanOverridesChanged struct {
	RatePlanID string
	PropertyID string
	Dates      []string
	Cleared    bool
	At         time.Time
}

func (e RatePlanOverridesChanged) EventName() string     { return "rateplan.overrides_changed" }
func (e RatePlanOverridesChanged) AggregateID() string   { return e.RatePlanID }
func (e RatePlanOverridesChanged) OccurredAt() time.Time { return e.At }
