package memory

import (
	"context"
	"sort"

	domainavailability "rateplans/internal/domain/availability"
	domainproperties "rateplans/internal/domain/properties"
	domainrateplans "rateplans/internal/domain/rateplans"
	domainreservations "rateplans/internal/domain/reservations"
)

type ratePlanRepository struct {
	unit *Unit
}

func (r ratePlanRepository) ByID(ctx context.Context, id domainrateplans.RatePlanID) (*domainrateplans.RatePlan, error) {
	u := r.unit
	u.mu.Lock()
	defer u.mu.Unlock()
	if w, ok := u.plans[id]; ok {
		if w.deleted {
			return nil, domainrateplans.ErrRatePlanNotFound
		}
		return w.value.Clone(), nil
	}
	plan, ok := u.base.plans[id]
	if !ok {
		return nil, domainrateplans.ErrRatePlanNotFound
	}
	return plan.Clone(), nil
}

func (r ratePlanRepository) ListByProperty(ctx context.Context, propertyID domainproperties.PropertyID, filter domainrateplans.ListFilter) ([]*domainrateplans.RatePlan, error) {
	out := r.collect(func(p *domainrateplans.RatePlan) bool {
		if p.PropertyID != propertyID {
			return false
		}
		return !filter.OnlyActive || p.IsActive
	})
	if filter.OverridesWithin != nil {
		for _, plan := range out {
			plan.TrimOverrides(*filter.OverridesWithin)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r ratePlanRepository) ListDerived(ctx context.Context, baseID domainrateplans.RatePlanID) ([]*domainrateplans.RatePlan, error) {
	out := r.collect(func(p *domainrateplans.RatePlan) bool {
		return p.BaseRatePlanID == baseID
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// collect returns clones of every visible plan matching keep, staged writes
// taking precedence over the base generation.
func (r ratePlanRepository) collect(keep func(*domainrateplans.RatePlan) bool) []*domainrateplans.RatePlan {
	u := r.unit
	u.mu.Lock()
	defer u.mu.Unlock()
	var out []*domainrateplans.RatePlan
	for id, plan := range u.base.plans {
		if _, overridden := u.plans[id]; overridden {
			continue
		}
		if keep(plan) {
			out = append(out, plan.Clone())
		}
	}
	for _, w := range u.plans {
		if !w.deleted && keep(w.value) {
			out = append(out, w.value.Clone())
		}
	}
	return out
}

// Save stages plan and bumps its version. The version check happens at commit.
func (r ratePlanRepository) Save(ctx context.Context, plan *domainrateplans.RatePlan) error {
	u := r.unit
	u.mu.Lock()
	defer u.mu.Unlock()
	if err := u.writable(); err != nil {
		return err
	}
	expected := plan.Version
	if prev, ok := u.plans[plan.ID]; ok {
		expected = prev.expected
	}
	plan.Version++
	u.plans[plan.ID] = staged[*domainrateplans.RatePlan]{value: plan.Clone(), expected: expected, checked: true}
	return nil
}

func (r ratePlanRepository) Delete(ctx context.Context, id domainrateplans.RatePlanID) error {
	u := r.unit
	u.mu.Lock()
	defer u.mu.Unlock()
	if err := u.writable(); err != nil {
		return err
	}
	_, pending := u.plans[id]
	_, stored := u.base.plans[id]
	if !pending && !stored {
		return domainrateplans.ErrRatePlanNotFound
	}
	u.plans[id] = deletedPlan()
	return nil
}

func deletedPlan() staged[*domainrateplans.RatePlan] {
	return staged[*domainrateplans.RatePlan]{deleted: true}
}

type reservationRepository struct {
	unit *Unit
}

func (r reservationRepository) ByID(ctx context.Context, id domainreservations.ReservationID) (*domainreservations.Reservation, error) {
	u := r.unit
	u.mu.Lock()
	defer u.mu.Unlock()
	res, ok := u.reservations[id]
	if ok {
		cp := *res.value
		return &cp, nil
	}
	stored, ok := u.base.reservations[id]
	if !ok {
		return nil, domainreservations.ErrReservationNotFound
	}
	cp := *stored
	return &cp, nil
}

func (r reservationRepository) Save(ctx context.Context, reservation *domainreservations.Reservation) error {
	u := r.unit
	u.mu.Lock()
	defer u.mu.Unlock()
	if err := u.writable(); err != nil {
		return err
	}
	expected := reservation.Version
	if prev, ok := u.reservations[reservation.ID]; ok {
		expected = prev.expected
	}
	reservation.Version++
	cp := *reservation
	u.reservations[reservation.ID] = staged[*domainreservations.Reservation]{value: &cp, expected: expected, checked: true}
	return nil
}

// CountByRatePlan counts reservations in every status.
func (r reservationRepository) CountByRatePlan(ctx context.Context, ratePlanID string) (int, error) {
	u := r.unit
	u.mu.Lock()
	defer u.mu.Unlock()
	count := 0
	for id, res := range u.base.reservations {
		if _, overridden := u.reservations[id]; overridden {
			continue
		}
		if res.RatePlanID == ratePlanID {
			count++
		}
	}
	for _, w := range u.reservations {
		if w.value.RatePlanID == ratePlanID {
			count++
		}
	}
	return count, nil
}

type propertyRepository struct {
	unit *Unit
}

func (r propertyRepository) ByID(ctx context.Context, id domainproperties.PropertyID) (*domainproperties.Property, error) {
	u := r.unit
	u.mu.Lock()
	defer u.mu.Unlock()
	if w, ok := u.properties[id]; ok {
		cp := *w.value
		return &cp, nil
	}
	stored, ok := u.base.properties[id]
	if !ok {
		return nil, domainproperties.ErrPropertyNotFound
	}
	cp := *stored
	return &cp, nil
}

func (r propertyRepository) Save(ctx context.Context, property *domainproperties.Property) error {
	u := r.unit
	u.mu.Lock()
	defer u.mu.Unlock()
	if err := u.writable(); err != nil {
		return err
	}
	cp := *property
	u.properties[property.ID] = staged[*domainproperties.Property]{value: &cp}
	return nil
}

type calendarRepository struct {
	unit *Unit
}

// Calendar returns an empty calendar for properties nothing was ever blocked on.
func (r calendarRepository) Calendar(ctx context.Context, id domainproperties.PropertyID) (*domainavailability.Calendar, error) {
	u := r.unit
	u.mu.Lock()
	defer u.mu.Unlock()
	if w, ok := u.calendars[id]; ok {
		return w.value.Clone(), nil
	}
	if cal, ok := u.base.calendars[id]; ok {
		return cal.Clone(), nil
	}
	return domainavailability.NewCalendar(id), nil
}

func (r calendarRepository) Save(ctx context.Context, calendar *domainavailability.Calendar) error {
	u := r.unit
	u.mu.Lock()
	defer u.mu.Unlock()
	if err := u.writable(); err != nil {
		return err
	}
	expected := calendar.Version
	if prev, ok := u.calendars[calendar.PropertyID]; ok {
		expected = prev.expected
	}
	calendar.Version++
	u.calendars[calendar.PropertyID] = staged[*domainavailability.Calendar]{value: calendar.Clone(), expected: expected, checked: true}
	return nil
}
