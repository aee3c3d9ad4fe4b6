package memory

import (
	"sync"

	domainavailability "rateplans/internal/domain/availability"
	domainproperties "rateplans/internal/domain/properties"
	domainrateplans "rateplans/internal/domain/rateplans"
	domainreservations "rateplans/internal/domain/reservations"
)

// state is an immutable generation of the store. Commits publish a new state
// instead of mutating the current one, so units keep the view they began with.
type state struct {
	plans        map[domainrateplans.RatePlanID]*domainrateplans.RatePlan
	reservations map[domainreservations.ReservationID]*domainreservations.Reservation
	properties   map[domainproperties.PropertyID]*domainproperties.Property
	calendars    map[domainproperties.PropertyID]*domainavailability.Calendar
}

func emptyState() *state {
	return &state{
		plans:        make(map[domainrateplans.RatePlanID]*domainrateplans.RatePlan),
		reservations: make(map[domainreservations.ReservationID]*domainreservations.Reservation),
		properties:   make(map[domainproperties.PropertyID]*domainproperties.Property),
		calendars:    make(map[domainproperties.PropertyID]*domainavailability.Calendar),
	}
}

// Store keeps every aggregate in process memory. It backs local runs and tests.
type Store struct {
	mu      sync.RWMutex
	current *state
}

func NewStore() *Store {
	return &Store{current: emptyState()}
}

func (s *Store) snapshot() *state {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// SeedProperty stores property outside any unit of work. Used by fixtures.
func (s *Store) SeedProperty(property *domainproperties.Property) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := *s.current
	next.properties = cloneMap(s.current.properties)
	cp := *property
	next.properties[property.ID] = &cp
	s.current = &next
}

func (s *Store) SeedReservation(reservation *domainreservations.Reservation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := *s.current
	next.reservations = cloneMap(s.current.reservations)
	cp := *reservation
	next.reservations[reservation.ID] = &cp
	s.current = &next
}

func (s *Store) SeedRatePlan(plan *domainrateplans.RatePlan) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := *s.current
	next.plans = cloneMap(s.current.plans)
	next.plans[plan.ID] = plan.Clone()
	s.current = &next
}

func (s *Store) SeedCalendar(calendar *domainavailability.Calendar) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := *s.current
	next.calendars = cloneMap(s.current.calendars)
	next.calendars[calendar.PropertyID] = calendar.Clone()
	s.current = &next
}

func cloneMap[K comparable, V any](in map[K]V) map[K]V {
	out := make(map[K]V, len(in)+1)
	for k, v := range in {
		out[k] = v
	}
	return out
}
