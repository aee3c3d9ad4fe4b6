package memory

import (
	"context"
	"errors"
	"sync"

	appoutbox "rateplans/internal/app/outbox"
	"rateplans/internal/app/uow"
	domainavailability "rateplans/internal/domain/availability"
	domainproperties "rateplans/internal/domain/properties"
	domainrateplans "rateplans/internal/domain/rateplans"
	domainreservations "rateplans/internal/domain/reservations"
)

var (
	ErrFactoryMisconfigured = errors.New("memory: unit of work factory misconfigured")
	ErrReadOnlyUnit         = errors.New("memory: write in read-only unit")
	ErrUnitClosed           = errors.New("memory: unit already finished")
	// ErrConcurrentUpdate is returned for aggregates other than rate plans whose
	// stored version moved since the unit read them.
	ErrConcurrentUpdate = errors.New("memory: concurrent update detected")
)

// Factory opens units over a Store. Outbox is optional; when set, records added
// inside a unit are queued only once the unit commits.
type Factory struct {
	Store  *Store
	Outbox *Outbox
}

func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.Store == nil {
		return nil, ErrFactoryMisconfigured
	}
	return &Unit{
		store:        f.Store,
		outbox:       f.Outbox,
		base:         f.Store.snapshot(),
		readOnly:     opts.ReadOnly,
		plans:        make(map[domainrateplans.RatePlanID]staged[*domainrateplans.RatePlan]),
		reservations: make(map[domainreservations.ReservationID]staged[*domainreservations.Reservation]),
		properties:   make(map[domainproperties.PropertyID]staged[*domainproperties.Property]),
		calendars:    make(map[domainproperties.PropertyID]staged[*domainavailability.Calendar]),
	}, nil
}

// staged is a pending write. expected is the version the aggregate had when
// the unit first wrote it; checked is false for unversioned aggregates.
type staged[V any] struct {
	value    V
	deleted  bool
	expected int64
	checked  bool
}

// Unit reads from the store generation that was current at Begin and stages
// writes until Commit.
type Unit struct {
	store    *Store
	outbox   *Outbox
	base     *state
	readOnly bool

	mu           sync.Mutex
	closed       bool
	plans        map[domainrateplans.RatePlanID]staged[*domainrateplans.RatePlan]
	reservations map[domainreservations.ReservationID]staged[*domainreservations.Reservation]
	properties   map[domainproperties.PropertyID]staged[*domainproperties.Property]
	calendars    map[domainproperties.PropertyID]staged[*domainavailability.Calendar]
	records      []appoutbox.EventRecord
}

func (u *Unit) RatePlans() domainrateplans.Repository {
	return ratePlanRepository{unit: u}
}

func (u *Unit) Reservations() domainreservations.Repository {
	return reservationRepository{unit: u}
}

func (u *Unit) Properties() domainproperties.Repository {
	return propertyRepository{unit: u}
}

func (u *Unit) Availability() domainavailability.Repository {
	return calendarRepository{unit: u}
}

func (u *Unit) writable() error {
	if u.readOnly {
		return ErrReadOnlyUnit
	}
	if u.closed {
		return ErrUnitClosed
	}
	return nil
}

func (u *Unit) stageRecord(rec appoutbox.EventRecord) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if err := u.writable(); err != nil {
		return err
	}
	u.records = append(u.records, rec)
	return nil
}

// Commit verifies that every versioned write still matches the stored version
// and publishes a new store generation holding all staged writes.
func (u *Unit) Commit(ctx context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.closed {
		return ErrUnitClosed
	}
	u.closed = true
	if u.readOnly {
		return nil
	}

	u.store.mu.Lock()
	cur := u.store.current
	if err := u.verify(cur); err != nil {
		u.store.mu.Unlock()
		return err
	}
	next := *cur
	if len(u.plans) > 0 {
		next.plans = cloneMap(cur.plans)
		apply(next.plans, u.plans)
	}
	if len(u.reservations) > 0 {
		next.reservations = cloneMap(cur.reservations)
		apply(next.reservations, u.reservations)
	}
	if len(u.properties) > 0 {
		next.properties = cloneMap(cur.properties)
		apply(next.properties, u.properties)
	}
	if len(u.calendars) > 0 {
		next.calendars = cloneMap(cur.calendars)
		apply(next.calendars, u.calendars)
	}
	u.store.current = &next
	u.store.mu.Unlock()

	if u.outbox != nil && len(u.records) > 0 {
		u.outbox.enqueue(u.records)
	}
	u.records = nil
	return nil
}

func (u *Unit) Rollback(ctx context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.closed = true
	u.records = nil
	return nil
}

func (u *Unit) verify(cur *state) error {
	for id, w := range u.plans {
		if !w.checked {
			continue
		}
		if existing := cur.plans[id]; versionOf(existing) != w.expected {
			return domainrateplans.ErrConcurrentUpdate
		}
	}
	for id, w := range u.reservations {
		if existing := cur.reservations[id]; w.checked && reservationVersion(existing) != w.expected {
			return ErrConcurrentUpdate
		}
	}
	for id, w := range u.calendars {
		if existing := cur.calendars[id]; w.checked && calendarVersion(existing) != w.expected {
			return ErrConcurrentUpdate
		}
	}
	return nil
}

func apply[K comparable, V any](dst map[K]V, writes map[K]staged[V]) {
	for id, w := range writes {
		if w.deleted {
			delete(dst, id)
			continue
		}
		dst[id] = w.value
	}
}

func versionOf(plan *domainrateplans.RatePlan) int64 {
	if plan == nil {
		return 0
	}
	return plan.Version
}

func reservationVersion(r *domainreservations.Reservation) int64 {
	if r == nil {
		return 0
	}
	return r.Version
}

func calendarVersion(c *domainavailability.Calendar) int64 {
	if c == nil {
		return 0
	}
	return c.Version
}

var _ uow.UoWFactory = Factory{}
var _ uow.UnitOfWork = (*Unit)(nil)
