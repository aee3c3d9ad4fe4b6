package memory

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rateplans/internal/app/middleware"
	appoutbox "rateplans/internal/app/outbox"
	"rateplans/internal/app/uow"
	domainproperties "rateplans/internal/domain/properties"
	domainrateplans "rateplans/internal/domain/rateplans"
	domainreservations "rateplans/internal/domain/reservations"
	"rateplans/internal/domain/shared/daterange"
)

const villa = domainproperties.PropertyID("villa-1")

func seededPlan(id string, priority int) *domainrateplans.RatePlan {
	return &domainrateplans.RatePlan{
		ID:              domainrateplans.RatePlanID(id),
		PropertyID:      villa,
		Name:            id,
		Currency:        "AED",
		AdjustmentType:  domainrateplans.FixedPrice,
		AdjustmentValue: decimal.NewFromInt(1000),
		Priority:        priority,
		ActiveDays:      domainrateplans.AllWeekdays(),
		IsActive:        true,
		Overrides: map[string]decimal.Decimal{
			"2026-06-01": decimal.NewFromInt(1500),
			"2026-07-01": decimal.NewFromInt(1800),
		},
	}
}

func begin(t *testing.T, f Factory, readOnly bool) uow.UnitOfWork {
	t.Helper()
	unit, err := f.Begin(context.Background(), uow.TxOptions{ReadOnly: readOnly})
	require.NoError(t, err)
	return unit
}

func TestUnitCommitPublishesStagedWrites(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	f := Factory{Store: store}

	reader := begin(t, f, true)
	writer := begin(t, f, false)

	plan := seededPlan("std", 10)
	require.NoError(t, writer.RatePlans().Save(ctx, plan))
	assert.Equal(t, int64(1), plan.Version)

	_, err := reader.RatePlans().ByID(ctx, "std")
	assert.ErrorIs(t, err, domainrateplans.ErrRatePlanNotFound, "uncommitted writes stay invisible")

	staged, err := writer.RatePlans().ByID(ctx, "std")
	require.NoError(t, err)
	assert.Equal(t, "std", staged.Name)

	require.NoError(t, writer.Commit(ctx))

	_, err = reader.RatePlans().ByID(ctx, "std")
	assert.ErrorIs(t, err, domainrateplans.ErrRatePlanNotFound, "read units keep the generation they began with")

	fresh := begin(t, f, true)
	got, err := fresh.RatePlans().ByID(ctx, "std")
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Version)
}

func TestRollbackDiscardsWrites(t *testing.T) {
	ctx := context.Background()
	f := Factory{Store: NewStore()}

	unit := begin(t, f, false)
	require.NoError(t, unit.RatePlans().Save(ctx, seededPlan("std", 10)))
	require.NoError(t, unit.Rollback(ctx))
	assert.ErrorIs(t, unit.Commit(ctx), ErrUnitClosed)

	_, err := begin(t, f, true).RatePlans().ByID(ctx, "std")
	assert.ErrorIs(t, err, domainrateplans.ErrRatePlanNotFound)
}

func TestReadOnlyUnitRejectsWrites(t *testing.T) {
	unit := begin(t, Factory{Store: NewStore()}, true)
	err := unit.RatePlans().Save(context.Background(), seededPlan("std", 10))
	assert.ErrorIs(t, err, ErrReadOnlyUnit)
}

func TestConcurrentUpdateDetected(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	store.SeedRatePlan(seededPlan("std", 10))
	f := Factory{Store: store}

	first := begin(t, f, false)
	second := begin(t, f, false)

	a, err := first.RatePlans().ByID(ctx, "std")
	require.NoError(t, err)
	b, err := second.RatePlans().ByID(ctx, "std")
	require.NoError(t, err)

	a.Name = "first"
	b.Name = "second"
	require.NoError(t, first.RatePlans().Save(ctx, a))
	require.NoError(t, second.RatePlans().Save(ctx, b))

	require.NoError(t, first.Commit(ctx))
	assert.ErrorIs(t, second.Commit(ctx), domainrateplans.ErrConcurrentUpdate)

	got, err := begin(t, f, true).RatePlans().ByID(ctx, "std")
	require.NoError(t, err)
	assert.Equal(t, "first", got.Name)
}

func TestSavingTwiceInOneUnitKeepsOriginalVersionCheck(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	store.SeedRatePlan(seededPlan("std", 10))
	unit := begin(t, Factory{Store: store}, false)

	plan, err := unit.RatePlans().ByID(ctx, "std")
	require.NoError(t, err)
	require.NoError(t, unit.RatePlans().Save(ctx, plan))
	require.NoError(t, unit.RatePlans().Save(ctx, plan))
	require.NoError(t, unit.Commit(ctx))
	assert.Equal(t, int64(2), plan.Version)
}

func TestListByPropertyFiltersAndTrimsOverrides(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	store.SeedRatePlan(seededPlan("b", 20))
	store.SeedRatePlan(seededPlan("a", 20))
	off := seededPlan("off", 5)
	off.IsActive = false
	store.SeedRatePlan(off)
	other := seededPlan("elsewhere", 1)
	other.PropertyID = "villa-2"
	store.SeedRatePlan(other)

	unit := begin(t, Factory{Store: store}, true)
	all, err := unit.RatePlans().ListByProperty(ctx, villa, domainrateplans.ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, []domainrateplans.RatePlanID{"off", "a", "b"}, planIDs(all))

	june, err := daterange.New(time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 6, 3, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	active, err := unit.RatePlans().ListByProperty(ctx, villa, domainrateplans.ListFilter{OnlyActive: true, OverridesWithin: &june})
	require.NoError(t, err)
	require.Equal(t, []domainrateplans.RatePlanID{"a", "b"}, planIDs(active))
	assert.Len(t, active[0].Overrides, 1)

	stored, err := unit.RatePlans().ByID(ctx, "a")
	require.NoError(t, err)
	assert.Len(t, stored.Overrides, 2, "trimming works on copies")
}

func TestDeleteAndListDerived(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	store.SeedRatePlan(seededPlan("base", 10))
	child := seededPlan("child", 20)
	child.AdjustmentType = domainrateplans.Percentage
	child.BaseRatePlanID = "base"
	store.SeedRatePlan(child)
	f := Factory{Store: store}

	unit := begin(t, f, false)
	derived, err := unit.RatePlans().ListDerived(ctx, "base")
	require.NoError(t, err)
	assert.Equal(t, []domainrateplans.RatePlanID{"child"}, planIDs(derived))

	require.NoError(t, unit.RatePlans().Delete(ctx, "child"))
	assert.ErrorIs(t, unit.RatePlans().Delete(ctx, "missing"), domainrateplans.ErrRatePlanNotFound)
	derived, err = unit.RatePlans().ListDerived(ctx, "base")
	require.NoError(t, err)
	assert.Empty(t, derived)
	require.NoError(t, unit.Commit(ctx))

	_, err = begin(t, f, true).RatePlans().ByID(ctx, "child")
	assert.ErrorIs(t, err, domainrateplans.ErrRatePlanNotFound)
}

func TestCountByRatePlanIncludesEveryStatus(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	for i, status := range []domainreservations.Status{
		domainreservations.StatusConfirmed,
		domainreservations.StatusCancelled,
		domainreservations.StatusCheckedOut,
	} {
		store.SeedReservation(&domainreservations.Reservation{
			ID:         domainreservations.ReservationID(string(rune('a' + i))),
			PropertyID: villa,
			RatePlanID: "std",
			Status:     status,
		})
	}
	store.SeedReservation(&domainreservations.Reservation{ID: "z", PropertyID: villa, RatePlanID: "other"})

	count, err := begin(t, Factory{Store: store}, true).Reservations().CountByRatePlan(ctx, "std")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestCalendarDefaultsToEmpty(t *testing.T) {
	cal, err := begin(t, Factory{Store: NewStore()}, true).Availability().Calendar(context.Background(), villa)
	require.NoError(t, err)
	assert.Equal(t, villa, cal.PropertyID)
	assert.Empty(t, cal.Blocks)
}

func TestOutboxHoldsRecordsUntilCommit(t *testing.T) {
	ctx := context.Background()
	box := NewOutbox()
	f := Factory{Store: NewStore(), Outbox: box}

	unit := begin(t, f, false)
	execCtx := uow.Bind(ctx, unit)
	require.NoError(t, box.Add(execCtx, appoutbox.EventRecord{ID: "evt-1", Name: "rateplan.created"}))
	assert.Empty(t, box.Pending())

	require.NoError(t, unit.Commit(execCtx))
	require.Len(t, box.Pending(), 1)

	rolledBack := begin(t, f, false)
	require.NoError(t, box.Add(uow.Bind(ctx, rolledBack), appoutbox.EventRecord{ID: "evt-2"}))
	require.NoError(t, rolledBack.Rollback(ctx))
	assert.Len(t, box.Pending(), 1)
}

func TestOutboxClaimLifecycle(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	box := NewOutbox()
	box.now = func() time.Time { return now }
	require.NoError(t, box.Add(ctx, appoutbox.EventRecord{ID: "evt-1"}))

	claimed, err := box.Claim(ctx, "w1")
	require.NoError(t, err)
	require.NotNil(t, claimed)
	assert.Equal(t, "evt-1", claimed.Record.ID)

	again, err := box.Claim(ctx, "w2")
	require.NoError(t, err)
	assert.Nil(t, again, "claimed records are not handed out twice")

	require.NoError(t, box.MarkFailed(ctx, "evt-1", now.Add(time.Minute), "broker down"))
	none, err := box.Claim(ctx, "w1")
	require.NoError(t, err)
	assert.Nil(t, none)

	now = now.Add(2 * time.Minute)
	retry, err := box.Claim(ctx, "w1")
	require.NoError(t, err)
	require.NotNil(t, retry)
	assert.Equal(t, 1, retry.Attempts)

	require.NoError(t, box.MarkSent(ctx, "evt-1"))
	assert.Empty(t, box.Pending())
}

func TestIdempotencyStore(t *testing.T) {
	ctx := context.Background()
	store := NewIdempotencyStore(time.Hour)

	_, ok, err := store.Get(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Save(ctx, middleware.IdempotencyRecord{Key: "k1", Payload: []byte(`{"id":"x"}`)}))
	rec, ok, err := store.Get(ctx, "k1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"id":"x"}`, string(rec.Payload))
}

func TestObjectStore(t *testing.T) {
	store := NewObjectStore()
	url, err := store.Put(context.Background(), "exports/a.csv", "text/csv", []byte("a,b"))
	require.NoError(t, err)
	assert.Equal(t, "memory://exports/a.csv", url)
	obj, ok := store.Object("exports/a.csv")
	require.True(t, ok)
	assert.Equal(t, "text/csv", obj.ContentType)
}

func planIDs(plans []*domainrateplans.RatePlan) []domainrateplans.RatePlanID {
	out := make([]domainrateplans.RatePlanID, 0, len(plans))
	for _, p := range plans {
		out = append(out, p.ID)
	}
	return out
}
