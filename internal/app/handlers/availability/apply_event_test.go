package availability_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rateplans/internal/app/handlers/availability"
	"rateplans/internal/domain/shared/daterange"
	"rateplans/internal/infra/storage/memory"
)

func date(d int) time.Time {
	return time.Date(2031, 5, d, 0, 0, 0, 0, time.UTC)
}

func blocked(id, reference string, from, to int) availability.ApplyCalendarEventCommand {
	return availability.ApplyCalendarEventCommand{
		EventID:    id,
		Name:       availability.EventBlocked,
		PropertyID: "villa-1",
		CheckIn:    date(from),
		CheckOut:   date(to),
		Reason:     "BOOKING",
		Reference:  reference,
		OccurredAt: date(1),
	}
}

func released(id, reference string) availability.ApplyCalendarEventCommand {
	return availability.ApplyCalendarEventCommand{
		EventID:    id,
		Name:       availability.EventReleased,
		PropertyID: "villa-1",
		Reference:  reference,
		OccurredAt: date(1),
	}
}

func TestApplyCalendarEventKeepsOverlappingBlocks(t *testing.T) {
	ctx := context.Background()
	factory := memory.Factory{Store: memory.NewStore()}
	h := &availability.ApplyCalendarEventHandler{UoWFactory: factory}
	lookup := availability.CalendarAvailability{UoWFactory: factory}

	changed, err := h.Handle(ctx, blocked("evt-1", "booking-a", 1, 5))
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = h.Handle(ctx, blocked("evt-2", "maint-b", 3, 7))
	require.NoError(t, err)
	assert.True(t, changed, "an overlapping block is stored under its own reference")

	changed, err = h.Handle(ctx, released("evt-3", "booking-a"))
	require.NoError(t, err)
	assert.True(t, changed)

	window, err := daterange.New(date(1), date(8))
	require.NoError(t, err)
	dates, err := lookup.UnavailableDates(ctx, "villa-1", window)
	require.NoError(t, err)
	require.Len(t, dates, 4)
	assert.Equal(t, date(3), dates[0])
	assert.Equal(t, date(6), dates[3])
}

func TestApplyCalendarEventReplaysAreNoOps(t *testing.T) {
	ctx := context.Background()
	h := &availability.ApplyCalendarEventHandler{UoWFactory: memory.Factory{Store: memory.NewStore()}}

	_, err := h.Handle(ctx, blocked("evt-1", "booking-a", 1, 5))
	require.NoError(t, err)

	changed, err := h.Handle(ctx, blocked("evt-1", "booking-a", 1, 5))
	require.NoError(t, err)
	assert.False(t, changed)

	changed, err = h.Handle(ctx, released("evt-9", "never-blocked"))
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestApplyCalendarEventRejectsUnknownName(t *testing.T) {
	h := &availability.ApplyCalendarEventHandler{UoWFactory: memory.Factory{Store: memory.NewStore()}}
	cmd := released("evt-1", "booking-a")
	cmd.Name = "calendar.moved"

	_, err := h.Handle(context.Background(), cmd)
	assert.ErrorIs(t, err, availability.ErrUnknownCalendarEvent)
}
