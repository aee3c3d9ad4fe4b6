package messaging

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rateplans/internal/app/commands"
	"rateplans/internal/app/handlers/availability"
	"rateplans/internal/infra/storage/memory"
)

type recordingBus struct {
	got []commands.Command
	err error
}

func (b *recordingBus) Dispatch(ctx context.Context, cmd commands.Command) (any, error) {
	b.got = append(b.got, cmd)
	if b.err != nil {
		return nil, b.err
	}
	return true, nil
}

const blockedEvent = `{
	"specversion": "1.0",
	"id": "evt-1",
	"type": "calendar.blocked.v1",
	"time": "2026-05-01T10:00:00Z",
	"data": {"property_id": "villa-1", "check_in": "2026-06-01", "check_out": "2026-06-04", "reason": "BOOKING", "reference": "res-1"}
}`

func TestCalendarEventDispatchesBlock(t *testing.T) {
	bus := &recordingBus{}
	h := &CalendarEventHandler{Bus: bus, Inbox: memory.NewInbox(time.Hour)}

	require.NoError(t, h.HandlePayload(context.Background(), []byte(blockedEvent)))

	require.Len(t, bus.got, 1)
	cmd, ok := bus.got[0].(availability.ApplyCalendarEventCommand)
	require.True(t, ok)
	assert.Equal(t, availability.EventBlocked, cmd.Name)
	assert.Equal(t, "villa-1", cmd.PropertyID)
	assert.Equal(t, "res-1", cmd.Reference)
	assert.Equal(t, time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC), cmd.CheckIn)
	assert.Equal(t, time.Date(2026, 6, 4, 0, 0, 0, 0, time.UTC), cmd.CheckOut)
}

func TestCalendarEventDeduplicates(t *testing.T) {
	bus := &recordingBus{}
	h := &CalendarEventHandler{Bus: bus, Inbox: memory.NewInbox(time.Hour)}

	require.NoError(t, h.HandlePayload(context.Background(), []byte(blockedEvent)))
	require.NoError(t, h.HandlePayload(context.Background(), []byte(blockedEvent)))
	assert.Len(t, bus.got, 1)
}

func TestCalendarEventFailureAllowsRedelivery(t *testing.T) {
	bus := &recordingBus{err: errors.New("store down")}
	h := &CalendarEventHandler{Bus: bus, Inbox: memory.NewInbox(time.Hour)}

	assert.Error(t, h.HandlePayload(context.Background(), []byte(blockedEvent)))
	bus.err = nil
	require.NoError(t, h.HandlePayload(context.Background(), []byte(blockedEvent)))
	assert.Len(t, bus.got, 2)
}

func TestCalendarEventDropsUnknownAndMalformed(t *testing.T) {
	bus := &recordingBus{}
	h := &CalendarEventHandler{Bus: bus}

	payloads := []string{
		`not json`,
		`{"id":"evt-2","type":"listing.created.v1","data":{}}`,
		`{"id":"evt-3","type":"calendar.blocked.v1","data":{"property_id":"villa-1","reference":"r","check_in":"soon"}}`,
		`{"id":"evt-4","type":"calendar.released.v1","data":{"property_id":"villa-1"}}`,
	}
	for _, p := range payloads {
		assert.NoError(t, h.HandlePayload(context.Background(), []byte(p)))
	}
	assert.Empty(t, bus.got)
}

func TestCalendarEventReleaseNeedsNoDates(t *testing.T) {
	bus := &recordingBus{}
	h := &CalendarEventHandler{Bus: bus}
	payload := `{"id":"evt-5","type":"calendar.released.v1","data":{"property_id":"villa-1","reference":"res-1"}}`

	require.NoError(t, h.HandlePayload(context.Background(), []byte(payload)))
	require.Len(t, bus.got, 1)
	assert.Equal(t, availability.EventReleased, bus.got[0].(availability.ApplyCalendarEventCommand).Name)
}
