package availability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rateplans/internal/domain/shared/daterange"
)

func day(d int) time.Time {
	return time.Date(2031, 3, d, 0, 0, 0, 0, time.UTC)
}

func nights(t *testing.T, from, to int) daterange.DateRange {
	t.Helper()
	r, err := daterange.New(day(from), day(to))
	require.NoError(t, err)
	return r
}

func keys(dates []time.Time) []string {
	out := make([]string, 0, len(dates))
	for _, d := range dates {
		out = append(out, daterange.Key(d))
	}
	return out
}

func TestOverlappingBlocksSurviveRelease(t *testing.T) {
	cal := NewCalendar("villa-1")
	now := day(1)

	require.NoError(t, cal.Block(nights(t, 1, 5), ReasonBooking, "booking-a", now))
	require.NoError(t, cal.Block(nights(t, 3, 7), ReasonMaintenance, "maint-b", now))
	require.Len(t, cal.Blocks, 2)

	assert.Equal(t,
		[]string{"2031-03-01", "2031-03-02", "2031-03-03", "2031-03-04", "2031-03-05", "2031-03-06"},
		keys(cal.UnavailableDates(nights(t, 1, 8))),
		"overlapping nights are reported once")

	require.NoError(t, cal.Release("booking-a", now))
	assert.Equal(t,
		[]string{"2031-03-03", "2031-03-04", "2031-03-05", "2031-03-06"},
		keys(cal.UnavailableDates(nights(t, 3, 7))))
}

func TestBlockIgnoresKnownReference(t *testing.T) {
	cal := NewCalendar("villa-1")
	require.NoError(t, cal.Block(nights(t, 1, 3), ReasonBooking, "res-1", day(1)))
	require.NoError(t, cal.Block(nights(t, 10, 12), ReasonBooking, "res-1", day(1)))

	require.Len(t, cal.Blocks, 1)
	assert.Len(t, cal.DrainEvents(), 1)
	assert.Empty(t, cal.UnavailableDates(nights(t, 10, 12)))
}

func TestBlockDefaultsReasonAndRejectsEmptyRange(t *testing.T) {
	cal := NewCalendar("villa-1")
	require.NoError(t, cal.Block(nights(t, 1, 2), "", "hold-1", day(1)))
	assert.Equal(t, ReasonHostBlock, cal.Blocks[0].Reason)

	empty := daterange.DateRange{CheckIn: day(4), CheckOut: day(4)}
	assert.ErrorIs(t, cal.Block(empty, ReasonBooking, "res-2", day(1)), ErrEmptyRange)
}

func TestReleaseUnknownReference(t *testing.T) {
	cal := NewCalendar("villa-1")
	assert.ErrorIs(t, cal.Release("missing", day(1)), ErrRangeNotFound)
}
