package availability

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"rateplans/internal/app/commands"
	handlersupport "rateplans/internal/app/handlers/support"
	"rateplans/internal/app/uow"
	domainavailability "rateplans/internal/domain/availability"
	domainproperties "rateplans/internal/domain/properties"
	"rateplans/internal/domain/shared/daterange"
)

const applyCalendarEventKey = "availability.apply_event"

const (
	EventBlocked  = "calendar.blocked"
	EventReleased = "calendar.released"
)

var ErrUnknownCalendarEvent = errors.New("availability: unknown calendar event")

// ApplyCalendarEventCommand mirrors an upstream calendar change into the local
// availability projection.
type ApplyCalendarEventCommand struct {
	EventID    string `validate:"required"`
	Name       string `validate:"required"`
	PropertyID string `validate:"required"`
	CheckIn    time.Time
	CheckOut   time.Time
	Reason     string
	Reference  string `validate:"required"`
	OccurredAt time.Time
}

func (c ApplyCalendarEventCommand) Key() string     { return applyCalendarEventKey }
func (c ApplyCalendarEventCommand) LockKey() string { return "property:" + c.PropertyID }

type ApplyCalendarEventHandler struct {
	Logger     *slog.Logger
	UoWFactory uow.UoWFactory
}

// Handle reports whether the calendar changed. Replays and releases of unknown
// references are no-ops.
func (h *ApplyCalendarEventHandler) Handle(ctx context.Context, cmd ApplyCalendarEventCommand) (bool, error) {
	mu, err := handlersupport.BeginWriteUnit(ctx, h.UoWFactory)
	if err != nil {
		return false, err
	}
	defer mu.Close()
	unit, execCtx := mu.Unit, mu.Ctx

	calendar, err := unit.Availability().Calendar(execCtx, domainproperties.PropertyID(cmd.PropertyID))
	if err != nil {
		return false, err
	}
	before := len(calendar.Blocks)
	at := cmd.OccurredAt
	if at.IsZero() {
		at = time.Now()
	}

	switch cmd.Name {
	case EventBlocked:
		r, err := daterange.New(cmd.CheckIn, cmd.CheckOut)
		if err != nil {
			return false, err
		}
		if err := calendar.Block(r, domainavailability.BlockReason(cmd.Reason), cmd.Reference, at); err != nil {
			return false, err
		}
	case EventReleased:
		if err := calendar.Release(cmd.Reference, at); err != nil && !errors.Is(err, domainavailability.ErrRangeNotFound) {
			return false, err
		}
	default:
		return false, ErrUnknownCalendarEvent
	}

	if len(calendar.Blocks) == before {
		return false, nil
	}
	// the upstream service already published these facts
	calendar.ClearEvents()
	if err := unit.Availability().Save(execCtx, calendar); err != nil {
		return false, err
	}
	if err := mu.Commit(); err != nil {
		return false, err
	}
	if h.Logger != nil {
		h.Logger.Info("calendar event applied", "event_id", cmd.EventID, "name", cmd.Name, "property_id", cmd.PropertyID)
	}
	return true, nil
}

var _ commands.Handler[ApplyCalendarEventCommand, bool] = (*ApplyCalendarEventHandler)(nil)
