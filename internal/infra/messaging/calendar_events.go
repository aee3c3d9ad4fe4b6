package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/IBM/sarama"

	"rateplans/internal/app/commands"
	"rateplans/internal/app/handlers/availability"
	"rateplans/internal/domain/shared/daterange"
)

// Inbox deduplicates redelivered events.
type Inbox interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	Forget(ctx context.Context, eventID string) error
}

type cloudEvent struct {
	ID   string          `json:"id"`
	Type string          `json:"type"`
	Time time.Time       `json:"time"`
	Data json.RawMessage `json:"data"`
}

type calendarData struct {
	PropertyID string `json:"property_id"`
	CheckIn    string `json:"check_in"`
	CheckOut   string `json:"check_out"`
	Reason     string `json:"reason"`
	Reference  string `json:"reference"`
}

// CalendarEventHandler applies calendar.blocked and calendar.released
// CloudEvents from the booking side to the local availability calendar.
type CalendarEventHandler struct {
	Bus    commands.Bus
	Inbox  Inbox
	Logger *slog.Logger
}

func (h *CalendarEventHandler) Handle(ctx context.Context, msg *sarama.ConsumerMessage) error {
	return h.HandlePayload(ctx, msg.Value)
}

// HandlePayload returns an error only for failures worth redelivering.
// Malformed and unknown events are logged and dropped.
func (h *CalendarEventHandler) HandlePayload(ctx context.Context, payload []byte) error {
	var evt cloudEvent
	if err := json.Unmarshal(payload, &evt); err != nil {
		h.logger().Warn("drop malformed calendar event", "error", err)
		return nil
	}
	name := strings.TrimSuffix(evt.Type, ".v1")
	if name != availability.EventBlocked && name != availability.EventReleased {
		h.logger().Debug("ignore event", "type", evt.Type, "event_id", evt.ID)
		return nil
	}
	cmd, err := decodeCalendarCommand(evt, name)
	if err != nil {
		h.logger().Warn("drop malformed calendar event", "event_id", evt.ID, "error", err)
		return nil
	}

	if h.Inbox != nil {
		seen, err := h.Inbox.Seen(ctx, evt.ID)
		if err != nil {
			return err
		}
		if seen {
			h.logger().Debug("skip duplicate event", "event_id", evt.ID)
			return nil
		}
	}

	changed, err := commands.Dispatch[availability.ApplyCalendarEventCommand, bool](ctx, h.Bus, cmd)
	if err != nil {
		if h.Inbox != nil {
			if forgetErr := h.Inbox.Forget(ctx, evt.ID); forgetErr != nil {
				h.logger().Error("forget inbox entry", "event_id", evt.ID, "error", forgetErr)
			}
		}
		return fmt.Errorf("apply %s %s: %w", name, evt.ID, err)
	}
	h.logger().Info("calendar event applied", "event_id", evt.ID, "type", name, "property_id", cmd.PropertyID, "changed", changed)
	return nil
}

func decodeCalendarCommand(evt cloudEvent, name string) (availability.ApplyCalendarEventCommand, error) {
	var data calendarData
	if err := json.Unmarshal(evt.Data, &data); err != nil {
		return availability.ApplyCalendarEventCommand{}, err
	}
	if evt.ID == "" || data.PropertyID == "" || data.Reference == "" {
		return availability.ApplyCalendarEventCommand{}, fmt.Errorf("event id, property_id and reference are required")
	}
	cmd := availability.ApplyCalendarEventCommand{
		EventID:    evt.ID,
		Name:       name,
		PropertyID: data.PropertyID,
		Reason:     data.Reason,
		Reference:  data.Reference,
		OccurredAt: evt.Time,
	}
	if name == availability.EventBlocked {
		checkIn, err := parseDate(data.CheckIn)
		if err != nil {
			return cmd, fmt.Errorf("check_in: %w", err)
		}
		checkOut, err := parseDate(data.CheckOut)
		if err != nil {
			return cmd, fmt.Errorf("check_out: %w", err)
		}
		cmd.CheckIn, cmd.CheckOut = checkIn, checkOut
	}
	return cmd, nil
}

// parseDate accepts a calendar date or a full RFC 3339 timestamp.
func parseDate(raw string) (time.Time, error) {
	if t, err := daterange.ParseKey(raw); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, err
	}
	return daterange.Day(t), nil
}

func (h *CalendarEventHandler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}
