package availability

import (
	"context"
	"errors"
	"sort"
	"time"

	"rateplans/internal/domain/properties"
	"rateplans/internal/domain/shared/daterange"
	"rateplans/internal/domain/shared/events"
)

var (
	ErrEmptyRange    = errors.New("availability: range must cover at least one night")
	ErrRangeNotFound = errors.New("availability: range not found")
)

type BlockReason string

const (
	ReasonBooking     BlockReason = "BOOKING"
	ReasonHostBlock   BlockReason = "HOST_BLOCK"
	ReasonMaintenance BlockReason = "MAINTENANCE"
)

type Block struct {
	Range     daterange.DateRange
	Reason    BlockReason
	Reference string
	CreatedAt time.Time
}

// Calendar lists the blocked ranges of a property. Dates outside every block are bookable.
type Calendar struct {
	PropertyID properties.PropertyID
	Blocks     []Block
	Version    int64
	events.EventRecorder
}

type Repository interface {
	Calendar(ctx context.Context, id properties.PropertyID) (*Calendar, error)
	Save(ctx context.Context, calendar *Calendar) error
}

func NewCalendar(id properties.PropertyID) *Calendar {
	return &Calendar{PropertyID: id}
}

// UnavailableDates returns the sorted, de-duplicated blocked nights within r.
func (c *Calendar) UnavailableDates(r daterange.DateRange) []time.Time {
	seen := make(map[string]time.Time)
	for _, block := range c.Blocks {
		if !block.Range.Overlaps(r) {
			continue
		}
		for _, d := range block.Range.Dates() {
			if r.ContainsDate(d) {
				seen[daterange.Key(d)] = d
			}
		}
	}
	out := make([]time.Time, 0, len(seen))
	for _, d := range seen {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// Block marks r as unavailable under reference. Blocks may overlap: each one is
// kept until its own reference is released. A known reference is ignored, which
// keeps replayed events harmless.
func (c *Calendar) Block(r daterange.DateRange, reason BlockReason, reference string, now time.Time) error {
	if !r.CheckOut.After(r.CheckIn) {
		return ErrEmptyRange
	}
	if reason == "" {
		reason = ReasonHostBlock
	}
	if reference != "" && c.hasReference(reference) {
		return nil
	}
	c.Blocks = append(c.Blocks, Block{Range: r, Reason: reason, Reference: reference, CreatedAt: now.UTC()})
	c.Record(CalendarBlocked{PropertyID: string(c.PropertyID), Range: r, Reason: reason, At: now.UTC()})
	return nil
}

func (c *Calendar) Release(reference string, now time.Time) error {
	idx := -1
	for i, block := range c.Blocks {
		if block.Reference == reference {
			idx = i
			break
		}
	}
	if idx == -1 {
		return ErrRangeNotFound
	}
	removed := c.Blocks[idx]
	c.Blocks = append(c.Blocks[:idx], c.Blocks[idx+1:]...)
	c.Record(CalendarReleased{PropertyID: string(c.PropertyID), Range: removed.Range, Reason: removed.Reason, At: now.UTC()})
	return nil
}

func (c *Calendar) hasReference(reference string) bool {
	for _, block := range c.Blocks {
		if block.Reference == reference {
			return true
		}
	}
	return false
}

// Clone returns a deep copy without pending events.
func (c *Calendar) Clone() *Calendar {
	if c == nil {
		return nil
	}
	return &Calendar{
		PropertyID: c.PropertyID,
		Blocks:     append([]Block(nil), c.Blocks...),
		Version:    c.Version,
	}
}
