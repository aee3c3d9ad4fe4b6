package memory

import (
	"context"
	"sync"
	"time"

	appoutbox "rateplans/internal/app/outbox"
	"rateplans/internal/app/uow"
	infraoutbox "rateplans/internal/infra/outbox"
)

type outboxEntry struct {
	record      appoutbox.EventRecord
	attempts    int
	claimed     bool
	nextAttempt time.Time
	lastError   string
}

// Outbox queues records in memory for the relay worker. Records added inside a
// memory unit are held back until that unit commits.
type Outbox struct {
	mu      sync.Mutex
	entries []*outboxEntry
	now     func() time.Time
}

func NewOutbox() *Outbox {
	return &Outbox{now: time.Now}
}

func (o *Outbox) Add(ctx context.Context, record appoutbox.EventRecord) error {
	if unit, ok := uow.FromContext(ctx); ok {
		if mu, ok := unit.(*Unit); ok && mu.outbox == o {
			return mu.stageRecord(record)
		}
	}
	o.enqueue([]appoutbox.EventRecord{record})
	return nil
}

// Flush is a no-op; committed records wait for the worker.
func (o *Outbox) Flush(ctx context.Context) error {
	return nil
}

func (o *Outbox) enqueue(records []appoutbox.EventRecord) {
	o.mu.Lock()
	defer o.mu.Unlock()
	now := o.now()
	for _, rec := range records {
		o.entries = append(o.entries, &outboxEntry{record: rec, nextAttempt: now})
	}
}

// Pending lists records not yet marked sent, oldest first.
func (o *Outbox) Pending() []appoutbox.EventRecord {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]appoutbox.EventRecord, 0, len(o.entries))
	for _, e := range o.entries {
		out = append(out, e.record)
	}
	return out
}

func (o *Outbox) Claim(ctx context.Context, workerID string) (*infraoutbox.Pending, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	now := o.now()
	for _, e := range o.entries {
		if e.claimed || e.nextAttempt.After(now) {
			continue
		}
		e.claimed = true
		return &infraoutbox.Pending{Record: e.record, Attempts: e.attempts}, nil
	}
	return nil, nil
}

func (o *Outbox) MarkSent(ctx context.Context, id string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i, e := range o.entries {
		if e.record.ID == id {
			o.entries = append(o.entries[:i], o.entries[i+1:]...)
			return nil
		}
	}
	return nil
}

func (o *Outbox) MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, e := range o.entries {
		if e.record.ID == id {
			e.claimed = false
			e.attempts++
			e.nextAttempt = next
			e.lastError = errMsg
			return nil
		}
	}
	return nil
}

var (
	_ appoutbox.Outbox  = (*Outbox)(nil)
	_ infraoutbox.Store = (*Outbox)(nil)
)
