package outbox_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appoutbox "rateplans/internal/app/outbox"
	infraoutbox "rateplans/internal/infra/outbox"
	"rateplans/internal/infra/storage/memory"
)

type published struct {
	topic   string
	key     string
	payload []byte
	headers map[string]string
}

type fakeProducer struct {
	mu       sync.Mutex
	sent     []published
	failures map[string]error
}

func (p *fakeProducer) Publish(ctx context.Context, topic string, key string, payload []byte, headers map[string]string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.failures[key]; err != nil {
		return err
	}
	p.sent = append(p.sent, published{topic: topic, key: key, payload: payload, headers: headers})
	return nil
}

func record(id, name, aggregate string) appoutbox.EventRecord {
	return appoutbox.EventRecord{
		ID:         id,
		Name:       name,
		Payload:    []byte(`{"rate_plan_id":"` + aggregate + `"}`),
		OccurredAt: time.Date(2031, 1, 2, 3, 4, 5, 0, time.UTC),
		Aggregate:  aggregate,
		Headers:    map[string]string{"traceparent": "00-abc-def-01"},
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDrainPublishesCloudEvents(t *testing.T) {
	ctx := context.Background()
	box := memory.NewOutbox()
	require.NoError(t, box.Add(ctx, record("evt-1", "rateplan.created", "rp-1")))
	require.NoError(t, box.Add(ctx, record("evt-2", "rateplan.deleted", "rp-2")))

	producer := &fakeProducer{}
	worker := &infraoutbox.Worker{Store: box, Producer: producer, Logger: quietLogger(), TopicPrefix: "staging."}
	require.NoError(t, worker.Drain(ctx))

	require.Len(t, producer.sent, 2)
	assert.Empty(t, box.Pending())

	first := producer.sent[0]
	assert.Equal(t, "staging.rateplan.events.v1", first.topic)
	assert.Equal(t, "rp-1", first.key)
	assert.Equal(t, "application/cloudevents+json", first.headers["content-type"])
	assert.Equal(t, "00-abc-def-01", first.headers["traceparent"])

	var evt map[string]any
	require.NoError(t, json.Unmarshal(first.payload, &evt))
	assert.Equal(t, "1.0", evt["specversion"])
	assert.Equal(t, "evt-1", evt["id"])
	assert.Equal(t, "rateplan.created.v1", evt["type"])
	assert.Equal(t, "app://rateplans", evt["source"])
	assert.Equal(t, "rp-1", evt["subject"])
	assert.Equal(t, map[string]any{"rate_plan_id": "rp-1"}, evt["data"])
}

func TestDrainKeepsFailedRecordsForRetry(t *testing.T) {
	ctx := context.Background()
	box := memory.NewOutbox()
	require.NoError(t, box.Add(ctx, record("evt-1", "rateplan.updated", "rp-broken")))
	require.NoError(t, box.Add(ctx, record("evt-2", "rateplan.updated", "rp-ok")))

	producer := &fakeProducer{failures: map[string]error{"rp-broken": errors.New("broker unavailable")}}
	worker := &infraoutbox.Worker{
		Store:    box,
		Producer: producer,
		Logger:   quietLogger(),
		Backoff:  []time.Duration{time.Hour},
	}
	require.NoError(t, worker.Drain(ctx))

	require.Len(t, producer.sent, 1)
	assert.Equal(t, "rp-ok", producer.sent[0].key)
	pending := box.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, "evt-1", pending[0].ID)

	// the failed record is parked until its backoff elapses
	require.NoError(t, worker.Drain(ctx))
	assert.Len(t, producer.sent, 1)
}

func TestRunRequiresDependencies(t *testing.T) {
	err := (&infraoutbox.Worker{}).Run(context.Background())
	assert.ErrorIs(t, err, infraoutbox.ErrWorkerNotConfigured)
}

func TestRunStopsWithContext(t *testing.T) {
	box := memory.NewOutbox()
	require.NoError(t, box.Add(context.Background(), record("evt-1", "rateplan.created", "rp-1")))
	producer := &fakeProducer{}
	worker := &infraoutbox.Worker{Store: box, Producer: producer, Logger: quietLogger(), Interval: 5 * time.Millisecond}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	assert.Eventually(t, func() bool { return len(box.Pending()) == 0 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}
