package queries

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countPlans struct{ PropertyID string }

func (countPlans) Key() string { return "test.count" }

type countHandler map[string]int

func (h countHandler) Handle(ctx context.Context, q countPlans) (int, error) {
	return h[q.PropertyID], nil
}

func TestAskReturnsTypedResult(t *testing.T) {
	bus := NewInMemoryBus()
	RegisterHandler(bus, countPlans{}.Key(), countHandler{"villa-1": 3})

	n, err := Ask[countPlans, int](context.Background(), bus, countPlans{PropertyID: "villa-1"})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	_, err = Ask[countPlans, string](context.Background(), bus, countPlans{PropertyID: "villa-1"})
	assert.ErrorIs(t, err, ErrResultType)

	assert.Panics(t, func() { RegisterHandler(bus, countPlans{}.Key(), countHandler{}) })
}

func TestAskUnknownKey(t *testing.T) {
	_, err := NewInMemoryBus().Ask(context.Background(), countPlans{})
	assert.ErrorIs(t, err, ErrHandlerNotFound)
	assert.Contains(t, err.Error(), "test.count")
}
