package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainproperties "rateplans/internal/domain/properties"
)

type countingOwnership struct {
	calls int
	owns  bool
	err   error
}

func (c *countingOwnership) Owns(context.Context, domainproperties.HostID, domainproperties.PropertyID) (bool, error) {
	c.calls++
	return c.owns, c.err
}

func TestOwnershipCacheMemoizesAnswers(t *testing.T) {
	next := &countingOwnership{owns: true}
	c := NewOwnershipCache(next, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		owns, err := c.Owns(ctx, "host-1", "villa-1")
		require.NoError(t, err)
		assert.True(t, owns)
	}
	assert.Equal(t, 1, next.calls)

	_, err := c.Owns(ctx, "host-2", "villa-1")
	require.NoError(t, err)
	assert.Equal(t, 2, next.calls)
}

func TestOwnershipCacheSkipsErrors(t *testing.T) {
	next := &countingOwnership{err: domainproperties.ErrPropertyNotFound}
	c := NewOwnershipCache(next, time.Minute)

	for i := 0; i < 2; i++ {
		_, err := c.Owns(context.Background(), "host-1", "missing")
		assert.ErrorIs(t, err, domainproperties.ErrPropertyNotFound)
	}
	assert.Equal(t, 2, next.calls)
}
