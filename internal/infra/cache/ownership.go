package cache

import (
	"context"
	"time"

	goCache "github.com/patrickmn/go-cache"

	"rateplans/internal/app/policies"
	domainproperties "rateplans/internal/domain/properties"
)

const defaultOwnershipTTL = time.Minute

// OwnershipCache memoizes ownership answers. Only definite answers are cached;
// lookup errors always reach the caller.
type OwnershipCache struct {
	next  policies.OwnershipPort
	cache *goCache.Cache
}

func NewOwnershipCache(next policies.OwnershipPort, ttl time.Duration) *OwnershipCache {
	if ttl <= 0 {
		ttl = defaultOwnershipTTL
	}
	return &OwnershipCache{next: next, cache: goCache.New(ttl, 2*ttl)}
}

func (c *OwnershipCache) Owns(ctx context.Context, host domainproperties.HostID, propertyID domainproperties.PropertyID) (bool, error) {
	key := string(host) + "|" + string(propertyID)
	if v, ok := c.cache.Get(key); ok {
		if owns, ok := v.(bool); ok {
			return owns, nil
		}
	}
	owns, err := c.next.Owns(ctx, host, propertyID)
	if err != nil {
		return false, err
	}
	c.cache.SetDefault(key, owns)
	return owns, nil
}

var _ policies.OwnershipPort = (*OwnershipCache)(nil)
