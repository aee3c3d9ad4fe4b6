package memory

import (
	"context"
	"time"

	goCache "github.com/patrickmn/go-cache"

	"rateplans/internal/app/middleware"
)

const defaultIdempotencyTTL = 7 * 24 * time.Hour

// IdempotencyStore keeps command results in a go-cache instance; entries expire
// after the configured TTL.
type IdempotencyStore struct {
	cache *goCache.Cache
	ttl   time.Duration
}

func NewIdempotencyStore(ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = defaultIdempotencyTTL
	}
	cleanup := ttl / 2
	if cleanup > time.Hour {
		cleanup = time.Hour
	}
	return &IdempotencyStore{cache: goCache.New(ttl, cleanup), ttl: ttl}
}

func (s *IdempotencyStore) Get(ctx context.Context, key string) (middleware.IdempotencyRecord, bool, error) {
	raw, ok := s.cache.Get(key)
	if !ok {
		return middleware.IdempotencyRecord{}, false, nil
	}
	rec, ok := raw.(middleware.IdempotencyRecord)
	return rec, ok, nil
}

func (s *IdempotencyStore) Save(ctx context.Context, rec middleware.IdempotencyRecord) error {
	s.cache.Set(rec.Key, rec, s.ttl)
	return nil
}

var _ middleware.IdempotencyStore = (*IdempotencyStore)(nil)
