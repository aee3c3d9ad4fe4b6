package memory

import (
	"context"
	"time"

	goCache "github.com/patrickmn/go-cache"
)

// Inbox remembers consumed event ids for a bounded window.
type Inbox struct {
	cache *goCache.Cache
}

func NewInbox(window time.Duration) *Inbox {
	if window <= 0 {
		window = 24 * time.Hour
	}
	return &Inbox{cache: goCache.New(window, time.Hour)}
}

func (i *Inbox) Seen(ctx context.Context, eventID string) (bool, error) {
	if err := i.cache.Add(eventID, struct{}{}, goCache.DefaultExpiration); err != nil {
		return true, nil
	}
	return false, nil
}

func (i *Inbox) Forget(ctx context.Context, eventID string) error {
	i.cache.Delete(eventID)
	return nil
}
