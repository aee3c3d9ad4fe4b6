package lock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"rateplans/internal/app/middleware"
)

const (
	defaultLockTTL   = 10 * time.Second
	defaultLockWait  = 3 * time.Second
	defaultRetryStep = 50 * time.Millisecond
	keyPrefix        = "rateplans:lock:"
)

var ErrLockTimeout = errors.New("lock: timed out waiting for lock")

// redisStore defines the operations used by RedisLocker.
type redisStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

// RedisLocker serializes work per key across every replica using SETNX with
// a TTL and a random owner token.
type RedisLocker struct {
	client redisStore
	ttl    time.Duration
	wait   time.Duration
	step   time.Duration
	logger *slog.Logger
}

func NewRedisLocker(client redisStore, ttl, wait time.Duration, logger *slog.Logger) (*RedisLocker, error) {
	if client == nil {
		return nil, errors.New("redis client required for lock")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	if wait <= 0 {
		wait = defaultLockWait
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisLocker{client: client, ttl: ttl, wait: wait, step: defaultRetryStep, logger: logger}, nil
}

// Lock retries SETNX until it wins, the wait budget runs out or ctx is done.
func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := keyPrefix + key
	owner := uuid.NewString()
	deadline := time.Now().Add(l.wait)
	for {
		ok, err := l.client.SetNX(ctx, redisKey, owner, l.ttl)
		if err != nil {
			return nil, fmt.Errorf("setnx: %w", err)
		}
		if ok {
			return func() { l.release(redisKey, owner) }, nil
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: %s", ErrLockTimeout, key)
		}
		timer := time.NewTimer(l.step)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

// release frees the lock only if the owner value still matches. It runs after
// the request context may be gone, so it uses its own short deadline.
func (l *RedisLocker) release(key, owner string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	value, err := l.client.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			l.logger.Warn("read lock owner", "key", key, "error", err)
		}
		return
	}
	if value != owner {
		return
	}
	if err := l.client.Del(ctx, key); err != nil {
		l.logger.Warn("delete lock", "key", key, "error", err)
	}
}

// clientAdapter narrows *redis.Client to redisStore.
type clientAdapter struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) redisStore {
	return clientAdapter{client: client}
}

func (a clientAdapter) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	return a.client.SetNX(ctx, key, value, ttl).Result()
}

func (a clientAdapter) Get(ctx context.Context, key string) (string, error) {
	return a.client.Get(ctx, key).Result()
}

func (a clientAdapter) Del(ctx context.Context, keys ...string) error {
	return a.client.Del(ctx, keys...).Err()
}

var _ middleware.Locker = (*RedisLocker)(nil)
