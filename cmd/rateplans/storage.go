package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"rateplans/internal/app/middleware"
	appoutbox "rateplans/internal/app/outbox"
	"rateplans/internal/app/policies"
	"rateplans/internal/app/uow"
	"rateplans/internal/infra/config"
	mongodb "rateplans/internal/infra/db/mongo"
	"rateplans/internal/infra/inbox"
	"rateplans/internal/infra/lock"
	"rateplans/internal/infra/messaging"
	"rateplans/internal/infra/obs"
	infraoutbox "rateplans/internal/infra/outbox"
	"rateplans/internal/infra/storage/memory"
	"rateplans/internal/infra/storage/s3"
)

// infrastructure is everything the buses need from the outside world, picked by
// configuration.
type infrastructure struct {
	factory     uow.UoWFactory
	outbox      appoutbox.Outbox
	relay       infraoutbox.Store
	idempotency middleware.IdempotencyStore
	inbox       messaging.Inbox
	locker      middleware.Locker
	objects     policies.ObjectStore
	probes      map[string]obs.Probe
	closers     []func(context.Context) error
}

func (i *infrastructure) close(ctx context.Context, logger *slog.Logger) {
	for n := len(i.closers) - 1; n >= 0; n-- {
		if err := i.closers[n](ctx); err != nil {
			logger.Error("shutdown step failed", "error", err)
		}
	}
}

func buildInfrastructure(ctx context.Context, cfg config.Config, logger *slog.Logger) (*infrastructure, error) {
	infra := &infrastructure{probes: map[string]obs.Probe{}}
	var err error
	switch cfg.StorageDriver {
	case config.DriverMongo:
		err = infra.useMongo(ctx, cfg)
	default:
		infra.useMemory(cfg)
	}
	if err != nil {
		infra.close(ctx, logger)
		return nil, err
	}

	if cfg.RedisEnabled() {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		locker, err := lock.NewRedisLocker(lock.NewRedisStore(client), cfg.LockTTL, cfg.LockWait, logger)
		if err != nil {
			_ = client.Close()
			infra.close(ctx, logger)
			return nil, fmt.Errorf("redis locker: %w", err)
		}
		infra.locker = locker
		infra.probes["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
		infra.closers = append(infra.closers, func(context.Context) error { return client.Close() })
		logger.Info("redis locker enabled", "addr", cfg.RedisAddr)
	}

	if cfg.S3Enabled() {
		exports, err := s3.NewExportStore(s3.Config{
			Endpoint:       cfg.S3Endpoint,
			PublicEndpoint: cfg.S3PublicEndpoint,
			AccessKey:      cfg.S3AccessKey,
			SecretKey:      cfg.S3SecretKey,
			Bucket:         cfg.S3Bucket,
			UseSSL:         cfg.S3UseSSL,
		}, logger)
		if err != nil {
			infra.close(ctx, logger)
			return nil, err
		}
		infra.objects = exports
		infra.probes["s3"] = exports.Ping
	}
	return infra, nil
}

func (i *infrastructure) useMemory(cfg config.Config) {
	store := memory.NewStore()
	box := memory.NewOutbox()
	i.factory = memory.Factory{Store: store, Outbox: box}
	i.outbox = box
	i.relay = box
	i.idempotency = memory.NewIdempotencyStore(cfg.IdempotencyTTL)
	i.inbox = memory.NewInbox(cfg.IdempotencyTTL)
	i.locker = lock.NewKeyedLocker()
	i.objects = memory.NewObjectStore()
}

func (i *infrastructure) useMongo(ctx context.Context, cfg config.Config) error {
	client, err := mongodb.New(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		return fmt.Errorf("mongo connect: %w", err)
	}
	i.closers = append(i.closers, client.Close)
	i.probes["mongo"] = client.Ping
	if err := client.EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("mongo indexes: %w", err)
	}

	relay, err := infraoutbox.NewMongoStore(ctx, client.DB)
	if err != nil {
		return fmt.Errorf("mongo outbox: %w", err)
	}
	idempotency, err := mongodb.NewIdempotencyStore(ctx, client.DB, cfg.IdempotencyTTL)
	if err != nil {
		return fmt.Errorf("mongo idempotency: %w", err)
	}
	events, err := inbox.NewStore(ctx, client.DB, cfg.KafkaConsumerGroup)
	if err != nil {
		return fmt.Errorf("mongo inbox: %w", err)
	}

	i.factory = mongodb.Factory{DB: client.DB}
	i.outbox = relay
	i.relay = relay
	i.idempotency = idempotency
	i.inbox = events
	i.locker = lock.NewKeyedLocker()
	i.objects = memory.NewObjectStore()
	return nil
}
