package middleware

import (
	"context"
	"time"

	"rateplans/internal/app/commands"
	"rateplans/internal/app/queries"
)

const (
	KindCommand = "command"
	KindQuery   = "query"
)

// BusObserver receives one observation per dispatched message.
type BusObserver interface {
	ObserveMessage(kind, key string, err error, elapsed time.Duration)
}

func Instrumentation(obs BusObserver) CommandMiddleware {
	if obs == nil {
		return nil
	}
	return func(next commands.Bus) commands.Bus {
		nextFn := wrapCommand(next)
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			started := time.Now()
			res, err := nextFn(ctx, cmd)
			obs.ObserveMessage(KindCommand, cmd.Key(), err, time.Since(started))
			return res, err
		})
	}
}

func QueryInstrumentation(obs BusObserver) QueryMiddleware {
	if obs == nil {
		return nil
	}
	return func(next queries.Bus) queries.Bus {
		nextFn := wrapQuery(next)
		return queryFunc(func(ctx context.Context, q queries.Query) (any, error) {
			started := time.Now()
			res, err := nextFn(ctx, q)
			obs.ObserveMessage(KindQuery, q.Key(), err, time.Since(started))
			return res, err
		})
	}
}
