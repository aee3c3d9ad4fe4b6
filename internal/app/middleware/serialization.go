package middleware

import (
	"context"
	"strings"

	"rateplans/internal/app/commands"
)

// Locker grants exclusive access to a key until the returned release func runs.
type Locker interface {
	Lock(ctx context.Context, key string) (release func(), err error)
}

// Serialized is implemented by commands that must not run concurrently with
// other commands sharing the same lock key.
type Serialized interface {
	LockKey() string
}

// Serialization holds the command's lock across everything inside it, so it must
// wrap Transaction for the commit to happen before release.
func Serialization(locker Locker) CommandMiddleware {
	if locker == nil {
		panic("middleware: locker required")
	}
	return func(next commands.Bus) commands.Bus {
		nextFn := wrapCommand(next)
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			s, ok := cmd.(Serialized)
			if !ok || strings.TrimSpace(s.LockKey()) == "" {
				return nextFn(ctx, cmd)
			}
			release, err := locker.Lock(ctx, s.LockKey())
			if err != nil {
				return nil, err
			}
			defer release()
			return nextFn(ctx, cmd)
		})
	}
}
