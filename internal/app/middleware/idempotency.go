package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"rateplans/internal/app/commands"
)

// IdempotentCommand is a command a client may retry with an Idempotency-Key.
// ResultPrototype returns a pointer of the handler's result type for replays.
type IdempotentCommand interface {
	commands.Command
	IdempotencyKey() string
	ResultPrototype() any
}

type IdempotencyRecord struct {
	Key        string
	Payload    []byte
	OccurredAt time.Time
}

type IdempotencyStore interface {
	Get(ctx context.Context, key string) (IdempotencyRecord, bool, error)
	Save(ctx context.Context, rec IdempotencyRecord) error
}

type ResultCodec interface {
	Encode(v any) ([]byte, error)
	Decode(data []byte, out any) error
}

type JSONResultCodec struct{}

func (JSONResultCodec) Encode(v any) ([]byte, error)      { return json.Marshal(v) }
func (JSONResultCodec) Decode(data []byte, out any) error { return json.Unmarshal(data, out) }

var errMissingPrototype = errors.New("middleware: idempotent command requires result prototype")

// Idempotency replays the stored result of an earlier successful command carrying
// the same client key. Failures are not stored, so a client may retry them.
func Idempotency(store IdempotencyStore, codec ResultCodec) CommandMiddleware {
	if store == nil {
		panic("middleware: idempotency store required")
	}
	if codec == nil {
		codec = JSONResultCodec{}
	}
	return func(next commands.Bus) commands.Bus {
		nextFn := wrapCommand(next)
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			idCmd, ok := cmd.(IdempotentCommand)
			if !ok || strings.TrimSpace(idCmd.IdempotencyKey()) == "" {
				return nextFn(ctx, cmd)
			}
			key := storageKey(idCmd)

			rec, found, err := store.Get(ctx, key)
			if err != nil {
				return nil, err
			}
			if found {
				return replay(codec, idCmd, rec)
			}

			result, err := nextFn(ctx, cmd)
			if err != nil {
				return nil, err
			}
			if err := remember(ctx, store, codec, key, result); err != nil {
				return nil, err
			}
			return result, nil
		})
	}
}

// storageKey namespaces the client key by command and, for property-scoped
// commands, by actor and property, so two hosts never share a replay.
func storageKey(cmd IdempotentCommand) string {
	parts := []string{cmd.Key()}
	if scoped, ok := cmd.(PropertyScoped); ok {
		parts = append(parts, scoped.ActorID(), scoped.ScopePropertyID())
	}
	parts = append(parts, strings.TrimSpace(cmd.IdempotencyKey()))
	return strings.Join(parts, ":")
}

func replay(codec ResultCodec, cmd IdempotentCommand, rec IdempotencyRecord) (any, error) {
	out := cmd.ResultPrototype()
	if out == nil {
		return nil, errMissingPrototype
	}
	if len(rec.Payload) == 0 {
		return nil, nil
	}
	if err := codec.Decode(rec.Payload, out); err != nil {
		return nil, err
	}
	return out, nil
}

func remember(ctx context.Context, store IdempotencyStore, codec ResultCodec, key string, result any) error {
	rec := IdempotencyRecord{Key: key, OccurredAt: time.Now().UTC()}
	if result != nil {
		payload, err := codec.Encode(result)
		if err != nil {
			return err
		}
		rec.Payload = payload
	}
	return store.Save(ctx, rec)
}
