package middleware

import (
	"context"
	"errors"
	"strings"

	"rateplans/internal/app/commands"
	"rateplans/internal/app/policies"
	"rateplans/internal/app/queries"
	domainproperties "rateplans/internal/domain/properties"
)

var (
	ErrUnauthenticated = errors.New("authorization: principal required")
	ErrForbidden       = errors.New("authorization: property not owned by principal")
)

type Authorizer interface {
	Authorize(ctx context.Context, message any) error
}

// PropertyScoped is implemented by host messages that act on one property.
type PropertyScoped interface {
	ActorID() string
	ScopePropertyID() string
}

// OwnershipAuthorizer lets a PropertyScoped message through only when its actor
// owns the property. Other messages pass untouched.
type OwnershipAuthorizer struct {
	Ownership policies.OwnershipPort
}

func (a OwnershipAuthorizer) Authorize(ctx context.Context, message any) error {
	scoped, ok := message.(PropertyScoped)
	if !ok {
		return nil
	}
	actor := strings.TrimSpace(scoped.ActorID())
	if actor == "" {
		return ErrUnauthenticated
	}
	if a.Ownership == nil {
		return ErrForbidden
	}
	owns, err := a.Ownership.Owns(ctx, domainproperties.HostID(actor), domainproperties.PropertyID(scoped.ScopePropertyID()))
	if err != nil {
		return err
	}
	if !owns {
		return ErrForbidden
	}
	return nil
}

func Authorization(a Authorizer) CommandMiddleware {
	if a == nil {
		panic("middleware: authorizer required")
	}
	return func(next commands.Bus) commands.Bus {
		nextFn := wrapCommand(next)
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			if err := a.Authorize(ctx, cmd); err != nil {
				return nil, err
			}
			return nextFn(ctx, cmd)
		})
	}
}

func QueryAuthorization(a Authorizer) QueryMiddleware {
	if a == nil {
		panic("middleware: authorizer required")
	}
	return func(next queries.Bus) queries.Bus {
		nextFn := wrapQuery(next)
		return queryFunc(func(ctx context.Context, q queries.Query) (any, error) {
			if err := a.Authorize(ctx, q); err != nil {
				return nil, err
			}
			return nextFn(ctx, q)
		})
	}
}
