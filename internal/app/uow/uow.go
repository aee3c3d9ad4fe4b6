package uow

import (
	"context"

	domainavailability "rateplans/internal/domain/availability"
	domainproperties "rateplans/internal/domain/properties"
	domainrateplans "rateplans/internal/domain/rateplans"
	domainreservations "rateplans/internal/domain/reservations"
)

// UnitOfWork hands out repositories that share one consistent view of storage.
// Read-only units give searches and refunds a snapshot; write units commit atomically.
type UnitOfWork interface {
	RatePlans() domainrateplans.Repository
	Reservations() domainreservations.Repository
	Properties() domainproperties.Repository
	Availability() domainavailability.Repository

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

type UoWFactory interface {
	Begin(ctx context.Context, opts TxOptions) (UnitOfWork, error)
}

type TxOptions struct {
	ReadOnly bool
}
