package properties

import (
	"context"

	handlersupport "rateplans/internal/app/handlers/support"
	"rateplans/internal/app/policies"
	"rateplans/internal/app/uow"
	domainproperties "rateplans/internal/domain/properties"
)

// OwnershipChecker answers ownership questions from the property repository.
type OwnershipChecker struct {
	UoWFactory uow.UoWFactory
}

func (c OwnershipChecker) Owns(ctx context.Context, host domainproperties.HostID, propertyID domainproperties.PropertyID) (bool, error) {
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, c.UoWFactory)
	if err != nil {
		return false, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	property, err := unit.Properties().ByID(execCtx, propertyID)
	if err != nil {
		return false, err
	}
	return property.OwnedBy(host), nil
}

var _ policies.OwnershipPort = OwnershipChecker{}
