package policies

import (
	"context"

	domainproperties "rateplans/internal/domain/properties"
)

// OwnershipPort reports whether a host owns a property. Unknown properties
// surface as properties.ErrPropertyNotFound.
type OwnershipPort interface {
	Owns(ctx context.Context, host domainproperties.HostID, propertyID domainproperties.PropertyID) (bool, error)
}
