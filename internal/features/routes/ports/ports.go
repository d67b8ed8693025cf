package ports

import (
	"context"

	assignmentdomain "delivery-engine/internal/features/assignment/domain"
	driverdomain "delivery-engine/internal/features/drivers/domain"
)

// AssignmentSource exposes the active workload of a driver. Implemented by
// the assignment feature service.
type AssignmentSource interface {
	ListActiveByDriver(ctx context.Context, driverID string) ([]*assignmentdomain.DeliveryRequest, error)
}

// VisitTracker reports pickup progress per request. Implemented by the
// tracking feature registry.
type VisitTracker interface {
	PickupVisited(requestID string) bool
}

// DriverSource resolves drivers and their last known position. Implemented by
// the drivers feature service.
type DriverSource interface {
	Get(ctx context.Context, id string) (*driverdomain.Driver, error)
}
