package ports

import (
	"context"

	"delivery-engine/internal/core/geo"
	"delivery-engine/internal/features/assignment/domain"
	driverdomain "delivery-engine/internal/features/drivers/domain"
)

// RequestRepository is the persistence port for delivery requests. Get
// exposes the document version that Update requires for optimistic writes.
type RequestRepository interface {
	// Insert stores a new request.
	Insert(ctx context.Context, request *domain.DeliveryRequest) error

	// Get returns the request and its current document version.
	Get(ctx context.Context, id string) (*domain.DeliveryRequest, int64, error)

	// Update writes the request conditionally on the version observed at Get.
	Update(ctx context.Context, request *domain.DeliveryRequest, expectedVersion int64) error

	// ListActiveByDriver returns the requests a driver currently holds in
	// ASSIGNED or IN_PROGRESS state.
	ListActiveByDriver(ctx context.Context, driverID string) ([]*domain.DeliveryRequest, error)
}

// DriverRegistry is the availability registry consulted and mutated by the
// state machine. Implemented by the drivers feature service.
type DriverRegistry interface {
	// Get returns a driver by id.
	Get(ctx context.Context, id string) (*driverdomain.Driver, error)

	// IncrementActive reserves one assignment slot, re-validating
	// eligibility at commit time.
	IncrementActive(ctx context.Context, id string) error

	// DecrementActive releases one assignment slot.
	DecrementActive(ctx context.Context, id string) error

	// CandidatesFor ranks available drivers by distance to a pickup point.
	CandidatesFor(ctx context.Context, pickup geo.Coordinate) ([]driverdomain.Candidate, error)
}

// GeofenceManager creates and destroys the boundaries tied to a request's
// pickup and delivery points. Implemented by the tracking feature registry.
type GeofenceManager interface {
	// CreateForRequest instantiates the pickup and delivery boundaries.
	CreateForRequest(requestID, driverID string, pickup, delivery geo.Coordinate)

	// RemoveForRequest destroys every boundary bound to the request.
	RemoveForRequest(requestID string)
}
