package ports

import (
	"context"

	driverdomain "delivery-engine/internal/features/drivers/domain"
)

// PositionRecorder is the slice of the driver registry the ingestor needs to
// keep last-known positions current. Implemented by the drivers feature
// service.
type PositionRecorder interface {
	// Get returns a driver by id.
	Get(ctx context.Context, id string) (*driverdomain.Driver, error)

	// RecordPosition stores the fix as the driver's last known position
	// unless a fresher one is already held.
	RecordPosition(ctx context.Context, id string, pos driverdomain.Position) error
}
