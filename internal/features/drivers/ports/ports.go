package ports

import (
	"context"

	"delivery-engine/internal/features/drivers/domain"
)

// DriverRepository is the persistence port for drivers. Get exposes the
// document version that Update requires, so callers can run optimistic
// read-modify-write loops.
type DriverRepository interface {
	// Insert stores a new driver.
	Insert(ctx context.Context, driver *domain.Driver) error

	// Get returns the driver and its current document version.
	Get(ctx context.Context, id string) (*domain.Driver, int64, error)

	// Update writes the driver conditionally on the version observed at Get.
	Update(ctx context.Context, driver *domain.Driver, expectedVersion int64) error

	// List returns all known drivers.
	List(ctx context.Context) ([]*domain.Driver, error)
}

// DriverService is the inbound port consumed by the HTTP handler.
type DriverService interface {
	// Onboard registers a driver.
	Onboard(ctx context.Context, id, name string, capacity int) (*domain.Driver, error)

	// Get returns a driver by id.
	Get(ctx context.Context, id string) (*domain.Driver, error)

	// SetManualOffline toggles the manual offline flag.
	SetManualOffline(ctx context.Context, id string, offline bool) (*domain.Driver, error)
}
