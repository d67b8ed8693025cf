package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"delivery-engine/internal/core/store"
	"delivery-engine/internal/features/drivers/domain"
)

const driverKeyPrefix = "driver:"

// StoreDriverRepository implements ports.DriverRepository on the document
// store port.
type StoreDriverRepository struct {
	store store.Store
}

// NewStoreDriverRepository creates a store-backed driver repository.
func NewStoreDriverRepository(s store.Store) *StoreDriverRepository {
	return &StoreDriverRepository{store: s}
}

// Insert stores a new driver.
func (r *StoreDriverRepository) Insert(ctx context.Context, driver *domain.Driver) error {
	data, err := json.Marshal(driver)
	if err != nil {
		return fmt.Errorf("failed to marshal driver: %w", err)
	}

	if _, err := r.store.Insert(ctx, driverKeyPrefix+driver.ID, data); err != nil {
		return fmt.Errorf("failed to insert driver %s: %w", driver.ID, err)
	}
	return nil
}

// Get returns the driver and its current document version.
func (r *StoreDriverRepository) Get(ctx context.Context, id string) (*domain.Driver, int64, error) {
	doc, err := r.store.Get(ctx, driverKeyPrefix+id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, 0, fmt.Errorf("%w: %s", domain.ErrDriverNotFound, id)
	}
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get driver %s: %w", id, err)
	}

	var driver domain.Driver
	if err := json.Unmarshal(doc.Data, &driver); err != nil {
		return nil, 0, fmt.Errorf("failed to unmarshal driver %s: %w", id, err)
	}

	return &driver, doc.Version, nil
}

// Update writes the driver conditionally on the version observed at Get.
// store.ErrVersionConflict passes through for the caller's retry loop.
func (r *StoreDriverRepository) Update(ctx context.Context, driver *domain.Driver, expectedVersion int64) error {
	data, err := json.Marshal(driver)
	if err != nil {
		return fmt.Errorf("failed to marshal driver: %w", err)
	}

	if _, err := r.store.Update(ctx, driverKeyPrefix+driver.ID, data, expectedVersion); err != nil {
		if errors.Is(err, store.ErrVersionConflict) {
			return err
		}
		return fmt.Errorf("failed to update driver %s: %w", driver.ID, err)
	}
	return nil
}

// List returns all known drivers.
func (r *StoreDriverRepository) List(ctx context.Context) ([]*domain.Driver, error) {
	docs, err := r.store.List(ctx, driverKeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list drivers: %w", err)
	}

	out := make([]*domain.Driver, 0, len(docs))
	for _, doc := range docs {
		var driver domain.Driver
		if err := json.Unmarshal(doc.Data, &driver); err != nil {
			return nil, fmt.Errorf("failed to unmarshal driver %s: %w", doc.Key, err)
		}
		out = append(out, &driver)
	}
	return out, nil
}
