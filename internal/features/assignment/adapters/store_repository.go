package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"delivery-engine/internal/core/store"
	"delivery-engine/internal/features/assignment/domain"
)

const requestKeyPrefix = "request:"

// StoreRequestRepository implements ports.RequestRepository on the document
// store port.
type StoreRequestRepository struct {
	store store.Store
}

// NewStoreRequestRepository creates a store-backed request repository.
func NewStoreRequestRepository(s store.Store) *StoreRequestRepository {
	return &StoreRequestRepository{store: s}
}

// Insert stores a new request.
func (r *StoreRequestRepository) Insert(ctx context.Context, request *domain.DeliveryRequest) error {
	data, err := json.Marshal(request)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	if _, err := r.store.Insert(ctx, requestKeyPrefix+request.ID, data); err != nil {
		return fmt.Errorf("failed to insert request %s: %w", request.ID, err)
	}
	return nil
}

// Get returns the request and its current document version.
func (r *StoreRequestRepository) Get(ctx context.Context, id string) (*domain.DeliveryRequest, int64, error) {
	doc, err := r.store.Get(ctx, requestKeyPrefix+id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, 0, fmt.Errorf("%w: %s", domain.ErrRequestNotFound, id)
	}
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get request %s: %w", id, err)
	}

	var request domain.DeliveryRequest
	if err := json.Unmarshal(doc.Data, &request); err != nil {
		return nil, 0, fmt.Errorf("failed to unmarshal request %s: %w", id, err)
	}

	return &request, doc.Version, nil
}

// Update writes the request conditionally on the version observed at Get.
// store.ErrVersionConflict passes through so the state machine can translate
// it into its conflict semantics.
func (r *StoreRequestRepository) Update(ctx context.Context, request *domain.DeliveryRequest, expectedVersion int64) error {
	data, err := json.Marshal(request)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	if _, err := r.store.Update(ctx, requestKeyPrefix+request.ID, data, expectedVersion); err != nil {
		if errors.Is(err, store.ErrVersionConflict) {
			return err
		}
		return fmt.Errorf("failed to update request %s: %w", request.ID, err)
	}
	return nil
}

// ListActiveByDriver returns the requests a driver currently holds in an
// active state.
func (r *StoreRequestRepository) ListActiveByDriver(ctx context.Context, driverID string) ([]*domain.DeliveryRequest, error) {
	docs, err := r.store.List(ctx, requestKeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list requests: %w", err)
	}

	var out []*domain.DeliveryRequest
	for _, doc := range docs {
		var request domain.DeliveryRequest
		if err := json.Unmarshal(doc.Data, &request); err != nil {
			return nil, fmt.Errorf("failed to unmarshal request %s: %w", doc.Key, err)
		}
		if request.AssignedDriver == driverID && request.Status.Active() {
			out = append(out, &request)
		}
	}
	return out, nil
}
