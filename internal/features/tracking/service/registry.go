package service

import (
	"sync"

	"delivery-engine/internal/core/geo"
	"delivery-engine/internal/features/tracking/domain"

	"go.uber.org/zap"
)

// Registry holds the live geofence boundaries and their per-driver
// containment state. Boundaries are ephemeral runtime state: they are created
// when a request is assigned, destroyed when it terminates, and evaluated
// edge-triggered on every accepted location sample.
type Registry struct {
	mu       sync.Mutex
	byID     map[string]*domain.GeofenceBoundary
	byDriver map[string]map[string]*domain.GeofenceBoundary
	byReq    map[string]map[string]*domain.GeofenceBoundary

	radiusM float64
	log     *zap.Logger
}

// NewRegistry creates an empty geofence registry with the given boundary
// radius for request-bound fences.
func NewRegistry(radiusM float64, log *zap.Logger) *Registry {
	if radiusM <= 0 {
		radiusM = 100
	}
	return &Registry{
		byID:     make(map[string]*domain.GeofenceBoundary),
		byDriver: make(map[string]map[string]*domain.GeofenceBoundary),
		byReq:    make(map[string]map[string]*domain.GeofenceBoundary),
		radiusM:  radiusM,
		log:      log,
	}
}

// CreateForRequest instantiates the pickup and delivery boundaries of a
// freshly assigned request. Both start as not-inside regardless of where the
// driver currently is; containment resolves on the next accepted sample.
func (r *Registry) CreateForRequest(requestID, driverID string, pickup, delivery geo.Coordinate) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.add(&domain.GeofenceBoundary{
		ID:        requestID + ":pickup",
		RequestID: requestID,
		DriverID:  driverID,
		Kind:      domain.BoundaryPickup,
		Center:    pickup,
		RadiusM:   r.radiusM,
	})
	r.add(&domain.GeofenceBoundary{
		ID:        requestID + ":delivery",
		RequestID: requestID,
		DriverID:  driverID,
		Kind:      domain.BoundaryDelivery,
		Center:    delivery,
		RadiusM:   r.radiusM,
	})

	r.log.Debug("geofences created",
		zap.String("request_id", requestID),
		zap.String("driver_id", driverID),
	)
}

// AddZone registers a static zone boundary for a driver, e.g. a depot or a
// restricted area.
func (r *Registry) AddZone(id, driverID string, center geo.Coordinate, radiusM float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if radiusM <= 0 {
		radiusM = r.radiusM
	}
	r.add(&domain.GeofenceBoundary{
		ID:       id,
		DriverID: driverID,
		Kind:     domain.BoundaryZone,
		Center:   center,
		RadiusM:  radiusM,
	})
}

// RemoveForRequest destroys every boundary bound to the request.
func (r *Registry) RemoveForRequest(requestID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, b := range r.byReq[requestID] {
		delete(r.byID, id)
		if fences := r.byDriver[b.DriverID]; fences != nil {
			delete(fences, id)
			if len(fences) == 0 {
				delete(r.byDriver, b.DriverID)
			}
		}
	}
	delete(r.byReq, requestID)
}

// Evaluate checks the sample against every boundary of its driver and flips
// containment state edge-triggered: a crossing is reported only when the
// sample lands on the other side of where the boundary last saw the driver.
// Entering a boundary latches its visited flag.
func (r *Registry) Evaluate(sample domain.LocationSample) []domain.Crossing {
	r.mu.Lock()
	defer r.mu.Unlock()

	var crossings []domain.Crossing
	for _, b := range r.byDriver[sample.DriverID] {
		inside := b.Contains(sample.Coordinate)
		if inside == b.Inside {
			continue
		}

		b.Inside = inside
		if inside {
			b.Visited = true
		}
		crossings = append(crossings, domain.Crossing{
			Boundary: *b,
			Entered:  inside,
			Sample:   sample,
		})
	}
	return crossings
}

// PickupVisited reports whether the driver has entered the request's pickup
// boundary at least once. Current containment does not matter: a driver who
// picked up the parcel and drove off keeps the visit.
func (r *Registry) PickupVisited(requestID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, b := range r.byReq[requestID] {
		if b.Kind == domain.BoundaryPickup {
			return b.Visited
		}
	}
	return false
}

// BoundariesForDriver returns a snapshot of the driver's boundaries.
func (r *Registry) BoundariesForDriver(driverID string) []domain.GeofenceBoundary {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]domain.GeofenceBoundary, 0, len(r.byDriver[driverID]))
	for _, b := range r.byDriver[driverID] {
		out = append(out, *b)
	}
	return out
}

// add assumes r.mu is held. An existing boundary under the same id is
// replaced, losing its containment state.
func (r *Registry) add(b *domain.GeofenceBoundary) {
	if old, ok := r.byID[b.ID]; ok {
		r.remove(old)
	}

	r.byID[b.ID] = b
	if r.byDriver[b.DriverID] == nil {
		r.byDriver[b.DriverID] = make(map[string]*domain.GeofenceBoundary)
	}
	r.byDriver[b.DriverID][b.ID] = b
	if b.RequestID != "" {
		if r.byReq[b.RequestID] == nil {
			r.byReq[b.RequestID] = make(map[string]*domain.GeofenceBoundary)
		}
		r.byReq[b.RequestID][b.ID] = b
	}
}

// remove assumes r.mu is held.
func (r *Registry) remove(b *domain.GeofenceBoundary) {
	delete(r.byID, b.ID)
	if fences := r.byDriver[b.DriverID]; fences != nil {
		delete(fences, b.ID)
		if len(fences) == 0 {
			delete(r.byDriver, b.DriverID)
		}
	}
	if b.RequestID != "" {
		if fences := r.byReq[b.RequestID]; fences != nil {
			delete(fences, b.ID)
			if len(fences) == 0 {
				delete(r.byReq, b.RequestID)
			}
		}
	}
}
