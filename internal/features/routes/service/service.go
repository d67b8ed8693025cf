package service

import (
	"context"
	"sort"

	"delivery-engine/internal/core/geo"
	"delivery-engine/internal/features/routes/domain"
	"delivery-engine/internal/features/routes/ports"

	"go.uber.org/zap"
)

// Service builds working routes for drivers from their active assignments and
// the pickup progress reported by the geofence registry.
type Service struct {
	assignments ports.AssignmentSource
	visits      ports.VisitTracker
	drivers     ports.DriverSource
	log         *zap.Logger
}

// NewService creates the route builder.
func NewService(
	assignments ports.AssignmentSource,
	visits ports.VisitTracker,
	drivers ports.DriverSource,
	log *zap.Logger,
) *Service {
	return &Service{
		assignments: assignments,
		visits:      visits,
		drivers:     drivers,
		log:         log,
	}
}

// BuildRoute computes the driver's current route: one waypoint per active
// assignment, oldest assignment first. Until the driver has entered a
// request's pickup boundary the waypoint is its pickup; afterwards it is the
// delivery, so a request never contributes more than one pending stop. An
// idle driver gets an empty route.
func (s *Service) BuildRoute(ctx context.Context, driverID string) (*domain.Route, error) {
	driver, err := s.drivers.Get(ctx, driverID)
	if err != nil {
		return nil, err
	}

	requests, err := s.assignments.ListActiveByDriver(ctx, driverID)
	if err != nil {
		return nil, err
	}
	sort.Slice(requests, func(i, j int) bool {
		if !requests[i].CreatedAt.Equal(requests[j].CreatedAt) {
			return requests[i].CreatedAt.Before(requests[j].CreatedAt)
		}
		return requests[i].ID < requests[j].ID
	})

	waypoints := make([]domain.Waypoint, 0, len(requests))
	for _, r := range requests {
		stop := r.Pickup
		kind := domain.StopPickup
		if s.visits.PickupVisited(r.ID) {
			stop = r.Delivery
			kind = domain.StopDelivery
		}
		waypoints = append(waypoints, domain.Waypoint{
			RequestID:  r.ID,
			Kind:       kind,
			Coordinate: stop.Coordinate,
			Address:    stop.Address,
		})
	}

	var start *geo.Coordinate
	if driver.LastPosition != nil {
		start = &driver.LastPosition.Coordinate
	}

	route := &domain.Route{
		DriverID:       driverID,
		Waypoints:      waypoints,
		TotalDistanceM: totalDistance(start, waypoints),
	}

	s.log.Debug("route built",
		zap.String("driver_id", driverID),
		zap.Int("waypoints", len(waypoints)),
	)
	return route, nil
}

// totalDistance sums the leg distances from the driver's last known position
// through the waypoints in order. Legs before the first known coordinate are
// skipped.
func totalDistance(start *geo.Coordinate, waypoints []domain.Waypoint) float64 {
	var total float64
	prev := start
	for i := range waypoints {
		if prev != nil {
			total += geo.DistanceM(*prev, waypoints[i].Coordinate)
		}
		prev = &waypoints[i].Coordinate
	}
	return total
}
