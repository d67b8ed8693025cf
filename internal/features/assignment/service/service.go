package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"delivery-engine/internal/core/events"
	"delivery-engine/internal/core/store"
	"delivery-engine/internal/features/assignment/domain"
	"delivery-engine/internal/features/assignment/ports"
	driverdomain "delivery-engine/internal/features/drivers/domain"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// casRetries bounds the retry loop of terminal transitions. Assign never
// retries: losing the request CAS is a real conflict, not contention noise.
const casRetries = 5

// Service is the assignment state machine. Every transition is an optimistic
// compare-and-set against the request document; the request write is the
// linearization point for assignment races.
type Service struct {
	repo      ports.RequestRepository
	drivers   ports.DriverRegistry
	geofences ports.GeofenceManager
	sink      events.Sink
	log       *zap.Logger
}

// NewService creates the assignment state machine.
func NewService(
	repo ports.RequestRepository,
	drivers ports.DriverRegistry,
	geofences ports.GeofenceManager,
	sink events.Sink,
	log *zap.Logger,
) *Service {
	return &Service{
		repo:      repo,
		drivers:   drivers,
		geofences: geofences,
		sink:      sink,
		log:       log,
	}
}

// Create takes in a new delivery request in PENDING state.
func (s *Service) Create(ctx context.Context, pickup, delivery domain.Stop) (*domain.DeliveryRequest, error) {
	request, err := domain.NewDeliveryRequest(uuid.NewString(), pickup, delivery)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Insert(ctx, request); err != nil {
		return nil, err
	}

	s.log.Info("request created", zap.String("request_id", request.ID))
	return request, nil
}

// Get returns a request by its tracking id.
func (s *Service) Get(ctx context.Context, id string) (*domain.DeliveryRequest, error) {
	request, _, err := s.repo.Get(ctx, id)
	return request, err
}

// ListActiveByDriver returns the requests a driver currently holds.
func (s *Service) ListActiveByDriver(ctx context.Context, driverID string) ([]*domain.DeliveryRequest, error) {
	return s.repo.ListActiveByDriver(ctx, driverID)
}

// CandidatesFor returns available drivers ranked by distance to the
// request's pickup point.
func (s *Service) CandidatesFor(ctx context.Context, requestID string) ([]driverdomain.Candidate, error) {
	request, _, err := s.repo.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	return s.drivers.CandidatesFor(ctx, request.Pickup.Coordinate)
}

// Assign claims a PENDING request for a driver.
//
// The request CAS decides the race: of two concurrent assigns exactly one
// succeeds and the loser returns ErrConflict without ever touching the
// driver's counter. Driver eligibility is re-validated inside the counter
// increment; if the driver no longer qualifies at commit time the request
// write is rolled back before reporting ErrDriverUnavailable.
func (s *Service) Assign(ctx context.Context, requestID, driverID string) (*domain.DeliveryRequest, error) {
	request, version, err := s.repo.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if request.Status != domain.StatusPending {
		return nil, fmt.Errorf("%w: %s is %s", domain.ErrConflict, requestID, request.Status)
	}

	driver, err := s.drivers.Get(ctx, driverID)
	if err != nil {
		return nil, err
	}
	if !driver.HasCapacity() {
		return nil, fmt.Errorf("%w: %s is %s", driverdomain.ErrDriverUnavailable, driverID, driver.Availability())
	}

	now := time.Now().UTC()
	request.Status = domain.StatusAssigned
	request.AssignedDriver = driverID
	request.AssignedAt = &now
	request.StatusChangedAt = now

	if err := s.repo.Update(ctx, request, version); err != nil {
		if errors.Is(err, store.ErrVersionConflict) {
			return nil, fmt.Errorf("%w: %s", domain.ErrConflict, requestID)
		}
		return nil, err
	}

	if err := s.drivers.IncrementActive(ctx, driverID); err != nil {
		s.rollbackAssign(ctx, requestID, driverID)
		if errors.Is(err, driverdomain.ErrDriverUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to reserve driver %s: %w", driverID, err)
	}

	// Side effects only after both documents committed: nothing to unwind if
	// the assign loses.
	s.geofences.CreateForRequest(request.ID, driverID, request.Pickup.Coordinate, request.Delivery.Coordinate)
	s.emitStatus(ctx, request.ID, domain.StatusPending, domain.StatusAssigned)

	s.log.Info("request assigned",
		zap.String("request_id", request.ID),
		zap.String("driver_id", driverID),
	)
	return request, nil
}

// MarkInProgress records that the driver started the delivery. Calling it
// again while already IN_PROGRESS is an idempotent success.
func (s *Service) MarkInProgress(ctx context.Context, requestID, driverID string) (*domain.DeliveryRequest, error) {
	request, version, err := s.repo.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}

	if driverID != "" && request.AssignedDriver != driverID {
		return nil, fmt.Errorf("%w: %s is not held by %s", domain.ErrInvalidTransition, requestID, driverID)
	}
	if request.Status == domain.StatusInProgress {
		return request, nil
	}
	if request.Status != domain.StatusAssigned {
		return nil, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, request.Status, domain.StatusInProgress)
	}

	request.Status = domain.StatusInProgress
	request.StatusChangedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, request, version); err != nil {
		if errors.Is(err, store.ErrVersionConflict) {
			return nil, fmt.Errorf("%w: %s", domain.ErrConflict, requestID)
		}
		return nil, err
	}

	s.emitStatus(ctx, requestID, domain.StatusAssigned, domain.StatusInProgress)
	return request, nil
}

// Complete closes a delivery that the driver finished.
func (s *Service) Complete(ctx context.Context, requestID string) (*domain.DeliveryRequest, error) {
	return s.finalize(ctx, requestID, domain.StatusCompleted, "")
}

// Cancel aborts an active delivery.
func (s *Service) Cancel(ctx context.Context, requestID string) (*domain.DeliveryRequest, error) {
	return s.finalize(ctx, requestID, domain.StatusCancelled, "")
}

// Fail records a driver-reported failure.
func (s *Service) Fail(ctx context.Context, requestID, reason string) (*domain.DeliveryRequest, error) {
	return s.finalize(ctx, requestID, domain.StatusFailed, reason)
}

// finalize moves a request into a terminal state: status written atomically
// with the cleared driver reference, then the driver slot released and the
// request's geofences destroyed. A request already terminal reports success
// without repeating any side effect, so caller retries are safe.
func (s *Service) finalize(ctx context.Context, requestID string, to domain.Status, reason string) (*domain.DeliveryRequest, error) {
	for attempt := 0; attempt < casRetries; attempt++ {
		request, version, err := s.repo.Get(ctx, requestID)
		if err != nil {
			return nil, err
		}

		if request.Status.Terminal() {
			return request, nil
		}
		if !request.Status.CanTransition(to) {
			return nil, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, request.Status, to)
		}

		from := request.Status
		driverID := request.AssignedDriver

		request.Status = to
		request.AssignedDriver = ""
		request.StatusChangedAt = time.Now().UTC()
		if to == domain.StatusFailed {
			request.FailureReason = reason
		}

		err = s.repo.Update(ctx, request, version)
		if errors.Is(err, store.ErrVersionConflict) {
			continue // concurrent transition; re-read and re-decide
		}
		if err != nil {
			return nil, err
		}

		if driverID != "" {
			if err := s.drivers.DecrementActive(ctx, driverID); err != nil {
				s.log.Error("failed to release driver slot",
					zap.String("request_id", requestID),
					zap.String("driver_id", driverID),
					zap.Error(err),
				)
			}
		}
		s.geofences.RemoveForRequest(requestID)
		s.emitStatus(ctx, requestID, from, to)

		s.log.Info("request finalized",
			zap.String("request_id", requestID),
			zap.String("status", string(to)),
		)
		return request, nil
	}

	return nil, fmt.Errorf("%w: %s", domain.ErrConflict, requestID)
}

// rollbackAssign reverts the request write of an assign whose driver
// reservation failed.
func (s *Service) rollbackAssign(ctx context.Context, requestID, driverID string) {
	for attempt := 0; attempt < casRetries; attempt++ {
		request, version, err := s.repo.Get(ctx, requestID)
		if err != nil {
			break
		}
		if request.Status != domain.StatusAssigned || request.AssignedDriver != driverID {
			return // someone else already moved it
		}

		request.Status = domain.StatusPending
		request.AssignedDriver = ""
		request.AssignedAt = nil
		request.StatusChangedAt = time.Now().UTC()

		err = s.repo.Update(ctx, request, version)
		if errors.Is(err, store.ErrVersionConflict) {
			continue
		}
		if err == nil {
			return
		}
		break
	}

	s.log.Error("failed to roll back assignment",
		zap.String("request_id", requestID),
		zap.String("driver_id", driverID),
	)
}

func (s *Service) emitStatus(ctx context.Context, requestID string, from, to domain.Status) {
	err := s.sink.Publish(ctx, events.Event{
		Type:       events.TypeStatusChanged,
		RequestID:  requestID,
		From:       string(from),
		To:         string(to),
		OccurredAt: time.Now().UTC(),
	})
	if err != nil {
		s.log.Warn("failed to publish status event",
			zap.String("request_id", requestID),
			zap.Error(err),
		)
	}
}
