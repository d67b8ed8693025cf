package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"delivery-engine/internal/core/geo"
	"delivery-engine/internal/core/store"
	"delivery-engine/internal/features/drivers/domain"
	"delivery-engine/internal/features/drivers/ports"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// casRetries bounds optimistic read-modify-write loops against the store.
const casRetries = 5

// errNoChange short-circuits a mutation that decided not to write.
var errNoChange = errors.New("no change")

// Service is the driver availability registry: onboarding, derived
// availability, last-known-position upkeep and active-assignment counters.
type Service struct {
	repo            ports.DriverRepository
	defaultCapacity int
	log             *zap.Logger
}

// NewService creates the driver registry service.
func NewService(repo ports.DriverRepository, defaultCapacity int, log *zap.Logger) *Service {
	if defaultCapacity <= 0 {
		defaultCapacity = 1
	}
	return &Service{
		repo:            repo,
		defaultCapacity: defaultCapacity,
		log:             log,
	}
}

// Onboard registers a driver. An empty id gets a generated one; a
// non-positive capacity falls back to the configured default.
func (s *Service) Onboard(ctx context.Context, id, name string, capacity int) (*domain.Driver, error) {
	if id == "" {
		id = uuid.NewString()
	}
	if capacity <= 0 {
		capacity = s.defaultCapacity
	}

	driver, err := domain.NewDriver(id, name, capacity)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Insert(ctx, driver); err != nil {
		return nil, err
	}

	s.log.Info("driver onboarded",
		zap.String("driver_id", driver.ID),
		zap.Int("capacity", driver.Capacity),
	)
	return driver, nil
}

// Get returns a driver by id.
func (s *Service) Get(ctx context.Context, id string) (*domain.Driver, error) {
	driver, _, err := s.repo.Get(ctx, id)
	return driver, err
}

// SetManualOffline toggles the manual offline flag. Going offline is rejected
// with ErrDriverBusy while the driver holds an active assignment, so an
// in-flight delivery can never be orphaned.
func (s *Service) SetManualOffline(ctx context.Context, id string, offline bool) (*domain.Driver, error) {
	return s.mutate(ctx, id, func(d *domain.Driver) error {
		if d.ManualOffline == offline {
			return errNoChange
		}
		if offline && d.ActiveCount > 0 {
			return fmt.Errorf("%w: %s", domain.ErrDriverBusy, id)
		}
		d.ManualOffline = offline
		return nil
	})
}

// RecordPosition stores the fix as the driver's last known position unless a
// fresher one is already held.
func (s *Service) RecordPosition(ctx context.Context, id string, pos domain.Position) error {
	_, err := s.mutate(ctx, id, func(d *domain.Driver) error {
		if d.LastPosition != nil && !pos.RecordedAt.After(d.LastPosition.RecordedAt) {
			return errNoChange
		}
		d.LastPosition = &pos
		return nil
	})
	return err
}

// IncrementActive reserves one assignment slot. Eligibility is re-validated
// on every attempt, so the check and the write happen against the same
// document version.
func (s *Service) IncrementActive(ctx context.Context, id string) error {
	_, err := s.mutate(ctx, id, func(d *domain.Driver) error {
		if !d.HasCapacity() {
			return fmt.Errorf("%w: %s is %s", domain.ErrDriverUnavailable, id, d.Availability())
		}
		d.ActiveCount++
		return nil
	})
	return err
}

// DecrementActive releases one assignment slot, flooring at zero.
func (s *Service) DecrementActive(ctx context.Context, id string) error {
	_, err := s.mutate(ctx, id, func(d *domain.Driver) error {
		if d.ActiveCount == 0 {
			return errNoChange
		}
		d.ActiveCount--
		return nil
	})
	return err
}

// CandidatesFor ranks AVAILABLE drivers by distance to the pickup point,
// nearest first, ties broken by lowest active count then by driver id.
// Drivers without a known position sort last.
func (s *Service) CandidatesFor(ctx context.Context, pickup geo.Coordinate) ([]domain.Candidate, error) {
	drivers, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	candidates := make([]domain.Candidate, 0, len(drivers))
	for _, d := range drivers {
		if d.Availability() != domain.AvailabilityAvailable {
			continue
		}

		distance := math.Inf(1)
		if d.LastPosition != nil {
			distance = geo.DistanceM(d.LastPosition.Coordinate, pickup)
		}
		candidates = append(candidates, domain.Candidate{Driver: d, DistanceM: distance})
	}

	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.DistanceM != b.DistanceM {
			return a.DistanceM < b.DistanceM
		}
		if a.Driver.ActiveCount != b.Driver.ActiveCount {
			return a.Driver.ActiveCount < b.Driver.ActiveCount
		}
		return a.Driver.ID < b.Driver.ID
	})

	return candidates, nil
}

// mutate runs a bounded optimistic read-modify-write loop over one driver
// document. The mutation fn sees the freshly read driver on every attempt.
func (s *Service) mutate(ctx context.Context, id string, fn func(*domain.Driver) error) (*domain.Driver, error) {
	var lastErr error

	for attempt := 0; attempt < casRetries; attempt++ {
		driver, version, err := s.repo.Get(ctx, id)
		if err != nil {
			return nil, err
		}

		if err := fn(driver); err != nil {
			if errors.Is(err, errNoChange) {
				return driver, nil
			}
			return nil, err
		}

		err = s.repo.Update(ctx, driver, version)
		if err == nil {
			return driver, nil
		}
		if !errors.Is(err, store.ErrVersionConflict) {
			return nil, err
		}

		lastErr = err
		s.log.Debug("driver update lost the race, retrying",
			zap.String("driver_id", id),
			zap.Int("attempt", attempt+1),
		)
	}

	return nil, fmt.Errorf("driver %s: retries exhausted: %w", id, lastErr)
}
