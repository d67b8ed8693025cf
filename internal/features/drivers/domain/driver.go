package domain

import (
	"errors"
	"time"

	"delivery-engine/internal/core/geo"
)

// Availability is the derived availability state of a driver. It is never
// stored: it is computed from the active-assignment count and the manual
// offline flag so the two can never drift apart.
type Availability string

const (
	AvailabilityAvailable Availability = "AVAILABLE"
	AvailabilityBusy      Availability = "BUSY"
	AvailabilityOffline   Availability = "OFFLINE"
)

var (
	// ErrDriverNotFound is returned when no driver exists under the given id.
	ErrDriverNotFound = errors.New("driver not found")
	// ErrDriverBusy is returned when an operation requires the driver to hold
	// no active assignments (e.g., going offline mid-delivery).
	ErrDriverBusy = errors.New("driver holds an active assignment")
	// ErrDriverUnavailable is returned when a driver no longer qualifies for
	// an assignment at commit time.
	ErrDriverUnavailable = errors.New("driver unavailable")
	// ErrInvalidCapacity is returned for non-positive capacity values.
	ErrInvalidCapacity = errors.New("capacity must be positive")
)

// Position is a driver's last known fix.
type Position struct {
	Coordinate geo.Coordinate `json:"coordinate"`
	AccuracyM  float64        `json:"accuracy_m"`
	RecordedAt time.Time      `json:"recorded_at"`
	HeadingDeg *float64       `json:"heading_deg,omitempty"`
	SpeedMPS   *float64       `json:"speed_mps,omitempty"`
}

// Driver is a courier tracked by the engine.
type Driver struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Capacity      int       `json:"capacity"`
	ActiveCount   int       `json:"active_count"`
	ManualOffline bool      `json:"manual_offline"`
	LastPosition  *Position `json:"last_position,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// NewDriver creates a driver with the given capacity.
func NewDriver(id, name string, capacity int) (*Driver, error) {
	if capacity <= 0 {
		return nil, ErrInvalidCapacity
	}

	return &Driver{
		ID:        id,
		Name:      name,
		Capacity:  capacity,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// Availability derives the driver's availability. The manual offline flag
// wins over everything; otherwise the driver is busy at capacity.
func (d *Driver) Availability() Availability {
	if d.ManualOffline {
		return AvailabilityOffline
	}
	if d.ActiveCount >= d.Capacity {
		return AvailabilityBusy
	}
	return AvailabilityAvailable
}

// HasCapacity reports whether the driver can take one more assignment.
func (d *Driver) HasCapacity() bool {
	return d.Availability() == AvailabilityAvailable
}

// Candidate is a driver ranked for an assignment, with its distance to the
// pickup point. DistanceM is +Inf for drivers with no known position.
type Candidate struct {
	Driver    *Driver `json:"driver"`
	DistanceM float64 `json:"distance_m"`
}
