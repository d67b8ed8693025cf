package domain

import (
	"errors"
	"time"

	"delivery-engine/internal/core/geo"
)

// Status is the lifecycle state of a delivery request.
//
//	PENDING → ASSIGNED → IN_PROGRESS → COMPLETED
//	ASSIGNED/IN_PROGRESS → CANCELLED
//	ASSIGNED/IN_PROGRESS → FAILED
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusAssigned   Status = "ASSIGNED"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusCancelled  Status = "CANCELLED"
	StatusFailed     Status = "FAILED"
)

var (
	// ErrRequestNotFound is returned when no request exists under the id.
	ErrRequestNotFound = errors.New("delivery request not found")
	// ErrConflict is returned when a transition lost a race for an
	// already-claimed request. Callers should re-fetch and pick another
	// target rather than retry the same assignment.
	ErrConflict = errors.New("request already claimed")
	// ErrInvalidTransition is returned for illegal state changes. Not
	// retryable.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrInvalidCoordinates is returned for out-of-range pickup/delivery
	// coordinates at intake.
	ErrInvalidCoordinates = errors.New("invalid coordinates")
)

// Active reports whether the status holds a driver reference.
func (s Status) Active() bool {
	return s == StatusAssigned || s == StatusInProgress
}

// Terminal reports whether the status is final.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusFailed
}

// legalTransitions encodes the lifecycle edges.
var legalTransitions = map[Status][]Status{
	StatusPending:    {StatusAssigned},
	StatusAssigned:   {StatusInProgress, StatusCancelled, StatusFailed},
	StatusInProgress: {StatusCompleted, StatusCancelled, StatusFailed},
}

// CanTransition reports whether from → to is a legal lifecycle edge.
func (s Status) CanTransition(to Status) bool {
	for _, next := range legalTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Stop is a pickup or delivery point with its address metadata.
type Stop struct {
	Coordinate geo.Coordinate `json:"coordinate"`
	Address    string         `json:"address,omitempty"`
	Contact    string         `json:"contact,omitempty"`
	Notes      string         `json:"notes,omitempty"`
}

// DeliveryRequest is a tracked delivery moving through the lifecycle.
// AssignedDriver is non-empty if and only if Status is active.
type DeliveryRequest struct {
	ID              string     `json:"id"`
	Status          Status     `json:"status"`
	Pickup          Stop       `json:"pickup"`
	Delivery        Stop       `json:"delivery"`
	AssignedDriver  string     `json:"assigned_driver,omitempty"`
	FailureReason   string     `json:"failure_reason,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	AssignedAt      *time.Time `json:"assigned_at,omitempty"`
	StatusChangedAt time.Time  `json:"status_changed_at"`
}

// NewDeliveryRequest creates a PENDING request after validating coordinates.
func NewDeliveryRequest(id string, pickup, delivery Stop) (*DeliveryRequest, error) {
	if !pickup.Coordinate.Valid() || !delivery.Coordinate.Valid() {
		return nil, ErrInvalidCoordinates
	}

	now := time.Now().UTC()
	return &DeliveryRequest{
		ID:              id,
		Status:          StatusPending,
		Pickup:          pickup,
		Delivery:        delivery,
		CreatedAt:       now,
		StatusChangedAt: now,
	}, nil
}

// Consistent reports the driver-reference invariant: a driver is held exactly
// while the request is in an active state.
func (r *DeliveryRequest) Consistent() bool {
	return (r.AssignedDriver != "") == r.Status.Active()
}
