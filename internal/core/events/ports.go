package events

import (
	"context"
	"time"
)

// Type identifies the kind of engine event.
type Type string

const (
	// TypeGeofenceEnter is emitted when a driver crosses into a boundary.
	TypeGeofenceEnter Type = "enter"
	// TypeGeofenceExit is emitted when a driver crosses out of a boundary.
	TypeGeofenceExit Type = "exit"
	// TypeStatusChanged is emitted on every delivery request transition.
	TypeStatusChanged Type = "statusChanged"
)

// Fix is the position sample attached to geofence events.
type Fix struct {
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	AccuracyM float64   `json:"accuracy_m"`
	Timestamp time.Time `json:"timestamp"`
}

// Event is a single notification emitted by the engine. Fields are populated
// according to Type: geofence events carry driver/boundary/fix, status events
// carry request/from/to.
type Event struct {
	Type         Type      `json:"type"`
	DriverID     string    `json:"driver_id,omitempty"`
	BoundaryID   string    `json:"boundary_id,omitempty"`
	BoundaryKind string    `json:"boundary_kind,omitempty"`
	RequestID    string    `json:"request_id,omitempty"`
	From         string    `json:"from,omitempty"`
	To           string    `json:"to,omitempty"`
	Fix          *Fix      `json:"fix,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// RoutingKey returns the topic routing key for the event.
func (e Event) RoutingKey() string {
	switch e.Type {
	case TypeGeofenceEnter:
		return "geofence.enter"
	case TypeGeofenceExit:
		return "geofence.exit"
	default:
		return "delivery.status.changed"
	}
}

// Sink is the outbound port for engine events. Delivery guarantees are the
// dispatcher's concern; the engine treats publishing as fire-and-forget.
type Sink interface {
	// Publish emits a single event.
	Publish(ctx context.Context, e Event) error
}
