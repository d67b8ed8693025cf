package domain

import (
	"errors"
	"time"

	"delivery-engine/internal/core/geo"
)

// BoundaryKind classifies a geofence boundary.
type BoundaryKind string

const (
	// BoundaryPickup surrounds a request's pickup point.
	BoundaryPickup BoundaryKind = "pickup"
	// BoundaryDelivery surrounds a request's delivery point.
	BoundaryDelivery BoundaryKind = "delivery"
	// BoundaryZone is a static zone not tied to a request.
	BoundaryZone BoundaryKind = "zone"
)

var (
	// ErrStaleSample marks a sample older than the last accepted one for the
	// driver. Non-fatal: logged, dropped, stream continues.
	ErrStaleSample = errors.New("stale location sample")
	// ErrLowAccuracy marks a sample whose accuracy radius exceeds the
	// configured ceiling. It may still refresh last-known-position but never
	// drives geofence evaluation.
	ErrLowAccuracy = errors.New("low accuracy location sample")
)

// LocationSample is a single raw position fix for a driver.
type LocationSample struct {
	DriverID   string         `json:"driver_id"`
	Coordinate geo.Coordinate `json:"coordinate"`
	AccuracyM  float64        `json:"accuracy_m"`
	Timestamp  time.Time      `json:"timestamp"`
	HeadingDeg *float64       `json:"heading_deg,omitempty"`
	SpeedMPS   *float64       `json:"speed_mps,omitempty"`
}

// GeofenceBoundary is a circular boundary with per-driver containment state.
// Inside flips edge-triggered: it changes only when a crossing is detected.
// Visited latches on the first enter and never resets, which is what the
// waypoint builder keys off.
type GeofenceBoundary struct {
	ID        string         `json:"id"`
	RequestID string         `json:"request_id,omitempty"`
	DriverID  string         `json:"driver_id"`
	Kind      BoundaryKind   `json:"kind"`
	Center    geo.Coordinate `json:"center"`
	RadiusM   float64        `json:"radius_m"`
	Inside    bool           `json:"inside"`
	Visited   bool           `json:"visited"`
}

// Contains reports whether the coordinate falls within the boundary.
func (b *GeofenceBoundary) Contains(c geo.Coordinate) bool {
	return geo.DistanceM(c, b.Center) <= b.RadiusM
}

// Crossing is an edge-triggered containment change for one boundary.
type Crossing struct {
	Boundary GeofenceBoundary
	Entered  bool
	Sample   LocationSample
}
