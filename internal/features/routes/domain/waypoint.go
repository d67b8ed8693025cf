package domain

import (
	"delivery-engine/internal/core/geo"
)

// StopKind tells the driver what to do at the waypoint.
type StopKind string

const (
	StopPickup   StopKind = "pickup"
	StopDelivery StopKind = "delivery"
)

// Waypoint is one stop in a driver's working route. The next action for an
// assignment is its pickup until that pickup has been visited, then its
// delivery.
type Waypoint struct {
	RequestID  string         `json:"request_id"`
	Kind       StopKind       `json:"kind"`
	Coordinate geo.Coordinate `json:"coordinate"`
	Address    string         `json:"address,omitempty"`
}

// Route is a driver's ordered waypoint list with trip totals.
type Route struct {
	DriverID       string     `json:"driver_id"`
	Waypoints      []Waypoint `json:"waypoints"`
	TotalDistanceM float64    `json:"total_distance_m"`
}
