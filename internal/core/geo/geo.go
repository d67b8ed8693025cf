package geo

import "math"

// EarthRadiusM is the mean Earth radius in meters used for great-circle math.
const EarthRadiusM = 6371000.0

// Coordinate is a WGS84 point in decimal degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether the coordinate is within latitude/longitude bounds.
func (c Coordinate) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}

// DistanceM returns the great-circle (haversine) distance between two
// coordinates in meters.
func DistanceM(a, b Coordinate) float64 {
	phi1 := degToRad(a.Lat)
	phi2 := degToRad(b.Lat)
	dPhi := degToRad(b.Lat - a.Lat)
	dLambda := degToRad(b.Lng - a.Lng)

	h := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return EarthRadiusM * c
}

// BearingDeg returns the initial bearing from a to b in degrees, normalized
// to [0, 360).
func BearingDeg(a, b Coordinate) float64 {
	phi1 := degToRad(a.Lat)
	phi2 := degToRad(b.Lat)
	dLambda := degToRad(b.Lng - a.Lng)

	y := math.Sin(dLambda) * math.Cos(phi2)
	x := math.Cos(phi1)*math.Sin(phi2) - math.Sin(phi1)*math.Cos(phi2)*math.Cos(dLambda)

	deg := math.Atan2(y, x) * 180 / math.Pi
	return math.Mod(deg+360, 360)
}

func degToRad(deg float64) float64 {
	return deg * math.Pi / 180
}
