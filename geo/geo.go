package geo

import (
	"github.com/golang/geo/s2"
)

const earthRadiusMeters = 6371010.0

// DistanceMeters returns the great-circle distance between two
// lat/lng points in meters.
func DistanceMeters(lat1, lon1, lat2, lon2 float64) float64 {
	p1 := s2.LatLngFromDegrees(lat1, lon1)
	p2 := s2.LatLngFromDegrees(lat2, lon2)
	return p1.Distance(p2).Radians() * earthRadiusMeters
}

// WithinRadius reports whether the two points are at most radiusM
// meters apart.
func WithinRadius(lat1, lon1, lat2, lon2 float64, radiusM int) bool {
	return DistanceMeters(lat1, lon1, lat2, lon2) <= float64(radiusM)
}
