// Package geo provides great-circle distance and spatial containment
// primitives over latitude/longitude pairs.
package geo

import (
	"github.com/golang/geo/s2"
)

// Constants
const (
	EarthRadiusKm     = 6371.0    // Earth's mean radius in kilometers
	EarthRadiusMeters = 6371000.0 // Earth's mean radius in meters
)

// HaversineKm calculates the great-circle distance between two points in
// kilometers using the haversine formula.
func HaversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	p1 := s2.LatLngFromDegrees(lat1, lon1)
	p2 := s2.LatLngFromDegrees(lat2, lon2)
	return p1.Distance(p2).Radians() * EarthRadiusKm
}

// BoundingBox is a latitude/longitude axis-aligned rectangle.
type BoundingBox struct {
	LatMin float64
	LatMax float64
	LonMin float64
	LonMax float64
}

// Contains reports whether the point falls strictly inside the box.
// Points on the boundary are excluded.
func (b BoundingBox) Contains(lat, lon float64) bool {
	return lat > b.LatMin && lat < b.LatMax && lon > b.LonMin && lon < b.LonMax
}

// Valid reports whether the box spans a non-empty area.
func (b BoundingBox) Valid() bool {
	return b.LatMin < b.LatMax && b.LonMin < b.LonMax
}
