// Package geo provides great-circle math for geofence checks.
package geo

import "math"

const earthRadiusMeters = 6371000.0

type LatLon struct {
	Lat float64
	Lon float64
}

// DistanceMeters returns the haversine great-circle distance between
// two coordinates given in degrees. Invalid coordinates propagate NaN.
func DistanceMeters(a, b LatLon) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)
	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLon*sinLon

	return 2 * earthRadiusMeters * math.Asin(math.Sqrt(h))
}

// IsInside reports whether point lies within radiusMeters of center.
func IsInside(point, center LatLon, radiusMeters float64) bool {
	return DistanceMeters(point, center) <= radiusMeters
}
