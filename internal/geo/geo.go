// Package geo provides the small amount of geodesy the trajectory pipeline
// needs: great-circle distance and bearing between fixes, a local planar
// projection for the estimator, and WGS84 ECEF/ENU conversion for curvature.
package geo

import "math"

// EarthRadius is the equatorial radius in meters used for haversine distance
// and the equirectangular projection.
const EarthRadius = 6378137.0

// LatLon is a geographic coordinate in decimal degrees.
type LatLon struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

func degToRad(d float64) float64 { return d * math.Pi / 180.0 }
func radToDeg(r float64) float64 { return r * 180.0 / math.Pi }

// Haversine returns the great-circle distance between a and b in meters.
func Haversine(a, b LatLon) float64 {
	dLat := degToRad(b.Lat - a.Lat)
	dLon := degToRad(b.Lon - a.Lon)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(degToRad(a.Lat))*math.Cos(degToRad(b.Lat))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return EarthRadius * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// Bearing returns the initial bearing from a to b in radians, measured
// clockwise from north, in [-π, π].
func Bearing(a, b LatLon) float64 {
	lat1, lat2 := degToRad(a.Lat), degToRad(b.Lat)
	dLon := degToRad(b.Lon - a.Lon)
	y := math.Sin(dLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)
	return math.Atan2(y, x)
}

// SlopeDeg returns the slope angle in degrees for an elevation change dz over
// a horizontal distance. Distances at or below a micrometre yield 0.
func SlopeDeg(dz, dist float64) float64 {
	if dist <= 1e-6 {
		return 0
	}
	return radToDeg(math.Atan2(dz, dist))
}

// Wrap normalizes an angle in radians to (-π, π].
func Wrap(angle float64) float64 {
	if math.IsNaN(angle) || math.IsInf(angle, 0) {
		return angle
	}
	a := math.Mod(angle+math.Pi, 2*math.Pi)
	if a <= 0 {
		a += 2 * math.Pi
	}
	return a - math.Pi
}

// PolylineLength sums the haversine lengths of consecutive segments.
func PolylineLength(points []LatLon) float64 {
	total := 0.0
	for i := 1; i < len(points); i++ {
		total += Haversine(points[i-1], points[i])
	}
	return total
}
