package geo

import "math"

// NearestOnSegment returns the point of segment a-b closest to p and its
// haversine distance from p. The projection treats latitude and longitude
// as planar, which holds for the short segments of a road polyline. A
// zero-length segment yields a.
func NearestOnSegment(p, a, b LatLon) (LatLon, float64) {
	dLat, dLon := b.Lat-a.Lat, b.Lon-a.Lon
	lenSq := dLat*dLat + dLon*dLon
	if lenSq == 0 {
		return a, Haversine(p, a)
	}
	t := ((p.Lat-a.Lat)*dLat + (p.Lon-a.Lon)*dLon) / lenSq
	t = math.Max(0, math.Min(1, t))
	q := LatLon{Lat: a.Lat + t*dLat, Lon: a.Lon + t*dLon}
	return q, Haversine(p, q)
}

// NearestOnPolyline returns the point of line closest to p and its distance
// in meters. An empty line yields p itself at distance 0; a single point is
// its own nearest point.
func NearestOnPolyline(p LatLon, line []LatLon) (LatLon, float64) {
	switch len(line) {
	case 0:
		return p, 0
	case 1:
		return line[0], Haversine(p, line[0])
	}
	best, bestDist := p, math.Inf(1)
	for i := 1; i < len(line); i++ {
		if q, d := NearestOnSegment(p, line[i-1], line[i]); d < bestDist {
			best, bestDist = q, d
		}
	}
	return best, bestDist
}
