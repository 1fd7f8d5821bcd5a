package planner

import (
	"math"

	"github.com/banshee-data/trajectory/internal/geo"
)

// Target speed bounds in km/h.
const (
	MinTargetKmh = 15.0
	MaxTargetKmh = 120.0

	// defaultBaseKmh is the urban base speed when nothing better is known.
	defaultBaseKmh = 50.0
	// curveLateral is the lateral acceleration (m/s²) CurveSpeedKmh allows.
	curveLateral = 2.0
)

// RoadPoint is a polyline vertex with the road attributes a target speed
// depends on. FunctionalClass runs from 1 (motorway) down; 0 means unknown.
type RoadPoint struct {
	geo.LatLon
	Elevation       float64
	FunctionalClass int
}

// LegalLimitKmh is the posted limit assumed for a road class. Unknown classes
// get fallback.
func LegalLimitKmh(fc int, fallback float64) float64 {
	switch {
	case fc <= 0:
		return fallback
	case fc == 1:
		return 120
	case fc == 2:
		return 90
	case fc == 3:
		return 82
	default:
		return 50
	}
}

// baseSpeedKmh picks the free-flow speed for a point from its road class or,
// without one, from the mean length of the surrounding segments. Long
// segments mean a faster road.
func baseSpeedKmh(points []RoadPoint, i int) float64 {
	n := len(points)
	switch fc := points[i].FunctionalClass; {
	case fc == 1:
		return 110
	case fc == 2:
		return 90
	case fc == 3:
		return 82
	case fc > 3:
		return 60
	}
	if i <= 2 || i >= n-2 {
		return defaultBaseKmh
	}
	sum, count := 0.0, 0
	for j := i - 2; j <= i+2; j++ {
		if j < n-1 {
			sum += geo.Haversine(points[j].LatLon, points[j+1].LatLon)
			count++
		}
	}
	avg := sum / float64(count)
	switch {
	case avg > 60:
		return 90
	case avg > 30:
		return 70
	}
	return defaultBaseKmh
}

// slopeFactor scales speed for the grade of the segment leaving a point.
// Grades under 0.3% count as flat.
func slopeFactor(points []RoadPoint, i int) float64 {
	if i >= len(points)-1 {
		return 1
	}
	dist := geo.Haversine(points[i].LatLon, points[i+1].LatLon)
	if dist <= 0 {
		return 1
	}
	s := (points[i+1].Elevation - points[i].Elevation) / dist * 100
	if math.Abs(s) < 0.3 {
		s = 0
	}
	switch {
	case s > 8:
		return 0.6
	case s > 4:
		return 0.8
	case s < -8:
		return 0.7
	case s < -4:
		return 0.9
	}
	return 1
}

// curveFactor scales speed for the heading change at an interior point.
// Classes 1 and 2 are penalised less since their bends are wider.
func curveFactor(points []RoadPoint, i int) float64 {
	if i <= 0 || i >= len(points)-1 {
		return 1
	}
	in := geo.Bearing(points[i-1].LatLon, points[i].LatLon)
	out := geo.Bearing(points[i].LatLon, points[i+1].LatLon)
	angle := math.Abs(geo.Wrap(out - in))

	if fc := points[i].FunctionalClass; fc > 0 && fc <= 2 {
		switch {
		case angle > 0.6:
			return 0.7
		case angle > 0.4:
			return 0.85
		case angle > 0.15:
			return 0.95
		}
		return 1
	}
	switch {
	case angle > 0.5:
		return 0.4
	case angle > 0.3:
		return 0.7
	case angle > 0.1:
		return 0.9
	}
	return 1
}

// SmartTargetKmh is the target speed at points[i] in km/h: a base speed for
// the road, scaled by grade and bend, within [MinTargetKmh, MaxTargetKmh].
// Classes 1 and 2 keep at least 70% of their base (at most 80 km/h) so a
// single bend does not drag a motorway down to town speed.
func SmartTargetKmh(points []RoadPoint, i int) float64 {
	if i < 0 || i >= len(points) {
		return defaultBaseKmh
	}
	base := baseSpeedKmh(points, i)
	target := base * slopeFactor(points, i) * curveFactor(points, i)
	if fc := points[i].FunctionalClass; fc > 0 && fc <= 2 {
		target = math.Max(math.Min(base*0.7, 80), target)
	}
	return clamp(target, MinTargetKmh, MaxTargetKmh)
}

// SmartTargets returns SmartTargetKmh for every point, capped at the legal
// limit of its road class. Points of unknown class are capped at legalKmh.
func SmartTargets(points []RoadPoint, legalKmh float64) []float64 {
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = math.Min(SmartTargetKmh(points, i), LegalLimitKmh(p.FunctionalClass, legalKmh))
	}
	return out
}

// CurveSpeedKmh is the fastest comfortable speed through a turn of turnRad
// spread over segmentLen meters. The arc radius is segmentLen/|turn|; sharp
// turns are further derated. The result is within [MinTargetKmh,
// MaxTargetKmh].
func CurveSpeedKmh(turnRad, segmentLen float64) float64 {
	turn := math.Abs(turnRad)
	if turn < 1e-3 {
		return MaxTargetKmh
	}
	radius := math.Max(1, segmentLen/math.Max(1e-3, turn))
	vmax := math.Min(math.Sqrt(curveLateral*radius)*3.6, MaxTargetKmh)
	switch deg := turn * 180 / math.Pi; {
	case deg > 90:
		vmax *= 0.35
	case deg > 60:
		vmax *= 0.55
	case deg > 30:
		vmax *= 0.75
	}
	return math.Max(MinTargetKmh, vmax)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
