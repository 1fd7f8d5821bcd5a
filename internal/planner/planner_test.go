package planner

import (
	"math"
	"testing"

	"github.com/banshee-data/trajectory/internal/config"
	"github.com/banshee-data/trajectory/internal/geo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// straightRoute returns n points heading north, spacing meters apart.
func straightRoute(n int, spacing float64) []geo.LatLon {
	p := geo.NewProjection(geo.LatLon{Lat: 41.0, Lon: 29.0})
	pts := make([]geo.LatLon, n)
	for i := range pts {
		pts[i] = p.ToLatLon(0, float64(i)*spacing)
	}
	return pts
}

func constant(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestPlanErrors(t *testing.T) {
	_, err := Plan(straightRoute(1, 10), []float64{10}, 1, DefaultLimits())
	assert.ErrorIs(t, err, ErrTooShort)

	_, err = Plan(straightRoute(5, 10), []float64{10, 10}, 1, DefaultLimits())
	assert.ErrorIs(t, err, ErrLimitMismatch)
}

func TestPlanStraightRoute(t *testing.T) {
	const n = 60
	const limit = 15.0
	pts := straightRoute(n, 20)
	prof, err := Plan(pts, constant(n, limit), 1.0, DefaultLimits())
	require.NoError(t, err)
	require.Len(t, prof.Speeds, n)
	require.Len(t, prof.Segments, n-1)

	assert.Equal(t, 0.0, prof.Speeds[0], "starts from rest")
	assert.InDelta(t, limit, prof.Speeds[n/2], 1e-9, "reaches the limit mid-route")
	assert.InDelta(t, geo.PolylineLength(pts)/1000, prof.DistanceKm, 1e-9)
	assert.Greater(t, prof.ETAMinutes, (prof.DistanceKm*1000/limit)/60)
}

func TestPlanRespectsLimits(t *testing.T) {
	lim := DefaultLimits()
	const dt = 0.5
	// A route that turns: north then east with a tight corner.
	p := geo.NewProjection(geo.LatLon{Lat: 41.0, Lon: 29.0})
	var pts []geo.LatLon
	for i := 0; i < 30; i++ {
		pts = append(pts, p.ToLatLon(0, float64(i)*15))
	}
	for i := 1; i < 30; i++ {
		pts = append(pts, p.ToLatLon(float64(i)*15, 29*15))
	}
	limits := constant(len(pts), 25)
	limits[10] = 8 // a slow zone

	prof, err := Plan(pts, limits, dt, lim)
	require.NoError(t, err)
	v := prof.Speeds
	ds := prof.Segments
	kappa := geo.Curvature(pts)

	for i := range v {
		assert.LessOrEqual(t, v[i], limits[i]+1e-9, "free-flow cap at %d", i)
		assert.GreaterOrEqual(t, v[i], 0.0)
		if kappa[i] > 1e-9 {
			assert.LessOrEqual(t, v[i]*v[i]*kappa[i], lim.LateralAccel+1e-6, "lateral cap at %d", i)
		}
	}
	for i := 1; i < len(v); i++ {
		assert.LessOrEqual(t, v[i]*v[i], v[i-1]*v[i-1]+2*lim.DriveAccel*ds[i-1]+1e-6, "drive limit at %d", i)
		assert.LessOrEqual(t, v[i], v[i-1]+lim.DriveAccel*dt+1e-9, "drive step at %d", i)
		assert.LessOrEqual(t, v[i-1]*v[i-1], v[i]*v[i]+2*lim.BrakeDecel*ds[i-1]+1e-6, "brake limit at %d", i)
	}

	// The corner is the slowest point after the start.
	corner := 29
	assert.Less(t, v[corner], 10.0)
}

func TestPlanPerSegmentLimits(t *testing.T) {
	pts := straightRoute(4, 100)
	perSegment, err := Plan(pts, []float64{10, 10, 10}, 1, DefaultLimits())
	require.NoError(t, err)
	perPoint, err := Plan(pts, []float64{10, 10, 10, 10}, 1, DefaultLimits())
	require.NoError(t, err)
	assert.Equal(t, perPoint.Speeds, perSegment.Speeds)
}

func TestPlanStationaryETA(t *testing.T) {
	pts := straightRoute(3, 10)
	prof, err := Plan(pts, []float64{0, 0, 0}, 1, DefaultLimits())
	require.NoError(t, err)
	assert.InDelta(t, 20/minETASpeed/60, prof.ETAMinutes, 1e-6)
	assert.False(t, math.IsInf(prof.ETAMinutes, 0))
}

func TestLimitsFromTuning(t *testing.T) {
	assert.Equal(t, Limits{DriveAccel: 1.8, BrakeDecel: 3.5, LateralAccel: 1.5}, DefaultLimits())
	assert.Equal(t, DefaultLimits(), LimitsFromTuning(config.MustLoadDefaultConfig()))
}
