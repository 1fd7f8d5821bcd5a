// Package planner computes a comfortable speed profile along a polyline from
// per-point speed limits, road curvature, and acceleration limits.
package planner

import (
	"errors"
	"fmt"
	"math"

	"github.com/banshee-data/trajectory/internal/config"
	"github.com/banshee-data/trajectory/internal/geo"
)

var (
	ErrTooShort      = errors.New("planner: polyline needs at least 2 points")
	ErrLimitMismatch = errors.New("planner: speed limits must match points or segments")
)

// minETASpeed keeps ETA finite on segments where the profile is at rest.
const minETASpeed = 0.1 // m/s

// Limits are the comfort limits the profile respects, all positive m/s².
type Limits struct {
	DriveAccel   float64 `json:"drive_accel"`
	BrakeDecel   float64 `json:"brake_decel"`
	LateralAccel float64 `json:"lateral_accel"`
}

// DefaultLimits returns the built-in comfort limits.
func DefaultLimits() Limits {
	return LimitsFromTuning(config.EmptyTuningConfig())
}

// LimitsFromTuning builds Limits from a loaded TuningConfig.
func LimitsFromTuning(cfg *config.TuningConfig) Limits {
	return Limits{
		DriveAccel:   cfg.GetPlanDriveAccel(),
		BrakeDecel:   cfg.GetPlanBrakeDecel(),
		LateralAccel: cfg.GetPlanLateralAccel(),
	}
}

// Profile is a planned speed for every point of a polyline.
type Profile struct {
	Speeds     []float64 `json:"speeds_mps"`  // per point
	Segments   []float64 `json:"segments_m"`  // len(Speeds)-1
	DistanceKm float64   `json:"distance_km"` // total
	ETAMinutes float64   `json:"eta_min"`
}

// Plan returns the speed profile for points.
//
// speedLimits holds free-flow caps in m/s either per point or per segment;
// per-segment limits are made per-point by repeating the first. Each point is
// capped so lateral acceleration on the local curvature stays within
// LateralAccel. A forward pass then limits acceleration from rest (both over
// distance and over dt) and a backward pass limits braking.
func Plan(points []geo.LatLon, speedLimits []float64, dt float64, lim Limits) (Profile, error) {
	n := len(points)
	if n < 2 {
		return Profile{}, ErrTooShort
	}

	var vfree []float64
	switch len(speedLimits) {
	case n:
		vfree = append([]float64(nil), speedLimits...)
	case n - 1:
		vfree = append([]float64{speedLimits[0]}, speedLimits...)
	default:
		return Profile{}, fmt.Errorf("%w: got %d limits for %d points", ErrLimitMismatch, len(speedLimits), n)
	}

	capped := capByCurvature(vfree, geo.Curvature(points), lim.LateralAccel)

	ds := make([]float64, n-1)
	total := 0.0
	for i := range ds {
		ds[i] = geo.Haversine(points[i], points[i+1])
		total += ds[i]
	}

	v := forwardBackward(capped, ds, dt, lim)

	eta := 0.0
	for i, d := range ds {
		eta += d / math.Max((v[i]+v[i+1])*0.5, minETASpeed)
	}

	return Profile{
		Speeds:     v,
		Segments:   ds,
		DistanceKm: total / 1000,
		ETAMinutes: eta / 60,
	}, nil
}

func capByCurvature(vfree, kappa []float64, aLat float64) []float64 {
	out := make([]float64, len(vfree))
	for i, v := range vfree {
		if kappa[i] <= 1e-9 {
			out[i] = v
			continue
		}
		out[i] = math.Min(v, math.Sqrt(math.Max(aLat/kappa[i], 0)))
	}
	return out
}

// forwardBackward starts from rest and applies the drive limit forwards and
// the brake limit backwards.
func forwardBackward(vmax, ds []float64, dt float64, lim Limits) []float64 {
	n := len(vmax)
	v := make([]float64, n)
	for i := 1; i < n; i++ {
		prev := v[i-1]
		reach := math.Sqrt(math.Max(prev*prev+2*lim.DriveAccel*ds[i-1], 0))
		v[i] = math.Min(math.Min(vmax[i], reach), prev+lim.DriveAccel*dt)
	}
	for i := n - 2; i >= 0; i-- {
		next := v[i+1]
		reach := math.Sqrt(math.Max(next*next+2*lim.BrakeDecel*ds[i], 0))
		v[i] = math.Min(v[i], math.Min(reach, next+lim.BrakeDecel*dt))
	}
	return v
}
