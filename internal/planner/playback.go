package planner

import (
	"fmt"
	"math"

	"github.com/banshee-data/trajectory/internal/geo"
	"github.com/banshee-data/trajectory/internal/imu"
)

// Playback is a vehicle driven along a planned profile one dt per point.
type Playback struct {
	Speeds      []float64 `json:"vehicle_speeds_mps"`
	HeadingsDeg []float64 `json:"headings_deg"` // clockwise from north
	AccelLong   []float64 `json:"accel_long_ms2"`
	GyroZ       []float64 `json:"gyro_z_rps"`
	ETAMinutes  float64   `json:"eta_min_vehicle"`
}

// Play drives a vehicle from rest towards speeds (m/s, one per point),
// changing speed by at most DriveAccel·dt or BrakeDecel·dt per point.
// Headings come from the ENU offsets between points and the yaw rate from
// successive headings.
func Play(points []geo.LatLon, speeds []float64, dt float64, lim Limits) (Playback, error) {
	n := len(points)
	if n < 2 {
		return Playback{}, ErrTooShort
	}
	if len(speeds) != n {
		return Playback{}, fmt.Errorf("%w: got %d speeds for %d points", ErrLimitMismatch, len(speeds), n)
	}
	if dt <= 0 {
		return Playback{}, fmt.Errorf("planner: dt must be positive, got %v", dt)
	}

	enu := geo.ENUSeries(points, nil)
	pb := Playback{
		Speeds:      make([]float64, n),
		HeadingsDeg: make([]float64, n),
		AccelLong:   make([]float64, n),
	}
	for i := 1; i < n; i++ {
		prev := pb.Speeds[i-1]
		v := math.Max(speeds[i], prev-lim.BrakeDecel*dt)
		if speeds[i] > prev {
			v = math.Min(speeds[i], prev+lim.DriveAccel*dt)
		}
		pb.Speeds[i] = v
		pb.AccelLong[i] = (v - prev) / dt

		dE := enu[i].E - enu[i-1].E
		dN := enu[i].N - enu[i-1].N
		pb.HeadingsDeg[i] = math.Atan2(dE, dN) * 180 / math.Pi
	}
	pb.GyroZ = imu.GyroSeries(pb.HeadingsDeg, dt)

	eta := 0.0
	for i := 0; i < n-1; i++ {
		ds := geo.PolylineLength(points[i : i+2])
		eta += ds / math.Max((pb.Speeds[i]+pb.Speeds[i+1])*0.5, minETASpeed)
	}
	pb.ETAMinutes = eta / 60
	return pb, nil
}
