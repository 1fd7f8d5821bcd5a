// Package imu synthesises the inertial signals a vehicle-mounted IMU would
// report for a planar trajectory. Axes are vehicle frame: x forward, y left,
// z up.
package imu

import (
	"math"

	"github.com/banshee-data/trajectory/internal/geo"
)

const (
	// StandardGravity is the accelerometer z reading at rest, m/s².
	StandardGravity = 9.80665
	// FieldStrength is the horizontal geomagnetic field magnitude in µT.
	FieldStrength = 60.0
)

// Vec3 is a three-axis reading.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Reading is one IMU sample.
type Reading struct {
	Accel Vec3 `json:"accel"` // m/s²
	Gyro  Vec3 `json:"gyro"`  // rad/s
	Mag   Vec3 `json:"mag"`   // µT
}

// Synth generates readings. Declination is added to the heading before the
// magnetometer is computed.
type Synth struct {
	Declination float64 // radians
}

// Sample returns the reading for a forward acceleration (m/s²), speed (m/s),
// yaw rate (rad/s) and heading (radians). Lateral acceleration is the
// centripetal term v·ω.
func (s Synth) Sample(accelLong, speed, yawRate, heading float64) Reading {
	h := heading + s.Declination
	return Reading{
		Accel: Vec3{X: accelLong, Y: speed * yawRate, Z: StandardGravity},
		Gyro:  Vec3{Z: yawRate},
		Mag:   Vec3{X: FieldStrength * math.Cos(h), Y: FieldStrength * math.Sin(h)},
	}
}

// Sample is Synth{}.Sample.
func Sample(accelLong, speed, yawRate, heading float64) Reading {
	return Synth{}.Sample(accelLong, speed, yawRate, heading)
}

// GyroSeries returns the yaw rate (rad/s) implied by successive headings in
// degrees sampled every dt seconds. Heading deltas are wrapped so a turn
// through north is continuous. The first entry is zero.
func GyroSeries(headingsDeg []float64, dt float64) []float64 {
	out := make([]float64, len(headingsDeg))
	if dt <= 0 {
		return out
	}
	for i := 1; i < len(headingsDeg); i++ {
		d := geo.Wrap((headingsDeg[i] - headingsDeg[i-1]) * math.Pi / 180)
		out[i] = d / dt
	}
	return out
}
