package dynamics

import (
	"math"

	"github.com/banshee-data/trajectory/internal/units"
)

// Command is the full breakdown of one controller decision. Forces are in
// newtons; resistances are positive when they oppose motion.
type Command struct {
	Mode         Mode    `json:"mode"`
	Gear         int     `json:"gear"`
	Throttle     float64 `json:"throttle_percent"`
	Brake        float64 `json:"brake_percent"`
	DesiredAccel float64 `json:"desired_accel_ms2"`

	DragForce    float64 `json:"drag_force_n"`
	RollingForce float64 `json:"rolling_force_n"`
	GradeForce   float64 `json:"grade_force_n"`
	EngineForce  float64 `json:"engine_force_n"`
	BrakeForce   float64 `json:"brake_force_n"`
	NetForce     float64 `json:"net_force_n"`

	Acceleration float64 `json:"acceleration_ms2"`
}

// Resistance returns the summed drag, rolling and grade forces.
func (c Command) Resistance() float64 {
	return c.DragForce + c.RollingForce + c.GradeForce
}

// AccelerationFor returns the acceleration in m/s² the controller commands to
// move from current towards target on the given grade (radians).
// distanceToTarget is accepted for callers that track it; the force balance
// does not use it.
func (e Engine) AccelerationFor(current, target, grade, distanceToTarget float64) float64 {
	return e.Compute(current, target, grade, distanceToTarget).Acceleration
}

// Compute runs the controller and returns every intermediate quantity.
//
// Inside the dead-band the vehicle cruises: the engine is assumed to cancel
// resistance exactly and the acceleration is zero. Outside it a proportional
// request drives either the throttle (limited at low speed and by traction)
// or the brake (limited by ABS).
func (e Engine) Compute(current, target, grade, distanceToTarget float64) Command {
	c := e.Controller
	m := e.Params.MassKg

	current = nonNegative(current)
	target = nonNegative(target)
	if math.IsNaN(grade) || math.IsInf(grade, 0) {
		grade = 0
	}

	speedError := target - current
	cmd := Command{
		Mode:         ModeCruise,
		Gear:         e.SelectGear(current, target),
		DesiredAccel: clamp(c.Kp*speedError, c.AccelMin, c.AccelMax),
		DragForce:    e.DragForce(current),
		RollingForce: e.RollingResistance(current),
		GradeForce:   e.GradeResistance(grade),
	}
	switch {
	case speedError > c.Deadband:
		cmd.Mode = ModeAccelerate
	case speedError < -c.Deadband:
		cmd.Mode = ModeBrake
	}

	if e.Logf != nil {
		e.Logf("speed %.1f km/h -> %.1f km/h (error %+.1f km/h) %s",
			units.MpsToKmh(current), units.MpsToKmh(target), units.MpsToKmh(speedError), cmd.Mode)
	}

	resistance := cmd.Resistance()
	switch cmd.Mode {
	case ModeAccelerate:
		throttle := clamp(cmd.DesiredAccel*c.ThrottleGain+c.ThrottleOffset, 0, 100)
		if current < c.LowSpeedThreshold {
			throttle = math.Min(throttle, c.LowSpeedThrottleCap)
		}
		cmd.Throttle = throttle
		cmd.EngineForce = e.EngineForce(current, throttle, cmd.Gear)

		// Traction: the tyres cannot deliver more than the engine supplies,
		// nor more than TractionLimit.
		available := math.Min(cmd.EngineForce/m, c.TractionLimit)
		cmd.NetForce = math.Min(cmd.EngineForce-resistance, m*available)

	case ModeBrake:
		cmd.Brake = clamp(-cmd.DesiredAccel*c.BrakeGain, 0, 100)
		cmd.BrakeForce = e.BrakeForce(cmd.Brake)
		cmd.NetForce = math.Max(-(cmd.BrakeForce + resistance), -m*c.ABSLimit)

	default:
		cmd.NetForce = 0
	}

	cmd.Acceleration = clamp(cmd.NetForce/m, c.AccelMin, c.AccelMax)
	return cmd
}
