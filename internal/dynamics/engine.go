package dynamics

import "math"

// Mode is the controller branch taken for a step.
type Mode string

const (
	ModeAccelerate Mode = "accelerate"
	ModeBrake      Mode = "brake"
	ModeCruise     Mode = "cruise"
)

// Engine evaluates the force model for a fixed vehicle and controller.
type Engine struct {
	Params     Params
	Controller Controller
	Dt         float64 // integration step for Advance, seconds

	// Logf, when non-nil, receives one line per Compute call.
	Logf func(format string, v ...interface{})
}

// New returns an Engine with the given step, vehicle and controller.
func New(dt float64, p Params, c Controller) Engine {
	return Engine{Params: p, Controller: c, Dt: dt}
}

// Default returns an Engine with built-in parameters and a 0.1 s step.
func Default() Engine {
	return New(0.1, DefaultParams(), DefaultController())
}

// nonNegative maps negative and NaN inputs to zero.
func nonNegative(v float64) float64 {
	if !(v > 0) {
		return 0
	}
	return v
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func clampGear(gear int) int {
	if gear < 1 {
		return 1
	}
	if gear > GearCount {
		return GearCount
	}
	return gear
}

// DragForce returns aerodynamic drag in newtons: ½·ρ·Cd·A·v².
func (e Engine) DragForce(speed float64) float64 {
	p := e.Params
	return 0.5 * p.AirDensity * p.DragCoefficient * p.FrontalAreaM2 * speed * speed
}

// RollingResistance returns rolling resistance in newtons. It grows by 1%
// per m/s.
func (e Engine) RollingResistance(speed float64) float64 {
	p := e.Params
	return p.RollingResistance * p.MassKg * p.Gravity * (1 + speed/100)
}

// GradeResistance returns the gravity component along a grade in radians.
// Negative on a downhill.
func (e Engine) GradeResistance(grade float64) float64 {
	return e.Params.MassKg * e.Params.Gravity * math.Sin(grade)
}

// EngineRPM converts road speed to engine speed in the given gear. Gears
// outside 1..GearCount are clamped.
func (e Engine) EngineRPM(speed float64, gear int) float64 {
	p := e.Params
	wheelRPM := nonNegative(speed) / p.WheelRadiusM * 60 / (2 * math.Pi)
	return wheelRPM * p.GearRatios[clampGear(gear)-1] * p.FinalDriveRatio
}

// SelectGear returns the lowest gear that keeps the engine between idle and
// 85% of redline at speed while staying under 90% of redline at target.
// First gear is returned when no gear qualifies. The choice is recomputed
// from scratch on every call.
func (e Engine) SelectGear(speed, target float64) int {
	p := e.Params
	for gear := 1; gear <= GearCount; gear++ {
		rpm := e.EngineRPM(speed, gear)
		if rpm < p.IdleRPM || rpm > 0.85*p.MaxRPM {
			continue
		}
		if e.EngineRPM(target, gear) <= 0.9*p.MaxRPM {
			return gear
		}
	}
	return 1
}

// EngineTorque returns torque in N·m at rpm for a throttle percentage.
//
// The curve is a multiplier on peak torque: 0.3 below idle, rising from 0.6
// to 1.0 between idle and optimal, flat to 80% of redline, then falling
// towards 0.7 at redline. The multiplier is held within [0.2, 1.0].
func (e Engine) EngineTorque(rpm, throttle float64) float64 {
	p := e.Params
	var ratio float64
	switch {
	case rpm < p.IdleRPM:
		ratio = 0.3
	case rpm < p.OptimalRPM:
		ratio = 0.6 + 0.4*(rpm-p.IdleRPM)/(p.OptimalRPM-p.IdleRPM)
	case rpm < 0.8*p.MaxRPM:
		ratio = 1.0
	default:
		ratio = 1.0 - 0.3*(rpm-0.8*p.MaxRPM)/(0.2*p.MaxRPM)
	}
	ratio = clamp(ratio, 0.2, 1.0)
	return p.MaxTorqueNm * ratio * (throttle / 100)
}

// EngineForce returns tractive force at the wheels in newtons.
func (e Engine) EngineForce(speed, throttle float64, gear int) float64 {
	p := e.Params
	gear = clampGear(gear)
	torque := e.EngineTorque(e.EngineRPM(speed, gear), throttle)
	return torque * p.GearRatios[gear-1] * p.FinalDriveRatio / p.WheelRadiusM
}

// BrakeForce returns braking force in newtons for a pedal percentage.
func (e Engine) BrakeForce(brake float64) float64 {
	return e.Params.MaxBrakeForceN * (brake / 100)
}

// ShouldUpshift reports whether the engine is revving well past its optimal
// band at road speed. Advisory only; SelectGear does not consult it.
func (e Engine) ShouldUpshift(rpm, speed float64) bool {
	return rpm > e.Params.OptimalRPM*1.3 && speed > 5
}

// ShouldDownshift reports whether the engine is close to lugging at road
// speed. Advisory only; SelectGear does not consult it.
func (e Engine) ShouldDownshift(rpm, speed float64) bool {
	return rpm < e.Params.IdleRPM*1.5 && speed > 2
}
