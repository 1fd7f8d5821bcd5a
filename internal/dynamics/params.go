// Package dynamics models longitudinal vehicle dynamics: resistive forces, a
// torque curve driven through a six-speed gearbox, braking, and a
// proportional speed controller that turns a target speed into a bounded
// acceleration.
//
// Engine is a value with no mutable state and may be shared across
// goroutines. Each simulation run owns its own VehicleState.
package dynamics

import "github.com/banshee-data/trajectory/internal/config"

// GearCount is the number of forward gears.
const GearCount = config.GearCount

// Params describes the vehicle. It is never mutated after construction.
type Params struct {
	MassKg            float64 `json:"mass_kg"`
	FrontalAreaM2     float64 `json:"frontal_area_m2"`
	DragCoefficient   float64 `json:"drag_coefficient"`
	RollingResistance float64 `json:"rolling_resistance"`
	Gravity           float64 `json:"gravity"`
	AirDensity        float64 `json:"air_density"`

	MaxEnginePowerKw float64 `json:"max_engine_power_kw"` // informational
	MaxTorqueNm      float64 `json:"max_torque_nm"`
	IdleRPM          float64 `json:"idle_rpm"`
	OptimalRPM       float64 `json:"optimal_rpm"`
	MaxRPM           float64 `json:"max_rpm"`

	GearRatios      [GearCount]float64 `json:"gear_ratios"`
	FinalDriveRatio float64            `json:"final_drive_ratio"`
	WheelRadiusM    float64            `json:"wheel_radius_m"`

	MaxBrakeForceN float64 `json:"max_brake_force_n"`
}

// DefaultParams returns a mid-size petrol hatchback.
func DefaultParams() Params {
	return ParamsFromTuning(config.EmptyTuningConfig())
}

// ParamsFromTuning builds Params from a loaded TuningConfig.
func ParamsFromTuning(cfg *config.TuningConfig) Params {
	p := Params{
		MassKg:            cfg.GetVehicleMassKg(),
		FrontalAreaM2:     cfg.GetFrontalAreaM2(),
		DragCoefficient:   cfg.GetDragCoefficient(),
		RollingResistance: cfg.GetRollingResistance(),
		Gravity:           cfg.GetGravity(),
		AirDensity:        cfg.GetAirDensity(),
		MaxEnginePowerKw:  cfg.GetMaxEnginePowerKw(),
		MaxTorqueNm:       cfg.GetMaxTorqueNm(),
		IdleRPM:           cfg.GetIdleRPM(),
		OptimalRPM:        cfg.GetOptimalRPM(),
		MaxRPM:            cfg.GetMaxRPM(),
		FinalDriveRatio:   cfg.GetFinalDriveRatio(),
		WheelRadiusM:      cfg.GetWheelRadiusM(),
		MaxBrakeForceN:    cfg.GetMaxBrakeForceN(),
	}
	copy(p.GearRatios[:], cfg.GetGearRatios())
	return p
}

// Controller holds the speed controller coefficients.
type Controller struct {
	Kp                  float64 `json:"kp"`                     // proportional gain, 1/s
	Deadband            float64 `json:"deadband"`               // m/s either side of target treated as cruise
	AccelMin            float64 `json:"accel_min"`              // m/s², final clamp
	AccelMax            float64 `json:"accel_max"`              // m/s², final clamp
	ThrottleGain        float64 `json:"throttle_gain"`          // % per m/s²
	ThrottleOffset      float64 `json:"throttle_offset"`        // %
	LowSpeedThreshold   float64 `json:"low_speed_threshold"`    // m/s
	LowSpeedThrottleCap float64 `json:"low_speed_throttle_cap"` // % below LowSpeedThreshold
	TractionLimit       float64 `json:"traction_limit"`         // m/s²
	BrakeGain           float64 `json:"brake_gain"`             // % per m/s² of requested decel
	ABSLimit            float64 `json:"abs_limit"`              // m/s² of decel
}

// DefaultController returns the built-in controller coefficients.
func DefaultController() Controller {
	return ControllerFromTuning(config.EmptyTuningConfig())
}

// ControllerFromTuning builds a Controller from a loaded TuningConfig.
func ControllerFromTuning(cfg *config.TuningConfig) Controller {
	return Controller{
		Kp:                  cfg.GetControllerKp(),
		Deadband:            cfg.GetSpeedDeadband(),
		AccelMin:            cfg.GetAccelMin(),
		AccelMax:            cfg.GetAccelMax(),
		ThrottleGain:        cfg.GetThrottleGain(),
		ThrottleOffset:      cfg.GetThrottleOffset(),
		LowSpeedThreshold:   cfg.GetLowSpeedThreshold(),
		LowSpeedThrottleCap: cfg.GetLowSpeedThrottleCap(),
		TractionLimit:       cfg.GetTractionLimit(),
		BrakeGain:           cfg.GetBrakeGain(),
		ABSLimit:            cfg.GetABSLimit(),
	}
}
