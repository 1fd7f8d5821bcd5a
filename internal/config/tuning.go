package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/banshee-data/trajectory/internal/units"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
const DefaultConfigPath = "config/tuning.defaults.json"

// GearCount is the number of forward gears the drivetrain model supports.
const GearCount = 6

// TuningConfig represents the root configuration for tuning parameters.
// Every field is optional; the Get* methods supply the built-in default for
// anything the JSON leaves out, so partial files are safe.
type TuningConfig struct {
	// Motion estimator
	EKFInitialDt         *float64 `json:"ekf_initial_dt,omitempty"`
	EKFInitialCovariance *float64 `json:"ekf_initial_covariance,omitempty"`
	EKFProcessNoisePos   *float64 `json:"ekf_process_noise_pos,omitempty"`
	EKFProcessNoiseVel   *float64 `json:"ekf_process_noise_vel,omitempty"`
	EKFProcessNoiseYaw   *float64 `json:"ekf_process_noise_yaw,omitempty"`
	EKFMeasurementNoise  *float64 `json:"ekf_measurement_noise,omitempty"`

	// Fusion step limits
	MinStepDt    *float64 `json:"min_step_dt,omitempty"`
	MaxStepDt    *float64 `json:"max_step_dt,omitempty"`
	MaxYawRate   *float64 `json:"max_yaw_rate,omitempty"`
	MaxLongAccel *float64 `json:"max_long_accel,omitempty"`
	MaxLongDecel *float64 `json:"max_long_decel,omitempty"`

	// Simulation loop
	SimulationDt         *float64 `json:"simulation_dt,omitempty"`
	TargetRampRate       *float64 `json:"target_ramp_rate,omitempty"`
	DefaultSpeedLimitKmh *float64 `json:"default_speed_limit_kmh,omitempty"`

	// Vehicle parameters
	VehicleMassKg     *float64  `json:"vehicle_mass_kg,omitempty"`
	FrontalAreaM2     *float64  `json:"frontal_area_m2,omitempty"`
	DragCoefficient   *float64  `json:"drag_coefficient,omitempty"`
	RollingResistance *float64  `json:"rolling_resistance,omitempty"`
	MaxEnginePowerKw  *float64  `json:"max_engine_power_kw,omitempty"`
	MaxTorqueNm       *float64  `json:"max_torque_nm,omitempty"`
	IdleRPM           *float64  `json:"idle_rpm,omitempty"`
	OptimalRPM        *float64  `json:"optimal_rpm,omitempty"`
	MaxRPM            *float64  `json:"max_rpm,omitempty"`
	MaxBrakeForceN    *float64  `json:"max_brake_force_n,omitempty"`
	Gravity           *float64  `json:"gravity,omitempty"`
	AirDensity        *float64  `json:"air_density,omitempty"`
	GearRatios        []float64 `json:"gear_ratios,omitempty"`
	FinalDriveRatio   *float64  `json:"final_drive_ratio,omitempty"`
	WheelRadiusM      *float64  `json:"wheel_radius_m,omitempty"`

	// Speed controller
	ControllerKp        *float64 `json:"controller_kp,omitempty"`
	SpeedDeadband       *float64 `json:"speed_deadband,omitempty"`
	AccelMin            *float64 `json:"accel_min,omitempty"`
	AccelMax            *float64 `json:"accel_max,omitempty"`
	ThrottleGain        *float64 `json:"throttle_gain,omitempty"`
	ThrottleOffset      *float64 `json:"throttle_offset,omitempty"`
	LowSpeedThreshold   *float64 `json:"low_speed_threshold,omitempty"`
	LowSpeedThrottleCap *float64 `json:"low_speed_throttle_cap,omitempty"`
	TractionLimit       *float64 `json:"traction_limit,omitempty"`
	BrakeGain           *float64 `json:"brake_gain,omitempty"`
	ABSLimit            *float64 `json:"abs_limit,omitempty"`

	// Speed planner
	PlanDriveAccel   *float64 `json:"plan_drive_accel,omitempty"`
	PlanBrakeDecel   *float64 `json:"plan_brake_decel,omitempty"`
	PlanLateralAccel *float64 `json:"plan_lateral_accel,omitempty"`

	// Synthetic IMU
	MagDeclinationRad *float64 `json:"mag_declination_rad,omitempty"`

	// Display
	Units *string `json:"units,omitempty"`
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }

func orDefault(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// Getters on an empty config return the built-in defaults.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// DefaultTuningConfig returns a config with every field populated from the
// built-in defaults, suitable for writing out as a starting file.
func DefaultTuningConfig() *TuningConfig {
	e := EmptyTuningConfig()
	return &TuningConfig{
		EKFInitialDt:         ptrFloat64(e.GetEKFInitialDt()),
		EKFInitialCovariance: ptrFloat64(e.GetEKFInitialCovariance()),
		EKFProcessNoisePos:   ptrFloat64(e.GetEKFProcessNoisePos()),
		EKFProcessNoiseVel:   ptrFloat64(e.GetEKFProcessNoiseVel()),
		EKFProcessNoiseYaw:   ptrFloat64(e.GetEKFProcessNoiseYaw()),
		EKFMeasurementNoise:  ptrFloat64(e.GetEKFMeasurementNoise()),

		MinStepDt:    ptrFloat64(e.GetMinStepDt()),
		MaxStepDt:    ptrFloat64(e.GetMaxStepDt()),
		MaxYawRate:   ptrFloat64(e.GetMaxYawRate()),
		MaxLongAccel: ptrFloat64(e.GetMaxLongAccel()),
		MaxLongDecel: ptrFloat64(e.GetMaxLongDecel()),

		SimulationDt:         ptrFloat64(e.GetSimulationDt()),
		TargetRampRate:       ptrFloat64(e.GetTargetRampRate()),
		DefaultSpeedLimitKmh: ptrFloat64(e.GetDefaultSpeedLimitKmh()),

		VehicleMassKg:     ptrFloat64(e.GetVehicleMassKg()),
		FrontalAreaM2:     ptrFloat64(e.GetFrontalAreaM2()),
		DragCoefficient:   ptrFloat64(e.GetDragCoefficient()),
		RollingResistance: ptrFloat64(e.GetRollingResistance()),
		MaxEnginePowerKw:  ptrFloat64(e.GetMaxEnginePowerKw()),
		MaxTorqueNm:       ptrFloat64(e.GetMaxTorqueNm()),
		IdleRPM:           ptrFloat64(e.GetIdleRPM()),
		OptimalRPM:        ptrFloat64(e.GetOptimalRPM()),
		MaxRPM:            ptrFloat64(e.GetMaxRPM()),
		MaxBrakeForceN:    ptrFloat64(e.GetMaxBrakeForceN()),
		Gravity:           ptrFloat64(e.GetGravity()),
		AirDensity:        ptrFloat64(e.GetAirDensity()),
		GearRatios:        e.GetGearRatios(),
		FinalDriveRatio:   ptrFloat64(e.GetFinalDriveRatio()),
		WheelRadiusM:      ptrFloat64(e.GetWheelRadiusM()),

		ControllerKp:        ptrFloat64(e.GetControllerKp()),
		SpeedDeadband:       ptrFloat64(e.GetSpeedDeadband()),
		AccelMin:            ptrFloat64(e.GetAccelMin()),
		AccelMax:            ptrFloat64(e.GetAccelMax()),
		ThrottleGain:        ptrFloat64(e.GetThrottleGain()),
		ThrottleOffset:      ptrFloat64(e.GetThrottleOffset()),
		LowSpeedThreshold:   ptrFloat64(e.GetLowSpeedThreshold()),
		LowSpeedThrottleCap: ptrFloat64(e.GetLowSpeedThrottleCap()),
		TractionLimit:       ptrFloat64(e.GetTractionLimit()),
		BrakeGain:           ptrFloat64(e.GetBrakeGain()),
		ABSLimit:            ptrFloat64(e.GetABSLimit()),

		PlanDriveAccel:   ptrFloat64(e.GetPlanDriveAccel()),
		PlanBrakeDecel:   ptrFloat64(e.GetPlanBrakeDecel()),
		PlanLateralAccel: ptrFloat64(e.GetPlanLateralAccel()),

		MagDeclinationRad: ptrFloat64(e.GetMagDeclinationRad()),

		Units: ptrString(e.GetUnits()),
	}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the max file size.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from DefaultConfigPath.
// It searches for the file in the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are physically meaningful.
func (c *TuningConfig) Validate() error {
	positive := []struct {
		name string
		v    *float64
	}{
		{"ekf_initial_dt", c.EKFInitialDt},
		{"ekf_initial_covariance", c.EKFInitialCovariance},
		{"ekf_measurement_noise", c.EKFMeasurementNoise},
		{"min_step_dt", c.MinStepDt},
		{"max_step_dt", c.MaxStepDt},
		{"simulation_dt", c.SimulationDt},
		{"vehicle_mass_kg", c.VehicleMassKg},
		{"idle_rpm", c.IdleRPM},
		{"optimal_rpm", c.OptimalRPM},
		{"max_rpm", c.MaxRPM},
		{"final_drive_ratio", c.FinalDriveRatio},
		{"wheel_radius_m", c.WheelRadiusM},
		{"plan_drive_accel", c.PlanDriveAccel},
		{"plan_brake_decel", c.PlanBrakeDecel},
	}
	for _, p := range positive {
		if p.v != nil && *p.v <= 0 {
			return fmt.Errorf("%s must be positive, got %f", p.name, *p.v)
		}
	}

	nonNegative := []struct {
		name string
		v    *float64
	}{
		{"ekf_process_noise_pos", c.EKFProcessNoisePos},
		{"ekf_process_noise_vel", c.EKFProcessNoiseVel},
		{"ekf_process_noise_yaw", c.EKFProcessNoiseYaw},
		{"max_brake_force_n", c.MaxBrakeForceN},
		{"drag_coefficient", c.DragCoefficient},
		{"rolling_resistance", c.RollingResistance},
	}
	for _, p := range nonNegative {
		if p.v != nil && *p.v < 0 {
			return fmt.Errorf("%s must be non-negative, got %f", p.name, *p.v)
		}
	}

	if c.GetMinStepDt() > c.GetMaxStepDt() {
		return fmt.Errorf("min_step_dt (%f) exceeds max_step_dt (%f)", c.GetMinStepDt(), c.GetMaxStepDt())
	}
	if c.GetIdleRPM() >= c.GetOptimalRPM() || c.GetOptimalRPM() >= c.GetMaxRPM() {
		return fmt.Errorf("rpm bands must satisfy idle < optimal < max, got %f/%f/%f",
			c.GetIdleRPM(), c.GetOptimalRPM(), c.GetMaxRPM())
	}
	if c.GetAccelMin() >= 0 || c.GetAccelMax() <= 0 {
		return fmt.Errorf("accel clamp must straddle zero, got [%f, %f]", c.GetAccelMin(), c.GetAccelMax())
	}

	if d := c.GetMagDeclinationRad(); math.IsNaN(d) || math.Abs(d) > math.Pi {
		return fmt.Errorf("mag_declination_rad must be within [-π, π], got %f", d)
	}

	if c.GearRatios != nil {
		if len(c.GearRatios) != GearCount {
			return fmt.Errorf("gear_ratios must have %d entries, got %d", GearCount, len(c.GearRatios))
		}
		for i, r := range c.GearRatios {
			if r <= 0 {
				return fmt.Errorf("gear_ratios[%d] must be positive, got %f", i, r)
			}
		}
	}

	if c.Units != nil && !units.IsValid(*c.Units) {
		return fmt.Errorf("invalid units %q (valid: %s)", *c.Units, units.GetValidUnitsString())
	}

	return nil
}

// GetEKFInitialDt returns the ekf_initial_dt value or the default.
func (c *TuningConfig) GetEKFInitialDt() float64 { return orDefault(c.EKFInitialDt, 0.1) }

// GetEKFInitialCovariance returns the diagonal used when the filter is (re)initialised.
func (c *TuningConfig) GetEKFInitialCovariance() float64 {
	return orDefault(c.EKFInitialCovariance, 10.0)
}

// GetEKFProcessNoisePos returns the ekf_process_noise_pos value or the default.
func (c *TuningConfig) GetEKFProcessNoisePos() float64 { return orDefault(c.EKFProcessNoisePos, 1e-3) }

// GetEKFProcessNoiseVel returns the ekf_process_noise_vel value or the default.
func (c *TuningConfig) GetEKFProcessNoiseVel() float64 { return orDefault(c.EKFProcessNoiseVel, 5e-2) }

// GetEKFProcessNoiseYaw returns the ekf_process_noise_yaw value or the default.
func (c *TuningConfig) GetEKFProcessNoiseYaw() float64 { return orDefault(c.EKFProcessNoiseYaw, 1e-2) }

// GetEKFMeasurementNoise returns the position fix variance (m²); 3.0 is about 1.7 m σ.
func (c *TuningConfig) GetEKFMeasurementNoise() float64 {
	return orDefault(c.EKFMeasurementNoise, 3.0)
}

func (c *TuningConfig) GetMinStepDt() float64    { return orDefault(c.MinStepDt, 0.05) }
func (c *TuningConfig) GetMaxStepDt() float64    { return orDefault(c.MaxStepDt, 2.0) }
func (c *TuningConfig) GetMaxYawRate() float64   { return orDefault(c.MaxYawRate, 0.6) }
func (c *TuningConfig) GetMaxLongAccel() float64 { return orDefault(c.MaxLongAccel, 2.0) }

// GetMaxLongDecel returns the braking limit for derived longitudinal
// acceleration. It is negative.
func (c *TuningConfig) GetMaxLongDecel() float64 { return orDefault(c.MaxLongDecel, -3.0) }

func (c *TuningConfig) GetSimulationDt() float64   { return orDefault(c.SimulationDt, 0.1) }
func (c *TuningConfig) GetTargetRampRate() float64 { return orDefault(c.TargetRampRate, 1.5) }

// GetDefaultSpeedLimitKmh is the free-flow limit the planner uses when a
// document carries no target speeds.
func (c *TuningConfig) GetDefaultSpeedLimitKmh() float64 {
	return orDefault(c.DefaultSpeedLimitKmh, 50.0)
}

func (c *TuningConfig) GetVehicleMassKg() float64     { return orDefault(c.VehicleMassKg, 1400.0) }
func (c *TuningConfig) GetFrontalAreaM2() float64     { return orDefault(c.FrontalAreaM2, 2.1) }
func (c *TuningConfig) GetDragCoefficient() float64   { return orDefault(c.DragCoefficient, 0.28) }
func (c *TuningConfig) GetRollingResistance() float64 { return orDefault(c.RollingResistance, 0.012) }
func (c *TuningConfig) GetMaxEnginePowerKw() float64  { return orDefault(c.MaxEnginePowerKw, 125.0) }
func (c *TuningConfig) GetMaxTorqueNm() float64       { return orDefault(c.MaxTorqueNm, 220.0) }
func (c *TuningConfig) GetIdleRPM() float64           { return orDefault(c.IdleRPM, 800.0) }
func (c *TuningConfig) GetOptimalRPM() float64        { return orDefault(c.OptimalRPM, 4000.0) }
func (c *TuningConfig) GetMaxRPM() float64            { return orDefault(c.MaxRPM, 6500.0) }
func (c *TuningConfig) GetMaxBrakeForceN() float64    { return orDefault(c.MaxBrakeForceN, 9000.0) }
func (c *TuningConfig) GetGravity() float64           { return orDefault(c.Gravity, 9.81) }
func (c *TuningConfig) GetAirDensity() float64        { return orDefault(c.AirDensity, 1.225) }
func (c *TuningConfig) GetFinalDriveRatio() float64   { return orDefault(c.FinalDriveRatio, 4.35) }
func (c *TuningConfig) GetWheelRadiusM() float64      { return orDefault(c.WheelRadiusM, 0.32) }

// GetGearRatios returns a copy of the configured ratios, first gear first.
func (c *TuningConfig) GetGearRatios() []float64 {
	if len(c.GearRatios) != GearCount {
		return []float64{3.54, 2.06, 1.36, 1.03, 0.84, 0.70}
	}
	out := make([]float64, GearCount)
	copy(out, c.GearRatios)
	return out
}

func (c *TuningConfig) GetControllerKp() float64      { return orDefault(c.ControllerKp, 0.25) }
func (c *TuningConfig) GetSpeedDeadband() float64     { return orDefault(c.SpeedDeadband, 0.1) }
func (c *TuningConfig) GetAccelMin() float64          { return orDefault(c.AccelMin, -6.0) }
func (c *TuningConfig) GetAccelMax() float64          { return orDefault(c.AccelMax, 4.0) }
func (c *TuningConfig) GetThrottleGain() float64      { return orDefault(c.ThrottleGain, 20.0) }
func (c *TuningConfig) GetThrottleOffset() float64    { return orDefault(c.ThrottleOffset, 8.0) }
func (c *TuningConfig) GetLowSpeedThreshold() float64 { return orDefault(c.LowSpeedThreshold, 3.0) }
func (c *TuningConfig) GetLowSpeedThrottleCap() float64 {
	return orDefault(c.LowSpeedThrottleCap, 35.0)
}
func (c *TuningConfig) GetTractionLimit() float64 { return orDefault(c.TractionLimit, 4.0) }
func (c *TuningConfig) GetBrakeGain() float64     { return orDefault(c.BrakeGain, 8.0) }
func (c *TuningConfig) GetABSLimit() float64      { return orDefault(c.ABSLimit, 8.0) }

func (c *TuningConfig) GetPlanDriveAccel() float64   { return orDefault(c.PlanDriveAccel, 1.8) }
func (c *TuningConfig) GetPlanBrakeDecel() float64   { return orDefault(c.PlanBrakeDecel, 3.5) }
func (c *TuningConfig) GetPlanLateralAccel() float64 { return orDefault(c.PlanLateralAccel, 1.5) }

// GetMagDeclinationRad is the magnetic declination the synthetic
// magnetometer adds to the heading, east positive.
func (c *TuningConfig) GetMagDeclinationRad() float64 { return orDefault(c.MagDeclinationRad, 0) }

// GetUnits returns the display units for API responses.
func (c *TuningConfig) GetUnits() string {
	if c.Units == nil || *c.Units == "" {
		return "kmph"
	}
	return *c.Units
}
