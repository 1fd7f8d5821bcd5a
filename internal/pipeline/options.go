// Package pipeline turns a waypoint route into an enriched run, either by
// fusing the fixes through the motion estimator or by simulating the vehicle
// dynamics along a target-speed plan.
package pipeline

import (
	"github.com/banshee-data/trajectory/internal/config"
	"github.com/banshee-data/trajectory/internal/dynamics"
	"github.com/banshee-data/trajectory/internal/ekf"
	"github.com/banshee-data/trajectory/internal/imu"
	"github.com/banshee-data/trajectory/internal/monitoring"
	"github.com/banshee-data/trajectory/internal/planner"
	"github.com/banshee-data/trajectory/internal/timeutil"
	"github.com/google/uuid"
)

// Options configures Fuse and Simulate.
type Options struct {
	EKF       ekf.Config
	InitialDt float64 // used when the first two fixes carry no usable timestamps

	// Per-step kinematic limits for the fusion loop.
	MinStepDt    float64
	MaxStepDt    float64
	MaxYawRate   float64 // rad/s
	MaxLongAccel float64 // m/s²
	MaxLongDecel float64 // m/s², negative

	SimulationDt         float64
	TargetRampRate       float64 // m/s² applied to the target speed
	DefaultSpeedLimitKmh float64 // used by the planner when the route has no speeds

	Params     dynamics.Params
	Controller dynamics.Controller
	Plan       planner.Limits
	IMU        imu.Synth

	// Observer receives estimator internals during Fuse. Optional.
	Observer ekf.Observer
	// EngineLogf receives one line per controller decision during Simulate.
	// Optional.
	EngineLogf monitoring.LogFunc

	Clock timeutil.Clock
	NewID func() string
}

// DefaultOptions returns options built from the built-in defaults.
func DefaultOptions() Options {
	return OptionsFromTuning(config.EmptyTuningConfig())
}

// OptionsFromTuning builds Options from a loaded TuningConfig.
func OptionsFromTuning(cfg *config.TuningConfig) Options {
	return Options{
		EKF:                  ekf.ConfigFromTuning(cfg),
		InitialDt:            cfg.GetEKFInitialDt(),
		MinStepDt:            cfg.GetMinStepDt(),
		MaxStepDt:            cfg.GetMaxStepDt(),
		MaxYawRate:           cfg.GetMaxYawRate(),
		MaxLongAccel:         cfg.GetMaxLongAccel(),
		MaxLongDecel:         cfg.GetMaxLongDecel(),
		SimulationDt:         cfg.GetSimulationDt(),
		TargetRampRate:       cfg.GetTargetRampRate(),
		DefaultSpeedLimitKmh: cfg.GetDefaultSpeedLimitKmh(),
		Params:               dynamics.ParamsFromTuning(cfg),
		Controller:           dynamics.ControllerFromTuning(cfg),
		Plan:                 planner.LimitsFromTuning(cfg),
		IMU:                  imu.Synth{Declination: cfg.GetMagDeclinationRad()},
		Clock:                timeutil.RealClock{},
		NewID:                func() string { return uuid.New().String() },
	}
}

func (o Options) clock() timeutil.Clock {
	if o.Clock == nil {
		return timeutil.RealClock{}
	}
	return o.Clock
}

func (o Options) newID() string {
	if o.NewID == nil {
		return uuid.New().String()
	}
	return o.NewID()
}
