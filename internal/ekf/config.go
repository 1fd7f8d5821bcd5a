package ekf

import "github.com/banshee-data/trajectory/internal/config"

// Config holds the fixed noise model for a Filter. Values are variances.
type Config struct {
	InitialCovariance float64           // diagonal of P after Initialize
	ProcessNoise      [StateDim]float64 // diagonal of Q: x, y, vx, vy, yaw
	MeasurementNoise  [MeasDim]float64  // diagonal of R: x, y
}

// DefaultConfig returns the built-in noise model.
func DefaultConfig() Config {
	return ConfigFromTuning(config.EmptyTuningConfig())
}

// ConfigFromTuning builds a Config from a loaded TuningConfig.
func ConfigFromTuning(cfg *config.TuningConfig) Config {
	pos := cfg.GetEKFProcessNoisePos()
	vel := cfg.GetEKFProcessNoiseVel()
	r := cfg.GetEKFMeasurementNoise()
	return Config{
		InitialCovariance: cfg.GetEKFInitialCovariance(),
		ProcessNoise:      [StateDim]float64{pos, pos, vel, vel, cfg.GetEKFProcessNoiseYaw()},
		MeasurementNoise:  [MeasDim]float64{r, r},
	}
}
