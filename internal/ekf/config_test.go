package ekf

import (
	"testing"

	"github.com/banshee-data/trajectory/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 10.0, cfg.InitialCovariance)
	assert.Equal(t, [StateDim]float64{1e-3, 1e-3, 5e-2, 5e-2, 1e-2}, cfg.ProcessNoise)
	assert.Equal(t, [MeasDim]float64{3, 3}, cfg.MeasurementNoise)
}

func TestConfigFromTuning(t *testing.T) {
	r := 5.0
	yaw := 0.2
	tc := &config.TuningConfig{EKFMeasurementNoise: &r, EKFProcessNoiseYaw: &yaw}
	cfg := ConfigFromTuning(tc)
	assert.Equal(t, [MeasDim]float64{5, 5}, cfg.MeasurementNoise)
	assert.Equal(t, 0.2, cfg.ProcessNoise[4])
	assert.Equal(t, 1e-3, cfg.ProcessNoise[0])

	assert.Equal(t, DefaultConfig(), ConfigFromTuning(config.MustLoadDefaultConfig()))
}

func TestStateVectorRoundTrip(t *testing.T) {
	s := State{X: 1, Y: 2, VX: 3, VY: 4, Yaw: 0.5}
	v := s.Vector()
	got, err := StateFromSlice(v[:])
	assert.NoError(t, err)
	assert.Equal(t, s, got)

	_, err = MeasurementFromSlice([]float64{1, 2, 3})
	assert.ErrorIs(t, err, ErrDimension)
}
