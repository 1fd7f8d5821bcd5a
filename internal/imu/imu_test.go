package imu

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSample(t *testing.T) {
	r := Sample(1.5, 10, 0.2, 0)
	assert.Equal(t, 1.5, r.Accel.X)
	assert.InDelta(t, 2.0, r.Accel.Y, 1e-12)
	assert.Equal(t, StandardGravity, r.Accel.Z)
	assert.Equal(t, Vec3{Z: 0.2}, r.Gyro)
	assert.InDelta(t, FieldStrength, r.Mag.X, 1e-12)
	assert.InDelta(t, 0, r.Mag.Y, 1e-12)
	assert.Equal(t, 0.0, r.Mag.Z)

	east := Sample(0, 0, 0, math.Pi/2)
	assert.InDelta(t, 0, east.Mag.X, 1e-12)
	assert.InDelta(t, FieldStrength, east.Mag.Y, 1e-12)
}

func TestSampleDeclination(t *testing.T) {
	s := Synth{Declination: math.Pi / 2}
	r := s.Sample(0, 0, 0, 0)
	assert.InDelta(t, 0, r.Mag.X, 1e-12)
	assert.InDelta(t, FieldStrength, r.Mag.Y, 1e-12)
	assert.InDelta(t, FieldStrength, math.Hypot(r.Mag.X, r.Mag.Y), 1e-12)
}

func TestGyroSeries(t *testing.T) {
	t.Run("wrapped deltas", func(t *testing.T) {
		got := GyroSeries([]float64{350, 10, 0, 180, -170}, 0.5)
		require.Len(t, got, 5)
		assert.Equal(t, 0.0, got[0])
		assert.InDelta(t, 20*math.Pi/180/0.5, got[1], 1e-12, "through north is +20°")
		assert.InDelta(t, -10*math.Pi/180/0.5, got[2], 1e-12)
		assert.InDelta(t, math.Pi/0.5, got[3], 1e-12)
		assert.InDelta(t, 10*math.Pi/180/0.5, got[4], 1e-12, "180 to -170 is +10°")
	})

	t.Run("full circle", func(t *testing.T) {
		got := GyroSeries([]float64{0, 45, 135, 225, 315, 45}, 1)
		want := []float64{0, math.Pi / 4, math.Pi / 2, math.Pi / 2, math.Pi / 2, math.Pi / 2}
		require.Len(t, got, len(want))
		for i := range want {
			assert.InDelta(t, want[i], got[i], 1e-12, "index %d", i)
		}
	})

	t.Run("degenerate inputs", func(t *testing.T) {
		assert.Empty(t, GyroSeries(nil, 1))
		assert.Equal(t, []float64{0, 0}, GyroSeries([]float64{0, 90}, 0))
	})
}
