package ekf

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func assertDiagonal(t *testing.T, p *mat.SymDense, want float64) {
	t.Helper()
	for i := 0; i < StateDim; i++ {
		for j := 0; j < StateDim; j++ {
			if i == j {
				assert.Equal(t, want, p.At(i, j), "P[%d][%d]", i, j)
			} else {
				assert.Equal(t, 0.0, p.At(i, j), "P[%d][%d]", i, j)
			}
		}
	}
}

func TestInitializeRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for n := 0; n < 50; n++ {
		s := State{
			X:   rng.Float64()*2000 - 1000,
			Y:   rng.Float64()*2000 - 1000,
			VX:  rng.Float64()*60 - 30,
			VY:  rng.Float64()*60 - 30,
			Yaw: rng.Float64()*2*math.Pi - math.Pi,
		}
		f := New(0.1, DefaultConfig())
		f.Predict(1, 0.2) // dirty the covariance first
		f.Initialize(s)

		assert.Equal(t, s, f.State())
		assertDiagonal(t, f.Covariance(), 10)
	}
}

func TestInitializeVector(t *testing.T) {
	t.Run("accepts five components", func(t *testing.T) {
		f := New(0.1, DefaultConfig())
		require.NoError(t, f.InitializeVector([]float64{1, 2, 3, 4, 0.5}))
		assert.Equal(t, State{X: 1, Y: 2, VX: 3, VY: 4, Yaw: 0.5}, f.State())
	})

	for _, n := range []int{0, 4, 6} {
		n := n
		t.Run("rejects wrong length", func(t *testing.T) {
			f := New(0.1, DefaultConfig())
			f.Initialize(State{X: 9, Y: 8, VX: 7, VY: 6, Yaw: 0.1})
			f.Predict(0, 0)
			prior := f.State()
			priorCov := f.Covariance()

			err := f.InitializeVector(make([]float64, n))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrDimension))
			assert.Equal(t, prior, f.State())
			assert.True(t, mat.Equal(priorCov, f.Covariance()))
		})
	}
}

func TestUpdateVectorDimension(t *testing.T) {
	for _, z := range [][]float64{nil, {1}, {1, 2, 3}} {
		f := New(0.1, DefaultConfig())
		prior := State{X: 1, Y: 2, VX: 3, VY: 4, Yaw: 0.3}
		f.Initialize(prior)
		priorCov := f.Covariance()

		err := f.UpdateVector(z)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrDimension)
		assert.Equal(t, prior, f.State())
		assert.True(t, mat.Equal(priorCov, f.Covariance()))
	}

	f := New(0.1, DefaultConfig())
	require.NoError(t, f.UpdateVector([]float64{1, 1}))
}

func TestPredictKinematics(t *testing.T) {
	t.Run("constant velocity", func(t *testing.T) {
		f := New(0.5, DefaultConfig())
		f.Initialize(State{VX: 10, VY: -2})
		f.Predict(0, 0)
		s := f.State()
		assert.InDelta(t, 5.0, s.X, 1e-12)
		assert.InDelta(t, -1.0, s.Y, 1e-12)
		assert.Equal(t, 10.0, s.VX)
		assert.Equal(t, -2.0, s.VY)
	})

	t.Run("acceleration uses pre-update yaw", func(t *testing.T) {
		f := New(1.0, DefaultConfig())
		f.Initialize(State{Yaw: 0})
		f.Predict(2, math.Pi/2)
		s := f.State()
		assert.InDelta(t, 1.0, s.X, 1e-12) // 0.5·2·1²
		assert.InDelta(t, 0.0, s.Y, 1e-12)
		assert.InDelta(t, 2.0, s.VX, 1e-12)
		assert.InDelta(t, 0.0, s.VY, 1e-12)
		assert.InDelta(t, math.Pi/2, s.Yaw, 1e-12)
	})

	t.Run("covariance grows by F P Ft plus Q", func(t *testing.T) {
		cfg := DefaultConfig()
		dt := 0.2
		f := New(dt, cfg)
		f.Initialize(State{})
		f.Predict(0, 0)
		p := f.Covariance()
		p0 := cfg.InitialCovariance
		assert.InDelta(t, p0+dt*dt*p0+cfg.ProcessNoise[0], p.At(0, 0), 1e-12)
		assert.InDelta(t, dt*p0, p.At(0, 2), 1e-12)
		assert.InDelta(t, p0+cfg.ProcessNoise[2], p.At(2, 2), 1e-12)
		assert.InDelta(t, p0+cfg.ProcessNoise[4], p.At(4, 4), 1e-12)
		assert.Equal(t, 0.0, p.At(0, 4))
	})
}

func TestPredictYawStaysWrapped(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	f := New(0.1, DefaultConfig())
	f.Initialize(State{Yaw: math.Pi - 0.01})
	for i := 0; i < 2000; i++ {
		f.SetStepInterval(0.05 + rng.Float64()*1.95)
		f.Predict(rng.Float64()*4-2, rng.Float64()*20-10)
		yaw := f.State().Yaw
		require.True(t, yaw > -math.Pi && yaw <= math.Pi, "step %d yaw %v", i, yaw)
	}
}

func TestUpdateConvergesWithNegligibleNoise(t *testing.T) {
	truth := Measurement{X: 50, Y: -20}
	cfg := Config{InitialCovariance: 10, MeasurementNoise: [MeasDim]float64{1e-9, 1e-9}}
	f := New(0.1, cfg)
	f.Initialize(State{X: 0, Y: 0, VX: 3, VY: -1})

	var errs []float64
	for i := 0; i < 40; i++ {
		f.Predict(0, 0)
		require.NoError(t, f.Update(truth))
		s := f.State()
		errs = append(errs, math.Hypot(s.X-truth.X, s.Y-truth.Y))
	}

	assert.Less(t, errs[len(errs)-1], 1e-6)
	s := f.State()
	assert.Less(t, math.Hypot(s.VX, s.VY), 1e-2, "stationary target yields zero velocity")
}

func TestUpdatePullsTowardMeasurement(t *testing.T) {
	f := New(0.1, DefaultConfig())
	f.Initialize(State{})
	require.NoError(t, f.Update(Measurement{X: 10, Y: 0}))
	s := f.State()
	// K = P/(P+R) = 10/13 on the position axes.
	assert.InDelta(t, 10*10.0/13.0, s.X, 1e-9)
	assert.InDelta(t, 0.0, s.Y, 1e-12)
	p := f.Covariance()
	assert.InDelta(t, 10*3.0/13.0, p.At(0, 0), 1e-9)
	assert.Equal(t, 10.0, p.At(2, 2), "velocity untouched without cross-covariance")
}

func TestUpdateSingularInnovation(t *testing.T) {
	f := New(0.1, Config{})
	prior := State{X: 1, Y: 1}
	f.Initialize(prior)

	err := f.Update(Measurement{X: 5, Y: 5})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSingularInnovation)
	assert.Equal(t, prior, f.State())
}

func TestCovarianceStaysSymmetricPSD(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	f := New(0.1, DefaultConfig())
	f.Initialize(State{})
	for i := 0; i < 500; i++ {
		f.SetStepInterval(0.05 + rng.Float64())
		f.Predict(rng.Float64()*4-2, rng.Float64()-0.5)
		if i%3 == 0 {
			require.NoError(t, f.Update(Measurement{X: rng.NormFloat64() * 5, Y: rng.NormFloat64() * 5}))
		}
	}

	p := f.Covariance()
	for i := 0; i < StateDim; i++ {
		for j := 0; j < StateDim; j++ {
			assert.Equal(t, p.At(i, j), p.At(j, i))
		}
	}

	var eig mat.EigenSym
	require.True(t, eig.Factorize(p, false))
	for _, v := range eig.Values(nil) {
		assert.GreaterOrEqual(t, v, -1e-9)
	}
}

func TestCovarianceIsACopy(t *testing.T) {
	f := New(0.1, DefaultConfig())
	f.Initialize(State{})
	c := f.Covariance()
	c.SetSym(0, 0, 999)
	assert.Equal(t, 10.0, f.Covariance().At(0, 0))
}

type recordingObserver struct {
	predictions int
	innovations []float64
}

func (r *recordingObserver) IsEnabled() bool { return true }

func (r *recordingObserver) RecordPrediction(_ State, _ float64) {
	r.predictions++
}

func (r *recordingObserver) RecordInnovation(_ State, _ Measurement, residual float64) {
	r.innovations = append(r.innovations, residual)
}

func TestObserver(t *testing.T) {
	obs := &recordingObserver{}
	f := New(0.1, DefaultConfig())
	f.Observer = obs
	f.Initialize(State{})

	f.Predict(0, 0)
	require.NoError(t, f.Update(Measurement{X: 3, Y: 4}))

	assert.Equal(t, 1, obs.predictions)
	require.Len(t, obs.innovations, 1)
	assert.InDelta(t, 5.0, obs.innovations[0], 1e-12)
}
