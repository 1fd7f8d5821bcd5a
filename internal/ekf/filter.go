package ekf

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Observer receives filter internals for diagnostics. It mirrors the debug
// collector hook on the tracker and is nil by default.
type Observer interface {
	IsEnabled() bool
	RecordPrediction(s State, dt float64)
	RecordInnovation(predicted State, z Measurement, residual float64)
}

// Filter is the extended Kalman filter. Create one with New.
type Filter struct {
	dt  float64
	cfg Config

	x State
	p *mat.SymDense // 5x5 covariance

	q *mat.DiagDense // process noise
	r *mat.DiagDense // measurement noise
	h *mat.Dense     // 2x5 observation, selects x and y

	// Observer, when set and enabled, is called on every predict and update.
	Observer Observer
}

// New returns a filter with step interval dt and the given noise model. The
// state starts at zero with the initial covariance; call Initialize before
// use.
func New(dt float64, cfg Config) *Filter {
	f := &Filter{
		dt:  dt,
		cfg: cfg,
		q:   mat.NewDiagDense(StateDim, cfg.ProcessNoise[:]),
		r:   mat.NewDiagDense(MeasDim, cfg.MeasurementNoise[:]),
		h: mat.NewDense(MeasDim, StateDim, []float64{
			1, 0, 0, 0, 0,
			0, 1, 0, 0, 0,
		}),
	}
	f.resetCovariance()
	return f
}

func (f *Filter) resetCovariance() {
	p := mat.NewSymDense(StateDim, nil)
	for i := 0; i < StateDim; i++ {
		p.SetSym(i, i, f.cfg.InitialCovariance)
	}
	f.p = p
}

// Initialize sets the estimate to s and resets the covariance.
func (f *Filter) Initialize(s State) {
	f.x = s
	f.resetCovariance()
}

// InitializeVector is Initialize for a raw vector. A vector that is not
// exactly StateDim long fails with ErrDimension and leaves the filter as it
// was.
func (f *Filter) InitializeVector(v []float64) error {
	s, err := StateFromSlice(v)
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	f.Initialize(s)
	return nil
}

// SetStepInterval sets dt for subsequent predictions. Callers clamp dt to a
// sane range; the filter does not.
func (f *Filter) SetStepInterval(dt float64) { f.dt = dt }

// State returns a snapshot of the estimate.
func (f *Filter) State() State { return f.x }

// Covariance returns a copy of the state covariance.
func (f *Filter) Covariance() *mat.SymDense {
	c := mat.NewSymDense(StateDim, nil)
	c.CopySym(f.p)
	return c
}

// transition returns the constant-velocity Jacobian for the current dt:
//
//	F = [1 0 dt 0  0]
//	    [0 1 0  dt 0]
//	    [0 0 1  0  0]
//	    [0 0 0  1  0]
//	    [0 0 0  0  1]
func (f *Filter) transition() *mat.Dense {
	F := identity(StateDim)
	F.Set(0, 2, f.dt)
	F.Set(1, 3, f.dt)
	return F
}

// Predict propagates the state by one step using a body-frame forward
// acceleration (m/s²) and a yaw rate (rad/s).
func (f *Filter) Predict(forwardAccel, yawRate float64) {
	dt := f.dt
	s := f.x

	// Rotate into the world frame with the yaw held at the start of the step.
	axW := forwardAccel * math.Cos(s.Yaw)
	ayW := forwardAccel * math.Sin(s.Yaw)

	f.x = State{
		X:   s.X + s.VX*dt + 0.5*axW*dt*dt,
		Y:   s.Y + s.VY*dt + 0.5*ayW*dt*dt,
		VX:  s.VX + axW*dt,
		VY:  s.VY + ayW*dt,
		Yaw: Wrap(s.Yaw + yawRate*dt),
	}

	// P' = F·P·Fᵀ + Q
	F := f.transition()
	var fp, fpf mat.Dense
	fp.Mul(F, f.p)
	fpf.Mul(&fp, F.T())
	fpf.Add(&fpf, f.q)
	f.p = symmetrize(&fpf)

	if f.Observer != nil && f.Observer.IsEnabled() {
		f.Observer.RecordPrediction(f.x, dt)
	}
}

// Update corrects the estimate with a position fix. If the innovation
// covariance is singular the filter is left untouched and
// ErrSingularInnovation is returned.
func (f *Filter) Update(z Measurement) error {
	vec := f.x.Vector()
	xv := mat.NewVecDense(StateDim, vec[:])
	zv := mat.NewVecDense(MeasDim, []float64{z.X, z.Y})

	// Innovation y = z - H·x
	var hx, y mat.VecDense
	hx.MulVec(f.h, xv)
	y.SubVec(zv, &hx)

	// S = H·P·Hᵀ + R
	var hp, s mat.Dense
	hp.Mul(f.h, f.p)
	s.Mul(&hp, f.h.T())
	s.Add(&s, f.r)

	var sInv mat.Dense
	if err := sInv.Inverse(&s); err != nil {
		return fmt.Errorf("update: %w: %v", ErrSingularInnovation, err)
	}
	if !finite(&sInv) {
		return fmt.Errorf("update: %w", ErrSingularInnovation)
	}

	if f.Observer != nil && f.Observer.IsEnabled() {
		f.Observer.RecordInnovation(f.x, z, math.Hypot(y.AtVec(0), y.AtVec(1)))
	}

	// K = P·Hᵀ·S⁻¹
	var pht, k mat.Dense
	pht.Mul(f.p, f.h.T())
	k.Mul(&pht, &sInv)

	// x' = x + K·y
	var ky mat.VecDense
	ky.MulVec(&k, &y)
	xv.AddVec(xv, &ky)

	// P' = (I - K·H)·P
	var kh, np mat.Dense
	kh.Mul(&k, f.h)
	ikh := identity(StateDim)
	ikh.Sub(ikh, &kh)
	np.Mul(ikh, f.p)

	var out [StateDim]float64
	copy(out[:], xv.RawVector().Data)
	out[4] = Wrap(out[4])
	f.x = stateFromArray(out)
	f.p = symmetrize(&np)
	return nil
}

// UpdateVector is Update for a raw vector. A vector that is not exactly
// MeasDim long fails with ErrDimension and leaves the filter as it was.
func (f *Filter) UpdateVector(z []float64) error {
	m, err := MeasurementFromSlice(z)
	if err != nil {
		return fmt.Errorf("update: %w", err)
	}
	return f.Update(m)
}

func identity(n int) *mat.Dense {
	m := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		m.Set(i, i, 1)
	}
	return m
}

// symmetrize returns (m + mᵀ)/2, removing round-off asymmetry.
func symmetrize(m mat.Matrix) *mat.SymDense {
	n, _ := m.Dims()
	s := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			s.SetSym(i, j, 0.5*(m.At(i, j)+m.At(j, i)))
		}
	}
	return s
}

func finite(m mat.Matrix) bool {
	r, c := m.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			v := m.At(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
	}
	return true
}
