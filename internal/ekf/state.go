package ekf

import (
	"errors"
	"fmt"

	"github.com/banshee-data/trajectory/internal/geo"
)

// Dimensions of the state and measurement vectors.
const (
	StateDim = 5
	MeasDim  = 2
)

var (
	// ErrDimension is returned when a vector of the wrong length is supplied.
	ErrDimension = errors.New("ekf: dimension mismatch")
	// ErrSingularInnovation is returned when the innovation covariance cannot
	// be inverted. The filter state is left unchanged.
	ErrSingularInnovation = errors.New("ekf: singular innovation covariance")
)

// State is the estimator state in the local frame.
type State struct {
	X   float64 `json:"x"`   // meters east
	Y   float64 `json:"y"`   // meters north
	VX  float64 `json:"vx"`  // m/s
	VY  float64 `json:"vy"`  // m/s
	Yaw float64 `json:"yaw"` // radians, (-π, π]
}

// Vector returns the state as x, y, vx, vy, yaw.
func (s State) Vector() [StateDim]float64 {
	return [StateDim]float64{s.X, s.Y, s.VX, s.VY, s.Yaw}
}

func stateFromArray(v [StateDim]float64) State {
	return State{X: v[0], Y: v[1], VX: v[2], VY: v[3], Yaw: v[4]}
}

// StateFromSlice converts a slice to a State, failing with ErrDimension
// unless it has exactly StateDim entries.
func StateFromSlice(v []float64) (State, error) {
	if len(v) != StateDim {
		return State{}, fmt.Errorf("state has %d components, want %d: %w", len(v), StateDim, ErrDimension)
	}
	var a [StateDim]float64
	copy(a[:], v)
	return stateFromArray(a), nil
}

// Measurement is a position fix in the local frame.
type Measurement struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// MeasurementFromSlice converts a slice to a Measurement, failing with
// ErrDimension unless it has exactly MeasDim entries.
func MeasurementFromSlice(z []float64) (Measurement, error) {
	if len(z) != MeasDim {
		return Measurement{}, fmt.Errorf("measurement has %d components, want %d: %w", len(z), MeasDim, ErrDimension)
	}
	return Measurement{X: z[0], Y: z[1]}, nil
}

// Wrap normalizes an angle to (-π, π].
func Wrap(angle float64) float64 { return geo.Wrap(angle) }
