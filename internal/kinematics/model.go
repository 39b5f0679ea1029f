package kinematics

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// ErrShapeMismatch reports a joint vector whose dimension does not match
// the model's joint count.
var ErrShapeMismatch = errors.New("kinematics: joint vector dimension mismatch")

// Screw is a screw axis (wx, wy, wz, vx, vy, vz) in the base frame. The
// angular part is a unit vector for revolute joints and zero for prismatic
// joints (whose linear part is then a unit vector).
type Screw [6]float64

// Model is a fixed kinematic description: a 4x4 home configuration and an
// ordered list of screw axes. Build one at startup and share it by
// reference; it is never mutated after construction.
type Model struct {
	home   *mat.Dense
	screws []Screw
}

// NewModel validates the home transform and screw list and returns an
// immutable model. The home matrix must be 4x4; at least one screw axis is
// required.
func NewModel(home *mat.Dense, screws []Screw) (*Model, error) {
	r, c := home.Dims()
	if r != 4 || c != 4 {
		return nil, fmt.Errorf("kinematics: home configuration must be 4x4, got %dx%d", r, c)
	}
	if len(screws) == 0 {
		return nil, errors.New("kinematics: model has no screw axes")
	}
	m := &Model{home: mat.DenseCopyOf(home), screws: make([]Screw, len(screws))}
	copy(m.screws, screws)
	return m, nil
}

// DOF returns the number of joints the model describes.
func (m *Model) DOF() int { return len(m.screws) }

// Home returns a copy of the home configuration.
func (m *Model) Home() *mat.Dense { return mat.DenseCopyOf(m.home) }

// ViperX returns the kinematic model of the ViperX-300s arm used by the
// teleoperation rig. Screw axes are ordered base to gripper; units are
// metres and radians.
func ViperX() *Model {
	home := mat.NewDense(4, 4, []float64{
		1, 0, 0, 0.536494,
		0, 1, 0, 0,
		0, 0, 1, 0.42705,
		0, 0, 0, 1,
	})
	screws := []Screw{
		{0, 0, 1, 0, 0, 0},
		{0, 1, 0, -0.12705, 0, 0},
		{0, 1, 0, -0.42705, 0, 0.05955},
		{1, 0, 0, 0, 0.42705, 0},
		{0, 1, 0, -0.42705, 0, 0.35955},
		{1, 0, 0, 0, 0.42705, 0},
	}
	model, err := NewModel(home, screws)
	if err != nil {
		panic(err) // constants above are known-good
	}
	return model
}
