// Package calib holds the extrinsic calibration registry: named rigid
// transforms that re-express robot-base-frame points in a specific camera
// frame. The registry is an explicit value built at startup and threaded
// through calls, never package-global state.
package calib

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// ErrUnknown reports a calibration key absent from the registry. There is
// no silent fallback: an unknown rig name is fatal.
var ErrUnknown = errors.New("calib: unknown calibration key")

// ArmJointOffset is the column where the converted arm's joints begin in
// the rig's 14-wide joint recordings (left arm occupies the first seven
// columns: six joints plus gripper). Confirm against the hardware joint
// ordering before reusing with another rig.
const ArmJointOffset = 7

// Extrinsic is a rigid transform mapping base-frame points into a camera
// frame.
type Extrinsic struct {
	rot   *mat.Dense // 3x3 rotation
	trans r3.Vec
}

// NewExtrinsic validates that rot is a 3x3 rotation matrix (orthonormal,
// within tolerance) and returns the transform.
func NewExtrinsic(rot *mat.Dense, trans r3.Vec) (Extrinsic, error) {
	r, c := rot.Dims()
	if r != 3 || c != 3 {
		return Extrinsic{}, fmt.Errorf("calib: rotation must be 3x3, got %dx%d", r, c)
	}
	var rtr mat.Dense
	rtr.Mul(rot.T(), rot)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			want := 0.0
			if i == j {
				want = 1.0
			}
			if math.Abs(rtr.At(i, j)-want) > 1e-6 {
				return Extrinsic{}, errors.New("calib: rotation matrix is not orthonormal")
			}
		}
	}
	return Extrinsic{rot: mat.DenseCopyOf(rot), trans: trans}, nil
}

// Apply maps a single base-frame point into the camera frame: R·p + t.
func (e Extrinsic) Apply(p r3.Vec) r3.Vec {
	return r3.Vec{
		X: e.rot.At(0, 0)*p.X + e.rot.At(0, 1)*p.Y + e.rot.At(0, 2)*p.Z + e.trans.X,
		Y: e.rot.At(1, 0)*p.X + e.rot.At(1, 1)*p.Y + e.rot.At(1, 2)*p.Z + e.trans.Y,
		Z: e.rot.At(2, 0)*p.X + e.rot.At(2, 1)*p.Y + e.rot.At(2, 2)*p.Z + e.trans.Z,
	}
}

// ApplyAll maps every point independently; there is no cross-sample
// coupling.
func (e Extrinsic) ApplyAll(pts []r3.Vec) []r3.Vec {
	out := make([]r3.Vec, len(pts))
	for i, p := range pts {
		out[i] = e.Apply(p)
	}
	return out
}

// Inverse returns the camera-to-base transform: Rᵀ, -Rᵀt.
func (e Extrinsic) Inverse() Extrinsic {
	var rt mat.Dense
	rt.CloneFrom(e.rot.T())
	inv := Extrinsic{rot: &rt}
	t := inv.Apply(r3.Vec{X: -e.trans.X, Y: -e.trans.Y, Z: -e.trans.Z})
	// Apply above used a zero translation; t is -Rᵀ·trans.
	inv.trans = t
	return inv
}

// Registry maps calibration keys to extrinsic transforms.
type Registry struct {
	entries map[string]Extrinsic
}

// NewRegistry returns an empty registry.
func NewRegistry() Registry {
	return Registry{entries: make(map[string]Extrinsic)}
}

// Add registers a calibration under key, replacing any previous entry.
func (r Registry) Add(key string, e Extrinsic) {
	r.entries[key] = e
}

// Lookup resolves a calibration key. A missing key fails with ErrUnknown.
func (r Registry) Lookup(key string) (Extrinsic, error) {
	e, ok := r.entries[key]
	if !ok {
		return Extrinsic{}, fmt.Errorf("%w: %q (have %v)", ErrUnknown, key, r.Keys())
	}
	return e, nil
}

// Keys lists registered calibration names, sorted.
func (r Registry) Keys() []string {
	keys := make([]string, 0, len(r.entries))
	for k := range r.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// DefaultRegistry returns the calibrations measured for the capture rigs
// currently in service. Values come from the overhead-camera checkerboard
// calibration runs for each rig revision.
func DefaultRegistry() Registry {
	reg := NewRegistry()
	reg.Add("overhead_apr24", mustExtrinsic(
		[]float64{
			0, -1, 0,
			0, 0, -1,
			1, 0, 0,
		},
		r3.Vec{X: 0.021, Y: 0.385, Z: 1.028},
	))
	reg.Add("overhead_jul29", mustExtrinsic(
		[]float64{
			0, -1, 0,
			0, 0, -1,
			1, 0, 0,
		},
		r3.Vec{X: 0.017, Y: 0.392, Z: 1.034},
	))
	reg.Add("identity", mustExtrinsic(
		[]float64{
			1, 0, 0,
			0, 1, 0,
			0, 0, 1,
		},
		r3.Vec{},
	))
	return reg
}

func mustExtrinsic(rot []float64, trans r3.Vec) Extrinsic {
	e, err := NewExtrinsic(mat.NewDense(3, 3, rot), trans)
	if err != nil {
		panic(err)
	}
	return e
}
