package kinematics

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// revolute axes below this magnitude are treated as prismatic
const omegaEps = 1e-9

// FK computes the end-effector pose for one joint vector. The result is a
// 4x4 homogeneous transform in the base frame. FK is pure: it depends only
// on its arguments and the model constants.
func (m *Model) FK(angles []float64) (*mat.Dense, error) {
	if len(angles) != len(m.screws) {
		return nil, fmt.Errorf("%w: got %d angles, model has %d joints",
			ErrShapeMismatch, len(angles), len(m.screws))
	}
	pose := mat.NewDense(4, 4, nil)
	identity(pose)
	step := mat.NewDense(4, 4, nil)
	for i, s := range m.screws {
		expTwist(step, s, angles[i])
		pose.Mul(pose, step)
	}
	pose.Mul(pose, m.home)
	return pose, nil
}

// FKSequence computes one pose per row of q, reading the model's joint
// angles from columns colOffset..colOffset+DOF. Rows narrower than that
// window fail with ErrShapeMismatch.
func (m *Model) FKSequence(q *mat.Dense, colOffset int) ([]*mat.Dense, error) {
	rows, cols := q.Dims()
	if colOffset < 0 || colOffset+m.DOF() > cols {
		return nil, fmt.Errorf("%w: need columns %d..%d, matrix has %d",
			ErrShapeMismatch, colOffset, colOffset+m.DOF(), cols)
	}
	poses := make([]*mat.Dense, rows)
	angles := make([]float64, m.DOF())
	for i := 0; i < rows; i++ {
		for j := range angles {
			angles[j] = q.At(i, colOffset+j)
		}
		pose, err := m.FK(angles)
		if err != nil {
			return nil, err
		}
		poses[i] = pose
	}
	return poses, nil
}

// Position extracts the translation component of a homogeneous transform.
func Position(pose *mat.Dense) r3.Vec {
	return r3.Vec{X: pose.At(0, 3), Y: pose.At(1, 3), Z: pose.At(2, 3)}
}

// expTwist writes exp([S]θ) into dst using the closed-form se(3)
// exponential (Rodrigues for the rotation block).
func expTwist(dst *mat.Dense, s Screw, theta float64) {
	identity(dst)

	wx, wy, wz := s[0], s[1], s[2]
	vx, vy, vz := s[3], s[4], s[5]

	if math.Sqrt(wx*wx+wy*wy+wz*wz) < omegaEps {
		// prismatic: pure translation along v
		dst.Set(0, 3, vx*theta)
		dst.Set(1, 3, vy*theta)
		dst.Set(2, 3, vz*theta)
		return
	}

	sin, cos := math.Sin(theta), math.Cos(theta)

	// [ω] and [ω]²
	w := mat.NewDense(3, 3, []float64{
		0, -wz, wy,
		wz, 0, -wx,
		-wy, wx, 0,
	})
	w2 := mat.NewDense(3, 3, nil)
	w2.Mul(w, w)

	// R = I + sinθ[ω] + (1-cosθ)[ω]²
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			r := sin*w.At(i, j) + (1-cos)*w2.At(i, j)
			if i == j {
				r++
			}
			dst.Set(i, j, r)
		}
	}

	// p = (Iθ + (1-cosθ)[ω] + (θ-sinθ)[ω]²) v
	v := [3]float64{vx, vy, vz}
	for i := 0; i < 3; i++ {
		p := theta * v[i]
		for j := 0; j < 3; j++ {
			g := (1-cos)*w.At(i, j) + (theta-sin)*w2.At(i, j)
			p += g * v[j]
		}
		dst.Set(i, 3, p)
	}
}

func identity(dst *mat.Dense) {
	dst.Zero()
	for i := 0; i < 4; i++ {
		dst.Set(i, i, 1)
	}
}
