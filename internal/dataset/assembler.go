package dataset

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/demoset/internal/calib"
	"github.com/banshee-data/demoset/internal/episode"
	"github.com/banshee-data/demoset/internal/kinematics"
	"github.com/banshee-data/demoset/internal/trajectory"
)

// Assembler turns one loaded episode into a demo record: forward
// kinematics over the measured joints, camera-frame re-expression,
// trajectory-window labels, and a second kinematics pass over the
// commanded actions. It holds only shared read-only state, so one
// Assembler serves all workers concurrently.
type Assembler struct {
	Model     *kinematics.Model
	Extrinsic calib.Extrinsic
	Source    trajectory.SourceType
	Arm       episode.Arm
}

// DemoRecord is one assembled episode, ready to write. Image frames are
// not part of the record; they stream from the source archive at write
// time.
type DemoRecord struct {
	Index      int
	Label      string
	NumSamples int

	JointPositions *mat.Dense  // [T, ArmColumns]
	EEPose         []r3.Vec    // camera-frame, measured joints
	Actions        [][]float64 // trajectory windows, one per timestep
	ActionsJoints  *mat.Dense  // [T, ArmColumns]
	ActionsXYZ     []r3.Vec    // camera-frame, commanded joints
}

// Featurize computes a demo record from an episode. It is pure with
// respect to the assembler's shared state and safe to call from multiple
// workers.
func (a *Assembler) Featurize(ep *episode.Episode) (*DemoRecord, error) {
	offset := a.Arm.Offset()
	t := ep.Samples()
	if ep.Joints() < offset+episode.ArmColumns {
		return nil, fmt.Errorf("%w: episode %d has %d joint columns, arm %q needs %d",
			kinematics.ErrShapeMismatch, ep.Index, ep.Joints(), a.Arm, offset+episode.ArmColumns)
	}

	// Observation side: FK over measured joints, re-expressed in the
	// camera frame, then windowed into labels.
	eePose, err := a.featurize(ep.Qpos, offset)
	if err != nil {
		return nil, fmt.Errorf("dataset: episode %d qpos: %w", ep.Index, err)
	}

	// Action side: the same kinematics over the commanded joints. This
	// re-derivation from commands (rather than reusing the measured pass)
	// is deliberate; see DESIGN.md.
	actionsXYZ, err := a.featurize(ep.Action, offset)
	if err != nil {
		return nil, fmt.Errorf("dataset: episode %d action: %w", ep.Index, err)
	}

	return &DemoRecord{
		Index:          ep.Index,
		Label:          a.Source.Label,
		NumSamples:     t,
		JointPositions: armSlice(ep.Qpos, offset),
		EEPose:         eePose,
		Actions:        a.Source.Windows(eePose),
		ActionsJoints:  armSlice(ep.Action, offset),
		ActionsXYZ:     actionsXYZ,
	}, nil
}

// featurize runs FK over the model's joint columns of q and maps the
// resulting positions into the calibration's camera frame.
func (a *Assembler) featurize(q *mat.Dense, offset int) ([]r3.Vec, error) {
	poses, err := a.Model.FKSequence(q, offset)
	if err != nil {
		return nil, err
	}
	base := make([]r3.Vec, len(poses))
	for i, pose := range poses {
		base[i] = kinematics.Position(pose)
	}
	return a.Extrinsic.ApplyAll(base), nil
}

// armSlice copies the arm's full column block (joints plus gripper).
func armSlice(q *mat.Dense, offset int) *mat.Dense {
	rows, _ := q.Dims()
	return mat.DenseCopyOf(q.Slice(0, rows, offset, offset+episode.ArmColumns))
}

// WriteDemo persists a record and its camera streams in one transaction,
// streaming frames from the source archive. Camera streams keep the
// output naming convention (front_img_1, right_wrist_img). A previously
// written demo index fails with ErrDuplicateDemo; nothing from the failed
// demo remains in the container.
func (s *Store) WriteDemo(rec *DemoRecord, ep *episode.Episode) (err error) {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("dataset: begin demo %d: %w", rec.Index, err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var exists int
	if err = tx.QueryRow(`SELECT COUNT(*) FROM demos WHERE demo_index = ?`, rec.Index).Scan(&exists); err != nil {
		return fmt.Errorf("dataset: check demo %d: %w", rec.Index, err)
	}
	if exists > 0 {
		return fmt.Errorf("%w: demo_%d already written (source %s)", ErrDuplicateDemo, rec.Index, ep.Path)
	}

	blobs := map[string][]byte{}
	for name, m := range map[string]*mat.Dense{
		"joint_positions": rec.JointPositions,
		"ee_pose":         vecsToDense(rec.EEPose),
		"actions":         windowsToDense(rec.Actions),
		"actions_joints":  rec.ActionsJoints,
		"actions_xyz":     vecsToDense(rec.ActionsXYZ),
	} {
		blob, encErr := encodeMatrix(m)
		if encErr != nil {
			return fmt.Errorf("dataset: demo %d %s: %w", rec.Index, name, encErr)
		}
		blobs[name] = blob
	}

	_, err = tx.Exec(`
		INSERT INTO demos (
			demo_index, label, num_samples,
			joint_positions, ee_pose, actions, actions_joints, actions_xyz,
			created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, strftime('%s','now'))`,
		rec.Index, rec.Label, rec.NumSamples,
		blobs["joint_positions"], blobs["ee_pose"], blobs["actions"],
		blobs["actions_joints"], blobs["actions_xyz"],
	)
	if err != nil {
		return fmt.Errorf("dataset: insert demo %d: %w", rec.Index, err)
	}

	frameStmt, err := tx.Prepare(`
		INSERT INTO frames (demo_index, camera, frame_index, data) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("dataset: prepare frames for demo %d: %w", rec.Index, err)
	}
	defer frameStmt.Close()

	for _, cam := range ep.Cameras {
		outName := OutputCameraName(cam.Name)
		_, err = tx.Exec(`
			INSERT INTO cameras (demo_index, camera, frames, height, width, channels)
			VALUES (?, ?, ?, ?, ?, ?)`,
			rec.Index, outName, cam.Frames, cam.Height, cam.Width, cam.Channels)
		if err != nil {
			return fmt.Errorf("dataset: insert camera %s for demo %d: %w", outName, rec.Index, err)
		}

		err = ep.EachFrame(cam.Name, func(i int, data []byte) error {
			if _, ferr := frameStmt.Exec(rec.Index, outName, i, data); ferr != nil {
				return fmt.Errorf("dataset: insert %s frame %d for demo %d: %w", outName, i, rec.Index, ferr)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("dataset: commit demo %d: %w", rec.Index, err)
	}
	return nil
}

// OutputCameraName maps a rig camera stream to its name in the container.
func OutputCameraName(in string) string {
	switch in {
	case "cam_high":
		return "front_img_1"
	case "cam_right_wrist":
		return "right_wrist_img"
	default:
		return in + "_img"
	}
}

func vecsToDense(vs []r3.Vec) *mat.Dense {
	m := mat.NewDense(len(vs), 3, nil)
	for i, v := range vs {
		m.Set(i, 0, v.X)
		m.Set(i, 1, v.Y)
		m.Set(i, 2, v.Z)
	}
	return m
}

// windowsToDense flattens trajectory windows into a [T, width] matrix.
// Episodes always have T>0, so ws is never empty.
func windowsToDense(ws [][]float64) *mat.Dense {
	m := mat.NewDense(len(ws), len(ws[0]), nil)
	for i, w := range ws {
		m.SetRow(i, w)
	}
	return m
}
