package episode

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// ErrCorrupt reports a candidate episode file that fails to open or parse.
// It is fatal: validation aborts the whole run before any output exists.
var ErrCorrupt = errors.New("episode: corrupt input")

// Ref identifies one source episode: its file path and the demo index
// parsed from the filename. Indices come from the capture rig and are not
// necessarily contiguous.
type Ref struct {
	Path  string
	Index int
}

// Camera describes one image stream's geometry. Frame data stays on disk
// until streamed via EachFrame.
type Camera struct {
	Name     string
	Frames   int
	Height   int
	Width    int
	Channels int
}

// Episode is one loaded capture. All time-indexed members share the same
// leading length; Episode is immutable once loaded.
type Episode struct {
	Ref

	Action *mat.Dense // commanded joint targets [T,J]
	Qpos   *mat.Dense // measured joint positions [T,J]
	Qvel   *mat.Dense // measured joint velocities [T,J]
	Effort *mat.Dense // measured joint efforts [T,J]

	Cameras []Camera
}

// Samples returns T, the shared time-axis length.
func (e *Episode) Samples() int {
	r, _ := e.Action.Dims()
	return r
}

// Joints returns J, the joint-vector width.
func (e *Episode) Joints() int {
	_, c := e.Action.Dims()
	return c
}

// Camera returns the stream with the given name.
func (e *Episode) Camera(name string) (Camera, bool) {
	for _, c := range e.Cameras {
		if c.Name == name {
			return c, true
		}
	}
	return Camera{}, false
}

// checkInvariants verifies the cross-array shape contract: T>0 and a
// single (T, J) shared by every numeric array and every camera stream.
func (e *Episode) checkInvariants() error {
	t, j := e.Action.Dims()
	if t == 0 {
		return fmt.Errorf("%w: %s: episode has no samples", ErrCorrupt, e.Path)
	}
	for name, m := range map[string]*mat.Dense{
		"observations/qpos":   e.Qpos,
		"observations/qvel":   e.Qvel,
		"observations/effort": e.Effort,
	} {
		mt, mj := m.Dims()
		if mt != t || mj != j {
			return fmt.Errorf("%w: %s: %s is %dx%d, action is %dx%d",
				ErrCorrupt, e.Path, name, mt, mj, t, j)
		}
	}
	if len(e.Cameras) == 0 {
		return fmt.Errorf("%w: %s: no camera streams", ErrCorrupt, e.Path)
	}
	for _, c := range e.Cameras {
		if c.Frames != t {
			return fmt.Errorf("%w: %s: camera %s has %d frames, expected %d",
				ErrCorrupt, e.Path, c.Name, c.Frames, t)
		}
		if c.Height <= 0 || c.Width <= 0 || c.Channels != 3 {
			return fmt.Errorf("%w: %s: camera %s has shape [%d,%d,%d,%d]",
				ErrCorrupt, e.Path, c.Name, c.Frames, c.Height, c.Width, c.Channels)
		}
	}
	return nil
}
