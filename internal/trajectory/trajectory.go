// Package trajectory builds the fixed-horizon future-position labels used
// as training targets: for each timestep, the next FutureCount positions
// sampled every PointGap steps, flattened to one row.
package trajectory

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// SourceType is a closed variant describing where the capture came from.
// The variant carries its own sampling parameters and stored label; hand
// captures move faster than robot replays, so they sample a tighter gap.
type SourceType struct {
	Label       string
	PointGap    int
	FutureCount int
}

// The two supported capture sources.
var (
	Hand  = SourceType{Label: "hand", PointGap: 4, FutureCount: 10}
	Robot = SourceType{Label: "robot", PointGap: 15, FutureCount: 10}
)

// ParseSourceType resolves a CLI tag to its variant.
func ParseSourceType(s string) (SourceType, error) {
	switch s {
	case Hand.Label:
		return Hand, nil
	case Robot.Label:
		return Robot, nil
	default:
		return SourceType{}, fmt.Errorf("trajectory: unknown data type %q (want %q or %q)", s, Hand.Label, Robot.Label)
	}
}

// Width returns the flattened window length, 3·FutureCount.
func (st SourceType) Width() int { return 3 * st.FutureCount }

// Window builds the label for query index i over pts. Sample k (1-based)
// is the position at min(len(pts)-1, i+k·PointGap): once the horizon runs
// past the end of the episode the final position repeats, so every window
// has the same width.
func (st SourceType) Window(pts []r3.Vec, i int) []float64 {
	last := len(pts) - 1
	out := make([]float64, 0, st.Width())
	for k := 1; k <= st.FutureCount; k++ {
		idx := i + k*st.PointGap
		if idx > last {
			idx = last
		}
		p := pts[idx]
		out = append(out, p.X, p.Y, p.Z)
	}
	return out
}

// Windows materializes one window per index, len(pts) rows in total.
func (st SourceType) Windows(pts []r3.Vec) [][]float64 {
	out := make([][]float64, len(pts))
	for i := range pts {
		out[i] = st.Window(pts, i)
	}
	return out
}
