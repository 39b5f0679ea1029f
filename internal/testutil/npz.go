// Package testutil builds synthetic episode captures for tests.
package testutil

import (
	"archive/zip"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/sbinet/npyio"
	"gonum.org/v1/gonum/mat"
)

// EpisodeOpts describes a synthetic capture. Zero-value numeric fields get
// small defaults so tests only set what they assert on.
type EpisodeOpts struct {
	T       int      // samples; default 8
	J       int      // joint width; default 14
	Cameras []string // default cam_high, cam_right_wrist
	Height  int      // default 4
	Width   int      // default 5

	// Qpos/Action fill the measured and commanded joint matrices. Nil
	// leaves them zero, which puts the arm at its home configuration.
	Qpos   func(i, j int) float64
	Action func(i, j int) float64
}

func (o *EpisodeOpts) defaults() {
	if o.T == 0 {
		o.T = 8
	}
	if o.J == 0 {
		o.J = 14
	}
	if o.Cameras == nil {
		o.Cameras = []string{"cam_high", "cam_right_wrist"}
	}
	if o.Height == 0 {
		o.Height = 4
	}
	if o.Width == 0 {
		o.Width = 5
	}
}

// WriteEpisodeNPZ writes a capture archive with the rig's member layout.
// Image frame i of every camera is filled with byte(i), so frame content
// identifies its index.
func WriteEpisodeNPZ(path string, opts EpisodeOpts) error {
	opts.defaults()

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	zw := zip.NewWriter(f)

	matrices := map[string]func(i, j int) float64{
		"action.npy":              opts.Action,
		"observations/qpos.npy":   opts.Qpos,
		"observations/qvel.npy":   nil,
		"observations/effort.npy": nil,
	}
	// Stable member order keeps fixture archives byte-reproducible.
	for _, name := range []string{"action.npy", "observations/qpos.npy", "observations/qvel.npy", "observations/effort.npy"} {
		w, err := zw.Create(name)
		if err != nil {
			return err
		}
		m := mat.NewDense(opts.T, opts.J, nil)
		if fill := matrices[name]; fill != nil {
			for i := 0; i < opts.T; i++ {
				for j := 0; j < opts.J; j++ {
					m.Set(i, j, fill(i, j))
				}
			}
		}
		if err := npyio.Write(w, m); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
	}

	frame := make([]byte, opts.Height*opts.Width*3)
	for _, cam := range opts.Cameras {
		w, err := zw.Create("observations/images/" + cam + ".npy")
		if err != nil {
			return err
		}
		shape := []int{opts.T, opts.Height, opts.Width, 3}
		if err := writeNPYHeader(w, "|u1", shape); err != nil {
			return fmt.Errorf("write camera %s: %w", cam, err)
		}
		for i := 0; i < opts.T; i++ {
			for b := range frame {
				frame[b] = byte(i)
			}
			if _, err := w.Write(frame); err != nil {
				return fmt.Errorf("write camera %s frame %d: %w", cam, i, err)
			}
		}
	}

	return zw.Close()
}

// MustWriteEpisodeNPZ is WriteEpisodeNPZ for test setup.
func MustWriteEpisodeNPZ(tb testing.TB, path string, opts EpisodeOpts) {
	tb.Helper()
	if err := WriteEpisodeNPZ(path, opts); err != nil {
		tb.Fatalf("write episode fixture %s: %v", path, err)
	}
}

// writeNPYHeader emits an NPY v1 header for a C-order array of the given
// dtype and shape. npyio writes 1-D and 2-D arrays only, so the 4-D image
// members are framed by hand.
func writeNPYHeader(w io.Writer, descr string, shape []int) error {
	dims := make([]string, len(shape))
	for i, d := range shape {
		dims[i] = fmt.Sprint(d)
	}
	tuple := strings.Join(dims, ", ")
	if len(shape) == 1 {
		tuple += ","
	}
	header := fmt.Sprintf("{'descr': '%s', 'fortran_order': False, 'shape': (%s), }", descr, tuple)

	// Pad so the data block starts 64-byte aligned, ending with newline.
	total := 10 + len(header) + 1
	if pad := total % 64; pad != 0 {
		header += strings.Repeat(" ", 64-pad)
	}
	header += "\n"

	if _, err := w.Write([]byte("\x93NUMPY\x01\x00")); err != nil {
		return err
	}
	var hlen [2]byte
	binary.LittleEndian.PutUint16(hlen[:], uint16(len(header)))
	if _, err := w.Write(hlen[:]); err != nil {
		return err
	}
	_, err := io.WriteString(w, header)
	return err
}
