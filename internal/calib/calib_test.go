package calib

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestApplyInverseRoundTrip(t *testing.T) {
	t.Parallel()
	reg := DefaultRegistry()

	for _, key := range reg.Keys() {
		t.Run(key, func(t *testing.T) {
			t.Parallel()
			ext, err := reg.Lookup(key)
			require.NoError(t, err)
			inv := ext.Inverse()

			pts := []r3.Vec{
				{X: 0.1, Y: -0.2, Z: 0.3},
				{X: 0.536494, Y: 0, Z: 0.42705},
				{},
			}
			for _, p := range pts {
				back := inv.Apply(ext.Apply(p))
				assert.InDelta(t, p.X, back.X, 1e-12)
				assert.InDelta(t, p.Y, back.Y, 1e-12)
				assert.InDelta(t, p.Z, back.Z, 1e-12)
			}
		})
	}
}

func TestApplyAllIndependence(t *testing.T) {
	t.Parallel()
	ext, err := DefaultRegistry().Lookup("overhead_apr24")
	require.NoError(t, err)

	pts := []r3.Vec{{X: 1}, {Y: 1}, {Z: 1}}
	out := ext.ApplyAll(pts)
	require.Len(t, out, len(pts))
	for i, p := range pts {
		assert.Equal(t, ext.Apply(p), out[i], "sample %d must transform independently", i)
	}
}

func TestLookupUnknownKey(t *testing.T) {
	t.Parallel()
	reg := DefaultRegistry()

	_, err := reg.Lookup("no_such_rig")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknown)
}

func TestNewExtrinsicRejectsNonRotation(t *testing.T) {
	t.Parallel()

	_, err := NewExtrinsic(mat.NewDense(3, 3, []float64{
		2, 0, 0,
		0, 1, 0,
		0, 0, 1,
	}), r3.Vec{})
	assert.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	t.Parallel()

	t.Run("merges valid entries", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "rigs.json")
		content := `{
			"bench_test": {
				"rotation": [1,0,0, 0,1,0, 0,0,1],
				"translation": [0.5, 0, 0.25]
			}
		}`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

		reg := DefaultRegistry()
		require.NoError(t, LoadFile(reg, path))

		ext, err := reg.Lookup("bench_test")
		require.NoError(t, err)
		got := ext.Apply(r3.Vec{X: 1})
		assert.InDelta(t, 1.5, got.X, 1e-12)
	})

	t.Run("rejects non-json extension", func(t *testing.T) {
		t.Parallel()
		reg := NewRegistry()
		assert.Error(t, LoadFile(reg, "rigs.yaml"))
	})

	t.Run("bad rotation leaves registry untouched", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "rigs.json")
		content := `{
			"bad": {"rotation": [9,0,0, 0,9,0, 0,0,9], "translation": [0,0,0]}
		}`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

		reg := NewRegistry()
		require.Error(t, LoadFile(reg, path))
		_, err := reg.Lookup("bad")
		assert.ErrorIs(t, err, ErrUnknown)
	})
}
