package dataset

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// insertBareDemo writes a demo row directly; split logic only needs the
// index set, not real array payloads.
func insertBareDemo(t *testing.T, s *Store, index int) {
	t.Helper()
	_, err := s.db.Exec(`
		INSERT INTO demos (demo_index, label, num_samples,
			joint_positions, ee_pose, actions, actions_joints, actions_xyz, created_at)
		VALUES (?, 'robot', 1, x'00', x'00', x'00', x'00', x'00', 0)`, index)
	require.NoError(t, err)
}

func newSplitStore(t *testing.T, indices []int) *Store {
	t.Helper()
	store, err := Create(filepath.Join(t.TempDir(), "split.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	for _, idx := range indices {
		insertBareDemo(t, store, idx)
	}
	return store
}

func TestWriteSplitPartition(t *testing.T) {
	t.Parallel()
	indices := []int{1, 2, 3, 5, 8, 13, 21, 34, 55, 89}
	store := newSplitStore(t, indices)

	train, val, err := store.WriteSplit(0.2, 7)
	require.NoError(t, err)

	// round(0.2 * 10) validation demos, the rest train.
	assert.Len(t, val, 2)
	assert.Len(t, train, 8)

	// Disjoint cover of the full index set.
	seen := map[int]int{}
	for _, idx := range append(append([]int(nil), train...), val...) {
		seen[idx]++
	}
	for _, idx := range indices {
		assert.Equal(t, 1, seen[idx], "index %d must appear exactly once", idx)
	}

	// The persisted filter keys match the returned sets.
	gotTrain, err := store.Split(SplitTrain)
	require.NoError(t, err)
	gotVal, err := store.Split(SplitVal)
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(train, gotTrain))
	assert.Empty(t, cmp.Diff(val, gotVal))
}

func TestWriteSplitReproducible(t *testing.T) {
	t.Parallel()
	indices := []int{0, 1, 2, 3, 4, 5, 6}

	a := newSplitStore(t, indices)
	b := newSplitStore(t, indices)

	_, valA, err := a.WriteSplit(0.3, 42)
	require.NoError(t, err)
	_, valB, err := b.WriteSplit(0.3, 42)
	require.NoError(t, err)

	assert.Equal(t, valA, valB, "same seed and inputs must reproduce the split")
}

func TestWriteSplitEmptyDataset(t *testing.T) {
	t.Parallel()
	store := newSplitStore(t, nil)

	_, _, err := store.WriteSplit(0.2, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmptyDataset)
}

func TestWriteSplitBadRatio(t *testing.T) {
	t.Parallel()
	store := newSplitStore(t, []int{0})

	for _, ratio := range []float64{0, 1, -0.5, 1.5} {
		_, _, err := store.WriteSplit(ratio, 0)
		assert.Error(t, err, "ratio %v", ratio)
	}
}

func TestMeta(t *testing.T) {
	t.Parallel()
	store, err := Create(filepath.Join(t.TempDir(), "meta.db"))
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.SetEnvArgs(`{}`))
	got, err := store.Meta("env_args")
	require.NoError(t, err)
	assert.Equal(t, `{}`, got)

	id, err := store.Meta("conversion_id")
	require.NoError(t, err)
	assert.NotEmpty(t, id)
}
