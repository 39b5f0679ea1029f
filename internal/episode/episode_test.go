package episode_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/demoset/internal/episode"
	"github.com/banshee-data/demoset/internal/testutil"
)

func TestLoad(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "episode_0.npz")
	testutil.MustWriteEpisodeNPZ(t, path, testutil.EpisodeOpts{
		T: 6,
		J: 14,
		Qpos: func(i, j int) float64 {
			return float64(i) + float64(j)/100
		},
	})

	ep, err := episode.Load(episode.Ref{Path: path, Index: 0})
	require.NoError(t, err)

	assert.Equal(t, 6, ep.Samples())
	assert.Equal(t, 14, ep.Joints())
	assert.InDelta(t, 5.13, ep.Qpos.At(5, 13), 1e-12)

	require.Len(t, ep.Cameras, 2)
	cam, ok := ep.Camera("cam_high")
	require.True(t, ok)
	assert.Equal(t, 6, cam.Frames)
	assert.Equal(t, 4, cam.Height)
	assert.Equal(t, 5, cam.Width)
	assert.Equal(t, 3, cam.Channels)
}

func TestLoadRejectsGarbage(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "episode_1.npz")
	require.NoError(t, os.WriteFile(path, []byte("not a zip archive"), 0o644))

	_, err := episode.Load(episode.Ref{Path: path, Index: 1})
	require.Error(t, err)
	assert.ErrorIs(t, err, episode.ErrCorrupt)
	assert.Contains(t, err.Error(), path)
}

func TestEachFrameStreamsInOrder(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "episode_2.npz")
	testutil.MustWriteEpisodeNPZ(t, path, testutil.EpisodeOpts{T: 5})

	ep, err := episode.Load(episode.Ref{Path: path, Index: 2})
	require.NoError(t, err)

	var got []int
	err = ep.EachFrame("cam_high", func(i int, data []byte) error {
		got = append(got, i)
		// fixture frames are filled with their own index
		assert.Equal(t, byte(i), data[0])
		assert.Len(t, data, 4*5*3)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, got)
}

func TestEachFrameUnknownCamera(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "episode_3.npz")
	testutil.MustWriteEpisodeNPZ(t, path, testutil.EpisodeOpts{})

	ep, err := episode.Load(episode.Ref{Path: path, Index: 3})
	require.NoError(t, err)

	err = ep.EachFrame("cam_left_wrist", func(int, []byte) error { return nil })
	assert.Error(t, err)
}

func TestScan(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	testutil.MustWriteEpisodeNPZ(t, filepath.Join(dir, "episode_3.npz"), testutil.EpisodeOpts{})
	testutil.MustWriteEpisodeNPZ(t, filepath.Join(dir, "episode_7.npz"), testutil.EpisodeOpts{})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "episode_backups"), 0o755))

	refs, err := episode.Scan(dir)
	require.NoError(t, err)

	// non-matching files and directories are skipped without being opened;
	// indices come from the filenames, not renumbered
	require.Len(t, refs, 2)
	assert.Equal(t, 3, refs[0].Index)
	assert.Equal(t, 7, refs[1].Index)
}

func TestScanBadIndexIsCorrupt(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "episode_final.npz"), []byte("x"), 0o644))

	_, err := episode.Scan(dir)
	require.Error(t, err)
	assert.ErrorIs(t, err, episode.ErrCorrupt)
}

func TestValidateAll(t *testing.T) {
	t.Parallel()

	t.Run("passes clean directory", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		testutil.MustWriteEpisodeNPZ(t, filepath.Join(dir, "episode_0.npz"), testutil.EpisodeOpts{})
		refs, err := episode.Scan(dir)
		require.NoError(t, err)
		assert.NoError(t, episode.ValidateAll(refs))
	})

	t.Run("fails on one corrupt file", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		testutil.MustWriteEpisodeNPZ(t, filepath.Join(dir, "episode_0.npz"), testutil.EpisodeOpts{})
		require.NoError(t, os.WriteFile(filepath.Join(dir, "episode_1.npz"), []byte("truncated"), 0o644))

		refs, err := episode.Scan(dir)
		require.NoError(t, err)
		err = episode.ValidateAll(refs)
		require.Error(t, err)
		assert.ErrorIs(t, err, episode.ErrCorrupt)
	})
}

func TestParseArm(t *testing.T) {
	t.Parallel()

	left, err := episode.ParseArm("left")
	require.NoError(t, err)
	assert.Equal(t, 0, left.Offset())

	right, err := episode.ParseArm("right")
	require.NoError(t, err)
	assert.Equal(t, episode.ArmColumns, right.Offset())

	_, err = episode.ParseArm("both")
	assert.Error(t, err)
}
