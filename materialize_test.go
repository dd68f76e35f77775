package signpair

import (
	"context"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"sort"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMaterializer(t *testing.T, workers int) *Materializer {
	t.Helper()

	return &Materializer{
		Compositor: NewCompositor(DefaultSize, dotRenderer{}),
		TrainDir:   t.TempDir(),
		Workers:    workers,
	}
}

// newPairs writes a dataset covering every outcome of an entry.
func newPairs(t *testing.T) (string, []Entry) {
	t.Helper()

	dir := t.TempDir()
	writeImage(t, filepath.Join(dir, "illustrations", "large.png"), 300, 300, red)
	writeImage(t, filepath.Join(dir, "illustrations", "small.png"), 100, 100, red)
	writeFile(t, filepath.Join(dir, "illustrations", "corrupt.png"), "not an image")
	writeImage(t, filepath.Join(dir, "illustrations", "wide.png"), 600, 300, color.NRGBA{B: 255, A: 255})
	writeImage(t, filepath.Join(dir, "illustrations", "rendered.png"), 300, 400, color.NRGBA{G: 255, A: 255})
	writeImage(t, filepath.Join(dir, "glossen", "rendered.png"), 40, 30, black)

	entries := []Entry{
		{File: "illustrations/large.png", FSW: "M561x534S10028472x500"},
		{File: "illustrations/small.png", FSW: "M561x534S10028472x500"},
		{File: "illustrations/corrupt.png", FSW: "M561x534S10028472x500"},
		{File: "illustrations/wide.png", FSW: "M800x530S10028500x500"},
		{File: "illustrations/rendered.png", FSWFile: "glossen/rendered.png"},
	}
	return dir, entries
}

func listPNG(t *testing.T, dir string) []string {
	t.Helper()

	paths, err := filepath.Glob(filepath.Join(dir, "*.png"))
	require.NoError(t, err)
	names := make([]string, len(paths))
	for i, p := range paths {
		names[i] = filepath.Base(p)
	}
	sort.Strings(names)
	return names
}

func fileHash(t *testing.T, path string) string {
	t.Helper()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return contentHash(data)
}

func TestMaterialize_Pairs(t *testing.T) {
	dir, entries := newPairs(t)
	m := newMaterializer(t, 4)

	var progress atomic.Int32
	m.Progress = func() { progress.Add(1) }

	stats, err := m.Materialize(context.Background(), dir, entries)
	require.NoError(t, err)
	assert.Equal(t, Stats{Entries: 5, WrittenA: 3, WrittenB: 2, Skipped: 2, Failed: 1}, stats)
	assert.EqualValues(t, 5, progress.Load())

	large := fileHash(t, filepath.Join(dir, "illustrations", "large.png")) + ".png"
	rendered := fileHash(t, filepath.Join(dir, "illustrations", "rendered.png")) + ".png"
	wide := fileHash(t, filepath.Join(dir, "illustrations", "wide.png")) + ".png"

	a := listPNG(t, filepath.Join(m.TrainDir, IllustrationDir))
	b := listPNG(t, filepath.Join(m.TrainDir, SignDir))
	assert.ElementsMatch(t, []string{large, rendered, wide}, a)
	assert.ElementsMatch(t, []string{large, rendered}, b)

	for _, path := range []string{
		filepath.Join(m.TrainDir, IllustrationDir, large),
		filepath.Join(m.TrainDir, SignDir, large),
		filepath.Join(m.TrainDir, SignDir, rendered),
	} {
		img, err := decodeImg(path)
		require.NoError(t, err)
		assert.Equal(t, image.Rect(0, 0, 256, 256), img.Bounds())
	}
}

func TestMaterialize_Idempotent(t *testing.T) {
	dir, entries := newPairs(t)
	m := newMaterializer(t, 1)

	_, err := m.Materialize(context.Background(), dir, entries)
	require.NoError(t, err)
	a := listPNG(t, filepath.Join(m.TrainDir, IllustrationDir))
	b := listPNG(t, filepath.Join(m.TrainDir, SignDir))

	// Plant a marker in place of one output and remove another one.
	marker := filepath.Join(m.TrainDir, IllustrationDir, a[0])
	writeFile(t, marker, "keep me")
	require.NoError(t, os.Remove(filepath.Join(m.TrainDir, SignDir, b[0])))

	stats, err := m.Materialize(context.Background(), dir, entries)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.WrittenA)
	assert.Equal(t, 1, stats.WrittenB)

	assert.Equal(t, a, listPNG(t, filepath.Join(m.TrainDir, IllustrationDir)))
	assert.Equal(t, b, listPNG(t, filepath.Join(m.TrainDir, SignDir)))

	data, err := os.ReadFile(marker)
	require.NoError(t, err)
	assert.Equal(t, "keep me", string(data))
}

func TestMaterialize_MissingIllustration(t *testing.T) {
	dir, entries := newPairs(t)
	entries = append(entries, Entry{File: "illustrations/missing.png", FSW: "M500x500"})

	_, err := newMaterializer(t, 2).Materialize(context.Background(), dir, entries)
	assert.ErrorIs(t, err, ErrMissingIllustration)
}

func TestMaterialize_InvalidEntry(t *testing.T) {
	dir, _ := newPairs(t)
	entries := []Entry{{File: "illustrations/large.png"}}

	_, err := newMaterializer(t, 1).Materialize(context.Background(), dir, entries)
	assert.ErrorIs(t, err, ErrInvalidEntry)
}

func TestMaterialize_Cancelled(t *testing.T) {
	dir, entries := newPairs(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newMaterializer(t, 2).Materialize(ctx, dir, entries)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMaterialize_Run(t *testing.T) {
	root := t.TempDir()
	dir, entries := newPairs(t)

	first := filepath.Join(root, "first")
	require.NoError(t, os.CopyFS(first, os.DirFS(dir)))
	require.NoError(t, WriteManifest(filepath.Join(first, ManifestFile), entries[:1]))

	second := filepath.Join(root, "second")
	require.NoError(t, os.CopyFS(second, os.DirFS(dir)))
	require.NoError(t, WriteManifest(filepath.Join(second, ManifestFile), entries[4:]))

	// Directories without a manifest are ignored.
	require.NoError(t, os.MkdirAll(filepath.Join(root, "third"), 0755))

	datasets, err := Datasets(root)
	require.NoError(t, err)
	assert.Equal(t, []string{first, second}, datasets)

	m := newMaterializer(t, 2)
	stats, err := m.Run(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, Stats{Entries: 2, WrittenA: 2, WrittenB: 2}, stats)
}
