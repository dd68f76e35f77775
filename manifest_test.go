package signpair

import (
	"encoding/json"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signpair/signpair/fsw"
	"github.com/signpair/signpair/gloss"
)

func layoutXML(maxX, maxY, left, top int) string {
	return fmt.Sprintf(`<sign max_x="%d" max_y="%d">
	<sym left="%d" top="%d"><img src="glyphogram.php?key=10028&size=.7"></sym>
</sign>`, maxX, maxY, left, top)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func writeImage(t *testing.T, path string, w, h int, c color.Color) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, imaging.Save(imaging.New(w, h, c), path))
}

func newDataset(t *testing.T) string {
	t.Helper()

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "SW_signs_glosses", "Haus", fsw.LayoutFile), layoutXML(100, 50, 10, 20))
	writeFile(t, filepath.Join(root, "SW_signs_glosses", "Unknown", fsw.LayoutFile), layoutXML(10, 10, 0, 0))
	writeFile(t, filepath.Join(root, "SW_signs_glosses", "sub", "HOUSE-00345", fsw.LayoutFile), layoutXML(60, 40, 5, 5))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "SW_signs_glosses", "empty"), 0755))

	for _, stem := range []string{"00012", "00345", "00777", "00888"} {
		writeImage(t, filepath.Join(root, "illustrations", stem+".png"), 300, 300, color.White)
	}
	writeImage(t, filepath.Join(root, "glossen", "00012.png"), 40, 40, color.White)
	writeImage(t, filepath.Join(root, "glossen", "00777.png"), 40, 40, color.White)
	writeImage(t, filepath.Join(root, "glossen", "00999.png"), 40, 40, color.White)
	writeFile(t, filepath.Join(root, "glossen", "00888.png"), "not an image")

	return root
}

func newBuilder(root string) *ManifestBuilder {
	lex := gloss.NewLexicon()
	lex.Add("Haus", 12)

	return &ManifestBuilder{
		Root:          root,
		Glosses:       "SW_signs_glosses",
		Illustrations: "illustrations",
		Signs:         "glossen",
		Resolver:      gloss.NewResolver(lex),
	}
}

func TestManifest_Build(t *testing.T) {
	root := newDataset(t)

	entries, err := newBuilder(root).Build()
	require.NoError(t, err)
	assert.Equal(t, []Entry{
		{File: "illustrations/00012.png", FSW: "M600x550S10028510x520"},
		{File: "illustrations/00345.png", FSW: "M560x540S10028505x505"},
		{File: "illustrations/00777.png", FSWFile: "glossen/00777.png"},
	}, entries)

	for _, e := range entries {
		assert.NoError(t, e.Validate())
	}
}

func TestManifest_BuildMissingDirectories(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "SW_signs_glosses"), 0755))

	entries, err := newBuilder(root).Build()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestManifest_BuildMalformedLayout(t *testing.T) {
	root := newDataset(t)
	writeFile(t, filepath.Join(root, "SW_signs_glosses", "Broken", fsw.LayoutFile), `<sign max_x="1">`)

	_, err := newBuilder(root).Build()
	assert.ErrorIs(t, err, fsw.ErrMalformedLayout)
}

func TestManifest_ReadWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), ManifestFile)
	entries := []Entry{
		{File: "illustrations/00012.png", FSW: "M600x550S10028510x520"},
		{File: "illustrations/00777.png", FSWFile: "glossen/00777.png"},
	}
	require.NoError(t, WriteManifest(path, entries))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var raw []map[string]string
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, []map[string]string{
		{"file": "illustrations/00012.png", "fsw": "M600x550S10028510x520"},
		{"file": "illustrations/00777.png", "fsw_file": "glossen/00777.png"},
	}, raw)
	assert.Contains(t, string(data), "\n  {\n    \"file\"")

	got, err := ReadManifest(path)
	require.NoError(t, err)
	assert.Equal(t, entries, got)
}

func TestManifest_WriteEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), ManifestFile)
	require.NoError(t, WriteManifest(path, nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(data))
}

func TestManifest_EntryValidate(t *testing.T) {
	assert.NoError(t, Entry{File: "a.png", FSW: "M500x500"}.Validate())
	assert.NoError(t, Entry{File: "a.png", FSWFile: "b.png"}.Validate())
	assert.ErrorIs(t, Entry{File: "a.png"}.Validate(), ErrInvalidEntry)
	assert.ErrorIs(t, Entry{File: "a.png", FSW: "M500x500", FSWFile: "b.png"}.Validate(), ErrInvalidEntry)
	assert.ErrorIs(t, Entry{FSW: "M500x500"}.Validate(), ErrInvalidEntry)
}
