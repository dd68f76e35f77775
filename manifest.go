package signpair

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/signpair/signpair/fsw"
	"github.com/signpair/signpair/gloss"
)

// ManifestFile is the name of the manifest inside a dataset directory.
const ManifestFile = "writing.json"

// ErrInvalidEntry is returned for a manifest entry that does not name
// exactly one sign source.
var ErrInvalidEntry = errors.New("invalid manifest entry")

// Entry pairs an illustration with the sign it depicts, either as an FSW
// string or as a pre-rendered sign image. Paths are relative to the
// dataset directory and use forward slashes.
type Entry struct {
	File    string `json:"file"`
	FSW     string `json:"fsw,omitempty"`
	FSWFile string `json:"fsw_file,omitempty"`
}

// Validate checks that the entry names an illustration and exactly one sign source.
func (e Entry) Validate() error {
	switch {
	case e.File == "":
		return fmt.Errorf("%w: no file", ErrInvalidEntry)
	case e.FSW == "" && e.FSWFile == "":
		return fmt.Errorf("%w: neither fsw nor fsw_file in %s", ErrInvalidEntry, e.File)
	case e.FSW != "" && e.FSWFile != "":
		return fmt.Errorf("%w: both fsw and fsw_file in %s", ErrInvalidEntry, e.File)
	}
	return nil
}

// ReadManifest reads a JSON array of entries.
func ReadManifest(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return entries, nil
}

// WriteManifest writes the entries as an indented JSON array.
func WriteManifest(path string, entries []Entry) error {
	if entries == nil {
		entries = []Entry{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(entries); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}

// ManifestBuilder pairs the layout directories of a dataset with its
// illustrations.
//
// Every directory below Glosses holding a layout file is named after a
// gloss. The gloss is resolved to lexicon identifiers and each identifier
// whose illustration <Illustrations>/<id, 5 digits>.png exists yields an
// entry with the layout's FSW. Illustrations left over that have a
// pre-rendered sign of the same name in Signs yield an entry referring to
// that image instead.
type ManifestBuilder struct {
	// Root is the dataset directory; all other paths are relative to it.
	Root          string
	Glosses       string
	Illustrations string
	Signs         string
	Resolver      *gloss.Resolver
}

// Build walks the dataset and returns the manifest entries. Layout parse
// errors abort the build.
func (b *ManifestBuilder) Build() ([]Entry, error) {
	resolver := b.Resolver
	if resolver == nil {
		resolver = gloss.NewResolver(nil)
	}
	done := make(map[string]struct{})
	var entries []Entry

	root := filepath.Join(b.Root, b.Glosses)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		layoutPath := filepath.Join(path, fsw.LayoutFile)
		info, err := os.Stat(layoutPath)
		if err != nil || !info.Mode().IsRegular() {
			return nil
		}

		text, err := os.ReadFile(layoutPath)
		if err != nil {
			return err
		}
		sign, err := fsw.LayoutToFSW(string(text))
		if err != nil {
			return fmt.Errorf("%s: %w", layoutPath, err)
		}

		name := filepath.Base(path)
		resolved := false
		for id := range resolver.IDs(name) {
			resolved = true
			file := b.illustration(fmt.Sprintf("%05d", id))
			done[file] = struct{}{}
			if exists(filepath.Join(b.Root, filepath.FromSlash(file))) {
				entries = append(entries, Entry{File: file, FSW: sign})
			}
		}
		if !resolved {
			log.WithField("gloss", name).Debug("no lexicon id for gloss")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.WithField("entries", len(entries)).Info("paired layouts with illustrations")

	illustrations, err := pngStems(filepath.Join(b.Root, b.Illustrations))
	if err != nil {
		return nil, err
	}
	signs, err := pngStems(filepath.Join(b.Root, b.Signs))
	if err != nil {
		return nil, err
	}

	var shared []string
	for stem := range illustrations {
		if _, ok := signs[stem]; ok {
			shared = append(shared, stem)
		}
	}
	sort.Strings(shared)
	log.WithField("files", len(shared)).Info("illustrations with a pre-rendered sign")

	for _, stem := range shared {
		file := b.illustration(stem)
		if _, ok := done[file]; ok {
			continue
		}
		signFile := filepath.ToSlash(filepath.Join(b.Signs, stem+".png"))
		if !isImage(filepath.Join(b.Root, filepath.FromSlash(signFile))) {
			log.WithField("file", signFile).Warn("skipping unreadable sign image")
			continue
		}
		entries = append(entries, Entry{File: file, FSWFile: signFile})
	}
	log.WithField("entries", len(entries)).Info("manifest built")

	return entries, nil
}

func (b *ManifestBuilder) illustration(stem string) string {
	return filepath.ToSlash(filepath.Join(b.Illustrations, stem+".png"))
}

// pngStems lists the names of the .png files in dir without their extension.
func pngStems(dir string) (map[string]struct{}, error) {
	items, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]struct{}{}, nil
		}
		return nil, err
	}
	stems := make(map[string]struct{}, len(items))
	for _, item := range items {
		name := item.Name()
		if item.IsDir() || !strings.HasSuffix(name, ".png") {
			continue
		}
		stems[strings.TrimSuffix(name, ".png")] = struct{}{}
	}
	return stems, nil
}
