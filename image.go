package signpair

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	log "github.com/sirupsen/logrus"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// decodeImg decodes an image file. Formats supported by the image
// package and golang.org/x/image are recognised by their content.
func decodeImg(src string) (image.Image, error) {
	data, err := os.ReadFile(src)
	if err != nil {
		return nil, err
	}
	return decodeBytes(data)
}

func decodeBytes(data []byte) (image.Image, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("could not decode the image: %w", err)
	}
	return img, nil
}

// isImage reports whether the header of the file at path is a known image format.
func isImage(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	_, _, err = image.DecodeConfig(f)
	return err == nil
}

// contentHash returns the lowercase hex MD5 digest of data.
func contentHash(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}

// exists reports whether path exists.
func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// writePNG encodes img as PNG into a temporary file next to dst and links
// it into place. An existing dst is never replaced; if another writer got
// there first its file is kept.
func writePNG(dst string, img image.Image) error {
	dir := filepath.Dir(dst)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(dst)+".tmp-*")
	if err != nil {
		return fmt.Errorf("unable to create the destination file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := imaging.Encode(tmp, img, imaging.PNG); err != nil {
		tmp.Close()
		return fmt.Errorf("unable to encode %s: %w", dst, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	err = os.Link(tmpName, dst)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, fs.ErrExist):
		log.WithField("file", dst).Debug("output written concurrently, keeping existing file")
		return nil
	default:
		// Hard links are not available on every file system.
		if exists(dst) {
			return nil
		}
		return os.Rename(tmpName, dst)
	}
}
