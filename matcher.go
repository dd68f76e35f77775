package signpair

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/disintegration/imaging"
	log "github.com/sirupsen/logrus"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/signpair/signpair/fsw"
	"github.com/signpair/signpair/imop"
	"github.com/signpair/signpair/render"
	"github.com/signpair/signpair/utils"
)

// Matcher defaults.
const (
	ClipSize         = 224
	DefaultThreshold = 0.93
	DefaultReviewMin = 0.97
	DefaultReviewMax = 0.98
	// blankScore is the score above which a match against a blank
	// reference is considered meaningless.
	blankScore = 0.99
)

// Output directories of the matcher.
const (
	MatchDir  = "matches"
	ReviewDir = "score_matches"
)

var labelColor = color.RGBA{R: 0xff, A: 0xff}

// Scorer computes a similarity score for every pair of reference and
// candidate image. Row i of the result holds the scores of refs[i]
// against every candidate. Higher scores mean more similar images.
type Scorer interface {
	Score(refs, cands []image.Image) ([][]float64, error)
}

// PixelScorer scores images by the cosine similarity of their ink. Every
// image is padded to a white square, scaled to Size x Size and converted
// to a vector holding the darkness of each pixel.
type PixelScorer struct {
	Size int
}

var _ Scorer = PixelScorer{}

// Score implements Scorer.
func (s PixelScorer) Score(refs, cands []image.Image) ([][]float64, error) {
	if len(refs) == 0 || len(cands) == 0 {
		return make([][]float64, len(refs)), nil
	}
	size := s.Size
	if size <= 0 {
		size = ClipSize
	}

	r := s.matrix(refs, size)
	c := s.matrix(cands, size)

	var scores mat.Dense
	scores.Mul(r, c.T())

	out := make([][]float64, len(refs))
	for i := range out {
		out[i] = mat.Row(nil, i, &scores)
	}
	return out, nil
}

// matrix stacks the normalised ink vectors of imgs as rows.
func (s PixelScorer) matrix(imgs []image.Image, size int) *mat.Dense {
	dim := size * size
	m := mat.NewDense(len(imgs), dim, nil)
	for i, img := range imgs {
		m.SetRow(i, inkVector(clipImage(img, size)))
	}
	return m
}

// inkVector returns the darkness of every pixel scaled to unit length.
// A blank image yields the zero vector, which scores 0 against anything.
func inkVector(img *image.NRGBA) []float64 {
	gray := imaging.Grayscale(img)
	v := make([]float64, 0, len(gray.Pix)/4)
	for i := 0; i < len(gray.Pix); i += 4 {
		v = append(v, 1-float64(gray.Pix[i])/0xff)
	}
	if n := floats.Norm(v, 2); n > 0 {
		floats.Scale(1/n, v)
	}
	return v
}

// clipImage pads img to a white square and scales it to size x size.
func clipImage(img image.Image, size int) *image.NRGBA {
	b := img.Bounds()
	side := utils.Max(b.Dx(), b.Dy())
	sq := imop.Canvas(side, side, color.White)
	imop.Paste(sq, img, imop.Center(image.Pt(side, side), b.Size()))
	return imaging.Resize(sq, size, size, imaging.Linear)
}

// Candidate is a sign rendered from a layout directory.
type Candidate struct {
	FSW   string
	Dir   string
	Image image.Image
}

// Reference is an image of a sign whose layout is unknown.
type Reference struct {
	Stem  string
	Image image.Image
}

// Match pairs a reference with the candidate it most likely depicts.
type Match struct {
	Stem  string
	FSW   string
	Dir   string
	Score float64
}

// Matcher recovers pairs missing from the manifests by comparing images
// of signs with the renderings of all layout directories. It is a best
// effort tool; a reference without a good enough candidate is simply
// left unmatched.
type Matcher struct {
	Renderer render.Renderer
	// Symbols renders every layout directory from its own symbol bitmaps
	// instead of Renderer.
	Symbols bool
	Scorer  Scorer
	// Threshold is the minimum score of an accepted match.
	Threshold float64
	// Forward matches scoring within [ReviewMin, ReviewMax] are written
	// for manual review.
	ReviewMin, ReviewMax float64
	// OutDir receives the review and match previews. Nothing is written
	// when it is empty.
	OutDir string
}

// NewMatcher returns a matcher with the default thresholds and the pixel scorer.
func NewMatcher(r render.Renderer) *Matcher {
	return &Matcher{
		Renderer:  r,
		Scorer:    PixelScorer{Size: ClipSize},
		Threshold: DefaultThreshold,
		ReviewMin: DefaultReviewMin,
		ReviewMax: DefaultReviewMax,
	}
}

// LoadCandidates renders every immediate subdirectory of dir holding a
// layout file. Directories without a layout, with a malformed one or
// with symbols the renderer cannot draw are logged and skipped.
func (m *Matcher) LoadCandidates(dir string) ([]Candidate, error) {
	items, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var cands []Candidate
	for _, item := range items {
		if !item.IsDir() {
			continue
		}
		path := filepath.Join(dir, item.Name())
		logger := log.WithField("dir", path)

		sign, err := fsw.ReadLayoutDir(path)
		if errors.Is(err, fsw.ErrNoLayout) {
			logger.Warn("missing layout")
			continue
		}
		if err != nil {
			logger.WithError(err).Warn("skipping malformed layout")
			continue
		}

		r := m.Renderer
		if m.Symbols {
			r = render.NewSymbolDir(path)
		}
		if r == nil {
			return nil, errors.New("no renderer configured")
		}
		glyph, err := r.Render(sign)
		if err != nil {
			logger.WithError(err).Warn("skipping unrenderable sign")
			continue
		}

		// Flatten onto white so candidates compare with the opaque references.
		b := glyph.Bounds()
		img := imop.Canvas(b.Dx(), b.Dy(), color.White)
		imop.Paste(img, glyph, image.Point{})

		cands = append(cands, Candidate{FSW: sign.String(), Dir: path, Image: img})
	}
	return cands, nil
}

// LoadReferences decodes the *.png files of dir sorted by name. Files
// that fail to decode are skipped.
func LoadReferences(dir string) ([]Reference, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.png"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	var refs []Reference
	for _, path := range paths {
		img, err := decodeImg(path)
		if err != nil {
			log.WithField("file", path).Debug("skipping undecodable reference")
			continue
		}
		stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		refs = append(refs, Reference{Stem: stem, Image: img})
	}
	return refs, nil
}

// Match scores every reference against every candidate.
//
// The forward pass picks the best candidate of each reference and writes
// the pairs scoring within the review band into the review directory.
// The reverse pass only considers candidates with the same pixel
// dimensions as the reference and accepts the best one if it scores above
// the threshold. The accepted matches are returned.
func (m *Matcher) Match(refs []Reference, cands []Candidate) ([]Match, error) {
	if len(refs) == 0 || len(cands) == 0 {
		return nil, nil
	}
	scorer := m.Scorer
	if scorer == nil {
		scorer = PixelScorer{Size: ClipSize}
	}

	refImgs := make([]image.Image, len(refs))
	for i, r := range refs {
		refImgs[i] = r.Image
	}
	candImgs := make([]image.Image, len(cands))
	for i, c := range cands {
		candImgs[i] = c.Image
	}

	scores, err := scorer.Score(refImgs, candImgs)
	if err != nil {
		return nil, err
	}
	if len(scores) != len(refs) {
		return nil, fmt.Errorf("scorer returned %d rows for %d references", len(scores), len(refs))
	}
	for i, row := range scores {
		if len(row) != len(cands) {
			return nil, fmt.Errorf("scorer returned %d scores for reference %s, expected %d", len(row), refs[i].Stem, len(cands))
		}
	}

	if err := m.review(refs, cands, scores); err != nil {
		return nil, err
	}

	var (
		matches []Match
		sized   int
	)
	for i, ref := range refs {
		size := ref.Image.Bounds().Size()
		best, bestScore := -1, 0.0
		for j, c := range cands {
			if c.Image.Bounds().Size() != size {
				continue
			}
			if best < 0 || scores[i][j] > bestScore {
				best, bestScore = j, scores[i][j]
			}
		}
		if best < 0 {
			continue
		}
		sized++
		if bestScore <= m.Threshold {
			continue
		}

		cand := cands[best]
		matches = append(matches, Match{Stem: ref.Stem, FSW: cand.FSW, Dir: cand.Dir, Score: bestScore})
		if m.OutDir == "" {
			continue
		}
		preview := imop.SideBySide(ref.Image, cand.Image, color.Black)
		label(preview, 0, 0, fmt.Sprintf("%.3f", bestScore))
		if err := m.save(MatchDir, ref.Stem, preview); err != nil {
			return matches, err
		}
	}
	log.WithFields(log.Fields{
		"references": len(refs),
		"same_size":  sized,
		"matches":    len(matches),
	}).Info("reverse matching finished")

	return matches, nil
}

// review runs the forward pass.
func (m *Matcher) review(refs []Reference, cands []Candidate, scores [][]float64) error {
	var reviewed int
	for i, ref := range refs {
		best := floats.MaxIdx(scores[i])
		score := scores[i][best]

		// Identical renderings are impossible, so a perfect score means
		// the reference is blank.
		if score > blankScore && imop.IsBlank(clipImage(ref.Image, ClipSize), color.White) {
			continue
		}
		if score < m.ReviewMin || score > m.ReviewMax {
			continue
		}
		reviewed++
		if m.OutDir == "" {
			continue
		}

		cand := cands[best]
		preview := imop.SideBySide(clipImage(ref.Image, ClipSize), clipImage(cand.Image, ClipSize), color.Black)
		label(preview, 0, 0, fmt.Sprintf("%.3f", score))
		label(preview, 0, 180, cand.FSW)
		if err := m.save(ReviewDir, ref.Stem, preview); err != nil {
			return err
		}
	}
	log.WithField("review", reviewed).Info("forward matching finished")
	return nil
}

func (m *Matcher) save(dir, stem string, img image.Image) error {
	dst := filepath.Join(m.OutDir, dir)
	if err := os.MkdirAll(dst, 0755); err != nil {
		return err
	}
	return imaging.Save(img, filepath.Join(dst, stem+".png"))
}

// label draws text in red with its top left corner at x, y.
func label(dst draw.Image, x, y int, text string) {
	face := basicfont.Face7x13
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(labelColor),
		Face: face,
		Dot:  fixed.P(x, y+face.Ascent),
	}
	d.DrawString(text)
}
