package signpair

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"

	log "github.com/sirupsen/logrus"
)

// maxWorkers sets the maximum number of concurrently running workers.
const maxWorkers = 20

// Output directories of a training pair.
const (
	IllustrationDir = "A"
	SignDir         = "B"
)

// ErrMissingIllustration is returned when a manifest names an illustration
// that does not exist. It aborts the whole run.
var ErrMissingIllustration = errors.New("illustration not found")

// Stats summarises a materializer run.
type Stats struct {
	Entries  int
	WrittenA int
	WrittenB int
	Skipped  int
	Failed   int
}

func (s *Stats) add(o Stats) {
	s.Entries += o.Entries
	s.WrittenA += o.WrittenA
	s.WrittenB += o.WrittenB
	s.Skipped += o.Skipped
	s.Failed += o.Failed
}

// Materializer turns manifest entries into training pairs. Each
// illustration is written to A/<md5>.png and its sign to B/<md5>.png,
// where md5 is the digest of the illustration file. Existing files are
// never overwritten, so a run only fills the gaps left by earlier ones.
type Materializer struct {
	Compositor *Compositor
	TrainDir   string
	Workers    int
	// Progress, if set, is called once per processed entry.
	Progress func()
}

// job is a manifest entry together with the dataset it belongs to.
type job struct {
	dataset string
	entry   Entry
}

// result holds the outcome of a single entry.
type result struct {
	stats Stats
	err   error
}

// Datasets returns the sorted list of directories below root that hold a manifest.
func Datasets(root string) ([]string, error) {
	items, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	var dirs []string
	for _, item := range items {
		if !item.IsDir() {
			continue
		}
		dir := filepath.Join(root, item.Name())
		if exists(filepath.Join(dir, ManifestFile)) {
			dirs = append(dirs, dir)
		}
	}
	sort.Strings(dirs)
	return dirs, nil
}

// Run materializes every dataset below root.
func (m *Materializer) Run(ctx context.Context, root string) (Stats, error) {
	var total Stats

	dirs, err := Datasets(root)
	if err != nil {
		return total, err
	}
	for _, dir := range dirs {
		entries, err := ReadManifest(filepath.Join(dir, ManifestFile))
		if err != nil {
			return total, err
		}
		log.WithFields(log.Fields{
			"dataset": filepath.Base(dir),
			"entries": len(entries),
		}).Info("materializing dataset")

		stats, err := m.Materialize(ctx, dir, entries)
		total.add(stats)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// Materialize writes the training pairs of the entries of a single
// dataset. Unreadable or small illustrations are skipped and render
// failures are counted, while a missing illustration or an invalid entry
// cancels the remaining work and is returned.
func (m *Materializer) Materialize(ctx context.Context, dataset string, entries []Entry) (Stats, error) {
	var stats Stats

	for _, dir := range []string{IllustrationDir, SignDir} {
		if err := os.MkdirAll(filepath.Join(m.TrainDir, dir), 0755); err != nil {
			return stats, err
		}
	}

	workers := m.Workers
	// Limit the concurrently running workers to maxWorkers.
	if workers <= 0 || workers > maxWorkers {
		workers = runtime.NumCPU()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan job)
	go func() {
		defer close(jobs)
		for _, e := range entries {
			select {
			case <-ctx.Done():
				return
			case jobs <- job{dataset: dataset, entry: e}:
			}
		}
	}()

	ch := make(chan result)
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			m.consumer(ctx, ch, jobs)
		}()
	}

	// Close the channel after the values are consumed.
	go func() {
		defer close(ch)
		wg.Wait()
	}()

	var err error
	for res := range ch {
		stats.add(res.stats)
		if res.err != nil && err == nil {
			err = res.err
			cancel()
		}
		if m.Progress != nil {
			m.Progress()
		}
	}
	if err == nil {
		err = ctx.Err()
	}
	return stats, err
}

// consumer reads the jobs and materializes them until the channel is
// drained or the context is cancelled.
func (m *Materializer) consumer(ctx context.Context, res chan<- result, jobs <-chan job) {
	for j := range jobs {
		stats, err := m.process(j.dataset, j.entry)

		select {
		case <-ctx.Done():
			return
		case res <- result{stats: stats, err: err}:
		}
	}
}

// process materializes a single entry.
func (m *Materializer) process(dataset string, e Entry) (Stats, error) {
	stats := Stats{Entries: 1}
	if err := e.Validate(); err != nil {
		return stats, err
	}

	src := filepath.Join(dataset, filepath.FromSlash(e.File))
	data, err := os.ReadFile(src)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return stats, fmt.Errorf("%w: %s", ErrMissingIllustration, src)
		}
		return stats, err
	}

	hash := contentHash(data)
	name := hash + ".png"
	dstA := filepath.Join(m.TrainDir, IllustrationDir, name)
	dstB := filepath.Join(m.TrainDir, SignDir, name)
	logger := log.WithFields(log.Fields{"file": e.File, "hash": hash})

	if !exists(dstA) {
		img, err := decodeBytes(data)
		if err != nil {
			logger.WithError(err).Warn("skipping undecodable illustration")
			stats.Skipped++
			return stats, nil
		}
		out, err := m.Compositor.Illustration(img)
		if errors.Is(err, ErrTooSmall) {
			logger.Debug("skipping small illustration")
			stats.Skipped++
			return stats, nil
		}
		if err != nil {
			return stats, err
		}
		if err := writePNG(dstA, out); err != nil {
			return stats, err
		}
		stats.WrittenA++
	}

	if exists(dstB) {
		return stats, nil
	}

	var sign *image.NRGBA
	if e.FSW != "" {
		sign, err = m.Compositor.FromFSW(e.FSW)
	} else {
		sign, err = m.Compositor.FromFile(filepath.Join(dataset, filepath.FromSlash(e.FSWFile)))
	}
	if err != nil {
		logger.WithError(err).Error("rendering the sign failed")
		stats.Failed++
		return stats, nil
	}
	if err := writePNG(dstB, sign); err != nil {
		return stats, err
	}
	stats.WrittenB++

	return stats, nil
}
