package util

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/nvr-ai/go-detection-eval/evaluation"
	"github.com/nvr-ai/go-detection-eval/images"
	"github.com/nvr-ai/go-detection-eval/models/postprocess"
)

// Sample is the annotation of one image: what the model predicted and what is
// actually there.
type Sample struct {
	// Path is the file the sample was read from.
	Path string
	// Name is an optional image identifier.
	Name string
	// Frame is the frame number parsed from a "frame-N" file name, or -1.
	Frame int
	// Predictions are the detector outputs for the image.
	Predictions []postprocess.Result
	// GroundTruths are the annotated objects of the image.
	GroundTruths []evaluation.GroundTruth
}

type boxRecord struct {
	Box   []float32 `json:"box"             yaml:"box"`
	Score float32   `json:"score,omitempty" yaml:"score,omitempty"`
	Class int       `json:"class"           yaml:"class"`
}

type sampleRecord struct {
	Name         string      `json:"name,omitempty" yaml:"name,omitempty"`
	Predictions  []boxRecord `json:"predictions"    yaml:"predictions"`
	GroundTruths []boxRecord `json:"ground_truths"  yaml:"ground_truths"`
}

type datasetRecord struct {
	Images []sampleRecord `json:"images" yaml:"images"`
}

// LoadSamples loads samples from a directory of per-image files or from a
// single dataset file, depending on what path points to.
//
// Arguments:
//   - ctx: Cancels loading between files.
//   - path: A directory (see LoadDirectorySamples) or a file (see LoadSampleFile).
//   - concurrency: Maximum number of files decoded at once.
//
// Returns:
//   - []Sample: The loaded samples.
//   - error: Error if loading fails.
func LoadSamples(ctx context.Context, path string, concurrency int) ([]Sample, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrap(err, "stat samples")
	}
	if info.IsDir() {
		return LoadDirectorySamples(ctx, path, concurrency)
	}
	return LoadSampleFile(path)
}

// LoadDirectorySamples reads every annotation file in a directory, one image
// per file.
//
// Files ending in .json, .yaml or .yml are read; everything else is skipped.
// A file named "frame-12.json" gets Frame 12. Samples are sorted by frame, then
// by path.
//
// Arguments:
//   - ctx: Cancels loading between files.
//   - dir: Directory path containing annotation files.
//   - concurrency: Maximum number of files decoded at once (<= 0 means 1).
//
// Returns:
//   - []Sample: One sample per annotation file.
//   - error: Error if a file cannot be read or decoded.
//
// @example
// samples, err := util.LoadDirectorySamples(ctx, "./corpus/annotations", 4)
func LoadDirectorySamples(ctx context.Context, dir string, concurrency int) ([]Sample, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrap(err, "read samples directory")
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || !isAnnotationFile(entry.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}

	if concurrency <= 0 {
		concurrency = 1
	}

	samples := make([]Sample, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			var rec sampleRecord
			if err := decodeFile(path, &rec); err != nil {
				return err
			}
			s, err := rec.sample(path)
			if err != nil {
				return err
			}
			samples[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(samples, func(i, j int) bool {
		if samples[i].Frame != samples[j].Frame {
			return samples[i].Frame < samples[j].Frame
		}
		return samples[i].Path < samples[j].Path
	})

	return samples, nil
}

// LoadSampleFile reads a dataset file holding many images under an "images"
// key.
func LoadSampleFile(path string) ([]Sample, error) {
	var rec datasetRecord
	if err := decodeFile(path, &rec); err != nil {
		return nil, err
	}

	samples := make([]Sample, 0, len(rec.Images))
	for i, img := range rec.Images {
		s, err := img.sample(path)
		if err != nil {
			return nil, errors.Wrapf(err, "image %d", i)
		}
		s.Frame = i
		samples = append(samples, s)
	}
	return samples, nil
}

func isAnnotationFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json", ".yaml", ".yml":
		return true
	}
	return false
}

func decodeFile(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "read %s", path)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, v)
	default:
		err = json.Unmarshal(data, v)
	}
	if err != nil {
		return errors.Wrapf(err, "decode %s", path)
	}
	return nil
}

func frameNumber(path string) int {
	base := filepath.Base(path)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	frame, err := strconv.Atoi(strings.TrimPrefix(name, "frame-"))
	if err != nil {
		return -1
	}
	return frame
}

func (r sampleRecord) sample(path string) (Sample, error) {
	s := Sample{
		Path:         path,
		Name:         r.Name,
		Frame:        frameNumber(path),
		Predictions:  make([]postprocess.Result, 0, len(r.Predictions)),
		GroundTruths: make([]evaluation.GroundTruth, 0, len(r.GroundTruths)),
	}

	for i, p := range r.Predictions {
		box, err := p.rect()
		if err != nil {
			return Sample{}, errors.Wrapf(err, "%s: prediction %d", path, i)
		}
		s.Predictions = append(s.Predictions, postprocess.Result{Box: box, Score: p.Score, Class: p.Class})
	}
	for i, g := range r.GroundTruths {
		box, err := g.rect()
		if err != nil {
			return Sample{}, errors.Wrapf(err, "%s: ground truth %d", path, i)
		}
		s.GroundTruths = append(s.GroundTruths, evaluation.GroundTruth{Box: box, Class: g.Class})
	}

	return s, nil
}

func (b boxRecord) rect() (images.Rect, error) {
	if len(b.Box) != 4 {
		return images.Rect{}, errors.Errorf("box has %d coordinates, want 4", len(b.Box))
	}
	return images.Rect{X1: b.Box[0], Y1: b.Box[1], X2: b.Box[2], Y2: b.Box[3]}, nil
}
