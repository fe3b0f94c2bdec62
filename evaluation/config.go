package evaluation

import (
	"math"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// DefaultRecallPoints is the size of the COCO-style recall grid (0, 0.01, ..., 1).
const DefaultRecallPoints = 101

// Config holds the fixed parameters of a MeanAveragePrecision instance.
//
// The threshold set and recall grid are read once at construction and never
// change for the lifetime of the instance.
type Config struct {
	// IoUThresholds are the overlap cutoffs a prediction must exceed to match.
	IoUThresholds []float64 `json:"iou_thresholds" yaml:"iou_thresholds"`
	// RecallPoints is the number of evenly spaced recall levels in [0, 1].
	RecallPoints int `json:"recall_points" yaml:"recall_points"`
	// Logger receives debug output. Defaults to the logrus standard logger.
	Logger logrus.FieldLogger `json:"-" yaml:"-"`
}

// DefaultThresholds returns the ten IoU thresholds 0.50, 0.55, ..., 0.95.
func DefaultThresholds() []float64 {
	thresholds := make([]float64, 10)
	for i := range thresholds {
		// Integer arithmetic keeps the values exact to the printed decimals.
		thresholds[i] = float64(50+5*i) / 100
	}
	return thresholds
}

// DefaultConfig returns the COCO mAP@[.50:.95] configuration.
//
// Returns:
//   - Config: ten thresholds from 0.50 to 0.95 and a 101 point recall grid.
//
// @example
// cfg := evaluation.DefaultConfig()
// cfg.IoUThresholds = []float64{0.5}
// metric, err := evaluation.New(cfg)
func DefaultConfig() Config {
	return Config{
		IoUThresholds: DefaultThresholds(),
		RecallPoints:  DefaultRecallPoints,
		Logger:        logrus.StandardLogger(),
	}
}

// Validate reports the first configuration error, if any.
func (c Config) Validate() error {
	if len(c.IoUThresholds) == 0 {
		return ErrNoThresholds
	}

	seen := make(map[float64]struct{}, len(c.IoUThresholds))
	for i, t := range c.IoUThresholds {
		if math.IsNaN(t) || math.IsInf(t, 0) || t <= 0 || t > 1 {
			return errors.Wrapf(ErrInvalidThreshold, "threshold %d is %v", i, t)
		}
		if _, ok := seen[t]; ok {
			return errors.Wrapf(ErrDuplicateThreshold, "threshold %d is %v", i, t)
		}
		seen[t] = struct{}{}
	}

	if c.RecallPoints < 2 {
		return errors.Wrapf(ErrInvalidRecallPoints, "got %d", c.RecallPoints)
	}

	return nil
}

// recallGrid returns n evenly spaced recall levels from 0 to 1 inclusive.
func recallGrid(n int) []float64 {
	grid := make([]float64, n)
	for i := range grid {
		grid[i] = float64(i) / float64(n-1)
	}
	return grid
}
