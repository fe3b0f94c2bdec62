// Package evaluation - Mean Average Precision for object detection.
//
// A MeanAveragePrecision accumulates per image match outcomes across an
// unbounded stream of images and reduces them on demand to a single score:
// interpolated precision is averaged over a recall grid (AP), then over IoU
// thresholds per class, then over classes (mAP).
//
// Instances are not safe for concurrent use. Compute and Summary only read
// state and may run concurrently with each other, but never with Update or
// Reset.
package evaluation

import (
	"math"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gorgonia.org/tensor"

	"github.com/nvr-ai/go-detection-eval/models/postprocess"
)

// MeanAveragePrecision computes COCO-style mAP over a stream of images.
type MeanAveragePrecision struct {
	thresholds []float64
	grid       []float64
	acc        *accumulator
	images     int
	log        logrus.FieldLogger
}

// New creates a metric with the given configuration.
//
// Arguments:
//   - cfg: IoU thresholds and recall grid size. See DefaultConfig.
//
// Returns:
//   - *MeanAveragePrecision: An empty metric ready for Update.
//   - error: A configuration error if cfg is invalid.
//
// @example
//
//	metric, err := evaluation.New(evaluation.DefaultConfig())
//	if err != nil {
//	    return err
//	}
//	for _, img := range dataset {
//	    if err := metric.Update(img.Predictions, img.GroundTruths); err != nil {
//	        return err
//	    }
//	}
//	score, err := metric.Compute()
func New(cfg Config) (*MeanAveragePrecision, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log := cfg.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	return &MeanAveragePrecision{
		thresholds: append([]float64(nil), cfg.IoUThresholds...),
		grid:       recallGrid(cfg.RecallPoints),
		acc:        newAccumulator(cfg.IoUThresholds),
		log:        log,
	}, nil
}

// Thresholds returns a copy of the configured IoU thresholds.
func (m *MeanAveragePrecision) Thresholds() []float64 {
	return append([]float64(nil), m.thresholds...)
}

// Images returns the number of updates since the last reset.
func (m *MeanAveragePrecision) Images() int {
	return m.images
}

// Reset discards all accumulated state.
func (m *MeanAveragePrecision) Reset() {
	m.acc.reset()
	m.images = 0
}

// Update records the predictions and ground truths of one image, computing the
// overlaps with ComputeOverlaps.
//
// Arguments:
//   - preds: Predictions of the image, in any order.
//   - gts: Ground truth boxes of the image.
//
// Returns:
//   - error: Only if matching fails internally.
func (m *MeanAveragePrecision) Update(preds []postprocess.Result, gts []GroundTruth) error {
	return m.UpdateWithOverlaps(preds, gts, ComputeOverlaps(preds, gts))
}

// UpdateWithOverlaps records one image using a precomputed IoU matrix.
//
// Arguments:
//   - preds: The M predictions of the image.
//   - gts: The N ground truth boxes of the image.
//   - iou: A float64 tensor of shape [M, N], rows in preds order and columns
//     in gts order. May be nil when M or N is zero. It is not modified;
//     transposed or sliced views are read by logical position.
//
// Returns:
//   - error: ErrOverlapShape if iou does not match the inputs.
func (m *MeanAveragePrecision) UpdateWithOverlaps(
	preds []postprocess.Result,
	gts []GroundTruth,
	iou *tensor.Dense,
) error {
	iou, err := checkOverlaps(iou, len(preds), len(gts))
	if err != nil {
		return err
	}

	if err := m.acc.add(preds, gts, iou); err != nil {
		return errors.Wrapf(err, "image %d", m.images)
	}
	m.images++

	m.log.WithFields(logrus.Fields{
		"image":         m.images,
		"predictions":   len(preds),
		"ground_truths": len(gts),
		"classes":       len(m.acc.buckets),
	}).Debug("evaluation: image accumulated")

	return nil
}

// Compute reduces the accumulated state to the mean Average Precision.
//
// Returns:
//   - float64: mAP in [0, 1], or NaN together with ErrNoGroundTruth.
//   - error: ErrNoUpdates if nothing was accumulated since the last reset.
func (m *MeanAveragePrecision) Compute() (float64, error) {
	s, err := m.Summary()
	if err != nil {
		return math.NaN(), err
	}
	return s.MAP, nil
}

// Summary reduces the accumulated state and keeps the intermediate averages.
//
// Returns:
//   - *Summary: Overall, per class and per threshold averages.
//   - error: ErrNoUpdates or ErrNoGroundTruth.
func (m *MeanAveragePrecision) Summary() (*Summary, error) {
	if m.images == 0 {
		return nil, ErrNoUpdates
	}

	classes := m.acc.classes()
	if len(classes) == 0 {
		return nil, errors.Wrapf(ErrNoGroundTruth, "after %d images", m.images)
	}

	s := &Summary{
		Images:     m.images,
		Thresholds: make([]ThresholdSummary, len(m.thresholds)),
		Classes:    make([]ClassSummary, 0, len(classes)),
	}

	for _, class := range classes {
		buckets := m.acc.buckets[class]
		cs := ClassSummary{
			Class:          class,
			APPerThreshold: make([]float64, len(buckets)),
			GroundTruths:   buckets[0].groundTruths,
			Predictions:    len(buckets[0].scores),
		}
		for ti, b := range buckets {
			cs.APPerThreshold[ti] = mean(interpolatedPrecision(b, m.grid))
		}
		cs.AP = mean(cs.APPerThreshold)
		s.Classes = append(s.Classes, cs)
	}

	perClass := make([]float64, len(s.Classes))
	for ti, threshold := range m.thresholds {
		for ci, cs := range s.Classes {
			perClass[ci] = cs.APPerThreshold[ti]
		}
		s.Thresholds[ti] = ThresholdSummary{Threshold: threshold, AP: mean(perClass)}
	}

	for ci, cs := range s.Classes {
		perClass[ci] = cs.AP
	}
	s.MAP = mean(perClass)

	m.log.WithFields(logrus.Fields{
		"images":  s.Images,
		"classes": len(s.Classes),
		"map":     s.MAP,
	}).Debug("evaluation: computed")

	return s, nil
}

func mean(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
