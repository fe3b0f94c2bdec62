package evaluation

import (
	"github.com/pkg/errors"
	"gorgonia.org/tensor"

	"github.com/nvr-ai/go-detection-eval/images"
	"github.com/nvr-ai/go-detection-eval/models/postprocess"
)

// GroundTruth is an annotated object of one image.
type GroundTruth struct {
	// The annotated bounding box.
	Box images.Rect
	// The annotated class index.
	Class int
}

// ComputeOverlaps builds the IoU matrix between the predictions and ground
// truths of one image.
//
// Arguments:
//   - preds: The M predictions of the image.
//   - gts: The N ground truth boxes of the image.
//
// Returns:
//   - *tensor.Dense: A float64 tensor of shape [M, N] where entry (i, j) is the
//     IoU of prediction i with ground truth j, or nil when M or N is zero.
//
// @example
// iou := evaluation.ComputeOverlaps(preds, gts)
// err := metric.UpdateWithOverlaps(preds, gts, iou)
func ComputeOverlaps(preds []postprocess.Result, gts []GroundTruth) *tensor.Dense {
	m, n := len(preds), len(gts)
	if m == 0 || n == 0 {
		return nil
	}

	backing := make([]float64, m*n)
	for i, p := range preds {
		for j, g := range gts {
			backing[i*n+j] = float64(images.CalculateIoU(p.Box, g.Box))
		}
	}

	return tensor.New(tensor.WithShape(m, n), tensor.WithBacking(backing))
}

// checkOverlaps verifies iou is a float64 matrix of shape [m, n] and returns
// it with a dense row-major layout. Transposed or sliced views are
// materialized into a fresh tensor so their logical entries are read, not
// the raw backing array.
func checkOverlaps(iou *tensor.Dense, m, n int) (*tensor.Dense, error) {
	if m == 0 || n == 0 {
		return nil, nil
	}
	if iou == nil {
		return nil, errors.Wrapf(ErrOverlapShape, "got nil, want [%d %d]", m, n)
	}
	shape := iou.Shape()
	if len(shape) != 2 || shape[0] != m || shape[1] != n {
		return nil, errors.Wrapf(ErrOverlapShape, "got %v, want [%d %d]", shape, m, n)
	}
	if iou.Dtype() != tensor.Float64 {
		return nil, errors.Wrapf(ErrOverlapShape, "got dtype %v, want float64", iou.Dtype())
	}

	dense, ok := iou.Materialize().(*tensor.Dense)
	if !ok {
		return nil, errors.Wrapf(ErrOverlapShape, "got %T, want a dense tensor", iou)
	}
	if !dense.DataOrder().IsRowMajor() {
		return nil, errors.Wrap(ErrOverlapShape, "column-major layout")
	}
	if len(float64s(dense)) != m*n {
		return nil, errors.Wrapf(ErrOverlapShape, "backing holds %d values, want %d", len(float64s(dense)), m*n)
	}
	return dense, nil
}

// thresholdOverlaps returns a copy of iou where every entry at or below
// threshold is zero. The input is left untouched since it is reused for every
// threshold of the same image.
//
// Overlaps are computed in float32, so the comparison is made in float32 too:
// an IoU of exactly 0.6 widens to 0.6000000238 and would otherwise pass a
// float64 cutoff of 0.6.
func thresholdOverlaps(iou *tensor.Dense, threshold float64) *tensor.Dense {
	valid := iou.Clone().(*tensor.Dense)
	data := float64s(valid)
	cutoff := float32(threshold)
	for i, v := range data {
		if float32(v) <= cutoff {
			data[i] = 0
		}
	}
	return valid
}

// selectOverlaps restricts valid to the given prediction rows and ground truth
// columns. It returns nil when either selection is empty.
func selectOverlaps(valid *tensor.Dense, rows, cols []int) *tensor.Dense {
	if len(rows) == 0 || len(cols) == 0 {
		return nil
	}

	stride := valid.Shape()[1]
	data := float64s(valid)
	backing := make([]float64, 0, len(rows)*len(cols))
	for _, i := range rows {
		for _, j := range cols {
			backing = append(backing, data[i*stride+j])
		}
	}

	return tensor.New(tensor.WithShape(len(rows), len(cols)), tensor.WithBacking(backing))
}

// float64s exposes the backing slice of a float64 tensor. Reductions can hand
// back a single element as a scalar.
func float64s(t *tensor.Dense) []float64 {
	switch data := t.Data().(type) {
	case []float64:
		return data
	case float64:
		return []float64{data}
	default:
		return nil
	}
}
