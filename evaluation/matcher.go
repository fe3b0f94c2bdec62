package evaluation

import (
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// Match is the outcome of matching the predictions of one class on one image
// at one IoU threshold.
type Match struct {
	// TruePositives[i] is set when prediction i survived both max filters.
	TruePositives []bool
	// FalsePositives[i] is the complement of TruePositives[i].
	FalsePositives []bool
	// GroundTruths is the number of ground truth boxes of the class.
	GroundTruths int
}

// matchClass applies the double-max suppression rule to valid, the thresholded
// IoU matrix restricted to one class (rows are predictions, columns are ground
// truths). valid is modified in place.
//
// First every column keeps only the entries equal to its maximum, then every
// row keeps only the entries equal to its maximum. Ties survive both passes. A
// row with any nonzero entry left is a true positive, otherwise a false
// positive. This is a mutual-maximum filter, not an optimal assignment: a
// ground truth can confirm several tied predictions, and a prediction whose
// best column was taken by another row is rejected even if it overlaps a free
// ground truth.
//
// Arguments:
//   - valid: The [P, G] class matrix, or nil when P or G is zero.
//   - predictions: P, the number of predictions of the class.
//   - groundTruths: G, the number of ground truths of the class.
//
// Returns:
//   - Match: Per prediction flags and the ground truth count.
//   - error: If a tensor reduction fails.
func matchClass(valid *tensor.Dense, predictions, groundTruths int) (Match, error) {
	m := Match{
		TruePositives:  make([]bool, predictions),
		FalsePositives: make([]bool, predictions),
		GroundTruths:   groundTruths,
	}

	if predictions == 0 {
		return m, nil
	}
	if valid == nil {
		// Nothing to match against.
		for i := range m.FalsePositives {
			m.FalsePositives[i] = true
		}
		return m, nil
	}

	data := float64s(valid)
	cols := groundTruths

	colMax, err := valid.Max(0)
	if err != nil {
		return Match{}, errors.Wrap(err, "column max")
	}
	cm := float64s(colMax)
	for i := 0; i < predictions; i++ {
		for j := 0; j < cols; j++ {
			if data[i*cols+j] != cm[j] {
				data[i*cols+j] = 0
			}
		}
	}

	rowMax, err := valid.Max(1)
	if err != nil {
		return Match{}, errors.Wrap(err, "row max")
	}
	rm := float64s(rowMax)
	for i := 0; i < predictions; i++ {
		hit := false
		for j := 0; j < cols; j++ {
			if data[i*cols+j] != rm[i] {
				data[i*cols+j] = 0
			}
			if data[i*cols+j] != 0 {
				hit = true
			}
		}
		m.TruePositives[i] = hit
		m.FalsePositives[i] = !hit
	}

	return m, nil
}
