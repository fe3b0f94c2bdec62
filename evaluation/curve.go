package evaluation

import "sort"

// curve is a precision/recall curve over the predictions of one bucket, ranked
// by descending confidence. Recall is non-decreasing along the curve.
type curve struct {
	recall    []float64
	precision []float64
}

// buildCurve ranks the bucket by score (stable for ties) and computes the
// cumulative precision and recall at every rank. The bucket must hold at
// least one ground truth.
func buildCurve(b *bucket) curve {
	order := make([]int, len(b.scores))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return b.scores[order[i]] > b.scores[order[j]]
	})

	c := curve{
		recall:    make([]float64, len(order)),
		precision: make([]float64, len(order)),
	}

	n := float64(b.groundTruths)
	tpCum, fpCum := 0, 0
	for k, idx := range order {
		if b.tp[idx] {
			tpCum++
		}
		if b.fp[idx] {
			fpCum++
		}
		c.recall[k] = float64(tpCum) / n
		c.precision[k] = float64(tpCum) / float64(tpCum+fpCum)
	}

	return c
}

// envelope raises every precision to the maximum precision found at any
// higher rank, making precision non-increasing along the curve.
func (c curve) envelope() {
	for k := len(c.precision) - 1; k > 0; k-- {
		if c.precision[k] > c.precision[k-1] {
			c.precision[k-1] = c.precision[k]
		}
	}
}

// interpolate samples precision at every recall level of grid. For a level r
// the precision at the first rank whose recall reaches r is used; levels above
// the highest recall reached get 0.
func (c curve) interpolate(grid []float64) []float64 {
	out := make([]float64, len(grid))
	for i, r := range grid {
		k := sort.Search(len(c.recall), func(k int) bool { return c.recall[k] >= r })
		if k == len(c.recall) {
			break
		}
		out[i] = c.precision[k]
	}
	return out
}

// interpolatedPrecision runs the full curve pipeline for one bucket. A bucket
// without ground truth or without predictions reaches no recall level and
// yields all zeros.
func interpolatedPrecision(b *bucket, grid []float64) []float64 {
	if b.groundTruths == 0 || len(b.scores) == 0 {
		return make([]float64, len(grid))
	}

	c := buildCurve(b)
	c.envelope()
	return c.interpolate(grid)
}
