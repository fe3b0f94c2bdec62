package evaluation

import (
	"sort"

	"gorgonia.org/tensor"

	"github.com/nvr-ai/go-detection-eval/models/postprocess"
)

// bucket holds everything observed for one (class, threshold) pair. The tp,
// fp and scores slices are index aligned: entry i is the i-th prediction of
// the class ever seen, in arrival order.
type bucket struct {
	tp           []bool
	fp           []bool
	scores       []float32
	groundTruths int
}

func (b *bucket) append(m Match, scores []float32) {
	b.tp = append(b.tp, m.TruePositives...)
	b.fp = append(b.fp, m.FalsePositives...)
	b.scores = append(b.scores, scores...)
	b.groundTruths += m.GroundTruths
}

// accumulator is the confusion state keyed by class, then by threshold index.
// Buckets are created the first time a class appears in ground truth and live
// until reset.
type accumulator struct {
	thresholds []float64
	buckets    map[int][]*bucket
}

func newAccumulator(thresholds []float64) *accumulator {
	a := &accumulator{thresholds: append([]float64(nil), thresholds...)}
	a.reset()
	return a
}

func (a *accumulator) reset() {
	a.buckets = make(map[int][]*bucket)
}

// classBuckets returns the per-threshold buckets of class, creating them on
// first use.
func (a *accumulator) classBuckets(class int) []*bucket {
	bs, ok := a.buckets[class]
	if !ok {
		bs = make([]*bucket, len(a.thresholds))
		for i := range bs {
			bs[i] = &bucket{}
		}
		a.buckets[class] = bs
	}
	return bs
}

// classes returns the observed class labels in ascending order.
func (a *accumulator) classes() []int {
	out := make([]int, 0, len(a.buckets))
	for c := range a.buckets {
		out = append(out, c)
	}
	sort.Ints(out)
	return out
}

// add records one image. iou must be [len(preds), len(gts)] or nil when
// either side is empty. Only classes present in gts are visited, so
// predictions of a class without ground truth in this image are not recorded.
func (a *accumulator) add(preds []postprocess.Result, gts []GroundTruth, iou *tensor.Dense) error {
	classes, gtIndex := groupGroundTruths(gts)
	predIndex, predScores := groupPredictions(preds)

	for ti, threshold := range a.thresholds {
		var valid *tensor.Dense
		if iou != nil {
			valid = thresholdOverlaps(iou, threshold)
		}

		for _, class := range classes {
			rows := predIndex[class]
			cols := gtIndex[class]

			var classIoU *tensor.Dense
			if valid != nil {
				classIoU = selectOverlaps(valid, rows, cols)
			}

			m, err := matchClass(classIoU, len(rows), len(cols))
			if err != nil {
				return err
			}
			a.classBuckets(class)[ti].append(m, predScores[class])
		}
	}

	return nil
}

// groupGroundTruths returns the distinct classes of gts in ascending order and
// the indices of the boxes of each class.
func groupGroundTruths(gts []GroundTruth) ([]int, map[int][]int) {
	index := make(map[int][]int)
	for j, g := range gts {
		index[g.Class] = append(index[g.Class], j)
	}
	classes := make([]int, 0, len(index))
	for c := range index {
		classes = append(classes, c)
	}
	sort.Ints(classes)
	return classes, index
}

func groupPredictions(preds []postprocess.Result) (map[int][]int, map[int][]float32) {
	index := make(map[int][]int)
	scores := make(map[int][]float32)
	for i, p := range preds {
		index[p.Class] = append(index[p.Class], i)
		scores[p.Class] = append(scores[p.Class], p.Score)
	}
	return index, scores
}
