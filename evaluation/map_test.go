package evaluation

import (
	"fmt"
	"io"
	"math"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-detection-eval/images"
	"github.com/nvr-ai/go-detection-eval/models/postprocess"
)

type sample struct {
	preds []postprocess.Result
	gts   []GroundTruth
}

func quietConfig(thresholds ...float64) Config {
	cfg := DefaultConfig()
	if len(thresholds) > 0 {
		cfg.IoUThresholds = thresholds
	}
	log := logrus.New()
	log.SetOutput(io.Discard)
	cfg.Logger = log
	return cfg
}

func newMetric(t *testing.T, thresholds ...float64) *MeanAveragePrecision {
	t.Helper()
	m, err := New(quietConfig(thresholds...))
	require.NoError(t, err)
	return m
}

func feed(t *testing.T, m *MeanAveragePrecision, samples []sample) {
	t.Helper()
	for _, s := range samples {
		require.NoError(t, m.Update(s.preds, s.gts))
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, []float64{0.5, 0.55, 0.6, 0.65, 0.7, 0.75, 0.8, 0.85, 0.9, 0.95}, cfg.IoUThresholds)
	assert.Equal(t, 101, cfg.RecallPoints)
	assert.NotNil(t, cfg.Logger)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name       string
		thresholds []float64
		points     int
		wantErr    error
	}{
		{name: "single threshold", thresholds: []float64{0.5}, points: 101},
		{name: "threshold of one", thresholds: []float64{1}, points: 2},
		{name: "empty", thresholds: nil, points: 101, wantErr: ErrNoThresholds},
		{name: "zero", thresholds: []float64{0}, points: 101, wantErr: ErrInvalidThreshold},
		{name: "above one", thresholds: []float64{0.5, 1.2}, points: 101, wantErr: ErrInvalidThreshold},
		{name: "nan", thresholds: []float64{math.NaN()}, points: 101, wantErr: ErrInvalidThreshold},
		{name: "duplicate", thresholds: []float64{0.5, 0.75, 0.5}, points: 101, wantErr: ErrDuplicateThreshold},
		{name: "single recall point", thresholds: []float64{0.5}, points: 1, wantErr: ErrInvalidRecallPoints},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{IoUThresholds: tt.thresholds, RecallPoints: tt.points}
			err := cfg.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)

			_, err = New(cfg)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestSinglePerfectMatch(t *testing.T) {
	m := newMetric(t, 0.5)
	feed(t, m, []sample{{
		preds: []postprocess.Result{{Box: boxA, Score: 1, Class: 1}},
		gts:   []GroundTruth{{Box: boxA, Class: 1}},
	}})

	score, err := m.Compute()
	require.NoError(t, err)
	assert.InDelta(t, 1.0, score, 1e-12)

	s, err := m.Summary()
	require.NoError(t, err)
	cs, ok := s.Class(1)
	require.True(t, ok)
	assert.InDelta(t, 1.0, cs.AP, 1e-12)
}

func TestTotalMiss(t *testing.T) {
	m := newMetric(t)
	feed(t, m, []sample{{
		preds: []postprocess.Result{{Box: boxB, Score: 0.9, Class: 1}},
		gts:   []GroundTruth{{Box: boxA, Class: 1}},
	}})

	s, err := m.Summary()
	require.NoError(t, err)
	cs, ok := s.Class(1)
	require.True(t, ok)
	for _, ap := range cs.APPerThreshold {
		assert.Equal(t, 0.0, ap)
	}
	assert.Equal(t, 0.0, s.MAP)
}

func TestHitAndMissScenario(t *testing.T) {
	m := newMetric(t, 0.5)
	feed(t, m, []sample{{
		preds: []postprocess.Result{
			{Box: boxA, Score: 0.9, Class: 1},
			{Box: boxB, Score: 0.8, Class: 1},
		},
		gts: []GroundTruth{{Box: boxA, Class: 1}},
	}})

	score, err := m.Compute()
	require.NoError(t, err)
	assert.InDelta(t, 1.0, score, 1e-12)
}

func TestComputeIsDeterministic(t *testing.T) {
	m := newMetric(t)
	feed(t, m, mixedSamples())

	first, err := m.Compute()
	require.NoError(t, err)
	second, err := m.Compute()
	require.NoError(t, err)

	assert.Equal(t, math.Float64bits(first), math.Float64bits(second))

	s, err := m.Summary()
	require.NoError(t, err)
	assert.Equal(t, math.Float64bits(first), math.Float64bits(s.MAP))
}

func TestOrderInvariance(t *testing.T) {
	samples := mixedSamples()

	forward := newMetric(t)
	feed(t, forward, samples)

	reversed := make([]sample, len(samples))
	for i, s := range samples {
		reversed[len(samples)-1-i] = s
	}
	backward := newMetric(t)
	feed(t, backward, reversed)

	a, err := forward.Compute()
	require.NoError(t, err)
	b, err := backward.Compute()
	require.NoError(t, err)

	assert.InDelta(t, a, b, 1e-12)
	assert.Greater(t, a, 0.0)
	assert.Less(t, a, 1.0)
}

func TestThresholdMonotonicity(t *testing.T) {
	m := newMetric(t, 0.5, 0.75)
	feed(t, m, []sample{
		{
			// IoU 0.6: a hit at 0.5 only.
			preds: []postprocess.Result{{Box: images.Rect{X1: 0, Y1: 0, X2: 10, Y2: 6}, Score: 0.9, Class: 1}},
			gts:   []GroundTruth{{Box: boxA, Class: 1}},
		},
		{
			preds: []postprocess.Result{{Box: boxC, Score: 0.8, Class: 1}},
			gts:   []GroundTruth{{Box: boxC, Class: 1}},
		},
	})

	s, err := m.Summary()
	require.NoError(t, err)

	ap50, ok := s.APAt(0.5)
	require.True(t, ok)
	ap75, ok := s.APAt(0.75)
	require.True(t, ok)

	assert.InDelta(t, 1.0, ap50, 1e-12)
	// Ranked fp then tp: precision 0.5 up to recall 0.5, i.e. 51 levels.
	assert.InDelta(t, 0.5*51/101, ap75, 1e-12)
	assert.GreaterOrEqual(t, ap50, ap75)
	assert.InDelta(t, (ap50+ap75)/2, s.MAP, 1e-12)
}

func TestEmptyUpdate(t *testing.T) {
	m := newMetric(t)
	feed(t, m, mixedSamples())

	before, err := m.Summary()
	require.NoError(t, err)

	require.NoError(t, m.Update(nil, nil))
	require.NoError(t, m.Update([]postprocess.Result{}, []GroundTruth{}))

	after, err := m.Summary()
	require.NoError(t, err)

	assert.Equal(t, before.Classes, after.Classes)
	assert.Equal(t, before.MAP, after.MAP)
	assert.Equal(t, before.Images+2, after.Images)
}

func TestComputeBeforeUpdate(t *testing.T) {
	m := newMetric(t)

	score, err := m.Compute()
	assert.ErrorIs(t, err, ErrNoUpdates)
	assert.True(t, math.IsNaN(score))

	_, err = m.Summary()
	assert.ErrorIs(t, err, ErrNoUpdates)
}

func TestComputeWithoutGroundTruth(t *testing.T) {
	m := newMetric(t)
	feed(t, m, []sample{{preds: []postprocess.Result{{Box: boxA, Score: 0.9, Class: 4}}}})

	score, err := m.Compute()
	assert.ErrorIs(t, err, ErrNoGroundTruth)
	assert.True(t, math.IsNaN(score))
}

func TestReset(t *testing.T) {
	m := newMetric(t, 0.5)
	feed(t, m, []sample{{
		preds: []postprocess.Result{{Box: boxB, Score: 0.9, Class: 1}},
		gts:   []GroundTruth{{Box: boxA, Class: 1}},
	}})

	m.Reset()
	assert.Equal(t, 0, m.Images())
	_, err := m.Compute()
	assert.ErrorIs(t, err, ErrNoUpdates)

	feed(t, m, []sample{{
		preds: []postprocess.Result{{Box: boxA, Score: 0.9, Class: 1}},
		gts:   []GroundTruth{{Box: boxA, Class: 1}},
	}})
	score, err := m.Compute()
	require.NoError(t, err)
	assert.InDelta(t, 1.0, score, 1e-12)
}

func TestPredictionOnlyClassIsNotScored(t *testing.T) {
	m := newMetric(t)
	feed(t, m, []sample{{
		preds: []postprocess.Result{
			{Box: boxA, Score: 0.9, Class: 1},
			{Box: boxB, Score: 0.95, Class: 7},
			{Box: boxC, Score: 0.99, Class: 7},
		},
		gts: []GroundTruth{{Box: boxA, Class: 1}},
	}})

	s, err := m.Summary()
	require.NoError(t, err)
	assert.InDelta(t, 1.0, s.MAP, 1e-12)
	_, ok := s.Class(7)
	assert.False(t, ok)
}

func TestClassWithoutPredictionsScoresZero(t *testing.T) {
	m := newMetric(t, 0.5)
	feed(t, m, []sample{{
		preds: []postprocess.Result{{Box: boxA, Score: 0.9, Class: 1}},
		gts:   []GroundTruth{{Box: boxA, Class: 1}, {Box: boxB, Class: 2}},
	}})

	s, err := m.Summary()
	require.NoError(t, err)
	require.Len(t, s.Classes, 2)
	assert.Equal(t, 1, s.Classes[0].Class)
	assert.Equal(t, 2, s.Classes[1].Class)
	assert.InDelta(t, 1.0, s.Classes[0].AP, 1e-12)
	assert.Equal(t, 0.0, s.Classes[1].AP)
	assert.Equal(t, 0, s.Classes[1].Predictions)
	assert.Equal(t, 1, s.Classes[1].GroundTruths)
	assert.InDelta(t, 0.5, s.MAP, 1e-12)
}

func TestUpdateWithOverlaps(t *testing.T) {
	preds := []postprocess.Result{{Box: boxA, Score: 0.9, Class: 1}}
	gts := []GroundTruth{{Box: boxA, Class: 1}}

	t.Run("supplied matrix is used", func(t *testing.T) {
		m := newMetric(t, 0.5)
		iou := dense(1, 1, 0.3)
		require.NoError(t, m.UpdateWithOverlaps(preds, gts, iou))

		score, err := m.Compute()
		require.NoError(t, err)
		assert.Equal(t, 0.0, score)
		assert.Equal(t, []float64{0.3}, float64s(iou))
	})

	t.Run("shape mismatch", func(t *testing.T) {
		m := newMetric(t, 0.5)
		err := m.UpdateWithOverlaps(preds, gts, dense(1, 2, 1, 0))
		assert.ErrorIs(t, err, ErrOverlapShape)
		assert.Equal(t, 0, m.Images())
	})

	t.Run("transposed matrix is read logically", func(t *testing.T) {
		three := []postprocess.Result{
			{Box: boxA, Score: 0.9, Class: 1},
			{Box: boxB, Score: 0.8, Class: 1},
			{Box: boxC, Score: 0.7, Class: 1},
		}
		two := []GroundTruth{{Box: boxA, Class: 1}, {Box: boxB, Class: 1}}

		// Rows are ground truths before the transpose.
		iou := dense(2, 3,
			0.9, 0.0, 0.7,
			0.0, 0.8, 0.0,
		)
		require.NoError(t, iou.T())

		m := newMetric(t, 0.5)
		require.NoError(t, m.UpdateWithOverlaps(three, two, iou))
		score, err := m.Compute()
		require.NoError(t, err)
		assert.InDelta(t, 1.0, score, 1e-12)
	})

	t.Run("nil for an image without predictions", func(t *testing.T) {
		m := newMetric(t, 0.5)
		require.NoError(t, m.UpdateWithOverlaps(nil, gts, nil))

		score, err := m.Compute()
		require.NoError(t, err)
		assert.Equal(t, 0.0, score)
	})
}

func TestOverlapAtThresholdIsNotAMatch(t *testing.T) {
	gt := images.Rect{X1: 0, Y1: 0, X2: 10, Y2: 10}

	tests := []struct {
		threshold float64
		height    float32
	}{
		{threshold: 0.55, height: 5.5},
		{threshold: 0.6, height: 6},
		{threshold: 0.8, height: 8},
		{threshold: 0.85, height: 8.5},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("iou=%v", tt.threshold), func(t *testing.T) {
			preds := []postprocess.Result{{Box: images.Rect{X1: 0, Y1: 0, X2: 10, Y2: tt.height}, Score: 0.9, Class: 1}}
			gts := []GroundTruth{{Box: gt, Class: 1}}

			m := newMetric(t, tt.threshold)
			require.NoError(t, m.Update(preds, gts))
			score, err := m.Compute()
			require.NoError(t, err)
			assert.Equal(t, 0.0, score)

			// Just below the cutoff the same pair matches.
			m = newMetric(t, tt.threshold-0.01)
			require.NoError(t, m.Update(preds, gts))
			score, err = m.Compute()
			require.NoError(t, err)
			assert.Equal(t, 1.0, score)
		})
	}
}

func TestThresholdsCopy(t *testing.T) {
	m := newMetric(t, 0.5, 0.75)
	th := m.Thresholds()
	th[0] = 0.1
	assert.Equal(t, []float64{0.5, 0.75}, m.Thresholds())
}

// mixedSamples is a small multi-class dataset with distinct scores, partial
// overlaps and misses.
func mixedSamples() []sample {
	return []sample{
		{
			preds: []postprocess.Result{
				{Box: boxA, Score: 0.95, Class: 1},
				{Box: images.Rect{X1: 20, Y1: 20, X2: 30, Y2: 27}, Score: 0.7, Class: 1},
				{Box: boxC, Score: 0.4, Class: 2},
			},
			gts: []GroundTruth{
				{Box: boxA, Class: 1},
				{Box: boxB, Class: 1},
				{Box: boxC, Class: 2},
			},
		},
		{
			preds: []postprocess.Result{
				{Box: boxB, Score: 0.85, Class: 2},
				{Box: images.Rect{X1: 50, Y1: 50, X2: 70, Y2: 62}, Score: 0.6, Class: 2},
			},
			gts: []GroundTruth{
				{Box: boxC, Class: 2},
			},
		},
		{
			preds: []postprocess.Result{
				{Box: images.Rect{X1: 1, Y1: 1, X2: 10, Y2: 10}, Score: 0.5, Class: 1},
			},
			gts: []GroundTruth{
				{Box: boxA, Class: 1},
				{Box: boxC, Class: 3},
			},
		},
	}
}
