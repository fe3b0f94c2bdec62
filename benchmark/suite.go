package benchmark

import (
	"context"
	"runtime"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/nvr-ai/go-detection-eval/evaluation"
	"github.com/nvr-ai/go-detection-eval/models"
	"github.com/nvr-ai/go-detection-eval/util"
)

// Suite feeds annotated samples through a MeanAveragePrecision metric.
type Suite struct {
	cfg    *Config
	metric *evaluation.MeanAveragePrecision
	labels *models.LabelSet
	log    logrus.FieldLogger
}

// NewSuite creates a new evaluation suite.
//
// Arguments:
//   - cfg: The evaluation configuration.
//   - log: Receives lifecycle messages. The metric logs through it at debug level.
//
// Returns:
//   - *Suite: The evaluation suite.
//   - error: A configuration error.
func NewSuite(cfg *Config, log logrus.FieldLogger) (*Suite, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	metric, err := evaluation.New(cfg.Evaluation(log))
	if err != nil {
		return nil, err
	}
	labels, err := models.LookupLabelSet(cfg.Labels)
	if err != nil {
		return nil, err
	}

	return &Suite{
		cfg:    cfg,
		metric: metric,
		labels: labels,
		log:    log,
	}, nil
}

// RunPath loads the samples at cfg.SamplesPath and evaluates them.
func (s *Suite) RunPath(ctx context.Context) (*Report, error) {
	if s.cfg.SamplesPath == "" {
		return nil, errors.New("samples path is required")
	}

	start := time.Now()
	samples, err := util.LoadSamples(ctx, s.cfg.SamplesPath, s.cfg.MaxConcurrency)
	if err != nil {
		return nil, err
	}
	loadDuration := time.Since(start)

	s.log.WithFields(logrus.Fields{
		"samples":  len(samples),
		"path":     s.cfg.SamplesPath,
		"duration": loadDuration,
	}).Info("Samples loaded")

	report, err := s.Run(ctx, samples)
	if err != nil {
		return nil, err
	}
	report.SamplesPath = s.cfg.SamplesPath
	report.Performance.LoadDuration = loadDuration

	return report, nil
}

// Run resets the metric, accumulates every sample and reduces the result.
//
// Arguments:
//   - ctx: Checked between samples.
//   - samples: The annotated images.
//
// Returns:
//   - *Report: Scores and timing of the run.
//   - error: ctx cancellation, evaluation.ErrNoUpdates for an empty corpus or
//     evaluation.ErrNoGroundTruth when no sample has ground truth.
func (s *Suite) Run(ctx context.Context, samples []util.Sample) (*Report, error) {
	s.metric.Reset()

	var startMem runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&startMem)

	start := time.Now()
	for _, sample := range samples {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := s.metric.Update(sample.Predictions, sample.GroundTruths); err != nil {
			return nil, errors.Wrapf(err, "sample %s", sample.Path)
		}
	}
	updateDuration := time.Since(start)

	start = time.Now()
	summary, err := s.metric.Summary()
	if err != nil {
		return nil, err
	}
	computeDuration := time.Since(start)

	var endMem runtime.MemStats
	runtime.ReadMemStats(&endMem)

	report := &Report{
		Timestamp: time.Now(),
		Samples:   len(samples),
		Labels:    s.cfg.Labels,
		Summary:   summary,
		Classes:   make([]ClassReport, 0, len(summary.Classes)),
		Performance: PerformanceMetrics{
			UpdateDuration:  updateDuration,
			ComputeDuration: computeDuration,
			MemoryStats: MemoryMetrics{
				AllocBytes:      endMem.Alloc,
				TotalAllocBytes: endMem.TotalAlloc - startMem.TotalAlloc,
				SysBytes:        endMem.Sys,
				NumGC:           endMem.NumGC - startMem.NumGC,
				HeapAllocBytes:  endMem.HeapAlloc,
			},
		},
	}
	if secs := updateDuration.Seconds(); secs > 0 {
		report.Performance.ImagesPerSecond = float64(len(samples)) / secs
	}

	for _, c := range summary.Classes {
		report.Classes = append(report.Classes, ClassReport{
			Class:        c.Class,
			Name:         s.labels.Name(c.Class),
			AP:           c.AP,
			GroundTruths: c.GroundTruths,
			Predictions:  c.Predictions,
		})
	}

	s.log.WithFields(logrus.Fields{
		"images":  summary.Images,
		"classes": len(summary.Classes),
		"map":     summary.MAP,
	}).Info("Evaluation finished")

	return report, nil
}

// Save writes the report to the configured output directory when saving is
// enabled. It returns the written path, or "" when disabled.
func (s *Suite) Save(report *Report) (string, error) {
	if !s.cfg.SaveReport {
		return "", nil
	}

	path, err := SaveReport(report, s.cfg.OutputDir)
	if err != nil {
		return "", err
	}
	s.log.WithField("path", path).Info("Report saved")
	return path, nil
}
