package benchmark

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/pkg/errors"

	"github.com/nvr-ai/go-detection-eval/evaluation"
)

// Report is the outcome of one evaluation run.
type Report struct {
	Timestamp   time.Time           `json:"timestamp"`
	SamplesPath string              `json:"samples_path,omitempty"`
	Samples     int                 `json:"samples"`
	Labels      string              `json:"labels,omitempty"`
	Summary     *evaluation.Summary `json:"summary"`
	Classes     []ClassReport       `json:"classes"`
	Performance PerformanceMetrics  `json:"performance"`
}

// ClassReport is a named per class line of the report.
type ClassReport struct {
	Class        int     `json:"class"`
	Name         string  `json:"name"`
	AP           float64 `json:"ap"`
	GroundTruths int     `json:"ground_truths"`
	Predictions  int     `json:"predictions"`
}

// PerformanceMetrics captures how long the evaluation took.
type PerformanceMetrics struct {
	LoadDuration    time.Duration `json:"load_duration"`
	UpdateDuration  time.Duration `json:"update_duration"`
	ComputeDuration time.Duration `json:"compute_duration"`
	ImagesPerSecond float64       `json:"images_per_second"`
	MemoryStats     MemoryMetrics `json:"memory_stats"`
}

// MemoryMetrics captures memory usage statistics
type MemoryMetrics struct {
	AllocBytes      uint64 `json:"alloc_bytes"`
	TotalAllocBytes uint64 `json:"total_alloc_bytes"`
	SysBytes        uint64 `json:"sys_bytes"`
	NumGC           uint32 `json:"num_gc"`
	HeapAllocBytes  uint64 `json:"heap_alloc_bytes"`
}

// WriteTable prints the per class AP, the per threshold AP and the overall mAP
// as an aligned table.
func (r *Report) WriteTable(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintln(tw, "CLASS\tNAME\tGT\tPRED\tAP")
	for _, c := range r.Classes {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%.4f\n", c.Class, c.Name, c.GroundTruths, c.Predictions, c.AP)
	}
	fmt.Fprintln(tw)

	fmt.Fprintln(tw, "IOU\tAP")
	for _, t := range r.Summary.Thresholds {
		fmt.Fprintf(tw, "%.2f\t%.4f\n", t.Threshold, t.AP)
	}
	fmt.Fprintln(tw)

	fmt.Fprintf(tw, "mAP\t%.4f\n", r.Summary.MAP)
	fmt.Fprintf(tw, "images\t%d\n", r.Summary.Images)

	return tw.Flush()
}

// SaveReport writes the report as indented JSON into dir and returns the
// file path.
func SaveReport(report *Report, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrap(err, "failed to create output directory")
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal report")
	}

	name := fmt.Sprintf("map_%s.json", report.Timestamp.UTC().Format("20060102T150405.000000000Z"))
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", errors.Wrap(err, "failed to write report")
	}

	return path, nil
}

// LoadReport reads a report written by SaveReport.
func LoadReport(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read report")
	}

	var report Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal report")
	}
	return &report, nil
}
