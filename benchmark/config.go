// Package benchmark - Runs detection accuracy evaluations over annotated corpora.
package benchmark

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/nvr-ai/go-detection-eval/evaluation"
	"github.com/nvr-ai/go-detection-eval/models"
)

// EnvPrefix prefixes every environment variable read by ApplyEnv.
const EnvPrefix = "MAPEVAL"

// Config represents the overall evaluation configuration.
type Config struct {
	// SamplesPath is a directory of per-image annotation files or a dataset file.
	SamplesPath string `json:"samples_path" yaml:"samples_path" envconfig:"SAMPLES_PATH"`
	// OutputDir receives the JSON report.
	OutputDir string `json:"output_dir" yaml:"output_dir" envconfig:"OUTPUT_DIR"`
	// IoUThresholds are the overlap cutoffs averaged into mAP.
	IoUThresholds []float64 `json:"iou_thresholds" yaml:"iou_thresholds" envconfig:"IOU_THRESHOLDS"`
	// RecallPoints is the size of the recall grid.
	RecallPoints int `json:"recall_points" yaml:"recall_points" envconfig:"RECALL_POINTS"`
	// Labels names the label set used in reports (coco, yolo, voc or empty).
	Labels string `json:"labels" yaml:"labels" envconfig:"LABELS"`
	// MaxConcurrency bounds concurrent annotation decoding.
	MaxConcurrency int `json:"max_concurrency" yaml:"max_concurrency" envconfig:"MAX_CONCURRENCY"`
	// SaveReport writes the report to OutputDir when set.
	SaveReport bool `json:"save_report" yaml:"save_report" envconfig:"SAVE_REPORT"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"log_level" yaml:"log_level" envconfig:"LOG_LEVEL"`
	// LogFormat is text or json.
	LogFormat string `json:"log_format" yaml:"log_format" envconfig:"LOG_FORMAT"`
}

// DefaultConfig returns a default evaluation configuration.
func DefaultConfig() *Config {
	return &Config{
		OutputDir:      "./evaluation_results",
		IoUThresholds:  evaluation.DefaultThresholds(),
		RecallPoints:   evaluation.DefaultRecallPoints,
		MaxConcurrency: 4,
		SaveReport:     true,
		LogLevel:       "info",
		LogFormat:      "text",
	}
}

// LoadConfig loads a configuration file on top of DefaultConfig.
//
// Files ending in .json are decoded as JSON, everything else as YAML. Fields
// missing from the file keep their default value.
//
// Arguments:
//   - filename: Path to the configuration file.
//
// Returns:
//   - *Config: The merged configuration.
//   - error: Error if the file cannot be read or decoded.
//
// @example
// cfg, err := benchmark.LoadConfig("./mapeval.yaml")
//
//	if err != nil {
//	    log.Fatalf("Failed to load config: %v", err)
//	}
func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	cfg := DefaultConfig()
	if strings.EqualFold(filepath.Ext(filename), ".json") {
		err = json.Unmarshal(data, cfg)
	} else {
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}

	return cfg, nil
}

// ApplyEnv overrides fields from MAPEVAL_* environment variables, e.g.
// MAPEVAL_IOU_THRESHOLDS=0.5,0.75. Unset variables leave fields untouched.
func (c *Config) ApplyEnv() error {
	if err := envconfig.Process(EnvPrefix, c); err != nil {
		return errors.Wrap(err, "failed to apply environment")
	}
	return nil
}

// SaveConfig saves the configuration as YAML, or JSON for a .json filename.
func (c *Config) SaveConfig(filename string) error {
	var (
		data []byte
		err  error
	)
	if strings.EqualFold(filepath.Ext(filename), ".json") {
		data, err = json.MarshalIndent(c, "", "  ")
	} else {
		data, err = yaml.Marshal(c)
	}
	if err != nil {
		return errors.Wrap(err, "failed to marshal config")
	}

	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return errors.Wrap(err, "failed to write config file")
	}
	return nil
}

// Validate checks the configuration without touching the filesystem.
func (c *Config) Validate() error {
	if err := c.Evaluation(nil).Validate(); err != nil {
		return err
	}
	if c.MaxConcurrency < 1 {
		return errors.Errorf("max_concurrency must be at least 1, got %d", c.MaxConcurrency)
	}
	if _, err := models.LookupLabelSet(c.Labels); err != nil {
		return err
	}
	return nil
}

// Evaluation returns the metric configuration carried by c.
func (c *Config) Evaluation(log logrus.FieldLogger) evaluation.Config {
	return evaluation.Config{
		IoUThresholds: append([]float64(nil), c.IoUThresholds...),
		RecallPoints:  c.RecallPoints,
		Logger:        log,
	}
}
