package evaluation

import "math"

// Summary is the reduction of a MeanAveragePrecision at one point in time.
type Summary struct {
	// MAP is the mean over classes of the per class AP.
	MAP float64 `json:"map" yaml:"map"`
	// Images is the number of updates that contributed.
	Images int `json:"images" yaml:"images"`
	// Thresholds holds the AP of every threshold averaged over classes, in
	// configuration order.
	Thresholds []ThresholdSummary `json:"thresholds" yaml:"thresholds"`
	// Classes holds one entry per observed class in ascending label order.
	Classes []ClassSummary `json:"classes" yaml:"classes"`
}

// ThresholdSummary is the class averaged AP at one IoU threshold.
type ThresholdSummary struct {
	Threshold float64 `json:"threshold" yaml:"threshold"`
	AP        float64 `json:"ap" yaml:"ap"`
}

// ClassSummary is the AP breakdown of a single class.
type ClassSummary struct {
	// Class is the label index.
	Class int `json:"class" yaml:"class"`
	// AP is the mean of APPerThreshold.
	AP float64 `json:"ap" yaml:"ap"`
	// APPerThreshold is aligned with the configured thresholds.
	APPerThreshold []float64 `json:"ap_per_threshold" yaml:"ap_per_threshold"`
	// GroundTruths is the total number of ground truth boxes of the class.
	GroundTruths int `json:"ground_truths" yaml:"ground_truths"`
	// Predictions is the number of predictions of the class that were scored.
	Predictions int `json:"predictions" yaml:"predictions"`
}

// APAt returns the class averaged AP at threshold, e.g. AP50 for 0.5.
func (s *Summary) APAt(threshold float64) (float64, bool) {
	for _, t := range s.Thresholds {
		if math.Abs(t.Threshold-threshold) < 1e-9 {
			return t.AP, true
		}
	}
	return 0, false
}

// Class returns the breakdown of class, if it was observed.
func (s *Summary) Class(class int) (ClassSummary, bool) {
	for _, cs := range s.Classes {
		if cs.Class == class {
			return cs, true
		}
	}
	return ClassSummary{}, false
}
