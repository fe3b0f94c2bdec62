// Package models - Class label sets used to name evaluation results.
package models

import (
	"fmt"
	"strings"
)

// ModelFamily identifies the labelling convention of a dataset.
type ModelFamily string

const (
	// ModelFamilyCOCO is the 80 COCO classes with "__background__" at index 0.
	ModelFamilyCOCO ModelFamily = "coco"
	// ModelFamilyYOLO is the 80 COCO classes starting at index 0.
	ModelFamilyYOLO ModelFamily = "yolo"
	// ModelFamilyVOC is the 20 Pascal VOC classes with "__background__" at index 0.
	ModelFamilyVOC ModelFamily = "voc"
)

// LabelSet maps class indices to human readable names.
type LabelSet struct {
	// Family is the set identifier.
	Family ModelFamily
	// Labels holds the name of class i at index i.
	Labels []string
	// nameToIdx for fast lookup by name
	nameToIdx map[string]int
}

// NewLabelSet builds a label set and its reverse index.
func NewLabelSet(family ModelFamily, labels []string) *LabelSet {
	s := &LabelSet{
		Family:    family,
		Labels:    labels,
		nameToIdx: make(map[string]int, len(labels)),
	}
	for i, name := range labels {
		s.nameToIdx[name] = i
	}
	return s
}

// Name returns the label of idx, or "class <idx>" when idx is outside the set.
// A nil set names every class by its index.
func (s *LabelSet) Name(idx int) string {
	if s == nil || idx < 0 || idx >= len(s.Labels) {
		return fmt.Sprintf("class %d", idx)
	}
	return s.Labels[idx]
}

// Index returns the class index for name.
func (s *LabelSet) Index(name string) (int, error) {
	idx, ok := s.nameToIdx[name]
	if !ok {
		return -1, fmt.Errorf("name %q not found in family %q", name, s.Family)
	}
	return idx, nil
}

// LookupLabelSet returns the registered label set of family. An empty family
// returns nil, meaning classes are reported by index.
func LookupLabelSet(family string) (*LabelSet, error) {
	switch ModelFamily(strings.ToLower(family)) {
	case "":
		return nil, nil
	case ModelFamilyCOCO:
		return COCOLabels, nil
	case ModelFamilyYOLO:
		return YOLOLabels, nil
	case ModelFamilyVOC:
		return VOCLabels, nil
	default:
		return nil, fmt.Errorf("label set %q not registered", family)
	}
}

var cocoNames = []string{
	"person", "bicycle", "car", "motorcycle", "airplane", "bus", "train", "truck",
	"boat", "traffic light", "fire hydrant", "stop sign", "parking meter", "bench",
	"bird", "cat", "dog", "horse", "sheep", "cow", "elephant", "bear", "zebra",
	"giraffe", "backpack", "umbrella", "handbag", "tie", "suitcase", "frisbee",
	"skis", "snowboard", "sports ball", "kite", "baseball bat", "baseball glove",
	"skateboard", "surfboard", "tennis racket", "bottle", "wine glass", "cup",
	"fork", "knife", "spoon", "bowl", "banana", "apple", "sandwich", "orange",
	"broccoli", "carrot", "hot dog", "pizza", "donut", "cake", "chair", "couch",
	"potted plant", "bed", "dining table", "toilet", "tv", "laptop", "mouse",
	"remote", "keyboard", "cell phone", "microwave", "oven", "toaster", "sink",
	"refrigerator", "book", "clock", "vase", "scissors", "teddy bear",
	"hair drier", "toothbrush",
}

var vocNames = []string{
	"aeroplane", "bicycle", "bird", "boat", "bottle", "bus", "car", "cat",
	"chair", "cow", "diningtable", "dog", "horse", "motorbike", "person",
	"pottedplant", "sheep", "sofa", "train", "tvmonitor",
}

// Registered label sets.
var (
	COCOLabels = NewLabelSet(ModelFamilyCOCO, append([]string{"__background__"}, cocoNames...))
	YOLOLabels = NewLabelSet(ModelFamilyYOLO, cocoNames)
	VOCLabels  = NewLabelSet(ModelFamilyVOC, append([]string{"__background__"}, vocNames...))
)
