// Package postprocess - Detector outputs as consumed by evaluation.
package postprocess

import (
	"fmt"

	"github.com/nvr-ai/go-detection-eval/images"
)

// Result represents a single detection result produced by a model after
// post-processing. It is the prediction side of an evaluation.
type Result struct {
	// The bounding box of the result.
	Box images.Rect
	// The confidence score of the result.
	Score float32
	// The predicted class index of the result.
	Class int
}

func (r Result) String() string {
	return fmt.Sprintf("Object %d (confidence %f): %s", r.Class, r.Score, r.Box)
}
