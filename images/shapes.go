// Package images - Box geometry shared by predictions and ground truth.
package images

import (
	"fmt"

	"github.com/chewxy/math32"
)

// Rect is an axis-aligned bounding box in image coordinates.
//
// X1,Y1 is the top-left corner and X2,Y2 the bottom-right corner. No ordering
// is enforced; a box with X2 <= X1 or Y2 <= Y1 has zero area.
type Rect struct {
	X1, Y1, X2, Y2 float32
}

// Area returns the area of the box, or 0 for a degenerate box.
func (r Rect) Area() float32 {
	w := r.X2 - r.X1
	h := r.Y2 - r.Y1
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * h
}

func (r Rect) String() string {
	return fmt.Sprintf("(%.2f, %.2f), (%.2f, %.2f)", r.X1, r.Y1, r.X2, r.Y2)
}

// CalculateIoU computes the Intersection over Union of two boxes.
//
// The intersection is bounded by the larger of the two top-left corners and the
// smaller of the two bottom-right corners. When that region is empty the boxes
// do not overlap and 0 is returned. The union follows inclusion-exclusion:
//
//	Union(A, B) = Area(A) + Area(B) - Intersection(A, B)
//
// Boxes whose union has no area (both degenerate) also yield 0 rather than NaN.
//
// Arguments:
//   - r: The first box.
//   - o: The other box to compare against.
//
// Returns:
//   - float32: A value in [0.0, 1.0].
//
// @example
//
//	a := Rect{X1: 0, Y1: 0, X2: 10, Y2: 10}
//	b := Rect{X1: 5, Y1: 5, X2: 15, Y2: 15}
//	iou := CalculateIoU(a, b) // 25 / 175 = 0.142857
func CalculateIoU(r, o Rect) float32 {
	ix1 := math32.Max(r.X1, o.X1)
	iy1 := math32.Max(r.Y1, o.Y1)
	ix2 := math32.Min(r.X2, o.X2)
	iy2 := math32.Min(r.Y2, o.Y2)

	interW := ix2 - ix1
	interH := iy2 - iy1
	if interW <= 0 || interH <= 0 {
		return 0.0
	}
	interArea := interW * interH

	unionArea := r.Area() + o.Area() - interArea
	if unionArea <= 0 {
		return 0.0
	}

	return math32.Min(interArea/unionArea, 1.0)
}
