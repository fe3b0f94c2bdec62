package evaluation

import "github.com/pkg/errors"

// Configuration errors, reported by New and Config.Validate.
var (
	// ErrNoThresholds indicates an empty IoU threshold set.
	ErrNoThresholds = errors.New("evaluation: no IoU thresholds configured")

	// ErrInvalidThreshold indicates a threshold outside (0, 1] or not finite.
	ErrInvalidThreshold = errors.New("evaluation: IoU threshold must be in (0, 1]")

	// ErrDuplicateThreshold indicates the same threshold was configured twice.
	ErrDuplicateThreshold = errors.New("evaluation: duplicate IoU threshold")

	// ErrInvalidRecallPoints indicates a recall grid with fewer than two points.
	ErrInvalidRecallPoints = errors.New("evaluation: recall grid needs at least 2 points")
)

// Precondition violations, reported to the caller of Update or Compute.
var (
	// ErrNoUpdates indicates Compute was called before any Update since the last Reset.
	ErrNoUpdates = errors.New("evaluation: compute called before any update")

	// ErrOverlapShape indicates a supplied overlap matrix does not match the
	// number of predictions and ground truths of the image.
	ErrOverlapShape = errors.New("evaluation: overlap matrix shape mismatch")

	// ErrNoGroundTruth indicates updates were received but none carried a
	// ground truth box, so no class was ever observed. Compute returns NaN
	// alongside it.
	ErrNoGroundTruth = errors.New("evaluation: no class observed in ground truth")
)
