// Package spatial implements the geometric tests behind predecessor
// matching: horizontal footprint overlap and the vertical elevation window.
package spatial

import (
	"github.com/johns/sitewise/internal/activity"
)

// OverlapRatio scores the horizontal proximity of two plan-view footprints
// in [0, 1]. It is the intersection area divided by each footprint's own
// area, taking the larger of the two ratios, so a small pad fully inside a
// large slab still scores 1.0. Symmetric, and monotonically decreasing as
// the boxes separate. Degenerate (zero-area) footprints score 0.
func OverlapRatio(a, b activity.Box) float64 {
	overlapX := min(a.MaxX, b.MaxX) - max(a.MinX, b.MinX)
	if overlapX < 0 {
		overlapX = 0
	}
	overlapY := min(a.MaxY, b.MaxY) - max(a.MinY, b.MinY)
	if overlapY < 0 {
		overlapY = 0
	}
	overlap := overlapX * overlapY

	areaA := (a.MaxX - a.MinX) * (a.MaxY - a.MinY)
	areaB := (b.MaxX - b.MinX) * (b.MaxY - b.MinY)
	if areaA <= 0 || areaB <= 0 {
		return 0
	}
	return max(overlap/areaA, overlap/areaB)
}

// WithinVerticalWindow reports whether an activity base elevation sits
// inside the window (top - below, top + above) around a predecessor's top
// elevation. Bounds are exclusive, matching the field rule that a
// supported element starts at or just above what carries it.
func WithinVerticalWindow(top, base, below, above float64) bool {
	return base > top-below && base < top+above
}
