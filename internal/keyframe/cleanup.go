package keyframe

import (
	"math"

	"facecap/internal/arkit"
)

// CleanupResult summarizes a cleanup pass.
type CleanupResult struct {
	Curves  int `json:"curves"`  // curves visited
	Removed int `json:"removed"` // keyframes removed
	Kept    int `json:"kept"`    // keyframes left
}

// CleanupCurve removes redundant points from c in one left-to-right pass.
//
// The first point is always kept. Each later point is compared with the last
// point that was kept, not with its immediate predecessor: it is removed when
// |value - lastKept| <= threshold, otherwise it is kept and becomes lastKept.
// The result therefore depends on the order Keyframes returns.
func CleanupCurve(c Curve, threshold float64) (removed, kept int) {
	points := c.Keyframes()
	if len(points) == 0 {
		return 0, 0
	}

	lastKept := float64(points[0].Value)
	kept = 1
	var drop []float64
	for _, p := range points[1:] {
		v := float64(p.Value)
		if math.Abs(v-lastKept) <= threshold {
			drop = append(drop, p.Frame)
			continue
		}
		lastKept = v
		kept++
	}

	for _, frame := range drop {
		if c.RemoveKeyframe(frame) {
			removed++
		}
	}
	return removed, kept
}

// Cleanup runs CleanupCurve over every catalogue channel curve of every
// target that has one.
func Cleanup(store Store, targets []string, threshold float64) (CleanupResult, error) {
	if threshold < 0 || math.IsNaN(threshold) {
		return CleanupResult{}, ErrNegativeThreshold
	}
	var res CleanupResult
	for _, target := range targets {
		for _, ch := range arkit.Channels {
			c, ok := store.FindCurve(target, ch)
			if !ok {
				continue
			}
			removed, kept := CleanupCurve(c, threshold)
			res.Curves++
			res.Removed += removed
			res.Kept += kept
		}
	}
	return res, nil
}

// DeleteAt removes the keyframe at frame from every catalogue channel curve
// of targets and returns how many were removed.
func DeleteAt(store Store, targets []string, frame float64) int {
	removed := 0
	for _, target := range targets {
		for _, ch := range arkit.Channels {
			c, ok := store.FindCurve(target, ch)
			if !ok {
				continue
			}
			if c.RemoveKeyframe(frame) {
				removed++
			}
		}
	}
	return removed
}

// DeleteAll removes every keyframe from every catalogue channel curve of
// targets and returns how many were removed.
func DeleteAll(store Store, targets []string) int {
	removed := 0
	for _, target := range targets {
		for _, ch := range arkit.Channels {
			c, ok := store.FindCurve(target, ch)
			if !ok {
				continue
			}
			for _, p := range c.Keyframes() {
				if c.RemoveKeyframe(p.Frame) {
					removed++
				}
			}
		}
	}
	return removed
}
