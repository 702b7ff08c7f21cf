// Package keyframe records channel values into per-channel animation curves
// and removes redundant points from them afterwards.
//
// The curve store belongs to the host; this package only asks it to insert,
// list and remove keyframes.
package keyframe

import "facecap/internal/arkit"

// Keyframe is one (timeline frame, value) point on a channel curve.
type Keyframe struct {
	Frame float64 `json:"frame" yaml:"frame"`
	Value float32 `json:"value" yaml:"value"`
}

// Curve is a single channel's animation curve inside a Store.
type Curve interface {
	// Keyframes returns the points in increasing frame order.
	Keyframes() []Keyframe
	// RemoveKeyframe deletes the point at frame and reports whether one existed.
	RemoveKeyframe(frame float64) bool
}

// Store is the host curve store.
type Store interface {
	// InsertKeyframe adds a point, replacing any point already at frame.
	InsertKeyframe(target, channel string, frame float64, value float32)
	FindCurve(target, channel string) (Curve, bool)
}

// Target is a host object whose current channel values can be recorded.
type Target interface {
	Name() string
	arkit.ChannelSource
}
