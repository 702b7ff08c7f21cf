package keyframe

import (
	"errors"
	"math"

	"facecap/internal/arkit"
)

// DefaultThreshold is the default delta threshold for recording and cleanup.
const DefaultThreshold = 0.001

// ErrNegativeThreshold is returned when a threshold below zero is supplied.
var ErrNegativeThreshold = errors.New("keyframe: threshold must be >= 0")

// never marks a cache entry that has not been recorded yet. It always
// passes the delta test.
var never = math.Inf(-1)

// Recorder inserts keyframes for channels that moved more than a threshold
// since the last value it recorded for the same target.
//
// A Recorder is not safe for concurrent use; the host calls it from its
// scheduler goroutine.
type Recorder struct {
	store     Store
	threshold float64

	// previous values per target name, indexed like arkit.Channels
	prev map[string][]float64
}

// NewRecorder returns a Recorder writing into store.
func NewRecorder(store Store, threshold float64) (*Recorder, error) {
	if threshold < 0 || math.IsNaN(threshold) {
		return nil, ErrNegativeThreshold
	}
	return &Recorder{
		store:     store,
		threshold: threshold,
		prev:      make(map[string][]float64),
	}, nil
}

// Threshold returns the current delta threshold.
func (r *Recorder) Threshold() float64 { return r.threshold }

// SetThreshold changes the delta threshold.
func (r *Recorder) SetThreshold(threshold float64) error {
	if threshold < 0 || math.IsNaN(threshold) {
		return ErrNegativeThreshold
	}
	r.threshold = threshold
	return nil
}

// Reset forgets every previously recorded value.
func (r *Recorder) Reset() {
	clear(r.prev)
}

// ResetTarget forgets the previously recorded values of one target.
func (r *Recorder) ResetTarget(name string) {
	delete(r.prev, name)
}

func (r *Recorder) cache(name string) []float64 {
	p, ok := r.prev[name]
	if !ok {
		p = make([]float64, arkit.Count)
		for i := range p {
			p[i] = never
		}
		r.prev[name] = p
	}
	return p
}

// Optimized records, at frame, every present channel whose value differs
// from the last recorded one by more than the threshold. The first call for a
// target records every present channel. It returns the number of keyframes
// inserted.
func (r *Recorder) Optimized(targets []Target, frame float64) int {
	recorded := 0
	for _, t := range targets {
		if t == nil {
			continue
		}
		name := t.Name()
		prev := r.cache(name)
		for i, ch := range arkit.Channels {
			v, ok := t.Channel(ch)
			if !ok {
				continue
			}
			cur := float64(v)
			if !math.IsInf(prev[i], -1) && math.Abs(cur-prev[i]) <= r.threshold {
				continue
			}
			r.store.InsertKeyframe(name, ch, frame, v)
			prev[i] = cur
			recorded++
		}
	}
	return recorded
}

// Force clears the cache for all targets and records every present channel.
func (r *Recorder) Force(targets []Target, frame float64) int {
	r.Reset()
	return r.Optimized(targets, frame)
}

// InsertAll records every present channel without a delta test. The cache is
// updated so a later Optimized call compares against these values.
func (r *Recorder) InsertAll(targets []Target, frame float64) int {
	recorded := 0
	for _, t := range targets {
		if t == nil {
			continue
		}
		name := t.Name()
		prev := r.cache(name)
		for i, ch := range arkit.Channels {
			v, ok := t.Channel(ch)
			if !ok {
				continue
			}
			r.store.InsertKeyframe(name, ch, frame, v)
			prev[i] = float64(v)
			recorded++
		}
	}
	return recorded
}
