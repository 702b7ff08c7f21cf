package keyframe

import (
	"sort"
	"sync"
)

type curveKey struct {
	target  string
	channel string
}

// MemoryStore is an in-process Store. It is safe for concurrent use.
type MemoryStore struct {
	mu     sync.Mutex
	curves map[curveKey]*MemoryCurve
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{curves: make(map[curveKey]*MemoryCurve)}
}

// InsertKeyframe implements Store.
func (s *MemoryStore) InsertKeyframe(target, channel string, frame float64, value float32) {
	s.mu.Lock()
	k := curveKey{target: target, channel: channel}
	c, ok := s.curves[k]
	if !ok {
		c = &MemoryCurve{}
		s.curves[k] = c
	}
	s.mu.Unlock()

	c.insert(frame, value)
}

// FindCurve implements Store.
func (s *MemoryStore) FindCurve(target, channel string) (Curve, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.curves[curveKey{target: target, channel: channel}]
	if !ok {
		return nil, false
	}
	return c, true
}

// Channels returns the channel names that have a curve for target, sorted.
func (s *MemoryStore) Channels(target string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var names []string
	for k := range s.curves {
		if k.target == target {
			names = append(names, k.channel)
		}
	}
	sort.Strings(names)
	return names
}

// Snapshot copies every non-empty curve of target, keyed by channel.
func (s *MemoryStore) Snapshot(target string) map[string][]Keyframe {
	out := make(map[string][]Keyframe)
	for _, ch := range s.Channels(target) {
		c, ok := s.FindCurve(target, ch)
		if !ok {
			continue
		}
		if kfs := c.Keyframes(); len(kfs) > 0 {
			out[ch] = kfs
		}
	}
	return out
}

// Len returns the total number of keyframes held for target.
func (s *MemoryStore) Len(target string) int {
	n := 0
	for _, kfs := range s.Snapshot(target) {
		n += len(kfs)
	}
	return n
}

// MemoryCurve is the Curve implementation used by MemoryStore.
type MemoryCurve struct {
	mu     sync.Mutex
	points []Keyframe // sorted by Frame, unique frames
}

func (c *MemoryCurve) insert(frame float64, value float32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := sort.Search(len(c.points), func(i int) bool { return c.points[i].Frame >= frame })
	if i < len(c.points) && c.points[i].Frame == frame {
		c.points[i].Value = value
		return
	}
	c.points = append(c.points, Keyframe{})
	copy(c.points[i+1:], c.points[i:])
	c.points[i] = Keyframe{Frame: frame, Value: value}
}

// Keyframes implements Curve. The returned slice is a copy.
func (c *MemoryCurve) Keyframes() []Keyframe {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Keyframe, len(c.points))
	copy(out, c.points)
	return out
}

// RemoveKeyframe implements Curve.
func (c *MemoryCurve) RemoveKeyframe(frame float64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := sort.Search(len(c.points), func(i int) bool { return c.points[i].Frame >= frame })
	if i >= len(c.points) || c.points[i].Frame != frame {
		return false
	}
	c.points = append(c.points[:i], c.points[i+1:]...)
	return true
}
