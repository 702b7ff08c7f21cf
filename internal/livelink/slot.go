package livelink

import "sync"

// FrameSlot is a single-element, last-write-wins buffer between the receiver
// goroutine (writer) and the periodic consumer (reader).
//
// Frames are never queued: a Publish replaces whatever the slot held, read or
// not. Latest leaves the frame in place, so a consumer that polls faster than
// packets arrive reapplies the last known pose.
//
// The lock is held only for the pointer swap; no decoding or application
// logic runs under it.
type FrameSlot struct {
	mu    sync.Mutex
	frame Frame
	has   bool
	read  bool // current frame has been returned by Latest at least once

	published   uint64
	overwritten uint64
}

// SlotStats is a point-in-time copy of the slot counters.
type SlotStats struct {
	// Published is the number of frames written.
	Published uint64
	// Overwritten counts frames replaced before any reader saw them.
	Overwritten uint64
}

// NewFrameSlot returns an empty slot.
func NewFrameSlot() *FrameSlot {
	return &FrameSlot{}
}

// Publish stores f as the latest frame. f must not be modified afterwards.
func (s *FrameSlot) Publish(f Frame) {
	s.mu.Lock()
	if s.has && !s.read {
		s.overwritten++
	}
	s.frame = f
	s.has = true
	s.read = false
	s.published++
	s.mu.Unlock()
}

// Latest returns the most recently published frame, if any. It never blocks
// beyond the lock and does not clear the slot.
func (s *FrameSlot) Latest() (Frame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.has {
		return Frame{}, false
	}
	s.read = true
	return s.frame, true
}

// LatestSeq is Latest plus the sequence number of the returned frame: the
// value of Published at the moment it was stored. Two reads returning the
// same sequence saw the same frame.
func (s *FrameSlot) LatestSeq() (Frame, uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.has {
		return Frame{}, 0, false
	}
	s.read = true
	return s.frame, s.published, true
}

// Reset empties the slot. Counters are kept.
func (s *FrameSlot) Reset() {
	s.mu.Lock()
	s.frame = Frame{}
	s.has = false
	s.read = false
	s.mu.Unlock()
}

// Stats returns the slot counters.
func (s *FrameSlot) Stats() SlotStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SlotStats{Published: s.published, Overwritten: s.overwritten}
}
