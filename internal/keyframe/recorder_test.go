package keyframe

import (
	"errors"
	"testing"

	"facecap/internal/arkit"
)

type fakeTarget struct {
	name   string
	values map[string]float32
}

func newFakeTarget(name string, channels ...string) *fakeTarget {
	t := &fakeTarget{name: name, values: make(map[string]float32)}
	for _, ch := range channels {
		t.values[ch] = 0
	}
	return t
}

func (t *fakeTarget) Name() string { return t.name }

func (t *fakeTarget) Channel(name string) (float32, bool) {
	v, ok := t.values[name]
	return v, ok
}

func keyCount(s *MemoryStore, target string) int { return s.Len(target) }

func TestNewRecorderRejectsNegativeThreshold(t *testing.T) {
	if _, err := NewRecorder(NewMemoryStore(), -0.1); !errors.Is(err, ErrNegativeThreshold) {
		t.Fatalf("err=%v, want ErrNegativeThreshold", err)
	}
	r, err := NewRecorder(NewMemoryStore(), 0)
	if err != nil {
		t.Fatalf("zero threshold rejected: %v", err)
	}
	if err := r.SetThreshold(-1); !errors.Is(err, ErrNegativeThreshold) {
		t.Fatalf("SetThreshold err=%v", err)
	}
	if r.Threshold() != 0 {
		t.Fatalf("threshold changed by rejected SetThreshold")
	}
}

func TestRecorderOptimizedInvocations(t *testing.T) {
	store := NewMemoryStore()
	r, err := NewRecorder(store, DefaultThreshold)
	if err != nil {
		t.Fatal(err)
	}
	face := newFakeTarget("Face", "eyeBlinkLeft", "jawOpen", "tongueOut")
	targets := []Target{face}

	// First call records every present channel.
	if n := r.Optimized(targets, 1); n != 3 {
		t.Fatalf("first Optimized=%d, want 3", n)
	}

	// Nothing moved.
	if n := r.Optimized(targets, 2); n != 0 {
		t.Fatalf("second Optimized=%d, want 0", n)
	}

	// One channel moved past the threshold, one stayed within it.
	face.values["jawOpen"] = 0.5
	face.values["tongueOut"] = 0.0005
	if n := r.Optimized(targets, 3); n != 1 {
		t.Fatalf("third Optimized=%d, want 1", n)
	}

	c, _ := store.FindCurve("Face", "jawOpen")
	kfs := c.Keyframes()
	if len(kfs) != 2 || kfs[1].Frame != 3 || kfs[1].Value != 0.5 {
		t.Fatalf("jawOpen keys=%+v", kfs)
	}
	c, _ = store.FindCurve("Face", "tongueOut")
	if got := len(c.Keyframes()); got != 1 {
		t.Fatalf("tongueOut keys=%d, want 1", got)
	}
}

func TestRecorderComparesAgainstLastRecorded(t *testing.T) {
	store := NewMemoryStore()
	r, _ := NewRecorder(store, 0.01)
	face := newFakeTarget("Face", "jawOpen")
	targets := []Target{face}

	r.Optimized(targets, 0)

	// Creeping below the threshold each step still records once the
	// accumulated drift from the recorded value exceeds it.
	recorded := 0
	for i := 1; i <= 5; i++ {
		face.values["jawOpen"] = float32(i) * 0.004
		recorded += r.Optimized(targets, float64(i))
	}
	if recorded != 1 {
		t.Fatalf("recorded=%d, want 1", recorded)
	}
}

func TestRecorderForceRecordsEverything(t *testing.T) {
	store := NewMemoryStore()
	r, _ := NewRecorder(store, DefaultThreshold)
	face := newFakeTarget("Face", "jawOpen", "eyeBlinkLeft")
	targets := []Target{face}

	r.Optimized(targets, 1)
	if n := r.Force(targets, 2); n != 2 {
		t.Fatalf("Force=%d, want 2", n)
	}
	if n := r.Optimized(targets, 3); n != 0 {
		t.Fatalf("Optimized after Force=%d, want 0", n)
	}
	if got := keyCount(store, "Face"); got != 4 {
		t.Fatalf("keys=%d, want 4", got)
	}
}

func TestRecorderZeroThresholdRecordsAnyChange(t *testing.T) {
	store := NewMemoryStore()
	r, _ := NewRecorder(store, 0)
	face := newFakeTarget("Face", "jawOpen")
	targets := []Target{face}

	r.Optimized(targets, 1)
	if n := r.Optimized(targets, 2); n != 0 {
		t.Fatalf("unchanged value recorded at zero threshold")
	}
	face.values["jawOpen"] = 0.0000001
	if n := r.Optimized(targets, 3); n != 1 {
		t.Fatalf("changed value not recorded at zero threshold")
	}
}

func TestRecorderTargetsAreIndependent(t *testing.T) {
	store := NewMemoryStore()
	r, _ := NewRecorder(store, DefaultThreshold)
	a := newFakeTarget("A", "jawOpen")
	b := newFakeTarget("B", "jawOpen")

	r.Optimized([]Target{a}, 1)
	// B has never been recorded, so it records even though A's cache is warm.
	if n := r.Optimized([]Target{a, b}, 2); n != 1 {
		t.Fatalf("Optimized=%d, want 1", n)
	}

	r.ResetTarget("A")
	if n := r.Optimized([]Target{a, b}, 3); n != 1 {
		t.Fatalf("after ResetTarget Optimized=%d, want 1", n)
	}
}

func TestRecorderSkipsAbsentChannelsAndNilTargets(t *testing.T) {
	store := NewMemoryStore()
	r, _ := NewRecorder(store, DefaultThreshold)
	face := newFakeTarget("Face", "jawOpen", "notAnARKitName")

	if n := r.Optimized([]Target{nil, face}, 1); n != 1 {
		t.Fatalf("Optimized=%d, want 1", n)
	}
	if _, ok := store.FindCurve("Face", "notAnARKitName"); ok {
		t.Fatalf("recorded a channel outside the catalogue")
	}
}

func TestRecorderInsertAll(t *testing.T) {
	store := NewMemoryStore()
	r, _ := NewRecorder(store, DefaultThreshold)
	face := newFakeTarget("Face", arkit.Channels[:]...)
	targets := []Target{face}

	if n := r.InsertAll(targets, 1); n != arkit.Count {
		t.Fatalf("InsertAll=%d, want %d", n, arkit.Count)
	}
	if n := r.InsertAll(targets, 2); n != arkit.Count {
		t.Fatalf("second InsertAll=%d, want %d", n, arkit.Count)
	}
	// InsertAll primes the cache.
	if n := r.Optimized(targets, 3); n != 0 {
		t.Fatalf("Optimized after InsertAll=%d, want 0", n)
	}
}
