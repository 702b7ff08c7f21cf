package keyframe

import (
	"errors"
	"testing"
)

func seed(s *MemoryStore, target, channel string, kfs ...Keyframe) {
	for _, kf := range kfs {
		s.InsertKeyframe(target, channel, kf.Frame, kf.Value)
	}
}

func frames(c Curve) []float64 {
	var out []float64
	for _, kf := range c.Keyframes() {
		out = append(out, kf.Frame)
	}
	return out
}

func equalFrames(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestCleanupCurveComparesAgainstLastKept(t *testing.T) {
	s := NewMemoryStore()
	seed(s, "Face", "jawOpen",
		Keyframe{0, 0.0},
		Keyframe{1, 0.0005},
		Keyframe{2, 0.002},
		Keyframe{3, 0.0021},
	)
	c, _ := s.FindCurve("Face", "jawOpen")

	removed, kept := CleanupCurve(c, 0.001)
	if removed != 2 || kept != 2 {
		t.Fatalf("removed=%d kept=%d, want 2/2", removed, kept)
	}
	if got := frames(c); !equalFrames(got, []float64{0, 2}) {
		t.Fatalf("frames=%v, want [0 2]", got)
	}
}

func TestCleanupCurveSlowDriftKeepsSteps(t *testing.T) {
	// Each step is below the threshold, but drift from the last kept value
	// eventually exceeds it. A predecessor comparison would remove all of these.
	s := NewMemoryStore()
	for i := 0; i < 10; i++ {
		s.InsertKeyframe("Face", "jawOpen", float64(i), float32(i)*0.0004)
	}
	c, _ := s.FindCurve("Face", "jawOpen")

	CleanupCurve(c, 0.001)

	// kept: 0 (0.0), 3 (0.0012), 6 (0.0024), 9 (0.0036)
	if got := frames(c); !equalFrames(got, []float64{0, 3, 6, 9}) {
		t.Fatalf("frames=%v, want [0 3 6 9]", got)
	}
}

func TestCleanupCurveEdgeCases(t *testing.T) {
	s := NewMemoryStore()
	seed(s, "Face", "single", Keyframe{4, 0.3})
	c, _ := s.FindCurve("Face", "single")
	if removed, kept := CleanupCurve(c, 0.001); removed != 0 || kept != 1 {
		t.Fatalf("single: removed=%d kept=%d", removed, kept)
	}

	seed(s, "Face", "flat", Keyframe{0, 0.5}, Keyframe{1, 0.5}, Keyframe{2, 0.5})
	c, _ = s.FindCurve("Face", "flat")
	if removed, _ := CleanupCurve(c, 0); removed != 2 {
		t.Fatalf("flat at zero threshold: removed=%d, want 2", removed)
	}
	if got := frames(c); !equalFrames(got, []float64{0}) {
		t.Fatalf("flat frames=%v", got)
	}
}

func TestCleanupAcrossTargets(t *testing.T) {
	s := NewMemoryStore()
	seed(s, "A", "jawOpen", Keyframe{0, 0}, Keyframe{1, 0.0001}, Keyframe{2, 0.5})
	seed(s, "A", "eyeBlinkLeft", Keyframe{0, 0.2}, Keyframe{1, 0.2})
	seed(s, "B", "jawOpen", Keyframe{0, 0}, Keyframe{1, 0})
	// Not a catalogue channel; left alone.
	seed(s, "A", "custom", Keyframe{0, 0}, Keyframe{1, 0})

	res, err := Cleanup(s, []string{"A", "B", "Missing"}, DefaultThreshold)
	if err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	want := CleanupResult{Curves: 3, Removed: 3, Kept: 4}
	if res != want {
		t.Fatalf("result=%+v, want %+v", res, want)
	}
	c, _ := s.FindCurve("A", "custom")
	if len(c.Keyframes()) != 2 {
		t.Fatalf("non-catalogue curve was cleaned")
	}
}

func TestCleanupRejectsNegativeThreshold(t *testing.T) {
	if _, err := Cleanup(NewMemoryStore(), []string{"A"}, -1); !errors.Is(err, ErrNegativeThreshold) {
		t.Fatalf("err=%v, want ErrNegativeThreshold", err)
	}
}

func TestDeleteAt(t *testing.T) {
	s := NewMemoryStore()
	seed(s, "A", "jawOpen", Keyframe{0, 0}, Keyframe{5, 0.5})
	seed(s, "A", "eyeBlinkLeft", Keyframe{5, 0.2})
	seed(s, "B", "jawOpen", Keyframe{5, 0.1})

	if n := DeleteAt(s, []string{"A"}, 5); n != 2 {
		t.Fatalf("DeleteAt=%d, want 2", n)
	}
	c, _ := s.FindCurve("A", "jawOpen")
	if got := frames(c); !equalFrames(got, []float64{0}) {
		t.Fatalf("A jawOpen frames=%v", got)
	}
	c, _ = s.FindCurve("B", "jawOpen")
	if len(c.Keyframes()) != 1 {
		t.Fatalf("B was touched")
	}
	if n := DeleteAt(s, []string{"A"}, 5); n != 0 {
		t.Fatalf("repeat DeleteAt=%d, want 0", n)
	}
}

func TestDeleteAll(t *testing.T) {
	s := NewMemoryStore()
	seed(s, "A", "jawOpen", Keyframe{0, 0}, Keyframe{5, 0.5})
	seed(s, "A", "eyeBlinkLeft", Keyframe{5, 0.2})
	seed(s, "B", "jawOpen", Keyframe{5, 0.1})

	if n := DeleteAll(s, []string{"A"}); n != 3 {
		t.Fatalf("DeleteAll=%d, want 3", n)
	}
	if s.Len("A") != 0 {
		t.Fatalf("A still has keys")
	}
	if s.Len("B") != 1 {
		t.Fatalf("B was touched")
	}
}
