package keyframe

import "testing"

func TestMemoryStoreKeepsFrameOrder(t *testing.T) {
	s := NewMemoryStore()
	for _, f := range []float64{5, 1, 3, 2, 4} {
		s.InsertKeyframe("Face", "jawOpen", f, float32(f)/10)
	}

	c, ok := s.FindCurve("Face", "jawOpen")
	if !ok {
		t.Fatalf("expected curve")
	}
	got := c.Keyframes()
	if len(got) != 5 {
		t.Fatalf("len=%d, want 5", len(got))
	}
	for i, kf := range got {
		if kf.Frame != float64(i+1) {
			t.Fatalf("kfs[%d].Frame=%v, want %v", i, kf.Frame, i+1)
		}
	}
}

func TestMemoryStoreInsertSameFrameReplaces(t *testing.T) {
	s := NewMemoryStore()
	s.InsertKeyframe("Face", "jawOpen", 10, 0.1)
	s.InsertKeyframe("Face", "jawOpen", 10, 0.9)

	c, _ := s.FindCurve("Face", "jawOpen")
	got := c.Keyframes()
	if len(got) != 1 || got[0].Value != 0.9 {
		t.Fatalf("got %+v, want single key with value 0.9", got)
	}
}

func TestMemoryStoreRemoveKeyframe(t *testing.T) {
	s := NewMemoryStore()
	s.InsertKeyframe("Face", "jawOpen", 1, 0.1)
	s.InsertKeyframe("Face", "jawOpen", 2, 0.2)

	c, _ := s.FindCurve("Face", "jawOpen")
	if !c.RemoveKeyframe(1) {
		t.Fatalf("expected removal at frame 1")
	}
	if c.RemoveKeyframe(1) {
		t.Fatalf("second removal at frame 1 should report false")
	}
	if c.RemoveKeyframe(7) {
		t.Fatalf("removal at missing frame should report false")
	}
	if got := c.Keyframes(); len(got) != 1 || got[0].Frame != 2 {
		t.Fatalf("got %+v", got)
	}
}

func TestMemoryStoreFindCurveMissing(t *testing.T) {
	s := NewMemoryStore()
	s.InsertKeyframe("Face", "jawOpen", 1, 0.1)

	if _, ok := s.FindCurve("Face", "tongueOut"); ok {
		t.Fatalf("unexpected curve for tongueOut")
	}
	if _, ok := s.FindCurve("Other", "jawOpen"); ok {
		t.Fatalf("unexpected curve for other target")
	}
}

func TestMemoryStoreSnapshotAndChannels(t *testing.T) {
	s := NewMemoryStore()
	s.InsertKeyframe("Face", "jawOpen", 1, 0.1)
	s.InsertKeyframe("Face", "eyeBlinkLeft", 1, 0.2)
	s.InsertKeyframe("Face", "eyeBlinkLeft", 2, 0.3)
	s.InsertKeyframe("Other", "jawOpen", 1, 0.4)

	chs := s.Channels("Face")
	if len(chs) != 2 || chs[0] != "eyeBlinkLeft" || chs[1] != "jawOpen" {
		t.Fatalf("Channels=%v", chs)
	}
	if n := s.Len("Face"); n != 3 {
		t.Fatalf("Len=%d, want 3", n)
	}

	// Emptied curves drop out of the snapshot.
	c, _ := s.FindCurve("Face", "jawOpen")
	c.RemoveKeyframe(1)
	snap := s.Snapshot("Face")
	if _, ok := snap["jawOpen"]; ok {
		t.Fatalf("empty curve present in snapshot")
	}
	if len(snap["eyeBlinkLeft"]) != 2 {
		t.Fatalf("snapshot=%v", snap)
	}
}

func TestMemoryCurveKeyframesIsCopy(t *testing.T) {
	s := NewMemoryStore()
	s.InsertKeyframe("Face", "jawOpen", 1, 0.1)
	c, _ := s.FindCurve("Face", "jawOpen")

	kfs := c.Keyframes()
	kfs[0].Value = 99

	if got := c.Keyframes()[0].Value; got != 0.1 {
		t.Fatalf("curve mutated through returned slice: %v", got)
	}
}
