package main

import (
	"testing"
	"time"

	"facecap/internal/arkit"
	"facecap/internal/livelink"
)

func TestSynthFrameRange(t *testing.T) {
	for _, elapsed := range []time.Duration{0, 100 * time.Millisecond, 1337 * time.Millisecond} {
		f := synthFrame(elapsed, 2*time.Second, arkit.Count)
		if len(f.Values) != arkit.Count {
			t.Fatalf("values=%d, want %d", len(f.Values), arkit.Count)
		}
		for i, v := range f.Values {
			if v < 0 || v > 1 {
				t.Fatalf("value[%d]=%v out of [0,1]", i, v)
			}
		}
	}
}

func TestSynthFrameDecodes(t *testing.T) {
	f := synthFrame(250*time.Millisecond, time.Second, arkit.Count)
	f.SessionID = "5f1d0c3a-8c2e-4f4b-9a57-6a0b1c2d3e4f"
	f.DeviceName = "test"

	got, err := livelink.Decode(livelink.Encode(f))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.DeviceName != "test" || len(got.Values) != arkit.Count {
		t.Fatalf("decoded %+v", got)
	}
	for i := range f.Values {
		if got.Values[i] != f.Values[i] {
			t.Fatalf("value[%d]=%v, want %v", i, got.Values[i], f.Values[i])
		}
	}
}

func TestSynthFrameZeroPeriod(t *testing.T) {
	f := synthFrame(time.Second, 0, 3)
	for _, v := range f.Values {
		if v != 0 {
			t.Fatalf("values=%v, want zeros", f.Values)
		}
	}
}
