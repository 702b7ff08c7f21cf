package main

import "testing"

func TestPrinterChanges(t *testing.T) {
	p := newPrinter([]string{"jawOpen", "eyeBlinkLeft"}, 0.05)

	got := p.changes(pose{Channels: map[string]float32{"jawOpen": 0.5, "eyeBlinkLeft": 0, "mouthClose": 1}})
	if got != "jawOpen=0.500 eyeBlinkLeft=0.000" {
		t.Fatalf("first pose: %q", got)
	}

	got = p.changes(pose{Channels: map[string]float32{"jawOpen": 0.52, "eyeBlinkLeft": 0.2}})
	if got != "eyeBlinkLeft=0.200" {
		t.Fatalf("second pose: %q", got)
	}

	got = p.changes(pose{Channels: map[string]float32{"jawOpen": 0.56, "eyeBlinkLeft": 0.2}})
	if got != "jawOpen=0.560" {
		t.Fatalf("third pose: %q", got)
	}
}

func TestPrinterAllChannelsSorted(t *testing.T) {
	p := newPrinter(nil, 0)
	got := p.changes(pose{Channels: map[string]float32{"b": 1, "a": 0.5}})
	if got != "a=0.500 b=1.000" {
		t.Fatalf("got %q", got)
	}
}
