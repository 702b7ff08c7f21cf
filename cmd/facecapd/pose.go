package main

import (
	"time"

	"facecap/internal/arkit"
	"facecap/internal/capture"
)

// posePayload is the externally consumable form of a capture.Pose, shared by
// the websocket broadcast and the Redis publisher.
type posePayload struct {
	Seq           uint64               `json:"seq"`
	At            time.Time            `json:"at"`
	Device        string               `json:"device"`
	SessionID     string               `json:"session_id"`
	FrameIndex    int32                `json:"frame_index"`
	TimelineFrame int                  `json:"timeline_frame"`
	Channels      map[string]float32   `json:"channels"`
	Targets       []capture.TargetPose `json:"targets,omitempty"`
}

// sourceData is the payload of "source_changed": a new phone or session.
type sourceData struct {
	Device    string `json:"device"`
	SessionID string `json:"session_id"`
}

// newPosePayload names the frame's values by catalogue channel. Values past
// the catalogue, or a short frame's missing tail, are left out.
func newPosePayload(p capture.Pose) posePayload {
	n := len(p.Frame.Values)
	if n > arkit.Count {
		n = arkit.Count
	}
	channels := make(map[string]float32, n)
	for i := 0; i < n; i++ {
		channels[arkit.Channels[i]] = p.Frame.Values[i]
	}
	return posePayload{
		Seq:           p.Seq,
		At:            p.At.UTC(),
		Device:        p.Frame.DeviceName,
		SessionID:     p.Frame.SessionID,
		FrameIndex:    p.Frame.FrameIndex,
		TimelineFrame: p.TimelineFrame,
		Channels:      channels,
		Targets:       p.Targets,
	}
}

// offerLatest puts p into a single-slot channel, displacing whatever is
// there. It never blocks; ch must have capacity 1 and a single sender.
func offerLatest(ch chan capture.Pose, p capture.Pose) {
	for {
		select {
		case ch <- p:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

// poseFeed adapts a channel to capture.PoseObserver, keeping only the newest
// undelivered pose.
type poseFeed struct {
	ch chan capture.Pose
}

func newPoseFeed() *poseFeed {
	return &poseFeed{ch: make(chan capture.Pose, 1)}
}

func (f *poseFeed) ObservePose(p capture.Pose) { offerLatest(f.ch, p) }

func (f *poseFeed) C() <-chan capture.Pose { return f.ch }
