// Package arkit holds the ARKit blendshape channel catalogue and the mapper
// that writes a decoded value array onto named channels.
package arkit

// Channels is the fixed, ordered catalogue of blendshape channels.
//
// Order is significant: index i of a decoded LiveLink value array drives
// Channels[i]. Head and eye rotation curves that some senders append after
// tongueOut are not part of the catalogue and are ignored.
var Channels = [...]string{
	// Left eye
	"eyeBlinkLeft",
	"eyeLookDownLeft",
	"eyeLookInLeft",
	"eyeLookOutLeft",
	"eyeLookUpLeft",
	"eyeSquintLeft",
	"eyeWideLeft",
	// Right eye
	"eyeBlinkRight",
	"eyeLookDownRight",
	"eyeLookInRight",
	"eyeLookOutRight",
	"eyeLookUpRight",
	"eyeSquintRight",
	"eyeWideRight",
	// Jaw
	"jawForward",
	"jawLeft",
	"jawRight",
	"jawOpen",
	// Mouth
	"mouthClose",
	"mouthFunnel",
	"mouthPucker",
	"mouthLeft",
	"mouthRight",
	"mouthSmileLeft",
	"mouthSmileRight",
	"mouthFrownLeft",
	"mouthFrownRight",
	"mouthDimpleLeft",
	"mouthDimpleRight",
	"mouthStretchLeft",
	"mouthStretchRight",
	"mouthRollLower",
	"mouthRollUpper",
	"mouthShrugLower",
	"mouthShrugUpper",
	"mouthPressLeft",
	"mouthPressRight",
	"mouthLowerDownLeft",
	"mouthLowerDownRight",
	"mouthUpperUpLeft",
	"mouthUpperUpRight",
	// Brow
	"browDownLeft",
	"browDownRight",
	"browInnerUp",
	"browOuterUpLeft",
	"browOuterUpRight",
	// Cheek
	"cheekPuff",
	"cheekSquintLeft",
	"cheekSquintRight",
	// Nose and tongue
	"noseSneerLeft",
	"noseSneerRight",
	"tongueOut",
}

// Count is the number of catalogue channels.
const Count = len(Channels)

var channelIndex = func() map[string]int {
	m := make(map[string]int, Count)
	for i, name := range Channels {
		m[name] = i
	}
	return m
}()

// Index returns the catalogue position of name, or -1 if name is not a
// catalogue channel.
func Index(name string) int {
	i, ok := channelIndex[name]
	if !ok {
		return -1
	}
	return i
}

// Known reports whether name is a catalogue channel.
func Known(name string) bool {
	_, ok := channelIndex[name]
	return ok
}
