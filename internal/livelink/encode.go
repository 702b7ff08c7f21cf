package livelink

import (
	"encoding/binary"
	"math"
)

// Encode serializes f in the wire layout Decode accepts.
//
// The session id is padded with spaces or cut to 36 bytes. A zero UUIDLength
// is written as 36.
func Encode(f Frame) []byte {
	buf := make([]byte, 0, f.HeaderLen()+len(f.Values)*valueSize)

	buf = append(buf, byte(f.Kind))

	uuidLen := f.UUIDLength
	if uuidLen == 0 {
		uuidLen = sessionIDSize
	}
	buf = binary.BigEndian.AppendUint32(buf, uint32(uuidLen))

	id := []byte(f.SessionID)
	if len(id) > sessionIDSize {
		id = id[:sessionIDSize]
	}
	buf = append(buf, id...)
	for i := len(id); i < sessionIDSize; i++ {
		buf = append(buf, ' ')
	}

	buf = binary.BigEndian.AppendUint32(buf, uint32(len(f.DeviceName)))
	buf = append(buf, f.DeviceName...)
	buf = append(buf, 0) // padding

	buf = binary.BigEndian.AppendUint32(buf, uint32(f.FrameIndex))
	buf = binary.BigEndian.AppendUint32(buf, math.Float32bits(f.SubFrame))
	buf = binary.BigEndian.AppendUint32(buf, uint32(f.RateNumerator))
	buf = binary.BigEndian.AppendUint32(buf, uint32(f.RateDenominator))

	for _, v := range f.Values {
		buf = binary.BigEndian.AppendUint32(buf, math.Float32bits(v))
	}
	return buf
}
