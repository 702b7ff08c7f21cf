// Package livelink implements the receiving side of the LiveLink Face UDP
// protocol: packet decoding, the latest-frame slot shared with the consumer,
// and the UDP receiver goroutine.
package livelink

import (
	"encoding/binary"
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Wire layout constants (big-endian throughout).
const (
	kindSize       = 1
	lengthSize     = 4
	sessionIDSize  = 36
	paddingSize    = 1
	timingSize     = 16
	valueSize      = 4
	fixedPrefixLen = kindSize + lengthSize + sessionIDSize + lengthSize

	// MaxDatagramSize is the receive buffer size; LiveLink packets are far smaller.
	MaxDatagramSize = 65536
)

// Frame is one decoded LiveLink datagram.
//
// Values holds whatever float32 groups remain after the header. Its length is
// not guaranteed to match the channel catalogue; callers must bound-check.
// A published Frame is immutable.
type Frame struct {
	Kind int8

	// UUIDLength is the declared uuid length. It never sizes the uuid read:
	// the uuid field is always 36 bytes on the wire.
	UUIDLength int32
	SessionID  string
	DeviceName string

	// Timing block, informational only.
	FrameIndex      int32
	SubFrame        float32
	RateNumerator   int32
	RateDenominator int32

	Values []float32
}

// SessionUUID parses SessionID. Senders are not validated, so callers should
// treat a parse failure as informational.
func (f Frame) SessionUUID() (uuid.UUID, error) {
	return uuid.Parse(f.SessionID)
}

// HeaderLen returns the number of bytes preceding the value block for f.
func (f Frame) HeaderLen() int {
	return fixedPrefixLen + len(f.DeviceName) + paddingSize + timingSize
}

// Decode reasons.
const (
	ReasonTruncated      = "truncated"
	ReasonInvalidUTF8    = "invalid_utf8"
	ReasonNegativeLength = "negative_length"
)

// DecodeError describes why a datagram could not be decoded.
type DecodeError struct {
	Reason string
	Field  string
	Offset int // where the failing field starts
	Need   int // bytes the field needs
	Have   int // bytes available from Offset
}

func (e *DecodeError) Error() string {
	switch e.Reason {
	case ReasonTruncated:
		return fmt.Sprintf("livelink: truncated %s at offset %d: need %d bytes, have %d", e.Field, e.Offset, e.Need, e.Have)
	case ReasonNegativeLength:
		return fmt.Sprintf("livelink: negative %s length %d at offset %d", e.Field, e.Need, e.Offset)
	default:
		return fmt.Sprintf("livelink: %s in %s at offset %d", e.Reason, e.Field, e.Offset)
	}
}

// reader is a bounds-checked big-endian cursor over a datagram.
type reader struct {
	b   []byte
	off int
}

func (r *reader) take(field string, n int) ([]byte, error) {
	if n < 0 {
		return nil, &DecodeError{Reason: ReasonNegativeLength, Field: field, Offset: r.off, Need: n, Have: len(r.b) - r.off}
	}
	if len(r.b)-r.off < n {
		return nil, &DecodeError{Reason: ReasonTruncated, Field: field, Offset: r.off, Need: n, Have: len(r.b) - r.off}
	}
	p := r.b[r.off : r.off+n]
	r.off += n
	return p, nil
}

func (r *reader) int32(field string) (int32, error) {
	p, err := r.take(field, 4)
	if err != nil {
		return 0, err
	}
	return int32(binary.BigEndian.Uint32(p)), nil
}

func (r *reader) text(field string, n int) (string, error) {
	start := r.off
	p, err := r.take(field, n)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(p) {
		return "", &DecodeError{Reason: ReasonInvalidUTF8, Field: field, Offset: start, Need: n, Have: n}
	}
	return string(p), nil
}

// Decode parses one datagram. It never panics; malformed input yields a
// *DecodeError. Trailing bytes that do not fill a whole float are dropped.
func Decode(b []byte) (Frame, error) {
	var f Frame
	r := &reader{b: b}

	kind, err := r.take("message kind", kindSize)
	if err != nil {
		return Frame{}, err
	}
	f.Kind = int8(kind[0])

	if f.UUIDLength, err = r.int32("uuid length"); err != nil {
		return Frame{}, err
	}
	if f.SessionID, err = r.text("uuid", sessionIDSize); err != nil {
		return Frame{}, err
	}

	nameLen, err := r.int32("device name length")
	if err != nil {
		return Frame{}, err
	}
	if f.DeviceName, err = r.text("device name", int(nameLen)); err != nil {
		return Frame{}, err
	}

	if _, err = r.take("padding", paddingSize); err != nil {
		return Frame{}, err
	}

	timing, err := r.take("frame timing", timingSize)
	if err != nil {
		return Frame{}, err
	}
	f.FrameIndex = int32(binary.BigEndian.Uint32(timing[0:4]))
	f.SubFrame = math.Float32frombits(binary.BigEndian.Uint32(timing[4:8]))
	f.RateNumerator = int32(binary.BigEndian.Uint32(timing[8:12]))
	f.RateDenominator = int32(binary.BigEndian.Uint32(timing[12:16]))

	rest := b[r.off:]
	f.Values = make([]float32, len(rest)/valueSize)
	for i := range f.Values {
		f.Values[i] = math.Float32frombits(binary.BigEndian.Uint32(rest[i*valueSize:]))
	}

	return f, nil
}
