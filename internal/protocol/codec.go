// Package protocol implements the 3-byte command/status frame codec shared
// with the remote controller. The frame size and the big-endian 16-bit hue
// split are wire constants, not configuration.
package protocol

import (
	"errors"
	"fmt"
)

// FrameSize is the fixed length of every frame in both directions.
const FrameSize = 3

// Inbound opcodes (controller -> light).
const (
	OpcodeSetOverride byte = 0x01
	OpcodeSetHue      byte = 0x02
)

// OpcodeHueReport is the outbound status opcode (light -> controller).
const OpcodeHueReport byte = 0x01

// ErrShortFrame is returned when an inbound frame is shorter than FrameSize.
// The radio layer should never deliver one, but a misbehaving peer can.
var ErrShortFrame = errors.New("protocol: frame shorter than 3 bytes")

// Kind discriminates the decoded command variants.
type Kind int

const (
	// KindUnknown marks a frame with an opcode we do not recognise. It is
	// an explicit variant so the caller can log it; it is never an error.
	KindUnknown Kind = iota
	KindSetOverride
	KindSetHue
)

// String returns a human-readable name for the command kind.
func (k Kind) String() string {
	switch k {
	case KindSetOverride:
		return "set_override"
	case KindSetHue:
		return "set_hue"
	default:
		return "unknown"
	}
}

// Command is a decoded inbound frame.
type Command struct {
	Kind   Kind
	Opcode byte

	// Enabled is meaningful for KindSetOverride.
	Enabled bool

	// Hue is the raw 16-bit hue candidate for KindSetHue. Range validation
	// is the state layer's job, not the codec's.
	Hue uint16
}

// DecodeCommand parses an inbound frame. Frames shorter than FrameSize fail
// with ErrShortFrame; unrecognised opcodes decode successfully into a
// KindUnknown command so the caller can report and move on.
func DecodeCommand(frame []byte) (Command, error) {
	if len(frame) < FrameSize {
		return Command{}, fmt.Errorf("%w: got %d", ErrShortFrame, len(frame))
	}

	switch frame[0] {
	case OpcodeSetOverride:
		// Byte 1 is the flag, byte 2 is ignored.
		return Command{
			Kind:    KindSetOverride,
			Opcode:  frame[0],
			Enabled: frame[1] > 0,
		}, nil
	case OpcodeSetHue:
		return Command{
			Kind:   KindSetHue,
			Opcode: frame[0],
			Hue:    uint16(frame[1])<<8 | uint16(frame[2]),
		}, nil
	default:
		return Command{Kind: KindUnknown, Opcode: frame[0]}, nil
	}
}

// EncodeStatus builds an outbound hue report frame. Hue never exceeds 359 in
// practice, but the split handles the full 16-bit range.
func EncodeStatus(hue uint16) [FrameSize]byte {
	return [FrameSize]byte{OpcodeHueReport, byte(hue >> 8), byte(hue)}
}
