// Package hal defines the hardware boundary of the control core: the radio
// that carries command/status frames, the two analog sensors, and the three
// PWM output channels. Concrete drivers live in subpackages and in
// internal/radio.
package hal

import (
	"context"
	"errors"
)

// ErrNotConnected is returned by SendStatus when no peer is subscribed.
// The notifier treats it as a normal no-op, never as a failure.
var ErrNotConnected = errors.New("hal: no peer connected")

// FrameHandler receives raw inbound frames from the radio. Handlers must not
// block; the radio layer serializes delivery, one frame at a time.
type FrameHandler func(frame []byte)

// Radio is the command/status transport. Implementations deliver each
// inbound characteristic write to the registered handler and push status
// frames to the connected peer.
type Radio interface {
	// SetHandler registers the inbound frame handler. Must be called
	// before Start.
	SetHandler(h FrameHandler)

	// Start brings the transport up and begins delivering frames. It does
	// not block; the transport stops when ctx is cancelled.
	Start(ctx context.Context) error

	// SendStatus pushes a status frame to the connected peer. Returns
	// ErrNotConnected when nobody is listening.
	SendStatus(frame [3]byte) error

	Close() error
}

// Sensors exposes the two analog inputs. Raw readings are in the host ADC
// range [0, 4095].
type Sensors interface {
	ReadDial() (int, error)
	ReadAmbientLight() (int, error)
}

// Channel identifies one of the three output channels.
type Channel int

const (
	ChannelRed Channel = iota
	ChannelGreen
	ChannelBlue
)

// String returns the channel name.
func (c Channel) String() string {
	switch c {
	case ChannelRed:
		return "red"
	case ChannelGreen:
		return "green"
	case ChannelBlue:
		return "blue"
	default:
		return "unknown"
	}
}

// Outputs drives the RGB output stage. Values are raw duty values in
// [0,255]; polarity handling is the actuation loop's job.
type Outputs interface {
	WriteChannel(ch Channel, value uint8) error
}
