// Package sim provides in-memory hardware drivers for development and
// tests: settable sensor values, recorded channel writes, and a loopback
// radio with an injectable inbound path.
package sim

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/lampd/internal/hal"
)

// Sensors is a Sensors implementation backed by settable values.
type Sensors struct {
	mu      sync.Mutex
	dial    int
	ambient int
}

// NewSensors creates simulated sensors with both inputs at zero.
func NewSensors() *Sensors {
	return &Sensors{}
}

// SetDial sets the raw dial reading.
func (s *Sensors) SetDial(raw int) {
	s.mu.Lock()
	s.dial = raw
	s.mu.Unlock()
}

// SetAmbientLight sets the raw ambient light reading.
func (s *Sensors) SetAmbientLight(raw int) {
	s.mu.Lock()
	s.ambient = raw
	s.mu.Unlock()
}

func (s *Sensors) ReadDial() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dial, nil
}

func (s *Sensors) ReadAmbientLight() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ambient, nil
}

// Outputs records the last value written to each channel.
type Outputs struct {
	mu     sync.Mutex
	values [3]uint8
}

// NewOutputs creates a simulated output stage.
func NewOutputs() *Outputs {
	return &Outputs{}
}

func (o *Outputs) WriteChannel(ch hal.Channel, value uint8) error {
	o.mu.Lock()
	o.values[ch] = value
	o.mu.Unlock()
	return nil
}

// Values returns the last written red/green/blue duty values.
func (o *Outputs) Values() (r, g, b uint8) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.values[hal.ChannelRed], o.values[hal.ChannelGreen], o.values[hal.ChannelBlue]
}

// Radio is a loopback Radio: Inject feeds inbound frames to the handler and
// SendStatus records outbound frames. Connected defaults to true.
type Radio struct {
	mu        sync.Mutex
	handler   hal.FrameHandler
	connected bool
	sent      [][3]byte
}

// NewRadio creates a simulated radio in the connected state.
func NewRadio() *Radio {
	return &Radio{connected: true}
}

func (r *Radio) SetHandler(h hal.FrameHandler) {
	r.mu.Lock()
	r.handler = h
	r.mu.Unlock()
}

func (r *Radio) Start(ctx context.Context) error {
	log.Info().Msg("Simulated radio started")
	return nil
}

// Inject delivers an inbound frame as if a peer wrote the command
// characteristic.
func (r *Radio) Inject(frame []byte) {
	r.mu.Lock()
	h := r.handler
	r.mu.Unlock()
	if h != nil {
		h(frame)
	}
}

// SetConnected flips the simulated peer connection.
func (r *Radio) SetConnected(connected bool) {
	r.mu.Lock()
	r.connected = connected
	r.mu.Unlock()
}

func (r *Radio) SendStatus(frame [3]byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.connected {
		return hal.ErrNotConnected
	}
	r.sent = append(r.sent, frame)
	return nil
}

// Sent returns a copy of all status frames pushed so far.
func (r *Radio) Sent() [][3]byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([][3]byte, len(r.sent))
	copy(out, r.sent)
	return out
}

func (r *Radio) Close() error {
	return nil
}
