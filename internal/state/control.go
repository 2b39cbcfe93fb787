// Package state owns the single mutable record of the control core: the
// current hue and the remote override flag. All writes go through the
// accessors here, which enforce the arbitration rule between the local dial
// and the remote controller.
package state

import (
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/lampd/internal/color"
	"github.com/dokzlo13/lampd/internal/protocol"
)

// ControlState holds the authoritative hue and the override flag. Each field
// is read and written atomically so the radio callback path and the
// actuation loop never see a torn value; the pair is deliberately not
// guarded as a unit, the protocol does not require it.
type ControlState struct {
	hue      atomic.Int32
	override atomic.Bool
}

// New returns a ControlState in its initial configuration: hue 0,
// locally controlled.
func New() *ControlState {
	return &ControlState{}
}

// Hue returns the current hue snapshot, always in [0,359].
func (s *ControlState) Hue() int {
	return int(s.hue.Load())
}

// RemoteOverride reports whether the remote controller currently holds
// exclusive write access to the hue.
func (s *ControlState) RemoteOverride() bool {
	return s.override.Load()
}

// SetHueFromDial writes a dial-derived hue. It succeeds only while the light
// is locally controlled; under remote override the value is discarded and
// false is returned, so the dial read path can keep running unconditionally.
func (s *ControlState) SetHueFromDial(hue int) bool {
	if s.override.Load() {
		return false
	}
	s.hue.Store(int32(color.ClampHue(hue)))
	return true
}

// Apply executes a decoded remote command against the state machine.
// It returns true when the command changed state. Unknown commands and
// set_hue while locally controlled are accepted but have no effect.
func (s *ControlState) Apply(cmd protocol.Command) bool {
	switch cmd.Kind {
	case protocol.KindSetOverride:
		s.override.Store(cmd.Enabled)
		log.Info().Bool("enabled", cmd.Enabled).Msg("Remote override changed")
		return true

	case protocol.KindSetHue:
		if !s.override.Load() {
			// The peer may send hue updates speculatively before claiming
			// override; they must not leak into the hue field.
			log.Debug().Uint16("hue", cmd.Hue).Msg("Ignoring remote hue, light is locally controlled")
			return false
		}
		clamped := color.ClampHue(int(cmd.Hue))
		s.hue.Store(int32(clamped))
		log.Debug().Int("hue", clamped).Msg("Remote hue applied")
		return true

	default:
		return false
	}
}

// Snapshot returns the current hue and override flag. The two loads are not
// a consistent pair; callers that need one value should use Hue or
// RemoteOverride directly.
func (s *ControlState) Snapshot() (hue int, override bool) {
	return int(s.hue.Load()), s.override.Load()
}
