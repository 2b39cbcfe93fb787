// Package notify implements the periodic status broadcast: a self-rearming
// timer that pushes the current hue to the connected peer at a fixed
// cadence. Broadcast is last-value-wins; a peer that misses a tick sees the
// current value on the next one.
package notify

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/lampd/internal/hal"
	"github.com/dokzlo13/lampd/internal/protocol"
	"github.com/dokzlo13/lampd/internal/state"
)

// DefaultInterval is the broadcast cadence when the config does not set one.
// Deliberately slower than the actuation period.
const DefaultInterval = time.Second

// StatusSender is the outbound half of the radio.
type StatusSender interface {
	SendStatus(frame [3]byte) error
}

// Notifier broadcasts hue snapshots on a fixed interval.
type Notifier struct {
	ctrl     *state.ControlState
	sender   StatusSender
	interval time.Duration
}

// New creates a notifier. A zero interval selects DefaultInterval.
func New(ctrl *state.ControlState, sender StatusSender, interval time.Duration) *Notifier {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Notifier{
		ctrl:     ctrl,
		sender:   sender,
		interval: interval,
	}
}

// Run fires ticks until ctx is cancelled. Each firing re-arms the timer for
// a full interval after the previous one, independent of any state changes
// in between.
func (n *Notifier) Run(ctx context.Context) error {
	log.Info().Dur("interval", n.interval).Msg("Status notifier started")

	timer := time.NewTimer(n.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Status notifier stopping")
			return nil
		case <-timer.C:
			n.Tick()
			timer.Reset(n.interval)
		}
	}
}

// Tick emits one status frame with the current hue snapshot. A missing peer
// is a normal no-op, not an error.
func (n *Notifier) Tick() {
	hue := n.ctrl.Hue()
	frame := protocol.EncodeStatus(uint16(hue))

	if err := n.sender.SendStatus(frame); err != nil {
		if errors.Is(err, hal.ErrNotConnected) {
			log.Debug().Int("hue", hue).Msg("No peer connected, skipping status")
			return
		}
		log.Warn().Err(err).Int("hue", hue).Msg("Failed to send status frame")
		return
	}

	log.Debug().Int("hue", hue).Msg("Status frame sent")
}
