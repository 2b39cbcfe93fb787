// Package actuate runs the steady-state output cycle: sensors in, control
// state resolved, HSB converted, channels driven.
package actuate

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/lampd/internal/color"
	"github.com/dokzlo13/lampd/internal/hal"
	"github.com/dokzlo13/lampd/internal/state"
)

// DefaultPeriod is the cycle period when the config does not set one.
// Faster than the notifier cadence.
const DefaultPeriod = 50 * time.Millisecond

// Loop drives the output stage at a fixed period.
type Loop struct {
	ctrl    *state.ControlState
	sensors hal.Sensors
	outputs hal.Outputs

	period     time.Duration
	saturation int

	// activeLow mirrors the common-anode output stage: channel values are
	// complemented before they reach the hardware. Fixed at construction,
	// never flipped at runtime.
	activeLow bool

	// ambientInverted makes brighter surroundings dim the lamp.
	ambientInverted bool
}

// New creates an actuation loop. A zero period selects DefaultPeriod; the
// saturation is clamped to [0,255].
func New(ctrl *state.ControlState, sensors hal.Sensors, outputs hal.Outputs, period time.Duration, saturation int, activeLow, ambientInverted bool) *Loop {
	if period <= 0 {
		period = DefaultPeriod
	}
	return &Loop{
		ctrl:            ctrl,
		sensors:         sensors,
		outputs:         outputs,
		period:          period,
		saturation:      color.Clamp(saturation, 0, color.SaturationMax),
		activeLow:       activeLow,
		ambientInverted: ambientInverted,
	}
}

// Run cycles until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	log.Info().
		Dur("period", l.period).
		Int("saturation", l.saturation).
		Bool("active_low", l.activeLow).
		Msg("Actuation loop started")

	ticker := time.NewTicker(l.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Actuation loop stopping")
			return nil
		case <-ticker.C:
			l.Cycle()
		}
	}
}

// Cycle performs one read-resolve-convert-drive pass. Sensor failures skip
// the pass; the loop itself never stops.
func (l *Loop) Cycle() {
	ambient, err := l.sensors.ReadAmbientLight()
	if err != nil {
		log.Warn().Err(err).Msg("Ambient light read failed, skipping cycle")
		return
	}
	brightness := color.SensorToBrightness(ambient, l.ambientInverted)

	dial, err := l.sensors.ReadDial()
	if err != nil {
		log.Warn().Err(err).Msg("Dial read failed, skipping cycle")
		return
	}
	// The dial value is always computed; the state layer discards it while
	// the remote peer holds override.
	l.ctrl.SetHueFromDial(color.SensorToHue(dial))

	rgb := color.HSBToRGB(l.ctrl.Hue(), l.saturation, brightness)
	l.drive(rgb)
}

func (l *Loop) drive(rgb color.RGB) {
	channels := []struct {
		ch    hal.Channel
		value uint8
	}{
		{hal.ChannelRed, rgb.R},
		{hal.ChannelGreen, rgb.G},
		{hal.ChannelBlue, rgb.B},
	}

	for _, c := range channels {
		value := c.value
		if l.activeLow {
			value = 255 - value
		}
		if err := l.outputs.WriteChannel(c.ch, value); err != nil {
			log.Warn().Err(err).Stringer("channel", c.ch).Msg("Channel write failed")
		}
	}
}
