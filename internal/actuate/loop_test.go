package actuate

import (
	"context"
	"testing"
	"time"

	"github.com/dokzlo13/lampd/internal/color"
	"github.com/dokzlo13/lampd/internal/hal/sim"
	"github.com/dokzlo13/lampd/internal/protocol"
	"github.com/dokzlo13/lampd/internal/state"
)

func TestCycleDialControlsHue(t *testing.T) {
	ctrl := state.New()
	sensors := sim.NewSensors()
	outputs := sim.NewOutputs()
	loop := New(ctrl, sensors, outputs, time.Second, color.SaturationMax, false, true)

	sensors.SetDial(4095)      // full deflection -> hue 359
	sensors.SetAmbientLight(0) // dark room -> full brightness
	loop.Cycle()

	if hue := ctrl.Hue(); hue != 359 {
		t.Errorf("hue = %d, want 359", hue)
	}

	r, g, b := outputs.Values()
	want := color.HSBToRGB(359, color.SaturationMax, 255)
	if r != want.R || g != want.G || b != want.B {
		t.Errorf("outputs = (%d,%d,%d), want %v", r, g, b, want)
	}
}

func TestCycleAmbientLightDimsOutput(t *testing.T) {
	ctrl := state.New()
	sensors := sim.NewSensors()
	outputs := sim.NewOutputs()
	loop := New(ctrl, sensors, outputs, time.Second, color.SaturationMax, false, true)

	sensors.SetDial(0) // hue 0, red
	sensors.SetAmbientLight(4095)
	loop.Cycle()

	r, g, b := outputs.Values()
	if r != 0 || g != 0 || b != 0 {
		t.Errorf("bright room must yield dark output, got (%d,%d,%d)", r, g, b)
	}
}

func TestCycleActiveLowComplements(t *testing.T) {
	ctrl := state.New()
	sensors := sim.NewSensors()
	outputs := sim.NewOutputs()
	loop := New(ctrl, sensors, outputs, time.Second, color.SaturationMax, true, true)

	sensors.SetDial(0)
	sensors.SetAmbientLight(0) // full brightness, pure red
	loop.Cycle()

	r, g, b := outputs.Values()
	if r != 0 || g != 255 || b != 255 {
		t.Errorf("active-low outputs = (%d,%d,%d), want (0,255,255)", r, g, b)
	}
}

func TestCycleDialDiscardedUnderOverride(t *testing.T) {
	ctrl := state.New()
	sensors := sim.NewSensors()
	outputs := sim.NewOutputs()
	loop := New(ctrl, sensors, outputs, time.Second, color.SaturationMax, false, true)

	ctrl.Apply(protocol.Command{Kind: protocol.KindSetOverride, Enabled: true})
	ctrl.Apply(protocol.Command{Kind: protocol.KindSetHue, Hue: 45})

	sensors.SetDial(4095)
	sensors.SetAmbientLight(0)
	loop.Cycle()

	if hue := ctrl.Hue(); hue != 45 {
		t.Errorf("dial leaked into hue under override: %d", hue)
	}

	r, g, b := outputs.Values()
	want := color.HSBToRGB(45, color.SaturationMax, 255)
	if r != want.R || g != want.G || b != want.B {
		t.Errorf("outputs = (%d,%d,%d), want %v for remote hue 45", r, g, b, want)
	}
}

func TestRunCycles(t *testing.T) {
	ctrl := state.New()
	sensors := sim.NewSensors()
	outputs := sim.NewOutputs()
	loop := New(ctrl, sensors, outputs, 5*time.Millisecond, color.SaturationMax, false, true)

	sensors.SetDial(2048)
	sensors.SetAmbientLight(0)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if err := loop.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if hue := ctrl.Hue(); hue != color.SensorToHue(2048) {
		t.Errorf("hue = %d after run, want %d", hue, color.SensorToHue(2048))
	}
}
