package app

import (
	"context"
	"testing"
	"time"

	"github.com/dokzlo13/lampd/internal/config"
	"github.com/dokzlo13/lampd/internal/hal/sim"
)

func simConfig() *config.Config {
	return &config.Config{
		Radio: config.RadioConfig{
			Driver:       config.DriverSim,
			QueueSize:    32,
			RateLimitRPS: 1000,
		},
		Actuation: config.ActuationConfig{
			Period:     config.Duration(5 * time.Millisecond),
			Saturation: 255,
		},
		Notifier: config.NotifierConfig{
			Interval: config.Duration(20 * time.Millisecond),
		},
	}
}

// Remote takeover end to end: claim override, set hue 45, and the next
// status tick reports it back as [0x01 0x00 0x2D].
func TestRemoteTakeoverRoundTrip(t *testing.T) {
	services, err := NewServices(simConfig())
	if err != nil {
		t.Fatalf("NewServices: %v", err)
	}
	defer services.Close()

	radio, ok := services.Radio.(*sim.Radio)
	if !ok {
		t.Fatalf("expected sim radio, got %T", services.Radio)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := services.Start(ctx, func(err error) { t.Errorf("fatal: %v", err) }); err != nil {
		t.Fatalf("Start: %v", err)
	}

	radio.Inject([]byte{0x01, 0x01, 0x00})
	radio.Inject([]byte{0x02, 0x00, 0x2D})

	deadline := time.After(2 * time.Second)
	for {
		hue, override := services.Control.Snapshot()
		if hue == 45 && override {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("commands not applied: hue=%d override=%v", hue, override)
		case <-time.After(time.Millisecond):
		}
	}

	deadline = time.After(2 * time.Second)
	for {
		sent := radio.Sent()
		if len(sent) > 0 && sent[len(sent)-1] == [3]byte{0x01, 0x00, 0x2D} {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("status frame with hue 45 never sent, got %v", sent)
		case <-time.After(time.Millisecond):
		}
	}
}

// Unknown opcodes and short frames must leave the machine running and
// untouched.
func TestMalformedFramesAreHarmless(t *testing.T) {
	services, err := NewServices(simConfig())
	if err != nil {
		t.Fatalf("NewServices: %v", err)
	}
	defer services.Close()

	radio := services.Radio.(*sim.Radio)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := services.Start(ctx, func(err error) { t.Errorf("fatal: %v", err) }); err != nil {
		t.Fatalf("Start: %v", err)
	}

	radio.Inject([]byte{0x7F, 0x00, 0x00})
	radio.Inject([]byte{0x02})
	radio.Inject(nil)

	time.Sleep(50 * time.Millisecond)

	if hue, override := services.Control.Snapshot(); hue != 0 || override {
		t.Errorf("malformed frames changed state: hue=%d override=%v", hue, override)
	}
}

// Run must start the daemon, block until the context is cancelled, and
// release everything on the way out.
func TestAppRunStopsOnCancel(t *testing.T) {
	application, err := New(simConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- application.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
}
