package dispatch

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dokzlo13/lampd/internal/protocol"
	"github.com/dokzlo13/lampd/internal/state"
)

type recordedCommand struct {
	cmd     protocol.Command
	applied bool
}

type fakeRecorder struct {
	mu      sync.Mutex
	entries []recordedCommand
}

func (r *fakeRecorder) RecordCommand(cmd protocol.Command, applied bool) {
	r.mu.Lock()
	r.entries = append(r.entries, recordedCommand{cmd: cmd, applied: applied})
	r.mu.Unlock()
}

func TestProcessOverrideThenHue(t *testing.T) {
	ctrl := state.New()
	d := New(ctrl, nil, 0, 0)

	d.process([]byte{0x01, 0x01, 0x00})
	d.process([]byte{0x02, 0x00, 0x2D})

	hue, override := ctrl.Snapshot()
	if !override {
		t.Error("override not enabled")
	}
	if hue != 45 {
		t.Errorf("hue = %d, want 45", hue)
	}
}

func TestProcessUnknownOpcode(t *testing.T) {
	ctrl := state.New()
	rec := &fakeRecorder{}
	d := New(ctrl, rec, 0, 0)

	d.process([]byte{0x01, 0x01, 0x00})
	d.process([]byte{0x02, 0x00, 0x2D})
	d.process([]byte{0x7F, 0x00, 0x00})

	hue, override := ctrl.Snapshot()
	if hue != 45 || !override {
		t.Errorf("unknown opcode changed state: hue=%d override=%v", hue, override)
	}

	last := rec.entries[len(rec.entries)-1]
	if last.cmd.Kind != protocol.KindUnknown || last.applied {
		t.Errorf("unknown opcode recorded as %+v", last)
	}
}

func TestProcessShortFrame(t *testing.T) {
	ctrl := state.New()
	d := New(ctrl, nil, 0, 0)

	d.process([]byte{0x02})
	d.process(nil)

	if hue, override := ctrl.Snapshot(); hue != 0 || override {
		t.Errorf("short frame changed state: hue=%d override=%v", hue, override)
	}
}

func TestHandleFrameDelivers(t *testing.T) {
	ctrl := state.New()
	d := New(ctrl, nil, 0, 0)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)

	d.HandleFrame([]byte{0x01, 0x01, 0x00})
	d.HandleFrame([]byte{0x02, 0x00, 0x2D})
	d.Close()

	hue, override := ctrl.Snapshot()
	if hue != 45 || !override {
		t.Errorf("frames not applied: hue=%d override=%v", hue, override)
	}
}

func TestHandleFrameRateLimit(t *testing.T) {
	ctrl := state.New()
	d := New(ctrl, nil, 256, 5)

	// Burst far past the limiter's bucket; the excess must be dropped
	// without blocking.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 200; i++ {
			d.HandleFrame([]byte{0x01, 0x01, 0x00})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("HandleFrame blocked under flood")
	}

	if queued := len(d.queue); queued > 10 {
		t.Errorf("%d frames queued, rate limiter admitted far too many", queued)
	}
}

// A characteristic write can land while the daemon is shutting down; late
// frames are dropped, never a panic.
func TestHandleFrameAfterClose(t *testing.T) {
	ctrl := state.New()
	d := New(ctrl, nil, 0, 0)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)
	d.Close()

	for i := 0; i < 200; i++ {
		d.HandleFrame([]byte{0x01, 0x01, 0x00})
	}

	if ctrl.RemoteOverride() {
		t.Error("frame applied after Close")
	}
}

func TestCloseDrainsQueuedFrames(t *testing.T) {
	ctrl := state.New()
	d := New(ctrl, nil, 0, 0)

	// Queue before the worker runs, then race Start against Close; the
	// frames must still be applied on the way out.
	d.HandleFrame([]byte{0x01, 0x01, 0x00})
	d.HandleFrame([]byte{0x02, 0x00, 0x2D})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)
	d.Close()

	hue, override := ctrl.Snapshot()
	if hue != 45 || !override {
		t.Errorf("queued frames lost at shutdown: hue=%d override=%v", hue, override)
	}
}

func TestHandleFrameCopiesBuffer(t *testing.T) {
	ctrl := state.New()
	d := New(ctrl, nil, 0, 0)

	buf := []byte{0x01, 0x01, 0x00}
	d.HandleFrame(buf)
	buf[0] = 0x7F // radio layer reuses its buffer

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)
	d.Close()

	if !ctrl.RemoteOverride() {
		t.Error("mutated caller buffer leaked into the dispatcher")
	}
}
