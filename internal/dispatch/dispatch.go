// Package dispatch routes inbound radio frames to the control state. It is
// a single-worker bounded queue: the radio callback enqueues and returns
// immediately, and commands are decoded and applied strictly one at a time.
package dispatch

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/dokzlo13/lampd/internal/protocol"
	"github.com/dokzlo13/lampd/internal/state"
)

// Default configuration
const (
	DefaultQueueSize = 32
	DefaultRateLimit = 50.0 // frames per second
)

// Recorder receives processed commands for diagnostics. May be nil.
type Recorder interface {
	RecordCommand(cmd protocol.Command, applied bool)
}

// Dispatcher owns the inbound command path.
type Dispatcher struct {
	ctrl     *state.ControlState
	recorder Recorder
	limiter  *rate.Limiter

	queue chan []byte
	wg    sync.WaitGroup

	closing   chan struct{}
	closeOnce sync.Once
}

// New creates a dispatcher with the given queue size and inbound rate limit.
// Zero values select the defaults.
func New(ctrl *state.ControlState, recorder Recorder, queueSize int, rateLimit float64) *Dispatcher {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	if rateLimit <= 0 {
		rateLimit = DefaultRateLimit
	}

	return &Dispatcher{
		ctrl:     ctrl,
		recorder: recorder,
		limiter:  rate.NewLimiter(rate.Limit(rateLimit), int(rateLimit)),
		queue:    make(chan []byte, queueSize),
		closing:  make(chan struct{}),
	}
}

// Start launches the worker. Frames queued after ctx is cancelled are
// dropped.
func (d *Dispatcher) Start(ctx context.Context) {
	d.wg.Add(1)
	go d.worker(ctx)
}

// HandleFrame is the radio inbound callback. It never blocks: frames beyond
// the queue capacity or the rate limit are dropped with a warning. Safe to
// call at any point around Close; late frames are dropped, never a panic.
func (d *Dispatcher) HandleFrame(frame []byte) {
	select {
	case <-d.closing:
		log.Warn().Msg("Dispatcher closing, dropping frame")
		return
	default:
	}

	if !d.limiter.Allow() {
		log.Warn().Int("len", len(frame)).Msg("Command rate limit exceeded, dropping frame")
		return
	}

	// Copy: the radio layer may reuse its buffer after the callback returns.
	buf := make([]byte, len(frame))
	copy(buf, frame)

	// The queue channel is never closed, so this send cannot panic even
	// when it races Close.
	select {
	case d.queue <- buf:
	default:
		log.Warn().Msg("Command queue full, dropping frame")
	}
}

// Close stops accepting frames, lets the worker drain what is already
// queued, and waits for it to finish.
func (d *Dispatcher) Close() {
	d.closeOnce.Do(func() {
		close(d.closing)
	})
	d.wg.Wait()
}

func (d *Dispatcher) worker(ctx context.Context) {
	defer d.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-d.closing:
			d.drain()
			return
		case frame := <-d.queue:
			d.process(frame)
		}
	}
}

// drain processes frames that were queued before shutdown began.
func (d *Dispatcher) drain() {
	for {
		select {
		case frame := <-d.queue:
			d.process(frame)
		default:
			return
		}
	}
}

func (d *Dispatcher) process(frame []byte) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Command handler panicked")
		}
	}()

	cmd, err := protocol.DecodeCommand(frame)
	if err != nil {
		// Short frame from a misbehaving peer. Reported, never fatal.
		log.Warn().Err(err).Int("len", len(frame)).Msg("Rejecting malformed command frame")
		return
	}

	if cmd.Kind == protocol.KindUnknown {
		log.Warn().
			Uint8("opcode", cmd.Opcode).
			Msg("Unknown command opcode, state unchanged")
		if d.recorder != nil {
			d.recorder.RecordCommand(cmd, false)
		}
		return
	}

	applied := d.ctrl.Apply(cmd)
	log.Debug().
		Str("command", cmd.Kind.String()).
		Bool("applied", applied).
		Msg("Command processed")

	if d.recorder != nil {
		d.recorder.RecordCommand(cmd, applied)
	}
}
