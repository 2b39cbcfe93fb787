// Package serialport implements the radio transport over a UART-attached
// BLE bridge module (HM-10 class). The module forwards characteristic
// writes as raw bytes and sends notifications for whatever we write back,
// so both directions carry bare 3-byte frames.
package serialport

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/tarm/serial"

	"github.com/dokzlo13/lampd/internal/hal"
	"github.com/dokzlo13/lampd/internal/protocol"
)

// Config holds the UART settings.
type Config struct {
	Port string
	Baud int
}

// Radio is a hal.Radio backed by a serial BLE bridge.
type Radio struct {
	cfg Config

	mu      sync.Mutex
	handler hal.FrameHandler
	port    io.ReadWriteCloser
}

// New creates a serial radio. The port is opened on Start.
func New(cfg Config) *Radio {
	return &Radio{cfg: cfg}
}

// SetHandler registers the inbound frame handler.
func (r *Radio) SetHandler(h hal.FrameHandler) {
	r.mu.Lock()
	r.handler = h
	r.mu.Unlock()
}

// Start opens the port and launches the read loop.
func (r *Radio) Start(ctx context.Context) error {
	log.Info().Str("port", r.cfg.Port).Int("baud", r.cfg.Baud).Msg("Opening serial port")

	port, err := serial.OpenPort(&serial.Config{Name: r.cfg.Port, Baud: r.cfg.Baud})
	if err != nil {
		return fmt.Errorf("failed to open serial port %s: %w", r.cfg.Port, err)
	}

	r.mu.Lock()
	r.port = port
	r.mu.Unlock()

	go r.readLoop(ctx, port)
	return nil
}

// readLoop reassembles fixed-size frames from the byte stream. The bridge
// delivers one characteristic write per burst, so a plain ReadFull per
// frame is enough.
func (r *Radio) readLoop(ctx context.Context, port io.Reader) {
	buf := make([]byte, protocol.FrameSize)
	for {
		if ctx.Err() != nil {
			return
		}

		if _, err := io.ReadFull(port, buf); err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Error().Err(err).Msg("Serial read failed, stopping radio read loop")
			return
		}

		r.mu.Lock()
		h := r.handler
		r.mu.Unlock()
		if h != nil {
			h(buf)
		}
	}
}

// SendStatus writes a status frame to the bridge. An unopened port means no
// peer can be listening.
func (r *Radio) SendStatus(frame [3]byte) error {
	r.mu.Lock()
	port := r.port
	r.mu.Unlock()

	if port == nil {
		return hal.ErrNotConnected
	}

	if _, err := port.Write(frame[:]); err != nil {
		return fmt.Errorf("serial write failed: %w", err)
	}
	return nil
}

// Close closes the port, which also terminates the read loop.
func (r *Radio) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.port == nil {
		return nil
	}
	err := r.port.Close()
	r.port = nil
	return err
}
