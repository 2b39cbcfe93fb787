// Package ble implements the radio transport as a BLE peripheral: one GATT
// service with a writable command characteristic and a notifying status
// characteristic.
package ble

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"tinygo.org/x/bluetooth"

	"github.com/dokzlo13/lampd/internal/hal"
	"github.com/dokzlo13/lampd/internal/protocol"
)

// Config holds the GATT identity of the peripheral.
type Config struct {
	LocalName       string
	ServiceUUID     string
	CommandCharUUID string
	StatusCharUUID  string
}

// Radio is a hal.Radio backed by the host Bluetooth adapter.
type Radio struct {
	cfg     Config
	adapter *bluetooth.Adapter

	mu         sync.Mutex
	handler    hal.FrameHandler
	statusChar bluetooth.Characteristic
	connected  bool
	session    string
	started    bool
}

// New creates a BLE radio on the default host adapter.
func New(cfg Config) *Radio {
	return &Radio{
		cfg:     cfg,
		adapter: bluetooth.DefaultAdapter,
	}
}

// SetHandler registers the inbound frame handler.
func (r *Radio) SetHandler(h hal.FrameHandler) {
	r.mu.Lock()
	r.handler = h
	r.mu.Unlock()
}

// Start enables the adapter, registers the GATT service and begins
// advertising. The transport keeps running until Close.
func (r *Radio) Start(ctx context.Context) error {
	serviceUUID, err := parseUUID(r.cfg.ServiceUUID)
	if err != nil {
		return fmt.Errorf("service uuid: %w", err)
	}
	commandUUID, err := parseUUID(r.cfg.CommandCharUUID)
	if err != nil {
		return fmt.Errorf("command characteristic uuid: %w", err)
	}
	statusUUID, err := parseUUID(r.cfg.StatusCharUUID)
	if err != nil {
		return fmt.Errorf("status characteristic uuid: %w", err)
	}

	if err := r.adapter.Enable(); err != nil {
		return fmt.Errorf("failed to enable BLE adapter: %w", err)
	}

	r.adapter.SetConnectHandler(func(device bluetooth.Device, connected bool) {
		r.mu.Lock()
		r.connected = connected
		if connected {
			// Session id tags log lines across one central's connection.
			r.session = uuid.NewString()
		}
		session := r.session
		r.mu.Unlock()

		if connected {
			log.Info().Str("session", session).Msg("Peer connected")
		} else {
			log.Info().Str("session", session).Msg("Peer disconnected")
		}
	})

	err = r.adapter.AddService(&bluetooth.Service{
		UUID: serviceUUID,
		Characteristics: []bluetooth.CharacteristicConfig{
			{
				UUID:  commandUUID,
				Flags: bluetooth.CharacteristicWritePermission | bluetooth.CharacteristicWriteWithoutResponsePermission,
				WriteEvent: func(client bluetooth.Connection, offset int, value []byte) {
					if offset != 0 {
						log.Warn().Int("offset", offset).Msg("Ignoring offset characteristic write")
						return
					}
					r.mu.Lock()
					h := r.handler
					r.mu.Unlock()
					if h != nil {
						h(value)
					}
				},
			},
			{
				Handle: &r.statusChar,
				UUID:   statusUUID,
				Value:  make([]byte, protocol.FrameSize),
				Flags:  bluetooth.CharacteristicReadPermission | bluetooth.CharacteristicNotifyPermission,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to register GATT service: %w", err)
	}

	adv := r.adapter.DefaultAdvertisement()
	if err := adv.Configure(bluetooth.AdvertisementOptions{
		LocalName:    r.cfg.LocalName,
		ServiceUUIDs: []bluetooth.UUID{serviceUUID},
	}); err != nil {
		return fmt.Errorf("failed to configure advertisement: %w", err)
	}
	if err := adv.Start(); err != nil {
		return fmt.Errorf("failed to start advertising: %w", err)
	}

	r.mu.Lock()
	r.started = true
	r.mu.Unlock()

	log.Info().Str("local_name", r.cfg.LocalName).Msg("BLE radio advertising")
	return nil
}

// SendStatus pushes a status frame through the notify characteristic.
func (r *Radio) SendStatus(frame [3]byte) error {
	r.mu.Lock()
	started, connected := r.started, r.connected
	r.mu.Unlock()

	if !started || !connected {
		return hal.ErrNotConnected
	}

	if _, err := r.statusChar.Write(frame[:]); err != nil {
		return fmt.Errorf("status notify failed: %w", err)
	}
	return nil
}

// Close stops the transport.
func (r *Radio) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = false
	return nil
}

func parseUUID(s string) (bluetooth.UUID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return bluetooth.UUID{}, err
	}
	return bluetooth.NewUUID(u), nil
}
