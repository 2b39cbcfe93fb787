package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/lampd/internal/actuate"
	"github.com/dokzlo13/lampd/internal/config"
	"github.com/dokzlo13/lampd/internal/db"
	"github.com/dokzlo13/lampd/internal/dispatch"
	"github.com/dokzlo13/lampd/internal/hal"
	"github.com/dokzlo13/lampd/internal/hal/sim"
	"github.com/dokzlo13/lampd/internal/ledger"
	"github.com/dokzlo13/lampd/internal/notify"
	"github.com/dokzlo13/lampd/internal/radio/ble"
	"github.com/dokzlo13/lampd/internal/radio/serialport"
	"github.com/dokzlo13/lampd/internal/state"
)

// Services is a container for all application services.
// It manages service initialization order and dependencies.
type Services struct {
	cfg *config.Config

	// Diagnostics (optional)
	DB     *db.DB
	Ledger *ledger.Ledger

	// The single owned mutable record
	Control *state.ControlState

	// Command path
	Dispatcher *dispatch.Dispatcher
	Radio      hal.Radio

	// Output path
	Actuator *actuate.Loop
	Notifier *notify.Notifier

	Health *HealthService
}

// NewServices creates all services with proper dependency injection.
func NewServices(cfg *config.Config) (*Services, error) {
	s := &Services{cfg: cfg}

	// Diagnostics ledger is opt-in; it records protocol traffic only and
	// never feeds state back into the control core.
	var recorder dispatch.Recorder
	if cfg.Ledger.Enabled {
		database, err := db.Open(cfg.Ledger.Path)
		if err != nil {
			return nil, err
		}
		s.DB = database
		s.Ledger = ledger.New(database.DB)
		recorder = s.Ledger
	}

	// Control state boots locally controlled with hue 0, every power-up.
	s.Control = state.New()

	s.Dispatcher = dispatch.New(s.Control, recorder, cfg.Radio.QueueSize, cfg.Radio.RateLimitRPS)

	radio, err := buildRadio(cfg)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.Radio = radio
	s.Radio.SetHandler(s.Dispatcher.HandleFrame)

	// Hardware drivers for the analog side. Only the simulated driver is
	// wired up on hosted builds; embedded targets plug their own in here.
	sensors, outputs := buildAnalog()

	s.Actuator = actuate.New(
		s.Control,
		sensors,
		outputs,
		cfg.Actuation.Period.Duration(),
		cfg.Actuation.Saturation,
		cfg.Hardware.IsActiveLow(),
		cfg.Hardware.IsAmbientInverted(),
	)

	s.Notifier = notify.New(s.Control, statusSender{s}, cfg.Notifier.Interval.Duration())

	s.Health = NewHealthService(cfg, s.Control)

	return s, nil
}

// statusSender routes notifier frames through the radio and mirrors them
// into the ledger when diagnostics are on.
type statusSender struct {
	s *Services
}

func (ss statusSender) SendStatus(frame [3]byte) error {
	err := ss.s.Radio.SendStatus(frame)
	if err == nil && ss.s.Ledger != nil {
		ss.s.Ledger.RecordStatus(int(frame[1])<<8 | int(frame[2]))
	}
	return err
}

func buildRadio(cfg *config.Config) (hal.Radio, error) {
	switch cfg.Radio.Driver {
	case config.DriverBLE:
		return ble.New(ble.Config{
			LocalName:       cfg.Radio.LocalName,
			ServiceUUID:     cfg.Radio.ServiceUUID,
			CommandCharUUID: cfg.Radio.CommandCharUUID,
			StatusCharUUID:  cfg.Radio.StatusCharUUID,
		}), nil
	case config.DriverSerial:
		return serialport.New(serialport.Config{
			Port: cfg.Radio.Port,
			Baud: cfg.Radio.Baud,
		}), nil
	case config.DriverSim:
		return sim.NewRadio(), nil
	default:
		return nil, fmt.Errorf("unknown radio driver %q", cfg.Radio.Driver)
	}
}

func buildAnalog() (hal.Sensors, hal.Outputs) {
	return sim.NewSensors(), sim.NewOutputs()
}

// Start starts all services in the correct order.
// The onFatalError callback is called when a fatal error occurs.
func (s *Services) Start(ctx context.Context, onFatalError func(error)) error {
	// Bring the radio up first so no command frames are lost.
	s.Dispatcher.Start(ctx)
	if err := s.Radio.Start(ctx); err != nil {
		return err
	}

	go func() {
		if err := s.Actuator.Run(ctx); err != nil {
			onFatalError(err)
		}
	}()
	go func() {
		if err := s.Notifier.Run(ctx); err != nil {
			onFatalError(err)
		}
	}()

	if s.Ledger != nil {
		go s.runLedgerCleanup(ctx)
	}

	s.Health.Start(ctx)

	return nil
}

// runLedgerCleanup periodically applies the retention policy.
func (s *Services) runLedgerCleanup(ctx context.Context) {
	retention := s.cfg.Ledger.RetentionPeriod.Duration()
	interval := s.cfg.Ledger.RetentionInterval.Duration()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := s.Ledger.DeleteOlderThan(retention)
			if err != nil {
				log.Error().Err(err).Msg("Failed to cleanup old ledger entries")
			} else if deleted > 0 {
				log.Info().Int64("deleted", deleted).Dur("retention", retention).Msg("Cleaned up old ledger entries")
			}
		}
	}
}

// Stop gracefully stops all services.
func (s *Services) Stop() error {
	s.Close()
	return nil
}

// Close releases all resources. The radio goes down first so no live
// callback can reach a dispatcher that is already shutting down.
func (s *Services) Close() {
	if s.Radio != nil {
		if err := s.Radio.Close(); err != nil {
			log.Warn().Err(err).Msg("Radio close error")
		}
	}
	if s.Dispatcher != nil {
		s.Dispatcher.Close()
	}
	if s.DB != nil {
		s.DB.Close()
	}
}
