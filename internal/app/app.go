package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/lampd/internal/config"
)

// App wires the services together and drives them through one run of the
// daemon.
type App struct {
	cfg      *config.Config
	services *Services
}

// New creates a new App instance with all services initialized but not started.
func New(cfg *config.Config) (*App, error) {
	services, err := NewServices(cfg)
	if err != nil {
		return nil, err
	}

	return &App{
		cfg:      cfg,
		services: services,
	}, nil
}

// Run starts every service and blocks until ctx is cancelled or a service
// reports a fatal error. Resources are always released before it returns.
func (a *App) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// A fatal service error folds into the same shutdown path as a signal.
	onFatalError := func(err error) {
		log.Error().Err(err).Msg("Fatal error, initiating shutdown")
		cancel()
	}

	if err := a.services.Start(runCtx, onFatalError); err != nil {
		a.services.Close()
		return err
	}
	log.Info().Msg("lampd started")

	<-runCtx.Done()

	log.Info().Msg("Shutting down...")
	a.services.Close()
	return nil
}

// SignalContext creates a context that is cancelled when SIGINT or SIGTERM is received.
func SignalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Warn().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	return ctx
}
