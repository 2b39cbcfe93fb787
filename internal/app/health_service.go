package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/lampd/internal/config"
	"github.com/dokzlo13/lampd/internal/state"
)

// HealthService provides HTTP health check endpoints plus a read-only
// snapshot of the control state for field debugging.
type HealthService struct {
	cfg    *config.Config
	ctrl   *state.ControlState
	server *http.Server
}

// NewHealthService creates a new HealthService.
func NewHealthService(cfg *config.Config, ctrl *state.ControlState) *HealthService {
	return &HealthService{
		cfg:  cfg,
		ctrl: ctrl,
	}
}

// Start begins the health check server if enabled.
func (s *HealthService) Start(ctx context.Context) {
	if !s.cfg.Health.Enabled {
		return
	}

	go s.run(ctx)
}

func (s *HealthService) routes() *http.ServeMux {
	mux := http.NewServeMux()

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	// Ready check endpoint
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ready"}`))
	})

	// Read-only control state snapshot. The two fields are separate atomic
	// loads, same as everywhere else.
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		hue, override := s.ctrl.Snapshot()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{
			"hue":             hue,
			"remote_override": override,
		})
	})

	return mux
}

func (s *HealthService) run(ctx context.Context) {
	addr := fmt.Sprintf("%s:%d", s.cfg.Health.Host, s.cfg.Health.Port)

	s.server = &http.Server{
		Addr:    addr,
		Handler: s.routes(),
	}

	log.Info().Str("addr", addr).Msg("Starting health check server")

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Health check server shutdown error")
		}
	}()

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error().Err(err).Msg("Health check server error")
	}
}
