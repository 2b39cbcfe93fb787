package main

import (
	"flag"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/lampd/internal/app"
	"github.com/dokzlo13/lampd/internal/config"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "config.yaml", "Path to configuration file")
	flag.StringVar(&configPath, "c", "config.yaml", "Path to configuration file (shorthand)")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	setupLogging(&cfg.Log)

	log.Info().
		Str("config", configPath).
		Str("radio", cfg.Radio.Driver).
		Dur("actuation_period", cfg.Actuation.Period.Duration()).
		Dur("notify_interval", cfg.Notifier.Interval.Duration()).
		Bool("active_low", cfg.Hardware.IsActiveLow()).
		Msg("Starting lampd")

	application, err := app.New(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create application")
	}

	if err := application.Run(app.SignalContext()); err != nil {
		log.Fatal().Err(err).Msg("lampd exited with error")
	}
}

func setupLogging(cfg *config.LogConfig) {
	// ISO 8601 format with timezone
	zerolog.TimeFieldFormat = time.RFC3339

	if cfg.UseJSON {
		// JSON output for production
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	} else {
		// Text output (with optional colors)
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: "2006-01-02T15:04:05.000Z07:00",
			NoColor:    !cfg.Colors,
		})
	}

	switch cfg.GetLevel() {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
