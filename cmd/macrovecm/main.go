package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"macrovecm/internal/apperr"
	"macrovecm/internal/config"
	"macrovecm/internal/logger"
	"macrovecm/internal/pipeline"
)

var (
	configPath = flag.String("config", "configs/config.yaml", "Path to configuration file")
	envPath    = flag.String("env", ".env", "Path to a .env file with provider credentials")
)

func main() {
	flag.Parse()
	os.Exit(run())
}

func run() int {
	boot := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	// .env is optional; the process environment still applies
	if err := godotenv.Load(*envPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		boot.Error().Err(err).Str("path", *envPath).Msg("failed to load env file")
		return 1
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		boot.Error().Err(err).Str("kind", string(apperr.KindConfig)).Msg("failed to load config")
		return 1
	}
	if err := cfg.Validate(); err != nil {
		boot.Error().Err(err).Str("kind", string(apperr.KindConfig)).Msg("invalid configuration")
		return 1
	}

	log, closeLog, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		boot.Error().Err(err).Msg("failed to set up logging")
		return 1
	}
	defer func() {
		if err := closeLog(); err != nil {
			boot.Error().Err(err).Msg("failed to close log output")
		}
	}()
	log.Info().Str("config", *configPath).Msg("configuration loaded")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p := pipeline.New(cfg, log)
	if _, err := p.Run(ctx); err != nil {
		ev := log.Error().Err(err).Str("run_id", p.RunID())
		var se *apperr.StageError
		if errors.As(err, &se) {
			ev = ev.Str("stage", se.Stage).Str("kind", string(se.Kind))
		}
		ev.Msg("run failed")
		return 1
	}
	return 0
}
