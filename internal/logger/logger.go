// Package logger builds the zerolog logger used across the pipeline.
package logger

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

type Config struct {
	Level      string // debug, info, warn, error
	Format     string // json or console
	Output     string // stdout, stderr, or file path
	TimeFormat string // time format for log messages
}

// New returns a timestamped logger. The returned closer releases a log file
// and is a no-op for stdout and stderr.
func New(cfg Config) (zerolog.Logger, func() error, error) {
	noop := func() error { return nil }

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		return zerolog.Nop(), noop, fmt.Errorf("invalid log level: %w", err)
	}

	var output io.Writer
	closer := noop
	switch cfg.Output {
	case "", "stderr":
		output = os.Stderr
	case "stdout":
		output = os.Stdout
	default:
		file, err := os.OpenFile(cfg.Output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return zerolog.Nop(), noop, fmt.Errorf("could not open log file: %w", err)
		}
		output = file
		closer = file.Close
	}

	if cfg.TimeFormat == "" {
		cfg.TimeFormat = time.RFC3339
	}

	return build(output, level, cfg.Format, cfg.TimeFormat), closer, nil
}

func build(output io.Writer, level zerolog.Level, format, timeFormat string) zerolog.Logger {
	if format == "console" {
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: timeFormat,
		}
	}
	return zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Logger()
}

// Stage returns a child logger tagged with the run id and stage name.
func Stage(l zerolog.Logger, runID, stage string) zerolog.Logger {
	return l.With().Str("run_id", runID).Str("stage", stage).Logger()
}
