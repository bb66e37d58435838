// Package cmd holds the startup helpers shared by command entrypoints.
package cmd

import (
	"context"
	"errors"
	"flag"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/louisbranch/valuestore/internal/platform/config"
	"github.com/louisbranch/valuestore/internal/platform/otel"
	"github.com/louisbranch/valuestore/internal/platform/timeouts"
)

// ServiceValueStore names the worker in logs and traces.
const ServiceValueStore = "valuestore"

// EnvPrefix is prepended to every env tag of a command Config.
const EnvPrefix = "VALUESTORE_"

// RunOptions configures RunWithTelemetry.
type RunOptions struct {
	Telemetry otel.Options
	// ShutdownTimeout bounds the trace flush after run returns. Zero uses
	// timeouts.Shutdown.
	ShutdownTimeout time.Duration
	// Logger receives telemetry shutdown failures. Nil discards them.
	Logger *zerolog.Logger
}

// ParseConfig fills cfg from VALUESTORE_-prefixed environment variables.
func ParseConfig[T any](cfg *T) error {
	if cfg == nil {
		return errors.New("parse config: nil target")
	}
	return config.ParseEnvWithPrefix(cfg, EnvPrefix)
}

// ParseArgs applies command-line flags on top of the env-derived values
// already bound to fs.
func ParseArgs(fs *flag.FlagSet, args []string) error {
	if fs == nil {
		return errors.New("parse args: nil flag set")
	}
	return fs.Parse(args)
}

// RunWithTelemetry installs the tracer provider for service, calls run and
// flushes traces once run returns. The error from run is returned as is.
func RunWithTelemetry(ctx context.Context, service string, opts RunOptions, run func(context.Context) error) error {
	service = strings.TrimSpace(service)
	switch {
	case service == "":
		return errors.New("run: service name is required")
	case run == nil:
		return errors.New("run: run function is required")
	}

	shutdown, err := otel.Setup(ctx, service, opts.Telemetry)
	if err != nil {
		return err
	}
	runErr := run(ctx)

	timeout := opts.ShutdownTimeout
	if timeout <= 0 {
		timeout = timeouts.Shutdown
	}
	flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()
	if err := shutdown(flushCtx); err != nil && opts.Logger != nil {
		opts.Logger.Warn().Err(err).Str("service", service).Msg("telemetry shutdown")
	}
	return runErr
}
