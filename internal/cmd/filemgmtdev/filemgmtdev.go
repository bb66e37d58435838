// Package filemgmtdev runs a local stand-in for the file-management service
// that serves value store workbooks from a directory.
package filemgmtdev

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"os"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"

	entrypoint "github.com/louisbranch/valuestore/internal/platform/cmd"
	"github.com/louisbranch/valuestore/internal/platform/discovery"
	"github.com/louisbranch/valuestore/internal/platform/logging"
	"github.com/louisbranch/valuestore/internal/platform/otel"
	"github.com/louisbranch/valuestore/internal/services/valuestore/filemgmt"
)

const serviceName = "valuestore-filemgmt-dev"

// Config holds the dev file server configuration, read from
// VALUESTORE_-prefixed variables and flags.
type Config struct {
	Port   int    `env:"FILE_DEV_PORT"`
	Dir    string `env:"FILE_DEV_DIR" envDefault:"testdata"`
	Method string `env:"FILE_MGMT_METHOD" envDefault:"/file_mgmt.FileMgmt/ReadFile"`

	Logging   logging.Options
	Telemetry otel.Options
}

// ParseConfig parses environment and flags into a Config. The port
// defaults to the one the worker dials for file management.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	if cfg.Port == 0 {
		cfg.Port = discovery.DefaultGRPCPort(discovery.ServiceFileMgmt)
	}
	fs.IntVar(&cfg.Port, "port", cfg.Port, "The gRPC port to serve ReadFile on")
	fs.StringVar(&cfg.Dir, "dir", cfg.Dir, "Directory holding <folder path>/<file name> workbooks")
	fs.StringVar(&cfg.Method, "method", cfg.Method, "The full gRPC method name of ReadFile")
	fs.BoolVar(&cfg.Logging.Debug, "debug", cfg.Logging.Debug, "Enable debug logging")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run serves until ctx ends.
func Run(ctx context.Context, cfg Config) error {
	logger := logging.New(os.Stderr, serviceName, cfg.Logging)
	options := entrypoint.RunOptions{Telemetry: cfg.Telemetry, Logger: &logger}
	return entrypoint.RunWithTelemetry(ctx, serviceName, options, func(ctx context.Context) error {
		lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Port))
		if err != nil {
			return fmt.Errorf("listen on port %d: %w", cfg.Port, err)
		}
		return serve(ctx, lis, cfg, logger)
	})
}

func serve(ctx context.Context, lis net.Listener, cfg Config, logger zerolog.Logger) error {
	files, err := filemgmt.NewDirServer(cfg.Dir, logger)
	if err != nil {
		_ = lis.Close()
		return err
	}
	defer files.Close()

	server := grpc.NewServer(filemgmt.ServerOption(), grpc.StatsHandler(otelgrpc.NewServerHandler()))
	if err := filemgmt.RegisterReadFileServer(server, files, cfg.Method); err != nil {
		_ = lis.Close()
		return err
	}

	served := make(chan error, 1)
	go func() { served <- server.Serve(lis) }()
	logger.Info().Str("addr", lis.Addr().String()).Str("dir", cfg.Dir).Msg("dev file server listening")

	select {
	case <-ctx.Done():
		server.GracefulStop()
		if err := <-served; err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return err
		}
		return nil
	case err := <-served:
		return fmt.Errorf("serve: %w", err)
	}
}
