package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	platformgrpc "github.com/louisbranch/valuestore/internal/platform/grpc"
	"github.com/louisbranch/valuestore/internal/platform/logging"
	"github.com/louisbranch/valuestore/internal/platform/timeouts"
	"github.com/louisbranch/valuestore/internal/services/valuestore/cache"
	"github.com/louisbranch/valuestore/internal/services/valuestore/domain"
	"github.com/louisbranch/valuestore/internal/services/valuestore/filemgmt"
	"github.com/louisbranch/valuestore/internal/services/valuestore/ingest"
	vssqlite "github.com/louisbranch/valuestore/internal/services/valuestore/storage/sqlite"
	"github.com/louisbranch/valuestore/internal/services/valuestore/zeebe"
)

// HealthService is the grpc.health.v1 service name reported by the worker.
const HealthService = "valuestore.worker"

const (
	defaultWorkerPort = 8089
	defaultHTTPPort   = 8080
	defaultWorkerDB   = "data/valuestore.db"
	defaultJobType    = "valuestore"
)

// RuntimeConfig controls worker startup, dependencies, and loop behavior.
type RuntimeConfig struct {
	Port int

	FileMgmtAddr       string
	FileMgmtMethod     string
	FileMgmtWaitHealth bool
	Identity           filemgmt.Identity

	CacheTTL        time.Duration
	CacheMaxEntries int
	FetchTimeout    time.Duration
	DialTimeout     time.Duration

	RunZeebeLoop  bool
	ZeebeAddr     string
	JobType       string
	MaxJobsActive int
	MaxRetries    int
	RetryBackoff  time.Duration

	RunHTTPServer bool
	HTTPPort      int

	DBPath string
}

func (cfg RuntimeConfig) normalized() RuntimeConfig {
	if cfg.Port <= 0 {
		cfg.Port = defaultWorkerPort
	}
	if cfg.HTTPPort <= 0 {
		cfg.HTTPPort = defaultHTTPPort
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		cfg.DBPath = defaultWorkerDB
	}
	if strings.TrimSpace(cfg.JobType) == "" {
		cfg.JobType = defaultJobType
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = timeouts.GRPCDial
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = timeouts.FileFetch
	}
	return cfg
}

func (cfg RuntimeConfig) validate() error {
	if strings.TrimSpace(cfg.FileMgmtAddr) == "" {
		return fmt.Errorf("file management address is required")
	}
	if strings.TrimSpace(cfg.Identity.SiteID) == "" {
		return fmt.Errorf("site id is required")
	}
	if strings.TrimSpace(cfg.Identity.DriveID) == "" {
		return fmt.Errorf("drive id is required")
	}
	if cfg.RunZeebeLoop && strings.TrimSpace(cfg.ZeebeAddr) == "" {
		return fmt.Errorf("zeebe address is required when the zeebe loop runs")
	}
	return nil
}

// Services is the wired resolution pipeline.
type Services struct {
	Resolver *Resolver
	Worker   *Worker
	Jobs     *JobHandler
}

// NewServices wires the resolution pipeline around a file reader and an
// attempt recorder.
func NewServices(cfg RuntimeConfig, reader filemgmt.Reader, recorder AttemptRecorder, logger zerolog.Logger) (*Services, error) {
	cfg = cfg.normalized()
	tables, err := cache.New(cache.Options{TTL: cfg.CacheTTL, MaxEntries: cfg.CacheMaxEntries})
	if err != nil {
		return nil, fmt.Errorf("create cache: %w", err)
	}
	fetcher := filemgmt.NewFetcher(reader, filemgmt.Config{
		Identity: cfg.Identity,
		Timeout:  cfg.FetchTimeout,
		Logger:   logger.With().Str("component", "fetcher").Logger(),
	})
	ingestor := ingest.New(logger.With().Str("component", "ingest").Logger())
	resolver := NewResolver(tables, fetcher, ingestor, logger.With().Str("component", "resolver").Logger())
	worker := NewWorker(resolver, logger)
	policy := domain.RetryPolicy{MaxRetries: cfg.MaxRetries, Backoff: cfg.RetryBackoff}
	return &Services{
		Resolver: resolver,
		Worker:   worker,
		Jobs:     NewJobHandler(worker, policy, recorder, logger.With().Str("component", "jobs").Logger()),
	}, nil
}

// Run starts worker dependencies and blocks until ctx ends or a front end
// fails.
func Run(ctx context.Context, cfg RuntimeConfig, logger zerolog.Logger) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg = cfg.normalized()
	if err := cfg.validate(); err != nil {
		return err
	}

	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create worker storage dir: %w", err)
		}
	}
	store, err := vssqlite.Open(ctx, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open worker sqlite store: %w", err)
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			logger.Error().Err(closeErr).Msg("close worker sqlite store")
		}
	}()

	conn, err := platformgrpc.Dial(ctx, platformgrpc.DialConfig{
		Addr:          cfg.FileMgmtAddr,
		Timeout:       cfg.DialTimeout,
		WaitForHealth: cfg.FileMgmtWaitHealth,
		Logf:          logging.Logf(logger),
	})
	if err != nil {
		return fmt.Errorf("dial file management service: %w", err)
	}
	defer func() {
		if closeErr := conn.Close(); closeErr != nil {
			logger.Error().Err(closeErr).Msg("close file management connection")
		}
	}()

	client, err := filemgmt.NewClient(conn, cfg.FileMgmtMethod)
	if err != nil {
		return err
	}
	services, err := NewServices(cfg, client, store, logger)
	if err != nil {
		return err
	}

	health, err := platformgrpc.StartHealthServer(fmt.Sprintf(":%d", cfg.Port), HealthService)
	if err != nil {
		return fmt.Errorf("start health server: %w", err)
	}
	defer health.Stop()
	logger.Info().Str("addr", health.Addr().String()).Msg("worker health server listening")

	group, groupCtx := errgroup.WithContext(ctx)
	if cfg.RunHTTPServer {
		group.Go(func() error {
			return serveHTTP(groupCtx, fmt.Sprintf(":%d", cfg.HTTPPort), NewHTTPHandler(services.Worker, store, logger), logger)
		})
	}
	if cfg.RunZeebeLoop {
		group.Go(func() error {
			return zeebe.Run(groupCtx, zeebe.Config{
				GatewayAddr:   cfg.ZeebeAddr,
				JobType:       cfg.JobType,
				MaxJobsActive: cfg.MaxJobsActive,
			}, services.Jobs, logger.With().Str("component", "zeebe").Logger())
		})
	}
	group.Go(func() error {
		<-groupCtx.Done()
		return nil
	})

	err = group.Wait()
	health.SetServing(HealthService, false)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func serveHTTP(ctx context.Context, addr string, handler http.Handler, logger zerolog.Logger) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on http %s: %w", addr, err)
	}
	server := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: timeouts.ReadHeader,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Serve(listener)
	}()
	logger.Info().Str("addr", listener.Addr().String()).Msg("http server listening")

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeouts.Shutdown)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http: %w", err)
	}
	return nil
}
