// Package valuestore parses worker command flags and launches the worker
// runtime.
package valuestore

import (
	"context"
	"flag"
	"io"
	"os"
	"time"

	entrypoint "github.com/louisbranch/valuestore/internal/platform/cmd"
	"github.com/louisbranch/valuestore/internal/platform/discovery"
	"github.com/louisbranch/valuestore/internal/platform/logging"
	"github.com/louisbranch/valuestore/internal/platform/otel"
	vsapp "github.com/louisbranch/valuestore/internal/services/valuestore/app"
	"github.com/louisbranch/valuestore/internal/services/valuestore/filemgmt"
)

// Config holds worker command configuration. Every variable carries the
// VALUESTORE_ prefix.
type Config struct {
	Port int `env:"PORT" envDefault:"8089"`

	FileMgmtAddr       string `env:"FILE_MGMT_ADDR"`
	FileMgmtMethod     string `env:"FILE_MGMT_METHOD" envDefault:"/file_mgmt.FileMgmt/ReadFile"`
	FileMgmtWaitHealth bool   `env:"FILE_MGMT_WAIT_HEALTH" envDefault:"false"`
	SiteID             string `env:"SITE_ID" envDefault:"ff53cbb5-03a7-43d8-80fe-572d2b9f5c48"`
	DriveID            string `env:"DRIVE_ID" envDefault:"b!tctT_6cD2EOA_lctK59cSJ2NRP6b7jJBqUYTEIU6Aw0oshK5OhyKQZb_94Z2y9cP"`
	FolderPath         string `env:"FOLDER_PATH" envDefault:"Värdeförråd"`

	CacheTTL        time.Duration `env:"CACHE_TTL" envDefault:"60s"`
	CacheMaxEntries int           `env:"CACHE_MAX_ENTRIES" envDefault:"0"`
	FetchTimeout    time.Duration `env:"FETCH_TIMEOUT" envDefault:"30s"`
	DialTimeout     time.Duration `env:"DIAL_TIMEOUT" envDefault:"2s"`

	RunZeebeLoop  bool          `env:"RUN_ZEEBE_LOOP" envDefault:"true"`
	ZeebeAddr     string        `env:"ZEEBE_ADDR"`
	JobType       string        `env:"JOB_TYPE" envDefault:"valuestore"`
	MaxJobsActive int           `env:"MAX_JOBS_ACTIVE" envDefault:"32"`
	MaxRetries    int           `env:"MAX_RETRIES" envDefault:"3"`
	RetryBackoff  time.Duration `env:"RETRY_BACKOFF" envDefault:"5s"`

	RunHTTPServer bool `env:"RUN_HTTP_SERVER" envDefault:"false"`
	HTTPPort      int  `env:"HTTP_PORT" envDefault:"8080"`

	DBPath string `env:"DB_PATH" envDefault:"data/valuestore.db"`

	Logging   logging.Options
	Telemetry otel.Options
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	cfg.FileMgmtAddr = discovery.OrDefaultGRPCAddr(cfg.FileMgmtAddr, discovery.ServiceFileMgmt)
	cfg.ZeebeAddr = discovery.OrDefaultGRPCAddr(cfg.ZeebeAddr, discovery.ServiceZeebe)
	fs.IntVar(&cfg.Port, "port", cfg.Port, "The worker health gRPC server port")
	fs.StringVar(&cfg.FileMgmtAddr, "file-mgmt-addr", cfg.FileMgmtAddr, "The file management gRPC server address")
	fs.StringVar(&cfg.FileMgmtMethod, "file-mgmt-method", cfg.FileMgmtMethod, "The full gRPC method name of ReadFile")
	fs.BoolVar(&cfg.FileMgmtWaitHealth, "file-mgmt-wait-health", cfg.FileMgmtWaitHealth, "Wait for the file management health check at startup")
	fs.StringVar(&cfg.SiteID, "site-id", cfg.SiteID, "Document site holding the value stores")
	fs.StringVar(&cfg.DriveID, "drive-id", cfg.DriveID, "Document drive holding the value stores")
	fs.StringVar(&cfg.FolderPath, "folder-path", cfg.FolderPath, "Folder holding the value store workbooks")
	fs.DurationVar(&cfg.CacheTTL, "cache-ttl", cfg.CacheTTL, "How long a fetched value store is served from cache")
	fs.IntVar(&cfg.CacheMaxEntries, "cache-max-entries", cfg.CacheMaxEntries, "Maximum cached value stores, 0 for unbounded")
	fs.DurationVar(&cfg.FetchTimeout, "fetch-timeout", cfg.FetchTimeout, "Deadline for one file fetch")
	fs.DurationVar(&cfg.DialTimeout, "dial-timeout", cfg.DialTimeout, "gRPC dependency dial timeout")
	fs.BoolVar(&cfg.RunZeebeLoop, "run-zeebe-loop", cfg.RunZeebeLoop, "Subscribe to workflow jobs")
	fs.StringVar(&cfg.ZeebeAddr, "zeebe-addr", cfg.ZeebeAddr, "The Zeebe gateway address")
	fs.StringVar(&cfg.JobType, "job-type", cfg.JobType, "Workflow job type to subscribe to")
	fs.IntVar(&cfg.MaxJobsActive, "max-jobs-active", cfg.MaxJobsActive, "Maximum concurrently activated jobs")
	fs.IntVar(&cfg.MaxRetries, "max-retries", cfg.MaxRetries, "Maximum retries handed back for transient failures")
	fs.DurationVar(&cfg.RetryBackoff, "retry-backoff", cfg.RetryBackoff, "Delay before a failed job is retried")
	fs.BoolVar(&cfg.RunHTTPServer, "run-http-server", cfg.RunHTTPServer, "Serve the HTTP front end")
	fs.IntVar(&cfg.HTTPPort, "http-port", cfg.HTTPPort, "The HTTP front end port")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "The worker SQLite database path")
	fs.BoolVar(&cfg.Logging.Debug, "debug", cfg.Logging.Debug, "Enable debug logging")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the worker runtime, logging to stderr.
func Run(ctx context.Context, cfg Config) error {
	return run(ctx, cfg, os.Stderr)
}

func run(ctx context.Context, cfg Config, logOut io.Writer) error {
	logger := logging.New(logOut, entrypoint.ServiceValueStore, cfg.Logging)
	options := entrypoint.RunOptions{
		Telemetry: cfg.Telemetry,
		Logger:    &logger,
	}
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceValueStore, options, func(ctx context.Context) error {
		return vsapp.Run(ctx, runtimeConfig(cfg), logger)
	})
}

func runtimeConfig(cfg Config) vsapp.RuntimeConfig {
	return vsapp.RuntimeConfig{
		Port:               cfg.Port,
		FileMgmtAddr:       cfg.FileMgmtAddr,
		FileMgmtMethod:     cfg.FileMgmtMethod,
		FileMgmtWaitHealth: cfg.FileMgmtWaitHealth,
		Identity: filemgmt.Identity{
			SiteID:     cfg.SiteID,
			DriveID:    cfg.DriveID,
			FolderPath: cfg.FolderPath,
		},
		CacheTTL:        cfg.CacheTTL,
		CacheMaxEntries: cfg.CacheMaxEntries,
		FetchTimeout:    cfg.FetchTimeout,
		DialTimeout:     cfg.DialTimeout,
		RunZeebeLoop:    cfg.RunZeebeLoop,
		ZeebeAddr:       cfg.ZeebeAddr,
		JobType:         cfg.JobType,
		MaxJobsActive:   cfg.MaxJobsActive,
		MaxRetries:      cfg.MaxRetries,
		RetryBackoff:    cfg.RetryBackoff,
		RunHTTPServer:   cfg.RunHTTPServer,
		HTTPPort:        cfg.HTTPPort,
		DBPath:          cfg.DBPath,
	}
}
