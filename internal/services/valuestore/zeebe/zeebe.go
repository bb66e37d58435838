// Package zeebe feeds workflow jobs from a Zeebe gateway to a job handler.
package zeebe

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"

	"github.com/louisbranch/valuestore/internal/platform/timeouts"
	"github.com/louisbranch/valuestore/internal/services/valuestore/domain"
)

const (
	defaultMaxJobsActive  = 32
	defaultJobTimeout     = 5 * time.Minute
	defaultRequestTimeout = 20 * time.Second
	defaultWorkerName     = "valuestore"
)

// Handler processes one activated job and reports its outcome through the
// completer.
type Handler interface {
	HandleJob(ctx context.Context, job domain.Job, completer domain.JobCompleter) error
}

// Config selects the gateway and job subscription.
type Config struct {
	GatewayAddr   string
	JobType       string
	WorkerName    string
	MaxJobsActive int
	// JobTimeout is how long the gateway keeps an activated job locked to
	// this worker.
	JobTimeout time.Duration
	// RequestTimeout bounds each activation long poll.
	RequestTimeout time.Duration
}

func (cfg Config) normalized() Config {
	cfg.GatewayAddr = strings.TrimSpace(cfg.GatewayAddr)
	cfg.JobType = strings.TrimSpace(cfg.JobType)
	if strings.TrimSpace(cfg.WorkerName) == "" {
		cfg.WorkerName = defaultWorkerName
	}
	if cfg.MaxJobsActive <= 0 {
		cfg.MaxJobsActive = defaultMaxJobsActive
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = defaultJobTimeout
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	return cfg
}

// Run subscribes to cfg.JobType and dispatches jobs to handler until ctx
// ends. In-flight jobs are allowed to finish before Run returns.
func Run(ctx context.Context, cfg Config, handler Handler, logger zerolog.Logger) error {
	if handler == nil {
		return fmt.Errorf("job handler is required")
	}
	cfg = cfg.normalized()
	if cfg.GatewayAddr == "" {
		return fmt.Errorf("zeebe gateway address is required")
	}
	if cfg.JobType == "" {
		return fmt.Errorf("job type is required")
	}

	client, err := zbc.NewClient(&zbc.ClientConfig{
		GatewayAddress:         cfg.GatewayAddr,
		UsePlaintextConnection: true,
		DialOpts:               []grpc.DialOption{grpc.WithStatsHandler(otelgrpc.NewClientHandler())},
	})
	if err != nil {
		return fmt.Errorf("create zeebe client: %w", err)
	}
	defer func() {
		if closeErr := client.Close(); closeErr != nil {
			logger.Error().Err(closeErr).Msg("close zeebe client")
		}
	}()

	jobCtx := context.WithoutCancel(ctx)
	jobWorker := client.NewJobWorker().
		JobType(cfg.JobType).
		Handler(func(jobClient worker.JobClient, activated entities.Job) {
			dispatch(jobCtx, handler, jobCompleter{client: jobClient}, activated, logger)
		}).
		Name(cfg.WorkerName).
		MaxJobsActive(cfg.MaxJobsActive).
		Timeout(cfg.JobTimeout).
		RequestTimeout(cfg.RequestTimeout).
		Open()
	logger.Info().
		Str("gateway", cfg.GatewayAddr).
		Str("job_type", cfg.JobType).
		Int("max_jobs_active", cfg.MaxJobsActive).
		Msg("zeebe job worker started")

	<-ctx.Done()
	jobWorker.Close()
	jobWorker.AwaitClose()
	logger.Info().Msg("zeebe job worker stopped")
	return nil
}

func dispatch(ctx context.Context, handler Handler, completer domain.JobCompleter, activated entities.Job, logger zerolog.Logger) {
	job, err := toJob(activated)
	if err != nil {
		logger.Error().Int64("job_key", activated.GetKey()).Err(err).Msg("decode job variables")
		// Undecodable variables cannot improve on retry.
		if failErr := completer.Fail(ctx, activated.GetKey(), domain.Failure{Message: err.Error()}); failErr != nil {
			logger.Error().Int64("job_key", activated.GetKey()).Err(failErr).Msg("fail job")
		}
		return
	}
	if err := handler.HandleJob(ctx, job, completer); err != nil {
		logger.Error().Int64("job_key", job.Key).Err(err).Msg("report job outcome")
	}
}

func toJob(activated entities.Job) (domain.Job, error) {
	if activated.ActivatedJob == nil {
		return domain.Job{}, fmt.Errorf("activated job is empty")
	}
	vars := map[string]any{}
	if strings.TrimSpace(activated.GetVariables()) != "" {
		decoded, err := activated.GetVariablesAsMap()
		if err != nil {
			return domain.Job{}, fmt.Errorf("decode variables of job %d: %w", activated.GetKey(), err)
		}
		if decoded != nil {
			vars = decoded
		}
	}
	return domain.Job{
		Key:       activated.GetKey(),
		Type:      activated.GetType(),
		Retries:   activated.GetRetries(),
		Variables: vars,
	}, nil
}

type jobCompleter struct {
	client worker.JobClient
}

func (c jobCompleter) Complete(ctx context.Context, key int64, variables map[string]any) error {
	ctx, cancel := context.WithTimeout(ctx, timeouts.JobComplete)
	defer cancel()

	cmd, err := c.client.NewCompleteJobCommand().JobKey(key).VariablesFromMap(variables)
	if err != nil {
		return fmt.Errorf("encode result variables: %w", err)
	}
	if _, err := cmd.Send(ctx); err != nil {
		return err
	}
	return nil
}

func (c jobCompleter) Fail(ctx context.Context, key int64, failure domain.Failure) error {
	ctx, cancel := context.WithTimeout(ctx, timeouts.JobComplete)
	defer cancel()

	cmd := c.client.NewFailJobCommand().
		JobKey(key).
		Retries(int32(failure.Retries)).
		ErrorMessage(failure.Message)
	if failure.Backoff > 0 {
		cmd = cmd.RetryBackoff(failure.Backoff)
	}
	if _, err := cmd.Send(ctx); err != nil {
		return err
	}
	return nil
}
