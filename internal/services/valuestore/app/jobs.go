package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/louisbranch/valuestore/internal/services/valuestore/domain"
	"github.com/louisbranch/valuestore/internal/services/valuestore/storage"
)

// AttemptRecorder persists handled job attempts.
type AttemptRecorder interface {
	RecordAttempt(ctx context.Context, attempt storage.AttemptRecord) error
}

// JobHandler runs workflow jobs through a Worker and reports the outcome.
type JobHandler struct {
	worker   *Worker
	policy   domain.RetryPolicy
	recorder AttemptRecorder
	logger   zerolog.Logger
	clock    func() time.Time
}

// NewJobHandler wires a job handler. A nil recorder skips attempt
// bookkeeping.
func NewJobHandler(worker *Worker, policy domain.RetryPolicy, recorder AttemptRecorder, logger zerolog.Logger) *JobHandler {
	return &JobHandler{
		worker:   worker,
		policy:   policy,
		recorder: recorder,
		logger:   logger,
		clock:    time.Now,
	}
}

// HandleJob resolves the job's value store and completes or fails it.
// The returned error reports only a failure to talk to the engine.
func (h *JobHandler) HandleJob(ctx context.Context, job domain.Job, completer domain.JobCompleter) error {
	if completer == nil {
		return fmt.Errorf("job completer is required")
	}
	mode := domain.ModeFromVariables(job.Variables)
	logger := h.logger.With().Int64("job_key", job.Key).Str("mode", mode.String()).Logger()
	name, _ := domain.LogicalName(job.Variables)

	result, err := h.worker.Handle(ctx, job.Variables, mode)
	if err == nil {
		if completeErr := completer.Complete(ctx, job.Key, result); completeErr != nil {
			return fmt.Errorf("complete job %d: %w", job.Key, completeErr)
		}
		logger.Debug().Str("value_store", name).Msg("job completed")
		h.record(ctx, logger, job, name, storage.OutcomeCompleted, 0, errorText(result))
		return nil
	}

	failure := h.policy.Failure(err, int(job.Retries))
	if failErr := completer.Fail(ctx, job.Key, failure); failErr != nil {
		return fmt.Errorf("fail job %d: %w", job.Key, failErr)
	}
	outcome := storage.OutcomeFailed
	if failure.Retries > 0 {
		outcome = storage.OutcomeRetry
	}
	logger.Warn().
		Str("value_store", name).
		Int("retries", failure.Retries).
		Err(err).
		Msg("job failed")
	h.record(ctx, logger, job, name, outcome, failure.Retries, failure.Message)
	return nil
}

func (h *JobHandler) record(ctx context.Context, logger zerolog.Logger, job domain.Job, name, outcome string, retries int, lastError string) {
	if h.recorder == nil {
		return
	}
	err := h.recorder.RecordAttempt(ctx, storage.AttemptRecord{
		JobKey:     job.Key,
		JobType:    strings.TrimSpace(job.Type),
		ValueStore: domain.NormalizeFileName(name),
		Outcome:    outcome,
		Retries:    int32(retries),
		LastError:  lastError,
		CreatedAt:  h.clock().UTC(),
	})
	if err != nil {
		logger.Error().Err(err).Msg("record job attempt")
	}
}

// errorText extracts an in-band error message from a result.
func errorText(result map[string]any) string {
	message, _ := result[domain.VarError].(string)
	return message
}
