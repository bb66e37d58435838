package app

import (
	"context"

	"github.com/rs/zerolog"

	apperrors "github.com/louisbranch/valuestore/internal/platform/errors"
	"github.com/louisbranch/valuestore/internal/services/valuestore/domain"
)

// ValueStoreResolver resolves a logical value store name.
type ValueStoreResolver interface {
	Resolve(ctx context.Context, logicalName string) (domain.ValueTable, error)
}

// Worker presents resolution results in the shape each caller mode expects.
type Worker struct {
	resolver ValueStoreResolver
	logger   zerolog.Logger
}

// NewWorker wires a worker.
func NewWorker(resolver ValueStoreResolver, logger zerolog.Logger) *Worker {
	return &Worker{resolver: resolver, logger: logger}
}

// Handle resolves the value store named in vars.
//
// A missing name always yields an error result, never an error. Otherwise
// standalone callers get failures in-band as an error result, while
// orchestrated callers get the error itself so the job can be failed with
// the right retry budget.
func (w *Worker) Handle(ctx context.Context, vars map[string]any, mode domain.Mode) (map[string]any, error) {
	name, ok := domain.LogicalName(vars)
	if !ok {
		w.logger.Warn().Str("mode", mode.String()).Msg("valueStore parameter missing")
		return domain.ErrorResult("valueStore must be given as parameter"), nil
	}

	table, err := w.resolver.Resolve(ctx, name)
	if err == nil {
		return domain.SuccessResult(table), nil
	}
	if mode == domain.ModeStandalone {
		w.logger.Info().
			Str("value_store", name).
			Str("code", string(apperrors.CodeOf(err))).
			Msg("value store failure returned to caller")
		return domain.ErrorResult(err.Error()), nil
	}
	return nil, err
}
