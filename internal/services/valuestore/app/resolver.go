package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	apperrors "github.com/louisbranch/valuestore/internal/platform/errors"
	"github.com/louisbranch/valuestore/internal/services/valuestore/domain"
)

// Fetcher reads workbook bytes for a normalized file name.
type Fetcher interface {
	Fetch(ctx context.Context, fileName string) ([]byte, error)
}

// Ingester parses workbook bytes into a table.
type Ingester interface {
	Ingest(data []byte) (domain.ValueTable, error)
}

// TableCache holds fresh tables by normalized file name.
type TableCache interface {
	Get(key string) (domain.ValueTable, bool)
	Put(key string, table domain.ValueTable)
}

// Resolver turns logical value store names into tables, serving fresh
// cached tables and fetching the rest.
type Resolver struct {
	cache    TableCache
	fetcher  Fetcher
	ingester Ingester
	logger   zerolog.Logger
	flights  singleflight.Group
}

// NewResolver wires a resolver.
func NewResolver(cache TableCache, fetcher Fetcher, ingester Ingester, logger zerolog.Logger) *Resolver {
	return &Resolver{
		cache:    cache,
		fetcher:  fetcher,
		ingester: ingester,
		logger:   logger,
	}
}

// Resolve returns the table for logicalName, or an error. It never returns
// both nil.
//
// Concurrent misses for the same file share one fetch. The shared fetch is
// detached from the caller's cancellation so one abandoned request cannot
// fail the others; the fetcher bounds it with its own deadline.
func (r *Resolver) Resolve(ctx context.Context, logicalName string) (domain.ValueTable, error) {
	fileName := domain.NormalizeFileName(logicalName)
	if fileName == "" {
		return nil, domain.Permanent(apperrors.New(apperrors.CodeMissingParameter, "valueStore must be given as parameter"))
	}

	if table, ok := r.cache.Get(fileName); ok {
		r.logger.Debug().Str("file", fileName).Msg("value store served from cache")
		return table, nil
	}

	flightCtx := context.WithoutCancel(ctx)
	results := r.flights.DoChan(fileName, func() (any, error) {
		return r.load(flightCtx, fileName)
	})

	select {
	case <-ctx.Done():
		return nil, apperrors.Wrap(apperrors.CodeFetchFailed, fmt.Sprintf("resolve %s: %v", fileName, ctx.Err()), ctx.Err())
	case res := <-results:
		if res.Err != nil {
			return nil, res.Err
		}
		table, _ := res.Val.(domain.ValueTable)
		if table == nil {
			return nil, apperrors.New(apperrors.CodeUnknown, fmt.Sprintf("resolve %s: no table produced", fileName))
		}
		if res.Shared {
			r.logger.Debug().Str("file", fileName).Msg("value store shared with concurrent request")
		}
		return table.Clone(), nil
	}
}

func (r *Resolver) load(ctx context.Context, fileName string) (domain.ValueTable, error) {
	// A flight that finished just before this one started has already
	// refreshed the entry.
	if table, ok := r.cache.Get(fileName); ok {
		return table, nil
	}

	data, err := r.fetcher.Fetch(ctx, fileName)
	if err != nil {
		if apperrors.CodeOf(err) == apperrors.CodeFileNotFound {
			r.logger.Error().Str("file", fileName).Err(err).Msg("requested value file not found")
		} else {
			r.logger.Error().Str("file", fileName).Err(err).Msg("fetch value store")
		}
		return nil, err
	}

	table, err := r.ingester.Ingest(data)
	if err != nil {
		r.logger.Error().Str("file", fileName).Err(err).Msg("ingest value store")
		return nil, err
	}
	if table == nil {
		table = domain.ValueTable{}
	}
	r.cache.Put(fileName, table)
	return table, nil
}
