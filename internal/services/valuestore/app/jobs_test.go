package app

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/louisbranch/valuestore/internal/services/valuestore/domain"
	"github.com/louisbranch/valuestore/internal/services/valuestore/storage"
	vssqlite "github.com/louisbranch/valuestore/internal/services/valuestore/storage/sqlite"
)

type fakeCompleter struct {
	completed   map[int64]map[string]any
	failed      map[int64]domain.Failure
	completeErr error
}

func newFakeCompleter() *fakeCompleter {
	return &fakeCompleter{completed: map[int64]map[string]any{}, failed: map[int64]domain.Failure{}}
}

func (c *fakeCompleter) Complete(_ context.Context, key int64, vars map[string]any) error {
	if c.completeErr != nil {
		return c.completeErr
	}
	c.completed[key] = vars
	return nil
}

func (c *fakeCompleter) Fail(_ context.Context, key int64, failure domain.Failure) error {
	c.failed[key] = failure
	return nil
}

func newJobHandler(t *testing.T, p *pipeline) (*JobHandler, *vssqlite.Store) {
	t.Helper()
	store := openTempStore(t)
	handler := NewJobHandler(p.worker, domain.RetryPolicy{MaxRetries: 3, Backoff: 5 * time.Second}, store, zerolog.Nop())
	handler.clock = p.clock.Now
	return handler, store
}

func openTempStore(t *testing.T) *vssqlite.Store {
	t.Helper()
	store, err := vssqlite.Open(context.Background(), filepath.Join(t.TempDir(), "valuestore.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("close store: %v", err)
		}
	})
	return store
}

func lastAttempt(t *testing.T, store *vssqlite.Store) storage.AttemptRecord {
	t.Helper()
	attempts, err := store.ListAttempts(context.Background(), 1)
	if err != nil {
		t.Fatalf("list attempts: %v", err)
	}
	if len(attempts) != 1 {
		t.Fatalf("attempts len = %d, want 1", len(attempts))
	}
	return attempts[0]
}

func TestHandleJobCompletesWithValues(t *testing.T) {
	p := newPipeline(t, map[string][]byte{"rates.xlsx": ratesWorkbook(t)})
	handler, store := newJobHandler(t, p)
	completer := newFakeCompleter()

	err := handler.HandleJob(context.Background(), domain.Job{
		Key:       101,
		Type:      "valuestore",
		Retries:   3,
		Variables: map[string]any{"valueStore": "rates"},
	}, completer)
	if err != nil {
		t.Fatalf("handle job: %v", err)
	}

	vars, ok := completer.completed[101]
	if !ok {
		t.Fatal("expected job to complete")
	}
	if _, ok := vars[domain.VarValues].(domain.ValueTable); !ok {
		t.Fatalf("vars = %v, want values", vars)
	}
	attempt := lastAttempt(t, store)
	if attempt.Outcome != storage.OutcomeCompleted || attempt.ValueStore != "rates.xlsx" {
		t.Fatalf("attempt = %+v, want completed rates.xlsx", attempt)
	}
}

func TestHandleJobNotFoundFailsWithoutRetries(t *testing.T) {
	p := newPipeline(t, nil)
	handler, store := newJobHandler(t, p)
	completer := newFakeCompleter()

	err := handler.HandleJob(context.Background(), domain.Job{
		Key:       102,
		Type:      "valuestore",
		Retries:   3,
		Variables: map[string]any{"valueStore": "missing"},
	}, completer)
	if err != nil {
		t.Fatalf("handle job: %v", err)
	}

	failure, ok := completer.failed[102]
	if !ok {
		t.Fatal("expected job to fail")
	}
	if failure.Retries != 0 || failure.Backoff != 0 {
		t.Fatalf("failure = %+v, want no retries", failure)
	}
	if attempt := lastAttempt(t, store); attempt.Outcome != storage.OutcomeFailed {
		t.Fatalf("outcome = %q, want %q", attempt.Outcome, storage.OutcomeFailed)
	}
}

func TestHandleJobTransientFailureCountsDownRetries(t *testing.T) {
	p := newPipeline(t, nil)
	p.files.setError(status.Error(codes.DeadlineExceeded, "slow"))
	handler, store := newJobHandler(t, p)
	completer := newFakeCompleter()

	err := handler.HandleJob(context.Background(), domain.Job{
		Key:       103,
		Type:      "valuestore",
		Retries:   3,
		Variables: map[string]any{"valueStore": "rates"},
	}, completer)
	if err != nil {
		t.Fatalf("handle job: %v", err)
	}

	failure := completer.failed[103]
	if failure.Retries != 2 || failure.Backoff != 5*time.Second {
		t.Fatalf("failure = %+v, want 2 retries after 5s", failure)
	}
	attempt := lastAttempt(t, store)
	if attempt.Outcome != storage.OutcomeRetry || attempt.Retries != 2 {
		t.Fatalf("attempt = %+v, want retry with 2 retries", attempt)
	}
}

func TestHandleJobMissingParameterCompletesWithErrorResult(t *testing.T) {
	p := newPipeline(t, nil)
	handler, store := newJobHandler(t, p)
	completer := newFakeCompleter()

	if err := handler.HandleJob(context.Background(), domain.Job{Key: 104, Type: "valuestore", Retries: 3}, completer); err != nil {
		t.Fatalf("handle job: %v", err)
	}

	vars := completer.completed[104]
	if _, ok := vars[domain.VarError]; !ok {
		t.Fatalf("vars = %v, want error field", vars)
	}
	if got := p.files.Requests(); len(got) != 0 {
		t.Fatalf("fetches = %v, want none", got)
	}
	if attempt := lastAttempt(t, store); attempt.LastError == "" {
		t.Fatal("expected error message to be recorded")
	}
}

func TestHandleJobReportsEngineErrors(t *testing.T) {
	p := newPipeline(t, map[string][]byte{"rates.xlsx": ratesWorkbook(t)})
	handler, _ := newJobHandler(t, p)
	completer := newFakeCompleter()
	completer.completeErr = errors.New("gateway unavailable")

	err := handler.HandleJob(context.Background(), domain.Job{
		Key:       105,
		Type:      "valuestore",
		Variables: map[string]any{"valueStore": "rates"},
	}, completer)
	if err == nil {
		t.Fatal("expected engine error")
	}
	if err := handler.HandleJob(context.Background(), domain.Job{Key: 106}, nil); err == nil {
		t.Fatal("expected error for nil completer")
	}
}
