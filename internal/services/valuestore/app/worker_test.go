package app

import (
	"context"
	"strings"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	apperrors "github.com/louisbranch/valuestore/internal/platform/errors"
	"github.com/louisbranch/valuestore/internal/services/valuestore/domain"
)

func TestHandleSuccessBindsValues(t *testing.T) {
	p := newPipeline(t, map[string][]byte{"rates.xlsx": ratesWorkbook(t)})

	for _, mode := range []domain.Mode{domain.ModeOrchestrated, domain.ModeStandalone} {
		t.Run(mode.String(), func(t *testing.T) {
			result, err := p.worker.Handle(context.Background(), map[string]any{"valueStore": "rates"}, mode)
			if err != nil {
				t.Fatalf("handle: %v", err)
			}
			table, ok := result[domain.VarValues].(domain.ValueTable)
			if !ok {
				t.Fatalf("result = %v, want values table", result)
			}
			if len(table["Rate"]) != 2 {
				t.Fatalf("Rate = %v, want 2 values", table["Rate"])
			}
			if _, ok := result[domain.VarError]; ok {
				t.Fatal("success must not carry an error field")
			}
		})
	}
}

func TestHandleMissingParameterReturnsErrorResult(t *testing.T) {
	cases := []struct {
		name string
		vars map[string]any
	}{
		{name: "absent", vars: map[string]any{}},
		{name: "blank", vars: map[string]any{"valueStore": " "}},
		{name: "not a string", vars: map[string]any{"valueStore": 12}},
		{name: "standalone", vars: map[string]any{"_STANDALONE": true}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := newPipeline(t, nil)

			result, err := p.worker.Handle(context.Background(), tc.vars, domain.ModeFromVariables(tc.vars))
			if err != nil {
				t.Fatalf("handle: %v", err)
			}
			message, _ := result[domain.VarError].(string)
			if message != "valueStore must be given as parameter" {
				t.Fatalf("error = %q, want missing parameter message", message)
			}
			if got := p.files.Requests(); len(got) != 0 {
				t.Fatalf("fetches = %v, want none", got)
			}
		})
	}
}

func TestHandleNotFoundByMode(t *testing.T) {
	p := newPipeline(t, nil)
	vars := map[string]any{"valueStore": "missing"}

	result, err := p.worker.Handle(context.Background(), vars, domain.ModeStandalone)
	if err != nil {
		t.Fatalf("standalone handle: %v", err)
	}
	message, _ := result[domain.VarError].(string)
	if !strings.Contains(message, "missing.xlsx not found") {
		t.Fatalf("error = %q, want not found message", message)
	}
	if _, ok := result[domain.VarValues]; ok {
		t.Fatal("error result must not carry values")
	}

	result, err = p.worker.Handle(context.Background(), vars, domain.ModeOrchestrated)
	if result != nil {
		t.Fatalf("result = %v, want nil", result)
	}
	if !domain.IsPermanent(err) {
		t.Fatalf("err = %v, want permanent", err)
	}
	failure := domain.RetryPolicy{MaxRetries: 3}.Failure(err, 3)
	if failure.Retries != 0 {
		t.Fatalf("retries = %d, want 0", failure.Retries)
	}
}

func TestHandleTransientFailureOrchestrated(t *testing.T) {
	p := newPipeline(t, nil)
	p.files.setError(status.Error(codes.Canceled, "gateway restarting"))

	_, err := p.worker.Handle(context.Background(), map[string]any{"valueStore": "rates"}, domain.ModeOrchestrated)
	if err == nil {
		t.Fatal("expected error")
	}
	if domain.IsPermanent(err) {
		t.Fatal("expected transient failure")
	}
	if code := apperrors.CodeOf(err); code != apperrors.CodeFetchFailed {
		t.Fatalf("code = %q, want %q", code, apperrors.CodeFetchFailed)
	}
}
