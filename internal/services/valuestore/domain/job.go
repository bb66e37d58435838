package domain

import "context"

// Job is one activated workflow task.
type Job struct {
	Key  int64
	Type string
	// Retries is the budget remaining before this attempt.
	Retries   int32
	Variables map[string]any
}

// JobCompleter reports the outcome of a Job back to the workflow engine.
type JobCompleter interface {
	Complete(ctx context.Context, key int64, variables map[string]any) error
	Fail(ctx context.Context, key int64, failure Failure) error
}
