// Package storage defines the persistence contract for job attempts.
package storage

import (
	"context"
	"time"
)

// Attempt outcomes.
const (
	OutcomeCompleted = "completed"
	OutcomeRetry     = "retry"
	OutcomeFailed    = "failed"
)

// AttemptRecord is one handled workflow job, as reported to the engine.
type AttemptRecord struct {
	ID         int64
	JobKey     int64
	JobType    string
	ValueStore string
	Outcome    string
	// Retries is the retry budget handed back to the engine.
	Retries   int32
	LastError string
	CreatedAt time.Time
}

// AttemptStore persists job attempt records.
type AttemptStore interface {
	RecordAttempt(ctx context.Context, attempt AttemptRecord) error
	ListAttempts(ctx context.Context, limit int) ([]AttemptRecord, error)
}
