package domain

import "time"

// DefaultMaxRetries bounds retries of transient failures.
const DefaultMaxRetries = 3

// Failure is a task failure reported to the workflow engine.
type Failure struct {
	Message string
	// Retries is the remaining retry budget; 0 stops the engine from
	// retrying the task.
	Retries int
	// Backoff delays the next attempt; zero retries immediately.
	Backoff time.Duration
}

// RetryPolicy turns a handler error into a Failure.
type RetryPolicy struct {
	MaxRetries int
	Backoff    time.Duration
}

// Failure classifies err for a job that had remaining retries before this
// attempt. Permanent errors get no retries; anything else keeps counting
// down the job's budget, capped at MaxRetries.
func (p RetryPolicy) Failure(err error, remaining int) Failure {
	message := "unknown failure"
	if err != nil {
		message = err.Error()
	}
	if IsPermanent(err) {
		return Failure{Message: message}
	}

	maxRetries := p.MaxRetries
	if maxRetries < 0 {
		maxRetries = DefaultMaxRetries
	}
	retries := min(remaining-1, maxRetries)
	if retries <= 0 {
		return Failure{Message: message}
	}
	return Failure{Message: message, Retries: retries, Backoff: p.Backoff}
}
