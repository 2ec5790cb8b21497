// Package workers provides a bounded worker pool for executing scheduled job
// firings concurrently. Results are delivered on a channel so the dispatcher
// can observe completions asynchronously.
package workers

import (
	"context"
	"time"
)

// Task is one unit of work: a single firing of a scheduled job.
type Task struct {
	ID      string                          // unique per firing
	JobID   string                          // the job this firing belongs to
	Timeout time.Duration                   // per-firing deadline; 0 means none
	Execute func(ctx context.Context) error // the work itself
}

// Result is the outcome of one executed task.
type Result struct {
	TaskID      string
	JobID       string
	Error       error
	Duration    time.Duration
	CompletedAt time.Time
}

// PoolMetrics tracks execution counters for the worker pool.
type PoolMetrics struct {
	TasksSubmitted uint64
	TasksCompleted uint64
	TasksFailed    uint64
	TotalDuration  time.Duration
}

const (
	DefaultPoolSize  = 4
	DefaultQueueSize = 64
)
