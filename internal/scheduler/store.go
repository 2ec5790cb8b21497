package scheduler

import (
	"context"
	"time"
)

// Store is the durable job repository the scheduler drives. Implementations
// must be safe for concurrent use; the CLI and a running scheduler may share
// one database. Get and the mutators return ErrJobNotFound for unknown IDs.
//
// Invariant maintained by the store: a paused job has no next fire time.
// SetState(StatePaused) clears it in the same write.
type Store interface {
	// Put inserts or replaces a job.
	Put(ctx context.Context, job JobDescriptor) error

	// Get returns the job with the given ID.
	Get(ctx context.Context, id string) (JobDescriptor, error)

	// Remove deletes a job. It reports whether the job existed.
	Remove(ctx context.Context, id string) (bool, error)

	// List returns all jobs ordered by ID.
	List(ctx context.Context) ([]JobDescriptor, error)

	// ListDue returns active jobs whose next fire time is at or before asOf,
	// ordered by next fire time, then ID.
	ListDue(ctx context.Context, asOf time.Time) ([]JobDescriptor, error)

	// SetState updates a job's state. Pausing clears the next fire time.
	SetState(ctx context.Context, id string, state State) error

	// SetNextFireTime updates a job's next fire time; nil clears it.
	SetNextFireTime(ctx context.Context, id string, next *time.Time) error
}

// Result summarizes one completed fetch.
type Result struct {
	Operation Operation
	Target    string
	Records   int      // metadata records written
	Files     []string // output files produced
}

// Fetcher executes the scrape a job describes. It is the scheduler's only
// dependency on the fetch layer.
type Fetcher interface {
	Fetch(ctx context.Context, op Operation, target string, includeComments bool) (Result, error)
}
