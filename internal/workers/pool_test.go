package workers

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aatumaykin/ytscout/internal/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(logger.Config{Level: "error", Format: "text", Output: "stderr"})
	require.NoError(t, err)
	return log
}

func mustSubmit(t *testing.T, pool *WorkerPool, task Task) {
	t.Helper()
	require.NoError(t, pool.SubmitWithContext(context.Background(), task))
}

func TestPoolExecutesTasks(t *testing.T) {
	pool := NewPool(2, 10, testLogger(t))
	pool.Start()

	var executed atomic.Int32
	for i := 0; i < 5; i++ {
		mustSubmit(t, pool, Task{
			ID:    "task",
			JobID: "job",
			Execute: func(ctx context.Context) error {
				executed.Add(1)
				return nil
			},
		})
	}

	results := collectResults(t, pool, 5)
	pool.Stop()

	assert.Equal(t, int32(5), executed.Load())
	for _, r := range results {
		assert.NoError(t, r.Error)
		assert.Equal(t, "job", r.JobID)
		assert.False(t, r.CompletedAt.IsZero())
	}

	m := pool.Metrics()
	assert.Equal(t, uint64(5), m.TasksSubmitted)
	assert.Equal(t, uint64(5), m.TasksCompleted)
	assert.Equal(t, uint64(0), m.TasksFailed)
}

func TestPoolBoundsConcurrency(t *testing.T) {
	const workers = 2
	pool := NewPool(workers, 20, testLogger(t))
	pool.Start()

	var current, peak atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		mustSubmit(t, pool, Task{
			ID:    "task",
			JobID: "job",
			Execute: func(ctx context.Context) error {
				defer wg.Done()
				n := current.Add(1)
				for {
					p := peak.Load()
					if n <= p || peak.CompareAndSwap(p, n) {
						break
					}
				}
				time.Sleep(20 * time.Millisecond)
				current.Add(-1)
				return nil
			},
		})
	}

	wg.Wait()
	collectResults(t, pool, 8)
	pool.Stop()

	assert.LessOrEqual(t, peak.Load(), int32(workers))
}

func TestPoolPropagatesErrors(t *testing.T) {
	pool := NewPool(1, 5, testLogger(t))
	pool.Start()

	wantErr := errors.New("fetch failed")
	mustSubmit(t, pool, Task{
		ID:    "task",
		JobID: "job",
		Execute: func(ctx context.Context) error {
			return wantErr
		},
	})

	results := collectResults(t, pool, 1)
	pool.Stop()

	require.ErrorIs(t, results[0].Error, wantErr)
	assert.Equal(t, uint64(1), pool.Metrics().TasksFailed)
}

func TestPoolRecoversPanics(t *testing.T) {
	pool := NewPool(1, 5, testLogger(t))
	pool.Start()

	mustSubmit(t, pool, Task{
		ID:    "boom",
		JobID: "job",
		Execute: func(ctx context.Context) error {
			panic("unexpected")
		},
	})
	// Pool must survive the panic and run the next task.
	mustSubmit(t, pool, Task{
		ID:    "after",
		JobID: "job",
		Execute: func(ctx context.Context) error {
			return nil
		},
	})

	results := collectResults(t, pool, 2)
	pool.Stop()

	byID := map[string]Result{}
	for _, r := range results {
		byID[r.TaskID] = r
	}
	require.Error(t, byID["boom"].Error)
	assert.Contains(t, byID["boom"].Error.Error(), "panicked")
	assert.NoError(t, byID["after"].Error)
}

func TestPoolEnforcesTaskTimeout(t *testing.T) {
	pool := NewPool(1, 5, testLogger(t))
	pool.Start()

	mustSubmit(t, pool, Task{
		ID:      "slow",
		JobID:   "job",
		Timeout: 20 * time.Millisecond,
		Execute: func(ctx context.Context) error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(5 * time.Second):
				return nil
			}
		},
	})

	results := collectResults(t, pool, 1)
	pool.Stop()

	require.ErrorIs(t, results[0].Error, context.DeadlineExceeded)
}

func TestSubmitWithContextCancellation(t *testing.T) {
	pool := NewPool(1, 0, testLogger(t))
	// Not started: nothing drains the queue, so the unbuffered send blocks.

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := pool.SubmitWithContext(ctx, Task{
		ID:      "task",
		JobID:   "job",
		Execute: func(ctx context.Context) error { return nil },
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestStopClosesResults(t *testing.T) {
	pool := NewPool(2, 5, testLogger(t))
	pool.Start()
	pool.Stop()

	_, open := <-pool.Results()
	assert.False(t, open)
}

func collectResults(t *testing.T, pool *WorkerPool, n int) []Result {
	t.Helper()
	results := make([]Result, 0, n)
	deadline := time.After(5 * time.Second)
	for len(results) < n {
		select {
		case r := <-pool.Results():
			results = append(results, r)
		case <-deadline:
			t.Fatalf("timed out waiting for results: got %d, want %d", len(results), n)
		}
	}
	return results
}
