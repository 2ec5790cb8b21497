package scheduler

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig() Config {
	return Config{TickInterval: 10 * time.Millisecond}
}

func putDueJob(t *testing.T, store *memStore, id string, nextFire time.Time) {
	t.Helper()
	require.NoError(t, store.Put(context.Background(), JobDescriptor{
		ID:           id,
		Operation:    OpVideo,
		Target:       "abc",
		Schedule:     Schedule{Type: ScheduleTypeInterval, Interval: IntervalSpec{Unit: UnitHours, Value: 1}},
		State:        StateActive,
		NextFireTime: &nextFire,
	}))
}

func TestDispatchFiresDueJob(t *testing.T) {
	store := newMemStore()
	fetcher := &fakeFetcher{}
	s := newTestScheduler(t, fastConfig(), store, fetcher)

	putDueJob(t, store, "job1", time.Now().Add(-time.Second))

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	assert.Eventually(t, func() bool {
		return fetcher.callCount() >= 1
	}, 2*time.Second, 10*time.Millisecond)

	// Completion reschedules one interval ahead.
	assert.Eventually(t, func() bool {
		job := store.get(t, "job1")
		return job.NextFireTime != nil && job.NextFireTime.After(time.Now())
	}, 2*time.Second, 10*time.Millisecond)
}

func TestDispatchReschedulesAfterFailure(t *testing.T) {
	store := newMemStore()
	fetcher := &fakeFetcher{err: errFetchBoom}
	s := newTestScheduler(t, fastConfig(), store, fetcher)

	putDueJob(t, store, "flaky", time.Now().Add(-time.Second))

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	// The failure is isolated: the loop keeps running and the job gets its
	// next fire time anyway.
	assert.Eventually(t, func() bool {
		job := store.get(t, "flaky")
		return job.NextFireTime != nil && job.NextFireTime.After(time.Now())
	}, 2*time.Second, 10*time.Millisecond)
	assert.GreaterOrEqual(t, fetcher.callCount(), 1)

	select {
	case err := <-s.Err():
		t.Fatalf("fetch failure must not be fatal, got %v", err)
	default:
	}
}

func TestDispatchSkipsOverlappingFiring(t *testing.T) {
	store := newMemStore()
	gate := make(chan struct{})
	fetcher := &fakeFetcher{gate: gate}
	s := newTestScheduler(t, fastConfig(), store, fetcher)

	putDueJob(t, store, "slow", time.Now().Add(-time.Second))

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	require.Eventually(t, func() bool {
		return fetcher.callCount() == 1
	}, 2*time.Second, 10*time.Millisecond)

	// The job stays due while the first firing blocks; further ticks must
	// not start a second one.
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, fetcher.callCount())

	close(gate)
	assert.Eventually(t, func() bool {
		job := store.get(t, "slow")
		return job.NextFireTime != nil && job.NextFireTime.After(time.Now())
	}, 2*time.Second, 10*time.Millisecond)
}

func TestDispatchSkipsMisfiredJob(t *testing.T) {
	store := newMemStore()
	fetcher := &fakeFetcher{}
	cfg := fastConfig()
	cfg.MisfireGrace = time.Hour
	s := newTestScheduler(t, cfg, store, fetcher)

	// Two hours overdue with a one-hour grace: skip, do not fire.
	putDueJob(t, store, "stale", time.Now().Add(-2*time.Hour))

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	assert.Eventually(t, func() bool {
		job := store.get(t, "stale")
		return job.NextFireTime != nil && job.NextFireTime.After(time.Now())
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, fetcher.callCount())
}

func TestDispatchWithinGraceStillFires(t *testing.T) {
	store := newMemStore()
	fetcher := &fakeFetcher{}
	cfg := fastConfig()
	cfg.MisfireGrace = time.Hour
	s := newTestScheduler(t, cfg, store, fetcher)

	putDueJob(t, store, "late", time.Now().Add(-30*time.Minute))

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	assert.Eventually(t, func() bool {
		return fetcher.callCount() >= 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestStopReturnsWithSaturatedQueue(t *testing.T) {
	store := newMemStore()
	gate := make(chan struct{})
	fetcher := &fakeFetcher{gate: gate}
	cfg := fastConfig()
	cfg.MaxConcurrent = 1
	s := newTestScheduler(t, cfg, store, fetcher)

	// Far more due jobs than the single worker and the task queue can hold:
	// the worker blocks on the gate and the tick loop ends up blocked
	// submitting the overflow.
	for i := 0; i < 100; i++ {
		putDueJob(t, store, fmt.Sprintf("job%03d", i), time.Now().Add(-time.Second))
	}

	require.NoError(t, s.Start(context.Background()))

	require.Eventually(t, func() bool {
		return fetcher.callCount() >= 1
	}, 2*time.Second, 10*time.Millisecond)
	// Let the loop fill the queue and block on the next submission.
	time.Sleep(100 * time.Millisecond)

	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()
	close(gate)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not return while the task queue was full")
	}
}

func TestStoreFailureIsFatal(t *testing.T) {
	store := newMemStore()
	s := newTestScheduler(t, fastConfig(), store, &fakeFetcher{})

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	store.injectFailure(errors.New("disk on fire"))

	select {
	case err := <-s.Err():
		assert.Contains(t, err.Error(), "disk on fire")
	case <-time.After(2 * time.Second):
		t.Fatal("expected a fatal error from the dispatch loop")
	}
}

func TestStartRecoversMissingFireTimes(t *testing.T) {
	store := newMemStore()
	s := newTestScheduler(t, fastConfig(), store, &fakeFetcher{})

	require.NoError(t, store.Put(context.Background(), JobDescriptor{
		ID:        "orphan",
		Operation: OpVideo,
		Target:    "abc",
		Schedule:  Schedule{Type: ScheduleTypeInterval, Interval: IntervalSpec{Unit: UnitHours, Value: 1}},
		State:     StateActive,
		// NextFireTime deliberately missing.
	}))

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	job := store.get(t, "orphan")
	require.NotNil(t, job.NextFireTime)
	assert.True(t, job.NextFireTime.After(time.Now()))
}

func TestStartTwiceFails(t *testing.T) {
	s := newTestScheduler(t, fastConfig(), newMemStore(), &fakeFetcher{})

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	assert.Error(t, s.Start(context.Background()))
}
