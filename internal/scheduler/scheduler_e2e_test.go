package scheduler_test

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aatumaykin/ytscout/internal/jobstore"
	"github.com/aatumaykin/ytscout/internal/logger"
	"github.com/aatumaykin/ytscout/internal/scheduler"
)

type countingFetcher struct {
	calls atomic.Int32
}

func (f *countingFetcher) Fetch(ctx context.Context, op scheduler.Operation, target string, includeComments bool) (scheduler.Result, error) {
	f.calls.Add(1)
	return scheduler.Result{Operation: op, Target: target, Records: 1}, nil
}

func newE2EScheduler(t *testing.T, fetcher scheduler.Fetcher) (*scheduler.Scheduler, *jobstore.Store) {
	t.Helper()
	store, err := jobstore.Open(filepath.Join(t.TempDir(), "jobs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	log, err := logger.New(logger.Config{Level: "error", Format: "text", Output: "stderr"})
	require.NoError(t, err)

	s, err := scheduler.New(scheduler.Config{TickInterval: 10 * time.Millisecond}, store, fetcher, log, nil)
	require.NoError(t, err)
	return s, store
}

func TestSchedulerOverSQLiteStore(t *testing.T) {
	fetcher := &countingFetcher{}
	s, store := newE2EScheduler(t, fetcher)
	ctx := context.Background()

	id, err := s.AddJob(ctx, scheduler.AddJobParams{
		Operation: scheduler.OpChannel,
		Target:    "UCabc",
		Schedule: scheduler.Schedule{
			Type:     scheduler.ScheduleTypeInterval,
			Interval: scheduler.IntervalSpec{Unit: scheduler.UnitHours, Value: 1},
		},
	})
	require.NoError(t, err)

	// Make the job due and run the loop.
	past := time.Now().Add(-time.Second)
	require.NoError(t, store.SetNextFireTime(ctx, id, &past))

	require.NoError(t, s.Start(ctx))
	defer s.Stop()

	assert.Eventually(t, func() bool {
		return fetcher.calls.Load() >= 1
	}, 2*time.Second, 10*time.Millisecond)

	assert.Eventually(t, func() bool {
		job, err := store.Get(ctx, id)
		return err == nil && job.NextFireTime != nil && job.NextFireTime.After(time.Now())
	}, 2*time.Second, 10*time.Millisecond)
}

func TestPauseResumeLifecycleOverSQLite(t *testing.T) {
	s, store := newE2EScheduler(t, &countingFetcher{})
	ctx := context.Background()

	id, err := s.AddJob(ctx, scheduler.AddJobParams{
		Operation: scheduler.OpVideo,
		Target:    "dQw4w9WgXcQ",
		Schedule: scheduler.Schedule{
			Type:     scheduler.ScheduleTypeInterval,
			Interval: scheduler.IntervalSpec{Unit: scheduler.UnitDays, Value: 1},
		},
	})
	require.NoError(t, err)

	require.NoError(t, s.PauseJob(ctx, id))
	job, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, scheduler.StatePaused, job.State)
	assert.Nil(t, job.NextFireTime)

	due, err := store.ListDue(ctx, time.Now().Add(48*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, due, "paused jobs are invisible to the dispatcher")

	require.NoError(t, s.ResumeJob(ctx, id))
	job, err = store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, scheduler.StateActive, job.State)
	require.NotNil(t, job.NextFireTime)
	assert.True(t, job.NextFireTime.After(time.Now()))
}

func TestJobsPersistAcrossSchedulerInstances(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "jobs.db")
	ctx := context.Background()

	log, err := logger.New(logger.Config{Level: "error", Format: "text", Output: "stderr"})
	require.NoError(t, err)

	store, err := jobstore.Open(dbPath)
	require.NoError(t, err)
	s, err := scheduler.New(scheduler.Config{}, store, &countingFetcher{}, log, nil)
	require.NoError(t, err)

	id, err := s.AddJob(ctx, scheduler.AddJobParams{Operation: scheduler.OpPlaylist, Target: "PL1"})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	// A fresh process over the same database sees the job.
	store2, err := jobstore.Open(dbPath)
	require.NoError(t, err)
	defer store2.Close()
	s2, err := scheduler.New(scheduler.Config{}, store2, &countingFetcher{}, log, nil)
	require.NoError(t, err)

	jobs, err := s2.ListJobs(ctx)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, id, jobs[0].ID)
	assert.Equal(t, scheduler.OpPlaylist, jobs[0].Operation)
}
