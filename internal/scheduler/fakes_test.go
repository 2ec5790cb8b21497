package scheduler

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aatumaykin/ytscout/internal/logger"
)

// memStore is an in-memory Store for exercising the scheduler without a
// database.
type memStore struct {
	mu       sync.Mutex
	jobs     map[string]JobDescriptor
	failNext error // returned once by the next store call
}

func newMemStore() *memStore {
	return &memStore{jobs: make(map[string]JobDescriptor)}
}

func (m *memStore) injectFailure(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext = err
}

func (m *memStore) takeFailure() error {
	if m.failNext != nil {
		err := m.failNext
		m.failNext = nil
		return err
	}
	return nil
}

func (m *memStore) Put(ctx context.Context, job JobDescriptor) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return err
	}
	m.jobs[job.ID] = job
	return nil
}

func (m *memStore) Get(ctx context.Context, id string) (JobDescriptor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return JobDescriptor{}, err
	}
	job, ok := m.jobs[id]
	if !ok {
		return JobDescriptor{}, ErrJobNotFound
	}
	return job, nil
}

func (m *memStore) Remove(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return false, err
	}
	_, ok := m.jobs[id]
	delete(m.jobs, id)
	return ok, nil
}

func (m *memStore) List(ctx context.Context) ([]JobDescriptor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return nil, err
	}
	out := make([]JobDescriptor, 0, len(m.jobs))
	for _, job := range m.jobs {
		out = append(out, job)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) ListDue(ctx context.Context, asOf time.Time) ([]JobDescriptor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return nil, err
	}
	out := make([]JobDescriptor, 0)
	for _, job := range m.jobs {
		if job.State != StateActive || job.NextFireTime == nil {
			continue
		}
		if job.NextFireTime.After(asOf) {
			continue
		}
		out = append(out, job)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].NextFireTime.Equal(*out[j].NextFireTime) {
			return out[i].NextFireTime.Before(*out[j].NextFireTime)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *memStore) SetState(ctx context.Context, id string, state State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return err
	}
	job, ok := m.jobs[id]
	if !ok {
		return ErrJobNotFound
	}
	job.State = state
	if state == StatePaused {
		job.NextFireTime = nil
	}
	m.jobs[id] = job
	return nil
}

func (m *memStore) SetNextFireTime(ctx context.Context, id string, next *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return err
	}
	job, ok := m.jobs[id]
	if !ok {
		return ErrJobNotFound
	}
	job.NextFireTime = next
	m.jobs[id] = job
	return nil
}

func (m *memStore) get(t *testing.T, id string) JobDescriptor {
	t.Helper()
	job, err := m.Get(context.Background(), id)
	require.NoError(t, err)
	return job
}

var _ Store = (*memStore)(nil)

type fetchCall struct {
	Op              Operation
	Target          string
	IncludeComments bool
}

// fakeFetcher records calls and can fail or block on demand.
type fakeFetcher struct {
	mu    sync.Mutex
	calls []fetchCall
	err   error
	gate  chan struct{} // when non-nil, Fetch blocks until closed
}

func (f *fakeFetcher) Fetch(ctx context.Context, op Operation, target string, includeComments bool) (Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, fetchCall{Op: op, Target: target, IncludeComments: includeComments})
	gate := f.gate
	err := f.err
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return Result{}, ctx.Err()
		}
	}
	if err != nil {
		return Result{}, err
	}
	return Result{Operation: op, Target: target, Records: 1, Files: []string{"out.json"}}, nil
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeFetcher) lastCall(t *testing.T) fetchCall {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.calls)
	return f.calls[len(f.calls)-1]
}

var errFetchBoom = errors.New("fetch exploded")

func newTestScheduler(t *testing.T, cfg Config, store Store, fetcher Fetcher) *Scheduler {
	t.Helper()
	log, err := logger.New(logger.Config{Level: "error", Format: "text", Output: "stderr"})
	require.NoError(t, err)
	s, err := New(cfg, store, fetcher, log, nil)
	require.NoError(t, err)
	return s
}
