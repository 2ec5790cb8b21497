package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aatumaykin/ytscout/internal/logger"
	"github.com/aatumaykin/ytscout/internal/workers"
)

const (
	DefaultTickInterval  = time.Second
	DefaultMaxConcurrent = 4
	DefaultMisfireGrace  = time.Hour
	DefaultFireTimeout   = 10 * time.Minute
)

// Config controls dispatcher behaviour. Zero values take the defaults above;
// Timezone defaults to UTC.
type Config struct {
	TickInterval  time.Duration
	MaxConcurrent int
	MisfireGrace  time.Duration
	FireTimeout   time.Duration
	Timezone      string
}

func (c *Config) applyDefaults() {
	if c.TickInterval <= 0 {
		c.TickInterval = DefaultTickInterval
	}
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = DefaultMaxConcurrent
	}
	if c.MisfireGrace <= 0 {
		c.MisfireGrace = DefaultMisfireGrace
	}
	if c.FireTimeout <= 0 {
		c.FireTimeout = DefaultFireTimeout
	}
}

// Scheduler owns the dispatch loop and the control surface over a job store.
type Scheduler struct {
	cfg      Config
	store    Store
	fetcher  Fetcher
	resolver *Resolver
	pool     *workers.WorkerPool
	logger   *logger.Logger
	metrics  *Metrics

	mu       sync.Mutex
	inflight map[string]struct{} // job IDs with a firing in progress
	started  bool

	cancel   context.CancelFunc
	loopDone chan struct{}
	wg       sync.WaitGroup
	errCh    chan error
}

// New creates a Scheduler over the given store and fetcher. The metrics
// argument may be nil to disable instrumentation.
func New(cfg Config, store Store, fetcher Fetcher, log *logger.Logger, metrics *Metrics) (*Scheduler, error) {
	cfg.applyDefaults()

	loc := time.UTC
	if cfg.Timezone != "" {
		var err error
		loc, err = time.LoadLocation(cfg.Timezone)
		if err != nil {
			return nil, fmt.Errorf("load timezone %q: %w", cfg.Timezone, err)
		}
	}

	return &Scheduler{
		cfg:      cfg,
		store:    store,
		fetcher:  fetcher,
		resolver: NewResolver(loc),
		pool:     workers.NewPool(cfg.MaxConcurrent, workers.DefaultQueueSize, log),
		logger:   log,
		metrics:  metrics,
		inflight: make(map[string]struct{}),
		errCh:    make(chan error, 1),
	}, nil
}

// Resolver exposes the trigger resolver, used by callers that need to compute
// fire times with the scheduler's timezone (e.g. seeding jobs from config).
func (s *Scheduler) Resolver() *Resolver {
	return s.resolver
}

// Start launches the dispatch loop. On startup any active job without a next
// fire time gets one computed, so jobs resumed or imported in a degraded
// state become schedulable again.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return fmt.Errorf("scheduler already started")
	}
	s.started = true
	s.mu.Unlock()

	if err := s.recoverFireTimes(ctx); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.loopDone = make(chan struct{})

	s.pool.Start()

	s.wg.Add(2)
	go s.runLoop(runCtx)
	go s.resultLoop()

	s.logger.Info("scheduler started",
		logger.Field{Key: "tick_interval", Value: s.cfg.TickInterval.String()},
		logger.Field{Key: "max_concurrent", Value: s.pool.WorkerCount()},
		logger.Field{Key: "misfire_grace", Value: s.cfg.MisfireGrace.String()})
	return nil
}

// Stop shuts the scheduler down: the tick loop stops first so nothing new is
// dispatched, then the pool drains in-flight firings, then the result loop
// applies their reschedules and exits. The pool must not be stopped while the
// tick loop may still submit, so Stop waits for the loop to exit in between.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	s.mu.Unlock()

	s.cancel()
	<-s.loopDone
	s.pool.Stop()
	s.wg.Wait()

	s.logger.Info("scheduler stopped")
}

// Err delivers the first fatal error, if any. Store failures inside the
// dispatch loop are fatal: continuing with a broken store would silently
// drop scheduling state.
func (s *Scheduler) Err() <-chan error {
	return s.errCh
}

func (s *Scheduler) fail(err error) {
	select {
	case s.errCh <- err:
	default:
	}
}

// recoverFireTimes assigns a next fire time to active jobs missing one.
func (s *Scheduler) recoverFireTimes(ctx context.Context) error {
	jobs, err := s.store.List(ctx)
	if err != nil {
		return fmt.Errorf("list jobs on startup: %w", err)
	}
	now := time.Now()
	for _, job := range jobs {
		if job.State != StateActive || job.NextFireTime != nil {
			continue
		}
		next, rerr := s.resolver.Resolve(job.Schedule, now)
		if rerr != nil {
			s.logger.Warn("schedule fell back to daily default",
				logger.Field{Key: "job_id", Value: job.ID},
				logger.Field{Key: "reason", Value: rerr.Error()})
		}
		if err := s.store.SetNextFireTime(ctx, job.ID, &next); err != nil {
			return fmt.Errorf("recover fire time for %s: %w", job.ID, err)
		}
		s.logger.Info("recovered job fire time",
			logger.Field{Key: "job_id", Value: job.ID},
			logger.Field{Key: "next_fire_time", Value: next.Format(time.RFC3339)})
	}
	return nil
}

func (s *Scheduler) runLoop(ctx context.Context) {
	defer s.wg.Done()
	defer close(s.loopDone)

	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			if err := s.tick(ctx, now); err != nil {
				s.logger.Error("dispatch tick failed, stopping", err)
				s.fail(err)
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func (s *Scheduler) resultLoop() {
	defer s.wg.Done()

	for res := range s.pool.Results() {
		s.handleResult(res)
	}
}

// tryAcquire marks a job as having a firing in flight. It reports false when
// the job is already marked.
func (s *Scheduler) tryAcquire(jobID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.inflight[jobID]; ok {
		return false
	}
	s.inflight[jobID] = struct{}{}
	if s.metrics != nil {
		s.metrics.InflightJobs.Set(float64(len(s.inflight)))
	}
	return true
}

func (s *Scheduler) release(jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inflight, jobID)
	if s.metrics != nil {
		s.metrics.InflightJobs.Set(float64(len(s.inflight)))
	}
}
