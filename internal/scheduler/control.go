package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aatumaykin/ytscout/internal/logger"
)

// AddJobParams describes a job to create. An empty ID gets the derived
// default; a nil IncludeComments takes the per-operation default.
type AddJobParams struct {
	ID              string
	Operation       Operation
	Target          string
	IncludeComments *bool
	Schedule        Schedule
}

// newJob validates the parameters and builds an active descriptor with its
// first fire time resolved from now.
func (s *Scheduler) newJob(p AddJobParams, now time.Time) (JobDescriptor, error) {
	op, err := ParseOperation(string(p.Operation))
	if err != nil {
		return JobDescriptor{}, err
	}
	if strings.TrimSpace(p.Target) == "" {
		return JobDescriptor{}, &ValidationError{Field: "target", Reason: "must not be empty"}
	}
	if err := s.resolver.ValidateSchedule(p.Schedule); err != nil {
		return JobDescriptor{}, err
	}

	id := p.ID
	if id == "" {
		id = DefaultJobID(op, p.Target, now)
	}

	include := DefaultIncludeComments(op)
	if p.IncludeComments != nil {
		include = *p.IncludeComments
	}

	next, rerr := s.resolver.Resolve(p.Schedule, now)
	if rerr != nil {
		// ValidateSchedule passed, so only the benign fallback sentinels can
		// land here.
		s.logger.Warn("schedule fell back to daily default",
			logger.Field{Key: "job_id", Value: id},
			logger.Field{Key: "reason", Value: rerr.Error()})
	}

	return JobDescriptor{
		ID:              id,
		Operation:       op,
		Target:          strings.TrimSpace(p.Target),
		IncludeComments: include,
		Schedule:        p.Schedule,
		State:           StateActive,
		NextFireTime:    &next,
	}, nil
}

// AddJob validates the parameters, computes the first fire time and persists
// the job. It returns the job ID. An existing job with the same ID is
// replaced outright.
func (s *Scheduler) AddJob(ctx context.Context, p AddJobParams) (string, error) {
	job, err := s.newJob(p, time.Now())
	if err != nil {
		return "", err
	}
	if err := s.store.Put(ctx, job); err != nil {
		return "", fmt.Errorf("store job %s: %w", job.ID, err)
	}

	s.logger.Info("job added",
		logger.Field{Key: "job_id", Value: job.ID},
		logger.Field{Key: "operation", Value: string(job.Operation)},
		logger.Field{Key: "target", Value: job.Target},
		logger.Field{Key: "schedule", Value: p.Schedule.Description()},
		logger.Field{Key: "next_fire_time", Value: job.NextFireTime.Format(time.RFC3339)})
	return job.ID, nil
}

// SeedJob creates or refreshes a config-declared job. Creation behaves like
// AddJob. For an existing job the descriptor fields are updated in place but
// operator-controlled scheduling survives: a paused job stays paused, and an
// active job keeps its stored fire time unless the schedule changed.
func (s *Scheduler) SeedJob(ctx context.Context, p AddJobParams) (string, error) {
	job, err := s.newJob(p, time.Now())
	if err != nil {
		return "", err
	}

	existing, err := s.store.Get(ctx, job.ID)
	switch {
	case errors.Is(err, ErrJobNotFound):
	case err != nil:
		return "", fmt.Errorf("load job %s: %w", job.ID, err)
	case existing.State == StatePaused:
		job.State = StatePaused
		job.NextFireTime = nil
	case existing.Schedule == job.Schedule && existing.NextFireTime != nil:
		job.NextFireTime = existing.NextFireTime
	}

	if err := s.store.Put(ctx, job); err != nil {
		return "", fmt.Errorf("store job %s: %w", job.ID, err)
	}

	s.logger.Info("job seeded",
		logger.Field{Key: "job_id", Value: job.ID},
		logger.Field{Key: "schedule", Value: p.Schedule.Description()},
		logger.Field{Key: "state", Value: string(job.State)})
	return job.ID, nil
}

// RemoveJob deletes a job. It reports whether the job existed. An in-flight
// firing of the job is not interrupted; its completion finds the job gone
// and does not reschedule.
func (s *Scheduler) RemoveJob(ctx context.Context, id string) (bool, error) {
	existed, err := s.store.Remove(ctx, id)
	if err != nil {
		return false, fmt.Errorf("remove job %s: %w", id, err)
	}
	if existed {
		s.logger.Info("job removed", logger.Field{Key: "job_id", Value: id})
	}
	return existed, nil
}

// PauseJob suspends firings for a job. Pausing an already paused job is a
// no-op. In-flight firings finish normally but do not reschedule.
func (s *Scheduler) PauseJob(ctx context.Context, id string) error {
	if _, err := s.store.Get(ctx, id); err != nil {
		return err
	}
	if err := s.store.SetState(ctx, id, StatePaused); err != nil {
		return fmt.Errorf("pause job %s: %w", id, err)
	}
	s.logger.Info("job paused", logger.Field{Key: "job_id", Value: id})
	return nil
}

// ResumeJob reactivates a paused job and computes a fresh fire time from now;
// missed windows during the pause are never replayed. Resuming an active job
// is a no-op.
func (s *Scheduler) ResumeJob(ctx context.Context, id string) error {
	job, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if job.State == StateActive {
		return nil
	}

	if err := s.store.SetState(ctx, id, StateActive); err != nil {
		return fmt.Errorf("resume job %s: %w", id, err)
	}
	next, rerr := s.resolver.Resolve(job.Schedule, time.Now())
	if rerr != nil {
		s.logger.Warn("schedule fell back to daily default",
			logger.Field{Key: "job_id", Value: id},
			logger.Field{Key: "reason", Value: rerr.Error()})
	}
	if err := s.store.SetNextFireTime(ctx, id, &next); err != nil {
		return fmt.Errorf("resume job %s: %w", id, err)
	}

	s.logger.Info("job resumed",
		logger.Field{Key: "job_id", Value: id},
		logger.Field{Key: "next_fire_time", Value: next.Format(time.RFC3339)})
	return nil
}

// RunNow fires a job immediately and synchronously, outside its schedule.
// The stored next fire time is untouched. It returns ErrJobNotFound for an
// unknown ID, ErrJobBusy when a firing is already in flight, and otherwise
// the fetch error, if any. Works with or without a started dispatch loop.
func (s *Scheduler) RunNow(ctx context.Context, id string) error {
	job, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}

	if !s.tryAcquire(job.ID) {
		return fmt.Errorf("%w: %s", ErrJobBusy, job.ID)
	}
	defer s.release(job.ID)

	fireCtx, cancel := context.WithTimeout(ctx, s.cfg.FireTimeout)
	defer cancel()

	s.logger.Info("manual firing",
		logger.Field{Key: "job_id", Value: job.ID},
		logger.Field{Key: "operation", Value: string(job.Operation)},
		logger.Field{Key: "target", Value: job.Target})

	start := time.Now()
	res, err := s.fetcher.Fetch(fireCtx, job.Operation, job.Target, job.IncludeComments)
	if err != nil {
		s.logger.Error("manual firing failed", err,
			logger.Field{Key: "job_id", Value: job.ID},
			logger.Field{Key: "duration_ms", Value: time.Since(start).Milliseconds()})
		if s.metrics != nil {
			s.metrics.Firings.WithLabelValues("failure").Inc()
		}
		return err
	}

	if s.metrics != nil {
		s.metrics.Firings.WithLabelValues("success").Inc()
		s.metrics.FiringDuration.Observe(time.Since(start).Seconds())
	}
	s.logger.Info("manual firing completed",
		logger.Field{Key: "job_id", Value: job.ID},
		logger.Field{Key: "records", Value: res.Records},
		logger.Field{Key: "files", Value: len(res.Files)},
		logger.Field{Key: "duration_ms", Value: time.Since(start).Milliseconds()})
	return nil
}

// ListJobs returns all stored jobs ordered by ID.
func (s *Scheduler) ListJobs(ctx context.Context) ([]JobDescriptor, error) {
	jobs, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	return jobs, nil
}

// IsNotFound reports whether err means the addressed job does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrJobNotFound)
}
