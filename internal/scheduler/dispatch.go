package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/aatumaykin/ytscout/internal/logger"
	"github.com/aatumaykin/ytscout/internal/workers"
)

// tick dispatches every job due at now. Fetch failures never surface here;
// they arrive later on the result channel. A store failure aborts the loop.
func (s *Scheduler) tick(ctx context.Context, now time.Time) error {
	due, err := s.store.ListDue(ctx, now)
	if err != nil {
		return fmt.Errorf("list due jobs: %w", err)
	}
	if len(due) > 0 {
		s.logger.Debug("dispatch tick",
			logger.Field{Key: "due", Value: len(due)},
			logger.Field{Key: "queued", Value: s.pool.QueueSize()})
	}

	for _, stale := range due {
		if !s.tryAcquire(stale.ID) {
			// Previous firing still running, leave the fire time alone; the
			// completion handler reschedules.
			s.logger.Warn("firing skipped, previous run still in flight",
				logger.Field{Key: "job_id", Value: stale.ID})
			if s.metrics != nil {
				s.metrics.OverlapSkips.Inc()
			}
			continue
		}

		// The due list is a snapshot; a firing that finished since ListDue
		// may already have rescheduled this job. Re-read before acting.
		job, err := s.store.Get(ctx, stale.ID)
		if err != nil {
			s.release(stale.ID)
			if errors.Is(err, ErrJobNotFound) {
				continue
			}
			return fmt.Errorf("load due job %s: %w", stale.ID, err)
		}
		if job.State != StateActive || job.NextFireTime == nil || job.NextFireTime.After(now) {
			s.release(job.ID)
			continue
		}

		if now.Sub(*job.NextFireTime) > s.cfg.MisfireGrace {
			if err := s.handleMisfire(ctx, job, now); err != nil {
				s.release(job.ID)
				return err
			}
			s.release(job.ID)
			continue
		}

		s.dispatch(ctx, job)
	}
	return nil
}

// handleMisfire skips a firing that is past the grace window and reschedules
// from now, so a long downtime produces one skip instead of a burst.
func (s *Scheduler) handleMisfire(ctx context.Context, job JobDescriptor, now time.Time) error {
	overdue := now.Sub(*job.NextFireTime)

	next, rerr := s.resolver.Resolve(job.Schedule, now)
	if rerr != nil {
		s.logger.Warn("schedule fell back to daily default",
			logger.Field{Key: "job_id", Value: job.ID},
			logger.Field{Key: "reason", Value: rerr.Error()})
	}
	if err := s.store.SetNextFireTime(ctx, job.ID, &next); err != nil {
		return fmt.Errorf("reschedule misfired job %s: %w", job.ID, err)
	}

	s.logger.Warn("misfired firing skipped",
		logger.Field{Key: "job_id", Value: job.ID},
		logger.Field{Key: "overdue", Value: overdue.String()},
		logger.Field{Key: "next_fire_time", Value: next.Format(time.RFC3339)})
	if s.metrics != nil {
		s.metrics.Misfires.Inc()
	}
	return nil
}

// dispatch hands a due job to the pool. The in-flight marker for job.ID is
// held until handleResult releases it. The submission is bounded by ctx: with
// a full task queue a shutdown unblocks the send instead of wedging the loop.
func (s *Scheduler) dispatch(ctx context.Context, job JobDescriptor) {
	firingID := uuid.NewString()

	s.logger.Info("dispatching job",
		logger.Field{Key: "job_id", Value: job.ID},
		logger.Field{Key: "firing_id", Value: firingID},
		logger.Field{Key: "operation", Value: string(job.Operation)},
		logger.Field{Key: "target", Value: job.Target})

	op, target, include := job.Operation, job.Target, job.IncludeComments
	err := s.pool.SubmitWithContext(ctx, workers.Task{
		ID:      firingID,
		JobID:   job.ID,
		Timeout: s.cfg.FireTimeout,
		Execute: func(ctx context.Context) error {
			res, err := s.fetcher.Fetch(ctx, op, target, include)
			if err != nil {
				return err
			}
			s.logger.Info("fetch completed",
				logger.Field{Key: "job_id", Value: job.ID},
				logger.Field{Key: "records", Value: res.Records},
				logger.Field{Key: "files", Value: len(res.Files)})
			return nil
		},
	})
	if err != nil {
		// Shutting down; the stored fire time is untouched, so the job is
		// still due on the next start.
		s.release(job.ID)
		s.logger.Warn("firing dropped, scheduler stopping",
			logger.Field{Key: "job_id", Value: job.ID},
			logger.Field{Key: "firing_id", Value: firingID})
	}
}

// handleResult runs on the result loop for every finished firing: it records
// the outcome, computes the next fire time from the completion time, and
// releases the per-job in-flight marker.
func (s *Scheduler) handleResult(res workers.Result) {
	defer s.release(res.JobID)

	// Store writes here use a fresh context: the run context may already be
	// cancelled during shutdown, and losing the final reschedule would make
	// the job fire again immediately on restart.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	status := "success"
	if res.Error != nil {
		status = "failure"
		s.logger.ErrorCtx(ctx, "job firing failed", res.Error,
			logger.Field{Key: "job_id", Value: res.JobID},
			logger.Field{Key: "firing_id", Value: res.TaskID},
			logger.Field{Key: "duration_ms", Value: res.Duration.Milliseconds()})
	}
	if s.metrics != nil {
		s.metrics.Firings.WithLabelValues(status).Inc()
		s.metrics.FiringDuration.Observe(res.Duration.Seconds())
	}

	job, err := s.store.Get(ctx, res.JobID)
	if err != nil {
		if errors.Is(err, ErrJobNotFound) {
			// Removed while running; nothing to reschedule.
			return
		}
		s.fail(fmt.Errorf("load job %s after firing: %w", res.JobID, err))
		return
	}
	if job.State == StatePaused {
		// Paused while running: stays dormant until resumed.
		return
	}

	next, rerr := s.resolver.Resolve(job.Schedule, res.CompletedAt)
	if rerr != nil {
		s.logger.Warn("schedule fell back to daily default",
			logger.Field{Key: "job_id", Value: job.ID},
			logger.Field{Key: "reason", Value: rerr.Error()})
	}
	if err := s.store.SetNextFireTime(ctx, job.ID, &next); err != nil {
		s.fail(fmt.Errorf("reschedule job %s: %w", job.ID, err))
		return
	}

	s.logger.Info("job rescheduled",
		logger.Field{Key: "job_id", Value: job.ID},
		logger.Field{Key: "status", Value: status},
		logger.Field{Key: "next_fire_time", Value: next.Format(time.RFC3339)})
}
