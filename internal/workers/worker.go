package workers

import (
	"context"
	"fmt"
	"time"

	"github.com/aatumaykin/ytscout/internal/logger"
)

// worker pulls tasks from the queue until the pool is stopped.
func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()

	p.logger.DebugCtx(p.ctx, "worker started",
		logger.Field{Key: "worker_id", Value: id})

	for {
		select {
		case task := <-p.taskQueue:
			p.processTask(id, task)

		case <-p.ctx.Done():
			p.logger.DebugCtx(p.ctx, "worker stopping",
				logger.Field{Key: "worker_id", Value: id})
			return
		}
	}
}

// processTask runs a single task and delivers its result.
func (p *WorkerPool) processTask(workerID int, task Task) {
	start := time.Now()

	p.logger.DebugCtx(p.ctx, "processing task",
		logger.Field{Key: "worker_id", Value: workerID},
		logger.Field{Key: "task_id", Value: task.ID},
		logger.Field{Key: "job_id", Value: task.JobID})

	err := p.executeTask(task)

	result := Result{
		TaskID:      task.ID,
		JobID:       task.JobID,
		Error:       err,
		Duration:    time.Since(start),
		CompletedAt: time.Now(),
	}

	if result.Error != nil {
		p.incrementFailed()
	} else {
		p.incrementCompleted()
	}
	p.recordDuration(result.Duration)

	// resultCh is buffered and only closed after wg.Wait in Stop, so this
	// send cannot be lost.
	p.resultCh <- result

	p.logger.DebugCtx(p.ctx, "task processed",
		logger.Field{Key: "worker_id", Value: workerID},
		logger.Field{Key: "task_id", Value: task.ID},
		logger.Field{Key: "duration_ms", Value: result.Duration.Milliseconds()},
		logger.Field{Key: "error", Value: result.Error})
}

// executeTask runs the task body under its timeout, converting panics into
// errors so one bad firing cannot take a worker down.
func (p *WorkerPool) executeTask(task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
			p.logger.Error("task panic recovered", err,
				logger.Field{Key: "task_id", Value: task.ID},
				logger.Field{Key: "job_id", Value: task.JobID})
		}
	}()

	// The execution context is detached from the pool context so a graceful
	// Stop lets the running task finish; the timeout still bounds it.
	ctx := context.Background()
	if task.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, task.Timeout)
		defer cancel()
	}

	if task.Execute == nil {
		return fmt.Errorf("task %s has no execute function", task.ID)
	}
	return task.Execute(ctx)
}
