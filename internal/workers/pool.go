package workers

import (
	"context"
	"sync"

	"github.com/aatumaykin/ytscout/internal/logger"
)

// WorkerPool manages a fixed set of goroutine workers pulling tasks from a
// shared queue.
type WorkerPool struct {
	taskQueue chan Task
	resultCh  chan Result
	workers   int
	wg        sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
	logger    *logger.Logger

	mu      sync.RWMutex
	metrics PoolMetrics
}

// NewPool creates a worker pool with the given worker count and queue buffer.
// A non-positive worker count falls back to DefaultPoolSize.
func NewPool(workers int, bufferSize int, log *logger.Logger) *WorkerPool {
	if workers <= 0 {
		workers = DefaultPoolSize
	}
	if bufferSize < 0 {
		bufferSize = DefaultQueueSize
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &WorkerPool{
		taskQueue: make(chan Task, bufferSize),
		resultCh:  make(chan Result, bufferSize),
		workers:   workers,
		ctx:       ctx,
		cancel:    cancel,
		logger:    log,
	}
}

// Start launches the worker goroutines.
func (p *WorkerPool) Start() {
	p.logger.Info("starting worker pool",
		logger.Field{Key: "workers", Value: p.workers},
		logger.Field{Key: "buffer_size", Value: cap(p.taskQueue)})

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// SubmitWithContext sends a task to the pool. It blocks while the queue is
// full and gives up when ctx is done, so a blocked submitter can always be
// unwedged by cancelling its context.
func (p *WorkerPool) SubmitWithContext(ctx context.Context, task Task) error {
	select {
	case p.taskQueue <- task:
		p.incrementSubmitted()
		p.logger.DebugCtx(ctx, "task submitted",
			logger.Field{Key: "task_id", Value: task.ID},
			logger.Field{Key: "job_id", Value: task.JobID})
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Results returns the channel on which completed task results arrive. The
// channel is closed by Stop after the last in-flight result is delivered.
func (p *WorkerPool) Results() <-chan Result {
	return p.resultCh
}

// Stop shuts the pool down. Workers finish the task they are running; queued
// tasks that have not started are dropped. Callers must cancel their
// submission contexts before calling Stop; a task submitted afterwards is
// never picked up.
func (p *WorkerPool) Stop() {
	p.cancel()
	p.wg.Wait()

	metrics := p.Metrics()
	p.logger.Info("worker pool stopped",
		logger.Field{Key: "tasks_submitted", Value: metrics.TasksSubmitted},
		logger.Field{Key: "tasks_completed", Value: metrics.TasksCompleted},
		logger.Field{Key: "tasks_failed", Value: metrics.TasksFailed})

	close(p.resultCh)
}

// WorkerCount returns the configured number of workers.
func (p *WorkerPool) WorkerCount() int {
	return p.workers
}

// QueueSize returns the number of tasks waiting in the queue.
func (p *WorkerPool) QueueSize() int {
	return len(p.taskQueue)
}
