// Package taskqueue implements the background task engine of spec §4.4:
// an in-memory FIFO queue with exactly one worker, persisted history,
// and a progress-callback contract callable from any goroutine.
// Grounded on the teacher's progress-channel/sync.WaitGroup idioms used
// throughout api_service.go, generalized from "fan out N HTTP calls" to
// "run one task body to completion."
package taskqueue

import (
	"context"
	"fmt"

	"github.com/danmaku-hub/aggregator/internal/domain"
	"github.com/danmaku-hub/aggregator/internal/storage"
	"github.com/danmaku-hub/aggregator/pkg/logger"
)

// TaskFunc is a task body. It receives a bound progress callback the
// first time the worker picks it up — this avoids a task capturing any
// queue-internal state (spec §9: "lambda-wrapped progress callbacks
// capturing loop state" replaced by an explicit bound callback).
type TaskFunc func(ctx context.Context, progress domain.ProgressCallback) error

type job struct {
	taskID int64
	title  string
	fn     TaskFunc
}

// Engine is the single-worker FIFO queue. Cancel is not supported
// (spec §4.4 documented limitation); Shutdown lets the in-flight task
// finish before the worker loop exits.
type Engine struct {
	db   *storage.DB
	jobs chan job
	done chan struct{}
}

func New(db *storage.DB, queueDepth int) *Engine {
	if queueDepth <= 0 {
		queueDepth = 256
	}
	return &Engine{
		db:   db,
		jobs: make(chan job, queueDepth),
		done: make(chan struct{}),
	}
}

// Run starts the single worker loop. Blocks until ctx is cancelled or,
// after Shutdown, until every queued job has run; the currently-running
// task is allowed to finish.
func (e *Engine) Run(ctx context.Context) {
	defer close(e.done)
	for {
		select {
		case <-ctx.Done():
			return
		case j, ok := <-e.jobs:
			if !ok {
				return
			}
			e.runJob(ctx, j)
		}
	}
}

// Shutdown closes the job queue and waits for the worker loop to exit.
// Jobs already queued are not discarded: the worker runs each of them,
// in order, before it exits.
func (e *Engine) Shutdown() {
	close(e.jobs)
	<-e.done
}

// Submit enqueues a task body under title, returning its persisted
// task id immediately (spec §4.4 "Submit(coroutine_factory, title) ->
// task_id").
func (e *Engine) Submit(title string, fn TaskFunc) (int64, error) {
	taskID, err := e.db.CreateTaskHistory(title)
	if err != nil {
		return 0, fmt.Errorf("taskqueue: create task history: %w", err)
	}

	select {
	case e.jobs <- job{taskID: taskID, title: title, fn: fn}:
		return taskID, nil
	default:
		// queue is full: record immediate failure rather than blocking the caller
		_ = e.db.SetTaskStatus(taskID, domain.TaskStatusFailed, "queue full")
		return taskID, fmt.Errorf("taskqueue: queue full")
	}
}

func (e *Engine) runJob(ctx context.Context, j job) {
	if err := e.db.SetTaskStatus(j.taskID, domain.TaskStatusRunning, "started"); err != nil {
		logger.Warnf("taskqueue: mark task %d running: %v", j.taskID, err)
	}

	progress := func(pct int, description string) {
		if err := e.db.UpdateTaskProgress(j.taskID, pct, description); err != nil {
			logger.Warnf("taskqueue: update task %d progress: %v", j.taskID, err)
		}
	}

	err := j.fn(ctx, progress)
	if err != nil {
		logger.Errorf("taskqueue: task %d (%s) failed: %v", j.taskID, j.title, err)
		_ = e.db.SetTaskStatus(j.taskID, domain.TaskStatusFailed, err.Error())
		return
	}
	_ = e.db.SetTaskStatus(j.taskID, domain.TaskStatusCompleted, "completed")
}
