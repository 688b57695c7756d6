// Package queue is the execution substrate behind the dispatcher: a
// bounded channel drained by a fixed worker pool. Handlers may request
// a retry; the queue schedules the next attempt with exponential
// backoff and records the terminal outcome when attempts run out.
package queue

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/forgebot/forgebot/internal/handlers"
	"github.com/forgebot/forgebot/internal/metrics"
)

var (
	ErrQueueFull = errors.New("task queue is full")
	ErrStopped   = errors.New("task queue is stopped")
)

// defaultBackoff is the delay before attempt n+1 when the handler did
// not ask for a specific one: 60s, 120s, 240s, ...
func defaultBackoff(attempt int) time.Duration {
	return time.Minute << attempt
}

// ResultRecorder persists terminal task outcomes. Satisfied by the
// storage layer.
type ResultRecorder interface {
	SaveTaskResult(ctx context.Context, task handlers.Task, outcome handlers.Outcome) error
}

// Queue runs tasks on a fixed pool of workers.
type Queue struct {
	tasks    chan handlers.Task
	registry *handlers.Registry
	deps     handlers.Deps
	recorder ResultRecorder
	metrics  *metrics.Metrics
	logger   *slog.Logger
	workers  int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	timers  map[*time.Timer]struct{}
	stopped bool
}

func New(workers, size int, registry *handlers.Registry, deps handlers.Deps, recorder ResultRecorder, m *metrics.Metrics, logger *slog.Logger) *Queue {
	if workers < 1 {
		workers = 1
	}
	if size < 1 {
		size = 64
	}
	return &Queue{
		tasks:    make(chan handlers.Task, size),
		registry: registry,
		deps:     deps,
		recorder: recorder,
		metrics:  m,
		logger:   logger,
		workers:  workers,
		timers:   make(map[*time.Timer]struct{}),
	}
}

// Start launches the worker pool. The context bounds every handler run.
func (q *Queue) Start(ctx context.Context) {
	q.ctx, q.cancel = context.WithCancel(ctx)
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(i)
	}
	q.logger.Info("task queue started", "workers", q.workers, "capacity", cap(q.tasks))
}

// Stop cancels pending retries, stops accepting tasks, and waits for
// in-flight handler runs to finish.
func (q *Queue) Stop() {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return
	}
	q.stopped = true
	for t := range q.timers {
		t.Stop()
	}
	q.timers = map[*time.Timer]struct{}{}
	q.mu.Unlock()

	close(q.tasks)
	q.wg.Wait()
	if q.cancel != nil {
		q.cancel()
	}
	q.logger.Info("task queue stopped")
}

// Submit enqueues a task without blocking. A full queue is the caller's
// signal to shed load, not to wait. The lock is held across the send:
// Stop closes the channel only after marking the queue stopped, so a
// send can never race the close.
func (q *Queue) Submit(task handlers.Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.stopped {
		return ErrStopped
	}

	select {
	case q.tasks <- task:
		q.metrics.QueueDepth.Inc()
		return nil
	default:
		return ErrQueueFull
	}
}

// RunNow executes a task synchronously, compressing retry delays to
// nothing. Used by the CLI, where waiting out a backoff makes no sense.
func (q *Queue) RunNow(ctx context.Context, task handlers.Task) handlers.Outcome {
	for {
		outcome := q.execute(ctx, task)
		if outcome.Retry == nil || task.LastAttempt() {
			q.record(ctx, task, outcome)
			return outcome
		}
		task.Attempt++
	}
}

func (q *Queue) worker(id int) {
	defer q.wg.Done()
	logger := q.logger.With("worker", id)
	for task := range q.tasks {
		q.metrics.QueueDepth.Dec()
		q.process(task, logger)
	}
}

// process runs one attempt and either schedules the next one or records
// the terminal outcome.
func (q *Queue) process(task handlers.Task, logger *slog.Logger) {
	outcome := q.execute(q.ctx, task)

	if outcome.Retry != nil && !task.LastAttempt() {
		delay := outcome.Retry.Delay
		if delay <= 0 {
			delay = defaultBackoff(task.Attempt)
		}
		logger.Info("task retry scheduled",
			"handler", task.Handler, "attempt", task.Attempt, "delay", delay)
		q.metrics.TaskRetries.Inc()
		q.schedule(task, delay)
		return
	}

	q.record(q.ctx, task, outcome)
}

func (q *Queue) execute(ctx context.Context, task handlers.Task) handlers.Outcome {
	handler, ok := q.registry.Build(task.Handler, q.deps)
	if !ok {
		return handlers.Outcome{Message: "unknown handler kind", Err: errors.New("unknown handler kind")}
	}

	start := time.Now()
	outcome := handler.Run(ctx, task)
	elapsed := time.Since(start)

	q.metrics.TaskDuration.WithLabelValues(string(task.Handler)).Observe(elapsed.Seconds())
	result := "failure"
	switch {
	case outcome.Retry != nil && !task.LastAttempt():
		result = "retry"
	case outcome.Success:
		result = "success"
	}
	q.metrics.TasksCompleted.WithLabelValues(string(task.Handler), result).Inc()

	q.logger.Info("task attempt finished",
		"handler", task.Handler,
		"job", task.JobType(),
		"attempt", task.Attempt,
		"result", result,
		"duration", elapsed)
	return outcome
}

// schedule re-enqueues the task's next attempt after the delay. The
// timer set lets Stop cancel retries that have not fired yet.
func (q *Queue) schedule(task handlers.Task, delay time.Duration) {
	task.Attempt++

	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return
	}
	var timer *time.Timer
	timer = time.AfterFunc(delay, func() {
		q.mu.Lock()
		delete(q.timers, timer)
		q.mu.Unlock()

		if err := q.Submit(task); err != nil {
			q.logger.Error("failed to re-enqueue retry", "handler", task.Handler, "error", err)
			q.record(q.ctx, task, handlers.Outcome{Message: "retry could not be enqueued", Err: err})
		}
	})
	q.timers[timer] = struct{}{}
	q.mu.Unlock()
}

func (q *Queue) record(ctx context.Context, task handlers.Task, outcome handlers.Outcome) {
	if q.recorder == nil {
		return
	}
	if err := q.recorder.SaveTaskResult(ctx, task, outcome); err != nil {
		q.logger.Error("failed to persist task result", "handler", task.Handler, "error", err)
	}
}
