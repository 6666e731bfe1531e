// Package notifications delivers best-effort side effects of post writes: Slack messages and
// Redis post events. Nothing in here may fail or slow down the request that caused it.
package notifications

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"beam/internal/middleware"
	"beam/internal/observability"

	"github.com/sourcegraph/conc/pool"
)

const (
	defaultWorkers    = 2
	defaultQueueSize  = 256
	defaultJobTimeout = 10 * time.Second
)

// Job is one unit of fire-and-forget work. Channel labels metrics and logs.
type Job struct {
	Channel string
	Run     func(ctx context.Context) error
}

// Dispatcher runs jobs on a fixed set of workers fed by a bounded queue.
// Submit never blocks: when the queue is full the job is dropped and counted.
type Dispatcher struct {
	queue   chan Job
	workers *pool.Pool
	timeout time.Duration

	mu      sync.RWMutex
	closed  bool
	dropped atomic.Int64
}

// NewDispatcher starts workers goroutines draining a queue of queueSize jobs.
func NewDispatcher(workers, queueSize int) *Dispatcher {
	if workers <= 0 {
		workers = defaultWorkers
	}
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	d := &Dispatcher{
		queue:   make(chan Job, queueSize),
		workers: pool.New().WithMaxGoroutines(workers),
		timeout: defaultJobTimeout,
	}
	for i := 0; i < workers; i++ {
		d.workers.Go(d.work)
	}
	return d
}

// WithTimeout sets the deadline each job runs under.
func (d *Dispatcher) WithTimeout(timeout time.Duration) *Dispatcher {
	if timeout > 0 {
		d.timeout = timeout
	}
	return d
}

// Submit enqueues a job. It reports false when the job was dropped.
func (d *Dispatcher) Submit(job Job) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.drop(job, "closed")
		return false
	}
	select {
	case d.queue <- job:
		observability.NotificationQueueDepth.Inc()
		return true
	default:
		d.drop(job, "queue_full")
		return false
	}
}

// Dropped is the number of jobs rejected so far.
func (d *Dispatcher) Dropped() int64 {
	return d.dropped.Load()
}

// Close stops accepting jobs and waits for queued ones to finish.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	d.workers.Wait()
}

func (d *Dispatcher) drop(job Job, reason string) {
	d.dropped.Add(1)
	observability.NotificationsTotal.WithLabelValues(job.Channel, "dropped").Inc()
	middleware.Logger.Warn("notification dropped", "channel", job.Channel, "reason", reason)
}

func (d *Dispatcher) work() {
	for job := range d.queue {
		observability.NotificationQueueDepth.Dec()
		d.run(job)
	}
}

func (d *Dispatcher) run(job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	err := safeRun(ctx, job)
	if err != nil {
		observability.NotificationsTotal.WithLabelValues(job.Channel, "error").Inc()
		middleware.Logger.Warn("notification failed", "channel", job.Channel, "error", err)
		return
	}
	observability.NotificationsTotal.WithLabelValues(job.Channel, "ok").Inc()
}

func safeRun(ctx context.Context, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
			middleware.Logger.Error("notification job panicked", "channel", job.Channel, "panic", r, "stack", string(debug.Stack()))
		}
	}()
	return job.Run(ctx)
}
