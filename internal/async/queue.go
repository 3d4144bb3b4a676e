// Package async runs ingestion jobs on a single background worker so
// uploads return immediately and documents are processed strictly in
// submission order.
package async

import (
	"context"
	"log/slog"
	"sync"
)

// Job is one unit of background work, keyed by the source filename for
// logging.
type Job struct {
	Filename string
	Run      func(ctx context.Context) error
}

// Snapshot is a point-in-time view of queue progress. Counters cover the
// current batch only; they reset once the queue drains.
type Snapshot struct {
	Submitted int
	Completed int
	Pending   int
	Percent   int
	Drained   bool
}

// Queue is a FIFO work queue served by exactly one worker goroutine.
// Enqueue never blocks the caller; the backlog grows as needed.
type Queue struct {
	logger *slog.Logger

	mu      sync.Mutex
	cond    *sync.Cond
	jobs    []Job
	closed  bool
	stopped chan struct{}

	submitted int
	completed int
}

func NewQueue(logger *slog.Logger) *Queue {
	q := &Queue{
		logger:  logger,
		stopped: make(chan struct{}),
	}
	q.cond = sync.NewCond(&q.mu)
	go q.worker()
	return q
}

// Enqueue appends a job and returns immediately. Jobs submitted after
// Shutdown are dropped.
func (q *Queue) Enqueue(job Job) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.logger.Warn("queue closed, dropping job", "filename", job.Filename)
		return
	}
	q.jobs = append(q.jobs, job)
	q.submitted++
	q.cond.Signal()
}

// Progress reports the current batch counters.
func (q *Queue) Progress() Snapshot {
	q.mu.Lock()
	defer q.mu.Unlock()
	s := Snapshot{
		Submitted: q.submitted,
		Completed: q.completed,
		Pending:   q.submitted - q.completed,
	}
	if s.Submitted > 0 {
		s.Percent = s.Completed * 100 / s.Submitted
	}
	s.Drained = s.Submitted == 0
	return s
}

func (q *Queue) worker() {
	defer close(q.stopped)
	for {
		q.mu.Lock()
		for len(q.jobs) == 0 && !q.closed {
			q.cond.Wait()
		}
		if len(q.jobs) == 0 && q.closed {
			q.mu.Unlock()
			return
		}
		job := q.jobs[0]
		q.jobs = q.jobs[1:]
		q.mu.Unlock()

		if err := job.Run(context.Background()); err != nil {
			q.logger.Error("job failed", "filename", job.Filename, "error", err)
		} else {
			q.logger.Info("job completed", "filename", job.Filename)
		}

		q.mu.Lock()
		q.completed++
		// Batch boundary: once everything submitted so far is done the
		// counters start over, so percentages track the latest burst of
		// uploads instead of the process lifetime.
		if q.completed >= q.submitted {
			q.submitted = 0
			q.completed = 0
		}
		q.mu.Unlock()
	}
}

// Shutdown stops intake and waits for the backlog to drain, or for ctx to
// expire, whichever comes first.
func (q *Queue) Shutdown(ctx context.Context) error {
	q.mu.Lock()
	q.closed = true
	q.cond.Broadcast()
	q.mu.Unlock()

	select {
	case <-q.stopped:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
