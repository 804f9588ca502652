package engine

import (
	"context"
	"sync"

	"github.com/roach88/tasklog/internal/ir"
)

// job is one submitted event waiting for the Run loop.
type job struct {
	event   ir.Event
	pending *Pending
}

// Pending is the future returned by Controller.Submit.
type Pending struct {
	done    chan struct{}
	outcome Outcome
	err     error
}

func newPending() *Pending {
	return &Pending{done: make(chan struct{})}
}

// Done is closed once the event has been processed or refused.
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the event has been processed or ctx is done.
// Giving up on the wait does not withdraw the event.
func (p *Pending) Wait(ctx context.Context) (Outcome, error) {
	select {
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	case <-p.done:
		return p.outcome, p.err
	}
}

// resolve must be called exactly once.
func (p *Pending) resolve(out Outcome, err error) {
	p.outcome = out
	p.err = err
	close(p.done)
}

// jobQueue is a thread-safe FIFO queue of submitted events.
//
// The queue is unbounded so Submit never blocks the presentation layer, even
// while a long replay holds the Run loop.
//
// A buffered signal channel (size 1) wakes the Run loop; multiple enqueues
// coalesce into one signal and the loop drains with TryDequeue.
type jobQueue struct {
	mu     sync.Mutex
	jobs   []job
	closed bool
	signal chan struct{}
}

func newJobQueue() *jobQueue {
	return &jobQueue{
		jobs:   make([]job, 0, 16),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds a job at the back. Returns false if the queue is closed.
func (q *jobQueue) Enqueue(j job) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.jobs = append(q.jobs, j)

	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// TryDequeue removes the front job without blocking.
func (q *jobQueue) TryDequeue() (job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.jobs) == 0 {
		return job{}, false
	}

	j := q.jobs[0]
	// Clear the slot so the backing array does not pin the pending future.
	q.jobs[0] = job{}
	if len(q.jobs) == 1 {
		q.jobs = q.jobs[:0]
	} else {
		q.jobs = q.jobs[1:]
	}

	return j, true
}

// Wait returns a channel that signals when jobs may be available.
// It is closed once the queue is closed.
func (q *jobQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the number of waiting jobs.
func (q *jobQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

// Drained reports whether the queue is closed and empty.
func (q *jobQueue) Drained() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed && len(q.jobs) == 0
}

// Close stops accepting jobs and wakes the Run loop.
func (q *jobQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}
