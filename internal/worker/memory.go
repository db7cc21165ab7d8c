package worker

import (
	"context"
	"errors"
	"sync"
)

// ErrQueueFull is returned when an in-memory queue cannot accept another job.
var ErrQueueFull = errors.New("ingestion queue is full")

// ErrQueueClosed is returned by operations on a closed queue.
var ErrQueueClosed = errors.New("ingestion queue is closed")

// MemoryQueue is a bounded in-process job queue backed by a channel. It is
// the default transport when Kafka is not configured.
type MemoryQueue struct {
	jobs chan Job

	mu     sync.Mutex
	closed bool
}

// NewMemoryQueue creates a MemoryQueue holding at most size pending jobs.
func NewMemoryQueue(size int) *MemoryQueue {
	if size <= 0 {
		size = 128
	}
	return &MemoryQueue{jobs: make(chan Job, size)}
}

// Enqueue adds a job without blocking. A full queue is an error, so upload
// backpressure reaches the client instead of stalling the handler.
func (q *MemoryQueue) Enqueue(ctx context.Context, job Job) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	// The mutex stays held across the send attempt: Close takes the same
	// mutex before closing the channel, so the send can never hit a closed
	// channel. The send cannot block because it has a default case.
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.jobs <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

// Dequeue blocks until a job arrives, the queue closes, or the context ends.
func (q *MemoryQueue) Dequeue(ctx context.Context) (Job, error) {
	select {
	case job, ok := <-q.jobs:
		if !ok {
			return Job{}, ErrQueueClosed
		}
		return job, nil
	case <-ctx.Done():
		return Job{}, ctx.Err()
	}
}

// Close stops the queue. Jobs already buffered are still delivered.
func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.jobs)
	}
	return nil
}

var _ Queue = (*MemoryQueue)(nil)
