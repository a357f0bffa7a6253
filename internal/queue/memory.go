package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"taskflow/internal/domain"
)

// ErrQueueClosed is returned by Enqueue after Close.
var ErrQueueClosed = errors.New("email queue closed")

// MemoryQueue is a channel-backed Queue. Jobs do not survive a restart.
type MemoryQueue struct {
	ch     chan *Delivery
	policy RetryPolicy

	done      chan struct{}
	closeOnce sync.Once

	mu   sync.Mutex
	dead []*Delivery
}

// NewMemoryQueue creates a queue that buffers up to size jobs.
func NewMemoryQueue(size int, policy RetryPolicy) *MemoryQueue {
	return &MemoryQueue{ch: make(chan *Delivery, size), policy: policy, done: make(chan struct{})}
}

// Enqueue buffers the job, blocking while the buffer is full.
func (q *MemoryQueue) Enqueue(ctx context.Context, job domain.EmailJob) error {
	d := &Delivery{ID: domain.NewID(), Job: job}
	select {
	case <-q.done:
		return ErrQueueClosed
	default:
	}
	select {
	case q.ch <- d:
		return nil
	case <-q.done:
		return ErrQueueClosed
	case <-ctx.Done():
		return fmt.Errorf("enqueue email job: %w", ctx.Err())
	}
}

// Close stops accepting jobs. Retries still waiting for their backoff
// are moved to Dead instead of being re-offered.
func (q *MemoryQueue) Close() {
	q.closeOnce.Do(func() { close(q.done) })
}

// Dequeue blocks until a job is buffered or ctx is done.
func (q *MemoryQueue) Dequeue(ctx context.Context) (*Delivery, error) {
	select {
	case d := <-q.ch:
		d.Attempt++
		return d, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Ack is a no-op; a dequeued job is already gone from the buffer.
func (q *MemoryQueue) Ack(context.Context, *Delivery) error { return nil }

// Nack re-offers the job once its backoff delay has passed.
func (q *MemoryQueue) Nack(_ context.Context, d *Delivery, cause error) (bool, error) {
	if q.policy.Exhausted(d.Attempt, cause) {
		q.bury(d)
		return true, nil
	}
	time.AfterFunc(q.policy.Delay(d.Attempt), func() {
		select {
		case q.ch <- d:
		case <-q.done:
			q.bury(d)
		}
	})
	return false, nil
}

func (q *MemoryQueue) bury(d *Delivery) {
	q.mu.Lock()
	q.dead = append(q.dead, d)
	q.mu.Unlock()
}

// Dead returns the deliveries that were abandoned.
func (q *MemoryQueue) Dead() []*Delivery {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]*Delivery(nil), q.dead...)
}
