package queue

import (
	"context"
	"fmt"
	"time"

	"taskflow/internal/domain"
)

// DurableQueue keeps jobs in an EmailJobRepository. Claimed jobs are leased;
// a lease that runs out returns the job to the queue via RequeueExpired.
type DurableQueue struct {
	store  domain.EmailJobRepository
	policy RetryPolicy
	lease  time.Duration
	poll   time.Duration
	now    func() time.Time
	wake   chan struct{}
}

// DurableOption configures a DurableQueue.
type DurableOption func(*DurableQueue)

// WithLease sets how long a claimed job stays invisible to other workers.
func WithLease(d time.Duration) DurableOption {
	return func(q *DurableQueue) { q.lease = d }
}

// WithPollInterval sets how often Dequeue checks for due jobs.
func WithPollInterval(d time.Duration) DurableOption {
	return func(q *DurableQueue) { q.poll = d }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) DurableOption {
	return func(q *DurableQueue) { q.now = now }
}

// NewDurableQueue creates a queue over store.
func NewDurableQueue(store domain.EmailJobRepository, policy RetryPolicy, opts ...DurableOption) *DurableQueue {
	q := &DurableQueue{
		store:  store,
		policy: policy,
		lease:  5 * time.Minute,
		poll:   time.Second,
		now:    time.Now,
		wake:   make(chan struct{}, 1),
	}
	for _, o := range opts {
		o(q)
	}
	return q
}

// Enqueue stores the job as due now and wakes one waiting Dequeue.
func (q *DurableQueue) Enqueue(ctx context.Context, job domain.EmailJob) error {
	if _, err := q.store.Insert(ctx, job, q.now()); err != nil {
		return fmt.Errorf("enqueue email job: %w", err)
	}
	select {
	case q.wake <- struct{}{}:
	default:
	}
	return nil
}

// Dequeue claims the oldest due job under a lease, polling until one
// appears or ctx is done.
func (q *DurableQueue) Dequeue(ctx context.Context) (*Delivery, error) {
	ticker := time.NewTicker(q.poll)
	defer ticker.Stop()
	for {
		rec, err := q.store.ClaimDue(ctx, q.now(), q.lease)
		if err != nil {
			return nil, fmt.Errorf("claim email job: %w", err)
		}
		if rec != nil {
			return &Delivery{
				ID:      rec.ID,
				Job:     domain.EmailJob{NotificationID: rec.NotificationID, Recipient: rec.Recipient},
				Attempt: rec.Attempts,
			}, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-q.wake:
		case <-ticker.C:
		}
	}
}

// Ack marks the job DONE.
func (q *DurableQueue) Ack(ctx context.Context, d *Delivery) error {
	return q.store.MarkDone(ctx, d.ID)
}

// Nack reschedules the job with backoff or marks it DEAD.
func (q *DurableQueue) Nack(ctx context.Context, d *Delivery, cause error) (bool, error) {
	msg := "unknown error"
	if cause != nil {
		msg = cause.Error()
	}
	if q.policy.Exhausted(d.Attempt, cause) {
		return true, q.store.Bury(ctx, d.ID, msg)
	}
	return false, q.store.Reschedule(ctx, d.ID, q.now().Add(q.policy.Delay(d.Attempt)), msg)
}

// RequeueExpired returns jobs with lapsed leases to the queue.
func (q *DurableQueue) RequeueExpired(ctx context.Context) (int64, error) {
	return q.store.RequeueExpired(ctx, q.now())
}
