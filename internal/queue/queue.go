// Package queue delivers email jobs asynchronously with capped exponential
// retry. Producers call Enqueue; a Worker drains the queue.
package queue

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"

	"taskflow/internal/domain"
)

// Delivery is one claimed attempt at a job. Attempt starts at 1.
type Delivery struct {
	ID      string
	Job     domain.EmailJob
	Attempt int
}

// Queue is the producer/consumer contract shared by all backends.
type Queue interface {
	// Enqueue makes the job available for delivery.
	Enqueue(ctx context.Context, job domain.EmailJob) error
	// Dequeue blocks until a job is due or ctx is done.
	Dequeue(ctx context.Context) (*Delivery, error)
	// Ack marks the delivery as successful.
	Ack(ctx context.Context, d *Delivery) error
	// Nack records a failed attempt. The job is rescheduled with backoff
	// unless it has used up its attempts, in which case abandoned is true.
	Nack(ctx context.Context, d *Delivery, cause error) (abandoned bool, err error)
}

// RetryPolicy controls rescheduling of failed deliveries.
type RetryPolicy struct {
	MaxAttempts         int
	InitialInterval     time.Duration
	MaxInterval         time.Duration
	Multiplier          float64
	RandomizationFactor float64
}

// DefaultRetryPolicy returns the policy used when nothing is configured.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:         5,
		InitialInterval:     2 * time.Second,
		MaxInterval:         5 * time.Minute,
		Multiplier:          2,
		RandomizationFactor: 0.2,
	}
}

// Delay returns how long to wait after the given failed attempt (1-based).
// The result never exceeds MaxInterval.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialInterval
	b.MaxInterval = p.MaxInterval
	b.Multiplier = p.Multiplier
	b.RandomizationFactor = p.RandomizationFactor
	b.Reset()

	var d time.Duration
	for i := 0; i < max(attempt, 1); i++ {
		d = b.NextBackOff()
	}
	if p.MaxInterval > 0 && d > p.MaxInterval {
		d = p.MaxInterval
	}
	return d
}

// Exhausted reports whether a job that just failed its attempt-th try
// should be abandoned.
func (p RetryPolicy) Exhausted(attempt int, cause error) bool {
	var perm *backoff.PermanentError
	if errors.As(cause, &perm) {
		return true
	}
	return p.MaxAttempts > 0 && attempt >= p.MaxAttempts
}

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	return backoff.Permanent(err)
}
