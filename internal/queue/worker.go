package queue

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"taskflow/internal/domain"
)

// Handler delivers one job. A returned error triggers a retry unless it
// was wrapped with Permanent.
type Handler func(ctx context.Context, job domain.EmailJob) error

// Worker pulls one job at a time from a Queue.
type Worker struct {
	queue  Queue
	handle Handler
	logger *slog.Logger
}

// NewWorker creates a Worker.
func NewWorker(q Queue, h Handler, logger *slog.Logger) *Worker {
	return &Worker{queue: q, handle: h, logger: logger}
}

// Run processes jobs until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("email worker started")
	defer w.logger.Info("email worker stopped")
	for {
		d, err := w.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			w.logger.Error("dequeue failed", "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}
		w.Process(ctx, d)
	}
}

// Process runs the handler for one delivery and settles it.
func (w *Worker) Process(ctx context.Context, d *Delivery) {
	log := w.logger.With("job_id", d.ID, "notification_id", d.Job.NotificationID, "attempt", d.Attempt)

	err := w.handle(ctx, d.Job)
	if err == nil {
		if ackErr := w.queue.Ack(ctx, d); ackErr != nil {
			log.Error("ack failed", "error", ackErr)
			return
		}
		log.Debug("email delivered")
		return
	}

	abandoned, nackErr := w.queue.Nack(ctx, d, err)
	switch {
	case nackErr != nil:
		log.Error("nack failed", "error", nackErr, "cause", err)
	case abandoned:
		var nf *domain.NotFoundError
		if errors.As(err, &nf) {
			log.Warn("email job abandoned, notification gone", "error", err)
			return
		}
		log.Error("email job abandoned", "error", err)
	default:
		log.Warn("email delivery failed, will retry", "error", err)
	}
}
