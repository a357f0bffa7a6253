package app

import (
	"context"
	"fmt"
	"log/slog"

	"taskflow/internal/queue"
)

// recoverEmailJobs returns jobs whose worker died mid-delivery to the queue.
// Leases that have not lapsed yet are left to the scheduler.
func recoverEmailJobs(ctx context.Context, q *queue.DurableQueue, logger *slog.Logger) error {
	n, err := q.RequeueExpired(ctx)
	if err != nil {
		return fmt.Errorf("requeue expired email jobs: %w", err)
	}
	if n > 0 {
		logger.Info("requeued abandoned email jobs", "count", n)
	}
	return nil
}
