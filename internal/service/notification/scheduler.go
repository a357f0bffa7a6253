package notification

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"taskflow/internal/domain"
)

// LeaseRequeuer returns jobs with lapsed leases to their queue.
type LeaseRequeuer interface {
	RequeueExpired(ctx context.Context) (int64, error)
}

// Scheduler runs periodic housekeeping: requeueing email jobs abandoned by
// a crashed worker and purging old read notifications.
type Scheduler struct {
	cron          *cron.Cron
	notifications domain.NotificationRepository
	requeuer      LeaseRequeuer
	retention     time.Duration
	logger        *slog.Logger
}

// NewScheduler creates a Scheduler. requeuer may be nil when the queue is
// not durable; retention of zero disables purging.
func NewScheduler(notifications domain.NotificationRepository, requeuer LeaseRequeuer, retention time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cron:          cron.New(),
		notifications: notifications,
		requeuer:      requeuer,
		retention:     retention,
		logger:        logger,
	}
}

// Start registers the jobs on the given cron specs and starts the scheduler.
func (s *Scheduler) Start(ctx context.Context, requeueSpec, purgeSpec string) error {
	if s.requeuer != nil {
		if _, err := s.cron.AddFunc(requeueSpec, func() { s.RequeueExpired(ctx) }); err != nil {
			return fmt.Errorf("schedule requeue %q: %w", requeueSpec, err)
		}
	}
	if s.retention > 0 {
		if _, err := s.cron.AddFunc(purgeSpec, func() { s.PurgeRead(ctx) }); err != nil {
			return fmt.Errorf("schedule purge %q: %w", purgeSpec, err)
		}
	}
	s.cron.Start()
	s.logger.Info("maintenance scheduler started", "jobs", len(s.cron.Entries()))
	return nil
}

// Stop stops the scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("maintenance scheduler stopped")
}

// RequeueExpired runs one requeue pass.
func (s *Scheduler) RequeueExpired(ctx context.Context) {
	n, err := s.requeuer.RequeueExpired(ctx)
	if err != nil {
		s.logger.Error("requeue expired email jobs", "error", err)
		return
	}
	if n > 0 {
		s.logger.Info("requeued expired email jobs", "count", n)
	}
}

// PurgeRead runs one purge pass.
func (s *Scheduler) PurgeRead(ctx context.Context) {
	n, err := s.notifications.DeleteReadBefore(ctx, time.Now().Add(-s.retention))
	if err != nil {
		s.logger.Error("purge read notifications", "error", err)
		return
	}
	if n > 0 {
		s.logger.Info("purged read notifications", "count", n)
	}
}
