package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"taskflow/internal/domain"
)

var _ domain.EmailJobRepository = (*EmailJobRepo)(nil)

type emailJobRow struct {
	ID             string         `db:"id"`
	NotificationID string         `db:"notification_id"`
	Recipient      string         `db:"recipient"`
	Status         string         `db:"status"`
	Attempts       int            `db:"attempts"`
	NextAttemptAt  int64          `db:"next_attempt_at"`
	LastError      sql.NullString `db:"last_error"`
}

// EmailJobRepo persists email delivery jobs. Times are stored as unix
// milliseconds.
type EmailJobRepo struct {
	db *sqlx.DB
}

// NewEmailJobRepo creates a new EmailJobRepo.
func NewEmailJobRepo(db *sqlx.DB) *EmailJobRepo {
	return &EmailJobRepo{db: db}
}

// Insert stores a QUEUED job that becomes claimable at due.
func (r *EmailJobRepo) Insert(ctx context.Context, job domain.EmailJob, due time.Time) (*domain.EmailJobRecord, error) {
	id := domain.NewID()
	now := nowUTC().UnixMilli()
	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO email_jobs (id, notification_id, recipient, status, attempts, next_attempt_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, 0, ?, ?, ?)
	`, id, job.NotificationID, job.Recipient, string(domain.EmailJobQueued), due.UnixMilli(), now, now); err != nil {
		return nil, mapDBError(err)
	}
	return r.get(ctx, r.db, id)
}

// ClaimDue leases the oldest due job, moving it to RUNNING and counting the
// attempt. It returns nil, nil when nothing is due.
func (r *EmailJobRepo) ClaimDue(ctx context.Context, now time.Time, lease time.Duration) (*domain.EmailJobRecord, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var id string
	err = tx.GetContext(ctx, &id, `
		SELECT id FROM email_jobs
		WHERE status = ? AND next_attempt_at <= ?
		ORDER BY next_attempt_at, id LIMIT 1
	`, string(domain.EmailJobQueued), now.UnixMilli())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select due job: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE email_jobs SET status = ?, attempts = attempts + 1, lease_until = ?, updated_at = ?
		WHERE id = ?
	`, string(domain.EmailJobRunning), now.Add(lease).UnixMilli(), now.UnixMilli(), id); err != nil {
		return nil, fmt.Errorf("claim job: %w", err)
	}
	rec, err := r.get(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return rec, nil
}

func (r *EmailJobRepo) MarkDone(ctx context.Context, id string) error {
	return r.settle(ctx, id, domain.EmailJobDone, 0, nil)
}

// Reschedule returns a failed job to QUEUED, claimable again at due.
func (r *EmailJobRepo) Reschedule(ctx context.Context, id string, due time.Time, lastErr string) error {
	return r.settle(ctx, id, domain.EmailJobQueued, due.UnixMilli(), &lastErr)
}

// Bury marks a job DEAD. It is kept for inspection and never retried.
func (r *EmailJobRepo) Bury(ctx context.Context, id string, lastErr string) error {
	return r.settle(ctx, id, domain.EmailJobDead, 0, &lastErr)
}

// RequeueExpired returns RUNNING jobs whose lease has passed to QUEUED.
// Such jobs belonged to a worker that stopped mid-delivery.
func (r *EmailJobRepo) RequeueExpired(ctx context.Context, now time.Time) (int64, error) {
	ms := now.UnixMilli()
	res, err := r.db.ExecContext(ctx, `
		UPDATE email_jobs SET status = ?, lease_until = NULL, next_attempt_at = ?, updated_at = ?
		WHERE status = ? AND lease_until < ?
	`, string(domain.EmailJobQueued), ms, ms, string(domain.EmailJobRunning), ms)
	if err != nil {
		return 0, fmt.Errorf("requeue expired jobs: %w", err)
	}
	return res.RowsAffected()
}

func (r *EmailJobRepo) CountByStatus(ctx context.Context, status domain.EmailJobStatus) (int64, error) {
	var n int64
	if err := r.db.GetContext(ctx, &n,
		`SELECT COUNT(*) FROM email_jobs WHERE status = ?`, string(status)); err != nil {
		return 0, fmt.Errorf("count email jobs: %w", err)
	}
	return n, nil
}

// Get returns a job by id.
func (r *EmailJobRepo) Get(ctx context.Context, id string) (*domain.EmailJobRecord, error) {
	return r.get(ctx, r.db, id)
}

func (r *EmailJobRepo) settle(ctx context.Context, id string, status domain.EmailJobStatus, due int64, lastErr *string) error {
	q := `UPDATE email_jobs SET status = ?, lease_until = NULL, last_error = COALESCE(?, last_error), updated_at = ?`
	args := []interface{}{string(status), lastErr, nowUTC().UnixMilli()}
	if due > 0 {
		q += `, next_attempt_at = ?`
		args = append(args, due)
	}
	q += ` WHERE id = ?`
	args = append(args, id)

	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("update email job: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound("email job %q not found", id)
	}
	return nil
}

func (r *EmailJobRepo) get(ctx context.Context, q sqlx.QueryerContext, id string) (*domain.EmailJobRecord, error) {
	var row emailJobRow
	if err := sqlx.GetContext(ctx, q, &row, `
		SELECT id, notification_id, recipient, status, attempts, next_attempt_at, last_error
		FROM email_jobs WHERE id = ?
	`, id); err != nil {
		return nil, notFoundAs(err, "email job %q not found", id)
	}
	rec := &domain.EmailJobRecord{
		ID:             row.ID,
		NotificationID: row.NotificationID,
		Recipient:      row.Recipient,
		Status:         domain.EmailJobStatus(row.Status),
		Attempts:       row.Attempts,
		NextAttemptAt:  time.UnixMilli(row.NextAttemptAt).UTC(),
	}
	if row.LastError.Valid {
		rec.LastError = &row.LastError.String
	}
	return rec, nil
}
