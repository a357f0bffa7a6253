package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"taskflow/internal/domain"
)

var _ domain.NotificationRepository = (*NotificationRepo)(nil)

const selectNotification = `SELECT id, type, send_to_id, content, is_read, created_at FROM notifications`

// notificationRow is the stored shape. EMAIL payloads are JSON in content.
type notificationRow struct {
	ID        string    `db:"id"`
	Type      string    `db:"type"`
	SendToID  string    `db:"send_to_id"`
	Content   string    `db:"content"`
	IsRead    bool      `db:"is_read"`
	CreatedAt time.Time `db:"created_at"`
}

// NotificationRepo stores notifications for both channels.
type NotificationRepo struct {
	db *sqlx.DB
}

// NewNotificationRepo creates a new NotificationRepo.
func NewNotificationRepo(db *sqlx.DB) *NotificationRepo {
	return &NotificationRepo{db: db}
}

func (r *NotificationRepo) Create(ctx context.Context, n *domain.Notification) (*domain.Notification, error) {
	if n.ID == "" {
		n.ID = domain.NewID()
	}
	n.CreatedAt = nowUTC()
	row, err := notificationToRow(n)
	if err != nil {
		return nil, err
	}
	if _, err := r.db.NamedExecContext(ctx, `
		INSERT INTO notifications (id, type, send_to_id, content, is_read, created_at)
		VALUES (:id, :type, :send_to_id, :content, :is_read, :created_at)
	`, row); err != nil {
		return nil, mapDBError(err)
	}
	return r.GetByID(ctx, n.ID)
}

func (r *NotificationRepo) GetByID(ctx context.Context, id string) (*domain.Notification, error) {
	var row notificationRow
	if err := r.db.GetContext(ctx, &row, selectNotification+` WHERE id = ?`, id); err != nil {
		return nil, notFoundAs(err, "notification %q not found", id)
	}
	return notificationFromRow(row)
}

// ListForUser returns the user's notifications of one channel, newest first.
func (r *NotificationRepo) ListForUser(ctx context.Context, userID string, t domain.NotificationType) ([]domain.Notification, error) {
	var rows []notificationRow
	if err := r.db.SelectContext(ctx, &rows,
		selectNotification+` WHERE send_to_id = ? AND type = ? ORDER BY created_at DESC, id DESC`,
		userID, string(t)); err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	out := make([]domain.Notification, 0, len(rows))
	for _, row := range rows {
		n, err := notificationFromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, *n)
	}
	return out, nil
}

// MarkRead flips is_read for the given ids in a single statement. Ids that
// belong to another user or are already read are ignored.
func (r *NotificationRepo) MarkRead(ctx context.Context, userID string, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	q, args, err := sqlx.In(
		`UPDATE notifications SET is_read = 1 WHERE send_to_id = ? AND is_read = 0 AND id IN (?)`,
		userID, ids)
	if err != nil {
		return 0, fmt.Errorf("build mark-read query: %w", err)
	}
	res, err := r.db.ExecContext(ctx, r.db.Rebind(q), args...)
	if err != nil {
		return 0, fmt.Errorf("mark notifications read: %w", err)
	}
	return res.RowsAffected()
}

func (r *NotificationRepo) CountUnread(ctx context.Context, userID string, t domain.NotificationType) (int64, error) {
	var n int64
	if err := r.db.GetContext(ctx, &n,
		`SELECT COUNT(*) FROM notifications WHERE send_to_id = ? AND type = ? AND is_read = 0`,
		userID, string(t)); err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return n, nil
}

// DeleteReadBefore purges read notifications created before cutoff.
func (r *NotificationRepo) DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM notifications WHERE is_read = 1 AND created_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("purge notifications: %w", err)
	}
	return res.RowsAffected()
}

func notificationToRow(n *domain.Notification) (notificationRow, error) {
	row := notificationRow{
		ID:        n.ID,
		Type:      string(n.Type),
		SendToID:  n.SendToID,
		Content:   n.Content,
		IsRead:    n.IsRead,
		CreatedAt: n.CreatedAt,
	}
	if n.Type == domain.NotificationEmail {
		if n.Email == nil {
			return row, domain.ErrValidation("email notification requires email content")
		}
		b, err := json.Marshal(n.Email)
		if err != nil {
			return row, fmt.Errorf("encode email content: %w", err)
		}
		row.Content = string(b)
	}
	return row, nil
}

func notificationFromRow(row notificationRow) (*domain.Notification, error) {
	n := &domain.Notification{
		ID:        row.ID,
		Type:      domain.NotificationType(row.Type),
		SendToID:  row.SendToID,
		IsRead:    row.IsRead,
		CreatedAt: row.CreatedAt,
	}
	if n.Type == domain.NotificationEmail {
		var ec domain.EmailContent
		if err := json.Unmarshal([]byte(row.Content), &ec); err != nil {
			return nil, fmt.Errorf("decode email content for %s: %w", row.ID, err)
		}
		n.Email = &ec
	} else {
		n.Content = row.Content
	}
	return n, nil
}
