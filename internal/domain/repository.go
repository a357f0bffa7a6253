package domain

import (
	"context"
	"time"
)

// UserRepository provides persistence for users.
type UserRepository interface {
	Create(ctx context.Context, u *User) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context) ([]User, error)
}

// RoleRepository provides persistence for roles and their permissions.
type RoleRepository interface {
	Create(ctx context.Context, r *Role) (*Role, error)
	GetByID(ctx context.Context, id string) (*Role, error)
	List(ctx context.Context) ([]Role, error)
}

// TaskGuard inspects the freshly read task inside the write transaction and
// aborts the mutation by returning an error.
type TaskGuard func(current *Task) error

// TaskRepository provides persistence for tasks. Mutations re-read the row
// inside their transaction and run the guard against that fresh copy.
type TaskRepository interface {
	Create(ctx context.Context, t *Task) (*Task, error)
	GetByID(ctx context.Context, id string) (*Task, error)
	ListForUser(ctx context.Context, userID string, filter TaskFilter) ([]Task, error)
	TransitionStatus(ctx context.Context, id string, to TaskStatus, guard TaskGuard) (*Task, error)
	Update(ctx context.Context, id string, guard TaskGuard, apply func(t *Task)) (before, after *Task, err error)
	Delete(ctx context.Context, id string, guard TaskGuard) (*Task, error)
}

// NotificationRepository provides persistence for notifications.
type NotificationRepository interface {
	Create(ctx context.Context, n *Notification) (*Notification, error)
	GetByID(ctx context.Context, id string) (*Notification, error)
	ListForUser(ctx context.Context, userID string, t NotificationType) ([]Notification, error)
	MarkRead(ctx context.Context, userID string, ids []string) (int64, error)
	CountUnread(ctx context.Context, userID string, t NotificationType) (int64, error)
	DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// AuditRepository provides operations for audit log entries.
type AuditRepository interface {
	Insert(ctx context.Context, e *AuditEntry) error
	List(ctx context.Context, filter AuditFilter) ([]AuditEntry, error)
}

// EmailJobRepository is the durable backing store of the email queue.
// ClaimDue returns nil when no job is due.
type EmailJobRepository interface {
	Insert(ctx context.Context, job EmailJob, due time.Time) (*EmailJobRecord, error)
	ClaimDue(ctx context.Context, now time.Time, lease time.Duration) (*EmailJobRecord, error)
	MarkDone(ctx context.Context, id string) error
	Reschedule(ctx context.Context, id string, due time.Time, lastErr string) error
	Bury(ctx context.Context, id string, lastErr string) error
	RequeueExpired(ctx context.Context, now time.Time) (int64, error)
	CountByStatus(ctx context.Context, status EmailJobStatus) (int64, error)
}
