package notification

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"taskflow/internal/domain"
	"taskflow/internal/push"
	"taskflow/internal/queue"
)

// pushTimeout bounds one real-time push so a stalled socket cannot hold
// up the request that triggered it.
const pushTimeout = time.Second

// PushEvent is the name of the real-time event for new in-app notifications.
const PushEvent = "notification"

// PushMessage is the data of a PushEvent.
type PushMessage struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	IsRead    bool      `json:"isRead"`
	CreatedAt time.Time `json:"createdAt"`
}

// DispatchResult reports what happened to one persisted notification.
// DeliveryErr is informational; the notification row exists regardless.
type DispatchResult struct {
	NotificationID string
	Channel        domain.NotificationType
	Pushed         bool
	Enqueued       bool
	DeliveryErr    error
}

// Dispatcher routes persisted notifications to their delivery sink.
type Dispatcher struct {
	notifications domain.NotificationRepository
	users         domain.UserRepository
	registry      push.Registry
	queue         queue.Queue
	logger        *slog.Logger
	pushTimeout   time.Duration
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(
	notifications domain.NotificationRepository,
	users domain.UserRepository,
	registry push.Registry,
	q queue.Queue,
	logger *slog.Logger,
) *Dispatcher {
	return &Dispatcher{
		notifications: notifications,
		users:         users,
		registry:      registry,
		queue:         q,
		logger:        logger,
		pushTimeout:   pushTimeout,
	}
}

// Dispatch delivers the notification with the given id. It fails only when
// the notification cannot be loaded or does not match channel; delivery
// problems are reported in the result. For IN_APP, payload replaces the
// default PushMessage when non-nil. EMAIL ignores payload.
func (d *Dispatcher) Dispatch(ctx context.Context, notificationID string, channel domain.NotificationType, payload any) (DispatchResult, error) {
	n, err := d.notifications.GetByID(ctx, notificationID)
	if err != nil {
		return DispatchResult{}, err
	}
	if n.Type != channel {
		return DispatchResult{}, domain.ErrValidation("notification %s is %s, not %s", n.ID, n.Type, channel)
	}

	res := DispatchResult{NotificationID: n.ID, Channel: channel}
	switch channel {
	case domain.NotificationInApp:
		res.Pushed, res.DeliveryErr = d.push(ctx, n, payload)
	case domain.NotificationEmail:
		res.DeliveryErr = d.enqueue(ctx, n)
		res.Enqueued = res.DeliveryErr == nil
	}
	if res.DeliveryErr != nil {
		d.logger.Warn("notification delivery failed",
			"notification_id", n.ID, "channel", channel, "user_id", n.SendToID, "error", res.DeliveryErr)
	}
	return res, nil
}

// push is best effort: an offline recipient is not an error. The send
// outlives a cancelled request but not pushTimeout.
func (d *Dispatcher) push(ctx context.Context, n *domain.Notification, payload any) (bool, error) {
	conn, ok := d.registry.Lookup(n.SendToID)
	if !ok {
		return false, nil
	}
	if payload == nil {
		payload = PushMessage{ID: n.ID, Content: n.Content, IsRead: n.IsRead, CreatedAt: n.CreatedAt}
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.pushTimeout)
	defer cancel()
	if err := conn.Send(ctx, PushEvent, payload); err != nil {
		return false, fmt.Errorf("push to %s: %w", n.SendToID, err)
	}
	return true, nil
}

func (d *Dispatcher) enqueue(ctx context.Context, n *domain.Notification) error {
	u, err := d.users.GetByID(ctx, n.SendToID)
	if err != nil {
		return fmt.Errorf("resolve recipient: %w", err)
	}
	return d.queue.Enqueue(ctx, domain.EmailJob{NotificationID: n.ID, Recipient: u.Email})
}
