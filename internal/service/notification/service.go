package notification

import (
	"context"
	"log/slog"

	"taskflow/internal/domain"
)

// Service publishes task events and serves the in-app notification list.
type Service struct {
	notifications domain.NotificationRepository
	dispatcher    *Dispatcher
	logger        *slog.Logger
}

// NewService creates a notification Service.
func NewService(notifications domain.NotificationRepository, dispatcher *Dispatcher, logger *slog.Logger) *Service {
	return &Service{notifications: notifications, dispatcher: dispatcher, logger: logger}
}

type rendered struct {
	userID  string
	channel domain.NotificationType
	content Content
}

// Publish fans ev out to its recipients. Every notification is composed
// before the first one is stored, so a composition error writes nothing.
// Each notification is stored before it is dispatched. Delivery failures
// are logged and not returned.
func (s *Service) Publish(ctx context.Context, ev domain.NotificationEvent) ([]DispatchResult, error) {
	var pending []rendered
	for _, r := range ev.Recipients() {
		if r.UserID == "" {
			return nil, domain.ErrFieldValidation(map[string]string{"recipient": "recipient user id is required"})
		}
		for _, ch := range r.Channels {
			c, err := Compose(ev, ch)
			if err != nil {
				return nil, err
			}
			pending = append(pending, rendered{userID: r.UserID, channel: ch, content: c})
		}
	}

	results := make([]DispatchResult, 0, len(pending))
	for _, p := range pending {
		n, err := s.notifications.Create(ctx, &domain.Notification{
			Type:     p.channel,
			SendToID: p.userID,
			Content:  p.content.Text,
			Email:    p.content.Email,
		})
		if err != nil {
			return results, domain.AsInternal(err, "store notification")
		}
		res, err := s.dispatcher.Dispatch(ctx, n.ID, p.channel, nil)
		if err != nil {
			s.logger.Error("dispatch stored notification", "notification_id", n.ID, "error", err)
			continue
		}
		results = append(results, res)
	}
	s.logger.Debug("event published", "event", ev.Kind(), "notifications", len(pending))
	return results, nil
}

// ListInApp returns the caller's in-app notifications, newest first, and
// marks the unread ones among them read in one batch. The returned items
// show the read state from before the call.
func (s *Service) ListInApp(ctx context.Context) ([]domain.Notification, error) {
	p, ok := domain.PrincipalFromContext(ctx)
	if !ok {
		return nil, domain.ErrUnauthenticated("authentication required")
	}
	list, err := s.notifications.ListForUser(ctx, p.ID, domain.NotificationInApp)
	if err != nil {
		return nil, domain.AsInternal(err, "list notifications")
	}
	var unread []string
	for _, n := range list {
		if !n.IsRead {
			unread = append(unread, n.ID)
		}
	}
	if len(unread) > 0 {
		if _, err := s.notifications.MarkRead(ctx, p.ID, unread); err != nil {
			return nil, domain.AsInternal(err, "mark notifications read")
		}
	}
	return list, nil
}

// UnreadCount returns the caller's unread in-app count without changing it.
func (s *Service) UnreadCount(ctx context.Context) (int64, error) {
	p, ok := domain.PrincipalFromContext(ctx)
	if !ok {
		return 0, domain.ErrUnauthenticated("authentication required")
	}
	n, err := s.notifications.CountUnread(ctx, p.ID, domain.NotificationInApp)
	if err != nil {
		return 0, domain.AsInternal(err, "count notifications")
	}
	return n, nil
}
