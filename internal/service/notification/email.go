package notification

import (
	"context"
	"errors"

	"taskflow/internal/domain"
	"taskflow/internal/mail"
	"taskflow/internal/queue"
)

// EmailHandler returns the queue handler that sends stored EMAIL
// notifications. A notification that no longer exists is not retried.
func EmailHandler(notifications domain.NotificationRepository, sender mail.Sender) queue.Handler {
	return func(ctx context.Context, job domain.EmailJob) error {
		n, err := notifications.GetByID(ctx, job.NotificationID)
		if err != nil {
			var nf *domain.NotFoundError
			if errors.As(err, &nf) {
				return queue.Permanent(err)
			}
			return err
		}
		if n.Type != domain.NotificationEmail || n.Email == nil {
			return queue.Permanent(domain.ErrValidation("notification %s is not an email", n.ID))
		}
		return sender.Send(ctx, mail.Message{
			To:      job.Recipient,
			Subject: n.Email.Subject,
			Text:    n.Email.Body,
			HTML:    n.Email.HTML,
		})
	}
}
