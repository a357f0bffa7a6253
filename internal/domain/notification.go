package domain

import "time"

// NotificationType is the delivery channel of a notification.
type NotificationType string

// Notification channels.
const (
	NotificationInApp NotificationType = "IN_APP"
	NotificationEmail NotificationType = "EMAIL"
)

// Valid reports whether t is a known channel.
func (t NotificationType) Valid() bool {
	return t == NotificationInApp || t == NotificationEmail
}

// EmailContent is the persisted payload of an EMAIL notification.
type EmailContent struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
	HTML    string `json:"html"`
}

// Notification is a message addressed to one user. Only IsRead ever
// changes after creation, and only on behalf of SendToID.
type Notification struct {
	ID       string
	Type     NotificationType
	SendToID string
	// Content holds the text of IN_APP notifications.
	Content string
	// Email holds the payload of EMAIL notifications.
	Email     *EmailContent
	IsRead    bool
	CreatedAt time.Time
}

// EmailJob is the queued unit of email delivery. It references the
// persisted notification rather than copying its content.
type EmailJob struct {
	NotificationID string `json:"notificationId"`
	Recipient      string `json:"recipient"`
}

// EmailJobStatus is the lifecycle state of a durable email job.
type EmailJobStatus string

// Email job states.
const (
	EmailJobQueued  EmailJobStatus = "QUEUED"
	EmailJobRunning EmailJobStatus = "RUNNING"
	EmailJobDone    EmailJobStatus = "DONE"
	EmailJobDead    EmailJobStatus = "DEAD"
)

// EmailJobRecord is the stored form of a queued email job.
type EmailJobRecord struct {
	ID             string
	NotificationID string
	Recipient      string
	Status         EmailJobStatus
	Attempts       int
	NextAttemptAt  time.Time
	LastError      *string
}
