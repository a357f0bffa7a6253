package domain

// EventKind tags a NotificationEvent variant.
type EventKind string

// Event kinds.
const (
	EventTaskAssigned       EventKind = "TASK_ASSIGNED"
	EventTaskStatusUpdated  EventKind = "TASK_STATUS_UPDATED"
	EventTaskDetailsUpdated EventKind = "TASK_DETAILS_UPDATED"
	EventTaskDeleted        EventKind = "TASK_DELETED"
	EventTaskReassigned     EventKind = "TASK_REASSIGNED"
)

// Recipient is a user and the channels they are notified on.
type Recipient struct {
	UserID   string
	Channels []NotificationType
}

// NotificationEvent describes something that happened to a task. Events
// are transient; only the notifications composed from them are stored.
type NotificationEvent interface {
	Kind() EventKind
	Recipients() []Recipient
}

// TaskAssigned is emitted when a task is created or handed to a new assignee.
type TaskAssigned struct {
	Task         Task
	AssignerName string
}

// Kind returns EventTaskAssigned.
func (TaskAssigned) Kind() EventKind { return EventTaskAssigned }

// Recipients is the assignee, in-app and by email.
func (e TaskAssigned) Recipients() []Recipient {
	return []Recipient{{UserID: e.Task.AssigneeID, Channels: []NotificationType{NotificationInApp, NotificationEmail}}}
}

// TaskStatusUpdated is emitted after a status transition was persisted.
type TaskStatusUpdated struct {
	Task      Task
	NewStatus TaskStatus
	UpdatedBy string
}

// Kind returns EventTaskStatusUpdated.
func (TaskStatusUpdated) Kind() EventKind { return EventTaskStatusUpdated }

// Recipients notifies both parties in-app. The assigner additionally gets
// an email when the task is completed.
func (e TaskStatusUpdated) Recipients() []Recipient {
	assigner := Recipient{UserID: e.Task.AssignerID, Channels: []NotificationType{NotificationInApp}}
	if e.NewStatus == TaskStatusCompleted {
		assigner.Channels = append(assigner.Channels, NotificationEmail)
	}
	if e.Task.AssigneeID == e.Task.AssignerID {
		return []Recipient{assigner}
	}
	return []Recipient{
		assigner,
		{UserID: e.Task.AssigneeID, Channels: []NotificationType{NotificationInApp}},
	}
}

// TaskDetailsUpdated is emitted after the assigner edited task fields.
type TaskDetailsUpdated struct {
	Task      Task
	UpdatedBy string
}

// Kind returns EventTaskDetailsUpdated.
func (TaskDetailsUpdated) Kind() EventKind { return EventTaskDetailsUpdated }

// Recipients is the assignee, in-app only.
func (e TaskDetailsUpdated) Recipients() []Recipient {
	return []Recipient{{UserID: e.Task.AssigneeID, Channels: []NotificationType{NotificationInApp}}}
}

// TaskDeleted is emitted after a task was removed. The task row is gone,
// so the event carries what the templates need.
type TaskDeleted struct {
	TaskID     string
	Title      string
	AssigneeID string
	DeletedBy  string
}

// Kind returns EventTaskDeleted.
func (TaskDeleted) Kind() EventKind { return EventTaskDeleted }

// Recipients is the assignee at deletion time, in-app and by email.
func (e TaskDeleted) Recipients() []Recipient {
	return []Recipient{{UserID: e.AssigneeID, Channels: []NotificationType{NotificationInApp, NotificationEmail}}}
}

// TaskReassigned is sent to the previous assignee when the task moves to
// someone else. The new assignee receives a TaskAssigned.
type TaskReassigned struct {
	Task               Task
	PreviousAssigneeID string
	NewAssignee        string
	Assigner           string
}

// Kind returns EventTaskReassigned.
func (TaskReassigned) Kind() EventKind { return EventTaskReassigned }

// Recipients is the previous assignee, in-app and by email.
func (e TaskReassigned) Recipients() []Recipient {
	return []Recipient{{UserID: e.PreviousAssigneeID, Channels: []NotificationType{NotificationInApp, NotificationEmail}}}
}
