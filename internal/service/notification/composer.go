// Package notification composes, stores and delivers task notifications.
package notification

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"taskflow/internal/domain"
)

// Content is the rendered form of an event for one channel. Exactly one of
// Text and Email is set.
type Content struct {
	Text  string
	Email *domain.EmailContent
}

var emailHTML = template.Must(template.New("email").Parse(
	`<!DOCTYPE html><html><body>` +
		`<h2>{{.Heading}}</h2>` +
		`<p>{{.Lead}}</p>` +
		`{{if .Details}}<ul>{{range .Details}}<li>{{.}}</li>{{end}}</ul>{{end}}` +
		`<p style="color:#888">Task ID: {{.TaskID}}</p>` +
		`</body></html>`))

type emailView struct {
	Heading string
	Lead    string
	Details []string
	TaskID  string
}

// Compose renders ev for channel. It performs no I/O and returns a
// ValidationError naming every missing field.
func Compose(ev domain.NotificationEvent, channel domain.NotificationType) (Content, error) {
	if !channel.Valid() {
		return Content{}, domain.ErrFieldValidation(map[string]string{"channel": fmt.Sprintf("unknown channel %q", channel)})
	}
	switch e := ev.(type) {
	case domain.TaskAssigned:
		return composeAssigned(e, channel)
	case domain.TaskStatusUpdated:
		return composeStatusUpdated(e, channel)
	case domain.TaskDetailsUpdated:
		return composeDetailsUpdated(e, channel)
	case domain.TaskDeleted:
		return composeDeleted(e, channel)
	case domain.TaskReassigned:
		return composeReassigned(e, channel)
	case nil:
		return Content{}, domain.ErrValidation("notification event is required")
	default:
		return Content{}, domain.ErrValidation("unsupported notification event %T", ev)
	}
}

// required collects the names of empty values.
type required map[string]string

func (r required) check() error {
	missing := map[string]string{}
	for field, v := range r {
		if v == "" {
			missing[field] = field + " is required"
		}
	}
	if len(missing) > 0 {
		return domain.ErrFieldValidation(missing)
	}
	return nil
}

func composeAssigned(e domain.TaskAssigned, ch domain.NotificationType) (Content, error) {
	if err := (required{"task.id": e.Task.ID, "task.title": e.Task.Title, "assignerName": e.AssignerName}).check(); err != nil {
		return Content{}, err
	}
	text := fmt.Sprintf("%s assigned you the task %q (%s).", e.AssignerName, e.Task.Title, e.Task.ID)
	if ch == domain.NotificationInApp {
		return Content{Text: text}, nil
	}
	details := []string{
		"Priority: " + string(e.Task.Priority),
		"Deadline: " + formatDeadline(e.Task.Deadline),
	}
	return email("New task assigned: "+e.Task.Title, text, details, e.Task.ID)
}

func composeStatusUpdated(e domain.TaskStatusUpdated, ch domain.NotificationType) (Content, error) {
	if err := (required{
		"task.id": e.Task.ID, "task.title": e.Task.Title,
		"newStatus": string(e.NewStatus), "updatedBy": e.UpdatedBy,
	}).check(); err != nil {
		return Content{}, err
	}
	text := fmt.Sprintf("%s changed the status of %q (%s) to %s.", e.UpdatedBy, e.Task.Title, e.Task.ID, e.NewStatus)
	if ch == domain.NotificationInApp {
		return Content{Text: text}, nil
	}
	subject := "Task status updated: " + e.Task.Title
	if e.NewStatus == domain.TaskStatusCompleted {
		subject = "Task completed: " + e.Task.Title
	}
	return email(subject, text, []string{"Status: " + string(e.NewStatus)}, e.Task.ID)
}

func composeDetailsUpdated(e domain.TaskDetailsUpdated, ch domain.NotificationType) (Content, error) {
	if err := (required{"task.id": e.Task.ID, "task.title": e.Task.Title, "updatedBy": e.UpdatedBy}).check(); err != nil {
		return Content{}, err
	}
	text := fmt.Sprintf("%s updated the details of %q (%s).", e.UpdatedBy, e.Task.Title, e.Task.ID)
	if ch == domain.NotificationInApp {
		return Content{Text: text}, nil
	}
	details := []string{
		"Priority: " + string(e.Task.Priority),
		"Deadline: " + formatDeadline(e.Task.Deadline),
	}
	return email("Task updated: "+e.Task.Title, text, details, e.Task.ID)
}

func composeDeleted(e domain.TaskDeleted, ch domain.NotificationType) (Content, error) {
	if err := (required{"taskId": e.TaskID, "title": e.Title, "deletedBy": e.DeletedBy}).check(); err != nil {
		return Content{}, err
	}
	text := fmt.Sprintf("%s deleted the task %q (%s).", e.DeletedBy, e.Title, e.TaskID)
	if ch == domain.NotificationInApp {
		return Content{Text: text}, nil
	}
	return email("Task deleted: "+e.Title, text, nil, e.TaskID)
}

func composeReassigned(e domain.TaskReassigned, ch domain.NotificationType) (Content, error) {
	if err := (required{
		"task.id": e.Task.ID, "task.title": e.Task.Title,
		"newAssignee": e.NewAssignee, "assigner": e.Assigner,
	}).check(); err != nil {
		return Content{}, err
	}
	text := fmt.Sprintf("%s reassigned %q (%s) to %s.", e.Assigner, e.Task.Title, e.Task.ID, e.NewAssignee)
	if ch == domain.NotificationInApp {
		return Content{Text: text}, nil
	}
	return email("Task reassigned: "+e.Task.Title, text, nil, e.Task.ID)
}

func email(subject, lead string, details []string, taskID string) (Content, error) {
	var buf bytes.Buffer
	if err := emailHTML.Execute(&buf, emailView{Heading: subject, Lead: lead, Details: details, TaskID: taskID}); err != nil {
		return Content{}, fmt.Errorf("render email: %w", err)
	}
	body := lead
	for _, d := range details {
		body += "\n" + d
	}
	return Content{Email: &domain.EmailContent{Subject: subject, Body: body, HTML: buf.String()}}, nil
}

func formatDeadline(t time.Time) string {
	if t.IsZero() {
		return "none"
	}
	return t.UTC().Format(time.DateOnly)
}
