package domain

import (
	"strings"
	"time"
)

// TaskStatus is the lifecycle state of a task.
type TaskStatus string

// Task lifecycle states. PENDING is initial and COMPLETED is terminal.
const (
	TaskStatusPending    TaskStatus = "PENDING"
	TaskStatusInProgress TaskStatus = "IN_PROGRESS"
	TaskStatusCompleted  TaskStatus = "COMPLETED"
)

// Valid reports whether s is a known status.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted:
		return true
	}
	return false
}

// TaskPriority ranks a task.
type TaskPriority string

// Task priorities.
const (
	PriorityLow    TaskPriority = "LOW"
	PriorityMedium TaskPriority = "MEDIUM"
	PriorityHigh   TaskPriority = "HIGH"
)

// Valid reports whether p is a known priority.
func (p TaskPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Task is a unit of work handed from an assigner to an assignee.
type Task struct {
	ID          string       `db:"id"`
	Title       string       `db:"title"`
	Description string       `db:"description"`
	Priority    TaskPriority `db:"priority"`
	Deadline    time.Time    `db:"deadline"`
	Status      TaskStatus   `db:"status"`
	AssignerID  string       `db:"assigner_id"`
	AssigneeID  string       `db:"assignee_id"`
	CreatedAt   time.Time    `db:"created_at"`
	UpdatedAt   time.Time    `db:"updated_at"`
}

// TaskFilter narrows task listings. Zero values mean "any".
type TaskFilter struct {
	Status TaskStatus
	// Relation restricts to tasks the caller "assigned" or was "assigned"
	// to; empty means both.
	Relation string
}

// Field length limits for tasks.
const (
	TitleMinLen       = 3
	TitleMaxLen       = 127
	DescriptionMinLen = 3
	DescriptionMaxLen = 255
)

// CreateTaskRequest holds parameters for creating a task.
type CreateTaskRequest struct {
	Title       string
	Description string
	Priority    TaskPriority
	Deadline    string // ISO-8601 date or RFC 3339 timestamp
	AssigneeID  string
}

// FieldErrors checks the request fields that do not need the store. The
// assignee capability check is done by the caller and merged into the map.
func (r *CreateTaskRequest) FieldErrors(now time.Time) map[string]string {
	fields := map[string]string{}
	r.Title = strings.TrimSpace(r.Title)
	r.Description = strings.TrimSpace(r.Description)
	checkTitle(fields, r.Title)
	checkDescription(fields, r.Description)
	checkPriority(fields, r.Priority)
	checkDeadline(fields, r.Deadline, now)
	if strings.TrimSpace(r.AssigneeID) == "" {
		fields["assigneeId"] = "assigneeId is required"
	}
	return fields
}

// UpdateTaskRequest is a partial update; nil fields are left unchanged.
type UpdateTaskRequest struct {
	Title       *string
	Description *string
	Priority    *TaskPriority
	Deadline    *string
	AssigneeID  *string
}

// Empty reports whether the request changes nothing.
func (r *UpdateTaskRequest) Empty() bool {
	return r.Title == nil && r.Description == nil && r.Priority == nil &&
		r.Deadline == nil && r.AssigneeID == nil
}

// FieldErrors applies the create-time rules to each field that is present.
func (r *UpdateTaskRequest) FieldErrors(now time.Time) map[string]string {
	fields := map[string]string{}
	if r.Title != nil {
		t := strings.TrimSpace(*r.Title)
		r.Title = &t
		checkTitle(fields, t)
	}
	if r.Description != nil {
		d := strings.TrimSpace(*r.Description)
		r.Description = &d
		checkDescription(fields, d)
	}
	if r.Priority != nil {
		checkPriority(fields, *r.Priority)
	}
	if r.Deadline != nil {
		checkDeadline(fields, *r.Deadline, now)
	}
	if r.AssigneeID != nil && strings.TrimSpace(*r.AssigneeID) == "" {
		fields["assigneeId"] = "assigneeId must not be empty"
	}
	return fields
}

// ParseDeadline accepts a calendar date (2006-01-02) or an RFC 3339 timestamp.
func ParseDeadline(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

func checkTitle(fields map[string]string, title string) {
	if n := len([]rune(title)); n < TitleMinLen || n > TitleMaxLen {
		fields["title"] = "title must be between 3 and 127 characters"
	}
}

func checkDescription(fields map[string]string, desc string) {
	if n := len([]rune(desc)); n < DescriptionMinLen || n > DescriptionMaxLen {
		fields["description"] = "description must be between 3 and 255 characters"
	}
}

func checkPriority(fields map[string]string, p TaskPriority) {
	if !p.Valid() {
		fields["priority"] = "priority must be one of LOW, MEDIUM, HIGH"
	}
}

// checkDeadline compares at day granularity in UTC: a deadline of today is
// still acceptable.
func checkDeadline(fields map[string]string, raw string, now time.Time) {
	if strings.TrimSpace(raw) == "" {
		fields["deadline"] = "deadline is required"
		return
	}
	d, err := ParseDeadline(raw)
	if err != nil {
		fields["deadline"] = "deadline must be an ISO-8601 date"
		return
	}
	today := now.UTC().Truncate(24 * time.Hour)
	if d.UTC().Before(today) {
		fields["deadline"] = "deadline must not be in the past"
	}
}
