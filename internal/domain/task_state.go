package domain

// Rejection messages for status transitions.
const (
	MsgAlreadyInStatus   = "task is already in the requested status"
	MsgTaskCompleted     = "cannot update a completed task"
	MsgBackwardToPending = "cannot move task back to pending"
)

// ValidateTransition checks a requested status change against the task
// lifecycle. COMPLETED is terminal and IN_PROGRESS never returns to PENDING.
func ValidateTransition(current, requested TaskStatus) error {
	if !requested.Valid() {
		return &ValidationError{
			Message: "invalid status",
			Fields:  map[string]string{"status": "status must be one of PENDING, IN_PROGRESS, COMPLETED"},
		}
	}
	switch {
	case current == requested:
		return ErrConflict(MsgAlreadyInStatus)
	case current == TaskStatusCompleted:
		return ErrConflict(MsgTaskCompleted)
	case current == TaskStatusInProgress && requested == TaskStatusPending:
		return ErrConflict(MsgBackwardToPending)
	}
	return nil
}

// CanTransition is the boolean form of ValidateTransition.
func CanTransition(current, requested TaskStatus) bool {
	return ValidateTransition(current, requested) == nil
}

// IsParticipant reports whether the principal is the task's assigner or assignee.
func (t *Task) IsParticipant(p *Principal) bool {
	return p != nil && (p.ID == t.AssignerID || p.ID == t.AssigneeID)
}

// AuthorizeStatusChange allows the assigner and the assignee.
func AuthorizeStatusChange(t *Task, p *Principal) error {
	if !t.IsParticipant(p) {
		return ErrAccessDenied("only the assigner or assignee can update the status of this task")
	}
	return nil
}

// AuthorizeOwnerChange allows the assigner only. Detail edits and deletion
// go through this check; the assignee is rejected like anyone else.
func AuthorizeOwnerChange(t *Task, p *Principal) error {
	if p == nil || p.ID != t.AssignerID {
		return ErrAccessDenied("only the assigner can modify this task")
	}
	return nil
}
