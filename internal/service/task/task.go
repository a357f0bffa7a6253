// Package task implements the task workflow: creation, status transitions,
// detail edits and deletion, each followed by notification fan-out.
package task

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"taskflow/internal/domain"
	"taskflow/internal/service/auditutil"
	"taskflow/internal/service/notification"
)

// Audit actions.
const (
	ActionCreate       = "CREATE_TASK"
	ActionUpdateStatus = "UPDATE_TASK_STATUS"
	ActionUpdate       = "UPDATE_TASK"
	ActionDelete       = "DELETE_TASK"
)

// Publisher fans a task event out to notifications.
type Publisher interface {
	Publish(ctx context.Context, ev domain.NotificationEvent) ([]notification.DispatchResult, error)
}

// Service provides task operations for the principal in the context.
type Service struct {
	tasks     domain.TaskRepository
	users     domain.UserRepository
	roles     domain.RoleRepository
	publisher Publisher
	audit     domain.AuditRepository
	logger    *slog.Logger
	now       func() time.Time
}

// NewService creates a task Service.
func NewService(
	tasks domain.TaskRepository,
	users domain.UserRepository,
	roles domain.RoleRepository,
	publisher Publisher,
	audit domain.AuditRepository,
	logger *slog.Logger,
) *Service {
	return &Service{
		tasks:     tasks,
		users:     users,
		roles:     roles,
		publisher: publisher,
		audit:     audit,
		logger:    logger,
		now:       time.Now,
	}
}

// Create validates req and stores a PENDING task assigned by the caller.
func (s *Service) Create(ctx context.Context, req domain.CreateTaskRequest) (*domain.Task, error) {
	p, err := s.require(ctx, domain.PermCreateTask, ActionCreate, "")
	if err != nil {
		return nil, err
	}

	fields := req.FieldErrors(s.now())
	if _, ok := fields["assigneeId"]; !ok {
		if err := s.checkAssignee(ctx, req.AssigneeID, fields); err != nil {
			return nil, err
		}
	}
	if len(fields) > 0 {
		return nil, domain.ErrFieldValidation(fields)
	}
	deadline, _ := domain.ParseDeadline(req.Deadline)

	t, err := s.tasks.Create(ctx, &domain.Task{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		Deadline:    deadline,
		Status:      domain.TaskStatusPending,
		AssignerID:  p.ID,
		AssigneeID:  req.AssigneeID,
	})
	if err != nil {
		return nil, domain.AsInternal(err, "create task")
	}
	auditutil.LogAllowed(ctx, s.audit, p, ActionCreate, t.ID, "assignee="+t.AssigneeID)

	if err := s.publish(ctx, domain.TaskAssigned{Task: *t, AssignerName: p.Name}); err != nil {
		return nil, err
	}
	return t, nil
}

// UpdateStatus moves the task to status. The caller must be the assigner or
// the assignee; that is checked before the transition rules so outsiders
// learn nothing about the task's state.
func (s *Service) UpdateStatus(ctx context.Context, id string, status domain.TaskStatus) (*domain.Task, error) {
	p, err := s.require(ctx, domain.PermUpdateTaskStatus, ActionUpdateStatus, id)
	if err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, domain.ErrFieldValidation(map[string]string{
			"status": "status must be one of PENDING, IN_PROGRESS, COMPLETED",
		})
	}

	t, err := s.tasks.TransitionStatus(ctx, id, status, func(cur *domain.Task) error {
		if err := domain.AuthorizeStatusChange(cur, p); err != nil {
			return err
		}
		return domain.ValidateTransition(cur.Status, status)
	})
	s.auditResult(ctx, p, ActionUpdateStatus, id, "status="+string(status), err)
	if err != nil {
		return nil, domain.AsInternal(err, "update task status")
	}

	if err := s.publish(ctx, domain.TaskStatusUpdated{Task: *t, NewStatus: status, UpdatedBy: p.Name}); err != nil {
		return nil, err
	}
	return t, nil
}

// Update applies a partial edit. Only the assigner may edit; anyone else
// is refused before the request body is looked at.
func (s *Service) Update(ctx context.Context, id string, req domain.UpdateTaskRequest) (*domain.Task, error) {
	p, err := s.require(ctx, domain.PermUpdateTask, ActionUpdate, id)
	if err != nil {
		return nil, err
	}
	cur, err := s.tasks.GetByID(ctx, id)
	if err == nil {
		err = domain.AuthorizeOwnerChange(cur, p)
	}
	if err != nil {
		s.auditResult(ctx, p, ActionUpdate, id, "", err)
		return nil, domain.AsInternal(err, "update task")
	}

	if req.Empty() {
		return nil, domain.ErrValidation("no fields to update")
	}

	fields := req.FieldErrors(s.now())
	if req.AssigneeID != nil {
		if _, ok := fields["assigneeId"]; !ok {
			if err := s.checkAssignee(ctx, *req.AssigneeID, fields); err != nil {
				return nil, err
			}
		}
	}
	if len(fields) > 0 {
		return nil, domain.ErrFieldValidation(fields)
	}

	before, after, err := s.tasks.Update(ctx, id,
		func(cur *domain.Task) error { return domain.AuthorizeOwnerChange(cur, p) },
		func(t *domain.Task) { applyUpdate(t, req) },
	)
	s.auditResult(ctx, p, ActionUpdate, id, "", err)
	if err != nil {
		return nil, domain.AsInternal(err, "update task")
	}

	if before.AssigneeID == after.AssigneeID {
		if err := s.publish(ctx, domain.TaskDetailsUpdated{Task: *after, UpdatedBy: p.Name}); err != nil {
			return nil, err
		}
		return after, nil
	}

	newAssignee, err := s.users.GetByID(ctx, after.AssigneeID)
	if err != nil {
		return nil, domain.AsInternal(err, "load new assignee")
	}
	if err := s.publish(ctx, domain.TaskReassigned{
		Task:               *after,
		PreviousAssigneeID: before.AssigneeID,
		NewAssignee:        newAssignee.Name,
		Assigner:           p.Name,
	}); err != nil {
		return nil, err
	}
	if err := s.publish(ctx, domain.TaskAssigned{Task: *after, AssignerName: p.Name}); err != nil {
		return nil, err
	}
	return after, nil
}

// Delete removes the task. Only the assigner may delete.
func (s *Service) Delete(ctx context.Context, id string) error {
	p, ok := domain.PrincipalFromContext(ctx)
	if !ok {
		return domain.ErrUnauthenticated("authentication required")
	}

	t, err := s.tasks.Delete(ctx, id, func(cur *domain.Task) error {
		return domain.AuthorizeOwnerChange(cur, p)
	})
	s.auditResult(ctx, p, ActionDelete, id, "", err)
	if err != nil {
		return domain.AsInternal(err, "delete task")
	}

	return s.publish(ctx, domain.TaskDeleted{
		TaskID:     t.ID,
		Title:      t.Title,
		AssigneeID: t.AssigneeID,
		DeletedBy:  p.Name,
	})
}

// Get returns a task the caller takes part in.
func (s *Service) Get(ctx context.Context, id string) (*domain.Task, error) {
	p, err := s.require(ctx, domain.PermViewTask, "", id)
	if err != nil {
		return nil, err
	}
	t, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, domain.AsInternal(err, "get task")
	}
	if !t.IsParticipant(p) {
		return nil, domain.ErrAccessDenied("not a participant of this task")
	}
	return t, nil
}

// List returns the tasks the caller assigned or was assigned.
func (s *Service) List(ctx context.Context, filter domain.TaskFilter) ([]domain.Task, error) {
	p, err := s.require(ctx, domain.PermViewTask, "", "")
	if err != nil {
		return nil, err
	}
	fields := map[string]string{}
	if filter.Status != "" && !filter.Status.Valid() {
		fields["status"] = "status must be one of PENDING, IN_PROGRESS, COMPLETED"
	}
	switch filter.Relation {
	case "", "assigned", "assignee":
	default:
		fields["relation"] = "relation must be assigned or assignee"
	}
	if len(fields) > 0 {
		return nil, domain.ErrFieldValidation(fields)
	}
	tasks, err := s.tasks.ListForUser(ctx, p.ID, filter)
	if err != nil {
		return nil, domain.AsInternal(err, "list tasks")
	}
	return tasks, nil
}

// require resolves the caller and checks perm. Denials with an action are
// audited.
func (s *Service) require(ctx context.Context, perm domain.Permission, action, target string) (*domain.Principal, error) {
	p, ok := domain.PrincipalFromContext(ctx)
	if !ok {
		return nil, domain.ErrUnauthenticated("authentication required")
	}
	if err := domain.RequirePermission(p, perm); err != nil {
		if action != "" {
			auditutil.LogDenied(ctx, s.audit, p, action, target, err.Error())
		}
		return nil, err
	}
	return p, nil
}

// checkAssignee adds an assigneeId field error unless the user exists and
// their role can update task status.
func (s *Service) checkAssignee(ctx context.Context, userID string, fields map[string]string) error {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		var nf *domain.NotFoundError
		if errors.As(err, &nf) {
			fields["assigneeId"] = "assignee does not exist"
			return nil
		}
		return domain.AsInternal(err, "load assignee")
	}
	role, err := s.roles.GetByID(ctx, u.RoleID)
	if err != nil {
		return domain.AsInternal(err, "load assignee role")
	}
	if !domain.NewPermissionSet(role.Permissions...).Has(domain.PermUpdateTaskStatus) {
		fields["assigneeId"] = "assignee's role cannot update task status"
	}
	return nil
}

func (s *Service) auditResult(ctx context.Context, p *domain.Principal, action, target, detail string, err error) {
	var denied *domain.AccessDeniedError
	switch {
	case err == nil:
		auditutil.LogAllowed(ctx, s.audit, p, action, target, detail)
	case errors.As(err, &denied):
		auditutil.LogDenied(ctx, s.audit, p, action, target, err.Error())
	case !domain.IsClassified(err):
		auditutil.LogError(ctx, s.audit, p, action, target, err.Error())
	}
}

// publish runs after the task change has committed. Delivery problems are
// already absorbed by the publisher; what remains is a store failure.
func (s *Service) publish(ctx context.Context, ev domain.NotificationEvent) error {
	if _, err := s.publisher.Publish(ctx, ev); err != nil {
		s.logger.Error("publish task event", "event", ev.Kind(), "error", err)
		return domain.AsInternal(err, "notify task participants")
	}
	return nil
}

func applyUpdate(t *domain.Task, req domain.UpdateTaskRequest) {
	if req.Title != nil {
		t.Title = *req.Title
	}
	if req.Description != nil {
		t.Description = *req.Description
	}
	if req.Priority != nil {
		t.Priority = *req.Priority
	}
	if req.Deadline != nil {
		if d, err := domain.ParseDeadline(*req.Deadline); err == nil {
			t.Deadline = d
		}
	}
	if req.AssigneeID != nil {
		t.AssigneeID = *req.AssigneeID
	}
}
