package task

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	internaldb "taskflow/internal/db"
	"taskflow/internal/db/repository"
	"taskflow/internal/domain"
	"taskflow/internal/push"
	"taskflow/internal/queue"
	"taskflow/internal/service/notification"
)

// testNow is the fixed clock for deadline validation.
var testNow = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

type env struct {
	svc   *Service
	tasks *repository.TaskRepo
	notes *repository.NotificationRepo
	audit *repository.AuditRepo
	queue *queue.MemoryQueue

	assigner *domain.Principal
	assignee *domain.Principal
	outsider *domain.Principal
	viewer   *domain.User // role without UPDATE_TASK_STATUS
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupEnv(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()
	pools := internaldb.OpenTestSQLite(t)

	roles := repository.NewRoleRepo(pools.Write)
	users := repository.NewUserRepo(pools.Write)
	tasks := repository.NewTaskRepo(pools.Write)
	notes := repository.NewNotificationRepo(pools.Write)
	audit := repository.NewAuditRepo(pools.Write)

	member, err := roles.Create(ctx, &domain.Role{Name: "member", Permissions: []domain.Permission{
		domain.PermCreateTask, domain.PermUpdateTask, domain.PermUpdateTaskStatus, domain.PermViewTask,
	}})
	require.NoError(t, err)
	readonly, err := roles.Create(ctx, &domain.Role{Name: "viewer", Permissions: []domain.Permission{domain.PermViewTask}})
	require.NoError(t, err)

	mk := func(name, roleID string) *domain.User {
		u, err := users.Create(ctx, &domain.User{Name: name, Email: name + "@example.com", PasswordHash: "x", RoleID: roleID})
		require.NoError(t, err)
		return u
	}
	principal := func(u *domain.User, role *domain.Role) *domain.Principal {
		return &domain.Principal{ID: u.ID, Name: u.Name, Email: u.Email, RoleID: role.ID, Permissions: domain.NewPermissionSet(role.Permissions...)}
	}

	q := queue.NewMemoryQueue(64, queue.DefaultRetryPolicy())
	registry := push.NewMemoryRegistry()
	dispatcher := notification.NewDispatcher(notes, users, registry, q, discardLogger())
	notifier := notification.NewService(notes, dispatcher, discardLogger())

	svc := NewService(tasks, users, roles, notifier, audit, discardLogger())
	svc.now = func() time.Time { return testNow }

	return &env{
		svc:      svc,
		tasks:    tasks,
		notes:    notes,
		audit:    audit,
		queue:    q,
		assigner: principal(mk("alice", member.ID), member),
		assignee: principal(mk("bob", member.ID), member),
		outsider: principal(mk("carol", member.ID), member),
		viewer:   mk("victor", readonly.ID),
	}
}

func as(p *domain.Principal) context.Context {
	return domain.WithPrincipal(context.Background(), p)
}

func (e *env) createRequest() domain.CreateTaskRequest {
	return domain.CreateTaskRequest{
		Title:       "Fix bug",
		Description: "Crash when saving",
		Priority:    domain.PriorityHigh,
		Deadline:    "2026-10-20",
		AssigneeID:  e.assignee.ID,
	}
}

func (e *env) createTask(t *testing.T) *domain.Task {
	t.Helper()
	tk, err := e.svc.Create(as(e.assigner), e.createRequest())
	require.NoError(t, err)
	return tk
}

// setStatus forces a status without going through the service.
func (e *env) setStatus(t *testing.T, id string, s domain.TaskStatus) {
	t.Helper()
	_, err := e.tasks.TransitionStatus(context.Background(), id, s, nil)
	require.NoError(t, err)
}

func (e *env) unread(t *testing.T, userID string) int64 {
	t.Helper()
	n, err := e.notes.CountUnread(context.Background(), userID, domain.NotificationInApp)
	require.NoError(t, err)
	return n
}

func ptr[T any](v T) *T { return &v }
