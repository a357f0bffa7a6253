package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	internaldb "taskflow/internal/db"
	"taskflow/internal/domain"
)

type fixture struct {
	pools *internaldb.Pools
	roles *RoleRepo
	users *UserRepo
	tasks *TaskRepo
	notes *NotificationRepo
	jobs  *EmailJobRepo
	audit *AuditRepo
}

func setupFixture(t *testing.T) *fixture {
	t.Helper()
	pools := internaldb.OpenTestSQLite(t)
	return &fixture{
		pools: pools,
		roles: NewRoleRepo(pools.Write),
		users: NewUserRepo(pools.Write),
		tasks: NewTaskRepo(pools.Write),
		notes: NewNotificationRepo(pools.Write),
		jobs:  NewEmailJobRepo(pools.Write),
		audit: NewAuditRepo(pools.Write),
	}
}

func (f *fixture) role(t *testing.T, name string, perms ...domain.Permission) *domain.Role {
	t.Helper()
	r, err := f.roles.Create(context.Background(), &domain.Role{Name: name, Permissions: perms})
	require.NoError(t, err)
	return r
}

func (f *fixture) user(t *testing.T, name, roleID string) *domain.User {
	t.Helper()
	u, err := f.users.Create(context.Background(), &domain.User{
		Name:         name,
		Email:        name + "@example.com",
		PasswordHash: "x",
		RoleID:       roleID,
	})
	require.NoError(t, err)
	return u
}

func (f *fixture) task(t *testing.T, assigner, assignee string) *domain.Task {
	t.Helper()
	tk, err := f.tasks.Create(context.Background(), &domain.Task{
		Title:       "Write report",
		Description: "Quarterly numbers",
		Priority:    domain.PriorityMedium,
		Deadline:    time.Now().UTC().Add(48 * time.Hour).Truncate(time.Second),
		AssignerID:  assigner,
		AssigneeID:  assignee,
	})
	require.NoError(t, err)
	return tk
}

// pair creates a role and two users holding it.
func (f *fixture) pair(t *testing.T) (*domain.User, *domain.User) {
	t.Helper()
	r := f.role(t, "member", domain.PermCreateTask, domain.PermUpdateTaskStatus)
	return f.user(t, "alice", r.ID), f.user(t, "bob", r.ID)
}

func ptrStr(s string) *string { return &s }
