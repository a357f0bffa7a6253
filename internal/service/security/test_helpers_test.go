package security

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	internaldb "taskflow/internal/db"
	"taskflow/internal/db/repository"
	"taskflow/internal/domain"
)

type services struct {
	users *UserService
	roles *RoleService
	audit *AuditService
	repo  *repository.AuditRepo
}

func setupServices(t *testing.T) *services {
	t.Helper()
	pools := internaldb.OpenTestSQLite(t)
	roleRepo := repository.NewRoleRepo(pools.Write)
	userRepo := repository.NewUserRepo(pools.Write)
	auditRepo := repository.NewAuditRepo(pools.Write)

	users := NewUserService(userRepo, roleRepo, auditRepo)
	users.cost = bcrypt.MinCost
	return &services{
		users: users,
		roles: NewRoleService(roleRepo, auditRepo),
		audit: NewAuditService(auditRepo),
		repo:  auditRepo,
	}
}

// adminCtx returns a context with a principal holding every permission.
func adminCtx() context.Context {
	return domain.WithPrincipal(context.Background(), &domain.Principal{
		ID: "admin", Name: "admin-user", Permissions: domain.NewPermissionSet(domain.AllPermissions...),
	})
}

// nonAdminCtx returns a context with a principal that can only work on tasks.
func nonAdminCtx() context.Context {
	return domain.WithPrincipal(context.Background(), &domain.Principal{
		ID: "regular", Name: "regular-user", Permissions: domain.NewPermissionSet(domain.PermViewTask, domain.PermUpdateTaskStatus),
	})
}

func (s *services) seedRole(t *testing.T, name string, perms ...domain.Permission) *domain.Role {
	t.Helper()
	r, err := s.roles.Seed(context.Background(), domain.CreateRoleRequest{Name: name, Permissions: perms})
	require.NoError(t, err)
	return r
}
