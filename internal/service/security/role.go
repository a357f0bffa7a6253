package security

import (
	"context"

	"taskflow/internal/domain"
	"taskflow/internal/service/auditutil"
)

// RoleService manages roles and their permission sets.
type RoleService struct {
	repo  domain.RoleRepository
	audit domain.AuditRepository
}

// NewRoleService creates a new RoleService.
func NewRoleService(repo domain.RoleRepository, audit domain.AuditRepository) *RoleService {
	return &RoleService{repo: repo, audit: audit}
}

// Create adds a role. Requires MANAGE_ROLES; a duplicate name is a
// ConflictError.
func (s *RoleService) Create(ctx context.Context, req domain.CreateRoleRequest) (*domain.Role, error) {
	p, ok := domain.PrincipalFromContext(ctx)
	if !ok {
		return nil, domain.ErrUnauthenticated("authentication required")
	}
	if err := domain.RequirePermission(p, domain.PermManageRoles); err != nil {
		auditutil.LogDenied(ctx, s.audit, p, "CREATE_ROLE", "", err.Error())
		return nil, err
	}
	r, err := s.Seed(ctx, req)
	if err != nil {
		return nil, err
	}
	auditutil.LogAllowed(ctx, s.audit, p, "CREATE_ROLE", r.ID, r.Name)
	return r, nil
}

// Seed adds a role without a caller check. It backs the CLI.
func (s *RoleService) Seed(ctx context.Context, req domain.CreateRoleRequest) (*domain.Role, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	r, err := s.repo.Create(ctx, &domain.Role{Name: req.Name, Permissions: req.Permissions})
	if err != nil {
		return nil, domain.AsInternal(err, "create role")
	}
	return r, nil
}

// List returns all roles. Any authenticated caller may list them.
func (s *RoleService) List(ctx context.Context) ([]domain.Role, error) {
	if _, ok := domain.PrincipalFromContext(ctx); !ok {
		return nil, domain.ErrUnauthenticated("authentication required")
	}
	return s.ListAll(ctx)
}

// ListAll returns all roles without a caller check. It backs the CLI and
// startup seeding.
func (s *RoleService) ListAll(ctx context.Context) ([]domain.Role, error) {
	roles, err := s.repo.List(ctx)
	if err != nil {
		return nil, domain.AsInternal(err, "list roles")
	}
	return roles, nil
}
