package app

import (
	"context"
	"fmt"
	"log/slog"

	"taskflow/internal/domain"
	"taskflow/internal/service/security"
)

// Default roles created on an empty store.
var defaultRoles = []domain.CreateRoleRequest{
	{Name: "admin", Permissions: domain.AllPermissions},
	{Name: "member", Permissions: []domain.Permission{
		domain.PermCreateTask,
		domain.PermUpdateTask,
		domain.PermUpdateTaskStatus,
		domain.PermViewTask,
	}},
}

// SeedRoles creates the default roles when no role exists yet. It is a no-op
// on a store that already has roles.
func SeedRoles(ctx context.Context, roles *security.RoleService, logger *slog.Logger) error {
	existing, err := roles.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("list roles: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}
	for _, req := range defaultRoles {
		r, err := roles.Seed(ctx, req)
		if err != nil {
			return fmt.Errorf("seed role %s: %w", req.Name, err)
		}
		logger.Info("seeded role", "name", r.Name, "id", r.ID)
	}
	return nil
}
