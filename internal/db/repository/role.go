package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"taskflow/internal/domain"
)

var _ domain.RoleRepository = (*RoleRepo)(nil)

type roleRow struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	CreatedAt time.Time `db:"created_at"`
}

type rolePermRow struct {
	RoleID     string `db:"role_id"`
	Permission string `db:"permission"`
}

// RoleRepo stores roles and their permission sets.
type RoleRepo struct {
	db *sqlx.DB
}

// NewRoleRepo creates a new RoleRepo.
func NewRoleRepo(db *sqlx.DB) *RoleRepo {
	return &RoleRepo{db: db}
}

// Create inserts a role and its permissions in one transaction.
func (r *RoleRepo) Create(ctx context.Context, role *domain.Role) (*domain.Role, error) {
	if role.ID == "" {
		role.ID = domain.NewID()
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO roles (id, name, created_at) VALUES (?, ?, ?)`,
		role.ID, role.Name, nowUTC()); err != nil {
		mapped := mapDBError(err)
		if _, ok := mapped.(*domain.ConflictError); ok {
			return nil, domain.ErrConflict("role %q already exists", role.Name)
		}
		return nil, mapped
	}
	for _, p := range role.Permissions {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO role_permissions (role_id, permission) VALUES (?, ?)`,
			role.ID, string(p)); err != nil {
			return nil, fmt.Errorf("insert permission %s: %w", p, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return r.GetByID(ctx, role.ID)
}

// GetByID returns a role with its permissions.
func (r *RoleRepo) GetByID(ctx context.Context, id string) (*domain.Role, error) {
	var row roleRow
	if err := r.db.GetContext(ctx, &row,
		`SELECT id, name, created_at FROM roles WHERE id = ?`, id); err != nil {
		return nil, notFoundAs(err, "role %q not found", id)
	}
	var perms []string
	if err := r.db.SelectContext(ctx, &perms,
		`SELECT permission FROM role_permissions WHERE role_id = ? ORDER BY permission`, id); err != nil {
		return nil, fmt.Errorf("list role permissions: %w", err)
	}
	return roleFromRow(row, perms), nil
}

// List returns every role with its permissions, ordered by name.
func (r *RoleRepo) List(ctx context.Context) ([]domain.Role, error) {
	var rows []roleRow
	if err := r.db.SelectContext(ctx, &rows,
		`SELECT id, name, created_at FROM roles ORDER BY name`); err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	var perms []rolePermRow
	if err := r.db.SelectContext(ctx, &perms,
		`SELECT role_id, permission FROM role_permissions ORDER BY permission`); err != nil {
		return nil, fmt.Errorf("list role permissions: %w", err)
	}
	byRole := make(map[string][]string, len(rows))
	for _, p := range perms {
		byRole[p.RoleID] = append(byRole[p.RoleID], p.Permission)
	}
	roles := make([]domain.Role, 0, len(rows))
	for _, row := range rows {
		roles = append(roles, *roleFromRow(row, byRole[row.ID]))
	}
	return roles, nil
}

func roleFromRow(row roleRow, perms []string) *domain.Role {
	role := &domain.Role{ID: row.ID, Name: row.Name, CreatedAt: row.CreatedAt}
	for _, p := range perms {
		role.Permissions = append(role.Permissions, domain.Permission(p))
	}
	return role
}
