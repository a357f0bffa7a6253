package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"taskflow/internal/domain"
)

var _ domain.UserRepository = (*UserRepo)(nil)

const selectUser = `SELECT id, name, email, password_hash, role_id, created_at FROM users`

// UserRepo stores user accounts.
type UserRepo struct {
	db *sqlx.DB
}

// NewUserRepo creates a new UserRepo.
func NewUserRepo(db *sqlx.DB) *UserRepo {
	return &UserRepo{db: db}
}

// Create inserts a user. Emails are unique.
func (r *UserRepo) Create(ctx context.Context, u *domain.User) (*domain.User, error) {
	if u.ID == "" {
		u.ID = domain.NewID()
	}
	u.Email = strings.ToLower(u.Email)
	u.CreatedAt = nowUTC()
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO users (id, name, email, password_hash, role_id, created_at)
		VALUES (:id, :name, :email, :password_hash, :role_id, :created_at)
	`, u)
	if err != nil {
		mapped := mapDBError(err)
		if _, ok := mapped.(*domain.ConflictError); ok {
			return nil, domain.ErrConflict("user with email %q already exists", u.Email)
		}
		return nil, mapped
	}
	return r.GetByID(ctx, u.ID)
}

// GetByID returns a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	var u domain.User
	if err := r.db.GetContext(ctx, &u, selectUser+` WHERE id = ?`, id); err != nil {
		return nil, notFoundAs(err, "user %q not found", id)
	}
	return &u, nil
}

// GetByEmail returns a user by (case-insensitive) email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var u domain.User
	if err := r.db.GetContext(ctx, &u, selectUser+` WHERE email = ?`, strings.ToLower(email)); err != nil {
		return nil, notFoundAs(err, "user %q not found", email)
	}
	return &u, nil
}

// List returns all users ordered by name.
func (r *UserRepo) List(ctx context.Context) ([]domain.User, error) {
	var users []domain.User
	if err := r.db.SelectContext(ctx, &users, selectUser+` ORDER BY name, id`); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}
