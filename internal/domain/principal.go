package domain

import (
	"net/mail"
	"strings"
	"time"
)

// Principal is the authenticated actor of a request: a user together with
// the permission set resolved from their role. It is never stored.
type Principal struct {
	ID          string
	Name        string
	Email       string
	RoleID      string
	Permissions PermissionSet
}

// User is a persisted account.
type User struct {
	ID           string    `db:"id"`
	Name         string    `db:"name"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	RoleID       string    `db:"role_id"`
	CreatedAt    time.Time `db:"created_at"`
}

// Role is a named permission set.
type Role struct {
	ID          string
	Name        string
	Permissions []Permission
	CreatedAt   time.Time
}

// CreateUserRequest holds parameters for creating a user.
type CreateUserRequest struct {
	Name     string
	Email    string
	Password string
	RoleID   string
}

// Validate checks that the request is well-formed.
func (r *CreateUserRequest) Validate() error {
	fields := map[string]string{}
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.TrimSpace(strings.ToLower(r.Email))
	if n := len([]rune(r.Name)); n < 3 || n > 127 {
		fields["name"] = "name must be between 3 and 127 characters"
	}
	if _, err := mail.ParseAddress(r.Email); err != nil || r.Email == "" {
		fields["email"] = "email must be a valid address"
	}
	if len(r.Password) < 8 {
		fields["password"] = "password must be at least 8 characters"
	}
	if r.RoleID == "" {
		fields["roleId"] = "roleId is required"
	}
	if len(fields) > 0 {
		return ErrFieldValidation(fields)
	}
	return nil
}

// CreateRoleRequest holds parameters for creating a role.
type CreateRoleRequest struct {
	Name        string
	Permissions []Permission
}

// Validate checks that the request is well-formed.
func (r *CreateRoleRequest) Validate() error {
	fields := map[string]string{}
	r.Name = strings.TrimSpace(r.Name)
	if n := len([]rune(r.Name)); n < 2 || n > 64 {
		fields["name"] = "name must be between 2 and 64 characters"
	}
	for _, p := range r.Permissions {
		if !p.Valid() {
			fields["permissions"] = "unknown permission " + string(p)
			break
		}
	}
	if len(fields) > 0 {
		return ErrFieldValidation(fields)
	}
	return nil
}
