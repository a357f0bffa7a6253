package security

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"taskflow/internal/domain"
	"taskflow/internal/service/auditutil"
)

// dummyHash is compared against when the email is unknown so that failed
// logins take the same time either way.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("taskflow-dummy-password"), bcrypt.DefaultCost)

// UserService manages user accounts and resolves principals.
type UserService struct {
	users domain.UserRepository
	roles domain.RoleRepository
	audit domain.AuditRepository
	cost  int
}

// NewUserService creates a new UserService.
func NewUserService(users domain.UserRepository, roles domain.RoleRepository, audit domain.AuditRepository) *UserService {
	return &UserService{users: users, roles: roles, audit: audit, cost: bcrypt.DefaultCost}
}

// Create adds a user on behalf of a caller holding MANAGE_USERS.
func (s *UserService) Create(ctx context.Context, req domain.CreateUserRequest) (*domain.User, error) {
	p, ok := domain.PrincipalFromContext(ctx)
	if !ok {
		return nil, domain.ErrUnauthenticated("authentication required")
	}
	if err := domain.RequirePermission(p, domain.PermManageUsers); err != nil {
		auditutil.LogDenied(ctx, s.audit, p, "CREATE_USER", "", err.Error())
		return nil, err
	}
	u, err := s.Seed(ctx, req)
	if err != nil {
		return nil, err
	}
	auditutil.LogAllowed(ctx, s.audit, p, "CREATE_USER", u.ID, u.Email)
	return u, nil
}

// Seed adds a user without a caller check. It backs the CLI.
func (s *UserService) Seed(ctx context.Context, req domain.CreateUserRequest) (*domain.User, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.roles.GetByID(ctx, req.RoleID); err != nil {
		var nf *domain.NotFoundError
		if errors.As(err, &nf) {
			return nil, domain.ErrFieldValidation(map[string]string{"roleId": "role does not exist"})
		}
		return nil, domain.AsInternal(err, "load role")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return nil, domain.AsInternal(fmt.Errorf("hash password: %w", err), "create user")
	}
	u, err := s.users.Create(ctx, &domain.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: string(hash),
		RoleID:       req.RoleID,
	})
	if err != nil {
		return nil, domain.AsInternal(err, "create user")
	}
	return u, nil
}

// Me returns the caller's account.
func (s *UserService) Me(ctx context.Context) (*domain.User, error) {
	p, ok := domain.PrincipalFromContext(ctx)
	if !ok {
		return nil, domain.ErrUnauthenticated("authentication required")
	}
	u, err := s.users.GetByID(ctx, p.ID)
	if err != nil {
		return nil, domain.AsInternal(err, "get user")
	}
	return u, nil
}

// List returns every user. Requires MANAGE_USERS.
func (s *UserService) List(ctx context.Context) ([]domain.User, error) {
	p, _ := domain.PrincipalFromContext(ctx)
	if err := domain.RequirePermission(p, domain.PermManageUsers); err != nil {
		return nil, err
	}
	return s.ListAll(ctx)
}

// ListAll returns every user without a caller check. It backs the CLI.
func (s *UserService) ListAll(ctx context.Context) ([]domain.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, domain.AsInternal(err, "list users")
	}
	return users, nil
}

// Authenticate checks an email and password pair.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		var nf *domain.NotFoundError
		if !errors.As(err, &nf) {
			return nil, domain.AsInternal(err, "load user")
		}
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return nil, domain.ErrUnauthenticated("invalid email or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, domain.ErrUnauthenticated("invalid email or password")
	}
	return u, nil
}

// ResolvePrincipal loads a user and their role's permissions.
func (s *UserService) ResolvePrincipal(ctx context.Context, userID string) (*domain.Principal, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.principalFor(ctx, u)
}

// ResolvePrincipalByEmail is ResolvePrincipal keyed by email, for tokens
// issued by an external identity provider.
func (s *UserService) ResolvePrincipalByEmail(ctx context.Context, email string) (*domain.Principal, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	return s.principalFor(ctx, u)
}

func (s *UserService) principalFor(ctx context.Context, u *domain.User) (*domain.Principal, error) {
	role, err := s.roles.GetByID(ctx, u.RoleID)
	if err != nil {
		return nil, fmt.Errorf("load role for %s: %w", u.ID, err)
	}
	return &domain.Principal{
		ID:          u.ID,
		Name:        u.Name,
		Email:       u.Email,
		RoleID:      role.ID,
		Permissions: domain.NewPermissionSet(role.Permissions...),
	}, nil
}
