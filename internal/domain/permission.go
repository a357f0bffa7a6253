package domain

import "sort"

// Permission is a named capability granted to a role.
type Permission string

// Known permissions.
const (
	PermCreateTask       Permission = "CREATE_TASK"
	PermUpdateTask       Permission = "UPDATE_TASK"
	PermUpdateTaskStatus Permission = "UPDATE_TASK_STATUS"
	PermViewTask         Permission = "VIEW_TASK"
	PermManageUsers      Permission = "MANAGE_USERS"
	PermManageRoles      Permission = "MANAGE_ROLES"
	PermViewAudit        Permission = "VIEW_AUDIT"
)

// AllPermissions lists every permission the service understands.
var AllPermissions = []Permission{
	PermCreateTask,
	PermUpdateTask,
	PermUpdateTaskStatus,
	PermViewTask,
	PermManageUsers,
	PermManageRoles,
	PermViewAudit,
}

// Valid reports whether p is a known permission name.
func (p Permission) Valid() bool {
	for _, known := range AllPermissions {
		if p == known {
			return true
		}
	}
	return false
}

// PermissionSet is a resolved set of permissions.
type PermissionSet map[Permission]struct{}

// NewPermissionSet builds a set from a list of permissions.
func NewPermissionSet(perms ...Permission) PermissionSet {
	s := make(PermissionSet, len(perms))
	for _, p := range perms {
		s[p] = struct{}{}
	}
	return s
}

// Has reports exact membership.
func (s PermissionSet) Has(p Permission) bool {
	_, ok := s[p]
	return ok
}

// Sorted returns the members in lexical order.
func (s PermissionSet) Sorted() []Permission {
	out := make([]Permission, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// HasPermission reports whether the principal holds perm. A nil principal
// never holds anything, so it is safe to call on unauthenticated requests.
func HasPermission(p *Principal, perm Permission) bool {
	if p == nil || p.Permissions == nil {
		return false
	}
	return p.Permissions.Has(perm)
}

// RequirePermission returns an AccessDeniedError unless the principal holds perm.
func RequirePermission(p *Principal, perm Permission) error {
	if p == nil {
		return ErrUnauthenticated("authentication required")
	}
	if !HasPermission(p, perm) {
		return ErrAccessDenied("missing permission %s", perm)
	}
	return nil
}
