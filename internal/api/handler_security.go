package api

import (
	"net/http"
	"strconv"
	"time"

	"taskflow/internal/domain"
)

type userResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	RoleID    string    `json:"roleId"`
	CreatedAt time.Time `json:"createdAt"`
}

func userToAPI(u *domain.User) userResponse {
	return userResponse{ID: u.ID, Name: u.Name, Email: u.Email, RoleID: u.RoleID, CreatedAt: u.CreatedAt}
}

type roleResponse struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Permissions []domain.Permission `json:"permissions"`
	CreatedAt   time.Time           `json:"createdAt"`
}

func roleToAPI(r *domain.Role) roleResponse {
	perms := r.Permissions
	if perms == nil {
		perms = []domain.Permission{}
	}
	return roleResponse{ID: r.ID, Name: r.Name, Permissions: perms, CreatedAt: r.CreatedAt}
}

type auditEntryResponse struct {
	ID        string    `json:"id"`
	ActorID   string    `json:"actorId"`
	ActorName string    `json:"actorName"`
	Action    string    `json:"action"`
	TargetID  string    `json:"targetId"`
	Status    string    `json:"status"`
	Detail    *string   `json:"detail,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type createUserBody struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	RoleID   string `json:"roleId"`
}

type createRoleBody struct {
	Name        string              `json:"name"`
	Permissions []domain.Permission `json:"permissions"`
}

// CreateUser handles POST /user.
func (h *APIHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var body createUserBody
	if err := decodeJSON(r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}
	u, err := h.users.Create(r.Context(), domain.CreateUserRequest{
		Name:     body.Name,
		Email:    body.Email,
		Password: body.Password,
		RoleID:   body.RoleID,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, userToAPI(u))
}

// ListUsers handles GET /user.
func (h *APIHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := make([]userResponse, 0, len(users))
	for i := range users {
		out = append(out, userToAPI(&users[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

// Me handles GET /user/me.
func (h *APIHandler) Me(w http.ResponseWriter, r *http.Request) {
	u, err := h.users.Me(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, userToAPI(u))
}

// CreateRole handles POST /role.
func (h *APIHandler) CreateRole(w http.ResponseWriter, r *http.Request) {
	var body createRoleBody
	if err := decodeJSON(r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}
	role, err := h.roles.Create(r.Context(), domain.CreateRoleRequest{Name: body.Name, Permissions: body.Permissions})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, roleToAPI(role))
}

// ListRoles handles GET /role.
func (h *APIHandler) ListRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.roles.List(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := make([]roleResponse, 0, len(roles))
	for i := range roles {
		out = append(out, roleToAPI(&roles[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

// ListAudit handles GET /audit?actorId=&action=&status=&since=&limit=.
func (h *APIHandler) ListAudit(w http.ResponseWriter, r *http.Request) {
	filter, err := auditFilterFromQuery(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	entries, err := h.audit.List(r.Context(), filter)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := make([]auditEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, auditEntryResponse{
			ID:        e.ID,
			ActorID:   e.ActorID,
			ActorName: e.ActorName,
			Action:    e.Action,
			TargetID:  e.TargetID,
			Status:    e.Status,
			Detail:    e.Detail,
			CreatedAt: e.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func auditFilterFromQuery(r *http.Request) (domain.AuditFilter, error) {
	q := r.URL.Query()
	var f domain.AuditFilter
	fields := map[string]string{}
	optional := func(key string) *string {
		if v := q.Get(key); v != "" {
			return &v
		}
		return nil
	}
	f.ActorID = optional("actorId")
	f.Action = optional("action")
	f.Status = optional("status")
	if v := q.Get("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			fields["since"] = "since must be an RFC 3339 timestamp"
		} else {
			f.Since = &t
		}
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 1000 {
			fields["limit"] = "limit must be between 1 and 1000"
		} else {
			f.Limit = n
		}
	}
	if len(fields) > 0 {
		return f, domain.ErrFieldValidation(fields)
	}
	return f, nil
}
