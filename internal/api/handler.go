// Package api provides the HTTP handlers of the task workflow REST API.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"taskflow/internal/domain"
	"taskflow/internal/middleware"
	"taskflow/internal/service/notification"
	"taskflow/internal/service/security"
	"taskflow/internal/service/task"
)

const maxBodyBytes = 1 << 20

// APIHandler serves the REST endpoints.
type APIHandler struct {
	tasks         *task.Service
	notifications *notification.Service
	users         *security.UserService
	roles         *security.RoleService
	audit         *security.AuditService
	issuer        *middleware.TokenIssuer
	cookieSecure  bool
	logger        *slog.Logger
}

// NewHandler creates an APIHandler with all required service dependencies.
func NewHandler(
	tasks *task.Service,
	notifications *notification.Service,
	users *security.UserService,
	roles *security.RoleService,
	audit *security.AuditService,
	issuer *middleware.TokenIssuer,
	cookieSecure bool,
	logger *slog.Logger,
) *APIHandler {
	return &APIHandler{
		tasks:         tasks,
		notifications: notifications,
		users:         users,
		roles:         roles,
		audit:         audit,
		issuer:        issuer,
		cookieSecure:  cookieSecure,
		logger:        logger,
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON reads a single JSON object into v. Unknown fields are rejected
// so that typos do not silently become no-op updates.
func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return domain.ErrValidation("request body is required")
		}
		return domain.ErrValidation("invalid request body: %v", err)
	}
	return nil
}
