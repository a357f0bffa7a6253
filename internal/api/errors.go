package api

import (
	"errors"
	"net/http"

	"taskflow/internal/domain"
	"taskflow/internal/middleware"
)

// errorResponse is the body of every non-2xx response.
type errorResponse struct {
	StatusCode int               `json:"statusCode"`
	Message    string            `json:"message"`
	Errors     map[string]string `json:"errors"`
}

// httpStatusFromDomainError maps domain errors to HTTP status codes.
// Conflicts are client errors on the same footing as validation failures.
func httpStatusFromDomainError(err error) int {
	var notFound *domain.NotFoundError
	var unauth *domain.AuthenticationError
	var accessDenied *domain.AccessDeniedError
	var validation *domain.ValidationError
	var conflict *domain.ConflictError

	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &unauth):
		return http.StatusUnauthorized
	case errors.As(err, &accessDenied):
		return http.StatusForbidden
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &conflict):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// errorBody builds the response for err. Internal details never leave the
// process.
func errorBody(err error) errorResponse {
	status := httpStatusFromDomainError(err)
	body := errorResponse{StatusCode: status, Message: err.Error(), Errors: map[string]string{}}

	var validation *domain.ValidationError
	if errors.As(err, &validation) {
		body.Message = validation.Message
		for k, v := range validation.Fields {
			body.Errors[k] = v
		}
	}
	if status == http.StatusInternalServerError {
		body.Message = "internal server error"
	}
	return body
}

func (h *APIHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	body := errorBody(err)
	if body.StatusCode == http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.RequestIDFromContext(r.Context()),
			"error", err,
		)
	} else {
		h.logger.DebugContext(r.Context(), "request rejected", "path", r.URL.Path, "status", body.StatusCode, "error", err)
	}
	writeJSON(w, body.StatusCode, body)
}

// writeStatus writes an error body that has no domain error behind it.
func writeStatus(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{StatusCode: status, Message: msg, Errors: map[string]string{}})
}
