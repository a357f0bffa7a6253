package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"taskflow/internal/domain"
)

func TestHTTPStatusFromDomainError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", domain.ErrValidation("bad"), http.StatusBadRequest},
		{"unauthenticated", domain.ErrUnauthenticated("who"), http.StatusUnauthorized},
		{"access denied", domain.ErrAccessDenied("no"), http.StatusForbidden},
		{"not found", domain.ErrNotFound("gone"), http.StatusNotFound},
		{"conflict", domain.ErrConflict("dup"), http.StatusBadRequest},
		{"internal", domain.AsInternal(errors.New("disk"), "store"), http.StatusInternalServerError},
		{"unclassified", errors.New("boom"), http.StatusInternalServerError},
		{"wrapped not found", fmt.Errorf("load: %w", domain.ErrNotFound("gone")), http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, httpStatusFromDomainError(tt.err))
		})
	}
}

func TestErrorBody(t *testing.T) {
	body := errorBody(domain.ErrFieldValidation(map[string]string{"title": "too short"}))
	assert.Equal(t, http.StatusBadRequest, body.StatusCode)
	assert.Equal(t, "validation failed", body.Message)
	assert.Equal(t, map[string]string{"title": "too short"}, body.Errors)

	body = errorBody(domain.AsInternal(errors.New("database is locked"), "update task"))
	assert.Equal(t, http.StatusInternalServerError, body.StatusCode)
	assert.Equal(t, "internal server error", body.Message)
	assert.Empty(t, body.Errors)
	assert.NotNil(t, body.Errors)
}
