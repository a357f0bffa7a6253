package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"taskflow/internal/domain"
)

// SessionCookie is the cookie that carries the session token for browsers.
const SessionCookie = "taskflow_session"

// PrincipalResolver turns token identities into principals.
type PrincipalResolver interface {
	ResolvePrincipal(ctx context.Context, userID string) (*domain.Principal, error)
	ResolvePrincipalByEmail(ctx context.Context, email string) (*domain.Principal, error)
}

// AuthMiddleware authenticates the request with the first validator that
// accepts its token and stores the resolved principal in the context.
// Tokens are read from the Authorization header, then the session cookie,
// and for websocket upgrades also from the token query parameter.
func AuthMiddleware(resolver PrincipalResolver, logger *slog.Logger, validators ...JWTValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := tokenFromRequest(r)
			if token == "" {
				writeUnauthorized(w, "authentication required")
				return
			}

			var claims *JWTClaims
			for _, v := range validators {
				c, err := v.Validate(r.Context(), token)
				if err == nil {
					claims = c
					break
				}
				logger.Debug("token rejected", "error", err)
			}
			if claims == nil {
				writeUnauthorized(w, "invalid or expired token")
				return
			}

			var (
				p   *domain.Principal
				err error
			)
			if claims.Local() {
				p, err = resolver.ResolvePrincipal(r.Context(), claims.Subject)
			} else {
				p, err = resolver.ResolvePrincipalByEmail(r.Context(), claims.Email)
			}
			if err != nil {
				logger.Warn("token subject not resolvable", "subject", claims.Subject, "issuer", claims.Issuer, "error", err)
				writeUnauthorized(w, "unknown user")
				return
			}
			next.ServeHTTP(w, r.WithContext(domain.WithPrincipal(r.Context(), p)))
		})
	}
}

func tokenFromRequest(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
		return c.Value
	}
	// Browsers cannot set headers on websocket handshakes.
	if strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
		return r.URL.Query().Get("token")
	}
	return ""
}

func writeUnauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"statusCode": http.StatusUnauthorized,
		"message":    msg,
		"errors":     map[string]string{},
	})
}
