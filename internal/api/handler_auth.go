package api

import (
	"net/http"
	"time"

	"taskflow/internal/domain"
	"taskflow/internal/middleware"
)

type loginBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      userResponse `json:"user"`
}

// Login handles POST /auth/login. The token is returned in the body and
// also set as an HttpOnly session cookie.
func (h *APIHandler) Login(w http.ResponseWriter, r *http.Request) {
	var body loginBody
	if err := decodeJSON(r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}
	if body.Email == "" || body.Password == "" {
		h.writeError(w, r, domain.ErrFieldValidation(map[string]string{
			"email":    "email and password are required",
			"password": "email and password are required",
		}))
		return
	}
	u, err := h.users.Authenticate(r.Context(), body.Email, body.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	token, err := h.issuer.Issue(u.ID, u.Email, u.Name)
	if err != nil {
		h.writeError(w, r, domain.AsInternal(err, "issue token"))
		return
	}
	expires := time.Now().Add(h.issuer.TTL())
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, loginResponse{Token: token, ExpiresAt: expires.UTC(), User: userToAPI(u)})
}

// Logout handles POST /auth/logout by expiring the session cookie. Bearer
// tokens stay valid until they expire.
func (h *APIHandler) Logout(w http.ResponseWriter, _ *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, messageResponse{Message: "logged out"})
}
