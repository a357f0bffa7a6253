package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskflow/internal/middleware"
	"taskflow/internal/service/notification"
)

func TestWebSocketReceivesNotification(t *testing.T) {
	e := setupEnv(t)
	srv := httptest.NewServer(e.router)
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=" + e.token(t, e.assignee)
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	require.NoError(t, err)
	defer conn.CloseNow() //nolint:errcheck

	require.Eventually(t, func() bool {
		_, ok := e.registry.Lookup(e.assignee.ID)
		return ok
	}, 2*time.Second, 10*time.Millisecond)

	created := e.createTask(t)

	var frame struct {
		Event string                   `json:"event"`
		Data  notification.PushMessage `json:"data"`
	}
	require.NoError(t, wsjson.Read(ctx, conn, &frame))
	assert.Equal(t, notification.PushEvent, frame.Event)
	assert.Contains(t, frame.Data.Content, created.Title)
	assert.False(t, frame.Data.IsRead)

	require.NoError(t, conn.Close(websocket.StatusNormalClosure, ""))
	require.Eventually(t, func() bool {
		_, ok := e.registry.Lookup(e.assignee.ID)
		return !ok
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWebSocketRejectsAnonymous(t *testing.T) {
	e := setupEnv(t)
	srv := httptest.NewServer(e.router)
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, resp, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestCORSPreflight(t *testing.T) {
	e := setupEnv(t)
	req := httptest.NewRequest(http.MethodOptions, "/task", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPatch)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), http.MethodPatch)
}

func TestCORSOptions(t *testing.T) {
	assert.False(t, corsOptions([]string{"*"}).AllowCredentials)
	assert.True(t, corsOptions([]string{"https://app.example.com"}).AllowCredentials)
}

func TestLoginRateLimit(t *testing.T) {
	e := setupEnv(t, func(c *RouterConfig) {
		c.LoginRateLimit = middleware.RateLimitConfig{RequestsPerSecond: 0.001, Burst: 2}
	})
	creds := map[string]string{"email": e.assigner.Email, "password": "wrong"}

	for i := 0; i < 2; i++ {
		rec := e.do(t, nil, http.MethodPost, "/auth/login", creds)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	}
	rec := e.do(t, nil, http.MethodPost, "/auth/login", creds)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	// Other routes keep the general budget.
	rec = e.do(t, e.assigner, http.MethodGet, "/user/me", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
