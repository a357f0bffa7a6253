package push

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskflow/internal/domain"
)

func withUser(id string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id != "" {
			r = r.WithContext(domain.WithPrincipal(r.Context(), &domain.Principal{ID: id}))
		}
		next.ServeHTTP(w, r)
	})
}

func newTestServer(t *testing.T, reg Registry, userID string) string {
	t.Helper()
	h := NewHandler(reg, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	srv := httptest.NewServer(withUser(userID, h))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestHandler_PushesToConnectedUser(t *testing.T) {
	reg := NewMemoryRegistry()
	url := newTestServer(t, reg, "u1")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	defer client.CloseNow() //nolint:errcheck

	require.Eventually(t, func() bool {
		_, ok := reg.Lookup("u1")
		return ok
	}, 2*time.Second, 10*time.Millisecond)

	conn, _ := reg.Lookup("u1")
	require.NoError(t, conn.Send(ctx, "notification", map[string]string{"content": "hi"}))

	var got struct {
		Event string            `json:"event"`
		Data  map[string]string `json:"data"`
	}
	require.NoError(t, wsjson.Read(ctx, client, &got))
	assert.Equal(t, "notification", got.Event)
	assert.Equal(t, "hi", got.Data["content"])

	require.NoError(t, client.Close(websocket.StatusNormalClosure, ""))
	assert.Eventually(t, func() bool {
		_, ok := reg.Lookup("u1")
		return !ok
	}, 2*time.Second, 10*time.Millisecond)
}

func TestHandler_RejectsAnonymous(t *testing.T) {
	reg := NewMemoryRegistry()
	url := newTestServer(t, reg, "")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, resp, err := websocket.Dial(ctx, url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Zero(t, reg.Len())
}
