package push

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"taskflow/internal/domain"
)

const (
	writeTimeout = 5 * time.Second
	pingInterval = 30 * time.Second
)

// Envelope is the JSON frame written to websocket clients.
type Envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// WSConn adapts a websocket connection to Conn.
type WSConn struct {
	conn *websocket.Conn
}

func (c *WSConn) Send(ctx context.Context, event string, data any) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, c.conn, Envelope{Event: event, Data: data})
}

// Handler upgrades authenticated requests to a websocket and keeps the
// connection registered until the client goes away. Client frames are
// discarded.
type Handler struct {
	registry       Registry
	originPatterns []string
	logger         *slog.Logger
}

// NewHandler creates a websocket Handler. originPatterns are passed to
// websocket.Accept; an empty list allows same-origin requests only.
func NewHandler(reg Registry, originPatterns []string, logger *slog.Logger) *Handler {
	return &Handler{registry: reg, originPatterns: originPatterns, logger: logger}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	principal, ok := domain.PrincipalFromContext(r.Context())
	if !ok {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: h.originPatterns})
	if err != nil {
		h.logger.Warn("websocket accept failed", "user_id", principal.ID, "error", err)
		return
	}
	defer conn.CloseNow() //nolint:errcheck

	wc := &WSConn{conn: conn}
	h.registry.Register(principal.ID, wc)
	defer h.registry.Unregister(principal.ID, wc)
	h.logger.Debug("push connection opened", "user_id", principal.ID)

	ctx := conn.CloseRead(r.Context())
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			h.logger.Debug("push connection closed", "user_id", principal.ID)
			return
		case <-ticker.C:
			pctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := conn.Ping(pctx)
			cancel()
			if err != nil {
				h.logger.Debug("push connection lost", "user_id", principal.ID, "error", err)
				return
			}
		}
	}
}
