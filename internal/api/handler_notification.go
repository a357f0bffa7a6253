package api

import (
	"net/http"
	"time"

	"taskflow/internal/domain"
)

type notificationResponse struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	IsRead    bool      `json:"isRead"`
	CreatedAt time.Time `json:"createdAt"`
}

type unreadCountResponse struct {
	Count int64 `json:"count"`
}

// ListInAppNotifications handles GET /notification/in-app-notifications.
// Items come back with the read state they had before the call; the
// returned unread items are marked read as a side effect.
func (h *APIHandler) ListInAppNotifications(w http.ResponseWriter, r *http.Request) {
	items, err := h.notifications.ListInApp(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := make([]notificationResponse, 0, len(items))
	for _, n := range items {
		out = append(out, notificationToAPI(n))
	}
	writeJSON(w, http.StatusOK, out)
}

// UnreadNotificationsCount handles GET /notification/unread-notifications-count.
func (h *APIHandler) UnreadNotificationsCount(w http.ResponseWriter, r *http.Request) {
	n, err := h.notifications.UnreadCount(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, unreadCountResponse{Count: n})
}

func notificationToAPI(n domain.Notification) notificationResponse {
	return notificationResponse{ID: n.ID, Content: n.Content, IsRead: n.IsRead, CreatedAt: n.CreatedAt}
}
