package handler

import (
	"log/slog"
	"net/http"

	"github.com/HaronZ/cdrrmo-file-manager/internal/domain/models"
	"github.com/HaronZ/cdrrmo-file-manager/internal/httputil"
	"github.com/HaronZ/cdrrmo-file-manager/internal/service/notification"
)

// NotificationHandler serves a user's notification feed.
type NotificationHandler struct {
	logger        *slog.Logger
	notifications *notification.Service
}

func NewNotificationHandler(logger *slog.Logger, notifications *notification.Service) *NotificationHandler {
	return &NotificationHandler{logger: logger, notifications: notifications}
}

// List handles GET /notifications
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	items, err := h.notifications.List(r.Context(), actor.UserID,
		httputil.QueryBool(r, "unread_only", false),
		httputil.QueryInt(r, "skip", 0),
		httputil.QueryInt(r, "limit", 50),
	)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	if items == nil {
		items = []*models.Notification{}
	}
	httputil.RespondJSON(w, http.StatusOK, items)
}

// UnreadCount handles GET /notifications/unread-count
func (h *NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	count, err := h.notifications.CountUnread(r.Context(), actor.UserID)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]int64{"count": count})
}

// MarkRead handles PUT /notifications/{id}/read
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	id, err := httputil.PathInt64(r, "id")
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.notifications.MarkRead(r.Context(), actor.UserID, id); err != nil {
		handleError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MarkAllRead handles PUT /notifications/read-all
func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	if err := h.notifications.MarkAllRead(r.Context(), actor.UserID); err != nil {
		handleError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Delete handles DELETE /notifications/{id}
func (h *NotificationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	id, err := httputil.PathInt64(r, "id")
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.notifications.Delete(r.Context(), actor.UserID, id); err != nil {
		handleError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteAll handles DELETE /notifications
func (h *NotificationHandler) DeleteAll(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	if err := h.notifications.DeleteAll(r.Context(), actor.UserID); err != nil {
		handleError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
