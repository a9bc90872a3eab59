package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/caffea/api/internal/database"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// NotificationsStore defines the database methods needed by notification
// handlers. Satisfied by *database.Queries; narrow interface for testability.
type NotificationsStore interface {
	ListNotifications(ctx context.Context, arg database.ListNotificationsParams) ([]database.Notification, error)
	ListUnreadNotifications(ctx context.Context) ([]database.Notification, error)
	MarkNotificationRead(ctx context.Context, id uuid.UUID) (database.Notification, error)
	MarkAllNotificationsRead(ctx context.Context) error
}

// NotificationHandler handles alert feed endpoints.
type NotificationHandler struct {
	store NotificationsStore
}

// NewNotificationHandler creates a new NotificationHandler.
func NewNotificationHandler(store NotificationsStore) *NotificationHandler {
	return &NotificationHandler{store: store}
}

// RegisterRoutes registers notification endpoints on the given Chi router.
func (h *NotificationHandler) RegisterRoutes(r chi.Router) {
	r.Get("/notifications", h.List)
	r.Get("/notifications/unread", h.ListUnread)
	r.Patch("/notifications/{id}/read", h.MarkRead)
	r.Patch("/notifications/read-all", h.MarkAllRead)
}

type notificationResponse struct {
	ID        uuid.UUID       `json:"id"`
	Type      string          `json:"type"`
	Level     string          `json:"level"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data"`
	IsRead    bool            `json:"isRead"`
	ExpiresAt time.Time       `json:"expiresAt"`
	CreatedAt time.Time       `json:"createdAt"`
}

// List handles GET /notifications. Optional type and level query params filter
// the feed.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	notifs, err := h.store.ListNotifications(r.Context(), database.ListNotificationsParams{
		Type:  q.Get("type"),
		Level: q.Get("level"),
	})
	if err != nil {
		log.Printf("ERROR: list notifications: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, toNotificationResponses(notifs))
}

// ListUnread handles GET /notifications/unread.
func (h *NotificationHandler) ListUnread(w http.ResponseWriter, r *http.Request) {
	notifs, err := h.store.ListUnreadNotifications(r.Context())
	if err != nil {
		log.Printf("ERROR: list unread notifications: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, toNotificationResponses(notifs))
}

// MarkRead handles PATCH /notifications/{id}/read.
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid notification ID"})
		return
	}

	notif, err := h.store.MarkNotificationRead(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "notification not found"})
			return
		}
		log.Printf("ERROR: mark notification read: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toNotificationResponse(notif))
}

// MarkAllRead handles PATCH /notifications/read-all.
func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	if err := h.store.MarkAllNotificationsRead(r.Context()); err != nil {
		log.Printf("ERROR: mark all notifications read: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "all notifications marked read"})
}

func toNotificationResponses(notifs []database.Notification) []notificationResponse {
	resp := make([]notificationResponse, len(notifs))
	for i, n := range notifs {
		resp[i] = toNotificationResponse(n)
	}
	return resp
}

func toNotificationResponse(n database.Notification) notificationResponse {
	data := json.RawMessage(n.Data)
	if len(data) == 0 {
		data = json.RawMessage("null")
	}
	return notificationResponse{
		ID:        n.ID,
		Type:      n.Type,
		Level:     n.Level,
		Message:   n.Message,
		Data:      data,
		IsRead:    n.IsRead,
		ExpiresAt: n.ExpiresAt,
		CreatedAt: n.CreatedAt,
	}
}
