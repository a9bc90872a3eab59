package service

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/caffea/api/internal/database"
	"github.com/caffea/api/internal/ws"
)

// notificationTTL is how long a notification stays visible before the TTL
// sweep removes it.
const notificationTTL = 7 * 24 * time.Hour

// Notifier is the side-effect sink used across services. Implementations must
// be best-effort: a notification failure never aborts the primary operation.
type Notifier interface {
	Notify(ctx context.Context, typ, level, message string, data map[string]interface{})
}

// NotificationStore defines the DB methods needed to persist notifications.
// Satisfied by *database.Queries.
type NotificationStore interface {
	CreateNotification(ctx context.Context, arg database.CreateNotificationParams) (database.Notification, error)
}

// Broadcaster pushes an event to connected staff dashboards.
// Satisfied by *ws.Hub.
type Broadcaster interface {
	Broadcast(event ws.Event)
}

// NotificationService persists notifications and fans them out over the
// websocket hub.
type NotificationService struct {
	store NotificationStore
	hub   Broadcaster
}

// NewNotificationService creates a new NotificationService. hub may be nil in
// contexts without a live dashboard (tests, seed tool).
func NewNotificationService(store NotificationStore, hub Broadcaster) *NotificationService {
	return &NotificationService{store: store, hub: hub}
}

// Notify stores a notification and broadcasts it. Errors are logged and
// swallowed.
func (s *NotificationService) Notify(ctx context.Context, typ, level, message string, data map[string]interface{}) {
	if data == nil {
		data = map[string]interface{}{}
	}
	payload, err := json.Marshal(data)
	if err != nil {
		log.Printf("ERROR: marshal notification data: %v", err)
		payload = []byte(`{}`)
	}

	notif, err := s.store.CreateNotification(ctx, database.CreateNotificationParams{
		Type:      typ,
		Level:     level,
		Message:   message,
		Data:      payload,
		ExpiresAt: time.Now().Add(notificationTTL),
	})
	if err != nil {
		log.Printf("ERROR: create notification: %v", err)
		return
	}

	if s.hub == nil {
		return
	}
	event, err := json.Marshal(map[string]interface{}{
		"id":      notif.ID,
		"type":    notif.Type,
		"level":   notif.Level,
		"message": notif.Message,
	})
	if err != nil {
		log.Printf("ERROR: marshal notification event: %v", err)
		return
	}
	s.hub.Broadcast(ws.Event{Type: "notification", Payload: event})
}
