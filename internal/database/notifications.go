package database

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const createNotification = `
INSERT INTO notifications (type, level, message, data, expires_at)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, type, level, message, data, is_read, expires_at, created_at
`

type CreateNotificationParams struct {
	Type      string
	Level     string
	Message   string
	Data      []byte
	ExpiresAt time.Time
}

func (q *Queries) CreateNotification(ctx context.Context, arg CreateNotificationParams) (Notification, error) {
	row := q.db.QueryRow(ctx, createNotification,
		arg.Type, arg.Level, arg.Message, arg.Data, arg.ExpiresAt)
	return scanNotification(row)
}

const listUnreadNotifications = `
SELECT id, type, level, message, data, is_read, expires_at, created_at
FROM notifications
WHERE NOT is_read AND expires_at > now()
ORDER BY created_at DESC
LIMIT 50
`

func (q *Queries) ListUnreadNotifications(ctx context.Context) ([]Notification, error) {
	rows, err := q.db.Query(ctx, listUnreadNotifications)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var notifs []Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		notifs = append(notifs, n)
	}
	return notifs, rows.Err()
}

const listNotifications = `
SELECT id, type, level, message, data, is_read, expires_at, created_at
FROM notifications
WHERE ($1 = '' OR type = $1)
  AND ($2 = '' OR level = $2)
  AND expires_at > now()
ORDER BY created_at DESC
LIMIT 200
`

type ListNotificationsParams struct {
	Type  string
	Level string
}

func (q *Queries) ListNotifications(ctx context.Context, arg ListNotificationsParams) ([]Notification, error) {
	rows, err := q.db.Query(ctx, listNotifications, arg.Type, arg.Level)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var notifs []Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		notifs = append(notifs, n)
	}
	return notifs, rows.Err()
}

const markNotificationRead = `
UPDATE notifications
SET is_read = TRUE
WHERE id = $1
RETURNING id, type, level, message, data, is_read, expires_at, created_at
`

func (q *Queries) MarkNotificationRead(ctx context.Context, id uuid.UUID) (Notification, error) {
	row := q.db.QueryRow(ctx, markNotificationRead, id)
	return scanNotification(row)
}

const markAllNotificationsRead = `
UPDATE notifications
SET is_read = TRUE
WHERE NOT is_read
`

func (q *Queries) MarkAllNotificationsRead(ctx context.Context) error {
	_, err := q.db.Exec(ctx, markAllNotificationsRead)
	return err
}

const deleteExpiredNotifications = `
DELETE FROM notifications
WHERE expires_at <= now()
`

// DeleteExpiredNotifications is the TTL sweep, run periodically by the
// scheduler.
func (q *Queries) DeleteExpiredNotifications(ctx context.Context) error {
	_, err := q.db.Exec(ctx, deleteExpiredNotifications)
	return err
}

type notificationScanner interface {
	Scan(dest ...interface{}) error
}

func scanNotification(row notificationScanner) (Notification, error) {
	var n Notification
	err := row.Scan(&n.ID, &n.Type, &n.Level, &n.Message, &n.Data, &n.IsRead, &n.ExpiresAt, &n.CreatedAt)
	return n, err
}
