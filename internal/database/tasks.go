package database

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const createScheduledTask = `
INSERT INTO scheduled_tasks (order_id, due_at)
VALUES ($1, $2)
RETURNING id, order_id, due_at, done, created_at
`

type CreateScheduledTaskParams struct {
	OrderID uuid.UUID
	DueAt   time.Time
}

func (q *Queries) CreateScheduledTask(ctx context.Context, arg CreateScheduledTaskParams) (ScheduledTask, error) {
	row := q.db.QueryRow(ctx, createScheduledTask, arg.OrderID, arg.DueAt)
	var t ScheduledTask
	err := row.Scan(&t.ID, &t.OrderID, &t.DueAt, &t.Done, &t.CreatedAt)
	return t, err
}

const claimDueTasks = `
UPDATE scheduled_tasks
SET done = TRUE
WHERE id IN (
    SELECT id
    FROM scheduled_tasks
    WHERE NOT done AND due_at <= now()
    ORDER BY due_at
    LIMIT $1
    FOR UPDATE SKIP LOCKED
)
RETURNING id, order_id, due_at, done, created_at
`

// ClaimDueTasks marks due tasks done and returns them. SKIP LOCKED keeps
// concurrent pollers from claiming the same task twice.
func (q *Queries) ClaimDueTasks(ctx context.Context, limit int32) ([]ScheduledTask, error) {
	rows, err := q.db.Query(ctx, claimDueTasks, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var tasks []ScheduledTask
	for rows.Next() {
		var t ScheduledTask
		if err := rows.Scan(&t.ID, &t.OrderID, &t.DueAt, &t.Done, &t.CreatedAt); err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}
