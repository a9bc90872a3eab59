// Package scheduler polls the scheduled_tasks table and fires order delay
// notifications. Tasks are durable rows, so pending checks survive restarts,
// and claiming uses SKIP LOCKED so multiple instances can poll safely.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/caffea/api/internal/database"
	"github.com/caffea/api/internal/enum"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const claimBatchSize = 50

// sweepEvery controls how often expired notifications are purged, counted in
// poll ticks.
const sweepEvery = 20

// Store defines the DB methods the scheduler needs.
// Satisfied by *database.Queries.
type Store interface {
	ClaimDueTasks(ctx context.Context, limit int32) ([]database.ScheduledTask, error)
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	DeleteExpiredNotifications(ctx context.Context) error
}

// Notifier raises the delay notification.
type Notifier interface {
	Notify(ctx context.Context, typ, level, message string, data map[string]interface{})
}

// Scheduler drains due tasks on an interval.
type Scheduler struct {
	store    Store
	notifier Notifier
	interval time.Duration
	deadline time.Duration
}

// New creates a Scheduler. interval is the poll period; deadline is the serve
// deadline used in the notification message.
func New(store Store, notifier Notifier, interval, deadline time.Duration) *Scheduler {
	return &Scheduler{store: store, notifier: notifier, interval: interval, deadline: deadline}
}

// Run polls until ctx is cancelled. Intended to run in its own goroutine.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	ticks := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.drain(ctx); err != nil {
				log.Printf("ERROR: drain scheduled tasks: %v", err)
			}
			ticks++
			if ticks%sweepEvery == 0 {
				if err := s.store.DeleteExpiredNotifications(ctx); err != nil {
					log.Printf("ERROR: sweep expired notifications: %v", err)
				}
			}
		}
	}
}

// drain claims every currently due task and fires delay notifications for
// orders that are still unserved.
func (s *Scheduler) drain(ctx context.Context) error {
	for {
		tasks, err := s.store.ClaimDueTasks(ctx, claimBatchSize)
		if err != nil {
			return fmt.Errorf("claim due tasks: %w", err)
		}
		if len(tasks) == 0 {
			return nil
		}
		for _, task := range tasks {
			s.check(ctx, task)
		}
		if len(tasks) < claimBatchSize {
			return nil
		}
	}
}

func (s *Scheduler) check(ctx context.Context, task database.ScheduledTask) {
	order, err := s.store.GetOrder(ctx, task.OrderID)
	if err != nil {
		// A deleted order makes the check moot.
		if !errors.Is(err, pgx.ErrNoRows) {
			log.Printf("ERROR: delay check for order %s: %v", task.OrderID, err)
		}
		return
	}
	if order.Served {
		return
	}

	s.notifier.Notify(ctx, enum.NotificationTypeOrderDelay, enum.NotificationLevelWarning,
		fmt.Sprintf("Order for %s not served after %s.", order.TableName, s.deadline),
		map[string]interface{}{"orderId": order.ID, "tableName": order.TableName})
}
