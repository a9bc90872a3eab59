package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/caffea/api/internal/database"
	"github.com/caffea/api/internal/enum"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// StockStore defines the DB methods needed to deduct stock.
// Satisfied by *database.Queries.
type StockStore interface {
	DeductStock(ctx context.Context, arg database.DeductStockParams) (database.DeductStockRow, error)
}

// StockDeducter is the order-confirm hook that decrements inventory.
type StockDeducter interface {
	DeductItems(ctx context.Context, items []StockDeduction)
}

// StockDeduction is one ordered line to deduct, keyed by inventory item name.
type StockDeduction struct {
	Name     string
	Quantity int32
}

// StockService decrements inventory when orders are confirmed. Every failure
// path logs and continues: a deduction problem never blocks order confirmation.
type StockService struct {
	store    StockStore
	notifier Notifier
}

// NewStockService creates a new StockService.
func NewStockService(store StockStore, notifier Notifier) *StockService {
	return &StockService{store: store, notifier: notifier}
}

// DeductItems decrements each matching inventory record by the ordered
// quantity, clamped at zero. Overselling and low stock raise notifications.
func (s *StockService) DeductItems(ctx context.Context, items []StockDeduction) {
	for _, item := range items {
		if item.Quantity <= 0 {
			continue
		}
		qty := decimal.NewFromInt32(item.Quantity)

		row, err := s.store.DeductStock(ctx, database.DeductStockParams{
			ItemName: item.Name,
			Quantity: decimalToNumeric(qty),
		})
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				// Not every menu item maps to a tracked inventory record.
				continue
			}
			log.Printf("ERROR: deduct stock for %q: %v", item.Name, err)
			continue
		}

		prev := numericToDecimal(row.PreviousQuantity)
		remaining := numericToDecimal(row.QuantityRemaining)
		reorder := numericToDecimal(row.ReorderLevel)

		if prev.LessThan(qty) {
			s.notifier.Notify(ctx, enum.NotificationTypeOversold, enum.NotificationLevelError,
				fmt.Sprintf("Oversold %q: ordered %d, only %s in stock.", item.Name, item.Quantity, prev.String()),
				map[string]interface{}{"item": item.Name, "ordered": item.Quantity, "available": prev.String()})
		} else if remaining.LessThanOrEqual(reorder) {
			s.notifier.Notify(ctx, enum.NotificationTypeLowStock, enum.NotificationLevelWarning,
				fmt.Sprintf("Low stock for %q: %s remaining.", item.Name, remaining.String()),
				map[string]interface{}{"item": item.Name, "remaining": remaining.String()})
		}
	}
}
