package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/caffea/api/internal/database"
	"github.com/caffea/api/internal/enum"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// Errors returned by the order service.
var (
	ErrTableNameRequired = errors.New("tableName is required")
	ErrEmptyItems        = errors.New("items are required")
	ErrItemNameRequired  = errors.New("item name is required")
	ErrInvalidQuantity   = errors.New("quantity must be >= 1")
	ErrInvalidPrice      = errors.New("price must be >= 0")
	ErrInvalidMenuItemID = errors.New("invalid menu item id")
	ErrOrderNotFound     = errors.New("order not found")
	ErrBatchNotFound     = errors.New("batch not found")
	ErrItemNotFound      = errors.New("item not found")
)

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// OrderStore defines the DB methods needed by the order ledger.
// Satisfied by *database.Queries (and its WithTx variant).
type OrderStore interface {
	CreateOrder(ctx context.Context, tableName string) (database.Order, error)
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	GetOpenOrderByTable(ctx context.Context, tableName string) (database.Order, error)
	ListActiveOrders(ctx context.Context) ([]database.Order, error)
	ListOrdersByTable(ctx context.Context, tableName string) ([]database.Order, error)
	MarkOrderServed(ctx context.Context, id uuid.UUID) (database.Order, error)
	CreateBatch(ctx context.Context, orderID uuid.UUID) (database.OrderBatch, error)
	GetBatch(ctx context.Context, arg database.GetBatchParams) (database.OrderBatch, error)
	GetLatestBatch(ctx context.Context, orderID uuid.UUID) (database.OrderBatch, error)
	ListBatchesByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderBatch, error)
	CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
	ListItemsByBatch(ctx context.Context, batchID uuid.UUID) ([]database.OrderItem, error)
	DeleteOrderItem(ctx context.Context, arg database.DeleteOrderItemParams) (uuid.UUID, error)
	OccupyTable(ctx context.Context, name string) (database.CafeTable, error)
	CreateScheduledTask(ctx context.Context, arg database.CreateScheduledTaskParams) (database.ScheduledTask, error)
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx).
// This allows the service to create store instances from transactions.
type NewOrderStore func(db database.DBTX) OrderStore

// ItemRequest is one line of a cart submission. Price is the unit price
// snapshot at confirm time; it is never recomputed from the menu later.
type ItemRequest struct {
	Name        string
	Price       decimal.Decimal
	Quantity    int32
	SubCategory string
	MenuItemID  string
}

// ConfirmBatchRequest is the validated input for confirming a cart.
type ConfirmBatchRequest struct {
	TableName string
	Items     []ItemRequest
}

// OrderDetail is an order with its batches and items, in insertion order.
type OrderDetail struct {
	Order   database.Order
	Batches []BatchDetail
}

// BatchDetail is a batch with its items.
type BatchDetail struct {
	Batch database.OrderBatch
	Items []database.OrderItem
}

// OrderService is the order batch ledger: it tracks per-table batches from
// cart confirm through serving.
type OrderService struct {
	store         OrderStore
	pool          TxBeginner
	newStore      NewOrderStore
	stock         StockDeducter
	notifier      Notifier
	serveDeadline time.Duration
}

// NewOrderService creates a new OrderService. serveDeadline is how long an
// order may sit unserved before the scheduler raises a delay notification.
func NewOrderService(store OrderStore, pool TxBeginner, newStore NewOrderStore, stock StockDeducter, notifier Notifier, serveDeadline time.Duration) *OrderService {
	return &OrderService{
		store:         store,
		pool:          pool,
		newStore:      newStore,
		stock:         stock,
		notifier:      notifier,
		serveDeadline: serveDeadline,
	}
}

// ConfirmBatch appends a confirmed cart to the table's open order, creating
// the order if the table has none. The batch insert, table occupancy flip,
// and the durable delay check are one transaction; stock deduction and the
// NEW_ORDER notification run best-effort after commit.
func (s *OrderService) ConfirmBatch(ctx context.Context, req ConfirmBatchRequest) (*OrderDetail, error) {
	if req.TableName == "" {
		return nil, ErrTableNameRequired
	}
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}
	params, err := buildItemParams(req.Items)
	if err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := store.GetOpenOrderByTable(ctx, req.TableName)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("get open order: %w", err)
		}
		order, err = store.CreateOrder(ctx, req.TableName)
		if err != nil {
			return nil, fmt.Errorf("create order: %w", err)
		}
	}

	batch, err := store.CreateBatch(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("create batch: %w", err)
	}
	for _, p := range params {
		p.BatchID = batch.ID
		if _, err := store.CreateOrderItem(ctx, p); err != nil {
			return nil, fmt.Errorf("create order item: %w", err)
		}
	}

	// First confirm flips the table to OCCUPIED. No rows matched means the
	// table is already occupied or unknown; either way the order stands.
	if _, err := store.OccupyTable(ctx, req.TableName); err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("occupy table: %w", err)
	}

	// Durable delay check. Persisted with the batch so a restart cannot
	// lose it.
	_, err = store.CreateScheduledTask(ctx, database.CreateScheduledTaskParams{
		OrderID: order.ID,
		DueAt:   time.Now().Add(s.serveDeadline),
	})
	if err != nil {
		return nil, fmt.Errorf("schedule delay check: %w", err)
	}

	detail, err := loadOrderDetail(ctx, store, order)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	deductions := make([]StockDeduction, len(req.Items))
	for i, item := range req.Items {
		deductions[i] = StockDeduction{Name: item.Name, Quantity: item.Quantity}
	}
	s.stock.DeductItems(ctx, deductions)

	s.notifier.Notify(ctx, enum.NotificationTypeNewOrder, enum.NotificationLevelInfo,
		fmt.Sprintf("New order batch for %s (%d items).", req.TableName, len(req.Items)),
		map[string]interface{}{"tableName": req.TableName, "orderId": order.ID})

	return detail, nil
}

// AddItem appends one item to the given batch, or to the last batch when
// batchID is nil. An order with no batches gets a fresh one.
func (s *OrderService) AddItem(ctx context.Context, orderID uuid.UUID, batchID *uuid.UUID, item ItemRequest) (*OrderDetail, error) {
	if item.Quantity == 0 {
		item.Quantity = 1
	}
	params, err := buildItemParams([]ItemRequest{item})
	if err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := store.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	var batch database.OrderBatch
	if batchID != nil {
		batch, err = store.GetBatch(ctx, database.GetBatchParams{ID: *batchID, OrderID: order.ID})
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrBatchNotFound
			}
			return nil, fmt.Errorf("get batch: %w", err)
		}
	} else {
		batch, err = store.GetLatestBatch(ctx, order.ID)
		if err != nil {
			if !errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("get latest batch: %w", err)
			}
			batch, err = store.CreateBatch(ctx, order.ID)
			if err != nil {
				return nil, fmt.Errorf("create batch: %w", err)
			}
		}
	}

	p := params[0]
	p.BatchID = batch.ID
	if _, err := store.CreateOrderItem(ctx, p); err != nil {
		return nil, fmt.Errorf("create order item: %w", err)
	}

	detail, err := loadOrderDetail(ctx, store, order)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return detail, nil
}

// RemoveItem deletes exactly one item from one batch. Emptied batches stay in
// place. Missing order, batch, or item each surface as their own NotFound.
func (s *OrderService) RemoveItem(ctx context.Context, orderID, batchID, itemID uuid.UUID) (*OrderDetail, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := store.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	if _, err := store.GetBatch(ctx, database.GetBatchParams{ID: batchID, OrderID: order.ID}); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBatchNotFound
		}
		return nil, fmt.Errorf("get batch: %w", err)
	}

	if _, err := store.DeleteOrderItem(ctx, database.DeleteOrderItemParams{ID: itemID, BatchID: batchID}); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("delete order item: %w", err)
	}

	detail, err := loadOrderDetail(ctx, store, order)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return detail, nil
}

// MarkServed closes the order. Marking twice is a no-op, not an error.
func (s *OrderService) MarkServed(ctx context.Context, orderID uuid.UUID) (database.Order, error) {
	order, err := s.store.MarkOrderServed(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, ErrOrderNotFound
		}
		return database.Order{}, fmt.Errorf("mark served: %w", err)
	}
	return order, nil
}

// ListActive returns all unserved orders with their batches, oldest first.
func (s *OrderService) ListActive(ctx context.Context) ([]OrderDetail, error) {
	orders, err := s.store.ListActiveOrders(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active orders: %w", err)
	}
	return s.loadDetails(ctx, orders)
}

// ListByTable returns every order for a table, oldest first.
func (s *OrderService) ListByTable(ctx context.Context, tableName string) ([]OrderDetail, error) {
	if tableName == "" {
		return nil, ErrTableNameRequired
	}
	orders, err := s.store.ListOrdersByTable(ctx, tableName)
	if err != nil {
		return nil, fmt.Errorf("list orders by table: %w", err)
	}
	return s.loadDetails(ctx, orders)
}

func (s *OrderService) loadDetails(ctx context.Context, orders []database.Order) ([]OrderDetail, error) {
	details := make([]OrderDetail, len(orders))
	for i, o := range orders {
		d, err := loadOrderDetail(ctx, s.store, o)
		if err != nil {
			return nil, err
		}
		details[i] = *d
	}
	return details, nil
}

func loadOrderDetail(ctx context.Context, store OrderStore, order database.Order) (*OrderDetail, error) {
	batches, err := store.ListBatchesByOrder(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	detail := &OrderDetail{Order: order, Batches: make([]BatchDetail, len(batches))}
	for i, b := range batches {
		items, err := store.ListItemsByBatch(ctx, b.ID)
		if err != nil {
			return nil, fmt.Errorf("list batch items: %w", err)
		}
		detail.Batches[i] = BatchDetail{Batch: b, Items: items}
	}
	return detail, nil
}

func buildItemParams(items []ItemRequest) ([]database.CreateOrderItemParams, error) {
	params := make([]database.CreateOrderItemParams, len(items))
	for i, item := range items {
		if item.Name == "" {
			return nil, fmt.Errorf("items[%d]: %w", i, ErrItemNameRequired)
		}
		if item.Quantity < 1 {
			return nil, fmt.Errorf("items[%d]: %w", i, ErrInvalidQuantity)
		}
		if item.Price.IsNegative() {
			return nil, fmt.Errorf("items[%d]: %w", i, ErrInvalidPrice)
		}

		subCategory := pgtype.Text{}
		if item.SubCategory != "" {
			subCategory = pgtype.Text{String: item.SubCategory, Valid: true}
		}

		menuItemID := pgtype.UUID{}
		if item.MenuItemID != "" {
			id, err := uuid.Parse(item.MenuItemID)
			if err != nil {
				return nil, fmt.Errorf("items[%d]: %w", i, ErrInvalidMenuItemID)
			}
			menuItemID = pgtype.UUID{Bytes: id, Valid: true}
		}

		params[i] = database.CreateOrderItemParams{
			Name:        item.Name,
			SubCategory: subCategory,
			Price:       decimalToNumeric(item.Price),
			Quantity:    item.Quantity,
			MenuItemID:  menuItemID,
		}
	}
	return params, nil
}
