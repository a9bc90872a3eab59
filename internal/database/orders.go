package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const createOrder = `
INSERT INTO orders (table_name)
VALUES ($1)
RETURNING id, table_name, served, created_at, updated_at
`

func (q *Queries) CreateOrder(ctx context.Context, tableName string) (Order, error) {
	row := q.db.QueryRow(ctx, createOrder, tableName)
	var o Order
	err := row.Scan(&o.ID, &o.TableName, &o.Served, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}

const getOrder = `
SELECT id, table_name, served, created_at, updated_at
FROM orders
WHERE id = $1
`

func (q *Queries) GetOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	row := q.db.QueryRow(ctx, getOrder, id)
	var o Order
	err := row.Scan(&o.ID, &o.TableName, &o.Served, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}

const getOpenOrderByTable = `
SELECT id, table_name, served, created_at, updated_at
FROM orders
WHERE table_name = $1 AND NOT served
ORDER BY created_at
LIMIT 1
`

func (q *Queries) GetOpenOrderByTable(ctx context.Context, tableName string) (Order, error) {
	row := q.db.QueryRow(ctx, getOpenOrderByTable, tableName)
	var o Order
	err := row.Scan(&o.ID, &o.TableName, &o.Served, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}

const listActiveOrders = `
SELECT id, table_name, served, created_at, updated_at
FROM orders
WHERE NOT served
ORDER BY created_at
`

func (q *Queries) ListActiveOrders(ctx context.Context) ([]Order, error) {
	rows, err := q.db.Query(ctx, listActiveOrders)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var orders []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.TableName, &o.Served, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

const listOrdersByTable = `
SELECT id, table_name, served, created_at, updated_at
FROM orders
WHERE table_name = $1
ORDER BY created_at
`

func (q *Queries) ListOrdersByTable(ctx context.Context, tableName string) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrdersByTable, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var orders []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.TableName, &o.Served, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

const listActiveOrdersByTable = `
SELECT id, table_name, served, created_at, updated_at
FROM orders
WHERE table_name = $1 AND NOT served
ORDER BY created_at
`

func (q *Queries) ListActiveOrdersByTable(ctx context.Context, tableName string) ([]Order, error) {
	rows, err := q.db.Query(ctx, listActiveOrdersByTable, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var orders []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.TableName, &o.Served, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

const markOrderServed = `
UPDATE orders
SET served = TRUE, updated_at = now()
WHERE id = $1
RETURNING id, table_name, served, created_at, updated_at
`

// MarkOrderServed is idempotent: marking an already served order succeeds
// and returns the unchanged row.
func (q *Queries) MarkOrderServed(ctx context.Context, id uuid.UUID) (Order, error) {
	row := q.db.QueryRow(ctx, markOrderServed, id)
	var o Order
	err := row.Scan(&o.ID, &o.TableName, &o.Served, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}

const createBatch = `
INSERT INTO order_batches (order_id, confirmed)
VALUES ($1, TRUE)
RETURNING id, order_id, confirmed, created_at
`

func (q *Queries) CreateBatch(ctx context.Context, orderID uuid.UUID) (OrderBatch, error) {
	row := q.db.QueryRow(ctx, createBatch, orderID)
	var b OrderBatch
	err := row.Scan(&b.ID, &b.OrderID, &b.Confirmed, &b.CreatedAt)
	return b, err
}

const getBatch = `
SELECT id, order_id, confirmed, created_at
FROM order_batches
WHERE id = $1 AND order_id = $2
`

type GetBatchParams struct {
	ID      uuid.UUID
	OrderID uuid.UUID
}

func (q *Queries) GetBatch(ctx context.Context, arg GetBatchParams) (OrderBatch, error) {
	row := q.db.QueryRow(ctx, getBatch, arg.ID, arg.OrderID)
	var b OrderBatch
	err := row.Scan(&b.ID, &b.OrderID, &b.Confirmed, &b.CreatedAt)
	return b, err
}

const getLatestBatch = `
SELECT id, order_id, confirmed, created_at
FROM order_batches
WHERE order_id = $1
ORDER BY created_at DESC
LIMIT 1
`

func (q *Queries) GetLatestBatch(ctx context.Context, orderID uuid.UUID) (OrderBatch, error) {
	row := q.db.QueryRow(ctx, getLatestBatch, orderID)
	var b OrderBatch
	err := row.Scan(&b.ID, &b.OrderID, &b.Confirmed, &b.CreatedAt)
	return b, err
}

const listBatchesByOrder = `
SELECT id, order_id, confirmed, created_at
FROM order_batches
WHERE order_id = $1
ORDER BY created_at
`

func (q *Queries) ListBatchesByOrder(ctx context.Context, orderID uuid.UUID) ([]OrderBatch, error) {
	rows, err := q.db.Query(ctx, listBatchesByOrder, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var batches []OrderBatch
	for rows.Next() {
		var b OrderBatch
		if err := rows.Scan(&b.ID, &b.OrderID, &b.Confirmed, &b.CreatedAt); err != nil {
			return nil, err
		}
		batches = append(batches, b)
	}
	return batches, rows.Err()
}

const createOrderItem = `
INSERT INTO order_items (batch_id, name, sub_category, price, quantity, menu_item_id)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, batch_id, name, sub_category, price, quantity, menu_item_id, created_at
`

type CreateOrderItemParams struct {
	BatchID     uuid.UUID
	Name        string
	SubCategory pgtype.Text
	Price       pgtype.Numeric
	Quantity    int32
	MenuItemID  pgtype.UUID
}

func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error) {
	row := q.db.QueryRow(ctx, createOrderItem,
		arg.BatchID, arg.Name, arg.SubCategory, arg.Price, arg.Quantity, arg.MenuItemID)
	var i OrderItem
	err := row.Scan(&i.ID, &i.BatchID, &i.Name, &i.SubCategory, &i.Price, &i.Quantity, &i.MenuItemID, &i.CreatedAt)
	return i, err
}

const listItemsByBatch = `
SELECT id, batch_id, name, sub_category, price, quantity, menu_item_id, created_at
FROM order_items
WHERE batch_id = $1
ORDER BY created_at
`

func (q *Queries) ListItemsByBatch(ctx context.Context, batchID uuid.UUID) ([]OrderItem, error) {
	rows, err := q.db.Query(ctx, listItemsByBatch, batchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []OrderItem
	for rows.Next() {
		var i OrderItem
		if err := rows.Scan(&i.ID, &i.BatchID, &i.Name, &i.SubCategory, &i.Price, &i.Quantity, &i.MenuItemID, &i.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const deleteOrderItem = `
DELETE FROM order_items
WHERE id = $1 AND batch_id = $2
RETURNING id
`

type DeleteOrderItemParams struct {
	ID      uuid.UUID
	BatchID uuid.UUID
}

// DeleteOrderItem returns pgx.ErrNoRows when the item is not in the batch, so
// callers can distinguish a miss from a silent success.
func (q *Queries) DeleteOrderItem(ctx context.Context, arg DeleteOrderItemParams) (uuid.UUID, error) {
	row := q.db.QueryRow(ctx, deleteOrderItem, arg.ID, arg.BatchID)
	var id uuid.UUID
	err := row.Scan(&id)
	return id, err
}
