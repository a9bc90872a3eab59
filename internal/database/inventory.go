package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const createInventoryItem = `
INSERT INTO inventory_items (item_name, category, unit, quantity_available, reorder_level)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, item_name, category, unit, quantity_available, reorder_level, created_at, updated_at
`

type CreateInventoryItemParams struct {
	ItemName          string
	Category          string
	Unit              string
	QuantityAvailable pgtype.Numeric
	ReorderLevel      pgtype.Numeric
}

func (q *Queries) CreateInventoryItem(ctx context.Context, arg CreateInventoryItemParams) (InventoryItem, error) {
	row := q.db.QueryRow(ctx, createInventoryItem,
		arg.ItemName, arg.Category, arg.Unit, arg.QuantityAvailable, arg.ReorderLevel)
	return scanInventoryItem(row)
}

const listInventory = `
SELECT id, item_name, category, unit, quantity_available, reorder_level, created_at, updated_at
FROM inventory_items
ORDER BY item_name
`

func (q *Queries) ListInventory(ctx context.Context) ([]InventoryItem, error) {
	rows, err := q.db.Query(ctx, listInventory)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []InventoryItem
	for rows.Next() {
		i, err := scanInventoryItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const listLowStock = `
SELECT id, item_name, category, unit, quantity_available, reorder_level, created_at, updated_at
FROM inventory_items
WHERE quantity_available <= reorder_level
ORDER BY item_name
`

func (q *Queries) ListLowStock(ctx context.Context) ([]InventoryItem, error) {
	rows, err := q.db.Query(ctx, listLowStock)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []InventoryItem
	for rows.Next() {
		i, err := scanInventoryItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const deductStock = `
WITH prev AS (
    SELECT id, quantity_available
    FROM inventory_items
    WHERE item_name = $1
)
UPDATE inventory_items i
SET quantity_available = GREATEST(i.quantity_available - $2, 0), updated_at = now()
FROM prev
WHERE i.id = prev.id
RETURNING prev.quantity_available, i.quantity_available, i.reorder_level
`

type DeductStockParams struct {
	ItemName string
	Quantity pgtype.Numeric
}

type DeductStockRow struct {
	PreviousQuantity  pgtype.Numeric
	QuantityRemaining pgtype.Numeric
	ReorderLevel      pgtype.Numeric
}

// DeductStock atomically decrements a stock quantity, clamped at zero. The
// previous quantity is returned so the caller can detect overselling.
func (q *Queries) DeductStock(ctx context.Context, arg DeductStockParams) (DeductStockRow, error) {
	row := q.db.QueryRow(ctx, deductStock, arg.ItemName, arg.Quantity)
	var r DeductStockRow
	err := row.Scan(&r.PreviousQuantity, &r.QuantityRemaining, &r.ReorderLevel)
	return r, err
}

type inventoryScanner interface {
	Scan(dest ...interface{}) error
}

func scanInventoryItem(row inventoryScanner) (InventoryItem, error) {
	var i InventoryItem
	err := row.Scan(&i.ID, &i.ItemName, &i.Category, &i.Unit, &i.QuantityAvailable,
		&i.ReorderLevel, &i.CreatedAt, &i.UpdatedAt)
	return i, err
}
