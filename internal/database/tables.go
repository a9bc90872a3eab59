package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const createTable = `
INSERT INTO cafe_tables (name, capacity, served_by, auto_clear_after_billing, status, customers, active_since)
VALUES ($1, $2, $3, $4, 'FREE', 0, NULL)
RETURNING id, name, capacity, status, customers, active_since, last_bill_id, served_by, auto_clear_after_billing, created_at, updated_at
`

type CreateTableParams struct {
	Name                  string
	Capacity              int32
	ServedBy              pgtype.Text
	AutoClearAfterBilling bool
}

// CreateTable forces status FREE, zero customers, and a null active_since
// regardless of caller input.
func (q *Queries) CreateTable(ctx context.Context, arg CreateTableParams) (CafeTable, error) {
	row := q.db.QueryRow(ctx, createTable, arg.Name, arg.Capacity, arg.ServedBy, arg.AutoClearAfterBilling)
	return scanTable(row)
}

const getTable = `
SELECT id, name, capacity, status, customers, active_since, last_bill_id, served_by, auto_clear_after_billing, created_at, updated_at
FROM cafe_tables
WHERE id = $1
`

func (q *Queries) GetTable(ctx context.Context, id uuid.UUID) (CafeTable, error) {
	row := q.db.QueryRow(ctx, getTable, id)
	return scanTable(row)
}

const getTableByName = `
SELECT id, name, capacity, status, customers, active_since, last_bill_id, served_by, auto_clear_after_billing, created_at, updated_at
FROM cafe_tables
WHERE name = $1
`

func (q *Queries) GetTableByName(ctx context.Context, name string) (CafeTable, error) {
	row := q.db.QueryRow(ctx, getTableByName, name)
	return scanTable(row)
}

const listTables = `
SELECT id, name, capacity, status, customers, active_since, last_bill_id, served_by, auto_clear_after_billing, created_at, updated_at
FROM cafe_tables
ORDER BY name
`

func (q *Queries) ListTables(ctx context.Context) ([]CafeTable, error) {
	rows, err := q.db.Query(ctx, listTables)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var tables []CafeTable
	for rows.Next() {
		t, err := scanTable(rows)
		if err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	return tables, rows.Err()
}

const updateTable = `
UPDATE cafe_tables
SET name = $2, capacity = $3, status = $4, customers = $5, active_since = $6, served_by = $7, auto_clear_after_billing = $8, updated_at = now()
WHERE id = $1
RETURNING id, name, capacity, status, customers, active_since, last_bill_id, served_by, auto_clear_after_billing, created_at, updated_at
`

type UpdateTableParams struct {
	ID                    uuid.UUID
	Name                  string
	Capacity              int32
	Status                string
	Customers             int32
	ActiveSince           pgtype.Timestamptz
	ServedBy              pgtype.Text
	AutoClearAfterBilling bool
}

func (q *Queries) UpdateTable(ctx context.Context, arg UpdateTableParams) (CafeTable, error) {
	row := q.db.QueryRow(ctx, updateTable,
		arg.ID, arg.Name, arg.Capacity, arg.Status, arg.Customers, arg.ActiveSince, arg.ServedBy, arg.AutoClearAfterBilling)
	return scanTable(row)
}

const deleteTable = `
DELETE FROM cafe_tables
WHERE id = $1
RETURNING id
`

func (q *Queries) DeleteTable(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	row := q.db.QueryRow(ctx, deleteTable, id)
	var deleted uuid.UUID
	err := row.Scan(&deleted)
	return deleted, err
}

const clearTable = `
UPDATE cafe_tables
SET status = 'FREE', customers = 0, active_since = NULL, last_bill_id = NULL, updated_at = now()
WHERE name = $1
RETURNING id, name, capacity, status, customers, active_since, last_bill_id, served_by, auto_clear_after_billing, created_at, updated_at
`

// ClearTable resets a table to its FREE baseline. Clearing an already FREE
// table is a no-op, not an error.
func (q *Queries) ClearTable(ctx context.Context, name string) (CafeTable, error) {
	row := q.db.QueryRow(ctx, clearTable, name)
	return scanTable(row)
}

const occupyTable = `
UPDATE cafe_tables
SET status = 'OCCUPIED', active_since = now(), updated_at = now()
WHERE name = $1 AND status IN ('FREE', 'RESERVED')
RETURNING id, name, capacity, status, customers, active_since, last_bill_id, served_by, auto_clear_after_billing, created_at, updated_at
`

// OccupyTable flips a FREE or RESERVED table to OCCUPIED on first order
// confirm. An already OCCUPIED table matches no rows.
func (q *Queries) OccupyTable(ctx context.Context, name string) (CafeTable, error) {
	row := q.db.QueryRow(ctx, occupyTable, name)
	return scanTable(row)
}

const setTableBilling = `
UPDATE cafe_tables
SET status = 'BILLING_PENDING', last_bill_id = $2, updated_at = now()
WHERE name = $1
RETURNING id, name, capacity, status, customers, active_since, last_bill_id, served_by, auto_clear_after_billing, created_at, updated_at
`

type SetTableBillingParams struct {
	Name       string
	LastBillID pgtype.UUID
}

func (q *Queries) SetTableBilling(ctx context.Context, arg SetTableBillingParams) (CafeTable, error) {
	row := q.db.QueryRow(ctx, setTableBilling, arg.Name, arg.LastBillID)
	return scanTable(row)
}

type tableScanner interface {
	Scan(dest ...interface{}) error
}

func scanTable(row tableScanner) (CafeTable, error) {
	var t CafeTable
	err := row.Scan(&t.ID, &t.Name, &t.Capacity, &t.Status, &t.Customers, &t.ActiveSince,
		&t.LastBillID, &t.ServedBy, &t.AutoClearAfterBilling, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}
