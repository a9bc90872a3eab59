package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const nextInvoiceNumber = `
INSERT INTO invoice_counters (year, last_number)
VALUES ($1, 1)
ON CONFLICT (year)
DO UPDATE SET last_number = invoice_counters.last_number + 1
RETURNING last_number
`

// NextInvoiceNumber increments the per-year counter in a single atomic
// read-modify-write. Two concurrent bill creations can never observe the
// same value.
func (q *Queries) NextInvoiceNumber(ctx context.Context, year int32) (int32, error) {
	row := q.db.QueryRow(ctx, nextInvoiceNumber, year)
	var n int32
	err := row.Scan(&n)
	return n, err
}

const createBill = `
INSERT INTO bills (table_name, total_amount, invoice_number, payment_method, status, discount, service_charge, customer_name)
VALUES ($1, $2, $3, $4, 'PENDING', $5, $6, $7)
RETURNING id, table_name, total_amount, invoice_number, payment_method, status, discount, service_charge, customer_name, created_at, updated_at
`

type CreateBillParams struct {
	TableName     string
	TotalAmount   pgtype.Numeric
	InvoiceNumber string
	PaymentMethod string
	Discount      pgtype.Numeric
	ServiceCharge pgtype.Numeric
	CustomerName  pgtype.Text
}

// CreateBill always inserts with status PENDING; there is deliberately no way
// to create a bill in any other state.
func (q *Queries) CreateBill(ctx context.Context, arg CreateBillParams) (Bill, error) {
	row := q.db.QueryRow(ctx, createBill,
		arg.TableName, arg.TotalAmount, arg.InvoiceNumber, arg.PaymentMethod,
		arg.Discount, arg.ServiceCharge, arg.CustomerName)
	return scanBill(row)
}

const createBillItem = `
INSERT INTO bill_items (bill_id, name, price, quantity)
VALUES ($1, $2, $3, $4)
RETURNING id, bill_id, name, price, quantity
`

type CreateBillItemParams struct {
	BillID   uuid.UUID
	Name     string
	Price    pgtype.Numeric
	Quantity int32
}

func (q *Queries) CreateBillItem(ctx context.Context, arg CreateBillItemParams) (BillItem, error) {
	row := q.db.QueryRow(ctx, createBillItem, arg.BillID, arg.Name, arg.Price, arg.Quantity)
	var i BillItem
	err := row.Scan(&i.ID, &i.BillID, &i.Name, &i.Price, &i.Quantity)
	return i, err
}

const linkBillOrder = `
INSERT INTO bill_orders (bill_id, order_id)
VALUES ($1, $2)
ON CONFLICT DO NOTHING
`

type LinkBillOrderParams struct {
	BillID  uuid.UUID
	OrderID uuid.UUID
}

func (q *Queries) LinkBillOrder(ctx context.Context, arg LinkBillOrderParams) error {
	_, err := q.db.Exec(ctx, linkBillOrder, arg.BillID, arg.OrderID)
	return err
}

const getBill = `
SELECT id, table_name, total_amount, invoice_number, payment_method, status, discount, service_charge, customer_name, created_at, updated_at
FROM bills
WHERE id = $1
`

func (q *Queries) GetBill(ctx context.Context, id uuid.UUID) (Bill, error) {
	row := q.db.QueryRow(ctx, getBill, id)
	return scanBill(row)
}

const markBillPaid = `
UPDATE bills
SET status = 'PAID',
    payment_method = CASE WHEN $2 = '' THEN payment_method ELSE $2 END,
    updated_at = now()
WHERE id = $1 AND status IN ('PENDING', 'PAID')
RETURNING id, table_name, total_amount, invoice_number, payment_method, status, discount, service_charge, customer_name, created_at, updated_at
`

type MarkBillPaidParams struct {
	ID            uuid.UUID
	PaymentMethod string
}

// MarkBillPaid transitions PENDING to PAID, optionally correcting the payment
// method recorded at creation. Already PAID bills are a no-op (the row is
// returned unchanged). CANCELLED and REFUNDED bills match no rows.
func (q *Queries) MarkBillPaid(ctx context.Context, arg MarkBillPaidParams) (Bill, error) {
	row := q.db.QueryRow(ctx, markBillPaid, arg.ID, arg.PaymentMethod)
	return scanBill(row)
}

const listBills = `
SELECT id, table_name, total_amount, invoice_number, payment_method, status, discount, service_charge, customer_name, created_at, updated_at
FROM bills
WHERE ($1 = '' OR status = $1)
  AND ($2 = '' OR payment_method = $2)
  AND ($3::timestamptz IS NULL OR created_at >= $3)
  AND ($4::timestamptz IS NULL OR created_at <= $4)
  AND ($5 = '' OR invoice_number ILIKE '%' || $5 || '%'
              OR table_name ILIKE '%' || $5 || '%'
              OR customer_name ILIKE '%' || $5 || '%')
ORDER BY
  CASE WHEN $6::bool THEN created_at END ASC,
  CASE WHEN NOT $6::bool THEN created_at END DESC
`

type ListBillsParams struct {
	Status        string
	PaymentMethod string
	StartDate     pgtype.Timestamptz
	EndDate       pgtype.Timestamptz
	Search        string
	Ascending     bool
}

func (q *Queries) ListBills(ctx context.Context, arg ListBillsParams) ([]Bill, error) {
	rows, err := q.db.Query(ctx, listBills,
		arg.Status, arg.PaymentMethod, arg.StartDate, arg.EndDate, arg.Search, arg.Ascending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var bills []Bill
	for rows.Next() {
		b, err := scanBill(rows)
		if err != nil {
			return nil, err
		}
		bills = append(bills, b)
	}
	return bills, rows.Err()
}

const listBillItemsByBill = `
SELECT id, bill_id, name, price, quantity
FROM bill_items
WHERE bill_id = $1
ORDER BY name
`

func (q *Queries) ListBillItemsByBill(ctx context.Context, billID uuid.UUID) ([]BillItem, error) {
	rows, err := q.db.Query(ctx, listBillItemsByBill, billID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []BillItem
	for rows.Next() {
		var i BillItem
		if err := rows.Scan(&i.ID, &i.BillID, &i.Name, &i.Price, &i.Quantity); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const listBillOrderIDs = `
SELECT order_id
FROM bill_orders
WHERE bill_id = $1
`

func (q *Queries) ListBillOrderIDs(ctx context.Context, billID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := q.db.Query(ctx, listBillOrderIDs, billID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

const getLatestBillByTable = `
SELECT id, table_name, total_amount, invoice_number, payment_method, status, discount, service_charge, customer_name, created_at, updated_at
FROM bills
WHERE table_name = $1
ORDER BY created_at DESC
LIMIT 1
`

func (q *Queries) GetLatestBillByTable(ctx context.Context, tableName string) (Bill, error) {
	row := q.db.QueryRow(ctx, getLatestBillByTable, tableName)
	return scanBill(row)
}

type billScanner interface {
	Scan(dest ...interface{}) error
}

func scanBill(row billScanner) (Bill, error) {
	var b Bill
	err := row.Scan(&b.ID, &b.TableName, &b.TotalAmount, &b.InvoiceNumber, &b.PaymentMethod,
		&b.Status, &b.Discount, &b.ServiceCharge, &b.CustomerName, &b.CreatedAt, &b.UpdatedAt)
	return b, err
}
