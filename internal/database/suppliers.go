package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const createSupplier = `
INSERT INTO suppliers (name, contact_person, phone, email, address)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, name, contact_person, phone, email, address, created_at
`

type CreateSupplierParams struct {
	Name          string
	ContactPerson pgtype.Text
	Phone         pgtype.Text
	Email         pgtype.Text
	Address       pgtype.Text
}

func (q *Queries) CreateSupplier(ctx context.Context, arg CreateSupplierParams) (Supplier, error) {
	row := q.db.QueryRow(ctx, createSupplier, arg.Name, arg.ContactPerson, arg.Phone, arg.Email, arg.Address)
	return scanSupplier(row)
}

const listSuppliers = `
SELECT id, name, contact_person, phone, email, address, created_at
FROM suppliers
ORDER BY name
`

func (q *Queries) ListSuppliers(ctx context.Context) ([]Supplier, error) {
	rows, err := q.db.Query(ctx, listSuppliers)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var suppliers []Supplier
	for rows.Next() {
		s, err := scanSupplier(rows)
		if err != nil {
			return nil, err
		}
		suppliers = append(suppliers, s)
	}
	return suppliers, rows.Err()
}

const updateSupplier = `
UPDATE suppliers
SET name = $2, contact_person = $3, phone = $4, email = $5, address = $6
WHERE id = $1
RETURNING id, name, contact_person, phone, email, address, created_at
`

type UpdateSupplierParams struct {
	ID            uuid.UUID
	Name          string
	ContactPerson pgtype.Text
	Phone         pgtype.Text
	Email         pgtype.Text
	Address       pgtype.Text
}

func (q *Queries) UpdateSupplier(ctx context.Context, arg UpdateSupplierParams) (Supplier, error) {
	row := q.db.QueryRow(ctx, updateSupplier, arg.ID, arg.Name, arg.ContactPerson, arg.Phone, arg.Email, arg.Address)
	return scanSupplier(row)
}

const deleteSupplier = `
DELETE FROM suppliers
WHERE id = $1
RETURNING id
`

func (q *Queries) DeleteSupplier(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	row := q.db.QueryRow(ctx, deleteSupplier, id)
	var deleted uuid.UUID
	err := row.Scan(&deleted)
	return deleted, err
}

type supplierScanner interface {
	Scan(dest ...interface{}) error
}

func scanSupplier(row supplierScanner) (Supplier, error) {
	var s Supplier
	err := row.Scan(&s.ID, &s.Name, &s.ContactPerson, &s.Phone, &s.Email, &s.Address, &s.CreatedAt)
	return s, err
}
