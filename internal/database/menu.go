package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const createMenuItem = `
INSERT INTO menu_items (name, category, sub_category, price, description, image, is_available)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id, name, category, sub_category, price, description, image, is_available, created_at, updated_at
`

type CreateMenuItemParams struct {
	Name        string
	Category    string
	SubCategory string
	Price       pgtype.Numeric
	Description pgtype.Text
	Image       pgtype.Text
	IsAvailable bool
}

func (q *Queries) CreateMenuItem(ctx context.Context, arg CreateMenuItemParams) (MenuItem, error) {
	row := q.db.QueryRow(ctx, createMenuItem,
		arg.Name, arg.Category, arg.SubCategory, arg.Price, arg.Description, arg.Image, arg.IsAvailable)
	return scanMenuItem(row)
}

const getMenuItem = `
SELECT id, name, category, sub_category, price, description, image, is_available, created_at, updated_at
FROM menu_items
WHERE id = $1
`

func (q *Queries) GetMenuItem(ctx context.Context, id uuid.UUID) (MenuItem, error) {
	row := q.db.QueryRow(ctx, getMenuItem, id)
	return scanMenuItem(row)
}

const listMenu = `
SELECT id, name, category, sub_category, price, description, image, is_available, created_at, updated_at
FROM menu_items
WHERE ($1 = '' OR category = $1)
ORDER BY category, name
`

func (q *Queries) ListMenu(ctx context.Context, category string) ([]MenuItem, error) {
	rows, err := q.db.Query(ctx, listMenu, category)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []MenuItem
	for rows.Next() {
		m, err := scanMenuItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

const updateMenuItem = `
UPDATE menu_items
SET name = $2, category = $3, sub_category = $4, price = $5, description = $6, image = $7, is_available = $8, updated_at = now()
WHERE id = $1
RETURNING id, name, category, sub_category, price, description, image, is_available, created_at, updated_at
`

type UpdateMenuItemParams struct {
	ID          uuid.UUID
	Name        string
	Category    string
	SubCategory string
	Price       pgtype.Numeric
	Description pgtype.Text
	Image       pgtype.Text
	IsAvailable bool
}

func (q *Queries) UpdateMenuItem(ctx context.Context, arg UpdateMenuItemParams) (MenuItem, error) {
	row := q.db.QueryRow(ctx, updateMenuItem,
		arg.ID, arg.Name, arg.Category, arg.SubCategory, arg.Price, arg.Description, arg.Image, arg.IsAvailable)
	return scanMenuItem(row)
}

const deleteMenuItem = `
DELETE FROM menu_items
WHERE id = $1
RETURNING id
`

func (q *Queries) DeleteMenuItem(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	row := q.db.QueryRow(ctx, deleteMenuItem, id)
	var deleted uuid.UUID
	err := row.Scan(&deleted)
	return deleted, err
}

type menuScanner interface {
	Scan(dest ...interface{}) error
}

func scanMenuItem(row menuScanner) (MenuItem, error) {
	var m MenuItem
	err := row.Scan(&m.ID, &m.Name, &m.Category, &m.SubCategory, &m.Price,
		&m.Description, &m.Image, &m.IsAvailable, &m.CreatedAt, &m.UpdatedAt)
	return m, err
}
