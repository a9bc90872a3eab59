package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const createEmployee = `
INSERT INTO employees (name, role, phone, email, salary, joined_at)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, name, role, phone, email, salary, joined_at, created_at
`

type CreateEmployeeParams struct {
	Name     string
	Role     string
	Phone    pgtype.Text
	Email    pgtype.Text
	Salary   pgtype.Numeric
	JoinedAt pgtype.Timestamptz
}

func (q *Queries) CreateEmployee(ctx context.Context, arg CreateEmployeeParams) (Employee, error) {
	row := q.db.QueryRow(ctx, createEmployee, arg.Name, arg.Role, arg.Phone, arg.Email, arg.Salary, arg.JoinedAt)
	return scanEmployee(row)
}

const listEmployees = `
SELECT id, name, role, phone, email, salary, joined_at, created_at
FROM employees
ORDER BY name
`

func (q *Queries) ListEmployees(ctx context.Context) ([]Employee, error) {
	rows, err := q.db.Query(ctx, listEmployees)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var employees []Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		employees = append(employees, e)
	}
	return employees, rows.Err()
}

const updateEmployee = `
UPDATE employees
SET name = $2, role = $3, phone = $4, email = $5, salary = $6, joined_at = $7
WHERE id = $1
RETURNING id, name, role, phone, email, salary, joined_at, created_at
`

type UpdateEmployeeParams struct {
	ID       uuid.UUID
	Name     string
	Role     string
	Phone    pgtype.Text
	Email    pgtype.Text
	Salary   pgtype.Numeric
	JoinedAt pgtype.Timestamptz
}

func (q *Queries) UpdateEmployee(ctx context.Context, arg UpdateEmployeeParams) (Employee, error) {
	row := q.db.QueryRow(ctx, updateEmployee, arg.ID, arg.Name, arg.Role, arg.Phone, arg.Email, arg.Salary, arg.JoinedAt)
	return scanEmployee(row)
}

const deleteEmployee = `
DELETE FROM employees
WHERE id = $1
RETURNING id
`

func (q *Queries) DeleteEmployee(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	row := q.db.QueryRow(ctx, deleteEmployee, id)
	var deleted uuid.UUID
	err := row.Scan(&deleted)
	return deleted, err
}

type employeeScanner interface {
	Scan(dest ...interface{}) error
}

func scanEmployee(row employeeScanner) (Employee, error) {
	var e Employee
	err := row.Scan(&e.ID, &e.Name, &e.Role, &e.Phone, &e.Email, &e.Salary, &e.JoinedAt, &e.CreatedAt)
	return e, err
}
