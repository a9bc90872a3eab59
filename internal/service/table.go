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
)

// Errors returned by the table service.
var (
	ErrTableNotFound      = errors.New("table not found")
	ErrTableNameTaken     = errors.New("table name already exists")
	ErrInvalidTableStatus = errors.New("invalid table status")
	ErrInvalidTransition  = errors.New("invalid table status transition")
	ErrInvalidCapacity    = errors.New("capacity must be >= 1")
)

// allowedTableTransitions maps each status to the set it may move to.
// Staying in the same status is always allowed.
var allowedTableTransitions = map[string][]string{
	enum.TableStatusFree:           {enum.TableStatusOccupied, enum.TableStatusReserved},
	enum.TableStatusReserved:       {enum.TableStatusFree, enum.TableStatusOccupied},
	enum.TableStatusOccupied:       {enum.TableStatusBillingPending, enum.TableStatusFree},
	enum.TableStatusBillingPending: {enum.TableStatusFree},
}

// TableStore defines the DB methods needed by the table service.
// Satisfied by *database.Queries.
type TableStore interface {
	CreateTable(ctx context.Context, arg database.CreateTableParams) (database.CafeTable, error)
	GetTable(ctx context.Context, id uuid.UUID) (database.CafeTable, error)
	GetTableByName(ctx context.Context, name string) (database.CafeTable, error)
	ListTables(ctx context.Context) ([]database.CafeTable, error)
	UpdateTable(ctx context.Context, arg database.UpdateTableParams) (database.CafeTable, error)
	DeleteTable(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
	ClearTable(ctx context.Context, name string) (database.CafeTable, error)
	ListActiveOrdersByTable(ctx context.Context, tableName string) ([]database.Order, error)
	GetLatestBillByTable(ctx context.Context, tableName string) (database.Bill, error)
	GetBill(ctx context.Context, id uuid.UUID) (database.Bill, error)
}

// AddTableRequest is the input for creating a table. Status and occupancy
// are not accepted; new tables always start FREE and empty.
type AddTableRequest struct {
	Name                  string
	Capacity              int32
	AutoClearAfterBilling bool
}

// UpdateTableRequest carries the mutable table fields. Nil pointers mean
// "leave unchanged".
type UpdateTableRequest struct {
	Status                *string
	Customers             *int32
	Capacity              *int32
	ServedBy              *string
	AutoClearAfterBilling *bool
}

// TableContext is a table joined with its live activity: unserved orders
// and the bill most recently raised for it.
type TableContext struct {
	Table        database.CafeTable
	ActiveOrders []OrderDetail
	LastBill     *database.Bill
}

// TableService manages the floor: table CRUD, the occupancy state machine,
// and the clear-after-payment flow.
type TableService struct {
	store    TableStore
	orders   *OrderService
	notifier Notifier
}

// NewTableService creates a new TableService.
func NewTableService(store TableStore, orders *OrderService, notifier Notifier) *TableService {
	return &TableService{store: store, orders: orders, notifier: notifier}
}

// ListWithContext returns every table with its active orders and last bill,
// ordered by name.
func (s *TableService) ListWithContext(ctx context.Context) ([]TableContext, error) {
	tables, err := s.store.ListTables(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	out := make([]TableContext, len(tables))
	for i, t := range tables {
		tc := TableContext{Table: t}

		orders, err := s.store.ListActiveOrdersByTable(ctx, t.Name)
		if err != nil {
			return nil, fmt.Errorf("list active orders for %s: %w", t.Name, err)
		}
		tc.ActiveOrders, err = s.orders.loadDetails(ctx, orders)
		if err != nil {
			return nil, err
		}

		bill, err := s.lastBill(ctx, t)
		if err != nil {
			return nil, err
		}
		tc.LastBill = bill

		out[i] = tc
	}
	return out, nil
}

// lastBill prefers the bill recorded on the table row and falls back to the
// most recent bill by table name.
func (s *TableService) lastBill(ctx context.Context, t database.CafeTable) (*database.Bill, error) {
	if t.LastBillID.Valid {
		bill, err := s.store.GetBill(ctx, t.LastBillID.Bytes)
		if err == nil {
			return &bill, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("get last bill for %s: %w", t.Name, err)
		}
	}
	bill, err := s.store.GetLatestBillByTable(ctx, t.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get latest bill for %s: %w", t.Name, err)
	}
	return &bill, nil
}

// AddTable creates a FREE table with zero customers.
func (s *TableService) AddTable(ctx context.Context, req AddTableRequest) (database.CafeTable, error) {
	if req.Name == "" {
		return database.CafeTable{}, ErrTableNameRequired
	}
	if req.Capacity < 1 {
		return database.CafeTable{}, ErrInvalidCapacity
	}
	if _, err := s.store.GetTableByName(ctx, req.Name); err == nil {
		return database.CafeTable{}, ErrTableNameTaken
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return database.CafeTable{}, fmt.Errorf("check table name: %w", err)
	}

	table, err := s.store.CreateTable(ctx, database.CreateTableParams{
		Name:                  req.Name,
		Capacity:              req.Capacity,
		AutoClearAfterBilling: req.AutoClearAfterBilling,
	})
	if err != nil {
		return database.CafeTable{}, fmt.Errorf("create table: %w", err)
	}
	return table, nil
}

// UpdateTable applies a partial update. Status changes go through the
// transition table; everything else is a straight overwrite.
func (s *TableService) UpdateTable(ctx context.Context, id uuid.UUID, req UpdateTableRequest) (database.CafeTable, error) {
	table, err := s.store.GetTable(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.CafeTable{}, ErrTableNotFound
		}
		return database.CafeTable{}, fmt.Errorf("get table: %w", err)
	}

	params := database.UpdateTableParams{
		ID:                    table.ID,
		Name:                  table.Name,
		Status:                table.Status,
		Customers:             table.Customers,
		Capacity:              table.Capacity,
		ActiveSince:           table.ActiveSince,
		ServedBy:              table.ServedBy,
		AutoClearAfterBilling: table.AutoClearAfterBilling,
	}

	if req.Status != nil && *req.Status != table.Status {
		if !enum.ValidTableStatus(*req.Status) {
			return database.CafeTable{}, ErrInvalidTableStatus
		}
		if !transitionAllowed(table.Status, *req.Status) {
			return database.CafeTable{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, table.Status, *req.Status)
		}
		params.Status = *req.Status
		switch *req.Status {
		case enum.TableStatusOccupied:
			if !params.ActiveSince.Valid {
				params.ActiveSince = pgtype.Timestamptz{Time: time.Now(), Valid: true}
			}
		case enum.TableStatusFree:
			params.Customers = 0
			params.ActiveSince = pgtype.Timestamptz{}
		}
	}
	if req.Customers != nil {
		if *req.Customers < 0 {
			return database.CafeTable{}, fmt.Errorf("customers must be >= 0")
		}
		params.Customers = *req.Customers
	}
	if req.Capacity != nil {
		if *req.Capacity < 1 {
			return database.CafeTable{}, ErrInvalidCapacity
		}
		params.Capacity = *req.Capacity
	}
	if req.ServedBy != nil {
		params.ServedBy = pgtype.Text{}
		if *req.ServedBy != "" {
			params.ServedBy = pgtype.Text{String: *req.ServedBy, Valid: true}
		}
	}
	if req.AutoClearAfterBilling != nil {
		params.AutoClearAfterBilling = *req.AutoClearAfterBilling
	}

	updated, err := s.store.UpdateTable(ctx, params)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.CafeTable{}, ErrTableNotFound
		}
		return database.CafeTable{}, fmt.Errorf("update table: %w", err)
	}
	return updated, nil
}

// ClearTable resets a table to FREE, dropping customers, the session timer,
// and the bill link. Clearing a FREE table is a no-op.
func (s *TableService) ClearTable(ctx context.Context, name string) (database.CafeTable, error) {
	table, err := s.store.ClearTable(ctx, name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.CafeTable{}, ErrTableNotFound
		}
		return database.CafeTable{}, fmt.Errorf("clear table: %w", err)
	}

	s.notifier.Notify(ctx, enum.NotificationTypeTableCleared, enum.NotificationLevelInfo,
		fmt.Sprintf("Table %s cleared.", name),
		map[string]interface{}{"tableName": name})

	return table, nil
}

// ClearTableByID resolves the table and clears it.
func (s *TableService) ClearTableByID(ctx context.Context, id uuid.UUID) (database.CafeTable, error) {
	table, err := s.store.GetTable(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.CafeTable{}, ErrTableNotFound
		}
		return database.CafeTable{}, fmt.Errorf("get table: %w", err)
	}
	return s.ClearTable(ctx, table.Name)
}

// DeleteTable removes a table.
func (s *TableService) DeleteTable(ctx context.Context, id uuid.UUID) error {
	if _, err := s.store.DeleteTable(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrTableNotFound
		}
		return fmt.Errorf("delete table: %w", err)
	}
	return nil
}

func transitionAllowed(from, to string) bool {
	for _, t := range allowedTableTransitions[from] {
		if t == to {
			return true
		}
	}
	return false
}
