package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// Order is the running tab for one table. It accumulates confirmed batches
// until staff mark it served.
type Order struct {
	ID        uuid.UUID
	TableName string
	Served    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// OrderBatch is one confirmed cart submission within an order.
type OrderBatch struct {
	ID        uuid.UUID
	OrderID   uuid.UUID
	Confirmed bool
	CreatedAt time.Time
}

// OrderItem is a price/name snapshot captured at confirm time. The snapshot
// never changes, even if the menu item is later edited or deleted.
type OrderItem struct {
	ID          uuid.UUID
	BatchID     uuid.UUID
	Name        string
	SubCategory pgtype.Text
	Price       pgtype.Numeric
	Quantity    int32
	MenuItemID  pgtype.UUID
	CreatedAt   time.Time
}

type Bill struct {
	ID            uuid.UUID
	TableName     string
	TotalAmount   pgtype.Numeric
	InvoiceNumber string
	PaymentMethod string
	Status        string
	Discount      pgtype.Numeric
	ServiceCharge pgtype.Numeric
	CustomerName  pgtype.Text
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type BillItem struct {
	ID       uuid.UUID
	BillID   uuid.UUID
	Name     string
	Price    pgtype.Numeric
	Quantity int32
}

type InvoiceCounter struct {
	Year       int32
	LastNumber int32
}

type CafeTable struct {
	ID                    uuid.UUID
	Name                  string
	Capacity              int32
	Status                string
	Customers             int32
	ActiveSince           pgtype.Timestamptz
	LastBillID            pgtype.UUID
	ServedBy              pgtype.Text
	AutoClearAfterBilling bool
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

type InventoryItem struct {
	ID                uuid.UUID
	ItemName          string
	Category          string
	Unit              string
	QuantityAvailable pgtype.Numeric
	ReorderLevel      pgtype.Numeric
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type MenuItem struct {
	ID          uuid.UUID
	Name        string
	Category    string
	SubCategory string
	Price       pgtype.Numeric
	Description pgtype.Text
	Image       pgtype.Text
	IsAvailable bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Notification struct {
	ID        uuid.UUID
	Type      string
	Level     string
	Message   string
	Data      []byte
	IsRead    bool
	ExpiresAt time.Time
	CreatedAt time.Time
}

// ScheduledTask is a durable one-shot delay check. Unlike an in-memory timer
// it survives process restarts.
type ScheduledTask struct {
	ID        uuid.UUID
	OrderID   uuid.UUID
	DueAt     time.Time
	Done      bool
	CreatedAt time.Time
}

type User struct {
	ID             uuid.UUID
	FullName       string
	Email          string
	HashedPassword string
	Role           string
	CreatedAt      time.Time
}

type Supplier struct {
	ID            uuid.UUID
	Name          string
	ContactPerson pgtype.Text
	Phone         pgtype.Text
	Email         pgtype.Text
	Address       pgtype.Text
	CreatedAt     time.Time
}

type Employee struct {
	ID        uuid.UUID
	Name      string
	Role      string
	Phone     pgtype.Text
	Email     pgtype.Text
	Salary    pgtype.Numeric
	JoinedAt  pgtype.Timestamptz
	CreatedAt time.Time
}
