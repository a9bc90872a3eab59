package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/caffea/api/internal/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// --- Mock implementations ---

// mockTx implements pgx.Tx with only the methods we need.
// The unused methods panic so we catch accidental calls.
type mockTx struct {
	commitErr   error
	rollbackErr error
	committed   bool
}

func (m *mockTx) Begin(ctx context.Context) (pgx.Tx, error) { panic("not implemented") }
func (m *mockTx) Commit(ctx context.Context) error {
	m.committed = true
	return m.commitErr
}
func (m *mockTx) Rollback(ctx context.Context) error { return m.rollbackErr }
func (m *mockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	panic("not implemented")
}
func (m *mockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	panic("not implemented")
}
func (m *mockTx) LargeObjects() pgx.LargeObjects { panic("not implemented") }
func (m *mockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	panic("not implemented")
}
func (m *mockTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	panic("not implemented")
}
func (m *mockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	panic("not implemented")
}
func (m *mockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	panic("not implemented")
}
func (m *mockTx) Conn() *pgx.Conn { panic("not implemented") }

// mockTxBeginner implements TxBeginner.
type mockTxBeginner struct {
	tx  pgx.Tx
	err error
}

func (m *mockTxBeginner) Begin(ctx context.Context) (pgx.Tx, error) {
	return m.tx, m.err
}

// mockNotifier records every notification sent through it.
type mockNotifier struct {
	calls []string
}

func (m *mockNotifier) Notify(ctx context.Context, typ, level, message string, data map[string]interface{}) {
	m.calls = append(m.calls, typ)
}

// mockDeducter records stock deductions.
type mockDeducter struct {
	items []StockDeduction
}

func (m *mockDeducter) DeductItems(ctx context.Context, items []StockDeduction) {
	m.items = append(m.items, items...)
}

// mockOrderStore implements OrderStore with configurable behavior.
type mockOrderStore struct {
	createOrderFn             func(ctx context.Context, tableName string) (database.Order, error)
	getOrderFn                func(ctx context.Context, id uuid.UUID) (database.Order, error)
	getOpenOrderByTableFn     func(ctx context.Context, tableName string) (database.Order, error)
	listActiveOrdersFn        func(ctx context.Context) ([]database.Order, error)
	listOrdersByTableFn       func(ctx context.Context, tableName string) ([]database.Order, error)
	markOrderServedFn         func(ctx context.Context, id uuid.UUID) (database.Order, error)
	createBatchFn             func(ctx context.Context, orderID uuid.UUID) (database.OrderBatch, error)
	getBatchFn                func(ctx context.Context, arg database.GetBatchParams) (database.OrderBatch, error)
	getLatestBatchFn          func(ctx context.Context, orderID uuid.UUID) (database.OrderBatch, error)
	listBatchesByOrderFn      func(ctx context.Context, orderID uuid.UUID) ([]database.OrderBatch, error)
	createOrderItemFn         func(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
	listItemsByBatchFn        func(ctx context.Context, batchID uuid.UUID) ([]database.OrderItem, error)
	deleteOrderItemFn         func(ctx context.Context, arg database.DeleteOrderItemParams) (uuid.UUID, error)
	occupyTableFn             func(ctx context.Context, name string) (database.CafeTable, error)
	createScheduledTaskFn     func(ctx context.Context, arg database.CreateScheduledTaskParams) (database.ScheduledTask, error)
}

func (m *mockOrderStore) CreateOrder(ctx context.Context, tableName string) (database.Order, error) {
	return m.createOrderFn(ctx, tableName)
}
func (m *mockOrderStore) GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error) {
	return m.getOrderFn(ctx, id)
}
func (m *mockOrderStore) GetOpenOrderByTable(ctx context.Context, tableName string) (database.Order, error) {
	return m.getOpenOrderByTableFn(ctx, tableName)
}
func (m *mockOrderStore) ListActiveOrders(ctx context.Context) ([]database.Order, error) {
	return m.listActiveOrdersFn(ctx)
}
func (m *mockOrderStore) ListOrdersByTable(ctx context.Context, tableName string) ([]database.Order, error) {
	return m.listOrdersByTableFn(ctx, tableName)
}
func (m *mockOrderStore) MarkOrderServed(ctx context.Context, id uuid.UUID) (database.Order, error) {
	return m.markOrderServedFn(ctx, id)
}
func (m *mockOrderStore) CreateBatch(ctx context.Context, orderID uuid.UUID) (database.OrderBatch, error) {
	return m.createBatchFn(ctx, orderID)
}
func (m *mockOrderStore) GetBatch(ctx context.Context, arg database.GetBatchParams) (database.OrderBatch, error) {
	return m.getBatchFn(ctx, arg)
}
func (m *mockOrderStore) GetLatestBatch(ctx context.Context, orderID uuid.UUID) (database.OrderBatch, error) {
	return m.getLatestBatchFn(ctx, orderID)
}
func (m *mockOrderStore) ListBatchesByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderBatch, error) {
	return m.listBatchesByOrderFn(ctx, orderID)
}
func (m *mockOrderStore) CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error) {
	return m.createOrderItemFn(ctx, arg)
}
func (m *mockOrderStore) ListItemsByBatch(ctx context.Context, batchID uuid.UUID) ([]database.OrderItem, error) {
	return m.listItemsByBatchFn(ctx, batchID)
}
func (m *mockOrderStore) DeleteOrderItem(ctx context.Context, arg database.DeleteOrderItemParams) (uuid.UUID, error) {
	return m.deleteOrderItemFn(ctx, arg)
}
func (m *mockOrderStore) OccupyTable(ctx context.Context, name string) (database.CafeTable, error) {
	return m.occupyTableFn(ctx, name)
}
func (m *mockOrderStore) CreateScheduledTask(ctx context.Context, arg database.CreateScheduledTaskParams) (database.ScheduledTask, error) {
	return m.createScheduledTaskFn(ctx, arg)
}

// --- Test helpers ---

func makeNumeric(val string) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(val)
	return n
}

func numericEquals(n pgtype.Numeric, expected string) bool {
	d := numericToDecimal(n)
	exp, _ := decimal.NewFromString(expected)
	return d.Equal(exp)
}

func mustDecimal(val string) decimal.Decimal {
	d, err := decimal.NewFromString(val)
	if err != nil {
		panic(err)
	}
	return d
}

// newTestOrderService creates an OrderService with mocked dependencies.
func newTestOrderService(store *mockOrderStore) (*OrderService, *mockTx, *mockNotifier, *mockDeducter) {
	tx := &mockTx{}
	pool := &mockTxBeginner{tx: tx}
	newStore := func(db database.DBTX) OrderStore { return store }
	notifier := &mockNotifier{}
	deducter := &mockDeducter{}
	svc := NewOrderService(store, pool, newStore, deducter, notifier, 15*time.Minute)
	return svc, tx, notifier, deducter
}

// defaultOrderStore returns a mockOrderStore that behaves like an empty
// database: no open order, so ConfirmBatch creates one. Individual tests
// override the functions they care about.
func defaultOrderStore() *mockOrderStore {
	orderID := uuid.New()
	batchID := uuid.New()
	var items []database.OrderItem

	return &mockOrderStore{
		getOpenOrderByTableFn: func(ctx context.Context, tableName string) (database.Order, error) {
			return database.Order{}, pgx.ErrNoRows
		},
		createOrderFn: func(ctx context.Context, tableName string) (database.Order, error) {
			return database.Order{ID: orderID, TableName: tableName}, nil
		},
		createBatchFn: func(ctx context.Context, oid uuid.UUID) (database.OrderBatch, error) {
			return database.OrderBatch{ID: batchID, OrderID: oid, Confirmed: true}, nil
		},
		createOrderItemFn: func(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error) {
			item := database.OrderItem{
				ID:       uuid.New(),
				BatchID:  arg.BatchID,
				Name:     arg.Name,
				Price:    arg.Price,
				Quantity: arg.Quantity,
			}
			items = append(items, item)
			return item, nil
		},
		occupyTableFn: func(ctx context.Context, name string) (database.CafeTable, error) {
			return database.CafeTable{Name: name, Status: "OCCUPIED"}, nil
		},
		createScheduledTaskFn: func(ctx context.Context, arg database.CreateScheduledTaskParams) (database.ScheduledTask, error) {
			return database.ScheduledTask{ID: uuid.New(), OrderID: arg.OrderID, DueAt: arg.DueAt}, nil
		},
		listBatchesByOrderFn: func(ctx context.Context, oid uuid.UUID) ([]database.OrderBatch, error) {
			return []database.OrderBatch{{ID: batchID, OrderID: oid, Confirmed: true}}, nil
		},
		listItemsByBatchFn: func(ctx context.Context, bid uuid.UUID) ([]database.OrderItem, error) {
			return items, nil
		},
	}
}

func basicConfirm(tableName string) ConfirmBatchRequest {
	return ConfirmBatchRequest{
		TableName: tableName,
		Items: []ItemRequest{
			{Name: "Latte", Price: mustDecimal("4.50"), Quantity: 2},
		},
	}
}

// =====================
// Validation tests
// =====================

func TestConfirmBatch_MissingTableName(t *testing.T) {
	svc, _, _, _ := newTestOrderService(defaultOrderStore())

	_, err := svc.ConfirmBatch(context.Background(), basicConfirm(""))
	if !errors.Is(err, ErrTableNameRequired) {
		t.Fatalf("expected ErrTableNameRequired, got: %v", err)
	}
}

func TestConfirmBatch_EmptyItems(t *testing.T) {
	svc, _, _, _ := newTestOrderService(defaultOrderStore())

	_, err := svc.ConfirmBatch(context.Background(), ConfirmBatchRequest{TableName: "T1"})
	if !errors.Is(err, ErrEmptyItems) {
		t.Fatalf("expected ErrEmptyItems, got: %v", err)
	}
}

func TestConfirmBatch_ZeroQuantity(t *testing.T) {
	svc, _, _, _ := newTestOrderService(defaultOrderStore())

	_, err := svc.ConfirmBatch(context.Background(), ConfirmBatchRequest{
		TableName: "T1",
		Items:     []ItemRequest{{Name: "Latte", Price: mustDecimal("4.50"), Quantity: 0}},
	})
	if !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("expected ErrInvalidQuantity, got: %v", err)
	}
}

func TestConfirmBatch_NegativePrice(t *testing.T) {
	svc, _, _, _ := newTestOrderService(defaultOrderStore())

	_, err := svc.ConfirmBatch(context.Background(), ConfirmBatchRequest{
		TableName: "T1",
		Items:     []ItemRequest{{Name: "Latte", Price: mustDecimal("-1"), Quantity: 1}},
	})
	if !errors.Is(err, ErrInvalidPrice) {
		t.Fatalf("expected ErrInvalidPrice, got: %v", err)
	}
}

func TestConfirmBatch_MissingItemName(t *testing.T) {
	svc, _, _, _ := newTestOrderService(defaultOrderStore())

	_, err := svc.ConfirmBatch(context.Background(), ConfirmBatchRequest{
		TableName: "T1",
		Items:     []ItemRequest{{Name: "", Price: mustDecimal("4.50"), Quantity: 1}},
	})
	if !errors.Is(err, ErrItemNameRequired) {
		t.Fatalf("expected ErrItemNameRequired, got: %v", err)
	}
}

func TestConfirmBatch_BadMenuItemID(t *testing.T) {
	svc, _, _, _ := newTestOrderService(defaultOrderStore())

	_, err := svc.ConfirmBatch(context.Background(), ConfirmBatchRequest{
		TableName: "T1",
		Items:     []ItemRequest{{Name: "Latte", Price: mustDecimal("4.50"), Quantity: 1, MenuItemID: "not-a-uuid"}},
	})
	if !errors.Is(err, ErrInvalidMenuItemID) {
		t.Fatalf("expected ErrInvalidMenuItemID, got: %v", err)
	}
}

// =====================
// Ledger behavior
// =====================

func TestConfirmBatch_CreatesOrderWhenTableHasNone(t *testing.T) {
	store := defaultOrderStore()
	created := false
	store.createOrderFn = func(ctx context.Context, tableName string) (database.Order, error) {
		created = true
		return database.Order{ID: uuid.New(), TableName: tableName}, nil
	}

	svc, tx, notifier, deducter := newTestOrderService(store)
	detail, err := svc.ConfirmBatch(context.Background(), basicConfirm("T1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !created {
		t.Error("expected a new order to be created")
	}
	if !tx.committed {
		t.Error("expected the transaction to commit")
	}
	if len(detail.Batches) != 1 {
		t.Fatalf("expected 1 batch, got %d", len(detail.Batches))
	}
	if len(notifier.calls) != 1 || notifier.calls[0] != "NEW_ORDER" {
		t.Errorf("expected one NEW_ORDER notification, got %v", notifier.calls)
	}
	if len(deducter.items) != 1 || deducter.items[0].Name != "Latte" || deducter.items[0].Quantity != 2 {
		t.Errorf("expected Latte x2 stock deduction, got %v", deducter.items)
	}
}

func TestConfirmBatch_AppendsToOpenOrder(t *testing.T) {
	store := defaultOrderStore()
	existing := database.Order{ID: uuid.New(), TableName: "T1"}
	store.getOpenOrderByTableFn = func(ctx context.Context, tableName string) (database.Order, error) {
		return existing, nil
	}
	store.createOrderFn = func(ctx context.Context, tableName string) (database.Order, error) {
		t.Fatal("CreateOrder should not be called when an open order exists")
		return database.Order{}, nil
	}

	var batchOrderID uuid.UUID
	store.createBatchFn = func(ctx context.Context, orderID uuid.UUID) (database.OrderBatch, error) {
		batchOrderID = orderID
		return database.OrderBatch{ID: uuid.New(), OrderID: orderID, Confirmed: true}, nil
	}

	svc, _, _, _ := newTestOrderService(store)
	detail, err := svc.ConfirmBatch(context.Background(), basicConfirm("T1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if batchOrderID != existing.ID {
		t.Errorf("batch attached to order %v, want %v", batchOrderID, existing.ID)
	}
	if detail.Order.ID != existing.ID {
		t.Errorf("detail order %v, want %v", detail.Order.ID, existing.ID)
	}
}

func TestConfirmBatch_OccupiedTableTolerated(t *testing.T) {
	store := defaultOrderStore()
	store.occupyTableFn = func(ctx context.Context, name string) (database.CafeTable, error) {
		return database.CafeTable{}, pgx.ErrNoRows // already OCCUPIED
	}

	svc, _, _, _ := newTestOrderService(store)
	if _, err := svc.ConfirmBatch(context.Background(), basicConfirm("T1")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestConfirmBatch_SchedulesDelayCheck(t *testing.T) {
	store := defaultOrderStore()
	var due time.Time
	store.createScheduledTaskFn = func(ctx context.Context, arg database.CreateScheduledTaskParams) (database.ScheduledTask, error) {
		due = arg.DueAt
		return database.ScheduledTask{ID: uuid.New(), OrderID: arg.OrderID, DueAt: arg.DueAt}, nil
	}

	svc, _, _, _ := newTestOrderService(store)
	before := time.Now()
	if _, err := svc.ConfirmBatch(context.Background(), basicConfirm("T1")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := before.Add(15 * time.Minute)
	if due.Before(want.Add(-time.Minute)) || due.After(want.Add(time.Minute)) {
		t.Errorf("delay check due at %v, want about %v", due, want)
	}
}

func TestConfirmBatch_PriceSnapshotKept(t *testing.T) {
	store := defaultOrderStore()
	var captured database.CreateOrderItemParams
	store.createOrderItemFn = func(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error) {
		captured = arg
		return database.OrderItem{ID: uuid.New(), BatchID: arg.BatchID, Name: arg.Name, Price: arg.Price, Quantity: arg.Quantity}, nil
	}

	svc, _, _, _ := newTestOrderService(store)
	if _, err := svc.ConfirmBatch(context.Background(), basicConfirm("T1")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !numericEquals(captured.Price, "4.50") {
		t.Errorf("item price: got %v, want 4.50", numericToDecimal(captured.Price))
	}
}

// =====================
// AddItem / RemoveItem
// =====================

func TestAddItem_OrderNotFound(t *testing.T) {
	store := defaultOrderStore()
	store.getOrderFn = func(ctx context.Context, id uuid.UUID) (database.Order, error) {
		return database.Order{}, pgx.ErrNoRows
	}

	svc, _, _, _ := newTestOrderService(store)
	_, err := svc.AddItem(context.Background(), uuid.New(), nil, ItemRequest{Name: "Latte", Price: mustDecimal("4.50"), Quantity: 1})
	if !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got: %v", err)
	}
}

func TestAddItem_UsesLatestBatchByDefault(t *testing.T) {
	orderID := uuid.New()
	latestBatch := uuid.New()

	store := defaultOrderStore()
	store.getOrderFn = func(ctx context.Context, id uuid.UUID) (database.Order, error) {
		return database.Order{ID: orderID, TableName: "T1"}, nil
	}
	store.getLatestBatchFn = func(ctx context.Context, oid uuid.UUID) (database.OrderBatch, error) {
		return database.OrderBatch{ID: latestBatch, OrderID: oid}, nil
	}

	var captured database.CreateOrderItemParams
	store.createOrderItemFn = func(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error) {
		captured = arg
		return database.OrderItem{ID: uuid.New(), BatchID: arg.BatchID, Name: arg.Name}, nil
	}

	svc, _, _, _ := newTestOrderService(store)
	_, err := svc.AddItem(context.Background(), orderID, nil, ItemRequest{Name: "Mocha", Price: mustDecimal("5.00"), Quantity: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if captured.BatchID != latestBatch {
		t.Errorf("item added to batch %v, want latest %v", captured.BatchID, latestBatch)
	}
}

func TestAddItem_CreatesBatchWhenOrderHasNone(t *testing.T) {
	orderID := uuid.New()
	store := defaultOrderStore()
	store.getOrderFn = func(ctx context.Context, id uuid.UUID) (database.Order, error) {
		return database.Order{ID: orderID, TableName: "T1"}, nil
	}
	store.getLatestBatchFn = func(ctx context.Context, oid uuid.UUID) (database.OrderBatch, error) {
		return database.OrderBatch{}, pgx.ErrNoRows
	}

	created := false
	store.createBatchFn = func(ctx context.Context, oid uuid.UUID) (database.OrderBatch, error) {
		created = true
		return database.OrderBatch{ID: uuid.New(), OrderID: oid}, nil
	}

	svc, _, _, _ := newTestOrderService(store)
	_, err := svc.AddItem(context.Background(), orderID, nil, ItemRequest{Name: "Mocha", Price: mustDecimal("5.00"), Quantity: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !created {
		t.Error("expected a batch to be created for the empty order")
	}
}

func TestAddItem_BatchFromAnotherOrderRejected(t *testing.T) {
	orderID := uuid.New()
	store := defaultOrderStore()
	store.getOrderFn = func(ctx context.Context, id uuid.UUID) (database.Order, error) {
		return database.Order{ID: orderID, TableName: "T1"}, nil
	}
	store.getBatchFn = func(ctx context.Context, arg database.GetBatchParams) (database.OrderBatch, error) {
		return database.OrderBatch{}, pgx.ErrNoRows // scoped lookup misses
	}

	svc, _, _, _ := newTestOrderService(store)
	foreign := uuid.New()
	_, err := svc.AddItem(context.Background(), orderID, &foreign, ItemRequest{Name: "Mocha", Price: mustDecimal("5.00"), Quantity: 1})
	if !errors.Is(err, ErrBatchNotFound) {
		t.Fatalf("expected ErrBatchNotFound, got: %v", err)
	}
}

func TestRemoveItem_PreciseNotFound(t *testing.T) {
	orderID := uuid.New()
	batchID := uuid.New()

	store := defaultOrderStore()
	store.getOrderFn = func(ctx context.Context, id uuid.UUID) (database.Order, error) {
		if id == orderID {
			return database.Order{ID: orderID, TableName: "T1"}, nil
		}
		return database.Order{}, pgx.ErrNoRows
	}
	store.getBatchFn = func(ctx context.Context, arg database.GetBatchParams) (database.OrderBatch, error) {
		if arg.ID == batchID && arg.OrderID == orderID {
			return database.OrderBatch{ID: batchID, OrderID: orderID}, nil
		}
		return database.OrderBatch{}, pgx.ErrNoRows
	}
	store.deleteOrderItemFn = func(ctx context.Context, arg database.DeleteOrderItemParams) (uuid.UUID, error) {
		return uuid.UUID{}, pgx.ErrNoRows
	}

	svc, _, _, _ := newTestOrderService(store)

	if _, err := svc.RemoveItem(context.Background(), uuid.New(), batchID, uuid.New()); !errors.Is(err, ErrOrderNotFound) {
		t.Errorf("unknown order: expected ErrOrderNotFound, got %v", err)
	}
	if _, err := svc.RemoveItem(context.Background(), orderID, uuid.New(), uuid.New()); !errors.Is(err, ErrBatchNotFound) {
		t.Errorf("unknown batch: expected ErrBatchNotFound, got %v", err)
	}
	if _, err := svc.RemoveItem(context.Background(), orderID, batchID, uuid.New()); !errors.Is(err, ErrItemNotFound) {
		t.Errorf("unknown item: expected ErrItemNotFound, got %v", err)
	}
}

func TestRemoveItem_DeletesFromBatch(t *testing.T) {
	orderID := uuid.New()
	batchID := uuid.New()
	itemID := uuid.New()

	store := defaultOrderStore()
	store.getOrderFn = func(ctx context.Context, id uuid.UUID) (database.Order, error) {
		return database.Order{ID: orderID, TableName: "T1"}, nil
	}
	store.getBatchFn = func(ctx context.Context, arg database.GetBatchParams) (database.OrderBatch, error) {
		return database.OrderBatch{ID: batchID, OrderID: orderID}, nil
	}

	var captured database.DeleteOrderItemParams
	store.deleteOrderItemFn = func(ctx context.Context, arg database.DeleteOrderItemParams) (uuid.UUID, error) {
		captured = arg
		return arg.ID, nil
	}

	svc, tx, _, _ := newTestOrderService(store)
	_, err := svc.RemoveItem(context.Background(), orderID, batchID, itemID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if captured.ID != itemID || captured.BatchID != batchID {
		t.Errorf("deleted %+v, want item %v in batch %v", captured, itemID, batchID)
	}
	if !tx.committed {
		t.Error("expected the transaction to commit")
	}
}

// =====================
// MarkServed
// =====================

func TestMarkServed_Idempotent(t *testing.T) {
	orderID := uuid.New()
	store := defaultOrderStore()
	calls := 0
	store.markOrderServedFn = func(ctx context.Context, id uuid.UUID) (database.Order, error) {
		calls++
		return database.Order{ID: orderID, TableName: "T1", Served: true}, nil
	}

	svc, _, _, _ := newTestOrderService(store)
	for i := 0; i < 2; i++ {
		order, err := svc.MarkServed(context.Background(), orderID)
		if err != nil {
			t.Fatalf("call %d: unexpected error: %v", i+1, err)
		}
		if !order.Served {
			t.Fatalf("call %d: order not served", i+1)
		}
	}
	if calls != 2 {
		t.Errorf("expected 2 store calls, got %d", calls)
	}
}

func TestMarkServed_NotFound(t *testing.T) {
	store := defaultOrderStore()
	store.markOrderServedFn = func(ctx context.Context, id uuid.UUID) (database.Order, error) {
		return database.Order{}, pgx.ErrNoRows
	}

	svc, _, _, _ := newTestOrderService(store)
	if _, err := svc.MarkServed(context.Background(), uuid.New()); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got: %v", err)
	}
}

// =====================
// Listing
// =====================

func TestListActive_AssemblesBatches(t *testing.T) {
	orderID := uuid.New()
	batchA := uuid.New()
	batchB := uuid.New()

	store := defaultOrderStore()
	store.listActiveOrdersFn = func(ctx context.Context) ([]database.Order, error) {
		return []database.Order{{ID: orderID, TableName: "T1"}}, nil
	}
	store.listBatchesByOrderFn = func(ctx context.Context, oid uuid.UUID) ([]database.OrderBatch, error) {
		return []database.OrderBatch{
			{ID: batchA, OrderID: oid},
			{ID: batchB, OrderID: oid},
		}, nil
	}
	store.listItemsByBatchFn = func(ctx context.Context, bid uuid.UUID) ([]database.OrderItem, error) {
		return []database.OrderItem{{ID: uuid.New(), BatchID: bid, Name: "Latte", Price: makeNumeric("4.50"), Quantity: 1}}, nil
	}

	svc, _, _, _ := newTestOrderService(store)
	details, err := svc.ListActive(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(details) != 1 {
		t.Fatalf("expected 1 order, got %d", len(details))
	}
	if len(details[0].Batches) != 2 {
		t.Fatalf("expected 2 batches, got %d", len(details[0].Batches))
	}
	if details[0].Batches[0].Batch.ID != batchA || details[0].Batches[1].Batch.ID != batchB {
		t.Error("batches out of insertion order")
	}
	for _, b := range details[0].Batches {
		if len(b.Items) != 1 {
			t.Errorf("batch %v: expected 1 item, got %d", b.Batch.ID, len(b.Items))
		}
	}
}

func TestListByTable_RequiresName(t *testing.T) {
	svc, _, _, _ := newTestOrderService(defaultOrderStore())
	if _, err := svc.ListByTable(context.Background(), ""); !errors.Is(err, ErrTableNameRequired) {
		t.Fatalf("expected ErrTableNameRequired, got: %v", err)
	}
}
