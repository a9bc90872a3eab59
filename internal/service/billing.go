package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/caffea/api/internal/database"
	"github.com/caffea/api/internal/enum"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// Errors returned by the billing service.
var (
	ErrBillItemsRequired    = errors.New("bill items are required")
	ErrInvalidDiscount      = errors.New("discount must be >= 0")
	ErrInvalidServiceCharge = errors.New("serviceCharge must be >= 0")
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
	ErrBillNotFound         = errors.New("bill not found")
	ErrBillNotPayable       = errors.New("bill cannot be paid in its current status")
	ErrInvalidDateRange     = errors.New("invalid date range")
)

// BillStore defines the DB methods needed by the billing engine.
// Satisfied by *database.Queries.
type BillStore interface {
	NextInvoiceNumber(ctx context.Context, year int32) (int32, error)
	CreateBill(ctx context.Context, arg database.CreateBillParams) (database.Bill, error)
	CreateBillItem(ctx context.Context, arg database.CreateBillItemParams) (database.BillItem, error)
	LinkBillOrder(ctx context.Context, arg database.LinkBillOrderParams) error
	GetBill(ctx context.Context, id uuid.UUID) (database.Bill, error)
	MarkBillPaid(ctx context.Context, arg database.MarkBillPaidParams) (database.Bill, error)
	ListBills(ctx context.Context, arg database.ListBillsParams) ([]database.Bill, error)
	ListBillItemsByBill(ctx context.Context, billID uuid.UUID) ([]database.BillItem, error)
	ListBillOrderIDs(ctx context.Context, billID uuid.UUID) ([]uuid.UUID, error)
	GetTableByName(ctx context.Context, name string) (database.CafeTable, error)
	SetTableBilling(ctx context.Context, arg database.SetTableBillingParams) (database.CafeTable, error)
	ClearTable(ctx context.Context, name string) (database.CafeTable, error)
}

// NewBillStore creates a BillStore from a DBTX.
type NewBillStore func(db database.DBTX) BillStore

// BillItemRequest is one line of a bill.
type BillItemRequest struct {
	Name     string
	Price    decimal.Decimal
	Quantity int32
}

// CreateBillRequest is the validated input for creating a bill. Status is
// not accepted from callers; every bill starts PENDING.
type CreateBillRequest struct {
	TableName     string
	Items         []BillItemRequest
	PaymentMethod string
	Discount      decimal.Decimal
	ServiceCharge decimal.Decimal
	CustomerName  string
	OrderIDs      []uuid.UUID
}

// BillFilter narrows ListBills. Range is one of the named range tokens;
// custom uses From and To, and unknown tokens apply no date filter.
type BillFilter struct {
	Status        string
	PaymentMethod string
	Range         string
	From          time.Time
	To            time.Time
	Search        string
	Ascending     bool
}

// BillDetail is a bill with its line items and linked order ids.
type BillDetail struct {
	Bill     database.Bill
	Items    []database.BillItem
	OrderIDs []uuid.UUID
}

// BillSummary aggregates PAID bills over a period.
type BillSummary struct {
	TotalRevenue  decimal.Decimal `json:"totalRevenue"`
	TotalOrders   int             `json:"totalOrders"`
	AvgOrderValue decimal.Decimal `json:"avgOrderValue"`
	BestItem      string          `json:"bestItem"`
	BestItemQty   int32           `json:"bestItemQty"`
}

// TrendPoint is one day of PAID revenue.
type TrendPoint struct {
	Date    string          `json:"date"`
	Revenue decimal.Decimal `json:"revenue"`
	Bills   int             `json:"bills"`
}

// BillingService finalizes orders into numbered bills and reports on them.
type BillingService struct {
	store    BillStore
	pool     TxBeginner
	newStore NewBillStore
	notifier Notifier
	prefix   string
	now      func() time.Time
}

// NewBillingService creates a new BillingService. prefix is the invoice
// number prefix, e.g. "CAF".
func NewBillingService(store BillStore, pool TxBeginner, newStore NewBillStore, notifier Notifier, prefix string) *BillingService {
	return &BillingService{
		store:    store,
		pool:     pool,
		newStore: newStore,
		notifier: notifier,
		prefix:   prefix,
		now:      time.Now,
	}
}

// CreateBill creates a PENDING bill with a fresh invoice number. Invoice
// allocation, line items, order links, and the table's BILLING_PENDING flip
// share one transaction, so a failed bill never burns a number.
func (s *BillingService) CreateBill(ctx context.Context, req CreateBillRequest) (*BillDetail, error) {
	if req.TableName == "" {
		return nil, ErrTableNameRequired
	}
	if len(req.Items) == 0 {
		return nil, ErrBillItemsRequired
	}
	if req.Discount.IsNegative() {
		return nil, ErrInvalidDiscount
	}
	if req.ServiceCharge.IsNegative() {
		return nil, ErrInvalidServiceCharge
	}
	// paymentMethod is optional at creation; unpaid bills default to CASH
	// and can be corrected at payment time.
	if req.PaymentMethod == "" {
		req.PaymentMethod = enum.PaymentMethodCash
	}
	if !enum.ValidPaymentMethod(req.PaymentMethod) {
		return nil, ErrInvalidPaymentMethod
	}

	total := decimal.Zero
	for i, item := range req.Items {
		if item.Name == "" {
			return nil, fmt.Errorf("items[%d]: %w", i, ErrItemNameRequired)
		}
		if item.Quantity < 1 {
			return nil, fmt.Errorf("items[%d]: %w", i, ErrInvalidQuantity)
		}
		if item.Price.IsNegative() {
			return nil, fmt.Errorf("items[%d]: %w", i, ErrInvalidPrice)
		}
		total = total.Add(item.Price.Mul(decimal.NewFromInt32(item.Quantity)))
	}
	total = total.Sub(req.Discount).Add(req.ServiceCharge)
	if total.IsNegative() {
		total = decimal.Zero
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	year := int32(s.now().Year())
	seq, err := store.NextInvoiceNumber(ctx, year)
	if err != nil {
		return nil, fmt.Errorf("next invoice number: %w", err)
	}
	invoice := fmt.Sprintf("%s-%d-%05d", s.prefix, year, seq)

	bill, err := store.CreateBill(ctx, database.CreateBillParams{
		TableName:     req.TableName,
		TotalAmount:   decimalToNumeric(total),
		InvoiceNumber: invoice,
		PaymentMethod: req.PaymentMethod,
		Discount:      decimalToNumeric(req.Discount),
		ServiceCharge: decimalToNumeric(req.ServiceCharge),
		CustomerName:  textOrNull(req.CustomerName),
	})
	if err != nil {
		return nil, fmt.Errorf("create bill: %w", err)
	}

	items := make([]database.BillItem, len(req.Items))
	for i, item := range req.Items {
		items[i], err = store.CreateBillItem(ctx, database.CreateBillItemParams{
			BillID:   bill.ID,
			Name:     item.Name,
			Price:    decimalToNumeric(item.Price),
			Quantity: item.Quantity,
		})
		if err != nil {
			return nil, fmt.Errorf("create bill item: %w", err)
		}
	}

	for _, orderID := range req.OrderIDs {
		if err := store.LinkBillOrder(ctx, database.LinkBillOrderParams{BillID: bill.ID, OrderID: orderID}); err != nil {
			return nil, fmt.Errorf("link bill order: %w", err)
		}
	}

	// Unknown table names are tolerated: walk-in bills have no table row.
	if _, err := store.SetTableBilling(ctx, database.SetTableBillingParams{
		Name:       req.TableName,
		LastBillID: pgtype.UUID{Bytes: bill.ID, Valid: true},
	}); err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("set table billing: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &BillDetail{Bill: bill, Items: items, OrderIDs: req.OrderIDs}, nil
}

// MarkPaid records payment on a bill. Paying a PAID bill again is a no-op;
// CANCELLED and REFUNDED bills reject the payment.
func (s *BillingService) MarkPaid(ctx context.Context, billID uuid.UUID, paymentMethod string) (database.Bill, error) {
	if paymentMethod != "" && !enum.ValidPaymentMethod(paymentMethod) {
		return database.Bill{}, ErrInvalidPaymentMethod
	}

	bill, err := s.store.MarkBillPaid(ctx, database.MarkBillPaidParams{ID: billID, PaymentMethod: paymentMethod})
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return database.Bill{}, fmt.Errorf("mark bill paid: %w", err)
		}
		// No rows matched: either the bill is missing, or its status blocks
		// payment. Fetch it to tell the two apart.
		if _, getErr := s.store.GetBill(ctx, billID); getErr != nil {
			if errors.Is(getErr, pgx.ErrNoRows) {
				return database.Bill{}, ErrBillNotFound
			}
			return database.Bill{}, fmt.Errorf("get bill: %w", getErr)
		}
		return database.Bill{}, ErrBillNotPayable
	}

	s.notifier.Notify(ctx, enum.NotificationTypeBillPaid, enum.NotificationLevelSuccess,
		fmt.Sprintf("Bill %s paid (%s).", bill.InvoiceNumber, numericToDecimal(bill.TotalAmount).StringFixed(2)),
		map[string]interface{}{"billId": bill.ID, "invoiceNumber": bill.InvoiceNumber})

	// Tables configured to auto-clear free up as soon as the bill is paid.
	table, err := s.store.GetTableByName(ctx, bill.TableName)
	if err == nil && table.AutoClearAfterBilling {
		if _, err := s.store.ClearTable(ctx, bill.TableName); err != nil && !errors.Is(err, pgx.ErrNoRows) {
			log.Printf("ERROR: auto-clear table %s: %v", bill.TableName, err)
		}
	}

	return bill, nil
}

// GetBill returns one bill with items and order links.
func (s *BillingService) GetBill(ctx context.Context, billID uuid.UUID) (*BillDetail, error) {
	bill, err := s.store.GetBill(ctx, billID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBillNotFound
		}
		return nil, fmt.Errorf("get bill: %w", err)
	}
	return s.loadDetail(ctx, bill)
}

// ListBills returns bills matching the filter, with items and order links.
func (s *BillingService) ListBills(ctx context.Context, filter BillFilter) ([]BillDetail, error) {
	params, err := s.listParams(filter)
	if err != nil {
		return nil, err
	}
	bills, err := s.store.ListBills(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("list bills: %w", err)
	}
	details := make([]BillDetail, len(bills))
	for i, b := range bills {
		d, err := s.loadDetail(ctx, b)
		if err != nil {
			return nil, err
		}
		details[i] = *d
	}
	return details, nil
}

// Summarize aggregates PAID bills in the period. PENDING, CANCELLED, and
// REFUNDED bills never count toward revenue.
func (s *BillingService) Summarize(ctx context.Context, rng string, from, to time.Time) (*BillSummary, error) {
	params, err := s.listParams(BillFilter{Status: enum.BillStatusPaid, Range: rng, From: from, To: to})
	if err != nil {
		return nil, err
	}
	bills, err := s.store.ListBills(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("list bills: %w", err)
	}

	summary := &BillSummary{TotalRevenue: decimal.Zero, AvgOrderValue: decimal.Zero, BestItem: "-"}
	itemQty := make(map[string]int32)
	for _, b := range bills {
		summary.TotalRevenue = summary.TotalRevenue.Add(numericToDecimal(b.TotalAmount))
		summary.TotalOrders++
		items, err := s.store.ListBillItemsByBill(ctx, b.ID)
		if err != nil {
			return nil, fmt.Errorf("list bill items: %w", err)
		}
		for _, item := range items {
			itemQty[item.Name] += item.Quantity
		}
	}
	if summary.TotalOrders > 0 {
		summary.AvgOrderValue = summary.TotalRevenue.Div(decimal.NewFromInt(int64(summary.TotalOrders))).Round(2)
	}
	for name, qty := range itemQty {
		// Ties break alphabetically so repeated calls agree.
		if qty > summary.BestItemQty || (qty == summary.BestItemQty && summary.BestItem != "-" && name < summary.BestItem) {
			summary.BestItem = name
			summary.BestItemQty = qty
		}
	}
	return summary, nil
}

// RevenueTrend buckets PAID revenue by UTC calendar day, oldest first.
func (s *BillingService) RevenueTrend(ctx context.Context, rng string, from, to time.Time) ([]TrendPoint, error) {
	params, err := s.listParams(BillFilter{Status: enum.BillStatusPaid, Range: rng, From: from, To: to})
	if err != nil {
		return nil, err
	}
	bills, err := s.store.ListBills(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("list bills: %w", err)
	}

	buckets := make(map[string]*TrendPoint)
	for _, b := range bills {
		day := b.CreatedAt.UTC().Format("2006-01-02")
		pt, ok := buckets[day]
		if !ok {
			pt = &TrendPoint{Date: day, Revenue: decimal.Zero}
			buckets[day] = pt
		}
		pt.Revenue = pt.Revenue.Add(numericToDecimal(b.TotalAmount))
		pt.Bills++
	}

	points := make([]TrendPoint, 0, len(buckets))
	for _, pt := range buckets {
		points = append(points, *pt)
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Date < points[j].Date })
	return points, nil
}

func (s *BillingService) loadDetail(ctx context.Context, bill database.Bill) (*BillDetail, error) {
	items, err := s.store.ListBillItemsByBill(ctx, bill.ID)
	if err != nil {
		return nil, fmt.Errorf("list bill items: %w", err)
	}
	orderIDs, err := s.store.ListBillOrderIDs(ctx, bill.ID)
	if err != nil {
		return nil, fmt.Errorf("list bill orders: %w", err)
	}
	return &BillDetail{Bill: bill, Items: items, OrderIDs: orderIDs}, nil
}

func (s *BillingService) listParams(filter BillFilter) (database.ListBillsParams, error) {
	params := database.ListBillsParams{
		Status:        allToAny(filter.Status),
		PaymentMethod: allToAny(filter.PaymentMethod),
		Search:        filter.Search,
		Ascending:     filter.Ascending,
	}
	start, end, err := s.resolveRange(filter.Range, filter.From, filter.To)
	if err != nil {
		return database.ListBillsParams{}, err
	}
	if !start.IsZero() {
		params.StartDate = pgtype.Timestamptz{Time: start, Valid: true}
	}
	if !end.IsZero() {
		params.EndDate = pgtype.Timestamptz{Time: end, Valid: true}
	}
	return params, nil
}

// resolveRange maps a range token to a [start, end) window. "custom" needs
// both bounds; with either missing, and for unknown or "all" tokens, no
// date filter applies.
func (s *BillingService) resolveRange(rng string, from, to time.Time) (time.Time, time.Time, error) {
	now := s.now()
	switch rng {
	case "today":
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()), time.Time{}, nil
	case "week":
		return now.AddDate(0, 0, -7), time.Time{}, nil
	case "month":
		return now.AddDate(0, -1, 0), time.Time{}, nil
	case "quarter":
		return now.AddDate(0, -3, 0), time.Time{}, nil
	case "half-year":
		return now.AddDate(0, -6, 0), time.Time{}, nil
	case "year":
		return now.AddDate(-1, 0, 0), time.Time{}, nil
	case "custom":
		if from.IsZero() || to.IsZero() {
			return time.Time{}, time.Time{}, nil
		}
		if to.Before(from) {
			return time.Time{}, time.Time{}, ErrInvalidDateRange
		}
		return from, to, nil
	default:
		return time.Time{}, time.Time{}, nil
	}
}

// allToAny maps the "ALL" filter sentinel to the empty string, which the
// list query treats as no filter.
func allToAny(s string) string {
	if s == "ALL" {
		return ""
	}
	return s
}

func textOrNull(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}
