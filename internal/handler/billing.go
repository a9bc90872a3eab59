package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/caffea/api/internal/database"
	"github.com/caffea/api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BillServicer defines the service methods needed by billing handlers.
// Satisfied by *service.BillingService; narrow interface for testability.
type BillServicer interface {
	CreateBill(ctx context.Context, req service.CreateBillRequest) (*service.BillDetail, error)
	MarkPaid(ctx context.Context, billID uuid.UUID, paymentMethod string) (database.Bill, error)
	GetBill(ctx context.Context, billID uuid.UUID) (*service.BillDetail, error)
	ListBills(ctx context.Context, filter service.BillFilter) ([]service.BillDetail, error)
}

// BillingHandler handles billing endpoints.
type BillingHandler struct {
	svc BillServicer
}

// NewBillingHandler creates a new BillingHandler.
func NewBillingHandler(svc BillServicer) *BillingHandler {
	return &BillingHandler{svc: svc}
}

// RegisterRoutes registers billing endpoints on the given Chi router.
func (h *BillingHandler) RegisterRoutes(r chi.Router) {
	r.Post("/billing/create", h.Create)
	r.Patch("/billing/markPaid/{id}", h.MarkPaid)
	r.Get("/billing", h.List)
	r.Get("/billing/{id}", h.Get)
}

// --- Request / Response types ---

type createBillRequest struct {
	TableName     string                `json:"tableName"`
	Items         []billItemRequestBody `json:"items"`
	PaymentMethod string                `json:"paymentMethod"`
	Discount      float64               `json:"discount"`
	ServiceCharge float64               `json:"serviceCharge"`
	CustomerName  string                `json:"customerName"`
	OrderIDs      []string              `json:"orderIds"`
}

type billItemRequestBody struct {
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int32   `json:"quantity"`
}

type markPaidRequest struct {
	PaymentMethod string `json:"paymentMethod"`
}

type billResponse struct {
	ID            uuid.UUID          `json:"id"`
	TableName     string             `json:"tableName"`
	TotalAmount   string             `json:"totalAmount"`
	InvoiceNumber string             `json:"invoiceNumber"`
	PaymentMethod string             `json:"paymentMethod"`
	Status        string             `json:"status"`
	Discount      string             `json:"discount"`
	ServiceCharge string             `json:"serviceCharge"`
	CustomerName  *string            `json:"customerName"`
	CreatedAt     time.Time          `json:"createdAt"`
	UpdatedAt     time.Time          `json:"updatedAt"`
	Items         []billItemResponse `json:"items"`
	OrderIDs      []uuid.UUID        `json:"orderIds"`
}

type billItemResponse struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Price    string    `json:"price"`
	Quantity int32     `json:"quantity"`
}

// --- Handlers ---

// Create handles POST /billing/create.
func (h *BillingHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createBillRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	orderIDs := make([]uuid.UUID, len(req.OrderIDs))
	for i, s := range req.OrderIDs {
		id, err := uuid.Parse(s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
			return
		}
		orderIDs[i] = id
	}

	items := make([]service.BillItemRequest, len(req.Items))
	for i, item := range req.Items {
		items[i] = service.BillItemRequest{
			Name:     item.Name,
			Price:    decimal.NewFromFloat(item.Price),
			Quantity: item.Quantity,
		}
	}

	detail, err := h.svc.CreateBill(r.Context(), service.CreateBillRequest{
		TableName:     req.TableName,
		Items:         items,
		PaymentMethod: req.PaymentMethod,
		Discount:      decimal.NewFromFloat(req.Discount),
		ServiceCharge: decimal.NewFromFloat(req.ServiceCharge),
		CustomerName:  req.CustomerName,
		OrderIDs:      orderIDs,
	})
	if err != nil {
		if isBillValidationError(err) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		log.Printf("ERROR: create bill: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, toBillResponse(detail))
}

// MarkPaid handles PATCH /billing/markPaid/{id}.
func (h *BillingHandler) MarkPaid(w http.ResponseWriter, r *http.Request) {
	billID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid bill ID"})
		return
	}

	// An empty body keeps the payment method recorded at creation.
	var req markPaidRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	bill, err := h.svc.MarkPaid(r.Context(), billID, req.PaymentMethod)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrBillNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "bill not found"})
		case errors.Is(err, service.ErrBillNotPayable):
			writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		case errors.Is(err, service.ErrInvalidPaymentMethod):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		default:
			log.Printf("ERROR: mark bill paid: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		}
		return
	}

	writeJSON(w, http.StatusOK, toBillResponse(&service.BillDetail{Bill: bill}))
}

// Get handles GET /billing/{id}.
func (h *BillingHandler) Get(w http.ResponseWriter, r *http.Request) {
	billID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid bill ID"})
		return
	}

	detail, err := h.svc.GetBill(r.Context(), billID)
	if err != nil {
		if errors.Is(err, service.ErrBillNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "bill not found"})
			return
		}
		log.Printf("ERROR: get bill: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toBillResponse(detail))
}

// List handles GET /billing.
func (h *BillingHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, ok := billFilterFromQuery(w, r)
	if !ok {
		return
	}

	details, err := h.svc.ListBills(r.Context(), filter)
	if err != nil {
		if errors.Is(err, service.ErrInvalidDateRange) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		log.Printf("ERROR: list bills: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]billResponse, len(details))
	for i := range details {
		resp[i] = toBillResponse(&details[i])
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- Helpers ---

func isBillValidationError(err error) bool {
	return errors.Is(err, service.ErrTableNameRequired) ||
		errors.Is(err, service.ErrBillItemsRequired) ||
		errors.Is(err, service.ErrItemNameRequired) ||
		errors.Is(err, service.ErrInvalidQuantity) ||
		errors.Is(err, service.ErrInvalidPrice) ||
		errors.Is(err, service.ErrInvalidDiscount) ||
		errors.Is(err, service.ErrInvalidServiceCharge) ||
		errors.Is(err, service.ErrInvalidPaymentMethod)
}

// billFilterFromQuery parses the shared bill filter query params. Writes the
// error response itself and returns ok=false on bad input.
func billFilterFromQuery(w http.ResponseWriter, r *http.Request) (service.BillFilter, bool) {
	q := r.URL.Query()
	filter := service.BillFilter{
		Status:        q.Get("status"),
		PaymentMethod: q.Get("payment"),
		Range:         q.Get("range"),
		Search:        q.Get("search"),
		Ascending:     q.Get("sort") == "asc",
	}
	if s := q.Get("from"); s != "" {
		t, err := parseDate(s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid from date, use YYYY-MM-DD"})
			return service.BillFilter{}, false
		}
		filter.From = t
	}
	if s := q.Get("to"); s != "" {
		t, err := parseDate(s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid to date, use YYYY-MM-DD"})
			return service.BillFilter{}, false
		}
		// End bound is exclusive; bump a bare date to cover the whole day.
		filter.To = t.AddDate(0, 0, 1)
	}
	return filter, true
}

func parseDate(s string) (time.Time, error) {
	return time.Parse("2006-01-02", s)
}

func toBillResponse(detail *service.BillDetail) billResponse {
	b := detail.Bill
	resp := billResponse{
		ID:            b.ID,
		TableName:     b.TableName,
		TotalAmount:   numericToString(b.TotalAmount),
		InvoiceNumber: b.InvoiceNumber,
		PaymentMethod: b.PaymentMethod,
		Status:        b.Status,
		Discount:      numericToString(b.Discount),
		ServiceCharge: numericToString(b.ServiceCharge),
		CustomerName:  textPtr(b.CustomerName),
		CreatedAt:     b.CreatedAt,
		UpdatedAt:     b.UpdatedAt,
		Items:         make([]billItemResponse, len(detail.Items)),
		OrderIDs:      detail.OrderIDs,
	}
	for i, item := range detail.Items {
		resp.Items[i] = billItemResponse{
			ID:       item.ID,
			Name:     item.Name,
			Price:    numericToString(item.Price),
			Quantity: item.Quantity,
		}
	}
	if resp.OrderIDs == nil {
		resp.OrderIDs = []uuid.UUID{}
	}
	return resp
}
