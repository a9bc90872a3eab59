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
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// OrderServicer defines the service methods needed by order handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	ConfirmBatch(ctx context.Context, req service.ConfirmBatchRequest) (*service.OrderDetail, error)
	AddItem(ctx context.Context, orderID uuid.UUID, batchID *uuid.UUID, item service.ItemRequest) (*service.OrderDetail, error)
	RemoveItem(ctx context.Context, orderID, batchID, itemID uuid.UUID) (*service.OrderDetail, error)
	MarkServed(ctx context.Context, orderID uuid.UUID) (database.Order, error)
	ListActive(ctx context.Context) ([]service.OrderDetail, error)
	ListByTable(ctx context.Context, tableName string) ([]service.OrderDetail, error)
}

// OrderHandler handles order endpoints.
type OrderHandler struct {
	svc OrderServicer
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(svc OrderServicer) *OrderHandler {
	return &OrderHandler{svc: svc}
}

// RegisterPublicRoutes registers the endpoints guests reach from the table QR
// menu: confirming a batch and watching their own table's orders.
func (h *OrderHandler) RegisterPublicRoutes(r chi.Router) {
	r.Post("/orders", h.Confirm)
	r.Get("/orders/table/{tableName}", h.ListByTable)
}

// RegisterStaffRoutes registers the endpoints behind authentication.
func (h *OrderHandler) RegisterStaffRoutes(r chi.Router) {
	r.Get("/orders", h.ListActive)
	r.Patch("/orders/{id}/served", h.MarkServed)
	r.Patch("/orders/{id}/add-item", h.AddItem)
	r.Patch("/orders/{id}/remove-item", h.RemoveItem)
}

// --- Request / Response types ---

type confirmBatchRequest struct {
	TableName string            `json:"tableName"`
	Items     []itemRequestBody `json:"items"`
}

type itemRequestBody struct {
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Quantity    int32   `json:"quantity"`
	SubCategory string  `json:"subCategory"`
	MenuItemID  string  `json:"menuItemId"`
}

type addItemRequest struct {
	BatchID string          `json:"batchId"`
	Item    itemRequestBody `json:"item"`
}

type removeItemRequest struct {
	BatchID string `json:"batchId"`
	ItemID  string `json:"itemId"`
}

type orderResponse struct {
	ID        uuid.UUID       `json:"id"`
	TableName string          `json:"tableName"`
	Served    bool            `json:"served"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
	Batches   []batchResponse `json:"batches"`
}

type batchResponse struct {
	ID        uuid.UUID           `json:"id"`
	Confirmed bool                `json:"confirmed"`
	CreatedAt time.Time           `json:"createdAt"`
	Items     []orderItemResponse `json:"items"`
}

type orderItemResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	SubCategory *string   `json:"subCategory"`
	Price       string    `json:"price"`
	Quantity    int32     `json:"quantity"`
	MenuItemID  *string   `json:"menuItemId"`
}

// --- Handlers ---

// Confirm handles POST /orders: a confirmed cart becomes a new batch on the
// table's open order.
func (h *OrderHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	var req confirmBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	items := make([]service.ItemRequest, len(req.Items))
	for i, item := range req.Items {
		items[i] = toServiceItem(item)
	}

	detail, err := h.svc.ConfirmBatch(r.Context(), service.ConfirmBatchRequest{
		TableName: req.TableName,
		Items:     items,
	})
	if err != nil {
		if isOrderValidationError(err) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		log.Printf("ERROR: confirm batch: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, toOrderResponse(detail))
}

// ListActive handles GET /orders.
func (h *OrderHandler) ListActive(w http.ResponseWriter, r *http.Request) {
	details, err := h.svc.ListActive(r.Context())
	if err != nil {
		log.Printf("ERROR: list active orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]orderResponse, len(details))
	for i := range details {
		resp[i] = toOrderResponse(&details[i])
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListByTable handles GET /orders/table/{tableName}.
func (h *OrderHandler) ListByTable(w http.ResponseWriter, r *http.Request) {
	tableName := chi.URLParam(r, "tableName")

	details, err := h.svc.ListByTable(r.Context(), tableName)
	if err != nil {
		if errors.Is(err, service.ErrTableNameRequired) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		log.Printf("ERROR: list orders by table: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]orderResponse, len(details))
	for i := range details {
		resp[i] = toOrderResponse(&details[i])
	}
	writeJSON(w, http.StatusOK, resp)
}

// MarkServed handles PATCH /orders/{id}/served.
func (h *OrderHandler) MarkServed(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	order, err := h.svc.MarkServed(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		log.Printf("ERROR: mark order served: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, orderResponse{
		ID:        order.ID,
		TableName: order.TableName,
		Served:    order.Served,
		CreatedAt: order.CreatedAt,
		UpdatedAt: order.UpdatedAt,
		Batches:   []batchResponse{},
	})
}

// AddItem handles PATCH /orders/{id}/add-item.
func (h *OrderHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	var batchID *uuid.UUID
	if req.BatchID != "" {
		id, err := uuid.Parse(req.BatchID)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid batch ID"})
			return
		}
		batchID = &id
	}

	detail, err := h.svc.AddItem(r.Context(), orderID, batchID, toServiceItem(req.Item))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOrderNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
		case errors.Is(err, service.ErrBatchNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "batch not found"})
		case isOrderValidationError(err):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		default:
			log.Printf("ERROR: add order item: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		}
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(detail))
}

// RemoveItem handles PATCH /orders/{id}/remove-item.
func (h *OrderHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	var req removeItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	batchID, err := uuid.Parse(req.BatchID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid batch ID"})
		return
	}
	itemID, err := uuid.Parse(req.ItemID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid item ID"})
		return
	}

	detail, err := h.svc.RemoveItem(r.Context(), orderID, batchID, itemID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOrderNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
		case errors.Is(err, service.ErrBatchNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "batch not found"})
		case errors.Is(err, service.ErrItemNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "item not found"})
		default:
			log.Printf("ERROR: remove order item: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		}
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(detail))
}

// --- Helpers ---

// isOrderValidationError checks if the error is a known validation error
// from the service layer that should result in 400 Bad Request.
func isOrderValidationError(err error) bool {
	return errors.Is(err, service.ErrTableNameRequired) ||
		errors.Is(err, service.ErrEmptyItems) ||
		errors.Is(err, service.ErrItemNameRequired) ||
		errors.Is(err, service.ErrInvalidQuantity) ||
		errors.Is(err, service.ErrInvalidPrice) ||
		errors.Is(err, service.ErrInvalidMenuItemID)
}

func toServiceItem(item itemRequestBody) service.ItemRequest {
	return service.ItemRequest{
		Name:        item.Name,
		Price:       decimal.NewFromFloat(item.Price),
		Quantity:    item.Quantity,
		SubCategory: item.SubCategory,
		MenuItemID:  item.MenuItemID,
	}
}

func toOrderResponse(detail *service.OrderDetail) orderResponse {
	resp := orderResponse{
		ID:        detail.Order.ID,
		TableName: detail.Order.TableName,
		Served:    detail.Order.Served,
		CreatedAt: detail.Order.CreatedAt,
		UpdatedAt: detail.Order.UpdatedAt,
		Batches:   make([]batchResponse, len(detail.Batches)),
	}
	for i, b := range detail.Batches {
		batch := batchResponse{
			ID:        b.Batch.ID,
			Confirmed: b.Batch.Confirmed,
			CreatedAt: b.Batch.CreatedAt,
			Items:     make([]orderItemResponse, len(b.Items)),
		}
		for j, item := range b.Items {
			batch.Items[j] = orderItemResponse{
				ID:          item.ID,
				Name:        item.Name,
				SubCategory: textPtr(item.SubCategory),
				Price:       numericToString(item.Price),
				Quantity:    item.Quantity,
				MenuItemID:  uuidPtr(item.MenuItemID),
			}
		}
		resp.Batches[i] = batch
	}
	return resp
}

func textPtr(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	s := t.String
	return &s
}

func uuidPtr(u pgtype.UUID) *string {
	if !u.Valid {
		return nil
	}
	s := uuid.UUID(u.Bytes).String()
	return &s
}

func numericToString(n pgtype.Numeric) string {
	if !n.Valid {
		return "0.00"
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return "0.00"
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return "0.00"
	}
	return d.StringFixed(2)
}
