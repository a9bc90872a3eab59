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
)

// TableServicer defines the service methods needed by table handlers.
// Satisfied by *service.TableService; narrow interface for testability.
type TableServicer interface {
	ListWithContext(ctx context.Context) ([]service.TableContext, error)
	AddTable(ctx context.Context, req service.AddTableRequest) (database.CafeTable, error)
	UpdateTable(ctx context.Context, id uuid.UUID, req service.UpdateTableRequest) (database.CafeTable, error)
	ClearTableByID(ctx context.Context, id uuid.UUID) (database.CafeTable, error)
	DeleteTable(ctx context.Context, id uuid.UUID) error
}

// TableHandler handles floor-plan endpoints.
type TableHandler struct {
	svc TableServicer
}

// NewTableHandler creates a new TableHandler.
func NewTableHandler(svc TableServicer) *TableHandler {
	return &TableHandler{svc: svc}
}

// RegisterRoutes registers table endpoints on the given Chi router.
func (h *TableHandler) RegisterRoutes(r chi.Router) {
	r.Get("/tables", h.List)
	r.Post("/tables", h.Add)
	r.Patch("/tables/{id}", h.Update)
	r.Post("/tables/{id}/clear", h.Clear)
	r.Delete("/tables/{id}", h.Delete)
}

// --- Request / Response types ---

type addTableRequest struct {
	Name                  string `json:"name"`
	Capacity              int32  `json:"capacity"`
	AutoClearAfterBilling bool   `json:"autoClearAfterBilling"`
}

type updateTableRequest struct {
	Status                *string `json:"status"`
	Customers             *int32  `json:"customers"`
	Capacity              *int32  `json:"capacity"`
	ServedBy              *string `json:"servedBy"`
	AutoClearAfterBilling *bool   `json:"autoClearAfterBilling"`
}

type tableResponse struct {
	ID                    uuid.UUID  `json:"id"`
	Name                  string     `json:"name"`
	Capacity              int32      `json:"capacity"`
	Status                string     `json:"status"`
	Customers             int32      `json:"customers"`
	ActiveSince           *time.Time `json:"activeSince"`
	ServedBy              *string    `json:"servedBy"`
	AutoClearAfterBilling bool       `json:"autoClearAfterBilling"`
	CreatedAt             time.Time  `json:"createdAt"`
	UpdatedAt             time.Time  `json:"updatedAt"`
}

type tableContextResponse struct {
	tableResponse
	ActiveOrders []orderResponse `json:"activeOrders"`
	LastBill     *billResponse   `json:"lastBill"`
}

// --- Handlers ---

// List handles GET /tables.
func (h *TableHandler) List(w http.ResponseWriter, r *http.Request) {
	contexts, err := h.svc.ListWithContext(r.Context())
	if err != nil {
		log.Printf("ERROR: list tables: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]tableContextResponse, len(contexts))
	for i, tc := range contexts {
		resp[i] = toTableContextResponse(tc)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Add handles POST /tables.
func (h *TableHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req addTableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	table, err := h.svc.AddTable(r.Context(), service.AddTableRequest{
		Name:                  req.Name,
		Capacity:              req.Capacity,
		AutoClearAfterBilling: req.AutoClearAfterBilling,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTableNameTaken):
			writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		case errors.Is(err, service.ErrTableNameRequired), errors.Is(err, service.ErrInvalidCapacity):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		default:
			log.Printf("ERROR: add table: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		}
		return
	}

	writeJSON(w, http.StatusCreated, toTableResponse(table))
}

// Update handles PATCH /tables/{id}.
func (h *TableHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid table ID"})
		return
	}

	var req updateTableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	table, err := h.svc.UpdateTable(r.Context(), id, service.UpdateTableRequest{
		Status:                req.Status,
		Customers:             req.Customers,
		Capacity:              req.Capacity,
		ServedBy:              req.ServedBy,
		AutoClearAfterBilling: req.AutoClearAfterBilling,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTableNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "table not found"})
		case errors.Is(err, service.ErrInvalidTransition):
			writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		case errors.Is(err, service.ErrInvalidTableStatus), errors.Is(err, service.ErrInvalidCapacity):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		default:
			log.Printf("ERROR: update table: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		}
		return
	}

	writeJSON(w, http.StatusOK, toTableResponse(table))
}

// Clear handles POST /tables/{id}/clear.
func (h *TableHandler) Clear(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid table ID"})
		return
	}

	table, err := h.svc.ClearTableByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrTableNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "table not found"})
			return
		}
		log.Printf("ERROR: clear table: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toTableResponse(table))
}

// Delete handles DELETE /tables/{id}.
func (h *TableHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid table ID"})
		return
	}

	if err := h.svc.DeleteTable(r.Context(), id); err != nil {
		if errors.Is(err, service.ErrTableNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "table not found"})
			return
		}
		log.Printf("ERROR: delete table: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "table deleted"})
}

// --- Helpers ---

func toTableResponse(t database.CafeTable) tableResponse {
	resp := tableResponse{
		ID:                    t.ID,
		Name:                  t.Name,
		Capacity:              t.Capacity,
		Status:                t.Status,
		Customers:             t.Customers,
		ServedBy:              textPtr(t.ServedBy),
		AutoClearAfterBilling: t.AutoClearAfterBilling,
		CreatedAt:             t.CreatedAt,
		UpdatedAt:             t.UpdatedAt,
	}
	if t.ActiveSince.Valid {
		ts := t.ActiveSince.Time
		resp.ActiveSince = &ts
	}
	return resp
}

func toTableContextResponse(tc service.TableContext) tableContextResponse {
	resp := tableContextResponse{
		tableResponse: toTableResponse(tc.Table),
		ActiveOrders:  make([]orderResponse, len(tc.ActiveOrders)),
	}
	for i := range tc.ActiveOrders {
		resp.ActiveOrders[i] = toOrderResponse(&tc.ActiveOrders[i])
	}
	if tc.LastBill != nil {
		bill := toBillResponse(&service.BillDetail{Bill: *tc.LastBill})
		resp.LastBill = &bill
	}
	return resp
}
