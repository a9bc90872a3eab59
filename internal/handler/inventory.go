package handler

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/caffea/api/internal/database"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// InventoryStore defines the database methods needed by inventory handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type InventoryStore interface {
	CreateInventoryItem(ctx context.Context, arg database.CreateInventoryItemParams) (database.InventoryItem, error)
	ListInventory(ctx context.Context) ([]database.InventoryItem, error)
	ListLowStock(ctx context.Context) ([]database.InventoryItem, error)
}

// InventoryHandler handles stock tracking endpoints.
type InventoryHandler struct {
	store InventoryStore
}

// NewInventoryHandler creates a new InventoryHandler.
func NewInventoryHandler(store InventoryStore) *InventoryHandler {
	return &InventoryHandler{store: store}
}

// RegisterRoutes registers inventory endpoints on the given Chi router.
func (h *InventoryHandler) RegisterRoutes(r chi.Router) {
	r.Get("/inventory", h.List)
	r.Get("/inventory/low-stock", h.ListLowStock)
	r.Post("/inventory", h.Create)
}

type inventoryItemRequest struct {
	ItemName          string  `json:"itemName"`
	Category          string  `json:"category"`
	Unit              string  `json:"unit"`
	QuantityAvailable float64 `json:"quantityAvailable"`
	ReorderLevel      float64 `json:"reorderLevel"`
}

type inventoryItemResponse struct {
	ID                uuid.UUID `json:"id"`
	ItemName          string    `json:"itemName"`
	Category          string    `json:"category"`
	Unit              string    `json:"unit"`
	QuantityAvailable string    `json:"quantityAvailable"`
	ReorderLevel      string    `json:"reorderLevel"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// List handles GET /inventory.
func (h *InventoryHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.ListInventory(r.Context())
	if err != nil {
		log.Printf("ERROR: list inventory: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, toInventoryResponses(items))
}

// ListLowStock handles GET /inventory/low-stock.
func (h *InventoryHandler) ListLowStock(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.ListLowStock(r.Context())
	if err != nil {
		log.Printf("ERROR: list low stock: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, toInventoryResponses(items))
}

// Create handles POST /inventory.
func (h *InventoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req inventoryItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	switch {
	case req.ItemName == "":
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "itemName is required"})
		return
	case req.Unit == "":
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unit is required"})
		return
	case req.QuantityAvailable < 0 || req.ReorderLevel < 0:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "quantities must not be negative"})
		return
	}

	item, err := h.store.CreateInventoryItem(r.Context(), database.CreateInventoryItemParams{
		ItemName:          req.ItemName,
		Category:          req.Category,
		Unit:              req.Unit,
		QuantityAvailable: numericFromFloat(req.QuantityAvailable),
		ReorderLevel:      numericFromFloat(req.ReorderLevel),
	})
	if err != nil {
		if isUniqueViolation(err) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "inventory item already exists"})
			return
		}
		log.Printf("ERROR: create inventory item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, toInventoryItemResponse(item))
}

func toInventoryResponses(items []database.InventoryItem) []inventoryItemResponse {
	resp := make([]inventoryItemResponse, len(items))
	for i, item := range items {
		resp[i] = toInventoryItemResponse(item)
	}
	return resp
}

func toInventoryItemResponse(item database.InventoryItem) inventoryItemResponse {
	return inventoryItemResponse{
		ID:                item.ID,
		ItemName:          item.ItemName,
		Category:          item.Category,
		Unit:              item.Unit,
		QuantityAvailable: numericToString(item.QuantityAvailable),
		ReorderLevel:      numericToString(item.ReorderLevel),
		CreatedAt:         item.CreatedAt,
		UpdatedAt:         item.UpdatedAt,
	}
}
