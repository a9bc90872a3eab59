package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/caffea/api/internal/database"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// EmployeeStore defines the database methods needed by employee handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type EmployeeStore interface {
	CreateEmployee(ctx context.Context, arg database.CreateEmployeeParams) (database.Employee, error)
	ListEmployees(ctx context.Context) ([]database.Employee, error)
	UpdateEmployee(ctx context.Context, arg database.UpdateEmployeeParams) (database.Employee, error)
	DeleteEmployee(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
}

// EmployeeHandler handles staff directory endpoints.
type EmployeeHandler struct {
	store EmployeeStore
}

// NewEmployeeHandler creates a new EmployeeHandler.
func NewEmployeeHandler(store EmployeeStore) *EmployeeHandler {
	return &EmployeeHandler{store: store}
}

// RegisterRoutes registers employee endpoints on the given Chi router.
func (h *EmployeeHandler) RegisterRoutes(r chi.Router) {
	r.Get("/employees", h.List)
	r.Post("/employees", h.Create)
	r.Put("/employees/{id}", h.Update)
	r.Delete("/employees/{id}", h.Delete)
}

type employeeRequest struct {
	Name     string  `json:"name"`
	Role     string  `json:"role"`
	Phone    string  `json:"phone"`
	Email    string  `json:"email"`
	Salary   float64 `json:"salary"`
	JoinedAt string  `json:"joinedAt"`
}

type employeeResponse struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	Role      string     `json:"role"`
	Phone     *string    `json:"phone"`
	Email     *string    `json:"email"`
	Salary    string     `json:"salary"`
	JoinedAt  *time.Time `json:"joinedAt"`
	CreatedAt time.Time  `json:"createdAt"`
}

// List handles GET /employees.
func (h *EmployeeHandler) List(w http.ResponseWriter, r *http.Request) {
	employees, err := h.store.ListEmployees(r.Context())
	if err != nil {
		log.Printf("ERROR: list employees: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]employeeResponse, len(employees))
	for i, e := range employees {
		resp[i] = toEmployeeResponse(e)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Create handles POST /employees.
func (h *EmployeeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req employeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Name == "" || req.Role == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name and role are required"})
		return
	}
	joinedAt, err := parseJoinedAt(req.JoinedAt)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid joinedAt date, use YYYY-MM-DD"})
		return
	}

	employee, err := h.store.CreateEmployee(r.Context(), database.CreateEmployeeParams{
		Name:     req.Name,
		Role:     req.Role,
		Phone:    textFromString(req.Phone),
		Email:    textFromString(req.Email),
		Salary:   numericFromFloat(req.Salary),
		JoinedAt: joinedAt,
	})
	if err != nil {
		log.Printf("ERROR: create employee: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, toEmployeeResponse(employee))
}

// Update handles PUT /employees/{id}.
func (h *EmployeeHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid employee ID"})
		return
	}

	var req employeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Name == "" || req.Role == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name and role are required"})
		return
	}
	joinedAt, err := parseJoinedAt(req.JoinedAt)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid joinedAt date, use YYYY-MM-DD"})
		return
	}

	employee, err := h.store.UpdateEmployee(r.Context(), database.UpdateEmployeeParams{
		ID:       id,
		Name:     req.Name,
		Role:     req.Role,
		Phone:    textFromString(req.Phone),
		Email:    textFromString(req.Email),
		Salary:   numericFromFloat(req.Salary),
		JoinedAt: joinedAt,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "employee not found"})
			return
		}
		log.Printf("ERROR: update employee: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toEmployeeResponse(employee))
}

// Delete handles DELETE /employees/{id}.
func (h *EmployeeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid employee ID"})
		return
	}

	if _, err := h.store.DeleteEmployee(r.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "employee not found"})
			return
		}
		log.Printf("ERROR: delete employee: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "employee deleted"})
}

func parseJoinedAt(s string) (pgtype.Timestamptz, error) {
	if s == "" {
		return pgtype.Timestamptz{}, nil
	}
	t, err := parseDate(s)
	if err != nil {
		return pgtype.Timestamptz{}, err
	}
	return pgtype.Timestamptz{Time: t, Valid: true}, nil
}

func toEmployeeResponse(e database.Employee) employeeResponse {
	resp := employeeResponse{
		ID:        e.ID,
		Name:      e.Name,
		Role:      e.Role,
		Phone:     textPtr(e.Phone),
		Email:     textPtr(e.Email),
		Salary:    numericToString(e.Salary),
		CreatedAt: e.CreatedAt,
	}
	if e.JoinedAt.Valid {
		t := e.JoinedAt.Time
		resp.JoinedAt = &t
	}
	return resp
}
