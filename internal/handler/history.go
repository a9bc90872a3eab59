package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/caffea/api/internal/service"
	"github.com/go-chi/chi/v5"
)

// HistoryServicer defines the service methods needed by history handlers.
// Satisfied by *service.BillingService; narrow interface for testability.
type HistoryServicer interface {
	ListBills(ctx context.Context, filter service.BillFilter) ([]service.BillDetail, error)
	Summarize(ctx context.Context, rng string, from, to time.Time) (*service.BillSummary, error)
	RevenueTrend(ctx context.Context, rng string, from, to time.Time) ([]service.TrendPoint, error)
}

// HistoryHandler serves reporting views over past bills.
type HistoryHandler struct {
	svc HistoryServicer
}

// NewHistoryHandler creates a new HistoryHandler.
func NewHistoryHandler(svc HistoryServicer) *HistoryHandler {
	return &HistoryHandler{svc: svc}
}

// RegisterRoutes registers history endpoints on the given Chi router.
func (h *HistoryHandler) RegisterRoutes(r chi.Router) {
	r.Get("/history/bills", h.Bills)
	r.Get("/history/summary", h.Summary)
	r.Get("/history/trend", h.Trend)
}

// Bills handles GET /history/bills.
func (h *HistoryHandler) Bills(w http.ResponseWriter, r *http.Request) {
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
		log.Printf("ERROR: list bill history: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	bills := make([]billResponse, len(details))
	for i := range details {
		bills[i] = toBillResponse(&details[i])
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"bills": bills})
}

// Summary handles GET /history/summary.
func (h *HistoryHandler) Summary(w http.ResponseWriter, r *http.Request) {
	rng, from, to, ok := rangeFromQuery(w, r)
	if !ok {
		return
	}

	summary, err := h.svc.Summarize(r.Context(), rng, from, to)
	if err != nil {
		if errors.Is(err, service.ErrInvalidDateRange) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		log.Printf("ERROR: summarize bills: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

// Trend handles GET /history/trend.
func (h *HistoryHandler) Trend(w http.ResponseWriter, r *http.Request) {
	rng, from, to, ok := rangeFromQuery(w, r)
	if !ok {
		return
	}

	points, err := h.svc.RevenueTrend(r.Context(), rng, from, to)
	if err != nil {
		if errors.Is(err, service.ErrInvalidDateRange) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		log.Printf("ERROR: revenue trend: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	if points == nil {
		points = []service.TrendPoint{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"trend": points})
}

// rangeFromQuery parses range/from/to query params shared by summary and trend.
func rangeFromQuery(w http.ResponseWriter, r *http.Request) (string, time.Time, time.Time, bool) {
	q := r.URL.Query()
	rng := q.Get("range")

	var from, to time.Time
	if s := q.Get("from"); s != "" {
		t, err := parseDate(s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid from date, use YYYY-MM-DD"})
			return "", time.Time{}, time.Time{}, false
		}
		from = t
	}
	if s := q.Get("to"); s != "" {
		t, err := parseDate(s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid to date, use YYYY-MM-DD"})
			return "", time.Time{}, time.Time{}, false
		}
		to = t.AddDate(0, 0, 1)
	}
	return rng, from, to, true
}
