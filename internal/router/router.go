package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/caffea/api/internal/config"
	"github.com/caffea/api/internal/database"
	"github.com/caffea/api/internal/handler"
	mw "github.com/caffea/api/internal/middleware"
	"github.com/caffea/api/internal/service"
	"github.com/caffea/api/internal/ws"
)

// New creates a Chi router with all application routes wired up. Guest-facing
// routes (menu browsing, placing orders) are public; everything else sits
// behind authentication, with staff directories restricted to admins.
func New(cfg *config.Config, queries *database.Queries, pool *pgxpool.Pool, hub *ws.Hub) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "https://app.caffea.example"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Services
	notifier := service.NewNotificationService(queries, hub)
	stock := service.NewStockService(queries, notifier)
	newOrderStore := func(db database.DBTX) service.OrderStore {
		return database.New(db)
	}
	orderService := service.NewOrderService(queries, pool, newOrderStore, stock, notifier, cfg.ServeDeadline)
	newBillStore := func(db database.DBTX) service.BillStore {
		return database.New(db)
	}
	billingService := service.NewBillingService(queries, pool, newBillStore, notifier, cfg.InvoicePrefix)
	tableService := service.NewTableService(queries, orderService, notifier)

	// Handlers
	authHandler := handler.NewAuthHandler(queries, cfg.JWTSecret)
	orderHandler := handler.NewOrderHandler(orderService)
	billingHandler := handler.NewBillingHandler(billingService)
	historyHandler := handler.NewHistoryHandler(billingService)
	tableHandler := handler.NewTableHandler(tableService)
	menuHandler := handler.NewMenuHandler(queries)
	inventoryHandler := handler.NewInventoryHandler(queries)
	notificationHandler := handler.NewNotificationHandler(queries)
	supplierHandler := handler.NewSupplierHandler(queries)
	employeeHandler := handler.NewEmployeeHandler(queries)

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	authHandler.RegisterRoutes(r)
	menuHandler.RegisterPublicRoutes(r)
	orderHandler.RegisterPublicRoutes(r)

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws/notifications", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, cfg.JWTSecret, w, r)
	})

	// Protected routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		orderHandler.RegisterStaffRoutes(r)
		menuHandler.RegisterStaffRoutes(r)
		billingHandler.RegisterRoutes(r)
		historyHandler.RegisterRoutes(r)
		tableHandler.RegisterRoutes(r)
		inventoryHandler.RegisterRoutes(r)
		notificationHandler.RegisterRoutes(r)

		// Admin-only routes
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireRole("ADMIN"))
			supplierHandler.RegisterRoutes(r)
			employeeHandler.RegisterRoutes(r)
		})
	})

	return r
}
