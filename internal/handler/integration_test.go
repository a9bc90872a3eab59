//go:build integration

package handler_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"golang.org/x/crypto/bcrypt"

	"github.com/caffea/api/internal/config"
	"github.com/caffea/api/internal/database"
	"github.com/caffea/api/internal/router"
	"github.com/caffea/api/internal/ws"
)

// TestIntegrationFlow exercises the full guest-to-payment lifecycle against a
// real PostgreSQL database: seat a table, confirm an order batch, serve it,
// raise a bill, pay it, and read back the reports.
func TestIntegrationFlow(t *testing.T) {
	ctx := context.Background()

	pgContainer, connStr, cleanup := setupPostgresContainer(t, ctx)
	defer cleanup()

	runMigrations(t, connStr)

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		t.Fatalf("create pool: %v", err)
	}
	defer pool.Close()

	cfg := &config.Config{
		Port:          "8081",
		DatabaseURL:   connStr,
		JWTSecret:     "integration-test-secret",
		ServeDeadline: 15 * time.Minute,
		SchedulerPoll: 30 * time.Second,
		InvoicePrefix: "CAF",
	}
	queries := database.New(pool)
	hub := ws.NewHub()
	// NOTE: hub.Run() goroutine leaks on test exit — Hub has no shutdown
	// mechanism. Acceptable for tests.
	go hub.Run()

	r := router.New(cfg, queries, pool, hub)
	server := httptest.NewServer(r)
	defer server.Close()

	// --- 1. Bootstrap admin user (direct DB insert) ---
	adminID := createAdminUser(t, ctx, pool)

	// --- 2. Login ---
	token := login(t, server, "admin@test.com", "password123")

	// --- 3. Create a table ---
	tableResp := apiPost(t, server, "/tables", token, map[string]interface{}{
		"name":                  "T1",
		"capacity":              4,
		"autoClearAfterBilling": true,
	}, http.StatusCreated)
	if tableResp["status"] != "FREE" {
		t.Fatalf("new table status: got %v, want FREE", tableResp["status"])
	}

	// --- 4. Create a menu item and matching inventory ---
	menuResp := apiPost(t, server, "/menu", token, map[string]interface{}{
		"name":     "Latte",
		"category": "coffee",
		"price":    4.5,
	}, http.StatusCreated)
	menuItemID := uuid.MustParse(menuResp["id"].(string))

	apiPost(t, server, "/inventory", token, map[string]interface{}{
		"itemName":          "Latte",
		"category":          "beverage",
		"unit":              "cup",
		"quantityAvailable": 10,
		"reorderLevel":      3,
	}, http.StatusCreated)

	// --- 5. Guest confirms a cart (public endpoint, no token) ---
	orderResp := apiPost(t, server, "/orders", "", map[string]interface{}{
		"tableName": "T1",
		"items": []map[string]interface{}{
			{"name": "Latte", "price": 4.5, "quantity": 2, "menuItemId": menuItemID.String()},
		},
	}, http.StatusCreated)
	orderID := uuid.MustParse(orderResp["id"].(string))
	batches := orderResp["batches"].([]interface{})
	if len(batches) != 1 {
		t.Fatalf("batches: got %d, want 1", len(batches))
	}

	// --- 6. Table flips to OCCUPIED ---
	if status := tableStatus(t, server, token, "T1"); status != "OCCUPIED" {
		t.Fatalf("table status after order: got %s, want OCCUPIED", status)
	}

	// --- 7. Stock was deducted against the order ---
	invList := apiGetList(t, server, "/inventory", token)
	if got := invList[0]["quantityAvailable"]; got != "8.00" {
		t.Fatalf("inventory after order: got %v, want 8.00", got)
	}

	// --- 8. Staff marks the order served ---
	servedResp := apiPatch(t, server, "/orders/"+orderID.String()+"/served", token, nil, http.StatusOK)
	if servedResp["served"] != true {
		t.Fatalf("served: got %v, want true", servedResp["served"])
	}

	// --- 9. Raise the bill ---
	billResp := apiPost(t, server, "/billing/create", token, map[string]interface{}{
		"tableName":     "T1",
		"items":         []map[string]interface{}{{"name": "Latte", "price": 4.5, "quantity": 2}},
		"paymentMethod": "CASH",
		"discount":      1.0,
		"serviceCharge": 0.5,
		"orderIds":      []string{orderID.String()},
	}, http.StatusCreated)
	billID := uuid.MustParse(billResp["id"].(string))

	// 2 * 4.50 - 1.00 + 0.50
	if billResp["totalAmount"] != "8.50" {
		t.Fatalf("bill total: got %v, want 8.50", billResp["totalAmount"])
	}
	if billResp["status"] != "PENDING" {
		t.Fatalf("bill status: got %v, want PENDING", billResp["status"])
	}
	wantInvoice := fmt.Sprintf("CAF-%d-00001", time.Now().Year())
	if billResp["invoiceNumber"] != wantInvoice {
		t.Fatalf("invoice number: got %v, want %s", billResp["invoiceNumber"], wantInvoice)
	}

	// --- 10. Billing pins the table ---
	if status := tableStatus(t, server, token, "T1"); status != "BILLING_PENDING" {
		t.Fatalf("table status after billing: got %s, want BILLING_PENDING", status)
	}

	// --- 11. Pay the bill; the table auto-clears ---
	paidResp := apiPatch(t, server, "/billing/markPaid/"+billID.String(), token, nil, http.StatusOK)
	if paidResp["status"] != "PAID" {
		t.Fatalf("bill status after payment: got %v, want PAID", paidResp["status"])
	}
	if status := tableStatus(t, server, token, "T1"); status != "FREE" {
		t.Fatalf("table status after payment: got %s, want FREE", status)
	}

	// --- 12. Reports see the paid bill ---
	summary := apiGet(t, server, "/history/summary?range=today", token)
	if summary["totalOrders"].(float64) != 1 {
		t.Fatalf("summary totalOrders: got %v, want 1", summary["totalOrders"])
	}
	if summary["bestItem"] != "Latte" {
		t.Fatalf("summary bestItem: got %v, want Latte", summary["bestItem"])
	}

	trendResp := apiGet(t, server, "/history/trend?range=today", token)
	trend, ok := trendResp["trend"].([]interface{})
	if !ok || len(trend) != 1 {
		t.Fatalf("trend points: got %v, want 1 point", trendResp["trend"])
	}

	// --- 13. The flow left notifications behind ---
	unread := apiGetList(t, server, "/notifications/unread", token)
	if len(unread) == 0 {
		t.Fatal("expected unread notifications after order and payment")
	}

	// --- 14. Concurrent bill creation allocates distinct, gap-free invoices ---
	const concurrent = 8
	results := make(chan string, concurrent)
	errs := make(chan error, concurrent)
	for i := 0; i < concurrent; i++ {
		go func() {
			invoice, err := createBillRaw(server, token, map[string]interface{}{
				"tableName": "walk-in",
				"items":     []map[string]interface{}{{"name": "Espresso", "price": 3.0, "quantity": 1}},
			})
			if err != nil {
				errs <- err
				return
			}
			results <- invoice
		}()
	}
	invoices := make(map[string]bool)
	for i := 0; i < concurrent; i++ {
		select {
		case invoice := <-results:
			if invoices[invoice] {
				t.Fatalf("duplicate invoice number %s", invoice)
			}
			invoices[invoice] = true
		case err := <-errs:
			t.Fatalf("concurrent bill creation: %v", err)
		}
	}
	// The flow's first bill took 00001; the concurrent batch must use exactly
	// the next N numbers with no holes.
	for seq := 2; seq <= concurrent+1; seq++ {
		want := fmt.Sprintf("CAF-%d-%05d", time.Now().Year(), seq)
		if !invoices[want] {
			t.Fatalf("missing invoice number %s; got %v", want, invoices)
		}
	}

	t.Logf("Integration test passed: container=%s, admin=%s, order=%s, bill=%s",
		pgContainer.GetContainerID(), adminID, orderID, billID)
}

// createBillRaw posts a bill without test assertions so it can run from
// spawned goroutines.
func createBillRaw(server *httptest.Server, token string, body map[string]interface{}) (string, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequest("POST", server.URL+"/billing/create", bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := server.Client().Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("create bill: status %d, body %s", resp.StatusCode, buf.String())
	}
	var obj struct {
		InvoiceNumber string `json:"invoiceNumber"`
	}
	if err := json.Unmarshal(buf.Bytes(), &obj); err != nil {
		return "", err
	}
	return obj.InvoiceNumber, nil
}

// --- Setup helpers ---

func setupPostgresContainer(t *testing.T, ctx context.Context) (testcontainers.Container, string, func()) {
	t.Helper()

	pgContainer, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("caffea_test"),
		tcpostgres.WithUsername("caffea"),
		tcpostgres.WithPassword("caffea"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("get connection string: %v", err)
	}

	cleanup := func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("terminate container: %v", err)
		}
	}

	return pgContainer, connStr, cleanup
}

func runMigrations(t *testing.T, connStr string) {
	t.Helper()

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		t.Fatalf("open db for migrations: %v", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		t.Fatalf("create migrate driver: %v", err)
	}

	// Path relative to this test file's package directory.
	m, err := migrate.NewWithDatabaseInstance(
		"file://../../migrations",
		"postgres", driver)
	if err != nil {
		t.Fatalf("create migrate instance: %v", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		t.Fatalf("run migrations: %v", err)
	}
}

func createAdminUser(t *testing.T, ctx context.Context, pool *pgxpool.Pool) uuid.UUID {
	t.Helper()

	hashed, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}

	var id uuid.UUID
	err = pool.QueryRow(ctx,
		`INSERT INTO users (full_name, email, hashed_password, role)
		 VALUES ($1, $2, $3, 'ADMIN')
		 RETURNING id`,
		"Test Admin", "admin@test.com", string(hashed),
	).Scan(&id)
	if err != nil {
		t.Fatalf("create admin user: %v", err)
	}
	return id
}

func login(t *testing.T, server *httptest.Server, email, password string) string {
	t.Helper()

	resp := apiPost(t, server, "/auth/login", "", map[string]string{
		"email":    email,
		"password": password,
	}, http.StatusOK)

	token, ok := resp["access_token"].(string)
	if !ok || token == "" {
		t.Fatalf("login returned no access token: %v", resp)
	}
	return token
}

// --- HTTP helpers ---

func doJSON(t *testing.T, server *httptest.Server, method, path, token string, body interface{}, wantStatus int) []byte {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, server.URL+path, reader)
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := server.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		t.Fatalf("read response: %v", err)
	}
	if resp.StatusCode != wantStatus {
		t.Fatalf("%s %s: status %d, want %d; body: %s", method, path, resp.StatusCode, wantStatus, buf.String())
	}
	return buf.Bytes()
}

func apiPost(t *testing.T, server *httptest.Server, path, token string, body interface{}, wantStatus int) map[string]interface{} {
	t.Helper()
	return unmarshalObject(t, doJSON(t, server, "POST", path, token, body, wantStatus))
}

func apiPatch(t *testing.T, server *httptest.Server, path, token string, body interface{}, wantStatus int) map[string]interface{} {
	t.Helper()
	return unmarshalObject(t, doJSON(t, server, "PATCH", path, token, body, wantStatus))
}

func apiGet(t *testing.T, server *httptest.Server, path, token string) map[string]interface{} {
	t.Helper()
	return unmarshalObject(t, doJSON(t, server, "GET", path, token, nil, http.StatusOK))
}

func apiGetList(t *testing.T, server *httptest.Server, path, token string) []map[string]interface{} {
	t.Helper()
	var list []map[string]interface{}
	if err := json.Unmarshal(doJSON(t, server, "GET", path, token, nil, http.StatusOK), &list); err != nil {
		t.Fatalf("unmarshal list: %v", err)
	}
	return list
}

func unmarshalObject(t *testing.T, b []byte) map[string]interface{} {
	t.Helper()
	var obj map[string]interface{}
	if err := json.Unmarshal(b, &obj); err != nil {
		t.Fatalf("unmarshal object: %v (body %s)", err, strings.TrimSpace(string(b)))
	}
	return obj
}

func tableStatus(t *testing.T, server *httptest.Server, token, name string) string {
	t.Helper()
	for _, tbl := range apiGetList(t, server, "/tables", token) {
		if tbl["name"] == name {
			return tbl["status"].(string)
		}
	}
	t.Fatalf("table %s not found", name)
	return ""
}
