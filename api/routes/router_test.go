package routes

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pisakart/pisakart-backend/internal/addresshistory"
	"github.com/pisakart/pisakart-backend/internal/carts"
	"github.com/pisakart/pisakart-backend/internal/customers"
	"github.com/pisakart/pisakart-backend/internal/orders"
	"github.com/pisakart/pisakart-backend/internal/payments"
	"github.com/pisakart/pisakart-backend/pkg/config"
	"github.com/pisakart/pisakart-backend/pkg/docstore/memstore"
	"github.com/pisakart/pisakart-backend/pkg/logger"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	store := memstore.New()

	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	cfg := &config.Config{}
	cfg.App.Env = "test"

	historyService, err := addresshistory.NewService(store)
	if err != nil {
		t.Fatal(err)
	}
	customersService, err := customers.NewService(store, historyService)
	if err != nil {
		t.Fatal(err)
	}
	cartsService, err := carts.NewService(store, customersService)
	if err != nil {
		t.Fatal(err)
	}
	paymentsService, err := payments.NewService(store, customersService, nil)
	if err != nil {
		t.Fatal(err)
	}
	ordersService, err := orders.NewService(store, customersService)
	if err != nil {
		t.Fatal(err)
	}

	return NewRouter(cfg, logg, nil, nil, nil,
		customersService, historyService, cartsService, paymentsService, ordersService)
}

func TestCreateUserThenGetUserRoundTrip(t *testing.T) {
	router := newTestRouter(t)

	body := `{"name":"Asha","phonenumber":"9876543210","street":"12 MG Road","pincode":"411038"}`
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/create-user", strings.NewReader(body)))
	if resp.Code != http.StatusCreated {
		t.Fatalf("create-user status %d: %s", resp.Code, resp.Body.String())
	}

	var created struct {
		Data struct {
			UserCode string `json:"user_code"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatal(err)
	}
	if len(created.Data.UserCode) != 6 {
		t.Fatalf("unexpected code %q", created.Data.UserCode)
	}

	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/get-user/"+created.Data.UserCode, nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("get-user status %d: %s", resp.Code, resp.Body.String())
	}

	var fetched struct {
		Data struct {
			Addresses []map[string]any `json:"addresses"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&fetched); err != nil {
		t.Fatal(err)
	}
	if len(fetched.Data.Addresses) != 1 {
		t.Fatalf("expected one address, got %d", len(fetched.Data.Addresses))
	}
	if fetched.Data.Addresses[0]["street"] != "12 MG Road" {
		t.Fatalf("unexpected address %v", fetched.Data.Addresses[0])
	}
}

func TestSaveCartThenNotificationFlow(t *testing.T) {
	router := newTestRouter(t)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/save-cart",
		strings.NewReader(`{"items":"[{\"name\":\"A\",\"price\":\"₹10\"}]","total":"₹1,234.50"}`)))
	if resp.Code != http.StatusCreated {
		t.Fatalf("save-cart status %d: %s", resp.Code, resp.Body.String())
	}

	var saved struct {
		Data struct {
			CartID string `json:"cart_id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&saved); err != nil {
		t.Fatal(err)
	}

	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/carts/update-status",
		strings.NewReader(`{"cart_id":"`+saved.Data.CartID+`","status":"cancelled"}`)))
	if resp.Code != http.StatusOK {
		t.Fatalf("update-status status %d: %s", resp.Code, resp.Body.String())
	}

	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/carts/notifications", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("notifications status %d", resp.Code)
	}

	var feed struct {
		Data []map[string]any `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&feed); err != nil {
		t.Fatal(err)
	}
	if len(feed.Data) != 1 {
		t.Fatalf("expected one notification, got %d", len(feed.Data))
	}
	if feed.Data[0]["total"] != "1234.5" {
		t.Fatalf("unexpected total %v", feed.Data[0]["total"])
	}

	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/carts/notifications/"+saved.Data.CartID+"/viewed", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("mark viewed status %d", resp.Code)
	}

	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/carts/notifications", nil))
	if err := json.NewDecoder(resp.Body).Decode(&feed); err != nil {
		t.Fatal(err)
	}
	if len(feed.Data) != 0 {
		t.Fatalf("expected empty feed, got %d", len(feed.Data))
	}
}

func TestDeleteCartErrorCodes(t *testing.T) {
	router := newTestRouter(t)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodDelete, "/carts/not-hex", nil))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("malformed id status %d", resp.Code)
	}

	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodDelete, "/carts/65f000000000000000000000", nil))
	if resp.Code != http.StatusNotFound {
		t.Fatalf("unknown id status %d", resp.Code)
	}
}

func TestHealthLive(t *testing.T) {
	router := newTestRouter(t)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}

	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected not-ready without a store, got %d", resp.Code)
	}
}
