package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/pisakart/pisakart-backend/internal/orders"
)

type testOrdersService struct {
	createFn   func(ctx context.Context, req orders.CreateRequest) (orders.CreateResult, error)
	listFn     func(ctx context.Context, limit int64) ([]bson.M, error)
	myOrdersFn func(ctx context.Context, code string) ([]bson.M, error)
}

func (s *testOrdersService) Create(ctx context.Context, req orders.CreateRequest) (orders.CreateResult, error) {
	if s.createFn != nil {
		return s.createFn(ctx, req)
	}
	return orders.CreateResult{}, nil
}

func (s *testOrdersService) List(ctx context.Context, limit int64) ([]bson.M, error) {
	if s.listFn != nil {
		return s.listFn(ctx, limit)
	}
	return nil, nil
}

func (s *testOrdersService) MyOrders(ctx context.Context, code string) ([]bson.M, error) {
	if s.myOrdersFn != nil {
		return s.myOrdersFn(ctx, code)
	}
	return nil, nil
}

func TestCreateOrderReturnsRef(t *testing.T) {
	svc := &testOrdersService{
		createFn: func(ctx context.Context, req orders.CreateRequest) (orders.CreateResult, error) {
			if req.CartID != "65f000000000000000000000" {
				t.Fatalf("unexpected cart id %q", req.CartID)
			}
			return orders.CreateResult{ID: "65f000000000000000000001", OrderRefID: "ref-1", UserCode: "123456"}, nil
		},
	}

	body := `{"user_code":"123456","name":"Asha","phonenumber":"9876543210","street":"12 MG Road","pincode":"411038","cart_id":"65f000000000000000000000"}`
	req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(body))
	resp := httptest.NewRecorder()
	CreateOrder(svc, testLogger())(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	var envelope struct {
		Data orders.CreateResult `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.OrderRefID != "ref-1" {
		t.Fatalf("unexpected ref %q", envelope.Data.OrderRefID)
	}
}

func TestCreateOrderValidatesAddress(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(`{"name":"Asha"}`))
	resp := httptest.NewRecorder()
	CreateOrder(&testOrdersService{}, testLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status %d", resp.Code)
	}
}

func TestListOrdersPassesLimit(t *testing.T) {
	var gotLimit int64 = -1
	svc := &testOrdersService{
		listFn: func(ctx context.Context, limit int64) ([]bson.M, error) {
			gotLimit = limit
			return []bson.M{{"street": "-"}}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/orders?limit=5", nil)
	resp := httptest.NewRecorder()
	ListOrders(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	if gotLimit != 5 {
		t.Fatalf("unexpected limit %d", gotLimit)
	}
}

func TestMyOrdersUsesPathCode(t *testing.T) {
	svc := &testOrdersService{
		myOrdersFn: func(ctx context.Context, code string) ([]bson.M, error) {
			if code != "123456" {
				t.Fatalf("unexpected code %q", code)
			}
			return []bson.M{{"order_ref_id": "ref-1"}}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/my-orders/123456", nil)
	req = withURLParam(req, "code", "123456")
	resp := httptest.NewRecorder()
	MyOrders(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
}
