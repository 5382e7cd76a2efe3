package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/pisakart/pisakart-backend/internal/payments"
	pkgerrors "github.com/pisakart/pisakart-backend/pkg/errors"
	"github.com/pisakart/pisakart-backend/pkg/instamojo"
)

type testPaymentsService struct {
	recordFn        func(ctx context.Context, method string) (payments.RecordResult, error)
	listFn          func(ctx context.Context, limit int64) ([]bson.M, error)
	deleteFn        func(ctx context.Context, id string) error
	createPaymentFn func(ctx context.Context, req instamojo.PaymentRequest) (string, error)
}

func (s *testPaymentsService) Record(ctx context.Context, method string) (payments.RecordResult, error) {
	if s.recordFn != nil {
		return s.recordFn(ctx, method)
	}
	return payments.RecordResult{}, nil
}

func (s *testPaymentsService) List(ctx context.Context, limit int64) ([]bson.M, error) {
	if s.listFn != nil {
		return s.listFn(ctx, limit)
	}
	return nil, nil
}

func (s *testPaymentsService) Delete(ctx context.Context, id string) error {
	if s.deleteFn != nil {
		return s.deleteFn(ctx, id)
	}
	return nil
}

func (s *testPaymentsService) CreatePayment(ctx context.Context, req instamojo.PaymentRequest) (string, error) {
	if s.createPaymentFn != nil {
		return s.createPaymentFn(ctx, req)
	}
	return "", nil
}

func TestRecordPaymentDelegates(t *testing.T) {
	svc := &testPaymentsService{
		recordFn: func(ctx context.Context, method string) (payments.RecordResult, error) {
			if method != "cod" {
				t.Fatalf("unexpected method %q", method)
			}
			return payments.RecordResult{ID: "65f000000000000000000000", Method: method}, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/payments", strings.NewReader(`{"payment_method":"cod"}`))
	resp := httptest.NewRecorder()
	RecordPayment(svc, testLogger())(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("unexpected status %d", resp.Code)
	}
}

func TestRecordPaymentRequiresMethod(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/payments", strings.NewReader(`{}`))
	resp := httptest.NewRecorder()
	RecordPayment(&testPaymentsService{}, testLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status %d", resp.Code)
	}
}

func TestDeletePaymentFallsBackToQueryID(t *testing.T) {
	var gotID string
	svc := &testPaymentsService{
		deleteFn: func(ctx context.Context, id string) error {
			gotID = id
			return nil
		},
	}

	req := httptest.NewRequest(http.MethodDelete, "/payments?id=65f000000000000000000000", nil)
	resp := httptest.NewRecorder()
	DeletePayment(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	if gotID != "65f000000000000000000000" {
		t.Fatalf("unexpected id %q", gotID)
	}
}

func TestCreatePaymentReturnsURL(t *testing.T) {
	svc := &testPaymentsService{
		createPaymentFn: func(ctx context.Context, req instamojo.PaymentRequest) (string, error) {
			if req.Amount != 249.5 {
				t.Fatalf("unexpected amount %v", req.Amount)
			}
			return "https://instamojo.test/pay/abc", nil
		},
	}

	body := `{"purpose":"Order 42","amount":249.5,"buyer_name":"Asha","email":"asha@example.com","phone":"9876543210","redirect_url":"https://shop.test/thanks"}`
	req := httptest.NewRequest(http.MethodPost, "/create-payment", strings.NewReader(body))
	resp := httptest.NewRecorder()
	CreatePayment(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	var envelope struct {
		Data map[string]string `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data["payment_url"] != "https://instamojo.test/pay/abc" {
		t.Fatalf("unexpected url %v", envelope.Data)
	}
}

func TestCreatePaymentGatewayFailure(t *testing.T) {
	svc := &testPaymentsService{
		createPaymentFn: func(ctx context.Context, req instamojo.PaymentRequest) (string, error) {
			return "", pkgerrors.New(pkgerrors.CodeDependency, "gateway rejected request")
		},
	}

	body := `{"purpose":"Order 42","amount":249.5,"buyer_name":"Asha","email":"asha@example.com","phone":"9876543210","redirect_url":"https://shop.test/thanks"}`
	req := httptest.NewRequest(http.MethodPost, "/create-payment", strings.NewReader(body))
	resp := httptest.NewRecorder()
	CreatePayment(svc, testLogger())(resp, req)

	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("unexpected status %d", resp.Code)
	}
}
