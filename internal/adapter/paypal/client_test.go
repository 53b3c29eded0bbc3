package paypal

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	domainErrors "github.com/polkiloo/eshop/internal/domain/errors"
	"github.com/polkiloo/eshop/internal/domain/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func testOrder() *model.Order {
	return &model.Order{
		ID:              3,
		Number:          "n-3",
		Status:          model.OrderStatusPending,
		Subtotal:        decimal.RequireFromString("44.98"),
		ShippingCost:    decimal.RequireFromString("5.00"),
		Tax:             decimal.RequireFromString("4.50"),
		GrandTotal:      decimal.RequireFromString("54.48"),
		ShippingAddress: "12 Main St",
		Items: []model.OrderItem{
			{ProductName: "widget", Quantity: 2, UnitPrice: decimal.RequireFromString("19.99"), LineTotal: decimal.RequireFromString("39.98")},
			{ProductName: "gadget", Quantity: 1, UnitPrice: decimal.RequireFromString("5.00"), LineTotal: decimal.RequireFromString("5.00")},
		},
	}
}

func tokenHandler(t *testing.T, tokenCalls *int32) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if tokenCalls != nil {
			atomic.AddInt32(tokenCalls, 1)
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != "client" || pass != "secret" {
			t.Errorf("unexpected basic auth %q %q", user, pass)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "tok-1", "expires_in": 3600})
	}
}

func TestNewHTTPClientRejectsRelativeURL(t *testing.T) {
	if _, err := NewHTTPClient("not-a-url", "id", "secret", testLogger()); err == nil {
		t.Fatal("expected error for relative url")
	}
}

func TestCreateOrderSuccess(t *testing.T) {
	var captured createOrderRequest
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth2/token", tokenHandler(t, nil))
	mux.HandleFunc("/v2/checkout/orders", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok-1" {
			t.Errorf("unexpected authorization header %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "PAY-9",
			"status": "CREATED",
			"links": []map[string]string{
				{"href": "https://paypal.test/self", "rel": "self"},
				{"href": "https://paypal.test/approve", "rel": "approve"},
			},
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client, err := NewHTTPClient(srv.URL, "client", "secret", testLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	session, err := client.CreateOrder(context.Background(), testOrder(), "Jo Doe")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session.ID != "PAY-9" {
		t.Fatalf("unexpected session id %s", session.ID)
	}
	if session.ApprovalURL != "https://paypal.test/approve" {
		t.Fatalf("unexpected approval url %s", session.ApprovalURL)
	}

	if captured.Intent != "CAPTURE" {
		t.Fatalf("unexpected intent %s", captured.Intent)
	}
	unit := captured.PurchaseUnits[0]
	if unit.Amount.Value != "54.48" {
		t.Fatalf("unexpected amount %s", unit.Amount.Value)
	}
	if unit.Amount.Breakdown.ItemTotal.Value != "44.98" || unit.Amount.Breakdown.TaxTotal.Value != "4.50" {
		t.Fatalf("unexpected breakdown %+v", unit.Amount.Breakdown)
	}
	if len(unit.Items) != 2 || unit.Items[0].Quantity != "2" {
		t.Fatalf("unexpected items %+v", unit.Items)
	}
	if unit.Shipping.Name.FullName != "Jo Doe" {
		t.Fatalf("unexpected shipping name %+v", unit.Shipping.Name)
	}
}

func TestCreateOrderSubmitsBreakdownSumOnMismatch(t *testing.T) {
	var captured createOrderRequest
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth2/token", tokenHandler(t, nil))
	mux.HandleFunc("/v2/checkout/orders", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&captured)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":    "PAY-9",
			"links": []map[string]string{{"href": "https://paypal.test/approve", "rel": "approve"}},
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client, _ := NewHTTPClient(srv.URL, "client", "secret", testLogger())
	order := testOrder()
	order.GrandTotal = decimal.RequireFromString("99.99")

	if _, err := client.CreateOrder(context.Background(), order, "Jo Doe"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if captured.PurchaseUnits[0].Amount.Value != "54.48" {
		t.Fatalf("expected breakdown sum submitted, got %s", captured.PurchaseUnits[0].Amount.Value)
	}
}

func TestCreateOrderMissingApprovalURL(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth2/token", tokenHandler(t, nil))
	mux.HandleFunc("/v2/checkout/orders", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "PAY-9", "links": []map[string]string{}})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client, _ := NewHTTPClient(srv.URL, "client", "secret", testLogger())
	_, err := client.CreateOrder(context.Background(), testOrder(), "Jo Doe")
	var paymentErr *domainErrors.PaymentError
	if !errors.As(err, &paymentErr) {
		t.Fatalf("expected payment error, got %v", err)
	}
}

func TestCreateOrderRemoteFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth2/token", tokenHandler(t, nil))
	mux.HandleFunc("/v2/checkout/orders", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"name":"UNPROCESSABLE_ENTITY"}`, http.StatusUnprocessableEntity)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client, _ := NewHTTPClient(srv.URL, "client", "secret", testLogger())
	_, err := client.CreateOrder(context.Background(), testOrder(), "Jo Doe")
	var paymentErr *domainErrors.PaymentError
	if !errors.As(err, &paymentErr) {
		t.Fatalf("expected payment error, got %v", err)
	}
	if paymentErr.Op != "create" {
		t.Fatalf("unexpected op %s", paymentErr.Op)
	}
}

func TestCaptureSuccess(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth2/token", tokenHandler(t, nil))
	mux.HandleFunc("/v2/checkout/orders/PAY-9/capture", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method %s", r.Method)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "PAY-9", "status": "COMPLETED"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client, _ := NewHTTPClient(srv.URL, "client", "secret", testLogger())
	status, err := client.Capture(context.Background(), "PAY-9")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != model.PaymentStatusCompleted {
		t.Fatalf("unexpected status %s", status)
	}
}

func TestCaptureFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth2/token", tokenHandler(t, nil))
	mux.HandleFunc("/v2/checkout/orders/PAY-9/capture", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"name":"INSTRUMENT_DECLINED"}`, http.StatusBadGateway)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client, _ := NewHTTPClient(srv.URL, "client", "secret", testLogger())
	_, err := client.Capture(context.Background(), "PAY-9")
	var paymentErr *domainErrors.PaymentError
	if !errors.As(err, &paymentErr) {
		t.Fatalf("expected payment error, got %v", err)
	}
	if paymentErr.Op != "capture" {
		t.Fatalf("unexpected op %s", paymentErr.Op)
	}
}

func TestGetStatus(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth2/token", tokenHandler(t, nil))
	mux.HandleFunc("/v2/checkout/orders/PAY-9", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("unexpected method %s", r.Method)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "PAY-9", "status": "APPROVED"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client, _ := NewHTTPClient(srv.URL, "client", "secret", testLogger())
	status, err := client.GetStatus(context.Background(), "PAY-9")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != model.PaymentStatusApproved {
		t.Fatalf("unexpected status %s", status)
	}
}

func TestSessionIDEscapedOnceInRequestPath(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/oauth2/token" {
			_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "tok-1", "expires_in": 3600})
			return
		}
		gotPath = r.URL.EscapedPath()
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "PAY/9", "status": "APPROVED"})
	}))
	defer srv.Close()

	client, _ := NewHTTPClient(srv.URL, "client", "secret", testLogger())
	if _, err := client.GetStatus(context.Background(), "PAY/9"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotPath != "/v2/checkout/orders/PAY%2F9" {
		t.Fatalf("unexpected request path %q", gotPath)
	}
}

func TestTokenCachedAcrossRequests(t *testing.T) {
	var tokenCalls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth2/token", tokenHandler(t, &tokenCalls))
	mux.HandleFunc("/v2/checkout/orders/PAY-9", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "PAY-9", "status": "CREATED"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client, _ := NewHTTPClient(srv.URL, "client", "secret", testLogger())
	for i := 0; i < 3; i++ {
		if _, err := client.GetStatus(context.Background(), "PAY-9"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if got := atomic.LoadInt32(&tokenCalls); got != 1 {
		t.Fatalf("expected single token request, got %d", got)
	}
}

func TestTokenRefreshedNearExpiry(t *testing.T) {
	var tokenCalls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&tokenCalls, 1)
		_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "tok-1", "expires_in": 30})
	})
	mux.HandleFunc("/v2/checkout/orders/PAY-9", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "PAY-9", "status": "CREATED"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client, _ := NewHTTPClient(srv.URL, "client", "secret", testLogger())
	// 30s lifetime is inside the one-minute refresh window, so every request
	// fetches a fresh token.
	for i := 0; i < 2; i++ {
		if _, err := client.GetStatus(context.Background(), "PAY-9"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if got := atomic.LoadInt32(&tokenCalls); got != 2 {
		t.Fatalf("expected token refresh per request, got %d", got)
	}
}

func TestTokenFailurePropagates(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid_client"}`, http.StatusUnauthorized)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client, _ := NewHTTPClient(srv.URL, "client", "secret", testLogger())
	if _, err := client.GetStatus(context.Background(), "PAY-9"); err == nil {
		t.Fatal("expected token failure to propagate")
	}
}

func TestRequestContextCancellation(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth2/token", tokenHandler(t, nil))
	mux.HandleFunc("/v2/checkout/orders/PAY-9", func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "PAY-9", "status": "CREATED"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client, _ := NewHTTPClient(srv.URL, "client", "secret", testLogger())
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := client.GetStatus(ctx, "PAY-9"); err == nil {
		t.Fatal("expected context deadline error")
	}
}
