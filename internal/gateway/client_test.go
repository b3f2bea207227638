package gateway

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/HuuNghia-2123110281/storefront-checkout/pkg/enums"
	pkgerrors "github.com/HuuNghia-2123110281/storefront-checkout/pkg/errors"
	"github.com/HuuNghia-2123110281/storefront-checkout/pkg/types"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func newTestClient(t *testing.T, rt roundTripFunc) *Client {
	t.Helper()
	client, err := NewClient("http://commerce.test/api", WithHTTPClient(&http.Client{Transport: rt}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{},
	}
}

func TestGetCartDerivesTotalLocally(t *testing.T) {
	// server-side totals are untrusted; the snapshot total must come from
	// the lines even if the backend sums differently.
	respBody := `[
		{"id":11,"quantity":2,"price":100000,"product":{"id":7,"price":99999}},
		{"id":12,"quantity":1,"price":0,"product":{"id":9,"price":45000}}
	]`
	var capturedURL string
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		capturedURL = req.URL.String()
		return jsonResponse(http.StatusOK, respBody), nil
	})

	snap, err := client.GetCart(context.Background())
	if err != nil {
		t.Fatalf("get cart: %v", err)
	}
	if capturedURL != "http://commerce.test/api/cart-items" {
		t.Fatalf("unexpected URL %q", capturedURL)
	}
	if len(snap.Lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(snap.Lines))
	}
	if snap.Lines[0].ProductID != 7 || !snap.Lines[0].UnitPrice.Equal(decimal.NewFromInt(100000)) {
		t.Fatalf("unexpected first line %+v", snap.Lines[0])
	}
	// zero line price falls back to the product price
	if !snap.Lines[1].UnitPrice.Equal(decimal.NewFromInt(45000)) {
		t.Fatalf("unexpected fallback price %s", snap.Lines[1].UnitPrice)
	}
	if !snap.TotalPrice.Equal(decimal.NewFromInt(245000)) {
		t.Fatalf("expected derived total 245000, got %s", snap.TotalPrice)
	}
}

func TestCreateOrderSendsDraftAndIdempotencyKey(t *testing.T) {
	var captured struct {
		method  string
		url     string
		headers http.Header
		payload map[string]any
	}
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		captured.method = req.Method
		captured.url = req.URL.String()
		captured.headers = req.Header.Clone()
		body, _ := io.ReadAll(req.Body)
		if err := json.Unmarshal(body, &captured.payload); err != nil {
			t.Fatalf("unmarshal request body: %v", err)
		}
		return jsonResponse(http.StatusOK, `{"id":88,"totalPrice":230000,"status":"PENDING","paymentMethod":"COD","createdAt":"2026-01-02T10:00:00Z"}`), nil
	})

	draft := types.OrderDraft{
		AddressID:     5,
		PaymentMethod: enums.PaymentMethodCOD,
		TotalPrice:    decimal.NewFromInt(230000),
		Lines: []types.CartLine{
			{LineID: 11, ProductID: 7, UnitPrice: decimal.NewFromInt(100000), Quantity: 2},
		},
	}
	order, err := client.CreateOrder(gatewayCtx(), draft, "idem-123")
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	if captured.method != http.MethodPost || captured.url != "http://commerce.test/api/orders" {
		t.Fatalf("unexpected request %s %s", captured.method, captured.url)
	}
	if captured.headers.Get("Idempotency-Key") != "idem-123" {
		t.Fatal("idempotency key header missing")
	}
	if captured.headers.Get("Authorization") != "Bearer user-token" {
		t.Fatalf("bearer token not forwarded, got %q", captured.headers.Get("Authorization"))
	}
	if captured.payload["addressId"].(float64) != 5 {
		t.Fatalf("unexpected addressId %v", captured.payload["addressId"])
	}
	items := captured.payload["items"].([]any)
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	if order.ID != 88 || order.Status != enums.OrderStatusPending {
		t.Fatalf("unexpected order %+v", order)
	}
}

func TestStatusErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		code    pkgerrors.Code
		message string
	}{
		{name: "stock exhausted", status: http.StatusConflict, body: `{"message":"product out of stock"}`, code: pkgerrors.CodeRejected, message: "product out of stock"},
		{name: "bad request", status: http.StatusBadRequest, body: `{"message":"quantity invalid"}`, code: pkgerrors.CodeValidation, message: "quantity invalid"},
		{name: "missing order", status: http.StatusNotFound, body: `{"message":"order not found"}`, code: pkgerrors.CodeNotFound, message: "order not found"},
		{name: "expired token", status: http.StatusUnauthorized, body: `{"message":"token expired"}`, code: pkgerrors.CodeUnauthorized, message: "token expired"},
		{name: "backend down", status: http.StatusBadGateway, body: `upstream unavailable`, code: pkgerrors.CodeTransport, message: "upstream unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(*http.Request) (*http.Response, error) {
				return jsonResponse(tt.status, tt.body), nil
			})
			_, err := client.GetCart(context.Background())
			typed := pkgerrors.As(err)
			if typed == nil {
				t.Fatalf("expected coded error, got %v", err)
			}
			if typed.Code() != tt.code {
				t.Fatalf("expected code %s, got %s", tt.code, typed.Code())
			}
			if typed.Message() != tt.message {
				t.Fatalf("expected message %q, got %q", tt.message, typed.Message())
			}
		})
	}
}

func TestNetworkFailureIsTransport(t *testing.T) {
	client := newTestClient(t, func(*http.Request) (*http.Response, error) {
		return nil, io.ErrUnexpectedEOF
	})

	_, err := client.VerifyPayment(context.Background(), 424242)
	if !pkgerrors.IsTransport(err) {
		t.Fatalf("expected transport error, got %v", err)
	}
}

func TestVerifyPaymentDecodesProbe(t *testing.T) {
	var capturedURL string
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		capturedURL = req.URL.String()
		return jsonResponse(http.StatusOK, `{"isPaid":true,"status":"PAID"}`), nil
	})

	probe, err := client.VerifyPayment(context.Background(), 424242)
	if err != nil {
		t.Fatalf("verify payment: %v", err)
	}
	if capturedURL != "http://commerce.test/api/payment/verify/424242" {
		t.Fatalf("unexpected URL %q", capturedURL)
	}
	if !probe.IsPaid || probe.Status != enums.OrderStatusPaid {
		t.Fatalf("unexpected probe %+v", probe)
	}
}

func TestCreatePaymentQRRejectsEmptyPayload(t *testing.T) {
	client := newTestClient(t, func(*http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `{"qrCode":"","orderCode":99}`), nil
	})

	_, err := client.CreatePaymentQR(context.Background(), 88, decimal.NewFromInt(230000))
	if !pkgerrors.IsTransport(err) {
		t.Fatalf("expected transport error for missing qr payload, got %v", err)
	}
}

func TestAddCartLineValidatesInput(t *testing.T) {
	client := newTestClient(t, func(*http.Request) (*http.Response, error) {
		t.Fatal("no request should be issued for invalid input")
		return nil, nil
	})

	if _, err := client.AddCartLine(context.Background(), AddLineInput{ProductID: 0, Quantity: 1}); err == nil {
		t.Fatal("expected validation error for missing product id")
	}
	if _, err := client.AddCartLine(context.Background(), AddLineInput{ProductID: 7, Quantity: 0}); err == nil {
		t.Fatal("expected validation error for zero quantity")
	}
}

func gatewayCtx() context.Context {
	return WithToken(context.Background(), "user-token")
}
