package routes

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/HuuNghia-2123110281/storefront-checkout/api/controllers"
	"github.com/HuuNghia-2123110281/storefront-checkout/internal/cartsync"
	checkoutsvc "github.com/HuuNghia-2123110281/storefront-checkout/internal/checkout"
	"github.com/HuuNghia-2123110281/storefront-checkout/internal/gateway"
	paymentsvc "github.com/HuuNghia-2123110281/storefront-checkout/internal/payment"
	"github.com/HuuNghia-2123110281/storefront-checkout/pkg/config"
	"github.com/HuuNghia-2123110281/storefront-checkout/pkg/logger"
	pkgredis "github.com/HuuNghia-2123110281/storefront-checkout/pkg/redis"
	"github.com/HuuNghia-2123110281/storefront-checkout/pkg/sched"
	"github.com/HuuNghia-2123110281/storefront-checkout/pkg/types"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error {
	return fmt.Errorf("connection refused")
}

type stubPaymentBackend struct{}

func (stubPaymentBackend) VerifyPayment(ctx context.Context, orderCode int64) (*types.PaymentProbe, error) {
	panic("unimplemented")
}

func (stubPaymentBackend) ConfirmPayment(ctx context.Context, orderCode int64) (*types.Order, error) {
	panic("unimplemented")
}

func (stubPaymentBackend) GetOrder(ctx context.Context, orderID int64) (*types.Order, error) {
	panic("unimplemented")
}

func (stubPaymentBackend) ClearCart(ctx context.Context) (*types.Ack, error) {
	panic("unimplemented")
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
	}
}

func testRegistry(t *testing.T) *paymentsvc.Registry {
	t.Helper()
	registry, err := paymentsvc.NewRegistry(paymentsvc.RegistryParams{
		Backend:   stubPaymentBackend{},
		Scheduler: sched.NewManual(time.Now()),
		Config: config.PaymentConfig{
			Window:       time.Minute,
			PollInterval: time.Second,
			ProbeTimeout: time.Second,
		},
		Logger: testLogger(),
	})
	if err != nil {
		t.Fatalf("building payment registry: %v", err)
	}
	return registry
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
}

func newTestRouter(t *testing.T, cfg *config.Config, backend, cache controllers.Pinger, promRegistry *prometheus.Registry) http.Handler {
	t.Helper()
	return NewRouter(
		cfg,
		testLogger(),
		backend,
		cache,
		nil, // idempotency store, middleware passes through without one
		nil, // checkout service, untouched by the routes under test
		testRegistry(t),
		promRegistry,
	)
}

// stubGateway backs the full-stack idempotency test: adds apply to an
// in-memory snapshot immediately, everything else is out of scope.
type stubGateway struct {
	snapshot types.CartSnapshot
	addCalls int
}

func (g *stubGateway) GetCart(context.Context) (*types.CartSnapshot, error) {
	snap := g.snapshot
	return &snap, nil
}

func (g *stubGateway) AddCartLine(_ context.Context, input gateway.AddLineInput) (*types.Ack, error) {
	g.addCalls++
	g.snapshot.Lines = append(g.snapshot.Lines, types.CartLine{
		LineID:    int64(len(g.snapshot.Lines) + 1),
		ProductID: input.ProductID,
		UnitPrice: decimal.NewFromInt(1000),
		Quantity:  input.Quantity,
	})
	return &types.Ack{Message: "added"}, nil
}

func (g *stubGateway) UpdateCartLine(context.Context, int64, int) (*types.Ack, error) {
	panic("unimplemented")
}

func (g *stubGateway) RemoveCartLine(context.Context, int64) (*types.Ack, error) {
	panic("unimplemented")
}

func (g *stubGateway) ClearCart(context.Context) (*types.Ack, error) {
	panic("unimplemented")
}

func (g *stubGateway) CreateOrder(context.Context, types.OrderDraft, string) (*types.Order, error) {
	panic("unimplemented")
}

func (g *stubGateway) GetOrder(context.Context, int64) (*types.Order, error) {
	panic("unimplemented")
}

func (g *stubGateway) CreatePaymentQR(context.Context, int64, decimal.Decimal) (*types.PaymentIntent, error) {
	panic("unimplemented")
}

func (g *stubGateway) VerifyPayment(context.Context, int64) (*types.PaymentProbe, error) {
	panic("unimplemented")
}

func (g *stubGateway) ConfirmPayment(context.Context, int64) (*types.Order, error) {
	panic("unimplemented")
}

type memoryStore struct {
	data map[string]string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: make(map[string]string)}
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	return m.data[key], nil
}

func (m *memoryStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	str, _ := value.(string)
	m.data[key] = str
	return true, nil
}

func (m *memoryStore) IdempotencyKey(scope, id string) string {
	return "idem:" + scope + ":" + id
}

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

func newCheckoutRouter(t *testing.T, backend *stubGateway, store pkgredis.IdempotencyStore) http.Handler {
	t.Helper()
	logg := testLogger()
	verifier, err := cartsync.NewVerifier(cartsync.VerifierParams{
		Cart:   backend,
		Config: config.CartSyncConfig{MaxAttempts: 3, BaseDelay: time.Millisecond},
		Logger: logg,
	})
	if err != nil {
		t.Fatalf("building verifier: %v", err)
	}
	starter := checkoutsvc.PaymentStarterFunc(func(context.Context, *types.Order, *types.PaymentIntent) (*checkoutsvc.PaymentRef, error) {
		panic("unimplemented")
	})
	service, err := checkoutsvc.NewService(checkoutsvc.ServiceParams{
		Gateway:     backend,
		Verifier:    verifier,
		Payments:    starter,
		ShippingFee: decimal.NewFromInt(30000),
		Logger:      logg,
	})
	if err != nil {
		t.Fatalf("building checkout service: %v", err)
	}
	return NewRouter(
		testConfig(),
		logg,
		stubPinger{},
		stubPinger{},
		store,
		service,
		testRegistry(t),
		nil,
	)
}

func TestHealthLiveReportsEnv(t *testing.T) {
	router := newTestRouter(t, testConfig(), stubPinger{}, stubPinger{}, nil)
	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if got := resp.Header().Get("X-Storefront-Env"); got != "test" {
		t.Fatalf("expected env header test got %q", got)
	}
}

func TestHealthReadyReportsProbeFailure(t *testing.T) {
	router := newTestRouter(t, testConfig(), failingPinger{}, stubPinger{}, nil)
	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadGateway {
		t.Fatalf("expected 502 for failing backend got %d", resp.Code)
	}
}

func TestHealthReadySucceedsWhenDependenciesUp(t *testing.T) {
	router := newTestRouter(t, testConfig(), stubPinger{}, stubPinger{}, nil)
	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestAPIGroupRejectsMissingBearer(t *testing.T) {
	router := newTestRouter(t, testConfig(), stubPinger{}, stubPinger{}, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}
}

func TestPaymentSessionLookupMiss(t *testing.T) {
	router := newTestRouter(t, testConfig(), stubPinger{}, stubPinger{}, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/payment/sessions/nope", nil)
	req.Header.Set("Authorization", "Bearer user-token")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown session got %d", resp.Code)
	}
}

func TestMetricsEndpointServesWhenRegistered(t *testing.T) {
	promRegistry := prometheus.NewRegistry()
	router := newTestRouter(t, testConfig(), stubPinger{}, stubPinger{}, promRegistry)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 from metrics handler got %d", resp.Code)
	}
}

func TestCheckoutRouteReplaysIdempotentRequest(t *testing.T) {
	backend := &stubGateway{}
	store := newMemoryStore()
	router := newCheckoutRouter(t, backend, store)

	body := `{"productId":7,"quantity":2}`
	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader(body))
		req.Header.Set("Authorization", "Bearer buyer-token")
		req.Header.Set("Idempotency-Key", "order-once")
		req.Header.Set("Content-Type", "application/json")
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		return resp
	}

	first := send()
	if first.Code != http.StatusOK {
		t.Fatalf("expected 200 on first add got %d: %s", first.Code, first.Body.String())
	}
	if backend.addCalls != 1 {
		t.Fatalf("expected one backend add got %d", backend.addCalls)
	}

	replay := send()
	if replay.Code != http.StatusOK {
		t.Fatalf("expected replayed 200 got %d", replay.Code)
	}
	if replay.Body.String() != first.Body.String() {
		t.Fatalf("expected replay to return the stored body")
	}
	if backend.addCalls != 1 {
		t.Fatalf("replay must not reach the backend, got %d adds", backend.addCalls)
	}
}

func TestCheckoutRouteRejectsMissingIdempotencyKey(t *testing.T) {
	backend := &stubGateway{}
	router := newCheckoutRouter(t, backend, newMemoryStore())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader(`{"productId":7,"quantity":2}`))
	req.Header.Set("Authorization", "Bearer buyer-token")
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without Idempotency-Key got %d", resp.Code)
	}
	if backend.addCalls != 0 {
		t.Fatalf("backend must not be reached without a key, got %d adds", backend.addCalls)
	}
}

func TestMetricsEndpointAbsentWithoutRegistry(t *testing.T) {
	router := newTestRouter(t, testConfig(), stubPinger{}, stubPinger{}, nil)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without metrics registry got %d", resp.Code)
	}
}
