package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/HuuNghia-2123110281/storefront-checkout/pkg/enums"
	pkgerrors "github.com/HuuNghia-2123110281/storefront-checkout/pkg/errors"
	"github.com/HuuNghia-2123110281/storefront-checkout/pkg/metrics"
	"github.com/HuuNghia-2123110281/storefront-checkout/pkg/types"
)

const (
	defaultCallTimeout       = 10 * time.Second
	errorBodyReadLimit int64 = 4096

	idempotencyKeyHeader = "Idempotency-Key"
)

// Client implements Gateway over the backend's REST API.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	callTimeout time.Duration
	metrics     *metrics.CheckoutMetrics
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithCallTimeout bounds each round trip.
func WithCallTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.callTimeout = timeout
		}
	}
}

// WithMetrics records round-trip durations on the provided collectors.
func WithMetrics(m *metrics.CheckoutMetrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// NewClient builds the commerce backend client.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, fmt.Errorf("commerce backend base url is required")
	}

	client := &Client{
		baseURL:     trimmed,
		callTimeout: defaultCallTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: client.callTimeout}
	}
	return client, nil
}

// cartItemWire mirrors GET /cart-items entries. The backend reports both a
// line price and the product's own price; the line price wins when set.
type cartItemWire struct {
	ID       int64           `json:"id"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Product  struct {
		ID    int64           `json:"id"`
		Price decimal.Decimal `json:"price"`
	} `json:"product"`
}

// GetCart reads the remote cart and re-derives the total from the lines.
// The server-reported total is never used.
func (c *Client) GetCart(ctx context.Context) (*types.CartSnapshot, error) {
	var items []cartItemWire
	if err := c.do(ctx, http.MethodGet, "/cart-items", nil, &items, "get_cart", ""); err != nil {
		return nil, err
	}

	snapshot := &types.CartSnapshot{Lines: make([]types.CartLine, 0, len(items))}
	for _, item := range items {
		unitPrice := item.Price
		if unitPrice.IsZero() {
			unitPrice = item.Product.Price
		}
		snapshot.Lines = append(snapshot.Lines, types.CartLine{
			LineID:    item.ID,
			ProductID: item.Product.ID,
			UnitPrice: unitPrice,
			Quantity:  item.Quantity,
		})
	}
	snapshot.TotalPrice = snapshot.DeriveTotal()
	return snapshot, nil
}

// AddCartLine requests a cart add. The backend does not guarantee this is
// idempotent; do not retry on failure, re-read instead.
func (c *Client) AddCartLine(ctx context.Context, input AddLineInput) (*types.Ack, error) {
	if input.ProductID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if input.Quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	var ack types.Ack
	if err := c.do(ctx, http.MethodPost, "/cart/add", input, &ack, "add_cart_line", ""); err != nil {
		return nil, err
	}
	return &ack, nil
}

// UpdateCartLine changes the quantity of an existing line. Not safely
// retryable, same as AddCartLine.
func (c *Client) UpdateCartLine(ctx context.Context, lineID int64, quantity int) (*types.Ack, error) {
	if quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	body := map[string]int{"quantity": quantity}
	var ack types.Ack
	path := fmt.Sprintf("/cart/update/%d", lineID)
	if err := c.do(ctx, http.MethodPut, path, body, &ack, "update_cart_line", ""); err != nil {
		return nil, err
	}
	return &ack, nil
}

// RemoveCartLine deletes a single line.
func (c *Client) RemoveCartLine(ctx context.Context, lineID int64) (*types.Ack, error) {
	var ack types.Ack
	path := fmt.Sprintf("/cart/remove/%d", lineID)
	if err := c.do(ctx, http.MethodDelete, path, nil, &ack, "remove_cart_line", ""); err != nil {
		return nil, err
	}
	return &ack, nil
}

// ClearCart empties the remote cart.
func (c *Client) ClearCart(ctx context.Context) (*types.Ack, error) {
	var ack types.Ack
	if err := c.do(ctx, http.MethodDelete, "/cart/clear", nil, &ack, "clear_cart", ""); err != nil {
		return nil, err
	}
	return &ack, nil
}

type createOrderWire struct {
	AddressID     int64           `json:"addressId"`
	PaymentMethod string          `json:"paymentMethod"`
	TotalPrice    decimal.Decimal `json:"totalPrice"`
	Items         []orderItemWire `json:"items"`
}

type orderItemWire struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

// CreateOrder submits the draft exactly once. The idempotency key, when
// present, rides the Idempotency-Key header so a backend that understands
// it can deduplicate; the client itself never retries this call.
func (c *Client) CreateOrder(ctx context.Context, draft types.OrderDraft, idempotencyKey string) (*types.Order, error) {
	wire := createOrderWire{
		AddressID:     draft.AddressID,
		PaymentMethod: draft.PaymentMethod.String(),
		TotalPrice:    draft.TotalPrice,
		Items:         make([]orderItemWire, 0, len(draft.Lines)),
	}
	for _, line := range draft.Lines {
		wire.Items = append(wire.Items, orderItemWire{ProductID: line.ProductID, Quantity: line.Quantity})
	}

	var order orderWire
	if err := c.do(ctx, http.MethodPost, "/orders", wire, &order, "create_order", idempotencyKey); err != nil {
		return nil, err
	}
	return order.toOrder()
}

// GetOrder fetches order detail, used for status refresh and as the
// polling fallback when payment verification is unreachable.
func (c *Client) GetOrder(ctx context.Context, orderID int64) (*types.Order, error) {
	var order orderWire
	path := fmt.Sprintf("/orders/%d", orderID)
	if err := c.do(ctx, http.MethodGet, path, nil, &order, "get_order", ""); err != nil {
		return nil, err
	}
	return order.toOrder()
}

// CreatePaymentQR opens a payment for the order and returns the QR payload
// plus the order code used by verification.
func (c *Client) CreatePaymentQR(ctx context.Context, orderID int64, amount decimal.Decimal) (*types.PaymentIntent, error) {
	body := map[string]any{"orderId": orderID, "amount": amount}
	var wire struct {
		QRCode    string `json:"qrCode"`
		OrderCode int64  `json:"orderCode"`
	}
	if err := c.do(ctx, http.MethodPost, "/payment/create", body, &wire, "create_payment_qr", ""); err != nil {
		return nil, err
	}
	if wire.QRCode == "" {
		return nil, pkgerrors.New(pkgerrors.CodeTransport, "payment create returned no qr payload")
	}
	return &types.PaymentIntent{OrderID: orderID, OrderCode: wire.OrderCode, QRPayload: wire.QRCode}, nil
}

// VerifyPayment asks whether the order code has settled.
func (c *Client) VerifyPayment(ctx context.Context, orderCode int64) (*types.PaymentProbe, error) {
	var wire struct {
		IsPaid bool   `json:"isPaid"`
		Status string `json:"status"`
	}
	path := fmt.Sprintf("/payment/verify/%d", orderCode)
	if err := c.do(ctx, http.MethodGet, path, nil, &wire, "verify_payment", ""); err != nil {
		return nil, err
	}
	probe := &types.PaymentProbe{IsPaid: wire.IsPaid}
	if status, err := enums.ParseOrderStatus(wire.Status); err == nil {
		probe.Status = status
	} else if wire.IsPaid {
		probe.Status = enums.OrderStatusPaid
	} else {
		probe.Status = enums.OrderStatusPending
	}
	return probe, nil
}

// ConfirmPayment is the manual-confirmation rail variant used by methods
// that settle without QR verification.
func (c *Client) ConfirmPayment(ctx context.Context, orderID int64) (*types.Order, error) {
	var order orderWire
	path := fmt.Sprintf("/payment/confirm/%d", orderID)
	if err := c.do(ctx, http.MethodPut, path, nil, &order, "confirm_payment", ""); err != nil {
		return nil, err
	}
	return order.toOrder()
}

type orderWire struct {
	ID            int64           `json:"id"`
	OrderCode     int64           `json:"orderCode"`
	Status        string          `json:"status"`
	TotalPrice    decimal.Decimal `json:"totalPrice"`
	PaymentMethod string          `json:"paymentMethod"`
	CreatedAt     time.Time       `json:"createdAt"`
}

func (w orderWire) toOrder() (*types.Order, error) {
	status, err := enums.ParseOrderStatus(w.Status)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeTransport, err, "decode order status")
	}
	order := &types.Order{
		ID:         w.ID,
		OrderCode:  w.OrderCode,
		Status:     status,
		TotalPrice: w.TotalPrice,
		CreatedAt:  w.CreatedAt,
	}
	if method, err := enums.ParsePaymentMethod(w.PaymentMethod); err == nil {
		order.PaymentMethod = method
	}
	return order, nil
}

// Ping checks that the commerce backend answers at all. Any HTTP status
// counts as reachable; only transport failures fail the probe.
func (c *Client) Ping(ctx context.Context) error {
	callCtx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodHead, c.baseURL, nil)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build probe request")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeTransport, err, "commerce backend unreachable")
	}
	return resp.Body.Close()
}

// errorResponse is the backend's error body shape.
type errorResponse struct {
	Message string `json:"message"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out any, call, idempotencyKey string) error {
	if c == nil {
		return pkgerrors.New(pkgerrors.CodeTransport, "commerce gateway not configured")
	}

	callCtx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal request body")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(callCtx, method, c.baseURL+path, reader)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")
	if token := TokenFromContext(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if idempotencyKey != "" {
		req.Header.Set(idempotencyKeyHeader, idempotencyKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(call, "transport_error", start)
		return pkgerrors.Wrap(pkgerrors.CodeTransport, err, fmt.Sprintf("execute %s", call))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		c.observe(call, fmt.Sprintf("http_%d", resp.StatusCode), start)
		return c.statusError(resp, call)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			c.observe(call, "decode_error", start)
			return pkgerrors.Wrap(pkgerrors.CodeTransport, err, fmt.Sprintf("decode %s response", call))
		}
	}
	c.observe(call, "ok", start)
	return nil
}

// statusError maps backend failures onto the core's taxonomy: 5xx is
// transient transport trouble, 4xx is a rejection surfaced verbatim.
func (c *Client) statusError(resp *http.Response, call string) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))
	message := strings.TrimSpace(string(raw))
	var decoded errorResponse
	if err := json.Unmarshal(raw, &decoded); err == nil && decoded.Message != "" {
		message = decoded.Message
	}
	if message == "" {
		message = fmt.Sprintf("%s failed with status %d", call, resp.StatusCode)
	}

	switch {
	case resp.StatusCode >= 500:
		return pkgerrors.New(pkgerrors.CodeTransport, message).
			WithDetails(map[string]any{"call": call, "status": resp.StatusCode})
	case resp.StatusCode == http.StatusUnauthorized:
		return pkgerrors.New(pkgerrors.CodeUnauthorized, message)
	case resp.StatusCode == http.StatusNotFound:
		return pkgerrors.New(pkgerrors.CodeNotFound, message)
	case resp.StatusCode == http.StatusBadRequest:
		return pkgerrors.New(pkgerrors.CodeValidation, message)
	default:
		return pkgerrors.New(pkgerrors.CodeRejected, message).
			WithDetails(map[string]any{"call": call, "status": resp.StatusCode})
	}
}

func (c *Client) observe(call, outcome string, start time.Time) {
	c.metrics.ObserveGatewayCall(call, outcome, time.Since(start))
}
