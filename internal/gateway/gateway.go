// Package gateway speaks to the remote commerce backend. It owns no state:
// every call is one request/response round trip, bounded by the configured
// call timeout, with the backend's failures mapped onto the transport /
// rejected error split the rest of the core keys off.
package gateway

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/HuuNghia-2123110281/storefront-checkout/pkg/types"
)

// CartReader is the read-only slice of the gateway the consistency
// verifier depends on.
type CartReader interface {
	GetCart(ctx context.Context) (*types.CartSnapshot, error)
}

// Gateway is the commerce backend contract. All calls are at-most-once
// from the caller's perspective except the cart mutations, which the
// backend may apply twice if retried; callers must re-read instead of
// resubmitting (see internal/cartsync).
type Gateway interface {
	CartReader

	AddCartLine(ctx context.Context, input AddLineInput) (*types.Ack, error)
	UpdateCartLine(ctx context.Context, lineID int64, quantity int) (*types.Ack, error)
	RemoveCartLine(ctx context.Context, lineID int64) (*types.Ack, error)
	ClearCart(ctx context.Context) (*types.Ack, error)

	CreateOrder(ctx context.Context, draft types.OrderDraft, idempotencyKey string) (*types.Order, error)
	GetOrder(ctx context.Context, orderID int64) (*types.Order, error)

	CreatePaymentQR(ctx context.Context, orderID int64, amount decimal.Decimal) (*types.PaymentIntent, error)
	VerifyPayment(ctx context.Context, orderCode int64) (*types.PaymentProbe, error)
	ConfirmPayment(ctx context.Context, orderID int64) (*types.Order, error)
}

// AddLineInput describes a cart add request.
type AddLineInput struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

type tokenKey struct{}

// WithToken attaches the caller's bearer token to the context. The gateway
// forwards it on every request and never stores it.
func WithToken(ctx context.Context, token string) context.Context {
	if token == "" {
		return ctx
	}
	return context.WithValue(ctx, tokenKey{}, token)
}

// TokenFromContext returns the bearer token attached to the context, if any.
func TokenFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if token, ok := ctx.Value(tokenKey{}).(string); ok {
		return token
	}
	return ""
}
