// Package checkout orchestrates order placement against the remote commerce
// backend. The backend owns carts, orders and payments; this service owns
// the sequencing: recompute the total locally, submit the order exactly
// once, then either clear the cart (cash on delivery) or hand the order to
// a payment session (online rails).
package checkout

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/HuuNghia-2123110281/storefront-checkout/internal/cartsync"
	"github.com/HuuNghia-2123110281/storefront-checkout/internal/gateway"
	"github.com/HuuNghia-2123110281/storefront-checkout/pkg/enums"
	pkgerrors "github.com/HuuNghia-2123110281/storefront-checkout/pkg/errors"
	"github.com/HuuNghia-2123110281/storefront-checkout/pkg/logger"
	"github.com/HuuNghia-2123110281/storefront-checkout/pkg/types"
)

// PaymentRef points the caller at an opened payment session.
type PaymentRef struct {
	SessionID string          `json:"sessionId"`
	OrderCode int64           `json:"orderCode"`
	QRPayload string          `json:"qrCode"`
	Deadline  time.Time       `json:"deadline"`
	Amount    decimal.Decimal `json:"amount"`
}

// PaymentStarter opens a payment session for a freshly created order.
// Implemented by the payment manager; the indirection keeps this package
// free of session lifecycle concerns.
type PaymentStarter interface {
	Start(ctx context.Context, order *types.Order, intent *types.PaymentIntent) (*PaymentRef, error)
}

// PaymentStarterFunc adapts a function to the PaymentStarter interface.
type PaymentStarterFunc func(ctx context.Context, order *types.Order, intent *types.PaymentIntent) (*PaymentRef, error)

func (f PaymentStarterFunc) Start(ctx context.Context, order *types.Order, intent *types.PaymentIntent) (*PaymentRef, error) {
	return f(ctx, order, intent)
}

type PlaceOrderInput struct {
	AddressID     int64
	PaymentMethod enums.PaymentMethod
}

// PlaceOrderResult is the synchronous half of order placement. Payment is
// nil for cash on delivery; CartVerified reports whether the post-order
// cart clear was confirmed on the read path (soft, COD only).
type PlaceOrderResult struct {
	Order        *types.Order
	CartVerified bool
	Payment      *PaymentRef
}

// CartMutationResult pairs a cart mutation with its read-path confirmation.
// Verified=false means the write was acknowledged but never observed within
// the attempt budget, not that it failed.
type CartMutationResult struct {
	Verified bool
	Attempts int
	Snapshot *types.CartSnapshot
}

type ServiceParams struct {
	Gateway     gateway.Gateway
	Verifier    *cartsync.Verifier
	Payments    PaymentStarter
	ShippingFee decimal.Decimal
	Logger      *logger.Logger

	// NewIdempotencyKey overrides key generation in tests.
	NewIdempotencyKey func() string
}

type Service struct {
	gateway     gateway.Gateway
	verifier    *cartsync.Verifier
	payments    PaymentStarter
	shippingFee decimal.Decimal
	logger      *logger.Logger
	newKey      func() string
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Gateway == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "gateway is required")
	}
	if params.Verifier == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "cart verifier is required")
	}
	if params.Payments == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payment starter is required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger is required")
	}
	newKey := params.NewIdempotencyKey
	if newKey == nil {
		newKey = uuid.NewString
	}
	return &Service{
		gateway:     params.Gateway,
		verifier:    params.Verifier,
		payments:    params.Payments,
		shippingFee: params.ShippingFee,
		logger:      params.Logger,
		newKey:      newKey,
	}, nil
}

// Cart returns the current remote cart with a locally derived total.
func (s *Service) Cart(ctx context.Context) (*types.CartSnapshot, error) {
	return s.gateway.GetCart(ctx)
}

// AddItem adds a product to the cart and confirms it shows up on the read
// path. Never resubmits the add; unverified adds surface as Verified=false.
func (s *Service) AddItem(ctx context.Context, productID int64, quantity int) (*CartMutationResult, error) {
	if _, err := s.gateway.AddCartLine(ctx, gateway.AddLineInput{ProductID: productID, Quantity: quantity}); err != nil {
		return nil, err
	}
	return s.confirm(ctx, cartsync.ExpectProduct(productID, quantity))
}

// UpdateItem changes a line's quantity and confirms the new quantity.
func (s *Service) UpdateItem(ctx context.Context, lineID int64, quantity int) (*CartMutationResult, error) {
	if _, err := s.gateway.UpdateCartLine(ctx, lineID, quantity); err != nil {
		return nil, err
	}
	return s.confirm(ctx, cartsync.ExpectLineQuantity(lineID, quantity))
}

// RemoveItem deletes a line and confirms it is gone.
func (s *Service) RemoveItem(ctx context.Context, lineID int64) (*CartMutationResult, error) {
	if _, err := s.gateway.RemoveCartLine(ctx, lineID); err != nil {
		return nil, err
	}
	return s.confirm(ctx, cartsync.ExpectLineAbsent(lineID))
}

// ClearCart empties the cart and confirms it reads back empty.
func (s *Service) ClearCart(ctx context.Context) (*CartMutationResult, error) {
	if _, err := s.gateway.ClearCart(ctx); err != nil {
		return nil, err
	}
	return s.confirm(ctx, cartsync.ExpectEmpty())
}

func (s *Service) confirm(ctx context.Context, expectation cartsync.Expectation) (*CartMutationResult, error) {
	outcome, err := s.verifier.Confirm(ctx, expectation)
	if err != nil {
		return nil, err
	}
	return &CartMutationResult{
		Verified: outcome.Verified,
		Attempts: outcome.Attempts,
		Snapshot: outcome.Snapshot,
	}, nil
}

// PlaceOrder runs the full placement sequence. The order total is always
// recomputed here from a fresh snapshot; client-supplied totals and the
// backend's cart total are both ignored. CreateOrder is called exactly
// once: a rejection aborts with the backend's reason, and transport
// failures are not retried because the order may have been created.
func (s *Service) PlaceOrder(ctx context.Context, input PlaceOrderInput) (*PlaceOrderResult, error) {
	if input.AddressID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery address is required")
	}
	if !input.PaymentMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown payment method").
			WithDetails(map[string]any{"paymentMethod": input.PaymentMethod.String()})
	}

	snapshot, err := s.gateway.GetCart(ctx)
	if err != nil {
		return nil, err
	}
	if snapshot.IsEmpty() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	total := snapshot.DeriveTotal().Add(s.shippingFee)
	draft := types.OrderDraft{
		AddressID:     input.AddressID,
		PaymentMethod: input.PaymentMethod,
		TotalPrice:    total,
		Lines:         snapshot.Lines,
	}

	order, err := s.gateway.CreateOrder(ctx, draft, s.newKey())
	if err != nil {
		return nil, err
	}
	ctx = s.logger.WithOrderID(ctx, order.ID)
	s.logger.Info(ctx, "order created")

	if !input.PaymentMethod.IsOnline() {
		return s.finishCashOnDelivery(ctx, order)
	}
	return s.openPayment(ctx, order, total)
}

// finishCashOnDelivery clears the cart for an order that needs no payment
// flow. The order already exists, so a failed clear degrades to an
// unverified cart rather than an error.
func (s *Service) finishCashOnDelivery(ctx context.Context, order *types.Order) (*PlaceOrderResult, error) {
	result := &PlaceOrderResult{Order: order}
	if _, err := s.gateway.ClearCart(ctx); err != nil {
		s.logger.Error(ctx, "cart clear failed after order creation", err)
		return result, nil
	}
	outcome, err := s.verifier.Confirm(ctx, cartsync.ExpectEmpty())
	if err != nil {
		return nil, err
	}
	result.CartVerified = outcome.Verified
	return result, nil
}

// openPayment opens the QR payment and starts the session that supervises
// it. The cart is left intact: it is only cleared when payment succeeds.
func (s *Service) openPayment(ctx context.Context, order *types.Order, amount decimal.Decimal) (*PlaceOrderResult, error) {
	intent, err := s.gateway.CreatePaymentQR(ctx, order.ID, amount)
	if err != nil {
		// The order exists but has no open payment; the caller can retry
		// payment against the existing order.
		s.logger.Error(ctx, "order created but payment could not be opened", err)
		return nil, err
	}
	ref, err := s.payments.Start(ctx, order, intent)
	if err != nil {
		return nil, err
	}
	ref.Amount = amount
	return &PlaceOrderResult{Order: order, Payment: ref}, nil
}
