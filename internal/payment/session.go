// Package payment supervises in-flight online payments. A session watches
// one order: it polls the backend's verification endpoint until the payment
// settles, the window runs out, or the caller tears it down. All three exits
// are terminal, and exactly one of them wins no matter how timer callbacks,
// manual checks and confirmations interleave.
package payment

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/HuuNghia-2123110281/storefront-checkout/pkg/enums"
	pkgerrors "github.com/HuuNghia-2123110281/storefront-checkout/pkg/errors"
	"github.com/HuuNghia-2123110281/storefront-checkout/pkg/logger"
	"github.com/HuuNghia-2123110281/storefront-checkout/pkg/metrics"
	"github.com/HuuNghia-2123110281/storefront-checkout/pkg/sched"
	"github.com/HuuNghia-2123110281/storefront-checkout/pkg/types"
)

// Backend is the slice of the commerce gateway a session needs.
type Backend interface {
	VerifyPayment(ctx context.Context, orderCode int64) (*types.PaymentProbe, error)
	ConfirmPayment(ctx context.Context, orderID int64) (*types.Order, error)
	GetOrder(ctx context.Context, orderID int64) (*types.Order, error)
	ClearCart(ctx context.Context) (*types.Ack, error)
}

// Hooks fire at most once each, after the corresponding terminal transition
// has committed. They run outside the session lock.
type Hooks struct {
	OnSucceeded func(sessionID string, order *types.Order)
	OnExpired   func(sessionID string)
	OnCancelled func(sessionID string)
}

// Status is a read-only view of a session for the API layer.
type Status struct {
	SessionID        string              `json:"sessionId"`
	OrderID          int64               `json:"orderId"`
	OrderCode        int64               `json:"orderCode"`
	Method           enums.PaymentMethod `json:"paymentMethod"`
	Phase            enums.SessionPhase  `json:"phase"`
	QRPayload        string              `json:"qrCode"`
	Deadline         time.Time           `json:"deadline"`
	RemainingSeconds int64               `json:"remainingSeconds"`
}

type sessionConfig struct {
	window       time.Duration
	pollInterval time.Duration
	probeTimeout time.Duration
}

// Session is one supervised payment. Construct through Registry.Open.
type Session struct {
	id        string
	orderID   int64
	orderCode int64
	qrPayload string
	method    enums.PaymentMethod

	backend Backend
	sch     sched.Scheduler
	cfg     sessionConfig
	logger  *logger.Logger
	metrics *metrics.CheckoutMetrics
	hooks   Hooks

	// baseCtx carries the buyer's bearer token for timer-driven calls,
	// which have no inbound request to inherit from.
	baseCtx context.Context

	mu           sync.Mutex
	phase        enums.SessionPhase
	deadline     time.Time
	pollTask     sched.Task
	deadlineTask sched.Task
	paidOrder    *types.Order
}

// start arms the poll and deadline timers. Called once, by the registry.
func (s *Session) start() {
	s.mu.Lock()
	s.deadline = s.sch.Now().Add(s.cfg.window)
	s.pollTask = s.sch.Every(s.cfg.pollInterval, s.pollTick)
	s.deadlineTask = s.sch.After(s.cfg.window, s.expire)
	s.mu.Unlock()
	s.logger.Info(s.logCtx(), "payment session started")
}

// ID returns the registry key of the session.
func (s *Session) ID() string {
	return s.id
}

// OrderID returns the order the session supervises.
func (s *Session) OrderID() int64 {
	return s.orderID
}

// Phase returns the current lifecycle phase.
func (s *Session) Phase() enums.SessionPhase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// RemainingSeconds reports how long the payment window stays open. Terminal
// sessions report zero.
func (s *Session) RemainingSeconds() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remainingLocked()
}

func (s *Session) remainingLocked() int64 {
	if s.phase != enums.SessionPhaseActive {
		return 0
	}
	remaining := s.deadline.Sub(s.sch.Now())
	if remaining < 0 {
		return 0
	}
	return int64(remaining.Seconds())
}

// Status snapshots the session for the API layer.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		SessionID:        s.id,
		OrderID:          s.orderID,
		OrderCode:        s.orderCode,
		Method:           s.method,
		Phase:            s.phase,
		QRPayload:        s.qrPayload,
		Deadline:         s.deadline,
		RemainingSeconds: s.remainingLocked(),
	}
}

// PaidOrder returns the backend order that settled the session, when known.
func (s *Session) PaidOrder() *types.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paidOrder
}

// CheckNow runs one verification round trip immediately, on the caller's
// context, and returns the resulting status. A settled payment transitions
// the session exactly as an automatic poll would.
func (s *Session) CheckNow(ctx context.Context) (Status, error) {
	if s.Phase() == enums.SessionPhaseActive {
		if err := ctx.Err(); err != nil {
			return s.Status(), err
		}
		s.probe(ctx)
	}
	return s.Status(), nil
}

// Confirm settles the session through the manual-confirmation endpoint.
// Only the rails without reliable QR verification use it.
func (s *Session) Confirm(ctx context.Context) (Status, error) {
	if !s.method.UsesManualConfirm() {
		return s.Status(), pkgerrors.New(pkgerrors.CodeValidation, "payment method does not support manual confirmation").
			WithDetails(map[string]any{"paymentMethod": s.method.String()})
	}
	if s.Phase() != enums.SessionPhaseActive {
		return s.Status(), pkgerrors.New(pkgerrors.CodeRejected, "payment session is no longer active")
	}

	order, err := s.backend.ConfirmPayment(ctx, s.orderID)
	if err != nil {
		return s.Status(), err
	}
	s.succeed(order)
	return s.Status(), nil
}

// Cancel tears the session down. The backend is not told; the order stays
// whatever the backend says it is.
func (s *Session) Cancel() {
	if !s.transition(enums.SessionPhaseCancelled) {
		return
	}
	s.logger.Info(s.logCtx(), "payment session cancelled")
	if s.hooks.OnCancelled != nil {
		s.hooks.OnCancelled(s.id)
	}
}

// pollTick is the repeating timer callback.
func (s *Session) pollTick() {
	s.metrics.IncPollTick()
	ctx, cancel := context.WithTimeout(s.baseCtx, s.cfg.probeTimeout)
	defer cancel()
	s.probe(ctx)
}

// probe asks the backend whether the payment settled. Verification failures
// fall back to reading the order itself; when both fail the tick is simply
// lost and the next one retries.
func (s *Session) probe(ctx context.Context) {
	probe, err := s.backend.VerifyPayment(ctx, s.orderCode)
	if err == nil {
		if probe.IsPaid || probe.Status == enums.OrderStatusPaid {
			s.succeed(nil)
		}
		return
	}
	s.logger.Warn(s.logCtx(), "payment verification unreachable, falling back to order status")

	order, err := s.backend.GetOrder(ctx, s.orderID)
	if err != nil {
		return
	}
	switch order.Status {
	case enums.OrderStatusPaid:
		s.succeed(order)
	case enums.OrderStatusCancelled, enums.OrderStatusExpired:
		// the backend gave up on the order; keeping the session open
		// would poll a dead order until the window closes
		s.Cancel()
	}
}

// expire is the deadline timer callback.
func (s *Session) expire() {
	if !s.transition(enums.SessionPhaseExpired) {
		return
	}
	s.logger.Warn(s.logCtx(), "payment window expired")
	if s.hooks.OnExpired != nil {
		s.hooks.OnExpired(s.id)
	}
}

// succeed commits the success transition, clears the cart once, and fires
// the hook. Callers racing on a settled payment all funnel through the
// phase guard; only the first one gets past it.
func (s *Session) succeed(order *types.Order) {
	if !s.transition(enums.SessionPhaseSucceeded) {
		return
	}
	if order != nil {
		s.mu.Lock()
		s.paidOrder = order
		s.mu.Unlock()
	}

	ctx, cancel := context.WithTimeout(s.baseCtx, s.cfg.probeTimeout)
	defer cancel()
	if _, err := s.backend.ClearCart(ctx); err != nil {
		s.logger.Error(s.logCtx(), "cart clear failed after payment success", err)
	}
	s.logger.Info(s.logCtx(), "payment session succeeded")
	if s.hooks.OnSucceeded != nil {
		s.hooks.OnSucceeded(s.id, order)
	}
}

// transition moves ACTIVE to a terminal phase and stops both timers. It
// returns false when another exit already won, in which case the caller
// must discard whatever response brought it here.
func (s *Session) transition(to enums.SessionPhase) bool {
	s.mu.Lock()
	if s.phase != enums.SessionPhaseActive {
		s.mu.Unlock()
		return false
	}
	s.phase = to
	poll, deadline := s.pollTask, s.deadlineTask
	s.mu.Unlock()

	if poll != nil {
		poll.Stop()
	}
	if deadline != nil {
		deadline.Stop()
	}
	s.metrics.IncSessionOutcome(strings.ToLower(to.String()))
	return true
}

func (s *Session) logCtx() context.Context {
	ctx := s.logger.WithSessionID(context.Background(), s.id)
	return s.logger.WithOrderID(ctx, s.orderID)
}
