package payment

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/HuuNghia-2123110281/storefront-checkout/internal/gateway"
	"github.com/HuuNghia-2123110281/storefront-checkout/pkg/config"
	"github.com/HuuNghia-2123110281/storefront-checkout/pkg/enums"
	pkgerrors "github.com/HuuNghia-2123110281/storefront-checkout/pkg/errors"
	"github.com/HuuNghia-2123110281/storefront-checkout/pkg/logger"
	"github.com/HuuNghia-2123110281/storefront-checkout/pkg/metrics"
	"github.com/HuuNghia-2123110281/storefront-checkout/pkg/sched"
	"github.com/HuuNghia-2123110281/storefront-checkout/pkg/types"
)

type RegistryParams struct {
	Backend   Backend
	Scheduler sched.Scheduler
	Config    config.PaymentConfig
	Logger    *logger.Logger
	Metrics   *metrics.CheckoutMetrics
	Hooks     Hooks

	// NewSessionID overrides ID generation in tests.
	NewSessionID func() string
}

// Registry owns the live sessions. Terminal sessions drop out on their own;
// Get keeps answering for them only as long as a caller still holds the ID.
type Registry struct {
	backend Backend
	sch     sched.Scheduler
	cfg     config.PaymentConfig
	logger  *logger.Logger
	metrics *metrics.CheckoutMetrics
	hooks   Hooks
	newID   func() string

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewRegistry(params RegistryParams) (*Registry, error) {
	if params.Backend == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payment backend is required")
	}
	if params.Scheduler == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "scheduler is required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger is required")
	}
	newID := params.NewSessionID
	if newID == nil {
		newID = uuid.NewString
	}
	return &Registry{
		backend:  params.Backend,
		sch:      params.Scheduler,
		cfg:      params.Config,
		logger:   params.Logger,
		metrics:  params.Metrics,
		hooks:    params.Hooks,
		newID:    newID,
		sessions: make(map[string]*Session),
	}, nil
}

// Open builds a session for the order, registers it and arms its timers.
// The buyer's bearer token is captured from ctx so timer-driven backend
// calls stay authenticated after the originating request ends.
func (r *Registry) Open(ctx context.Context, order *types.Order, intent *types.PaymentIntent) (*Session, error) {
	if order == nil || intent == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "order and payment intent are required")
	}
	if !order.PaymentMethod.IsOnline() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment sessions only apply to online payment methods")
	}

	session := &Session{
		id:        r.newID(),
		orderID:   order.ID,
		orderCode: intent.OrderCode,
		qrPayload: intent.QRPayload,
		method:    order.PaymentMethod,
		backend:   r.backend,
		sch:       r.sch,
		cfg: sessionConfig{
			window:       r.cfg.Window,
			pollInterval: r.cfg.PollInterval,
			probeTimeout: r.cfg.ProbeTimeout,
		},
		logger:  r.logger,
		metrics: r.metrics,
		baseCtx: gateway.WithToken(context.Background(), gateway.TokenFromContext(ctx)),
		phase:   enums.SessionPhaseActive,
	}
	session.hooks = r.wrapHooks(session.id)

	r.mu.Lock()
	r.sessions[session.id] = session
	r.mu.Unlock()

	session.start()
	return session, nil
}

// wrapHooks deregisters the session before any user hook runs.
func (r *Registry) wrapHooks(sessionID string) Hooks {
	return Hooks{
		OnSucceeded: func(id string, order *types.Order) {
			r.remove(id)
			if r.hooks.OnSucceeded != nil {
				r.hooks.OnSucceeded(id, order)
			}
		},
		OnExpired: func(id string) {
			r.remove(id)
			if r.hooks.OnExpired != nil {
				r.hooks.OnExpired(id)
			}
		},
		OnCancelled: func(id string) {
			r.remove(id)
			if r.hooks.OnCancelled != nil {
				r.hooks.OnCancelled(id)
			}
		},
	}
}

// Get returns the live session with the given ID.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.sessions[id]
	return session, ok
}

// ActiveCount reports how many sessions are currently registered.
func (r *Registry) ActiveCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Shutdown cancels every live session. Used on server teardown.
func (r *Registry) Shutdown() {
	r.mu.RLock()
	open := make([]*Session, 0, len(r.sessions))
	for _, session := range r.sessions {
		open = append(open, session)
	}
	r.mu.RUnlock()
	for _, session := range open {
		session.Cancel()
	}
}

func (r *Registry) remove(id string) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
}
