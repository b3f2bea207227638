// Package cartsync verifies that a cart mutation has become visible on the
// backend's read path. The backend acknowledges writes before its reads
// reflect them, so after every mutation the caller states what the next
// snapshot should look like and the verifier polls until it sees it.
//
// Verification is best effort. Running out of attempts is not a failure:
// the caller gets the last snapshot and a Verified=false flag, and decides
// for itself whether stale reads matter for what it is about to do.
package cartsync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/HuuNghia-2123110281/storefront-checkout/internal/gateway"
	"github.com/HuuNghia-2123110281/storefront-checkout/pkg/config"
	"github.com/HuuNghia-2123110281/storefront-checkout/pkg/logger"
	"github.com/HuuNghia-2123110281/storefront-checkout/pkg/metrics"
	"github.com/HuuNghia-2123110281/storefront-checkout/pkg/types"
)

const (
	outcomeVerified   = "verified"
	outcomeUnverified = "unverified"
)

var errExpectationNotMet = errors.New("cart snapshot does not satisfy expectation yet")

// Expectation is a predicate over a cart snapshot, with a name for logs.
type Expectation struct {
	name      string
	satisfied func(*types.CartSnapshot) bool
}

// Name identifies the expectation in logs and errors.
func (e Expectation) Name() string {
	return e.name
}

// ExpectEmpty is satisfied when the cart has no lines. Used after ClearCart.
func ExpectEmpty() Expectation {
	return Expectation{
		name: "empty",
		satisfied: func(snapshot *types.CartSnapshot) bool {
			return snapshot.IsEmpty()
		},
	}
}

// ExpectProduct is satisfied when the cart holds at least minQuantity units
// of the product. Used after adds and quantity updates.
func ExpectProduct(productID int64, minQuantity int) Expectation {
	return Expectation{
		name: fmt.Sprintf("product_%d_qty_%d", productID, minQuantity),
		satisfied: func(snapshot *types.CartSnapshot) bool {
			return snapshot.ContainsProduct(productID, minQuantity)
		},
	}
}

// ExpectLineQuantity is satisfied when the line exists with exactly the
// given quantity. Used after quantity updates.
func ExpectLineQuantity(lineID int64, quantity int) Expectation {
	return Expectation{
		name: fmt.Sprintf("line_%d_qty_%d", lineID, quantity),
		satisfied: func(snapshot *types.CartSnapshot) bool {
			for _, line := range snapshot.Lines {
				if line.LineID == lineID {
					return line.Quantity == quantity
				}
			}
			return false
		},
	}
}

// ExpectLineAbsent is satisfied when no line with the given ID remains.
func ExpectLineAbsent(lineID int64) Expectation {
	return Expectation{
		name: fmt.Sprintf("line_%d_absent", lineID),
		satisfied: func(snapshot *types.CartSnapshot) bool {
			for _, line := range snapshot.Lines {
				if line.LineID == lineID {
					return false
				}
			}
			return true
		},
	}
}

// ExpectAnyLine is satisfied when the cart is non-empty.
func ExpectAnyLine() Expectation {
	return Expectation{
		name: "any_line",
		satisfied: func(snapshot *types.CartSnapshot) bool {
			return !snapshot.IsEmpty()
		},
	}
}

// Outcome reports what the verifier saw. Snapshot is the last successful
// read, which may be nil when every attempt failed on transport.
type Outcome struct {
	Verified bool
	Attempts int
	Snapshot *types.CartSnapshot
}

type VerifierParams struct {
	Cart    gateway.CartReader
	Config  config.CartSyncConfig
	Logger  *logger.Logger
	Metrics *metrics.CheckoutMetrics
}

// Verifier polls the cart read path until an expectation is met or the
// attempt budget runs out.
type Verifier struct {
	cart        gateway.CartReader
	maxAttempts int
	baseDelay   time.Duration
	logger      *logger.Logger
	metrics     *metrics.CheckoutMetrics
}

func NewVerifier(params VerifierParams) (*Verifier, error) {
	if params.Cart == nil {
		return nil, fmt.Errorf("cart reader is required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	maxAttempts := params.Config.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	baseDelay := params.Config.BaseDelay
	if baseDelay <= 0 {
		baseDelay = 800 * time.Millisecond
	}
	return &Verifier{
		cart:        params.Cart,
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
		logger:      params.Logger,
		metrics:     params.Metrics,
	}, nil
}

// Confirm waits out the write-visibility lag and polls until the expectation
// holds. The delay before attempt k grows linearly: baseDelay, 2*baseDelay,
// 3*baseDelay. Read failures count as missed attempts rather than aborting;
// the only hard error out of Verify is context cancellation.
func (v *Verifier) Confirm(ctx context.Context, expectation Expectation) (Outcome, error) {
	outcome := Outcome{}
	ctx = v.logger.WithField(ctx, "expectation", expectation.Name())

	// The backend never reflects a write instantly, so the first read is
	// also preceded by a delay.
	if err := sleepContext(ctx, v.baseDelay); err != nil {
		return outcome, err
	}

	backoff := retry.WithMaxRetries(uint64(v.maxAttempts-1), v.linearBackoff())
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		outcome.Attempts++
		snapshot, err := v.cart.GetCart(ctx)
		if err != nil {
			v.logger.Error(ctx, "cart read failed during verification", err)
			return retry.RetryableError(err)
		}
		outcome.Snapshot = snapshot
		if expectation.satisfied(snapshot) {
			outcome.Verified = true
			return nil
		}
		return retry.RetryableError(errExpectationNotMet)
	})
	if err != nil {
		if ctx.Err() != nil {
			return outcome, ctx.Err()
		}
		v.metrics.IncVerification(outcomeUnverified)
		v.logger.Warn(v.logger.WithField(ctx, "attempts", outcome.Attempts),
			"cart state unverified after exhausting attempts")
		return outcome, nil
	}

	v.metrics.IncVerification(outcomeVerified)
	return outcome, nil
}

// linearBackoff yields 2*baseDelay, 3*baseDelay, ... between attempts; the
// initial baseDelay wait happens before the first read.
func (v *Verifier) linearBackoff() retry.Backoff {
	attempt := 1
	return retry.BackoffFunc(func() (time.Duration, bool) {
		attempt++
		return v.baseDelay * time.Duration(attempt), false
	})
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
