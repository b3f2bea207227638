package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/HuuNghia-2123110281/storefront-checkout/api/responses"
	paymentsvc "github.com/HuuNghia-2123110281/storefront-checkout/internal/payment"
	pkgerrors "github.com/HuuNghia-2123110281/storefront-checkout/pkg/errors"
	"github.com/HuuNghia-2123110281/storefront-checkout/pkg/logger"
)

// PaymentSessionStatus returns the current view of a live session.
func PaymentSessionStatus(registry *paymentsvc.Registry, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, err := sessionFromPath(registry, r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, session.Status())
	}
}

// PaymentSessionCheck forces one verification round trip immediately, the
// "I already paid" button.
func PaymentSessionCheck(registry *paymentsvc.Registry, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, err := sessionFromPath(registry, r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := session.CheckNow(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, status)
	}
}

// PaymentSessionConfirm settles through the manual-confirmation rail.
func PaymentSessionConfirm(registry *paymentsvc.Registry, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, err := sessionFromPath(registry, r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := session.Confirm(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, status)
	}
}

// PaymentSessionCancel tears the session down, the "back out of payment"
// path. The order itself is left to the backend.
func PaymentSessionCancel(registry *paymentsvc.Registry, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, err := sessionFromPath(registry, r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		session.Cancel()
		responses.WriteSuccess(w, session.Status())
	}
}

func sessionFromPath(registry *paymentsvc.Registry, r *http.Request) (*paymentsvc.Session, error) {
	if registry == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payment registry unavailable")
	}
	sessionID := strings.TrimSpace(chi.URLParam(r, "sessionID"))
	if sessionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}
	session, ok := registry.Get(sessionID)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment session not found")
	}
	return session, nil
}
