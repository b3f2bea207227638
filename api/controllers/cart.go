package controllers

import (
	"net/http"

	"github.com/HuuNghia-2123110281/storefront-checkout/api/responses"
	"github.com/HuuNghia-2123110281/storefront-checkout/api/validators"
	checkoutsvc "github.com/HuuNghia-2123110281/storefront-checkout/internal/checkout"
	pkgerrors "github.com/HuuNghia-2123110281/storefront-checkout/pkg/errors"
	"github.com/HuuNghia-2123110281/storefront-checkout/pkg/logger"
	"github.com/HuuNghia-2123110281/storefront-checkout/pkg/types"
)

type addCartItemRequest struct {
	ProductID int64 `json:"productId" validate:"required,min=1"`
	Quantity  int   `json:"quantity" validate:"required,min=1"`
}

type updateCartItemRequest struct {
	Quantity int `json:"quantity" validate:"required,min=1"`
}

// cartMutationResponse reports the mutation together with its read-path
// confirmation. verified=false means the backend acknowledged the write but
// never showed it within the attempt budget.
type cartMutationResponse struct {
	Verified bool                `json:"verified"`
	Attempts int                 `json:"attempts"`
	Cart     *types.CartSnapshot `json:"cart,omitempty"`
}

// CartFetch returns the remote cart with its locally derived total.
func CartFetch(svc *checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		snapshot, err := svc.Cart(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, snapshot)
	}
}

// CartAddItem adds a product and confirms it on the read path. An
// unconfirmed write answers 202 so the client knows to re-read.
func CartAddItem(svc *checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		var payload addCartItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.AddItem(r.Context(), payload.ProductID, payload.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeMutation(w, result)
	}
}

// CartUpdateItem changes a line's quantity.
func CartUpdateItem(svc *checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		lineID, err := validators.ParsePathInt64(r, "lineID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload updateCartItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.UpdateItem(r.Context(), lineID, payload.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeMutation(w, result)
	}
}

// CartRemoveItem deletes a line.
func CartRemoveItem(svc *checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		lineID, err := validators.ParsePathInt64(r, "lineID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.RemoveItem(r.Context(), lineID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeMutation(w, result)
	}
}

// CartClear empties the cart.
func CartClear(svc *checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		result, err := svc.ClearCart(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeMutation(w, result)
	}
}

func writeMutation(w http.ResponseWriter, result *checkoutsvc.CartMutationResult) {
	status := http.StatusOK
	if !result.Verified {
		status = http.StatusAccepted
	}
	responses.WriteSuccessStatus(w, status, cartMutationResponse{
		Verified: result.Verified,
		Attempts: result.Attempts,
		Cart:     result.Snapshot,
	})
}
