package controllers

import (
	"net/http"

	"github.com/HuuNghia-2123110281/storefront-checkout/api/responses"
	"github.com/HuuNghia-2123110281/storefront-checkout/api/validators"
	checkoutsvc "github.com/HuuNghia-2123110281/storefront-checkout/internal/checkout"
	"github.com/HuuNghia-2123110281/storefront-checkout/pkg/enums"
	pkgerrors "github.com/HuuNghia-2123110281/storefront-checkout/pkg/errors"
	"github.com/HuuNghia-2123110281/storefront-checkout/pkg/logger"
	"github.com/HuuNghia-2123110281/storefront-checkout/pkg/types"
)

type placeOrderRequest struct {
	AddressID     int64  `json:"addressId" validate:"required,min=1"`
	PaymentMethod string `json:"paymentMethod" validate:"required,oneof=COD BANK MOMO ZALOPAY"`
}

type placeOrderResponse struct {
	Order        *types.Order            `json:"order"`
	CartVerified bool                    `json:"cartVerified"`
	Payment      *checkoutsvc.PaymentRef `json:"payment,omitempty"`
}

// Checkout places an order. The request never carries a total; the service
// recomputes it from the live cart.
func Checkout(svc *checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		var payload placeOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		method, err := enums.ParsePaymentMethod(payload.PaymentMethod)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method"))
			return
		}

		result, err := svc.PlaceOrder(r.Context(), checkoutsvc.PlaceOrderInput{
			AddressID:     payload.AddressID,
			PaymentMethod: method,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, placeOrderResponse{
			Order:        result.Order,
			CartVerified: result.CartVerified,
			Payment:      result.Payment,
		})
	}
}
