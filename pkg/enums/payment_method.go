package enums

import "fmt"

// PaymentMethod describes how a buyer intends to settle an order.
type PaymentMethod string

const (
	PaymentMethodCOD     PaymentMethod = "COD"
	PaymentMethodBank    PaymentMethod = "BANK"
	PaymentMethodMoMo    PaymentMethod = "MOMO"
	PaymentMethodZaloPay PaymentMethod = "ZALOPAY"
)

var validPaymentMethods = []PaymentMethod{
	PaymentMethodCOD,
	PaymentMethodBank,
	PaymentMethodMoMo,
	PaymentMethodZaloPay,
}

// String implements fmt.Stringer.
func (p PaymentMethod) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentMethod.
func (p PaymentMethod) IsValid() bool {
	for _, candidate := range validPaymentMethods {
		if candidate == p {
			return true
		}
	}
	return false
}

// IsOnline reports whether the method settles through a payment session
// rather than cash on delivery.
func (p PaymentMethod) IsOnline() bool {
	return p.IsValid() && p != PaymentMethodCOD
}

// UsesManualConfirm reports whether the rail confirms through the
// payment-confirm endpoint instead of QR verify polling.
func (p PaymentMethod) UsesManualConfirm() bool {
	return p == PaymentMethodMoMo || p == PaymentMethodZaloPay
}

// ParsePaymentMethod converts raw input into a PaymentMethod.
func ParsePaymentMethod(value string) (PaymentMethod, error) {
	for _, candidate := range validPaymentMethods {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment method %q", value)
}
