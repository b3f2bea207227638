package types

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/HuuNghia-2123110281/storefront-checkout/pkg/enums"
)

// CartLine is one line of the remote cart. Lines are mutated only by the
// commerce backend; local code treats them as read-only.
type CartLine struct {
	LineID    int64           `json:"lineId"`
	ProductID int64           `json:"productId"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Quantity  int             `json:"quantity"`
}

// Subtotal returns unitPrice*quantity for the line.
func (l CartLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// CartSnapshot is a point-in-time read of the remote cart. TotalPrice is
// always re-derived locally from the lines, never taken from the backend.
type CartSnapshot struct {
	Lines      []CartLine      `json:"lines"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
}

// DeriveTotal recomputes the snapshot total from its lines.
func (s CartSnapshot) DeriveTotal() decimal.Decimal {
	total := decimal.Zero
	for _, line := range s.Lines {
		total = total.Add(line.Subtotal())
	}
	return total
}

// IsEmpty reports whether the snapshot holds no lines.
func (s CartSnapshot) IsEmpty() bool {
	return len(s.Lines) == 0
}

// ContainsProduct reports whether the snapshot has a line for the product
// with at least the given quantity.
func (s CartSnapshot) ContainsProduct(productID int64, minQuantity int) bool {
	for _, line := range s.Lines {
		if line.ProductID == productID && line.Quantity >= minQuantity {
			return true
		}
	}
	return false
}

// OrderDraft is the transient order-creation request. It is built right
// before submission and never persisted locally.
type OrderDraft struct {
	AddressID     int64               `json:"addressId"`
	PaymentMethod enums.PaymentMethod `json:"paymentMethod"`
	TotalPrice    decimal.Decimal     `json:"totalPrice"`
	Lines         []CartLine          `json:"items"`
}

// Order mirrors the backend's order resource. Its status is the single
// source of truth a payment session polls.
type Order struct {
	ID            int64               `json:"id"`
	OrderCode     int64               `json:"orderCode,omitempty"`
	Status        enums.OrderStatus   `json:"status"`
	TotalPrice    decimal.Decimal     `json:"totalPrice"`
	PaymentMethod enums.PaymentMethod `json:"paymentMethod"`
	CreatedAt     time.Time           `json:"createdAt"`
}

// Ack is the backend's acknowledgement of a mutation request. Transport
// success does not imply the mutation is observable yet.
type Ack struct {
	Message string `json:"message"`
}

// PaymentIntent is the QR payload handed back when an online payment is
// opened for an order.
type PaymentIntent struct {
	OrderID   int64  `json:"orderId"`
	OrderCode int64  `json:"orderCode"`
	QRPayload string `json:"qrCode"`
}

// PaymentProbe is the result of one payment verification round trip.
type PaymentProbe struct {
	IsPaid bool              `json:"isPaid"`
	Status enums.OrderStatus `json:"status"`
}
