package types

import (
	"testing"

	"github.com/shopspring/decimal"
)

func line(id, product int64, price int64, qty int) CartLine {
	return CartLine{LineID: id, ProductID: product, UnitPrice: decimal.NewFromInt(price), Quantity: qty}
}

func TestDeriveTotalSumsLines(t *testing.T) {
	snap := CartSnapshot{Lines: []CartLine{
		line(1, 7, 100000, 2),
		line(2, 9, 45000, 1),
	}}

	if got := snap.DeriveTotal(); !got.Equal(decimal.NewFromInt(245000)) {
		t.Fatalf("expected 245000, got %s", got)
	}
}

func TestDeriveTotalEmptyCart(t *testing.T) {
	var snap CartSnapshot
	if !snap.DeriveTotal().IsZero() {
		t.Fatal("empty cart must total zero")
	}
	if !snap.IsEmpty() {
		t.Fatal("expected empty snapshot")
	}
}

func TestContainsProduct(t *testing.T) {
	snap := CartSnapshot{Lines: []CartLine{line(1, 7, 100000, 2)}}

	if !snap.ContainsProduct(7, 2) {
		t.Fatal("expected product 7 qty>=2 to be present")
	}
	if snap.ContainsProduct(7, 3) {
		t.Fatal("quantity below expectation must not match")
	}
	if snap.ContainsProduct(8, 1) {
		t.Fatal("unknown product must not match")
	}
}
