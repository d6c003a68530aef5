package domain

import (
	"errors"
	"testing"
)

func TestRejectionErrorUnwrap(t *testing.T) {
	err := Reject(ErrInsufficientFunds, "need 1425.00, have 100.00")

	if !errors.Is(err, ErrInsufficientFunds) {
		t.Error("errors.Is should match the wrapped sentinel")
	}
	if errors.Is(err, ErrInsufficientShares) {
		t.Error("errors.Is matched the wrong sentinel")
	}

	want := "insufficient_funds: need 1425.00, have 100.00"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestRejectionErrorNoDetail(t *testing.T) {
	err := Reject(ErrQuoteUnavailable, "")
	if err.Error() != "quote_unavailable" {
		t.Errorf("Error() = %q, want %q", err.Error(), "quote_unavailable")
	}
}

func TestSideValid(t *testing.T) {
	if !SideBuy.Valid() || !SideSell.Valid() {
		t.Error("buy and sell must be valid sides")
	}
	if Side("hold").Valid() {
		t.Error("unknown side reported valid")
	}
}
