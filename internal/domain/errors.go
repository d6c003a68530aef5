package domain

import "errors"

// Sentinel errors for expected, user-recoverable order rejections. The
// handler layer maps these to HTTP status codes. A rejected order never
// mutates account, position, or transaction state.
var (
	// ErrQuoteUnavailable means no quote is obtainable for the symbol and
	// none is cached.
	ErrQuoteUnavailable = errors.New("quote_unavailable")

	// ErrSymbolNotFound means the symbol cannot be resolved to a known or
	// fetchable instrument.
	ErrSymbolNotFound = errors.New("symbol_not_found")

	// ErrLimitNotMet means a limit order's eligibility condition failed
	// against the current market price.
	ErrLimitNotMet = errors.New("limit_not_met")

	// ErrInsufficientFunds means a buy exceeds the account's cash balance.
	ErrInsufficientFunds = errors.New("insufficient_funds")

	// ErrInsufficientShares means a sell exceeds the held position.
	ErrInsufficientShares = errors.New("insufficient_shares")

	// ErrAccountNotFound means the account does not exist and the operation
	// does not provision one.
	ErrAccountNotFound = errors.New("account_not_found")

	// ErrPositionNotFound means no position exists for the account+symbol.
	ErrPositionNotFound = errors.New("position_not_found")
)

// ValidationError reports a malformed request rejected before it reaches the
// order validator (missing fields, non-positive share counts, unknown sides).
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// RejectionError wraps one of the sentinel rejection errors with enough
// detail to explain the cause to the user (market vs limit price, required
// vs available funds, held vs requested shares).
type RejectionError struct {
	Kind   error
	Detail string
}

func (e *RejectionError) Error() string {
	if e.Detail == "" {
		return e.Kind.Error()
	}
	return e.Kind.Error() + ": " + e.Detail
}

// Unwrap exposes the sentinel so errors.Is works against the taxonomy.
func (e *RejectionError) Unwrap() error {
	return e.Kind
}

// Reject builds a RejectionError for the given sentinel and detail text.
func Reject(kind error, detail string) error {
	return &RejectionError{Kind: kind, Detail: detail}
}
