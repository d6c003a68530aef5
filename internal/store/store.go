// Package store defines storage interfaces for persisting and retrieving
// accounts, positions, transactions, and cached quotes, and provides the
// atomic settlement boundary the engine relies on.
package store

import (
	"context"

	"papertrade/internal/domain"
)

// AccountStore persists and retrieves simulated cash accounts.
type AccountStore interface {
	// GetAccount retrieves an account by its ID. Returns
	// domain.ErrAccountNotFound if it does not exist.
	GetAccount(ctx context.Context, id string) (*domain.Account, error)

	// GetOrCreateAccount retrieves an account, provisioning it with the
	// given starting balance if absent.
	GetOrCreateAccount(ctx context.Context, id string, startingBalance float64) (*domain.Account, error)

	// AdjustBalance applies a relative delta to the account's cash balance
	// as a single atomic update and returns the new balance. The account is
	// provisioned with startingBalance first if absent.
	AdjustBalance(ctx context.Context, id string, delta, startingBalance float64) (float64, error)
}

// PositionStore persists and retrieves per-account per-symbol positions.
// Positions with zero shares are deleted, never stored.
type PositionStore interface {
	// GetPosition retrieves the position for an account and symbol. Returns
	// domain.ErrPositionNotFound if none exists.
	GetPosition(ctx context.Context, accountID, symbol string) (*domain.Position, error)

	// ListPositions returns all positions held by the account, ordered by
	// symbol.
	ListPositions(ctx context.Context, accountID string) ([]domain.Position, error)
}

// TransactionStore retrieves the append-only trade log. Records are written
// only through Settler as part of an atomic settlement.
type TransactionStore interface {
	// ListTransactions returns the account's most recent transactions,
	// newest first, up to limit (0 means no limit).
	ListTransactions(ctx context.Context, accountID string, limit int) ([]domain.Transaction, error)
}

// QuoteStore persists cached quotes for the read-through quote cache.
type QuoteStore interface {
	// GetQuote retrieves the cached quote for a symbol. Returns
	// domain.ErrQuoteUnavailable if no entry exists.
	GetQuote(ctx context.Context, symbol string) (*domain.Quote, error)

	// PutQuote inserts or overwrites the cached quote for a symbol.
	PutQuote(ctx context.Context, q *domain.Quote) error

	// ListQuotes returns cached quotes for the given symbols, in the order
	// requested, skipping symbols with no entry.
	ListQuotes(ctx context.Context, symbols []string) ([]domain.Quote, error)
}

// Settler applies one validated order as a single atomic state transition
// across the account ledger, position ledger, and transaction log.
type Settler interface {
	// ExecuteOrder settles the trade described by t: it debits or credits
	// the cash balance, upserts or reduces the position (deleting it at
	// zero shares), and appends the transaction record, all inside one
	// storage transaction. The funds and shares guards are re-checked
	// inside that transaction, so concurrent orders on the same account
	// observe either the fully applied or fully unapplied state.
	//
	// The account is provisioned with startingBalance if absent. On success
	// t.ID is populated and a Fill with the new balance is returned.
	ExecuteOrder(ctx context.Context, t *domain.Transaction, startingBalance float64) (*domain.Fill, error)
}
