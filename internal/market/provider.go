// Package market provides access to external market data: a quote provider
// backed by the Alpaca API and a read-through cache that shields the
// settlement path from hammering the provider on every order.
package market

import (
	"context"

	"papertrade/internal/domain"
)

// Provider fetches a current quote for a symbol from an external market-data
// source. Implementations return domain.ErrSymbolNotFound when the symbol
// does not resolve to a known instrument; any other error is treated as a
// transient provider failure.
type Provider interface {
	GetQuote(ctx context.Context, symbol string) (*domain.Quote, error)
}
