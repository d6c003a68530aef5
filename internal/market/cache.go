package market

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"papertrade/internal/domain"
	"papertrade/internal/store"
)

// Cache is a read-through quote cache backed by the quote store. An entry
// older than the TTL (or missing entirely) triggers a synchronous provider
// fetch that overwrites the entry before returning. A provider failure with
// an existing entry returns the stale entry (staleness is preferred over
// unavailability), except on the very first fetch for a never-seen symbol,
// which fails with domain.ErrQuoteUnavailable.
//
// Concurrent requests for the same stale symbol may refresh redundantly;
// that is tolerated (last writer wins) since provider reads are idempotent.
type Cache struct {
	provider Provider
	quotes   store.QuoteStore
	ttl      time.Duration
	log      *slog.Logger
}

// NewCache creates a Cache over the given provider and quote store.
func NewCache(provider Provider, quotes store.QuoteStore, ttl time.Duration, log *slog.Logger) *Cache {
	return &Cache{
		provider: provider,
		quotes:   quotes,
		ttl:      ttl,
		log:      log.With("component", "quote_cache"),
	}
}

// NormalizeSymbol canonicalizes user-supplied symbol input.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// GetQuote returns the current quote for a symbol, refreshing the cached
// entry from the provider when it is stale or missing.
func (c *Cache) GetQuote(ctx context.Context, symbol string) (*domain.Quote, error) {
	symbol = NormalizeSymbol(symbol)

	cached, err := c.quotes.GetQuote(ctx, symbol)
	if err != nil && !errors.Is(err, domain.ErrQuoteUnavailable) {
		return nil, err
	}
	if cached != nil && time.Since(cached.AsOf) <= c.ttl {
		return cached, nil
	}

	fresh, ferr := c.provider.GetQuote(ctx, symbol)
	if ferr != nil {
		if errors.Is(ferr, domain.ErrSymbolNotFound) {
			// Definitive: the instrument does not exist.
			return nil, domain.Reject(domain.ErrSymbolNotFound, symbol)
		}
		if cached != nil {
			c.log.Warn("provider fetch failed, serving stale quote",
				"symbol", symbol, "age", time.Since(cached.AsOf), "error", ferr)
			return cached, nil
		}
		return nil, domain.Reject(domain.ErrQuoteUnavailable, symbol+": "+ferr.Error())
	}

	if err := c.quotes.PutQuote(ctx, fresh); err != nil {
		// The caller still gets the fresh quote; only the cache write failed.
		c.log.Warn("caching quote failed", "symbol", symbol, "error", err)
	}
	return fresh, nil
}

// GetQuotes returns quotes for the given symbols, refreshing stale entries.
// Symbols that cannot be quoted at all are skipped and logged rather than
// failing the whole batch.
func (c *Cache) GetQuotes(ctx context.Context, symbols []string) ([]domain.Quote, error) {
	quotes := make([]domain.Quote, 0, len(symbols))
	for _, sym := range symbols {
		q, err := c.GetQuote(ctx, sym)
		if err != nil {
			if errors.Is(err, domain.ErrSymbolNotFound) || errors.Is(err, domain.ErrQuoteUnavailable) {
				c.log.Warn("skipping unquotable symbol", "symbol", sym, "error", err)
				continue
			}
			return nil, err
		}
		quotes = append(quotes, *q)
	}
	return quotes, nil
}
