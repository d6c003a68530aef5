package market

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"papertrade/internal/domain"
	"papertrade/internal/util"
)

// Compile-time interface check.
var _ Provider = (*AlpacaProvider)(nil)

// AlpacaProvider fetches quotes from the Alpaca market-data API. Fetches go
// through a token-bucket rate limiter and retry with backoff on transient
// failures.
type AlpacaProvider struct {
	client  *marketdata.Client
	limiter *util.RateLimiter
	retries int
	log     *slog.Logger
}

// NewAlpacaProvider creates a provider configured with the given Alpaca
// credentials. dataURL overrides the default market-data endpoint when
// non-empty.
func NewAlpacaProvider(apiKey, apiSecret, dataURL string, rateLimitPerMin, retries int, log *slog.Logger) *AlpacaProvider {
	opts := marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	}
	if dataURL != "" {
		opts.BaseURL = dataURL
	}

	return &AlpacaProvider{
		client:  marketdata.NewClient(opts),
		limiter: util.NewRateLimiter(rateLimitPerMin),
		retries: retries,
		log:     log.With("provider", "alpaca"),
	}
}

// GetQuote fetches the current snapshot for a symbol and converts it to a
// domain quote. The price is the latest trade; change and change percent
// are computed against the previous daily close.
func (p *AlpacaProvider) GetQuote(ctx context.Context, symbol string) (*domain.Quote, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var snap *marketdata.Snapshot
	err := util.Retry(ctx, p.retries, 200*time.Millisecond, func() error {
		var ferr error
		snap, ferr = p.client.GetSnapshot(symbol, marketdata.GetSnapshotRequest{})
		if ferr != nil {
			p.log.Warn("snapshot fetch failed", "symbol", symbol, "error", ferr)
		}
		return ferr
	})
	if err != nil {
		return nil, fmt.Errorf("fetching snapshot for %s: %w", symbol, err)
	}
	if snap == nil || snap.LatestTrade == nil {
		// The snapshot endpoint returns an empty body for symbols the feed
		// has never traded.
		return nil, domain.ErrSymbolNotFound
	}

	q := &domain.Quote{
		Symbol: symbol,
		Name:   symbol,
		Price:  snap.LatestTrade.Price,
		AsOf:   time.Now(),
	}
	if snap.PrevDailyBar != nil && snap.PrevDailyBar.Close != 0 {
		q.Change = q.Price - snap.PrevDailyBar.Close
		q.ChangePercent = q.Change / snap.PrevDailyBar.Close * 100
	}
	return q, nil
}
