package market

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"papertrade/internal/domain"
	"papertrade/internal/store"
	"papertrade/internal/util"
)

// fakeProvider returns a scripted quote or error and counts fetches.
type fakeProvider struct {
	quote *domain.Quote
	err   error
	calls int
}

func (f *fakeProvider) GetQuote(_ context.Context, symbol string) (*domain.Quote, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	q := *f.quote
	q.Symbol = symbol
	q.AsOf = time.Now()
	return &q, nil
}

func newTestCache(t *testing.T, p Provider, ttl time.Duration) (*Cache, *store.SQLiteStore) {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "quotes.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return NewCache(p, s, ttl, util.NewLogger("error")), s
}

func TestCacheFetchesOnMiss(t *testing.T) {
	p := &fakeProvider{quote: &domain.Quote{Price: 185.5, Change: 1.2, ChangePercent: 0.65}}
	c, _ := newTestCache(t, p, time.Minute)
	ctx := context.Background()

	q, err := c.GetQuote(ctx, "aapl")
	if err != nil {
		t.Fatalf("GetQuote: %v", err)
	}
	if q.Symbol != "AAPL" {
		t.Errorf("symbol = %q, want normalized %q", q.Symbol, "AAPL")
	}
	if q.Price != 185.5 {
		t.Errorf("price = %v, want 185.5", q.Price)
	}
	if p.calls != 1 {
		t.Errorf("provider fetched %d times, want 1", p.calls)
	}
}

func TestCacheServesFreshEntryWithoutFetch(t *testing.T) {
	p := &fakeProvider{quote: &domain.Quote{Price: 100}}
	c, _ := newTestCache(t, p, time.Minute)
	ctx := context.Background()

	if _, err := c.GetQuote(ctx, "AAPL"); err != nil {
		t.Fatalf("first GetQuote: %v", err)
	}
	if _, err := c.GetQuote(ctx, "AAPL"); err != nil {
		t.Fatalf("second GetQuote: %v", err)
	}
	if p.calls != 1 {
		t.Errorf("provider fetched %d times, want 1 (second read was cached)", p.calls)
	}
}

func TestCacheRefreshesStaleEntry(t *testing.T) {
	p := &fakeProvider{quote: &domain.Quote{Price: 100}}
	c, s := newTestCache(t, p, time.Minute)
	ctx := context.Background()

	// Seed an entry well past the TTL.
	stale := &domain.Quote{Symbol: "AAPL", Price: 90, AsOf: time.Now().Add(-5 * time.Minute)}
	if err := s.PutQuote(ctx, stale); err != nil {
		t.Fatalf("PutQuote: %v", err)
	}

	q, err := c.GetQuote(ctx, "AAPL")
	if err != nil {
		t.Fatalf("GetQuote: %v", err)
	}
	if q.Price != 100 {
		t.Errorf("price = %v, want refreshed 100", q.Price)
	}
	if p.calls != 1 {
		t.Errorf("provider fetched %d times, want 1", p.calls)
	}

	// The refresh must overwrite the cached row.
	cached, err := s.GetQuote(ctx, "AAPL")
	if err != nil {
		t.Fatalf("store GetQuote: %v", err)
	}
	if cached.Price != 100 {
		t.Errorf("cached price = %v, want overwritten 100", cached.Price)
	}
}

func TestCacheStalePreferredOverUnavailable(t *testing.T) {
	p := &fakeProvider{err: errors.New("provider down")}
	c, s := newTestCache(t, p, time.Minute)
	ctx := context.Background()

	stale := &domain.Quote{Symbol: "AAPL", Price: 90, AsOf: time.Now().Add(-5 * time.Minute)}
	if err := s.PutQuote(ctx, stale); err != nil {
		t.Fatalf("PutQuote: %v", err)
	}

	q, err := c.GetQuote(ctx, "AAPL")
	if err != nil {
		t.Fatalf("GetQuote with stale fallback: %v", err)
	}
	if q.Price != 90 {
		t.Errorf("price = %v, want stale 90", q.Price)
	}
}

func TestCacheUnavailableOnFirstFetch(t *testing.T) {
	p := &fakeProvider{err: errors.New("provider down")}
	c, _ := newTestCache(t, p, time.Minute)

	_, err := c.GetQuote(context.Background(), "NEVERSEEN")
	if !errors.Is(err, domain.ErrQuoteUnavailable) {
		t.Fatalf("GetQuote = %v, want ErrQuoteUnavailable", err)
	}
}

func TestCacheSymbolNotFound(t *testing.T) {
	p := &fakeProvider{err: domain.ErrSymbolNotFound}
	c, _ := newTestCache(t, p, time.Minute)

	_, err := c.GetQuote(context.Background(), "BOGUS")
	if !errors.Is(err, domain.ErrSymbolNotFound) {
		t.Fatalf("GetQuote = %v, want ErrSymbolNotFound", err)
	}
}

func TestCacheGetQuotesSkipsUnquotable(t *testing.T) {
	p := &fakeProvider{err: domain.ErrSymbolNotFound}
	c, s := newTestCache(t, p, time.Minute)
	ctx := context.Background()

	// One good cached entry, one unknown symbol.
	if err := s.PutQuote(ctx, &domain.Quote{Symbol: "AAPL", Price: 100, AsOf: time.Now()}); err != nil {
		t.Fatalf("PutQuote: %v", err)
	}

	quotes, err := c.GetQuotes(ctx, []string{"AAPL", "BOGUS"})
	if err != nil {
		t.Fatalf("GetQuotes: %v", err)
	}
	if len(quotes) != 1 || quotes[0].Symbol != "AAPL" {
		t.Errorf("GetQuotes = %+v, want just AAPL", quotes)
	}
}
